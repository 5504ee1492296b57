package topology

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var (
	metricWithLabels = regexp.MustCompile(`([a-zA-Z_:][a-zA-Z0-9_:]*)(\{[^}]*\})`)
	metricWithRange  = regexp.MustCompile(`([a-zA-Z_:][a-zA-Z0-9_:]*)(\[[^\]]*\])`)
)

// InjectLabels adds the given label matchers to every metric selector in a
// PromQL query. Metrics with an explicit selector ({labels} or [range]) are
// rewritten; function names and unrelated text are left untouched.
//
// Injection is idempotent: a matcher whose label is already present in a
// selector is not appended again, so applying the same topology twice
// yields the same query.
func InjectLabels(query string, labels map[string]string) string {
	if len(labels) == 0 {
		return query
	}

	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	// First pass: metrics that already carry a {labels} selector.
	query = metricWithLabels.ReplaceAllStringFunc(query, func(match string) string {
		sub := metricWithLabels.FindStringSubmatch(match)
		name, braced := sub[1], sub[2]

		content := ""
		if len(braced) > 2 {
			content = braced[1 : len(braced)-1]
		}

		additions := missingMatchers(content, keys, labels)
		if len(additions) == 0 {
			return match
		}
		if content != "" {
			return fmt.Sprintf("%s{%s,%s}", name, content, strings.Join(additions, ","))
		}
		return fmt.Sprintf("%s{%s}", name, strings.Join(additions, ","))
	})

	// Second pass: metrics with a [range] selector but no labels yet. A
	// metric rewritten in the first pass now ends in '}', which cannot be
	// part of the metric-name match, so it is skipped naturally.
	query = metricWithRange.ReplaceAllStringFunc(query, func(match string) string {
		sub := metricWithRange.FindStringSubmatch(match)
		name, rng := sub[1], sub[2]

		additions := missingMatchers("", keys, labels)
		return fmt.Sprintf("%s{%s}%s", name, strings.Join(additions, ","), rng)
	})

	return query
}

// missingMatchers renders key="value" matchers for every label not already
// named in the existing selector content.
func missingMatchers(content string, keys []string, labels map[string]string) []string {
	var out []string
	for _, k := range keys {
		if content != "" && labelPresent(content, k) {
			continue
		}
		out = append(out, fmt.Sprintf("%s=%q", k, labels[k]))
	}
	return out
}

func labelPresent(content, label string) bool {
	idx := 0
	for {
		i := strings.Index(content[idx:], label)
		if i < 0 {
			return false
		}
		i += idx
		// Must be a whole label name followed by a matcher operator.
		if i > 0 && isLabelChar(content[i-1]) {
			idx = i + len(label)
			continue
		}
		rest := strings.TrimLeft(content[i+len(label):], " ")
		if strings.HasPrefix(rest, "=") || strings.HasPrefix(rest, "!=") ||
			strings.HasPrefix(rest, "=~") || strings.HasPrefix(rest, "!~") {
			return true
		}
		idx = i + len(label)
	}
}

func isLabelChar(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
