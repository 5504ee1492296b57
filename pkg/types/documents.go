package types

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	yaml "gopkg.in/yaml.v3"
)

// DecodeDocuments parses a multi-document YAML payload into one generic map
// per non-empty document. A syntax error anywhere fails the whole payload,
// matching the all-or-nothing parse step of the requirer pipeline.
func DecodeDocuments(raw string) ([]map[string]interface{}, error) {
	dec := yaml.NewDecoder(strings.NewReader(raw))
	var docs []map[string]interface{}
	for {
		var doc map[string]interface{}
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse YAML document: %w", err)
		}
		if len(doc) == 0 {
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// EncodeDocuments serializes generic documents back into a single
// multi-document YAML payload separated by document markers.
func EncodeDocuments(docs []map[string]interface{}) (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	for _, doc := range docs {
		if err := enc.Encode(doc); err != nil {
			return "", fmt.Errorf("failed to encode YAML document: %w", err)
		}
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// DecodeSLODocuments parses a multi-document YAML payload into SLO specs.
// Parse errors fail the payload as a whole; validation is left to callers
// so they can apply per-document isolation.
func DecodeSLODocuments(raw string) ([]SLOSpec, error) {
	dec := yaml.NewDecoder(strings.NewReader(raw))
	var specs []SLOSpec
	for {
		var spec SLOSpec
		err := dec.Decode(&spec)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse SLO document: %w", err)
		}
		if spec.Version == "" && spec.Service == "" && len(spec.SLOs) == 0 {
			// Empty document, e.g. a trailing separator.
			continue
		}
		specs = append(specs, spec)
	}
	return specs, nil
}
