package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSpec(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLintValidSLOSpec(t *testing.T) {
	path := writeSpec(t, "slos.yaml", `version: prometheus/v1
service: foo
slos:
  - name: avail
    objective: 99.9
    sli:
      events:
        error_query: sum(rate(errors_total[5m]))
        total_query: sum(rate(requests_total[5m]))
`)
	assert.Empty(t, lintFile(path))
}

func TestLintInvalidSLOSpec(t *testing.T) {
	path := writeSpec(t, "slos.yaml", `version: nope
service: foo
slos: []
`)
	errs := lintFile(path)
	require.NotEmpty(t, errs)
}

func TestLintReportsPerDocumentErrors(t *testing.T) {
	path := writeSpec(t, "slos.yaml", `version: prometheus/v1
service: foo
slos:
  - name: avail
    objective: 99.9
    sli:
      events:
        error_query: a
        total_query: b
---
version: prometheus/v1
service: bar
slos:
  - name: bad
    objective: 150
    sli:
      events:
        error_query: a
        total_query: b
`)
	errs := lintFile(path)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "document 2")
}

func TestLintPackageSpec(t *testing.T) {
	path := writeSpec(t, "packages.yaml", `packages:
  - name: jq
`)
	assert.Empty(t, lintFile(path))

	bad := writeSpec(t, "packages.yaml", `packages:
  - version: "1.0"
`)
	assert.NotEmpty(t, lintFile(bad))
}

func TestLintAuthSpecJSON(t *testing.T) {
	good := writeSpec(t, "auth.json",
		`{"name": "agent", "backend_address": "10.0.0.7", "backend_port": 9000}`)
	assert.Empty(t, lintFile(good))

	bad := writeSpec(t, "auth.json",
		`{"name": "agent", "backend_address": "10.0.0.7", "backend_port": 70000}`)
	assert.NotEmpty(t, lintFile(bad))
}

func TestLintUnparseableYAML(t *testing.T) {
	path := writeSpec(t, "broken.yaml", "slos: [unterminated")
	assert.NotEmpty(t, lintFile(path))
}

func TestLintStrictRejectsUnrecognized(t *testing.T) {
	path := writeSpec(t, "other.yaml", "something: else\n")
	assert.Empty(t, lintFile(path))

	strict = true
	defer func() { strict = false }()
	assert.NotEmpty(t, lintFile(path))
}

func TestGatherSpecFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("x: 1\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("nope"), 0o644))
	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "c.yml"), []byte("x: 1\n"), 0o644))

	files, err := gatherSpecFiles([]string{dir})
	require.NoError(t, err)
	assert.Len(t, files, 1)

	recursive = true
	defer func() { recursive = false }()
	files, err = gatherSpecFiles([]string{dir})
	require.NoError(t, err)
	assert.Len(t, files, 2)
}
