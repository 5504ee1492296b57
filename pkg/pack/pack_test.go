package pack

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charmbus/charmbus/pkg/log"
)

// fakeRunner records invocations and drops a charm archive into the build
// directory, standing in for the real build tool.
type fakeRunner struct {
	calls    []string
	produce  []string
	failOn   string
	failWith error
}

func (r *fakeRunner) Run(ctx context.Context, dir, name string, args ...string) error {
	r.calls = append(r.calls, dir)
	if r.failOn != "" && filepath.Base(dir) == r.failOn {
		return r.failWith
	}
	names := r.produce
	if len(names) == 0 {
		names = []string{"built_amd64.charm"}
	}
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("charm"), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func variantDirs(t *testing.T, names ...string) []Variant {
	t.Helper()
	root := t.TempDir()
	variants := make([]Variant, 0, len(names))
	for _, name := range names {
		dir := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(dir, 0o755))
		variants = append(variants, Variant{Name: name, Substrate: "k8s", Path: dir})
	}
	return variants
}

func TestSelectBySubstrate(t *testing.T) {
	t.Parallel()

	variants := []Variant{
		{Name: "web-k8s", Substrate: "k8s"},
		{Name: "web-vm", Substrate: "vm"},
	}

	p := New(WithSubstrate("vm"), WithLogger(log.NewTestLogger()))
	selected := p.Select(variants)
	require.Len(t, selected, 1)
	assert.Equal(t, "web-vm", selected[0].Name)
}

func TestSelectByTags(t *testing.T) {
	t.Parallel()

	variants := []Variant{
		{Name: "stable", Substrate: "k8s", Tags: []string{"stable"}},
		{Name: "edge", Substrate: "k8s", Tags: []string{"edge", "experimental"}},
	}

	p := New(WithTags("edge"), WithLogger(log.NewTestLogger()))
	selected := p.Select(variants)
	require.Len(t, selected, 1)
	assert.Equal(t, "edge", selected[0].Name)

	// All requested tags must be present.
	p = New(WithTags("edge", "stable"), WithLogger(log.NewTestLogger()))
	assert.Empty(t, p.Select(variants))
}

func TestSelectEmptyFiltersKeepAll(t *testing.T) {
	t.Parallel()

	variants := []Variant{
		{Name: "a", Substrate: "k8s"},
		{Name: "b", Substrate: "vm"},
	}
	p := New(WithLogger(log.NewTestLogger()))
	assert.Len(t, p.Select(variants), 2)
}

func TestPackRenamesArtifacts(t *testing.T) {
	t.Parallel()

	variants := variantDirs(t, "web", "worker")
	outputDir := t.TempDir()
	runner := &fakeRunner{}

	p := New(WithRunner(runner), WithOutputDir(outputDir), WithLogger(log.NewTestLogger()))
	artifacts, err := p.Pack(context.Background(), variants)
	require.NoError(t, err)
	require.Len(t, artifacts, 2)

	assert.Equal(t, "web", artifacts[0].Variant)
	assert.Equal(t, filepath.Join(outputDir, "web.charm"), artifacts[0].Path)
	assert.FileExists(t, artifacts[0].Path)
	assert.FileExists(t, filepath.Join(outputDir, "worker.charm"))

	// The source archives were moved, not copied.
	leftovers, err := filepath.Glob(filepath.Join(variants[0].Path, "*.charm"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestPackFailsFast(t *testing.T) {
	t.Parallel()

	variants := variantDirs(t, "first", "broken", "never-built")
	buildErr := errors.New("build exploded")
	runner := &fakeRunner{failOn: "broken", failWith: buildErr}

	p := New(WithRunner(runner), WithOutputDir(t.TempDir()), WithLogger(log.NewTestLogger()))
	artifacts, err := p.Pack(context.Background(), variants)
	require.Error(t, err)
	assert.ErrorIs(t, err, buildErr)

	// First variant built; the one after the failure was never attempted.
	assert.Len(t, artifacts, 1)
	assert.Len(t, runner.calls, 2)
}

func TestPackRejectsAmbiguousOutput(t *testing.T) {
	t.Parallel()

	variants := variantDirs(t, "web")
	runner := &fakeRunner{produce: []string{"a.charm", "b.charm"}}

	p := New(WithRunner(runner), WithOutputDir(t.TempDir()), WithLogger(log.NewTestLogger()))
	_, err := p.Pack(context.Background(), variants)
	require.Error(t, err)
}

func TestPackNoSelectionIsNoop(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}
	p := New(WithRunner(runner), WithSubstrate("vm"), WithLogger(log.NewTestLogger()))
	artifacts, err := p.Pack(context.Background(), []Variant{{Name: "web", Substrate: "k8s"}})
	require.NoError(t, err)
	assert.Empty(t, artifacts)
	assert.Empty(t, runner.calls)
}
