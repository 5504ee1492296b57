package version

import (
	"fmt"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfo(t *testing.T) {
	origVersion, origCommit, origBuild := Version, Commit, BuildTime
	t.Cleanup(func() {
		Version, Commit, BuildTime = origVersion, origCommit, origBuild
	})

	Version = "1.2.3"
	Commit = "0123456789abcdef"
	BuildTime = "2026-08-01T10:00:00Z"

	info := Info()
	assert.Contains(t, info, "charmbus 1.2.3")
	// Commits are shortened to eight characters.
	assert.Contains(t, info, "(01234567)")
	assert.NotContains(t, info, "0123456789abcdef")
	assert.Contains(t, info, "2026-08-01T10:00:00Z")
	assert.Contains(t, info, fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH))
}

func TestInfoShortCommit(t *testing.T) {
	origCommit := Commit
	t.Cleanup(func() { Commit = origCommit })

	// A commit shorter than eight characters is printed as-is.
	Commit = "abc"
	assert.Contains(t, Info(), "(abc)")
}

func TestMap(t *testing.T) {
	m := Map()

	assert.Equal(t, Version, m["version"])
	assert.Equal(t, Commit, m["commit"])
	assert.Equal(t, BuildTime, m["buildTime"])
	assert.Equal(t, runtime.Version(), m["goVersion"])
	assert.Equal(t, runtime.GOOS, m["os"])
	assert.Equal(t, runtime.GOARCH, m["arch"])
}

func TestDefaults(t *testing.T) {
	// Without ldflags the package reports a dev build.
	assert.Equal(t, "dev", Version)
	assert.Equal(t, "unknown", Commit)
	assert.Equal(t, "unknown", BuildTime)
}
