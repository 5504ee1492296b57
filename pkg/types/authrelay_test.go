package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAuthServiceSpec(t *testing.T) {
	t.Parallel()

	raw := `{"name": "auth-agent", "backend_address": "10.0.0.4", "backend_port": 12345, "use_tls": true}`
	spec, err := ParseAuthServiceSpec(raw)
	require.NoError(t, err)
	assert.Equal(t, "auth-agent", spec.Name)
	assert.Equal(t, "10.0.0.4", spec.BackendAddress)
	assert.Equal(t, 12345, spec.BackendPort)
	assert.True(t, spec.UseTLS)
}

func TestParseAuthServiceSpecRejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
	}{
		{"not json", "not json at all"},
		{"missing name", `{"backend_address": "10.0.0.4", "backend_port": 1}`},
		{"missing address", `{"name": "a", "backend_port": 1}`},
		{"port out of range", `{"name": "a", "backend_address": "b", "backend_port": 70000}`},
		{"unknown field", `{"name": "a", "backend_address": "b", "backend_port": 1, "extra": true}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAuthServiceSpec(tt.raw)
			require.Error(t, err)
		})
	}
}

func TestPackageSpecRoundTrip(t *testing.T) {
	t.Parallel()

	spec := PackageSpec{
		Packages: []PackageRequirement{
			{Name: "haproxy", Version: "2.8.5-1ubuntu3"},
			{Name: "ca-certificates"},
		},
		Repositories: []Repository{
			{URI: "https://ppa.launchpadcontent.net/vbernat/haproxy-2.8/ubuntu", Suite: "noble", Components: []string{"main"}},
		},
	}
	require.NoError(t, spec.Validate())

	encoded, err := spec.Encode()
	require.NoError(t, err)

	decoded, err := ParsePackageSpec(encoded)
	require.NoError(t, err)
	assert.Equal(t, spec, *decoded)
}

func TestPackageSpecValidateRejects(t *testing.T) {
	t.Parallel()

	spec := PackageSpec{}
	require.Error(t, spec.Validate())

	spec = PackageSpec{Packages: []PackageRequirement{{Name: ""}}}
	require.Error(t, spec.Validate())

	spec = PackageSpec{
		Packages:     []PackageRequirement{{Name: "curl"}},
		Repositories: []Repository{{URI: ""}},
	}
	require.Error(t, spec.Validate())
}
