package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCertificateRequestAttributesValidate(t *testing.T) {
	t.Parallel()

	attrs := CertificateRequestAttributes{CommonName: "example.com"}
	require.NoError(t, attrs.Validate())

	attrs = CertificateRequestAttributes{}
	require.Error(t, attrs.Validate())

	attrs = CertificateRequestAttributes{CommonName: "example.com", CountryName: "USA"}
	require.Error(t, attrs.Validate())

	attrs = CertificateRequestAttributes{CommonName: "example.com", SansIP: []string{"not-an-ip"}}
	require.Error(t, attrs.Validate())
}

func TestFingerprintStable(t *testing.T) {
	t.Parallel()

	a := CertificateRequestAttributes{
		CommonName: "example.com",
		SansDNS:    []string{"a.example.com", "b.example.com"},
	}
	// SAN ordering must not change the identity of the request.
	b := CertificateRequestAttributes{
		CommonName: "example.com",
		SansDNS:    []string{"b.example.com", "a.example.com"},
	}
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.True(t, a.Equal(b))

	c := CertificateRequestAttributes{CommonName: "other.example.com"}
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
	assert.False(t, a.Equal(c))
}

func TestProviderCertificateExpiryRejectsGarbage(t *testing.T) {
	t.Parallel()

	cert := ProviderCertificate{Certificate: "not a pem"}
	_, err := cert.ExpiryTime()
	require.Error(t, err)
}
