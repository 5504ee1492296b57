package crypto

import (
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charmbus/charmbus/pkg/types"
)

func TestGenerateAndParsePrivateKey(t *testing.T) {
	t.Parallel()

	keyPEM, err := GeneratePrivateKey()
	require.NoError(t, err)
	assert.Contains(t, keyPEM, "RSA PRIVATE KEY")

	key, err := ParsePrivateKey(keyPEM)
	require.NoError(t, err)
	require.NoError(t, key.Validate())

	_, err = ParsePrivateKey("not a key")
	require.Error(t, err)
}

func TestCreateAndParseCSR(t *testing.T) {
	t.Parallel()

	keyPEM, err := GeneratePrivateKey()
	require.NoError(t, err)

	attrs := types.CertificateRequestAttributes{
		CommonName:   "app.example.com",
		SansDNS:      []string{"app.example.com", "app.internal"},
		SansIP:       []string{"10.0.0.4"},
		Organization: "Example Org",
		CountryName:  "GB",
	}
	csrPEM, err := CreateCSR(attrs, keyPEM)
	require.NoError(t, err)

	csr, err := ParseCSR(csrPEM)
	require.NoError(t, err)
	assert.Equal(t, "app.example.com", csr.Subject.CommonName)
	assert.ElementsMatch(t, []string{"app.example.com", "app.internal"}, csr.DNSNames)
	require.Len(t, csr.IPAddresses, 1)
	assert.Equal(t, "10.0.0.4", csr.IPAddresses[0].String())
}

func TestCreateCSRRejectsInvalidAttributes(t *testing.T) {
	t.Parallel()

	keyPEM, err := GeneratePrivateKey()
	require.NoError(t, err)

	_, err = CreateCSR(types.CertificateRequestAttributes{}, keyPEM)
	require.Error(t, err)
	assert.True(t, types.IsValidationError(err))
}

func TestSelfSignedCASignsCSR(t *testing.T) {
	t.Parallel()

	ca, err := NewSelfSignedCA(CAOptions{CommonName: "test-ca"})
	require.NoError(t, err)
	assert.Contains(t, ca.CertificatePEM(), "CERTIFICATE")

	keyPEM, err := GeneratePrivateKey()
	require.NoError(t, err)
	csrPEM, err := CreateCSR(types.CertificateRequestAttributes{CommonName: "unit.example.com"}, keyPEM)
	require.NoError(t, err)

	certPEM, err := ca.SignCSR(csrPEM, 24*time.Hour)
	require.NoError(t, err)

	issued := types.ProviderCertificate{Certificate: certPEM, CA: ca.CertificatePEM()}
	expiry, err := issued.ExpiryTime()
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), expiry, time.Minute)

	soon, err := issued.ExpiresWithin(48 * time.Hour)
	require.NoError(t, err)
	assert.True(t, soon)

	soon, err = issued.ExpiresWithin(time.Hour)
	require.NoError(t, err)
	assert.False(t, soon)
}

func parseCertPEM(t *testing.T, certPEM string) *x509.Certificate {
	t.Helper()
	block, _ := pem.Decode([]byte(certPEM))
	require.NotNil(t, block)
	cert, err := x509.ParseCertificate(block.Bytes)
	require.NoError(t, err)
	return cert
}

func TestCARequestIssuesIntermediate(t *testing.T) {
	t.Parallel()

	ca, err := NewSelfSignedCA(CAOptions{CommonName: "root-ca"})
	require.NoError(t, err)
	keyPEM, err := GeneratePrivateKey()
	require.NoError(t, err)

	csrPEM, err := CreateCSR(types.CertificateRequestAttributes{
		CommonName: "intermediate.example.com",
		IsCA:       true,
	}, keyPEM)
	require.NoError(t, err)

	csr, err := ParseCSR(csrPEM)
	require.NoError(t, err)
	assert.True(t, csrRequestsCA(csr))

	certPEM, err := ca.SignCSR(csrPEM, 24*time.Hour)
	require.NoError(t, err)
	cert := parseCertPEM(t, certPEM)
	assert.True(t, cert.IsCA)
	assert.True(t, cert.BasicConstraintsValid)
	assert.NotZero(t, cert.KeyUsage&x509.KeyUsageCertSign)

	// A plain request stays a leaf certificate.
	leafCSR, err := CreateCSR(types.CertificateRequestAttributes{CommonName: "leaf.example.com"}, keyPEM)
	require.NoError(t, err)
	leafPEM, err := ca.SignCSR(leafCSR, 24*time.Hour)
	require.NoError(t, err)
	leaf := parseCertPEM(t, leafPEM)
	assert.False(t, leaf.IsCA)
	assert.Zero(t, leaf.KeyUsage&x509.KeyUsageCertSign)
}

func TestSignCSRRejectsGarbage(t *testing.T) {
	t.Parallel()

	ca, err := NewSelfSignedCA(CAOptions{})
	require.NoError(t, err)

	_, err = ca.SignCSR("garbage", time.Hour)
	require.Error(t, err)
}
