package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"time"
)

// CertificateAuthority issues certificates in answer to signing requests.
// The self-signed implementation here backs the certificates provider in
// tests and local harnesses; production providers front a real CA.
type CertificateAuthority struct {
	cert *x509.Certificate
	key  *rsa.PrivateKey

	certPEM string
}

// CAOptions configures a generated certificate authority.
type CAOptions struct {
	// CommonName of the CA certificate
	CommonName string

	// Validity of the CA certificate (default 10 years)
	Validity time.Duration
}

// NewSelfSignedCA generates a certificate authority with a fresh key.
func NewSelfSignedCA(opts CAOptions) (*CertificateAuthority, error) {
	if opts.CommonName == "" {
		opts.CommonName = "charmbus-ca"
	}
	if opts.Validity == 0 {
		opts.Validity = 10 * 365 * 24 * time.Hour
	}

	key, err := rsa.GenerateKey(rand.Reader, defaultKeyBits)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CA key: %w", err)
	}

	serial, err := randomSerial()
	if err != nil {
		return nil, err
	}
	template := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: opts.CommonName},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(opts.Validity),
		IsCA:                  true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return nil, fmt.Errorf("failed to create CA certificate: %w", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("failed to parse CA certificate: %w", err)
	}

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	return &CertificateAuthority{cert: cert, key: key, certPEM: string(certPEM)}, nil
}

// CertificatePEM returns the CA certificate PEM.
func (ca *CertificateAuthority) CertificatePEM() string {
	return ca.certPEM
}

// SignCSR issues a certificate for the PEM-encoded signing request, valid
// for the given duration. A request carrying a CA BasicConstraints
// extension is issued as an intermediate CA certificate.
func (ca *CertificateAuthority) SignCSR(csrPEM string, validity time.Duration) (string, error) {
	csr, err := ParseCSR(csrPEM)
	if err != nil {
		return "", err
	}
	if validity <= 0 {
		validity = 365 * 24 * time.Hour
	}

	serial, err := randomSerial()
	if err != nil {
		return "", err
	}
	template := &x509.Certificate{
		SerialNumber:   serial,
		Subject:        csr.Subject,
		DNSNames:       csr.DNSNames,
		IPAddresses:    csr.IPAddresses,
		EmailAddresses: csr.EmailAddresses,
		NotBefore:      time.Now().Add(-time.Hour),
		NotAfter:       time.Now().Add(validity),
		KeyUsage:       x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:    []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
	}
	if csrRequestsCA(csr) {
		template.IsCA = true
		template.BasicConstraintsValid = true
		template.KeyUsage |= x509.KeyUsageCertSign | x509.KeyUsageCRLSign
	}

	der, err := x509.CreateCertificate(rand.Reader, template, ca.cert, csr.PublicKey, ca.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign CSR: %w", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})), nil
}

func randomSerial() (*big.Int, error) {
	limit := new(big.Int).Lsh(big.NewInt(1), 128)
	serial, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to generate serial number: %w", err)
	}
	return serial, nil
}
