package types

import (
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"net"
	"sort"
	"strings"
	"time"
)

var _ Spec = (*CertificateRequestAttributes)(nil)

// CertificateRequestAttributes describes a certificate a requirer wants
// issued. The attribute set is the identity of the request: two requests
// with equal attributes are the same request.
type CertificateRequestAttributes struct {
	CommonName          string   `json:"common_name" yaml:"common_name"`
	SansDNS             []string `json:"sans_dns,omitempty" yaml:"sans_dns,omitempty"`
	SansIP              []string `json:"sans_ip,omitempty" yaml:"sans_ip,omitempty"`
	Organization        string   `json:"organization,omitempty" yaml:"organization,omitempty"`
	OrganizationalUnit  string   `json:"organizational_unit,omitempty" yaml:"organizational_unit,omitempty"`
	EmailAddress        string   `json:"email_address,omitempty" yaml:"email_address,omitempty"`
	CountryName         string   `json:"country_name,omitempty" yaml:"country_name,omitempty"`
	StateOrProvinceName string   `json:"state_or_province_name,omitempty" yaml:"state_or_province_name,omitempty"`
	LocalityName        string   `json:"locality_name,omitempty" yaml:"locality_name,omitempty"`
	IsCA                bool     `json:"is_ca,omitempty" yaml:"is_ca,omitempty"`
}

// GetName returns the common name of the request.
func (a *CertificateRequestAttributes) GetName() string {
	return a.CommonName
}

// Kind returns the spec kind.
func (a *CertificateRequestAttributes) Kind() string {
	return "CertificateRequest"
}

// Validate ensures the request attributes are usable for a CSR.
func (a *CertificateRequestAttributes) Validate() error {
	if a.CommonName == "" {
		return NewFieldValidationError("common_name", "common name is required")
	}
	if a.CountryName != "" && len(a.CountryName) != 2 {
		return NewFieldValidationError("country_name", "must be a two-letter code")
	}
	for _, ip := range a.SansIP {
		if net.ParseIP(ip) == nil {
			return NewFieldValidationError("sans_ip", fmt.Sprintf("invalid IP address %q", ip))
		}
	}
	return nil
}

// Fingerprint returns a stable identifier derived from the attribute set,
// used to match issued certificates back to their request.
func (a *CertificateRequestAttributes) Fingerprint() string {
	sans := append([]string(nil), a.SansDNS...)
	sort.Strings(sans)
	ips := append([]string(nil), a.SansIP...)
	sort.Strings(ips)

	canonical := strings.Join([]string{
		a.CommonName,
		strings.Join(sans, ","),
		strings.Join(ips, ","),
		a.Organization,
		a.OrganizationalUnit,
		a.EmailAddress,
		a.CountryName,
		a.StateOrProvinceName,
		a.LocalityName,
		fmt.Sprintf("%t", a.IsCA),
	}, "|")

	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:8])
}

// Equal reports whether two attribute sets describe the same request.
func (a *CertificateRequestAttributes) Equal(other CertificateRequestAttributes) bool {
	return a.Fingerprint() == other.Fingerprint()
}

// CertificateSigningRequest is the requirer-side databag entry: a CSR PEM
// together with the attributes it was generated from.
type CertificateSigningRequest struct {
	CSR        string                       `json:"certificate_signing_request"`
	Attributes CertificateRequestAttributes `json:"attributes"`
}

// ProviderCertificate is a certificate issued by a provider in answer to a
// signing request.
type ProviderCertificate struct {
	// CSR PEM this certificate answers
	CSR string `json:"certificate_signing_request"`

	// Issued certificate PEM
	Certificate string `json:"certificate"`

	// Issuing CA certificate PEM
	CA string `json:"ca"`

	// Full chain, leaf first
	Chain []string `json:"chain,omitempty"`
}

// ExpiryTime parses the certificate and returns its NotAfter timestamp.
func (c *ProviderCertificate) ExpiryTime() (time.Time, error) {
	cert, err := parseCertificatePEM(c.Certificate)
	if err != nil {
		return time.Time{}, err
	}
	return cert.NotAfter, nil
}

// ExpiresWithin reports whether the certificate expires within d from now.
func (c *ProviderCertificate) ExpiresWithin(d time.Duration) (bool, error) {
	expiry, err := c.ExpiryTime()
	if err != nil {
		return false, err
	}
	return time.Now().Add(d).After(expiry), nil
}

func parseCertificatePEM(certPEM string) (*x509.Certificate, error) {
	block, _ := pem.Decode([]byte(certPEM))
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, fmt.Errorf("no certificate PEM block found")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}
	return cert, nil
}
