package crypto

import (
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/pem"
	"fmt"
	"net"

	"github.com/charmbus/charmbus/pkg/types"
)

// oidBasicConstraints is the X.509 BasicConstraints extension identifier.
var oidBasicConstraints = asn1.ObjectIdentifier{2, 5, 29, 19}

// basicConstraints mirrors the DER structure of the BasicConstraints
// extension value (RFC 5280, 4.2.1.9).
type basicConstraints struct {
	IsCA       bool `asn1:"optional"`
	MaxPathLen int  `asn1:"optional,default:-1"`
}

// CreateCSR builds a PEM-encoded certificate signing request from the
// given attributes, signed with the PEM-encoded private key.
func CreateCSR(attrs types.CertificateRequestAttributes, keyPEM string) (string, error) {
	if err := attrs.Validate(); err != nil {
		return "", err
	}
	key, err := ParsePrivateKey(keyPEM)
	if err != nil {
		return "", err
	}

	subject := pkix.Name{CommonName: attrs.CommonName}
	if attrs.Organization != "" {
		subject.Organization = []string{attrs.Organization}
	}
	if attrs.OrganizationalUnit != "" {
		subject.OrganizationalUnit = []string{attrs.OrganizationalUnit}
	}
	if attrs.CountryName != "" {
		subject.Country = []string{attrs.CountryName}
	}
	if attrs.StateOrProvinceName != "" {
		subject.Province = []string{attrs.StateOrProvinceName}
	}
	if attrs.LocalityName != "" {
		subject.Locality = []string{attrs.LocalityName}
	}

	template := x509.CertificateRequest{
		Subject:  subject,
		DNSNames: attrs.SansDNS,
	}
	if attrs.EmailAddress != "" {
		template.EmailAddresses = []string{attrs.EmailAddress}
	}
	for _, ip := range attrs.SansIP {
		template.IPAddresses = append(template.IPAddresses, net.ParseIP(ip))
	}
	if attrs.IsCA {
		val, err := asn1.Marshal(basicConstraints{IsCA: true, MaxPathLen: -1})
		if err != nil {
			return "", fmt.Errorf("failed to encode basic constraints: %w", err)
		}
		template.ExtraExtensions = append(template.ExtraExtensions, pkix.Extension{
			Id:       oidBasicConstraints,
			Critical: true,
			Value:    val,
		})
	}

	der, err := x509.CreateCertificateRequest(rand.Reader, &template, key)
	if err != nil {
		return "", fmt.Errorf("failed to create CSR: %w", err)
	}
	block := &pem.Block{Type: "CERTIFICATE REQUEST", Bytes: der}
	return string(pem.EncodeToMemory(block)), nil
}

// ParseCSR decodes and checks a PEM-encoded certificate signing request.
func ParseCSR(csrPEM string) (*x509.CertificateRequest, error) {
	block, _ := pem.Decode([]byte(csrPEM))
	if block == nil || block.Type != "CERTIFICATE REQUEST" {
		return nil, fmt.Errorf("no certificate request PEM block found")
	}
	csr, err := x509.ParseCertificateRequest(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSR: %w", err)
	}
	if err := csr.CheckSignature(); err != nil {
		return nil, fmt.Errorf("CSR signature check failed: %w", err)
	}
	return csr, nil
}

// csrRequestsCA reports whether the signing request carries a
// BasicConstraints extension asking for a CA certificate.
func csrRequestsCA(csr *x509.CertificateRequest) bool {
	for _, ext := range csr.Extensions {
		if !ext.Id.Equal(oidBasicConstraints) {
			continue
		}
		var bc basicConstraints
		if _, err := asn1.Unmarshal(ext.Value, &bc); err != nil {
			return false
		}
		return bc.IsCA
	}
	return false
}
