// Package crypto provides the certificate plumbing behind the TLS
// certificates interface: key generation, signing requests, and a
// self-signed CA able to answer them.
package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
)

const defaultKeyBits = 2048

// GeneratePrivateKey creates a new RSA private key and returns it PEM
// encoded.
func GeneratePrivateKey() (string, error) {
	key, err := rsa.GenerateKey(rand.Reader, defaultKeyBits)
	if err != nil {
		return "", fmt.Errorf("failed to generate private key: %w", err)
	}
	block := &pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	}
	return string(pem.EncodeToMemory(block)), nil
}

// ParsePrivateKey decodes a PEM-encoded RSA private key.
func ParsePrivateKey(keyPEM string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(keyPEM))
	if block == nil {
		return nil, fmt.Errorf("no PEM block found in private key")
	}
	switch block.Type {
	case "RSA PRIVATE KEY":
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
		return key, nil
	case "PRIVATE KEY":
		parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
		key, ok := parsed.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("unsupported private key type %T", parsed)
		}
		return key, nil
	default:
		return nil, fmt.Errorf("unexpected PEM block type %q", block.Type)
	}
}
