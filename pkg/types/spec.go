// Package types defines the payload types exchanged over charm relations.
package types

// Spec is a common interface implemented by all relation payload specs
// that can be validated and identify themselves by name and kind.
type Spec interface {
	// Validate ensures the spec is structurally and semantically valid.
	Validate() error
	// GetName returns the name the spec declares for itself.
	GetName() string
	// Kind returns the logical spec kind (e.g., "SLO", "CertificateRequest").
	Kind() string
}
