package types

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

var _ Spec = (*AuthServiceSpec)(nil)

// authServiceSchema is the wire contract for the SPOE auth relay payload.
// Providers are not expected to validate against it; requirers are.
const authServiceSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["name", "backend_address", "backend_port"],
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "backend_address": {"type": "string", "minLength": 1},
    "backend_port": {"type": "integer", "minimum": 1, "maximum": 65535},
    "protocol_version": {"type": "string"},
    "use_tls": {"type": "boolean"},
    "timeout_ms": {"type": "integer", "minimum": 0}
  },
  "additionalProperties": false
}`

// AuthServiceSpec describes an SPOE authentication backend a provider
// exposes over the auth relay interface. JSON encoded on the wire.
type AuthServiceSpec struct {
	// Agent name the proxy should address messages to
	Name string `json:"name"`

	// Address of the SPOA backend
	BackendAddress string `json:"backend_address"`

	// Port of the SPOA backend
	BackendPort int `json:"backend_port"`

	// SPOP protocol version, e.g. "2.0"
	ProtocolVersion string `json:"protocol_version,omitempty"`

	// Whether the proxy should connect over TLS
	UseTLS bool `json:"use_tls,omitempty"`

	// Processing timeout in milliseconds
	TimeoutMS int `json:"timeout_ms,omitempty"`
}

// GetName returns the agent name.
func (s *AuthServiceSpec) GetName() string {
	return s.Name
}

// Kind returns the spec kind.
func (s *AuthServiceSpec) Kind() string {
	return "AuthService"
}

// Validate checks the typed invariants of the spec.
func (s *AuthServiceSpec) Validate() error {
	if s.Name == "" {
		return NewFieldValidationError("name", "agent name is required")
	}
	if s.BackendAddress == "" {
		return NewFieldValidationError("backend_address", "backend address is required")
	}
	if s.BackendPort < 1 || s.BackendPort > 65535 {
		return NewFieldValidationError("backend_port",
			fmt.Sprintf("port must be in [1, 65535], got %d", s.BackendPort))
	}
	return nil
}

// ParseAuthServiceSpec decodes and schema-checks a raw JSON payload.
func ParseAuthServiceSpec(raw string) (*AuthServiceSpec, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(authServiceSchema),
		gojsonschema.NewStringLoader(raw),
	)
	if err != nil {
		return nil, WrapValidationError(err, "invalid auth service payload")
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return nil, NewValidationError("auth service payload failed schema: " + strings.Join(msgs, "; "))
	}

	var spec AuthServiceSpec
	if err := json.Unmarshal([]byte(raw), &spec); err != nil {
		return nil, WrapValidationError(err, "failed to decode auth service payload")
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}
