package types

import (
	"fmt"
	"strings"
)

var _ Spec = (*SLOSpec)(nil)

// SLOSpec is a service level objective specification in the Sloth format.
// One spec describes the SLOs for a single service; a provider may ship
// several specs as a multi-document YAML payload.
type SLOSpec struct {
	// Spec format version, e.g. "prometheus/v1"
	Version string `json:"version" yaml:"version"`

	// Service the SLOs apply to
	Service string `json:"service" yaml:"service"`

	// Labels attached to all generated recording and alerting rules
	Labels map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`

	// SLO definitions, at least one
	SLOs []SLODefinition `json:"slos" yaml:"slos"`
}

// SLODefinition is a single objective within an SLOSpec.
type SLODefinition struct {
	// Name of the objective, unique within the spec
	Name string `json:"name" yaml:"name"`

	// Free-form description
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Target objective as a percentage in (0, 100]
	Objective float64 `json:"objective" yaml:"objective"`

	// Service level indicator queries
	SLI SLI `json:"sli" yaml:"sli"`

	// Alerting configuration, passed through untouched
	Alerting map[string]interface{} `json:"alerting,omitempty" yaml:"alerting,omitempty"`
}

// SLI holds the indicator queries for an objective.
type SLI struct {
	Events SLIEvents `json:"events" yaml:"events"`
}

// SLIEvents holds the error/total event queries of an events-based SLI.
type SLIEvents struct {
	// PromQL expression counting bad events
	ErrorQuery string `json:"error_query" yaml:"error_query"`

	// PromQL expression counting all events
	TotalQuery string `json:"total_query" yaml:"total_query"`
}

// GetName returns the service name the spec declares.
func (s *SLOSpec) GetName() string {
	return s.Service
}

// Kind returns the spec kind.
func (s *SLOSpec) Kind() string {
	return "SLO"
}

// Validate ensures the spec is structurally and semantically valid.
func (s *SLOSpec) Validate() error {
	if s.Version == "" || !strings.Contains(s.Version, "/") {
		return NewFieldValidationError("version", "must be in format 'prometheus/v1'")
	}
	if s.Service == "" {
		return NewFieldValidationError("service", "service name is required")
	}
	if len(s.SLOs) == 0 {
		return NewFieldValidationError("slos", "at least one SLO must be defined")
	}
	seen := make(map[string]bool, len(s.SLOs))
	for i, slo := range s.SLOs {
		if err := slo.Validate(); err != nil {
			return WrapValidationError(err, "slos[%d]", i)
		}
		if seen[slo.Name] {
			return NewFieldValidationError("slos", fmt.Sprintf("duplicate SLO name %q", slo.Name))
		}
		seen[slo.Name] = true
	}
	return nil
}

// Validate checks a single SLO definition.
func (d *SLODefinition) Validate() error {
	if d.Name == "" {
		return NewFieldValidationError("name", "SLO name is required")
	}
	if d.Objective <= 0 || d.Objective > 100 {
		return NewFieldValidationError("objective",
			fmt.Sprintf("objective must be in (0, 100], got %v", d.Objective))
	}
	if d.SLI.Events.ErrorQuery == "" {
		return NewFieldValidationError("sli.events.error_query", "error query is required")
	}
	if d.SLI.Events.TotalQuery == "" {
		return NewFieldValidationError("sli.events.total_query", "total query is required")
	}
	return nil
}
