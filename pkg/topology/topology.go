// Package topology identifies where a charm runs and rewrites monitoring
// queries so that metric sources can be told apart on a shared backend.
package topology

// Topology captures the identity of a deployed charm unit.
type Topology struct {
	// Model name the application is deployed in
	Model string `json:"model" yaml:"model"`

	// Model UUID
	ModelUUID string `json:"model_uuid" yaml:"model_uuid"`

	// Application name
	Application string `json:"application" yaml:"application"`

	// Unit name, e.g. "foo/0"
	Unit string `json:"unit,omitempty" yaml:"unit,omitempty"`
}

// LabelMatchers returns the topology as Prometheus label matchers. Empty
// values are omitted so a partial topology still produces usable matchers.
func (t Topology) LabelMatchers() map[string]string {
	labels := make(map[string]string, 4)
	if t.Model != "" {
		labels["juju_model"] = t.Model
	}
	if t.ModelUUID != "" {
		labels["juju_model_uuid"] = t.ModelUUID
	}
	if t.Application != "" {
		labels["juju_application"] = t.Application
	}
	if t.Unit != "" {
		labels["juju_unit"] = t.Unit
	}
	return labels
}

// IsEmpty reports whether the topology carries no identity at all.
func (t Topology) IsEmpty() bool {
	return len(t.LabelMatchers()) == 0
}
