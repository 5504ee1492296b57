package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSLOSpec() SLOSpec {
	return SLOSpec{
		Version: "prometheus/v1",
		Service: "checkout",
		Labels:  map[string]string{"team": "payments"},
		SLOs: []SLODefinition{
			{
				Name:      "requests-availability",
				Objective: 99.9,
				SLI: SLI{Events: SLIEvents{
					ErrorQuery: `sum(rate(http_requests_total{status=~"5.."}[5m]))`,
					TotalQuery: `sum(rate(http_requests_total[5m]))`,
				}},
			},
		},
	}
}

func TestSLOSpecValidate(t *testing.T) {
	t.Parallel()

	spec := validSLOSpec()
	require.NoError(t, spec.Validate())
}

func TestSLOSpecValidateRejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*SLOSpec)
	}{
		{"missing version", func(s *SLOSpec) { s.Version = "" }},
		{"version without slash", func(s *SLOSpec) { s.Version = "v1" }},
		{"missing service", func(s *SLOSpec) { s.Service = "" }},
		{"no slos", func(s *SLOSpec) { s.SLOs = nil }},
		{"missing slo name", func(s *SLOSpec) { s.SLOs[0].Name = "" }},
		{"objective zero", func(s *SLOSpec) { s.SLOs[0].Objective = 0 }},
		{"objective above 100", func(s *SLOSpec) { s.SLOs[0].Objective = 101 }},
		{"missing error query", func(s *SLOSpec) { s.SLOs[0].SLI.Events.ErrorQuery = "" }},
		{"missing total query", func(s *SLOSpec) { s.SLOs[0].SLI.Events.TotalQuery = "" }},
		{"duplicate slo names", func(s *SLOSpec) { s.SLOs = append(s.SLOs, s.SLOs[0]) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := validSLOSpec()
			tt.mutate(&spec)
			err := spec.Validate()
			require.Error(t, err)
			assert.True(t, IsValidationError(err), "expected a ValidationError, got %T", err)
		})
	}
}

func TestDecodeSLODocuments(t *testing.T) {
	t.Parallel()

	raw := `version: prometheus/v1
service: foo
slos:
  - name: avail
    objective: 99.9
    sli:
      events:
        error_query: sum(rate(errs[5m]))
        total_query: sum(rate(total[5m]))
---
version: prometheus/v1
service: bar
slos:
  - name: latency
    objective: 99
    sli:
      events:
        error_query: sum(rate(slow[5m]))
        total_query: sum(rate(all[5m]))
---
`
	specs, err := DecodeSLODocuments(raw)
	require.NoError(t, err)
	require.Len(t, specs, 2)
	assert.Equal(t, "foo", specs[0].Service)
	assert.Equal(t, "bar", specs[1].Service)
	assert.Equal(t, 99.9, specs[0].SLOs[0].Objective)
}

func TestDecodeSLODocumentsParseError(t *testing.T) {
	t.Parallel()

	_, err := DecodeSLODocuments("service: [unterminated")
	require.Error(t, err)
}
