// Package slo implements the SLO specification exchange interface: charms
// provide Sloth-format SLO specs over a relation, and the monitoring charm
// on the other side collects and validates them.
package slo

import (
	"context"
	"fmt"

	"github.com/charmbus/charmbus/pkg/log"
	"github.com/charmbus/charmbus/pkg/relation"
	"github.com/charmbus/charmbus/pkg/topology"
	"github.com/charmbus/charmbus/pkg/types"
)

// DefaultRelationName is the conventional name of the SLO relation.
const DefaultRelationName = "slos"

// specKey is the application databag key carrying the SLO payload.
const specKey = "slo_spec"

// Provider is the providing side of the SLO relation: it ships SLO specs
// to the monitoring charm. Providers never validate the payload beyond
// parseability; full validation happens on the requirer side.
type Provider struct {
	store          relation.Store
	party          relation.Party
	relationName   string
	injectTopology bool
	logger         log.Logger
}

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithProviderRelationName overrides the relation name.
func WithProviderRelationName(name string) ProviderOption {
	return func(p *Provider) {
		p.relationName = name
	}
}

// WithoutTopologyInjection disables injecting the provider's topology
// labels into SLI queries.
func WithoutTopologyInjection() ProviderOption {
	return func(p *Provider) {
		p.injectTopology = false
	}
}

// WithProviderLogger sets the logger.
func WithProviderLogger(logger log.Logger) ProviderOption {
	return func(p *Provider) {
		p.logger = logger
	}
}

// NewProvider creates the providing side of the SLO relation.
func NewProvider(store relation.Store, party relation.Party, opts ...ProviderOption) *Provider {
	p := &Provider{
		store:          store,
		party:          party,
		relationName:   DefaultRelationName,
		injectTopology: true,
		logger:         log.GetDefaultLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.WithComponent("slo-provider")
	return p
}

// ProvideSLOs writes the raw multi-document YAML SLO payload into this
// application's databag on every related relation instance. Topology
// labels are injected into SLI queries unless disabled, so that queries
// aggregated on a shared metrics backend can be attributed to this charm.
//
// A missing relation is not an error: the call is a no-op until one
// exists. Re-providing identical content leaves the databags unchanged.
func (p *Provider) ProvideSLOs(ctx context.Context, raw string) error {
	rels, err := p.store.Relations(ctx, p.relationName)
	if err != nil {
		return fmt.Errorf("failed to list %s relations: %w", p.relationName, err)
	}
	if len(rels) == 0 {
		p.logger.Debug("no relation found", log.Str("relation", p.relationName))
		return nil
	}
	if raw == "" {
		p.logger.Debug("no SLO config provided")
		return nil
	}

	docs, err := types.DecodeDocuments(raw)
	if err != nil {
		return types.WrapValidationError(err, "invalid YAML in SLO config")
	}

	if p.injectTopology {
		labels := p.party.Topology.LabelMatchers()
		for _, doc := range docs {
			InjectTopologyIntoDocument(doc, labels)
		}
	}

	merged, err := types.EncodeDocuments(docs)
	if err != nil {
		return err
	}

	for _, rel := range rels {
		if !rel.HasParticipant(p.party.Application) {
			continue
		}
		err := p.store.SetBagKey(ctx, p.relationName, rel.ID, p.party.Application, specKey, merged)
		if err != nil {
			return fmt.Errorf("failed to write SLO spec to %s: %w", rel, err)
		}
		p.logger.Debug("provided SLO config", log.Str("relation", rel.String()))
	}
	return nil
}

// InjectTopologyIntoDocument rewrites the SLI event queries of a decoded
// SLO document in place. Documents that do not look like SLO specs are
// left untouched; the requirer will reject them.
func InjectTopologyIntoDocument(doc map[string]interface{}, labels map[string]string) {
	slos, ok := doc["slos"].([]interface{})
	if !ok {
		return
	}
	for _, item := range slos {
		slo, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		sli, ok := slo["sli"].(map[string]interface{})
		if !ok {
			continue
		}
		events, ok := sli["events"].(map[string]interface{})
		if !ok {
			continue
		}
		for _, field := range []string{"error_query", "total_query"} {
			if query, ok := events[field].(string); ok {
				events[field] = topology.InjectLabels(query, labels)
			}
		}
	}
}
