// Package authrelay implements the SPOE auth relay interface: an
// authentication charm publishes its SPOA backend coordinates so the proxy
// charm on the other side can wire its SPOE filter to it.
package authrelay

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/charmbus/charmbus/pkg/log"
	"github.com/charmbus/charmbus/pkg/relation"
	"github.com/charmbus/charmbus/pkg/types"
)

// DefaultRelationName is the conventional name of the auth relay relation.
const DefaultRelationName = "spoe-auth"

// backendKey is the application databag key carrying the backend spec.
const backendKey = "auth_backend"

// Provider is the authentication-service side of the relation.
type Provider struct {
	store        relation.Store
	party        relation.Party
	relationName string
	logger       log.Logger
}

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithProviderRelationName overrides the relation name.
func WithProviderRelationName(name string) ProviderOption {
	return func(p *Provider) {
		p.relationName = name
	}
}

// WithProviderLogger sets the logger.
func WithProviderLogger(logger log.Logger) ProviderOption {
	return func(p *Provider) {
		p.logger = logger
	}
}

// NewProvider creates the providing side of the auth relay relation.
func NewProvider(store relation.Store, party relation.Party, opts ...ProviderOption) *Provider {
	p := &Provider{
		store:        store,
		party:        party,
		relationName: DefaultRelationName,
		logger:       log.GetDefaultLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.WithComponent("authrelay-provider")
	return p
}

// PublishBackend writes the backend spec into this application's databag on
// every related relation instance. The spec is validated before anything is
// written; a missing relation is a no-op.
func (p *Provider) PublishBackend(ctx context.Context, spec types.AuthServiceSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}
	encoded, err := json.Marshal(&spec)
	if err != nil {
		return fmt.Errorf("failed to encode auth backend spec: %w", err)
	}

	rels, err := p.store.Relations(ctx, p.relationName)
	if err != nil {
		return fmt.Errorf("failed to list %s relations: %w", p.relationName, err)
	}
	if len(rels) == 0 {
		p.logger.Debug("no relation found", log.Str("relation", p.relationName))
		return nil
	}

	for _, rel := range rels {
		if !rel.HasParticipant(p.party.Application) {
			continue
		}
		err := p.store.SetBagKey(ctx, p.relationName, rel.ID, p.party.Application, backendKey, string(encoded))
		if err != nil {
			return fmt.Errorf("failed to publish auth backend on %s: %w", rel, err)
		}
		p.logger.Debug("published auth backend",
			log.Str("relation", rel.String()),
			log.Str("agent", spec.Name))
	}
	return nil
}

// Requirer is the proxy side of the relation: it collects backend specs
// from every related authentication service.
type Requirer struct {
	store        relation.Store
	party        relation.Party
	relationName string
	logger       log.Logger
}

// RequirerOption configures a Requirer.
type RequirerOption func(*Requirer)

// WithRequirerRelationName overrides the relation name.
func WithRequirerRelationName(name string) RequirerOption {
	return func(r *Requirer) {
		r.relationName = name
	}
}

// WithRequirerLogger sets the logger.
func WithRequirerLogger(logger log.Logger) RequirerOption {
	return func(r *Requirer) {
		r.logger = logger
	}
}

// NewRequirer creates the consuming side of the auth relay relation.
func NewRequirer(store relation.Store, party relation.Party, opts ...RequirerOption) *Requirer {
	r := &Requirer{
		store:        store,
		party:        party,
		relationName: DefaultRelationName,
		logger:       log.GetDefaultLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.WithComponent("authrelay-requirer")
	return r
}

// GetBackends collects schema-validated backend specs from all related
// providers. A provider publishing a payload that fails the schema is
// logged and skipped without suppressing its siblings.
func (r *Requirer) GetBackends(ctx context.Context) ([]types.AuthServiceSpec, error) {
	rels, err := r.store.Relations(ctx, r.relationName)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s relations: %w", r.relationName, err)
	}

	var specs []types.AuthServiceSpec
	for _, rel := range rels {
		bag, err := r.store.GetBag(ctx, r.relationName, rel.ID, rel.RemoteApplication)
		if err != nil {
			r.logger.Warn("failed to read provider databag",
				log.Str("relation", rel.String()),
				log.Err(err))
			continue
		}
		raw := bag[backendKey]
		if raw == "" {
			continue
		}
		spec, err := types.ParseAuthServiceSpec(raw)
		if err != nil {
			r.logger.Warn("invalid auth backend payload",
				log.Str("provider", rel.RemoteApplication),
				log.Err(err))
			continue
		}
		r.logger.Debug("collected auth backend",
			log.Str("agent", spec.Name),
			log.Str("provider", rel.RemoteApplication))
		specs = append(specs, *spec)
	}
	return specs, nil
}
