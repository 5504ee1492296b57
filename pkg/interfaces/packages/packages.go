// Package packages implements the apt package requirement interface:
// charms publish the packages and repositories they need installed on the
// machine, and the machine charm on the other side aggregates them into a
// single install plan.
package packages

import (
	"context"
	"fmt"
	"sort"

	"github.com/charmbus/charmbus/pkg/log"
	"github.com/charmbus/charmbus/pkg/relation"
	"github.com/charmbus/charmbus/pkg/types"
)

// DefaultRelationName is the conventional name of the packages relation.
const DefaultRelationName = "packages"

// specKey is the application databag key carrying the package spec.
const specKey = "packages"

// Provider is the side asking for packages to be installed.
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

// NewProvider creates the providing side of the packages relation.
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
	p.logger = p.logger.WithComponent("packages-provider")
	return p
}

// ProvidePackages writes the package spec into this application's databag
// on every related relation instance. The payload only needs to parse as
// YAML here; semantic validation happens on the requirer side. A missing
// relation is a no-op.
func (p *Provider) ProvidePackages(ctx context.Context, raw string) error {
	if _, err := types.ParsePackageSpec(raw); err != nil {
		return types.WrapValidationError(err, "invalid package spec")
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
		err := p.store.SetBagKey(ctx, p.relationName, rel.ID, p.party.Application, specKey, raw)
		if err != nil {
			return fmt.Errorf("failed to publish package spec on %s: %w", rel, err)
		}
		p.logger.Debug("published package spec", log.Str("relation", rel.String()))
	}
	return nil
}

// Requirer is the machine side of the relation: it aggregates package
// requirements from every related application.
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

// NewRequirer creates the consuming side of the packages relation.
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
	r.logger = r.logger.WithComponent("packages-requirer")
	return r
}

// GetInstallPlan aggregates validated package specs from all related
// providers into one merged spec. When two providers ask for the same
// package, the one on the newest relation instance wins; repositories are
// deduplicated by URI and suite. A provider whose payload does not parse
// or validate is logged and skipped.
func (r *Requirer) GetInstallPlan(ctx context.Context) (*types.PackageSpec, error) {
	rels, err := r.store.Relations(ctx, r.relationName)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s relations: %w", r.relationName, err)
	}

	pkgByName := make(map[string]types.PackageRequirement)
	repoSeen := make(map[string]bool)
	var repos []types.Repository

	// Relations come back ordered by id, so later (newer) instances
	// overwrite earlier ones.
	for _, rel := range rels {
		bag, err := r.store.GetBag(ctx, r.relationName, rel.ID, rel.RemoteApplication)
		if err != nil {
			r.logger.Warn("failed to read provider databag",
				log.Str("relation", rel.String()),
				log.Err(err))
			continue
		}
		raw := bag[specKey]
		if raw == "" {
			continue
		}

		spec, err := types.ParsePackageSpec(raw)
		if err != nil {
			r.logger.Warn("unparseable package spec",
				log.Str("provider", rel.RemoteApplication),
				log.Err(err))
			continue
		}
		if err := spec.Validate(); err != nil {
			r.logger.Warn("invalid package spec",
				log.Str("provider", rel.RemoteApplication),
				log.Err(err))
			continue
		}

		for _, pkg := range spec.Packages {
			pkgByName[pkg.Name] = pkg
		}
		for _, repo := range spec.Repositories {
			key := repo.URI + "|" + repo.Suite
			if repoSeen[key] {
				continue
			}
			repoSeen[key] = true
			repos = append(repos, repo)
		}
	}

	names := make([]string, 0, len(pkgByName))
	for name := range pkgByName {
		names = append(names, name)
	}
	sort.Strings(names)

	plan := &types.PackageSpec{Repositories: repos}
	for _, name := range names {
		plan.Packages = append(plan.Packages, pkgByName[name])
	}
	r.logger.Info("aggregated package requirements",
		log.Int("packages", len(plan.Packages)),
		log.Int("repositories", len(plan.Repositories)))
	return plan, nil
}
