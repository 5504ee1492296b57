package slo

import (
	"context"
	"fmt"

	"github.com/charmbus/charmbus/pkg/log"
	"github.com/charmbus/charmbus/pkg/relation"
	"github.com/charmbus/charmbus/pkg/types"
)

// Requirer is the consuming side of the SLO relation: the monitoring charm
// uses it to collect validated SLO specs from every related provider.
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

// NewRequirer creates the consuming side of the SLO relation.
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
	r.logger = r.logger.WithComponent("slo-requirer")
	return r
}

// GetSLOs collects validated SLO specs from all related providers. A
// provider whose payload does not parse, or whose documents fail
// validation, is logged and skipped; it never suppresses valid specs from
// sibling providers. No relations means no specs, not an error.
func (r *Requirer) GetSLOs(ctx context.Context) ([]types.SLOSpec, error) {
	rels, err := r.store.Relations(ctx, r.relationName)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s relations: %w", r.relationName, err)
	}

	var specs []types.SLOSpec
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

		docs, err := types.DecodeSLODocuments(raw)
		if err != nil {
			r.logger.Warn("failed to parse SLO spec",
				log.Str("provider", rel.RemoteApplication),
				log.Err(err))
			continue
		}

		for _, spec := range docs {
			if err := spec.Validate(); err != nil {
				r.logger.Warn("invalid SLO spec",
					log.Str("provider", rel.RemoteApplication),
					log.Err(err))
				continue
			}
			r.logger.Debug("collected SLO spec",
				log.Str("service", spec.Service),
				log.Str("provider", rel.RemoteApplication))
			specs = append(specs, spec)
		}
	}

	r.logger.Info("collected SLO specifications", log.Int("count", len(specs)))
	return specs, nil
}
