package certificates

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbus/charmbus/pkg/crypto"
	"github.com/charmbus/charmbus/pkg/log"
	"github.com/charmbus/charmbus/pkg/relation"
	"github.com/charmbus/charmbus/pkg/types"
)

// DefaultCertificateValidity is how long issued certificates live unless
// the provider is configured otherwise.
const DefaultCertificateValidity = 365 * 24 * time.Hour

// Provider is the issuing side of the certificates relation. It reads
// signing requests from remote unit databags, signs them with its
// certificate authority, and publishes the issued certificates in its
// application databag.
type Provider struct {
	store        relation.Store
	party        relation.Party
	ca           *crypto.CertificateAuthority
	relationName string
	validity     time.Duration
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

// WithCertificateValidity sets the validity of issued certificates.
func WithCertificateValidity(d time.Duration) ProviderOption {
	return func(p *Provider) {
		p.validity = d
	}
}

// WithProviderLogger sets the logger.
func WithProviderLogger(logger log.Logger) ProviderOption {
	return func(p *Provider) {
		p.logger = logger
	}
}

// NewProvider creates the issuing side of the certificates relation.
func NewProvider(store relation.Store, party relation.Party, ca *crypto.CertificateAuthority, opts ...ProviderOption) *Provider {
	p := &Provider{
		store:        store,
		party:        party,
		ca:           ca,
		relationName: DefaultRelationName,
		validity:     DefaultCertificateValidity,
		logger:       log.GetDefaultLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.WithComponent("certificates-provider")
	return p
}

// Register wires the provider into the event dispatcher so certificates
// are issued whenever requests may have changed.
func (p *Provider) Register(d *relation.Dispatcher) {
	issue := func(ctx context.Context, ev relation.Event) error {
		return p.IssueCertificates(ctx)
	}
	d.On(relation.EventRelationCreated, issue)
	d.On(relation.EventRelationChanged, issue)
	d.On(relation.EventUpdateStatus, issue)
}

// IssueCertificates answers every outstanding signing request on every
// relation instance. A CSR already answered keeps its certificate; issued
// entries whose CSR is no longer requested are dropped. A request that
// does not parse is logged and skipped without blocking its siblings.
func (p *Provider) IssueCertificates(ctx context.Context) error {
	rels, err := p.store.Relations(ctx, p.relationName)
	if err != nil {
		return fmt.Errorf("failed to list %s relations: %w", p.relationName, err)
	}
	for _, rel := range rels {
		if !rel.HasParticipant(p.party.Application) {
			continue
		}
		if err := p.issueForRelation(ctx, rel); err != nil {
			return err
		}
	}
	return nil
}

func (p *Provider) issueForRelation(ctx context.Context, rel *relation.Relation) error {
	requested := p.collectRequests(ctx, rel)

	issued, raw, err := p.issuedCertificates(ctx, rel.ID)
	if err != nil {
		return err
	}
	byCSR := make(map[string]types.ProviderCertificate, len(issued))
	for _, cert := range issued {
		byCSR[cert.CSR] = cert
	}

	next := make([]types.ProviderCertificate, 0, len(requested))
	for _, csrPEM := range requested {
		if prev, ok := byCSR[csrPEM]; ok {
			next = append(next, prev)
			continue
		}
		certPEM, err := p.ca.SignCSR(csrPEM, p.validity)
		if err != nil {
			p.logger.Warn("failed to sign CSR",
				log.Str("relation", rel.String()),
				log.Err(err))
			continue
		}
		caPEM := p.ca.CertificatePEM()
		next = append(next, types.ProviderCertificate{
			CSR:         csrPEM,
			Certificate: certPEM,
			CA:          caPEM,
			Chain:       []string{certPEM, caPEM},
		})
		p.logger.Info("issued certificate", log.Str("relation", rel.String()))
	}

	encoded, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("failed to encode certificates: %w", err)
	}
	if string(encoded) == raw {
		return nil
	}
	err = p.store.SetBagKey(ctx, p.relationName, rel.ID, p.party.Application, certificatesKey, string(encoded))
	if err != nil {
		return fmt.Errorf("failed to publish certificates on %s: %w", rel, err)
	}
	return nil
}

// collectRequests gathers CSR PEMs from the databag of every unit on the
// relation that is not ours, in participant order. Unreadable bags or
// payloads are logged and skipped.
func (p *Provider) collectRequests(ctx context.Context, rel *relation.Relation) []string {
	var csrs []string
	seen := make(map[string]bool)
	for _, participant := range rel.Participants() {
		if !strings.ContainsRune(participant, '/') {
			continue
		}
		if relation.UnitApplication(participant) == p.party.Application {
			continue
		}
		unit := participant
		bag, err := p.store.GetBag(ctx, p.relationName, rel.ID, unit)
		if err != nil {
			p.logger.Warn("failed to read unit databag",
				log.Str("unit", unit),
				log.Err(err))
			continue
		}
		raw := bag[requestsKey]
		if raw == "" {
			continue
		}
		var reqs []types.CertificateSigningRequest
		if err := json.Unmarshal([]byte(raw), &reqs); err != nil {
			p.logger.Warn("invalid signing requests payload",
				log.Str("unit", unit),
				log.Err(err))
			continue
		}
		for _, req := range reqs {
			if req.CSR == "" || seen[req.CSR] {
				continue
			}
			seen[req.CSR] = true
			csrs = append(csrs, req.CSR)
		}
	}
	return csrs
}

// issuedCertificates reads back the certificates this provider has
// published on a relation.
func (p *Provider) issuedCertificates(ctx context.Context, relationID int) ([]types.ProviderCertificate, string, error) {
	bag, err := p.store.GetBag(ctx, p.relationName, relationID, p.party.Application)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read own databag: %w", err)
	}
	raw := bag[certificatesKey]
	if raw == "" {
		return nil, "", nil
	}
	var issued []types.ProviderCertificate
	if err := json.Unmarshal([]byte(raw), &issued); err != nil {
		p.logger.Warn("own certificates payload unreadable, reissuing", log.Err(err))
		return nil, "", nil
	}
	return issued, raw, nil
}
