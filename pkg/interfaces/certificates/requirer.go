// Package certificates implements the TLS certificate exchange interface.
// Requirers publish certificate signing requests into their unit databag;
// providers answer with issued certificates in their application databag.
// Unlike the other interfaces, this one holds state beyond the databags:
// the requirer's private keys live in a secret store and are deleted when
// the relation goes away.
package certificates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/charmbus/charmbus/pkg/crypto"
	"github.com/charmbus/charmbus/pkg/log"
	"github.com/charmbus/charmbus/pkg/relation"
	"github.com/charmbus/charmbus/pkg/secrets"
	"github.com/charmbus/charmbus/pkg/types"
)

// DefaultRelationName is the conventional name of the certificates relation.
const DefaultRelationName = "certificates"

// Databag keys
const (
	// requestsKey is the requirer unit databag key holding signing requests.
	requestsKey = "certificate_signing_requests"

	// certificatesKey is the provider application databag key holding
	// issued certificates.
	certificatesKey = "certificates"
)

// privateKeyContentKey is the secret content key under which the PEM lives.
const privateKeyContentKey = "private-key"

// Requirer is the consuming side of the certificates relation. It keeps
// one private key per relation instance and republishes CSRs for its
// configured certificate requests.
type Requirer struct {
	store        relation.Store
	secrets      secrets.Store
	party        relation.Party
	relationName string
	requests     []types.CertificateRequestAttributes
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

// NewRequirer creates the consuming side of the certificates relation. The
// requests describe the certificates this charm wants issued; they are
// validated up front.
func NewRequirer(
	store relation.Store,
	secretStore secrets.Store,
	party relation.Party,
	requests []types.CertificateRequestAttributes,
	opts ...RequirerOption,
) (*Requirer, error) {
	for i := range requests {
		if err := requests[i].Validate(); err != nil {
			return nil, types.WrapValidationError(err, "certificate request %d", i)
		}
	}
	r := &Requirer{
		store:        store,
		secrets:      secretStore,
		party:        party,
		relationName: DefaultRelationName,
		requests:     requests,
		logger:       log.GetDefaultLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.WithComponent("certificates-requirer")
	return r, nil
}

// Register wires the requirer into the event dispatcher: requests are
// synced on relation and config events, and secrets are cleaned up when a
// relation breaks.
func (r *Requirer) Register(d *relation.Dispatcher) {
	sync := func(ctx context.Context, ev relation.Event) error {
		return r.SyncRequests(ctx)
	}
	d.On(relation.EventRelationCreated, sync)
	d.On(relation.EventRelationChanged, sync)
	d.On(relation.EventConfigChanged, sync)
	d.On(relation.EventRelationBroken, r.HandleRelationBroken)
}

func (r *Requirer) secretLabel(relationID int) string {
	return fmt.Sprintf("%s:%d:%s", r.relationName, relationID, privateKeyContentKey)
}

// privateKey returns the PEM private key for a relation instance,
// generating and storing it on first use.
func (r *Requirer) privateKey(ctx context.Context, relationID int) (string, error) {
	label := r.secretLabel(relationID)
	secret, err := r.secrets.GetByLabel(ctx, label)
	if err == nil {
		return secret.Content[privateKeyContentKey], nil
	}
	if !errors.Is(err, secrets.ErrSecretNotFound) {
		return "", fmt.Errorf("failed to look up private key: %w", err)
	}

	keyPEM, err := crypto.GeneratePrivateKey()
	if err != nil {
		return "", err
	}
	err = r.secrets.Put(ctx, &secrets.Secret{
		Label:   label,
		Content: map[string]string{privateKeyContentKey: keyPEM},
	})
	if err != nil {
		return "", fmt.Errorf("failed to store private key: %w", err)
	}
	r.logger.Debug("generated private key", log.Int("relation_id", relationID))
	return keyPEM, nil
}

// SyncRequests publishes a CSR for every configured certificate request on
// every related relation instance. CSRs already published for an unchanged
// request are left as they are, so re-syncing identical requests produces
// no databag change.
func (r *Requirer) SyncRequests(ctx context.Context) error {
	rels, err := r.store.Relations(ctx, r.relationName)
	if err != nil {
		return fmt.Errorf("failed to list %s relations: %w", r.relationName, err)
	}
	for _, rel := range rels {
		if !rel.HasParticipant(r.party.Unit) {
			continue
		}
		if err := r.syncRelation(ctx, rel); err != nil {
			return err
		}
	}
	return nil
}

func (r *Requirer) syncRelation(ctx context.Context, rel *relation.Relation) error {
	keyPEM, err := r.privateKey(ctx, rel.ID)
	if err != nil {
		return err
	}

	existing, raw, err := r.ownRequests(ctx, rel.ID)
	if err != nil {
		return err
	}
	byFingerprint := make(map[string]types.CertificateSigningRequest, len(existing))
	for _, req := range existing {
		byFingerprint[req.Attributes.Fingerprint()] = req
	}

	desired := make([]types.CertificateSigningRequest, 0, len(r.requests))
	for _, attrs := range r.requests {
		if prev, ok := byFingerprint[attrs.Fingerprint()]; ok && prev.CSR != "" {
			desired = append(desired, prev)
			continue
		}
		csrPEM, err := crypto.CreateCSR(attrs, keyPEM)
		if err != nil {
			return fmt.Errorf("failed to create CSR for %q: %w", attrs.CommonName, err)
		}
		desired = append(desired, types.CertificateSigningRequest{CSR: csrPEM, Attributes: attrs})
	}

	encoded, err := json.Marshal(desired)
	if err != nil {
		return fmt.Errorf("failed to encode signing requests: %w", err)
	}
	if string(encoded) == raw {
		return nil
	}
	err = r.store.SetBagKey(ctx, r.relationName, rel.ID, r.party.Unit, requestsKey, string(encoded))
	if err != nil {
		return fmt.Errorf("failed to publish signing requests on %s: %w", rel, err)
	}
	r.logger.Debug("published signing requests",
		log.Str("relation", rel.String()),
		log.Int("count", len(desired)))
	return nil
}

// ownRequests reads back the signing requests this unit has published.
func (r *Requirer) ownRequests(ctx context.Context, relationID int) ([]types.CertificateSigningRequest, string, error) {
	bag, err := r.store.GetBag(ctx, r.relationName, relationID, r.party.Unit)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read own databag: %w", err)
	}
	raw := bag[requestsKey]
	if raw == "" {
		return nil, "", nil
	}
	var reqs []types.CertificateSigningRequest
	if err := json.Unmarshal([]byte(raw), &reqs); err != nil {
		// Own bag is unreadable; treat as empty and overwrite on sync.
		r.logger.Warn("own signing requests unreadable, resetting", log.Err(err))
		return nil, "", nil
	}
	return reqs, raw, nil
}

// GetAssignedCertificate returns the issued certificate matching the given
// request attributes together with its PEM private key. A certificate not
// (yet) issued is not an error; the first return value is nil.
func (r *Requirer) GetAssignedCertificate(ctx context.Context, attrs types.CertificateRequestAttributes) (*types.ProviderCertificate, string, error) {
	rels, err := r.store.Relations(ctx, r.relationName)
	if err != nil {
		return nil, "", fmt.Errorf("failed to list %s relations: %w", r.relationName, err)
	}

	fingerprint := attrs.Fingerprint()
	for _, rel := range rels {
		if !rel.HasParticipant(r.party.Unit) {
			continue
		}
		own, _, err := r.ownRequests(ctx, rel.ID)
		if err != nil {
			return nil, "", err
		}
		var csrPEM string
		for _, req := range own {
			if req.Attributes.Fingerprint() == fingerprint {
				csrPEM = req.CSR
				break
			}
		}
		if csrPEM == "" {
			continue
		}

		issued, err := r.providerCertificates(ctx, rel)
		if err != nil {
			r.logger.Warn("failed to read provider certificates",
				log.Str("relation", rel.String()),
				log.Err(err))
			continue
		}
		for i := range issued {
			if issued[i].CSR == csrPEM {
				keyPEM, err := r.privateKey(ctx, rel.ID)
				if err != nil {
					return nil, "", err
				}
				return &issued[i], keyPEM, nil
			}
		}
	}
	return nil, "", nil
}

// GetAssignedCertificates returns all issued certificates matching this
// requirer's published requests.
func (r *Requirer) GetAssignedCertificates(ctx context.Context) ([]types.ProviderCertificate, error) {
	var out []types.ProviderCertificate
	for _, attrs := range r.requests {
		cert, _, err := r.GetAssignedCertificate(ctx, attrs)
		if err != nil {
			return nil, err
		}
		if cert != nil {
			out = append(out, *cert)
		}
	}
	return out, nil
}

// providerCertificates reads and decodes the provider's issued
// certificates on a relation.
func (r *Requirer) providerCertificates(ctx context.Context, rel *relation.Relation) ([]types.ProviderCertificate, error) {
	bag, err := r.store.GetBag(ctx, r.relationName, rel.ID, rel.RemoteApplication)
	if err != nil {
		return nil, err
	}
	raw := bag[certificatesKey]
	if raw == "" {
		return nil, nil
	}
	var issued []types.ProviderCertificate
	if err := json.Unmarshal([]byte(raw), &issued); err != nil {
		return nil, types.WrapValidationError(err, "invalid certificates payload from %s", rel.RemoteApplication)
	}
	return issued, nil
}

// RenewCertificate rotates the private key of every relation carrying the
// given request and republishes fresh CSRs, prompting providers to issue
// new certificates. The key is shared by all requests on a relation, so a
// rotation reissues every certificate on that relation, not just the one
// being renewed. A CSR built from an unchanged key would be byte-identical
// and providers would keep serving the old certificate.
func (r *Requirer) RenewCertificate(ctx context.Context, attrs types.CertificateRequestAttributes) error {
	rels, err := r.store.Relations(ctx, r.relationName)
	if err != nil {
		return fmt.Errorf("failed to list %s relations: %w", r.relationName, err)
	}

	fingerprint := attrs.Fingerprint()
	for _, rel := range rels {
		if !rel.HasParticipant(r.party.Unit) {
			continue
		}
		own, _, err := r.ownRequests(ctx, rel.ID)
		if err != nil {
			return err
		}
		carries := false
		for i := range own {
			if own[i].Attributes.Fingerprint() == fingerprint {
				carries = true
				break
			}
		}
		if !carries {
			continue
		}

		if _, err := r.secrets.DeleteByLabel(ctx, r.secretLabel(rel.ID)); err != nil {
			return fmt.Errorf("failed to rotate private key on %s: %w", rel, err)
		}
		keyPEM, err := r.privateKey(ctx, rel.ID)
		if err != nil {
			return err
		}
		for i := range own {
			csrPEM, err := crypto.CreateCSR(own[i].Attributes, keyPEM)
			if err != nil {
				return fmt.Errorf("failed to create renewal CSR for %q: %w", own[i].Attributes.CommonName, err)
			}
			own[i].CSR = csrPEM
		}

		encoded, err := json.Marshal(own)
		if err != nil {
			return fmt.Errorf("failed to encode signing requests: %w", err)
		}
		err = r.store.SetBagKey(ctx, r.relationName, rel.ID, r.party.Unit, requestsKey, string(encoded))
		if err != nil {
			return fmt.Errorf("failed to publish renewal on %s: %w", rel, err)
		}
		r.logger.Info("requested certificate renewal",
			log.Str("common_name", attrs.CommonName),
			log.Str("relation", rel.String()))
	}
	return nil
}

// HandleRelationBroken deletes the secrets tied to a departing relation
// instance. Cleanup failures are logged but never returned: relation
// teardown must complete regardless.
func (r *Requirer) HandleRelationBroken(ctx context.Context, ev relation.Event) error {
	if ev.RelationName != r.relationName {
		return nil
	}
	removed, err := r.secrets.DeleteByLabel(ctx, r.secretLabel(ev.RelationID))
	if err != nil {
		r.logger.Warn("failed to clean up secrets for departing relation",
			log.Str("relation", fmt.Sprintf("%s:%d", ev.RelationName, ev.RelationID)),
			log.Err(err))
		return nil
	}
	if removed > 0 {
		r.logger.Info("deleted secrets for departing relation",
			log.Int("count", removed),
			log.Int("relation_id", ev.RelationID))
	}
	return nil
}
