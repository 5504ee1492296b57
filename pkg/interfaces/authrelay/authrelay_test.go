package authrelay

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charmbus/charmbus/pkg/log"
	"github.com/charmbus/charmbus/pkg/relation"
	"github.com/charmbus/charmbus/pkg/topology"
	"github.com/charmbus/charmbus/pkg/types"
)

func addRelation(t *testing.T, store relation.Store, remoteApp string) *relation.Relation {
	t.Helper()
	rel := &relation.Relation{
		Name:              DefaultRelationName,
		LocalApplication:  "haproxy",
		LocalUnit:         "haproxy/0",
		RemoteApplication: remoteApp,
		RemoteUnits:       []string{remoteApp + "/0"},
	}
	require.NoError(t, store.AddRelation(context.Background(), rel))
	return rel
}

func proxyParty() relation.Party {
	return relation.NewParty(topology.Topology{Application: "haproxy", Unit: "haproxy/0"})
}

func authParty(app string) relation.Party {
	return relation.NewParty(topology.Topology{Application: app, Unit: app + "/0"})
}

func TestPublishAndCollect(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := relation.NewMemoryStore()
	addRelation(t, store, "oauth-agent")

	spec := types.AuthServiceSpec{
		Name:            "oauth-agent",
		BackendAddress:  "10.0.0.7",
		BackendPort:     9000,
		ProtocolVersion: "2.0",
		UseTLS:          true,
		TimeoutMS:       500,
	}
	provider := NewProvider(store, authParty("oauth-agent"), WithProviderLogger(log.NewTestLogger()))
	require.NoError(t, provider.PublishBackend(ctx, spec))

	requirer := NewRequirer(store, proxyParty(), WithRequirerLogger(log.NewTestLogger()))
	backends, err := requirer.GetBackends(ctx)
	require.NoError(t, err)
	require.Len(t, backends, 1)
	assert.Equal(t, spec, backends[0])
}

func TestPublishRejectsInvalidSpec(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := relation.NewMemoryStore()
	rel := addRelation(t, store, "oauth-agent")

	provider := NewProvider(store, authParty("oauth-agent"), WithProviderLogger(log.NewTestLogger()))
	err := provider.PublishBackend(ctx, types.AuthServiceSpec{
		Name:           "oauth-agent",
		BackendAddress: "10.0.0.7",
		BackendPort:    0,
	})
	require.Error(t, err)
	assert.True(t, types.IsValidationError(err))

	// Nothing was written.
	bag, err := store.GetBag(ctx, DefaultRelationName, rel.ID, "oauth-agent")
	require.NoError(t, err)
	assert.Empty(t, bag[backendKey])
}

func TestPublishNoRelationsIsNoop(t *testing.T) {
	t.Parallel()

	provider := NewProvider(relation.NewMemoryStore(), authParty("oauth-agent"),
		WithProviderLogger(log.NewTestLogger()))
	require.NoError(t, provider.PublishBackend(context.Background(), types.AuthServiceSpec{
		Name:           "oauth-agent",
		BackendAddress: "10.0.0.7",
		BackendPort:    9000,
	}))
}

func TestMalformedProviderDoesNotSuppressSiblings(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := relation.NewMemoryStore()
	good := addRelation(t, store, "oauth-agent")
	bad := addRelation(t, store, "ldap-agent")
	offSchema := addRelation(t, store, "saml-agent")

	require.NoError(t, store.SetBagKey(ctx, DefaultRelationName, good.ID, "oauth-agent", backendKey,
		`{"name": "oauth-agent", "backend_address": "10.0.0.7", "backend_port": 9000}`))
	// ldap-agent's payload is not JSON at all.
	require.NoError(t, store.SetBagKey(ctx, DefaultRelationName, bad.ID, "ldap-agent", backendKey, "not json"))
	// saml-agent's payload parses but fails the schema: port out of range.
	require.NoError(t, store.SetBagKey(ctx, DefaultRelationName, offSchema.ID, "saml-agent", backendKey,
		`{"name": "saml-agent", "backend_address": "10.0.0.8", "backend_port": 70000}`))

	logger := log.NewTestLogger()
	requirer := NewRequirer(store, proxyParty(), WithRequirerLogger(logger))
	backends, err := requirer.GetBackends(ctx)
	require.NoError(t, err)
	require.Len(t, backends, 1)
	assert.Equal(t, "oauth-agent", backends[0].Name)
	assert.NotEmpty(t, logger.EntriesAt(log.WarnLevel))
}

func TestEmptyDatabagIsSkipped(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := relation.NewMemoryStore()
	addRelation(t, store, "oauth-agent")

	requirer := NewRequirer(store, proxyParty(), WithRequirerLogger(log.NewTestLogger()))
	backends, err := requirer.GetBackends(ctx)
	require.NoError(t, err)
	assert.Empty(t, backends)
}

func TestMultipleProviders(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := relation.NewMemoryStore()
	addRelation(t, store, "oauth-agent")
	addRelation(t, store, "ldap-agent")

	for _, app := range []string{"oauth-agent", "ldap-agent"} {
		provider := NewProvider(store, authParty(app), WithProviderLogger(log.NewTestLogger()))
		require.NoError(t, provider.PublishBackend(ctx, types.AuthServiceSpec{
			Name:           app,
			BackendAddress: "10.0.0.7",
			BackendPort:    9000,
		}))
	}

	requirer := NewRequirer(store, proxyParty(), WithRequirerLogger(log.NewTestLogger()))
	backends, err := requirer.GetBackends(ctx)
	require.NoError(t, err)
	require.Len(t, backends, 2)
}
