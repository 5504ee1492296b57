package relation

import (
	"github.com/charmbus/charmbus/pkg/topology"
)

// Party is the local identity an interface library acts as: which
// application and unit it writes databags for, and the topology its
// monitoring queries should be attributed to.
type Party struct {
	// Application name
	Application string

	// Unit name, e.g. "checkout/0"
	Unit string

	// Topology of the deployment
	Topology topology.Topology
}

// NewParty builds a Party from a topology, deriving application and unit.
func NewParty(topo topology.Topology) Party {
	return Party{
		Application: topo.Application,
		Unit:        topo.Unit,
		Topology:    topo,
	}
}
