// Package relation models the relation-data store charm libraries exchange
// payloads through: relation instances scoping owner-keyed databags, with
// at-most-one-writer-per-scope write discipline.
package relation

import (
	"fmt"
	"strings"
)

// Relation is one instance of an integration between two applications. It
// is recorded from the local side's point of view.
type Relation struct {
	// Interface name of the relation, e.g. "slos" or "certificates"
	Name string `json:"name"`

	// Instance id, unique per name within a store
	ID int `json:"id"`

	// Application this side belongs to
	LocalApplication string `json:"local_application"`

	// Unit this side runs as, e.g. "sloth/0"
	LocalUnit string `json:"local_unit,omitempty"`

	// Application on the other side
	RemoteApplication string `json:"remote_application"`

	// Units currently present on the other side
	RemoteUnits []string `json:"remote_units,omitempty"`
}

// String returns the canonical "name:id" form of the relation instance.
func (r *Relation) String() string {
	return fmt.Sprintf("%s:%d", r.Name, r.ID)
}

// Participants returns every identity owning a databag scope on this
// relation: both applications and all known units.
func (r *Relation) Participants() []string {
	out := []string{r.LocalApplication, r.RemoteApplication}
	if r.LocalUnit != "" {
		out = append(out, r.LocalUnit)
	}
	out = append(out, r.RemoteUnits...)
	return out
}

// HasParticipant reports whether the identity owns a databag scope on this
// relation.
func (r *Relation) HasParticipant(identity string) bool {
	for _, p := range r.Participants() {
		if p == identity {
			return true
		}
	}
	return false
}

// UnitApplication returns the application part of a unit name like "foo/0".
func UnitApplication(unit string) string {
	if i := strings.IndexByte(unit, '/'); i >= 0 {
		return unit[:i]
	}
	return unit
}
