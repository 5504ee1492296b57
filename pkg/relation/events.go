package relation

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbus/charmbus/pkg/log"
)

// EventKind identifies the kind of a host-runtime event.
type EventKind string

// Event kinds delivered by the host runtime.
const (
	// EventRelationCreated indicates a new relation instance appeared.
	EventRelationCreated EventKind = "relation-created"

	// EventRelationChanged indicates remote data on a relation changed.
	EventRelationChanged EventKind = "relation-changed"

	// EventRelationBroken indicates a relation instance is going away.
	EventRelationBroken EventKind = "relation-broken"

	// EventConfigChanged indicates local configuration changed.
	EventConfigChanged EventKind = "config-changed"

	// EventUpdateStatus is the periodic housekeeping tick.
	EventUpdateStatus EventKind = "update-status"
)

// Event is a typed host-runtime event: a kind plus the identity of what it
// concerns. Relation fields are zero for non-relation events.
type Event struct {
	Kind         EventKind
	RelationName string
	RelationID   int
	Unit         string
}

// String returns a human-readable form of the event.
func (e Event) String() string {
	if e.RelationName != "" {
		return fmt.Sprintf("%s %s:%d", e.Kind, e.RelationName, e.RelationID)
	}
	return string(e.Kind)
}

// Handler processes a single event to completion.
type Handler func(ctx context.Context, ev Event) error

// Dispatcher routes events to registered handlers. Dispatch is synchronous
// and single-threaded: each handler runs to completion before the next, and
// each event is fully handled before the next is processed.
type Dispatcher struct {
	handlers map[EventKind][]Handler
	logger   log.Logger
}

// NewDispatcher creates an event dispatcher.
func NewDispatcher(logger log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.GetDefaultLogger()
	}
	return &Dispatcher{
		handlers: make(map[EventKind][]Handler),
		logger:   logger.WithComponent("dispatcher"),
	}
}

// On registers a handler for an event kind. Handlers run in registration
// order.
func (d *Dispatcher) On(kind EventKind, handler Handler) {
	d.handlers[kind] = append(d.handlers[kind], handler)
}

// Dispatch delivers an event to all handlers registered for its kind. Every
// handler runs even if an earlier one fails; failures are joined into the
// returned error.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) error {
	handlers := d.handlers[ev.Kind]
	if len(handlers) == 0 {
		d.logger.Debug("no handlers for event", log.Str("event", ev.String()))
		return nil
	}

	var errs []error
	for _, handler := range handlers {
		if err := handler(ctx, ev); err != nil {
			d.logger.Error("event handler failed",
				log.Str("event", ev.String()),
				log.Err(err))
			errs = append(errs, fmt.Errorf("%s: %w", ev.Kind, err))
		}
	}
	return errors.Join(errs...)
}
