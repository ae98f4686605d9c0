package events

import (
	"context"
	"log"

	"go.mongodb.org/mongo-driver/bson"
)

// EventType is the document lifecycle event a reactor subscribes to.
type EventType string

const (
	EventInsert EventType = "insert"
	EventUpdate EventType = "update"
)

// Event is a single document lifecycle notification delivered to a reactor.
// Document is the post-image of the record; UpdatedFields is populated for
// update events only and carries just the fields the write touched.
type Event struct {
	Collection    string
	Type          EventType
	Document      bson.Raw
	UpdatedFields bson.Raw
}

// Reactor handles one event. Errors are logged by the registry and never
// propagate: a failed notification must not affect the write that caused it.
type Reactor func(ctx context.Context, ev Event) error

type registryKey struct {
	collection string
	eventType  EventType
}

// Registry maps (collection, lifecycle event) pairs to reactor functions.
// The change-stream watcher dispatches through it.
type Registry struct {
	reactors map[registryKey]Reactor
}

// NewRegistry creates an empty reactor registry.
func NewRegistry() *Registry {
	return &Registry{reactors: make(map[registryKey]Reactor)}
}

// Register binds a reactor to a (collection, event type) pair. Registering
// twice for the same pair replaces the earlier reactor.
func (r *Registry) Register(collection string, eventType EventType, reactor Reactor) {
	r.reactors[registryKey{collection, eventType}] = reactor
}

// Collections returns the distinct collection names with registered
// reactors, so the watcher knows what to observe.
func (r *Registry) Collections() []string {
	seen := make(map[string]bool)
	var out []string
	for key := range r.reactors {
		if !seen[key.collection] {
			seen[key.collection] = true
			out = append(out, key.collection)
		}
	}
	return out
}

// Dispatch invokes the reactor registered for the event, if any. Reactor
// errors and panics are logged and swallowed here so they cannot crash the
// watcher loop. Delivery is at-least-once: reactors tolerate duplicates,
// since re-minted tokens are invalidated together on first use.
func (r *Registry) Dispatch(ctx context.Context, ev Event) {
	reactor, ok := r.reactors[registryKey{ev.Collection, ev.Type}]
	if !ok {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("PANIC in reactor for %s/%s: %v", ev.Collection, ev.Type, rec)
		}
	}()
	if err := reactor(ctx, ev); err != nil {
		log.Printf("Reactor error for %s/%s: %v", ev.Collection, ev.Type, err)
	}
}
