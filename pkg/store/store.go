// Package store provides persistence for family records.
//
// This package defines the Store interface for person and relationship
// storage, with implementations for different backends:
//   - memory: In-memory storage for development/testing
//   - file: JSON-file storage for CLI applications
//   - mongo: MongoDB-backed storage for server deployments
//
// # Architecture
//
// A store holds two record collections, persons and relationships, and
// exposes them as an immutable tree.Snapshot for layout computation. The
// Store interface supports:
//   - CRUD on persons and relationships
//   - Cascade delete: removing a person removes every relationship
//     referencing them
//   - Change notification via Watch, so viewers can recompute layouts
//     when records change
//
// Writes validate relationship records up front: unknown kinds, self
// references, endpoints naming unknown persons, and duplicate records are
// rejected rather than stored. Reads always return records sorted by ID,
// so two stores with the same contents produce identical snapshots.
//
// # Usage
//
// Create a store:
//
//	// Development
//	st := store.NewMemoryStore()
//
//	// CLI
//	st, err := store.NewFileStore("family.json")
//
//	// Server
//	st, err := store.NewMongoStore(ctx, store.MongoConfig{
//	    URI:      "mongodb://localhost:27017",
//	    Database: "kintree",
//	})
//
// React to changes:
//
//	changes := st.Watch(ctx)
//	for range changes {
//	    snap, err := st.Snapshot(ctx)
//	    // recompute layout
//	}
package store

import (
	"context"
	"sync"

	"github.com/matzehuels/kintree/pkg/errors"
	"github.com/matzehuels/kintree/pkg/tree"
)

// Store is the interface for family record storage backends.
type Store interface {
	// ListPersons returns every person, sorted by ID.
	ListPersons(ctx context.Context) ([]tree.Person, error)

	// GetPerson retrieves a person by ID.
	GetPerson(ctx context.Context, id string) (tree.Person, error)

	// AddPerson stores a new person. An empty ID is assigned a generated
	// one; the stored record is returned.
	AddPerson(ctx context.Context, p tree.Person) (tree.Person, error)

	// UpdatePerson replaces an existing person record.
	UpdatePerson(ctx context.Context, p tree.Person) error

	// DeletePerson removes a person and every relationship that
	// references them.
	DeletePerson(ctx context.Context, id string) error

	// ListRelationships returns every relationship, sorted by ID.
	ListRelationships(ctx context.Context) ([]tree.Relationship, error)

	// AddRelationship validates and stores a new relationship. An empty
	// ID is assigned a generated one; the stored record is returned.
	AddRelationship(ctx context.Context, r tree.Relationship) (tree.Relationship, error)

	// DeleteRelationship removes a relationship by ID.
	DeleteRelationship(ctx context.Context, id string) error

	// Snapshot returns the full record set as a normalized snapshot.
	Snapshot(ctx context.Context) (tree.Snapshot, error)

	// Watch returns a channel that receives a tick after every mutation.
	// Ticks are coalesced; the channel is closed when ctx is done.
	Watch(ctx context.Context) <-chan struct{}

	// Close releases backend resources.
	Close() error
}

// ===== Validation =====

// pairKey builds a canonical duplicate-detection key. Spouse and sibling
// records are unordered, so (a,b) and (b,a) collapse to one key.
func pairKey(r tree.Relationship) string {
	a, b := r.From, r.To
	if r.Kind != tree.KindParent && b < a {
		a, b = b, a
	}
	return r.Kind + "\x00" + a + "\x00" + b
}

// validateRelationship normalizes the kind and checks the record against
// the existing store contents. Returns the normalized record.
func validateRelationship(r tree.Relationship, hasPerson func(string) bool, existing []tree.Relationship) (tree.Relationship, error) {
	kind, ok := tree.NormalizeKind(r.Kind)
	if !ok {
		return r, errors.New(errors.ErrCodeInvalidKind, "relationship %s has unknown kind %q", r.ID, r.Kind)
	}
	r.Kind = kind

	if r.From == r.To {
		return r, errors.New(errors.ErrCodeSelfRelationship, "relationship %s links %s to itself", r.ID, r.From)
	}
	if !hasPerson(r.From) {
		return r, errors.New(errors.ErrCodeUnknownPerson, "relationship %s references unknown person %s", r.ID, r.From)
	}
	if !hasPerson(r.To) {
		return r, errors.New(errors.ErrCodeUnknownPerson, "relationship %s references unknown person %s", r.ID, r.To)
	}

	key := pairKey(r)
	for _, ex := range existing {
		if pairKey(ex) == key {
			return r, errors.New(errors.ErrCodeDuplicateRecord, "relationship %s duplicates %s", r.ID, ex.ID)
		}
	}
	return r, nil
}

// ===== Change notification =====

// notifier fans out mutation ticks to Watch subscribers. Each subscriber
// channel has a buffer of one, so bursts of writes coalesce into a single
// pending tick.
type notifier struct {
	mu   sync.Mutex
	subs map[chan struct{}]struct{}
}

func newNotifier() *notifier {
	return &notifier{subs: make(map[chan struct{}]struct{})}
}

func (n *notifier) subscribe(ctx context.Context) <-chan struct{} {
	ch := make(chan struct{}, 1)
	n.mu.Lock()
	n.subs[ch] = struct{}{}
	n.mu.Unlock()

	go func() {
		<-ctx.Done()
		n.mu.Lock()
		delete(n.subs, ch)
		n.mu.Unlock()
		close(ch)
	}()
	return ch
}

func (n *notifier) notify() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for ch := range n.subs {
		select {
		case ch <- struct{}{}:
		default:
			// A tick is already pending; the subscriber will see it.
		}
	}
}
