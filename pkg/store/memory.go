package store

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/matzehuels/kintree/pkg/errors"
	"github.com/matzehuels/kintree/pkg/tree"
)

// MemoryStore is an in-memory record store for development and testing.
// It is safe for concurrent use.
type MemoryStore struct {
	mu            sync.RWMutex
	persons       map[string]tree.Person
	relationships map[string]tree.Relationship
	changes       *notifier
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		persons:       make(map[string]tree.Person),
		relationships: make(map[string]tree.Relationship),
		changes:       newNotifier(),
	}
}

// NewMemoryStoreFrom creates an in-memory store preloaded with a snapshot.
// The snapshot is not revalidated; callers own its consistency.
func NewMemoryStoreFrom(snap tree.Snapshot) *MemoryStore {
	s := NewMemoryStore()
	for _, p := range snap.Persons {
		s.persons[p.ID] = p
	}
	for _, r := range snap.Relationships {
		s.relationships[r.ID] = r
	}
	return s
}

func (s *MemoryStore) ListPersons(ctx context.Context) ([]tree.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedPersons(), nil
}

func (s *MemoryStore) GetPerson(ctx context.Context, id string) (tree.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.persons[id]
	if !ok {
		return tree.Person{}, errors.New(errors.ErrCodePersonNotFound, "person %s not found", id)
	}
	return p, nil
}

func (s *MemoryStore) AddPerson(ctx context.Context, p tree.Person) (tree.Person, error) {
	s.mu.Lock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if _, exists := s.persons[p.ID]; exists {
		s.mu.Unlock()
		return tree.Person{}, errors.New(errors.ErrCodeDuplicateRecord, "person %s already exists", p.ID)
	}
	s.persons[p.ID] = p
	s.mu.Unlock()

	s.changes.notify()
	return p, nil
}

func (s *MemoryStore) UpdatePerson(ctx context.Context, p tree.Person) error {
	s.mu.Lock()
	if _, ok := s.persons[p.ID]; !ok {
		s.mu.Unlock()
		return errors.New(errors.ErrCodePersonNotFound, "person %s not found", p.ID)
	}
	s.persons[p.ID] = p
	s.mu.Unlock()

	s.changes.notify()
	return nil
}

func (s *MemoryStore) DeletePerson(ctx context.Context, id string) error {
	s.mu.Lock()
	if _, ok := s.persons[id]; !ok {
		s.mu.Unlock()
		return errors.New(errors.ErrCodePersonNotFound, "person %s not found", id)
	}
	delete(s.persons, id)
	for rid, r := range s.relationships {
		if r.From == id || r.To == id {
			delete(s.relationships, rid)
		}
	}
	s.mu.Unlock()

	s.changes.notify()
	return nil
}

func (s *MemoryStore) ListRelationships(ctx context.Context) ([]tree.Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedRelationships(), nil
}

func (s *MemoryStore) AddRelationship(ctx context.Context, r tree.Relationship) (tree.Relationship, error) {
	s.mu.Lock()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if _, exists := s.relationships[r.ID]; exists {
		s.mu.Unlock()
		return tree.Relationship{}, errors.New(errors.ErrCodeDuplicateRecord, "relationship %s already exists", r.ID)
	}
	hasPerson := func(id string) bool {
		_, ok := s.persons[id]
		return ok
	}
	r, err := validateRelationship(r, hasPerson, s.sortedRelationships())
	if err != nil {
		s.mu.Unlock()
		return tree.Relationship{}, err
	}
	s.relationships[r.ID] = r
	s.mu.Unlock()

	s.changes.notify()
	return r, nil
}

func (s *MemoryStore) DeleteRelationship(ctx context.Context, id string) error {
	s.mu.Lock()
	if _, ok := s.relationships[id]; !ok {
		s.mu.Unlock()
		return errors.New(errors.ErrCodeNotFound, "relationship %s not found", id)
	}
	delete(s.relationships, id)
	s.mu.Unlock()

	s.changes.notify()
	return nil
}

func (s *MemoryStore) Snapshot(ctx context.Context) (tree.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return tree.Snapshot{
		Persons:       s.sortedPersons(),
		Relationships: s.sortedRelationships(),
	}, nil
}

func (s *MemoryStore) Watch(ctx context.Context) <-chan struct{} {
	return s.changes.subscribe(ctx)
}

func (s *MemoryStore) Close() error { return nil }

// Callers must hold at least a read lock.
func (s *MemoryStore) sortedPersons() []tree.Person {
	out := make([]tree.Person, 0, len(s.persons))
	for _, p := range s.persons {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b tree.Person) int { return strings.Compare(a.ID, b.ID) })
	return out
}

// Callers must hold at least a read lock.
func (s *MemoryStore) sortedRelationships() []tree.Relationship {
	out := make([]tree.Relationship, 0, len(s.relationships))
	for _, r := range s.relationships {
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b tree.Relationship) int { return strings.Compare(a.ID, b.ID) })
	return out
}

var _ Store = (*MemoryStore)(nil)
