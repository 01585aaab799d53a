package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/matzehuels/kintree/pkg/errors"
	"github.com/matzehuels/kintree/pkg/tree"
)

// openStores builds one of each local backend so shared behavior is
// verified against both.
func openStores(t *testing.T) map[string]Store {
	t.Helper()
	fs, err := NewFileStore(filepath.Join(t.TempDir(), "family.json"))
	if err != nil {
		t.Fatalf("NewFileStore error: %v", err)
	}
	return map[string]Store{
		"memory": NewMemoryStore(),
		"file":   fs,
	}
}

func addPerson(t *testing.T, s Store, id string) tree.Person {
	t.Helper()
	p, err := s.AddPerson(context.Background(), tree.Person{ID: id, FirstName: id})
	if err != nil {
		t.Fatalf("AddPerson(%s) error: %v", id, err)
	}
	return p
}

func TestStorePersonCRUD(t *testing.T) {
	ctx := context.Background()
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			defer s.Close()

			// Add with explicit ID
			p := addPerson(t, s, "ada")
			if p.ID != "ada" {
				t.Errorf("AddPerson kept ID = %q, want %q", p.ID, "ada")
			}

			// Add with generated ID
			gen, err := s.AddPerson(ctx, tree.Person{FirstName: "Grace"})
			if err != nil {
				t.Fatalf("AddPerson error: %v", err)
			}
			if gen.ID == "" {
				t.Error("AddPerson should assign an ID")
			}

			// Duplicate ID rejected
			if _, err := s.AddPerson(ctx, tree.Person{ID: "ada"}); !errors.Is(err, errors.ErrCodeDuplicateRecord) {
				t.Errorf("duplicate AddPerson error = %v, want ErrCodeDuplicateRecord", err)
			}

			// Get
			got, err := s.GetPerson(ctx, "ada")
			if err != nil {
				t.Fatalf("GetPerson error: %v", err)
			}
			if got.FirstName != "ada" {
				t.Errorf("GetPerson FirstName = %q, want %q", got.FirstName, "ada")
			}
			if _, err := s.GetPerson(ctx, "nobody"); !errors.Is(err, errors.ErrCodePersonNotFound) {
				t.Errorf("GetPerson missing error = %v, want ErrCodePersonNotFound", err)
			}

			// Update
			got.Notes = "pioneer"
			if err := s.UpdatePerson(ctx, got); err != nil {
				t.Fatalf("UpdatePerson error: %v", err)
			}
			got, _ = s.GetPerson(ctx, "ada")
			if got.Notes != "pioneer" {
				t.Errorf("UpdatePerson Notes = %q, want %q", got.Notes, "pioneer")
			}
			if err := s.UpdatePerson(ctx, tree.Person{ID: "nobody"}); !errors.Is(err, errors.ErrCodePersonNotFound) {
				t.Errorf("UpdatePerson missing error = %v, want ErrCodePersonNotFound", err)
			}

			// List is sorted by ID
			persons, err := s.ListPersons(ctx)
			if err != nil {
				t.Fatalf("ListPersons error: %v", err)
			}
			for i := 1; i < len(persons); i++ {
				if persons[i-1].ID >= persons[i].ID {
					t.Errorf("ListPersons not sorted: %s before %s", persons[i-1].ID, persons[i].ID)
				}
			}

			// Delete
			if err := s.DeletePerson(ctx, "ada"); err != nil {
				t.Fatalf("DeletePerson error: %v", err)
			}
			if _, err := s.GetPerson(ctx, "ada"); !errors.Is(err, errors.ErrCodePersonNotFound) {
				t.Errorf("GetPerson after delete error = %v, want ErrCodePersonNotFound", err)
			}
			if err := s.DeletePerson(ctx, "ada"); !errors.Is(err, errors.ErrCodePersonNotFound) {
				t.Errorf("double DeletePerson error = %v, want ErrCodePersonNotFound", err)
			}
		})
	}
}

func TestStoreRelationshipValidation(t *testing.T) {
	ctx := context.Background()
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			defer s.Close()
			addPerson(t, s, "a")
			addPerson(t, s, "b")

			// Kind is normalized
			r, err := s.AddRelationship(ctx, tree.Relationship{ID: "r1", Kind: "Mother", From: "a", To: "b"})
			if err != nil {
				t.Fatalf("AddRelationship error: %v", err)
			}
			if r.Kind != tree.KindParent {
				t.Errorf("Kind = %q, want %q", r.Kind, tree.KindParent)
			}

			// Unknown kind
			if _, err := s.AddRelationship(ctx, tree.Relationship{Kind: "cousin", From: "a", To: "b"}); !errors.Is(err, errors.ErrCodeInvalidKind) {
				t.Errorf("unknown kind error = %v, want ErrCodeInvalidKind", err)
			}

			// Self reference
			if _, err := s.AddRelationship(ctx, tree.Relationship{Kind: "spouse", From: "a", To: "a"}); !errors.Is(err, errors.ErrCodeSelfRelationship) {
				t.Errorf("self relationship error = %v, want ErrCodeSelfRelationship", err)
			}

			// Unknown endpoint
			if _, err := s.AddRelationship(ctx, tree.Relationship{Kind: "parent", From: "a", To: "ghost"}); !errors.Is(err, errors.ErrCodeUnknownPerson) {
				t.Errorf("unknown person error = %v, want ErrCodeUnknownPerson", err)
			}

			// Exact duplicate
			if _, err := s.AddRelationship(ctx, tree.Relationship{Kind: "parent", From: "a", To: "b"}); !errors.Is(err, errors.ErrCodeDuplicateRecord) {
				t.Errorf("duplicate error = %v, want ErrCodeDuplicateRecord", err)
			}

			// Reversed spouse pair is still a duplicate
			if _, err := s.AddRelationship(ctx, tree.Relationship{Kind: "spouse", From: "a", To: "b"}); err != nil {
				t.Fatalf("AddRelationship spouse error: %v", err)
			}
			if _, err := s.AddRelationship(ctx, tree.Relationship{Kind: "wife", From: "b", To: "a"}); !errors.Is(err, errors.ErrCodeDuplicateRecord) {
				t.Errorf("reversed spouse duplicate error = %v, want ErrCodeDuplicateRecord", err)
			}

			// Reversed parent pair is a distinct record
			if _, err := s.AddRelationship(ctx, tree.Relationship{Kind: "parent", From: "b", To: "a"}); err != nil {
				t.Errorf("reversed parent should be allowed: %v", err)
			}
		})
	}
}

func TestStoreDeletePersonCascades(t *testing.T) {
	ctx := context.Background()
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			defer s.Close()
			addPerson(t, s, "a")
			addPerson(t, s, "b")
			addPerson(t, s, "c")
			mustRel := func(kind, from, to string) {
				if _, err := s.AddRelationship(ctx, tree.Relationship{Kind: kind, From: from, To: to}); err != nil {
					t.Fatalf("AddRelationship(%s %s->%s) error: %v", kind, from, to, err)
				}
			}
			mustRel("parent", "a", "b")
			mustRel("spouse", "a", "c")
			mustRel("parent", "b", "c")

			if err := s.DeletePerson(ctx, "a"); err != nil {
				t.Fatalf("DeletePerson error: %v", err)
			}

			rels, err := s.ListRelationships(ctx)
			if err != nil {
				t.Fatalf("ListRelationships error: %v", err)
			}
			if len(rels) != 1 {
				t.Fatalf("relationships after cascade = %d, want 1", len(rels))
			}
			if rels[0].From != "b" || rels[0].To != "c" {
				t.Errorf("surviving relationship = %s->%s, want b->c", rels[0].From, rels[0].To)
			}
		})
	}
}

func TestStoreSnapshotNormalized(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	// Insert out of order; snapshot comes back sorted.
	addPerson(t, s, "zoe")
	addPerson(t, s, "amy")
	if _, err := s.AddRelationship(ctx, tree.Relationship{ID: "r2", Kind: "parent", From: "amy", To: "zoe"}); err != nil {
		t.Fatalf("AddRelationship error: %v", err)
	}
	if _, err := s.AddRelationship(ctx, tree.Relationship{ID: "r1", Kind: "spouse", From: "zoe", To: "amy"}); err != nil {
		t.Fatalf("AddRelationship error: %v", err)
	}

	snap, err := s.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot error: %v", err)
	}
	if snap.Persons[0].ID != "amy" || snap.Persons[1].ID != "zoe" {
		t.Errorf("persons not sorted: %s, %s", snap.Persons[0].ID, snap.Persons[1].ID)
	}
	if snap.Relationships[0].ID != "r1" || snap.Relationships[1].ID != "r2" {
		t.Errorf("relationships not sorted: %s, %s", snap.Relationships[0].ID, snap.Relationships[1].ID)
	}
}

func TestFileStoreReload(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "family.json")

	s, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore error: %v", err)
	}
	addPerson(t, s, "a")
	addPerson(t, s, "b")
	if _, err := s.AddRelationship(ctx, tree.Relationship{Kind: "parent", From: "a", To: "b"}); err != nil {
		t.Fatalf("AddRelationship error: %v", err)
	}
	s.Close()

	// A fresh store on the same path sees the persisted records.
	reopened, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	defer reopened.Close()
	snap, err := reopened.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot error: %v", err)
	}
	if len(snap.Persons) != 2 || len(snap.Relationships) != 1 {
		t.Errorf("reloaded snapshot = %d persons, %d relationships, want 2 and 1",
			len(snap.Persons), len(snap.Relationships))
	}
}

func TestStoreWatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := NewMemoryStore()
	defer s.Close()
	changes := s.Watch(ctx)

	addPerson(t, s, "a")
	select {
	case <-changes:
	case <-time.After(time.Second):
		t.Fatal("Watch should tick after a mutation")
	}

	// Back-to-back writes coalesce into at most one pending tick.
	addPerson(t, s, "b")
	addPerson(t, s, "c")
	select {
	case <-changes:
	case <-time.After(time.Second):
		t.Fatal("Watch should tick after coalesced mutations")
	}

	// Cancelling the context closes the channel.
	cancel()
	select {
	case _, open := <-changes:
		if open {
			// Drain a pending tick, then expect closure.
			if _, open := <-changes; open {
				t.Error("Watch channel should close after cancel")
			}
		}
	case <-time.After(time.Second):
		t.Fatal("Watch channel should close after cancel")
	}
}
