package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/matzehuels/kintree/pkg/tree"
)

// FileStore is a JSON-file record store for CLI applications. The whole
// record set lives in a single snapshot file which is rewritten after
// every mutation.
type FileStore struct {
	mu   sync.Mutex
	path string
	mem  *MemoryStore
}

// NewFileStore opens the snapshot file at path, creating an empty store
// if the file does not exist yet.
func NewFileStore(path string) (*FileStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}

	var mem *MemoryStore
	if _, err := os.Stat(path); os.IsNotExist(err) {
		mem = NewMemoryStore()
	} else {
		snap, err := tree.ReadSnapshotFile(path)
		if err != nil {
			return nil, fmt.Errorf("load snapshot %s: %w", path, err)
		}
		mem = NewMemoryStoreFrom(snap)
	}
	return &FileStore{path: path, mem: mem}, nil
}

// persist writes the current record set back to disk. Callers must hold
// the mutation lock.
func (s *FileStore) persist(ctx context.Context) error {
	snap, err := s.mem.Snapshot(ctx)
	if err != nil {
		return err
	}
	if err := tree.WriteSnapshotFile(snap, s.path); err != nil {
		return fmt.Errorf("write snapshot %s: %w", s.path, err)
	}
	return nil
}

func (s *FileStore) ListPersons(ctx context.Context) ([]tree.Person, error) {
	return s.mem.ListPersons(ctx)
}

func (s *FileStore) GetPerson(ctx context.Context, id string) (tree.Person, error) {
	return s.mem.GetPerson(ctx, id)
}

func (s *FileStore) AddPerson(ctx context.Context, p tree.Person) (tree.Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, err := s.mem.AddPerson(ctx, p)
	if err != nil {
		return tree.Person{}, err
	}
	return stored, s.persist(ctx)
}

func (s *FileStore) UpdatePerson(ctx context.Context, p tree.Person) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mem.UpdatePerson(ctx, p); err != nil {
		return err
	}
	return s.persist(ctx)
}

func (s *FileStore) DeletePerson(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mem.DeletePerson(ctx, id); err != nil {
		return err
	}
	return s.persist(ctx)
}

func (s *FileStore) ListRelationships(ctx context.Context) ([]tree.Relationship, error) {
	return s.mem.ListRelationships(ctx)
}

func (s *FileStore) AddRelationship(ctx context.Context, r tree.Relationship) (tree.Relationship, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, err := s.mem.AddRelationship(ctx, r)
	if err != nil {
		return tree.Relationship{}, err
	}
	return stored, s.persist(ctx)
}

func (s *FileStore) DeleteRelationship(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mem.DeleteRelationship(ctx, id); err != nil {
		return err
	}
	return s.persist(ctx)
}

func (s *FileStore) Snapshot(ctx context.Context) (tree.Snapshot, error) {
	return s.mem.Snapshot(ctx)
}

func (s *FileStore) Watch(ctx context.Context) <-chan struct{} {
	return s.mem.Watch(ctx)
}

func (s *FileStore) Close() error { return nil }

// Path returns the snapshot file location.
func (s *FileStore) Path() string { return s.path }

var _ Store = (*FileStore)(nil)
