package tree

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
)

// =============================================================================
// Constants - Single Source of Truth
// =============================================================================

// Relationship kinds.
const (
	KindParent  = "parent"  // directed: From is the parent, To the child
	KindSpouse  = "spouse"  // unordered pair
	KindSibling = "sibling" // unordered pair
)

// ValidKinds is the set of supported relationship kinds.
var ValidKinds = map[string]bool{
	KindParent:  true,
	KindSpouse:  true,
	KindSibling: true,
}

// NormalizeKind maps a free-form relationship type to a canonical kind.
// Historical records use "father" and "mother" interchangeably with "parent";
// all three normalize to KindParent. Matching is case-insensitive.
// Returns the canonical kind and true, or "" and false for unknown types.
func NormalizeKind(s string) (string, bool) {
	kind := strings.ToLower(strings.TrimSpace(s))
	switch kind {
	case "father", "mother":
		kind = KindParent
	case "husband", "wife", "partner":
		kind = KindSpouse
	case "brother", "sister":
		kind = KindSibling
	}
	if !ValidKinds[kind] {
		return "", false
	}
	return kind, true
}

// =============================================================================
// Person - Record Store Entity
// =============================================================================

// Person is a member of the family graph. All attributes besides ID are
// opaque to layout and are carried through only for rendering labels.
type Person struct {
	ID          string `json:"id" bson:"id"`
	FirstName   string `json:"first_name" bson:"first_name"`
	MiddleName  string `json:"middle_name,omitempty" bson:"middle_name,omitempty"`
	LastName    string `json:"last_name" bson:"last_name"`
	MaidenName  string `json:"maiden_name,omitempty" bson:"maiden_name,omitempty"`
	BirthDate   string `json:"birth_date,omitempty" bson:"birth_date,omitempty"`
	DeathDate   string `json:"death_date,omitempty" bson:"death_date,omitempty"`
	BurialPlace string `json:"burial_place,omitempty" bson:"burial_place,omitempty"`
	Links       string `json:"links,omitempty" bson:"links,omitempty"`
	Notes       string `json:"notes,omitempty" bson:"notes,omitempty"`
}

// DisplayName returns the label rendered on the person's node.
func (p Person) DisplayName() string {
	name := strings.TrimSpace(p.FirstName + " " + p.LastName)
	if name == "" {
		return p.ID
	}
	return name
}

// =============================================================================
// Relationship - Typed Familial Edge
// =============================================================================

// Relationship is a typed familial edge between two persons.
// For KindParent the pair is ordered: From is the parent and To the child.
// For KindSpouse and KindSibling the pair is unordered; (From, To) and
// (To, From) describe the same relationship.
type Relationship struct {
	ID   string `json:"id" bson:"id"`
	Kind string `json:"kind" bson:"kind"`
	From string `json:"from" bson:"from"`
	To   string `json:"to" bson:"to"`
}

// =============================================================================
// Snapshot - Immutable Layout Input
// =============================================================================

// Snapshot is an internally-consistent view of the record store at one point
// in time. The layout subsystem consumes snapshots and never mutates them;
// any edit in the store triggers a fresh snapshot and a full rebuild.
type Snapshot struct {
	Persons       []Person       `json:"persons" bson:"persons"`
	Relationships []Relationship `json:"relationships" bson:"relationships"`
}

// Normalize sorts persons and relationships by ID so that identical store
// contents always serialize and hash identically.
func (s *Snapshot) Normalize() {
	slices.SortFunc(s.Persons, func(a, b Person) int {
		return strings.Compare(a.ID, b.ID)
	})
	slices.SortFunc(s.Relationships, func(a, b Relationship) int {
		return strings.Compare(a.ID, b.ID)
	})
}

// =============================================================================
// Snapshot Serialization API
// =============================================================================

// MarshalSnapshot converts a snapshot to pretty-printed JSON bytes.
// The snapshot is normalized first for deterministic output.
func MarshalSnapshot(s Snapshot) ([]byte, error) {
	s.Normalize()
	return json.MarshalIndent(s, "", "  ")
}

// UnmarshalSnapshot deserializes JSON bytes into a Snapshot.
func UnmarshalSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return s, nil
}

// WriteSnapshotFile writes a snapshot to a JSON file.
// The file is created with 0644 permissions.
func WriteSnapshotFile(s Snapshot, path string) error {
	data, err := MarshalSnapshot(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ReadSnapshotFile reads a snapshot from a JSON file.
func ReadSnapshotFile(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read %s: %w", path, err)
	}
	return UnmarshalSnapshot(data)
}

// WriteSnapshot writes a snapshot as JSON to an io.Writer.
func WriteSnapshot(s Snapshot, w io.Writer) error {
	s.Normalize()
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ReadSnapshot decodes a JSON snapshot from an io.Reader.
func ReadSnapshot(r io.Reader) (Snapshot, error) {
	var s Snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return Snapshot{}, fmt.Errorf("decode: %w", err)
	}
	return s, nil
}
