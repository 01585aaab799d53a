package tree

import (
	"slices"
	"testing"

	"github.com/matzehuels/kintree/pkg/errors"
)

func person(id string) Person {
	return Person{ID: id, FirstName: id, LastName: "Example"}
}

func snapshot(persons []string, rels ...Relationship) Snapshot {
	s := Snapshot{}
	for _, id := range persons {
		s.Persons = append(s.Persons, person(id))
	}
	s.Relationships = rels
	return s
}

func TestBuild_ParentEdges(t *testing.T) {
	g, errs := Build(snapshot([]string{"a", "b", "c"},
		Relationship{ID: "r1", Kind: "parent", From: "a", To: "b"},
		Relationship{ID: "r2", Kind: "parent", From: "a", To: "c"},
	))

	if len(errs) != 0 {
		t.Fatalf("Build() returned %d errors, want 0: %v", len(errs), errs)
	}
	if got := g.Children("a"); !slices.Equal(got, []string{"b", "c"}) {
		t.Errorf("Children(a) = %v, want [b c]", got)
	}
	if got := g.Parents("b"); !slices.Equal(got, []string{"a"}) {
		t.Errorf("Parents(b) = %v, want [a]", got)
	}
	if g.ParentCount("a") != 0 {
		t.Errorf("ParentCount(a) = %d, want 0", g.ParentCount("a"))
	}
}

func TestBuild_KindNormalization(t *testing.T) {
	g, errs := Build(snapshot([]string{"a", "b"},
		Relationship{ID: "r1", Kind: "Mother", From: "a", To: "b"},
	))

	if len(errs) != 0 {
		t.Fatalf("Build() returned errors: %v", errs)
	}
	if got := g.Parents("b"); !slices.Equal(got, []string{"a"}) {
		t.Errorf("Parents(b) = %v, want [a]: 'Mother' should normalize to parent", got)
	}
	if g.Relationships()[0].Kind != KindParent {
		t.Errorf("stored kind = %q, want %q", g.Relationships()[0].Kind, KindParent)
	}
}

func TestBuild_UnknownKind(t *testing.T) {
	g, errs := Build(snapshot([]string{"a", "b"},
		Relationship{ID: "r1", Kind: "cousin", From: "a", To: "b"},
	))

	if len(errs) != 1 || !errors.Is(errs[0], errors.ErrCodeInvalidKind) {
		t.Fatalf("Build() errors = %v, want one INVALID_RELATIONSHIP_KIND", errs)
	}
	if g.RelationshipCount() != 0 {
		t.Errorf("RelationshipCount() = %d, want 0", g.RelationshipCount())
	}
}

func TestBuild_SelfRelationshipExcluded(t *testing.T) {
	g, errs := Build(snapshot([]string{"a", "b"},
		Relationship{ID: "r1", Kind: "parent", From: "a", To: "a"},
		Relationship{ID: "r2", Kind: "parent", From: "a", To: "b"},
	))

	if len(errs) != 1 || !errors.Is(errs[0], errors.ErrCodeSelfRelationship) {
		t.Fatalf("Build() errors = %v, want one DATA_SELF_RELATIONSHIP", errs)
	}
	// The bad record must not poison the rest of the build.
	if g.RelationshipCount() != 1 {
		t.Errorf("RelationshipCount() = %d, want 1", g.RelationshipCount())
	}
	if got := g.Children("a"); !slices.Equal(got, []string{"b"}) {
		t.Errorf("Children(a) = %v, want [b]", got)
	}
}

func TestBuild_UnknownPersonExcluded(t *testing.T) {
	g, errs := Build(snapshot([]string{"a"},
		Relationship{ID: "r1", Kind: "parent", From: "a", To: "ghost"},
	))

	if len(errs) != 1 || !errors.Is(errs[0], errors.ErrCodeUnknownPerson) {
		t.Fatalf("Build() errors = %v, want one DATA_UNKNOWN_PERSON", errs)
	}
	if g.RelationshipCount() != 0 {
		t.Errorf("RelationshipCount() = %d, want 0", g.RelationshipCount())
	}
}

func TestBuild_DuplicatesDeduplicated(t *testing.T) {
	g, errs := Build(snapshot([]string{"a", "b"},
		Relationship{ID: "r1", Kind: "parent", From: "a", To: "b"},
		Relationship{ID: "r2", Kind: "parent", From: "a", To: "b"},
	))

	if len(errs) != 1 || !errors.Is(errs[0], errors.ErrCodeDuplicateRecord) {
		t.Fatalf("Build() errors = %v, want one DATA_DUPLICATE_RECORD", errs)
	}
	if got := g.Children("a"); !slices.Equal(got, []string{"b"}) {
		t.Errorf("Children(a) = %v, want single edge [b]", got)
	}
}

func TestBuild_UnorderedDuplicate(t *testing.T) {
	// (a,b) and (b,a) describe the same spouse relationship.
	g, errs := Build(snapshot([]string{"a", "b"},
		Relationship{ID: "r1", Kind: "spouse", From: "a", To: "b"},
		Relationship{ID: "r2", Kind: "spouse", From: "b", To: "a"},
	))

	if len(errs) != 1 || !errors.Is(errs[0], errors.ErrCodeDuplicateRecord) {
		t.Fatalf("Build() errors = %v, want one DATA_DUPLICATE_RECORD", errs)
	}
	if got := g.Spouses("a"); !slices.Equal(got, []string{"b"}) {
		t.Errorf("Spouses(a) = %v, want [b]", got)
	}
	if got := g.Spouses("b"); !slices.Equal(got, []string{"a"}) {
		t.Errorf("Spouses(b) = %v, want [a]", got)
	}
}

func TestBuild_SiblingAdjacency(t *testing.T) {
	g, errs := Build(snapshot([]string{"a", "b"},
		Relationship{ID: "r1", Kind: "sibling", From: "b", To: "a"},
	))

	if len(errs) != 0 {
		t.Fatalf("Build() returned errors: %v", errs)
	}
	if got := g.Siblings("a"); !slices.Equal(got, []string{"b"}) {
		t.Errorf("Siblings(a) = %v, want [b]", got)
	}
}

func TestBuild_DeterministicAcrossRecordOrder(t *testing.T) {
	rels := []Relationship{
		{ID: "r1", Kind: "parent", From: "a", To: "c"},
		{ID: "r2", Kind: "parent", From: "b", To: "c"},
		{ID: "r3", Kind: "spouse", From: "a", To: "b"},
	}
	reversed := []Relationship{rels[2], rels[1], rels[0]}

	g1, _ := Build(snapshot([]string{"a", "b", "c"}, rels...))
	g2, _ := Build(snapshot([]string{"a", "b", "c"}, reversed...))

	if !slices.Equal(g1.Parents("c"), g2.Parents("c")) {
		t.Errorf("Parents(c) differ across record order: %v vs %v", g1.Parents("c"), g2.Parents("c"))
	}
	if !slices.Equal(g1.PersonIDs(), g2.PersonIDs()) {
		t.Errorf("PersonIDs differ across record order")
	}
}

func TestNormalizeKind(t *testing.T) {
	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{"parent", KindParent, true},
		{"Father", KindParent, true},
		{"MOTHER", KindParent, true},
		{"spouse", KindSpouse, true},
		{"wife", KindSpouse, true},
		{"sibling", KindSibling, true},
		{" brother ", KindSibling, true},
		{"cousin", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := NormalizeKind(tt.input)
			if got != tt.want || ok != tt.ok {
				t.Errorf("NormalizeKind(%q) = (%q, %v), want (%q, %v)", tt.input, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestPersonDisplayName(t *testing.T) {
	p := Person{ID: "p1", FirstName: "Ada", LastName: "Lovelace"}
	if got := p.DisplayName(); got != "Ada Lovelace" {
		t.Errorf("DisplayName() = %q, want %q", got, "Ada Lovelace")
	}
	blank := Person{ID: "p2"}
	if got := blank.DisplayName(); got != "p2" {
		t.Errorf("DisplayName() = %q, want fallback to ID", got)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := snapshot([]string{"b", "a"},
		Relationship{ID: "r1", Kind: "parent", From: "a", To: "b"},
	)

	data, err := MarshalSnapshot(s)
	if err != nil {
		t.Fatalf("MarshalSnapshot() error: %v", err)
	}
	got, err := UnmarshalSnapshot(data)
	if err != nil {
		t.Fatalf("UnmarshalSnapshot() error: %v", err)
	}

	if len(got.Persons) != 2 || got.Persons[0].ID != "a" {
		t.Errorf("round trip persons = %+v, want sorted [a b]", got.Persons)
	}
	if len(got.Relationships) != 1 || got.Relationships[0].ID != "r1" {
		t.Errorf("round trip relationships = %+v", got.Relationships)
	}
}
