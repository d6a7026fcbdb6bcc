package tags_test

import (
	"testing"

	"github.com/mogaika/scene_project/tags"
)

type entity struct{ name string }

var queryTests = []struct {
	tags  string
	query string
	match bool
}{
	{"added", "added", true},
	{"added", "modified", false},
	{"added", "!modified", true},
	{"added modified", "added && !modified", false},
	{"added", "added && !modified", true},
	{"modified", "added || modified", true},
	{"hidden", "(added || modified) && !hidden", false},
	{"added", "(added || modified) && !hidden", true},
	{"", "!added", true},
	{"added_particlesystem", "added", false},
	{"added_particlesystem", "added_particlesystem", true},
	{"a b", "!!a && b", true},
}

func TestMatchesQuery(t *testing.T) {
	for _, test := range queryTests {
		s := tags.NewStore()
		e := &entity{}
		s.AddTagsTo(e, test.tags)
		if result := s.MatchesQuery(e, test.query); result != test.match {
			t.Errorf("MatchesQuery(%q, %q)=%v; expected %v", test.tags, test.query, result, test.match)
		}
	}
}

func TestParseQueryErrors(t *testing.T) {
	for _, query := range []string{"", "added &&", "(added", "added)", "&& added", "added modified"} {
		if _, err := tags.ParseQuery(query); err == nil {
			t.Errorf("ParseQuery(%q) expected error", query)
		}
	}
}

func TestStore(t *testing.T) {
	s := tags.NewStore()
	a := &entity{"a"}
	b := &entity{"b"}

	if s.IsEnabled(a) {
		t.Fatalf("IsEnabled before EnableFor must be false")
	}
	s.EnableFor(a)
	if s.HasTags(a) || !s.IsEnabled(a) {
		t.Fatalf("HasTags=%v, IsEnabled=%v after EnableFor; expected false, true", s.HasTags(a), s.IsEnabled(a))
	}

	s.AddTagsTo(a, "modified added !bad (x)")
	if got := s.GetTags(a); len(got) != 2 || got[0] != "added" || got[1] != "modified" {
		t.Fatalf("GetTags=%v; expected [added modified]", got)
	}
	if s.HasTags(b) {
		t.Errorf("tags leaked to another entity")
	}

	s.RemoveTagsFrom(a, "modified")
	if s.HasTag(a, "modified") || !s.HasTag(a, "added") {
		t.Errorf("RemoveTagsFrom removed wrong tags: %v", s.GetTags(a))
	}

	s.Forget(a)
	if s.HasTags(a) || s.IsEnabled(a) {
		t.Errorf("Forget kept tags: %v", s.GetTags(a))
	}

	if s.MatchesQuery(a, "added &&") {
		t.Errorf("invalid query must not match")
	}
}
