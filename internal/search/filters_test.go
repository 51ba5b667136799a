package search

import "testing"

// TestGlobToLikeRoundTrip exercises spec.md §8's glob->LIKE round-trip
// invariant: globToLike's output, matched back via likeMatch (the same
// LIKE-semantics interpreter passesPathFilters uses), must reproduce shell
// glob matching for * and ? - including treating a literal % or _ already
// present in the glob as a literal in the LIKE pattern rather than letting
// it smuggle in an extra wildcard.
func TestGlobToLikeRoundTrip(t *testing.T) {
	cases := []struct {
		glob  string
		path  string
		match bool
	}{
		{"*.go", "main.go", true},
		{"*.go", "main.txt", false},
		{"internal/*/main.go", "internal/tools/main.go", true},
		{"foo?.txt", "foo1.txt", true},
		{"foo?.txt", "foo12.txt", false},
		{"100%_done.txt", "100%_done.txt", true},
		{"100%_done.txt", "100Xdone.txt", false},
		{"a_b.go", "a_b.go", true},
		{"a_b.go", "aXb.go", false},
		{"*", "anything/at/all.go", true},
	}

	for _, c := range cases {
		like := globToLike(c.glob)
		got := likeMatch(c.path, like)
		if got != c.match {
			t.Errorf("globToLike(%q) = %q; likeMatch(%q, ...) = %v, want %v", c.glob, like, c.path, got, c.match)
		}
	}
}
