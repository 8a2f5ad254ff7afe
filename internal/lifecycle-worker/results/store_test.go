package results

import "testing"

func TestStoreKeepsLatestResult(t *testing.T) {
	s := NewStore()

	if _, ok := s.ResultFor("m1"); ok {
		t.Fatal("unknown match must report no result")
	}

	s.Set("m1", "1:0")
	s.Set("m1", "2:0")
	if r, ok := s.ResultFor("m1"); !ok || r != "2:0" {
		t.Fatalf("got %q %v, want latest result", r, ok)
	}

	if _, ok := s.ResultFor("m2"); ok {
		t.Fatal("results must not leak across matches")
	}
}
