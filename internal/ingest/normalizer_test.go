package ingest

import "testing"

func TestNormalizeSynonyms(t *testing.T) {
	n := NewNormalizer(nil)

	cases := []struct {
		raw  string
		want string
	}{
		{"Fresh Chicken Wings", "chicken"},
		{"POULTRY (frozen)", "chicken"},
		{"Soft Drinks 24x330ml", "drinks"},
		{"Sparkling Water", "drinks"},
		{"Mature Cheddar Block", "cheese"},
		{"Garlic Mayo", "dips"},
		{"Iceberg Lettuce", "produce"},
	}
	for _, tc := range cases {
		if got := n.Normalize(tc.raw); got != tc.want {
			t.Fatalf("Normalize(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestNormalizeFallbackPassthrough(t *testing.T) {
	n := NewNormalizer(nil)
	if got := n.Normalize("Frozen Desserts"); got != "frozen desserts" {
		t.Fatalf("unmatched label should pass through lower-cased, got %q", got)
	}
}

func TestNormalizeTableOrderPriority(t *testing.T) {
	table := CategoryTable{
		{Name: "first", Synonyms: []string{"shared"}},
		{Name: "second", Synonyms: []string{"shared"}},
	}
	n := NewNormalizer(table)
	if got := n.Normalize("Shared Label"); got != "first" {
		t.Fatalf("earlier table entry should win, got %q", got)
	}
}
