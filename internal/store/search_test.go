package store

import (
	"context"
	"testing"
)

func TestSearch_Basic(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mustProject(t, s, "test")
	mustProject(t, s, "other")
	s.WriteContent(ctx, WriteParams{Project: "test", Name: "golang.md", Content: []byte("Go is a compiled language with goroutines")})
	s.WriteContent(ctx, WriteParams{Project: "test", Name: "python.md", Content: []byte("Python is an interpreted language")})
	s.WriteContent(ctx, WriteParams{Project: "other", Name: "rust.md", Content: []byte("Rust has a borrow checker")})

	// Search by content
	results, err := s.Search(ctx, SearchParams{Query: "language"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	// Search with project filter
	results, err = s.Search(ctx, SearchParams{Project: "other", Query: "language"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Fatalf("expected 0 results, got %d", len(results))
	}

	// Search by name
	results, err = s.Search(ctx, SearchParams{Query: "golang"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Name != "golang.md" {
		t.Fatalf("expected golang.md, got %+v", results)
	}
}

func TestSearch_Limit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mustProject(t, s, "p")

	for _, name := range []string{"a", "b", "c", "d"} {
		s.WriteContent(ctx, WriteParams{Project: "p", Name: name, Content: []byte("shared term")})
	}

	results, err := s.Search(ctx, SearchParams{Project: "p", Query: "shared", Limit: 3})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
}

func TestSearch_WildcardsAreLiteral(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mustProject(t, s, "p")

	s.WriteContent(ctx, WriteParams{Project: "p", Name: "discount.md", Content: []byte("save 50% today")})
	s.WriteContent(ctx, WriteParams{Project: "p", Name: "plain.md", Content: []byte("save 50 today")})
	s.WriteContent(ctx, WriteParams{Project: "p", Name: "snake_case.md", Content: []byte("naming")})
	s.WriteContent(ctx, WriteParams{Project: "p", Name: "snakeXcase.md", Content: []byte("naming")})
	s.WriteContent(ctx, WriteParams{Project: "p", Name: "path.md", Content: []byte(`C:\temp`)})

	cases := []struct {
		query string
		want  []string
	}{
		{"50%", []string{"discount.md"}},
		{"%", []string{"discount.md"}},
		{"snake_case", []string{"snake_case.md"}},
		{"_", []string{"snake_case.md"}},
		{`:\t`, []string{"path.md"}},
	}
	for _, c := range cases {
		results, err := s.Search(ctx, SearchParams{Project: "p", Query: c.query})
		if err != nil {
			t.Fatalf("search %q: %v", c.query, err)
		}
		var got []string
		for _, r := range results {
			got = append(got, r.Name)
		}
		if len(got) != len(c.want) || (len(got) > 0 && got[0] != c.want[0]) {
			t.Errorf("search %q: expected %v, got %v", c.query, c.want, got)
		}
	}
}

func TestSearch_CaseInsensitive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mustProject(t, s, "p")

	s.WriteContent(ctx, WriteParams{Project: "p", Name: "README.md", Content: []byte("Goroutines and Channels")})
	s.WriteContent(ctx, WriteParams{Project: "p", Name: "cafe.md", Content: []byte("ÉCOLE CAFÉ")})

	for query, want := range map[string]string{
		"readme":     "README.md",
		"CHANNELS":   "README.md",
		"goRoutines": "README.md",
		"café":       "cafe.md",
		"École":      "cafe.md",
	} {
		results, err := s.Search(ctx, SearchParams{Query: query})
		if err != nil {
			t.Fatalf("search %q: %v", query, err)
		}
		if len(results) != 1 || results[0].Name != want {
			t.Errorf("search %q: expected %s, got %+v", query, want, results)
		}
	}
}
