package story

import (
	"errors"
	"strings"
	"testing"
)

func TestDeriveTitle(t *testing.T) {
	cases := map[string]string{
		"A dragon who is afraid of heights": "A dragon who is afraid of heig...",
		"Short":                             "Short...",
		"":                                  "...",
	}
	cases[strings.Repeat("é", 31)] = strings.Repeat("é", 30) + "..."
	for prompt, want := range cases {
		if got := DeriveTitle(prompt); got != want {
			t.Errorf("DeriveTitle(%q) = %q, want %q", prompt, got, want)
		}
	}
}

func TestSplitParagraphs(t *testing.T) {
	content := "First paragraph.\n\n   \nSecond paragraph.\nThird one.\n"
	got := SplitParagraphs(content)
	if len(got) != 3 {
		t.Fatalf("expected 3 paragraphs, got %d: %q", len(got), got)
	}
	if got[1] != "Second paragraph." {
		t.Errorf("unexpected second paragraph %q", got[1])
	}

	if n := len(SplitParagraphs("")); n != 0 {
		t.Errorf("expected no paragraphs for empty content, got %d", n)
	}
}

func TestNewID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewID()
		if len(id) != 9 {
			t.Fatalf("expected 9 character id, got %q", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestStoreCreateKeepsInsertionOrder(t *testing.T) {
	s := NewStore()
	a := s.Create("a", "one", nil)
	b := s.Create("b", "two", &Image{URL: "https://img/b.jpg", Alt: "b"})

	list := s.List()
	if len(list) != 2 || list[0].ID != a.ID || list[1].ID != b.ID {
		t.Fatalf("unexpected order: %+v", list)
	}
	if list[0].HasImage() {
		t.Error("story a should have no image")
	}
	if list[1].ImageURL != "https://img/b.jpg" || list[1].ImageAlt != "b" {
		t.Errorf("image not attached: %+v", list[1])
	}
	if list[0].CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
}

func TestStoreRename(t *testing.T) {
	s := NewStore()
	st := s.Create("Original", "text", nil)

	if err := s.Rename(st.ID, "   "); err != nil {
		t.Fatalf("blank rename: %v", err)
	}
	if got, _ := s.Get(st.ID); got.Title != "Original" {
		t.Errorf("blank rename changed title to %q", got.Title)
	}

	if err := s.Rename(st.ID, "  New title  "); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if got, _ := s.Get(st.ID); got.Title != "New title" {
		t.Errorf("expected trimmed title, got %q", got.Title)
	}

	if err := s.Rename("missing", "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreDelete(t *testing.T) {
	s := NewStore()
	a := s.Create("a", "one", nil)
	b := s.Create("b", "two", nil)
	c := s.Create("c", "three", nil)

	if err := s.Delete(b.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	list := s.List()
	if len(list) != 2 || list[0].ID != a.ID || list[1].ID != c.ID {
		t.Fatalf("unexpected list after delete: %+v", list)
	}
	if _, ok := s.Get(b.ID); ok {
		t.Error("deleted story still present")
	}
	if err := s.Delete(b.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreListReturnsCopy(t *testing.T) {
	s := NewStore()
	st := s.Create("a", "one", nil)
	list := s.List()
	list[0].Title = strings.ToUpper(list[0].Title)

	if got, _ := s.Get(st.ID); got.Title != "a" {
		t.Errorf("store mutated through List copy: %q", got.Title)
	}
}
