package filter

import (
	"context"
	"testing"

	"github.com/custodia-labs/tripwise/internal/core/domain"
)

func TestNew(t *testing.T) {
	if New().MinChars() != DefaultMinChars {
		t.Errorf("expected default min chars %d", DefaultMinChars)
	}
	if New(WithMinChars(0)).MinChars() != DefaultMinChars {
		t.Error("non-positive threshold should be ignored")
	}
	if New(WithMinChars(5)).MinChars() != 5 {
		t.Error("expected min chars 5")
	}
	if New().Name() != "filter" {
		t.Errorf("unexpected name %q", New().Name())
	}
}

func TestProcessor_Process(t *testing.T) {
	chunks := []domain.Chunk{
		{ID: "a", Content: "The Louvre opens at nine.", Position: 0},
		{ID: "b", Content: "Page 2", Position: 1},
		{ID: "c", Content: "Book the   Eiffel Tower early.", Position: 2},
		{ID: "d", Content: "The Louvre opens\nat nine.", Position: 3},
	}

	out, err := New(WithMinChars(10)).Process(context.Background(), &domain.Document{}, chunks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %+v", len(out), out)
	}
	if out[0].ID != "a" || out[1].ID != "c" {
		t.Errorf("unexpected survivors %s, %s", out[0].ID, out[1].ID)
	}
	for i, c := range out {
		if c.Position != i {
			t.Errorf("chunk %s has position %d, want %d", c.ID, c.Position, i)
		}
	}
}

func TestProcessor_Process_KeepsLongestWhenAllShort(t *testing.T) {
	chunks := []domain.Chunk{
		{ID: "a", Content: "Hi"},
		{ID: "b", Content: "Rome"},
	}

	out, err := New().Process(context.Background(), &domain.Document{}, chunks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 || out[0].ID != "b" || out[0].Position != 0 {
		t.Errorf("expected only chunk b at position 0, got %+v", out)
	}
}

func TestProcessor_Process_Empty(t *testing.T) {
	out, err := New().Process(context.Background(), &domain.Document{}, nil)
	if err != nil || len(out) != 0 {
		t.Errorf("expected no chunks and no error, got %v, %v", out, err)
	}
}
