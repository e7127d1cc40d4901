package registry

import (
	"errors"
	"testing"

	"github.com/crewkit/crewkit-go/crewkit"
)

func TestNewValidation(t *testing.T) {
	t.Run("EmptyCatalog", func(t *testing.T) {
		if _, err := New(nil); err == nil {
			t.Error("expected error for empty catalog")
		}
	})

	t.Run("DuplicateID", func(t *testing.T) {
		_, err := New([]ModelEntry{
			{ID: "m1", QualityScore: 5},
			{ID: "m1", QualityScore: 6},
		})
		if err == nil {
			t.Error("expected error for duplicate id")
		}
	})

	t.Run("QualityOutOfRange", func(t *testing.T) {
		_, err := New([]ModelEntry{{ID: "m1", QualityScore: 11}})
		if err == nil {
			t.Error("expected error for quality score 11")
		}
	})

	t.Run("DefaultCatalog", func(t *testing.T) {
		if _, err := New(DefaultCatalog()); err != nil {
			t.Fatalf("default catalog failed validation: %v", err)
		}
	})
}

func TestLookup(t *testing.T) {
	reg := MustNew(DefaultCatalog())

	entry, err := reg.Lookup("claude-sonnet-4")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if entry.Provider != "anthropic" {
		t.Errorf("expected provider anthropic, got %s", entry.Provider)
	}

	_, err = reg.Lookup("no-such-model")
	var unknown *crewkit.UnknownModelError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownModelError, got %v", err)
	}
	if unknown.ModelID != "no-such-model" {
		t.Errorf("error names wrong model: %s", unknown.ModelID)
	}
}

func TestPrice(t *testing.T) {
	reg := MustNew([]ModelEntry{
		{ID: "m1", QualityScore: 5, InputCostPerMTok: 3.0, OutputCostPerMTok: 15.0},
	})

	// 1M input + 1M output at $3/$15
	got := reg.Price("m1", 1_000_000, 1_000_000)
	if got != 18.0 {
		t.Errorf("Price = %v, want 18.0", got)
	}

	// Fractional
	got = reg.Price("m1", 1000, 500)
	want := 0.003 + 0.0075
	if diff := got - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("Price = %v, want %v", got, want)
	}

	if reg.Price("unknown", 1000, 1000) != 0 {
		t.Error("unknown model should price to zero")
	}
}

func TestTierQueries(t *testing.T) {
	reg := MustNew(DefaultCatalog())

	t.Run("Cheapest", func(t *testing.T) {
		if got := reg.Cheapest().ID; got != "claude-haiku-3" {
			t.Errorf("Cheapest = %s, want claude-haiku-3", got)
		}
	})

	t.Run("HighestQualityReview", func(t *testing.T) {
		if got := reg.HighestQualityWithTag(TagReview).ID; got != "o3" {
			t.Errorf("review-tuned = %s, want o3", got)
		}
	})

	t.Run("HighestQualityReasoning", func(t *testing.T) {
		if got := reg.HighestQualityWithTag(TagReasoning).ID; got != "claude-opus-4" {
			t.Errorf("reasoning = %s, want claude-opus-4", got)
		}
	})

	t.Run("MissingTag", func(t *testing.T) {
		if reg.HighestQualityWithTag("no-such-tag") != nil {
			t.Error("expected nil for unused tag")
		}
	})
}

func TestCheaperThan(t *testing.T) {
	reg := MustNew(DefaultCatalog())

	cheaper := reg.CheaperThan("claude-opus-4", 10_000, 2_000)
	if len(cheaper) != len(DefaultCatalog())-1 {
		t.Fatalf("everything should be cheaper than opus: got %d entries", len(cheaper))
	}

	// Sorted ascending by cost for this token mix.
	for i := 1; i < len(cheaper); i++ {
		prev := reg.Price(cheaper[i-1].ID, 10_000, 2_000)
		cur := reg.Price(cheaper[i].ID, 10_000, 2_000)
		if cur < prev {
			t.Errorf("CheaperThan not sorted: %s ($%f) before %s ($%f)",
				cheaper[i-1].ID, prev, cheaper[i].ID, cur)
		}
	}

	if got := reg.CheaperThan("claude-haiku-3", 10_000, 2_000); len(got) != 0 {
		t.Errorf("nothing should be cheaper than haiku, got %d", len(got))
	}
}
