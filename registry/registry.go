// Package registry provides the static model catalog.
//
// The registry is a read-only lookup of model identifiers with per-million-
// token pricing, a 1-10 quality score, a typical latency figure, and
// capability tags. It is loaded once at startup; an unknown model id is a
// configuration error, not a runtime condition.
package registry

import (
	"fmt"
	"sort"

	"github.com/crewkit/crewkit-go/crewkit"
)

// Capability tags used by the router's tier selection.
const (
	TagCheap     = "cheap"
	TagBalanced  = "balanced"
	TagReview    = "review"
	TagReasoning = "reasoning"
)

// ModelEntry describes one model in the catalog.
//
// InputCostPerMTok and OutputCostPerMTok are dollars per one million tokens.
type ModelEntry struct {
	ID                string   `json:"id"`
	DisplayName       string   `json:"display_name"`
	Provider          string   `json:"provider"`
	InputCostPerMTok  float64  `json:"input_cost_per_mtok"`
	OutputCostPerMTok float64  `json:"output_cost_per_mtok"`
	SpeedMs           int      `json:"speed_ms"`
	QualityScore      int      `json:"quality_score"`
	BestFor           []string `json:"best_for"`
}

// HasTag reports whether the entry carries the given capability tag.
func (e *ModelEntry) HasTag(tag string) bool {
	for _, t := range e.BestFor {
		if t == tag {
			return true
		}
	}
	return false
}

// Registry is an immutable catalog of model entries keyed by id.
//
// Example:
//
//	reg, err := registry.New(registry.DefaultCatalog())
//	entry, err := reg.Lookup("claude-sonnet-4")
//	cost := reg.Price("claude-sonnet-4", 1000, 500)
type Registry struct {
	entries map[string]*ModelEntry
	ordered []*ModelEntry
}

// New builds a registry from the given entries. Entries are validated once
// here; duplicate or malformed ids fail construction.
func New(entries []ModelEntry) (*Registry, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("registry requires at least one model entry")
	}

	r := &Registry{entries: make(map[string]*ModelEntry, len(entries))}
	for i := range entries {
		e := entries[i]
		if e.ID == "" {
			return nil, fmt.Errorf("registry entry %d has empty id", i)
		}
		if _, dup := r.entries[e.ID]; dup {
			return nil, fmt.Errorf("duplicate registry entry: %s", e.ID)
		}
		if e.QualityScore < 1 || e.QualityScore > 10 {
			return nil, fmt.Errorf("model %s: quality score %d out of range 1-10", e.ID, e.QualityScore)
		}
		if e.InputCostPerMTok < 0 || e.OutputCostPerMTok < 0 {
			return nil, fmt.Errorf("model %s: negative pricing", e.ID)
		}
		r.entries[e.ID] = &e
		r.ordered = append(r.ordered, &e)
	}
	return r, nil
}

// MustNew is New but panics on error. Intended for the default catalog and
// tests, where a bad catalog is a programming error.
func MustNew(entries []ModelEntry) *Registry {
	r, err := New(entries)
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup returns the entry for the given model id.
func (r *Registry) Lookup(modelID string) (*ModelEntry, error) {
	entry, ok := r.entries[modelID]
	if !ok {
		return nil, &crewkit.UnknownModelError{ModelID: modelID}
	}
	return entry, nil
}

// Contains reports whether the registry knows the given model id.
func (r *Registry) Contains(modelID string) bool {
	_, ok := r.entries[modelID]
	return ok
}

// Price computes the dollar cost of a call against the catalog's pricing.
// An unknown model prices to zero; callers are expected to have validated
// model ids at startup via Lookup.
func (r *Registry) Price(modelID string, inputTokens, outputTokens int) float64 {
	entry, ok := r.entries[modelID]
	if !ok {
		return 0
	}
	return float64(inputTokens)/1e6*entry.InputCostPerMTok +
		float64(outputTokens)/1e6*entry.OutputCostPerMTok
}

// List returns all entries in catalog order.
func (r *Registry) List() []*ModelEntry {
	out := make([]*ModelEntry, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Cheapest returns the entry with the lowest combined per-million pricing.
func (r *Registry) Cheapest() *ModelEntry {
	var best *ModelEntry
	for _, e := range r.ordered {
		if best == nil || e.InputCostPerMTok+e.OutputCostPerMTok < best.InputCostPerMTok+best.OutputCostPerMTok {
			best = e
		}
	}
	return best
}

// HighestQualityWithTag returns the highest-quality entry carrying the tag,
// or nil if none does.
func (r *Registry) HighestQualityWithTag(tag string) *ModelEntry {
	var best *ModelEntry
	for _, e := range r.ordered {
		if !e.HasTag(tag) {
			continue
		}
		if best == nil || e.QualityScore > best.QualityScore {
			best = e
		}
	}
	return best
}

// CheaperThan returns entries whose cost for the given token mix is strictly
// below that of the reference model, sorted by ascending cost.
func (r *Registry) CheaperThan(modelID string, inputTokens, outputTokens int) []*ModelEntry {
	ref := r.Price(modelID, inputTokens, outputTokens)
	var out []*ModelEntry
	for _, e := range r.ordered {
		if e.ID == modelID {
			continue
		}
		if r.Price(e.ID, inputTokens, outputTokens) < ref {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return r.Price(out[i].ID, inputTokens, outputTokens) < r.Price(out[j].ID, inputTokens, outputTokens)
	})
	return out
}
