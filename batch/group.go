package batch

import (
	"fmt"
	"math"

	"github.com/crewkit/crewkit-go/crewkit"
)

// Group is a set of persona requests that resolved to the same model and
// the same sampling temperature, eligible for one combined upstream call.
type Group struct {
	ModelID     string
	Temperature float64
	Requests    []crewkit.PersonaRequest
}

// groupKey identifies a batch group. Temperature is rounded to 2 decimals
// so float jitter does not split groups that were configured identically.
type groupKey struct {
	modelID     string
	temperature float64
}

func roundTemp(t float64) float64 {
	return math.Round(t*100) / 100
}

// resolver maps a request plus an optional per-persona override to a
// cataloged model id. *router.Router satisfies this.
type resolver interface {
	Resolve(req crewkit.PersonaRequest, override string) (string, error)
}

// buildGroups partitions requests into batch groups, resolving each
// request's model through the router and honoring per-persona assignment
// overrides. Group order and member order follow first appearance in the
// input, so composition and attribution are deterministic.
func buildGroups(requests []crewkit.PersonaRequest, assignments map[string]string, r resolver) ([]Group, error) {
	seen := make(map[string]bool, len(requests))
	index := make(map[groupKey]int, len(requests))
	var groups []Group

	for _, req := range requests {
		if seen[req.PersonaID] {
			return nil, fmt.Errorf("duplicate persona id %q in round", req.PersonaID)
		}
		seen[req.PersonaID] = true

		modelID, err := r.Resolve(req, assignments[req.PersonaID])
		if err != nil {
			return nil, err
		}

		key := groupKey{modelID: modelID, temperature: roundTemp(req.Temperature)}
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, Group{ModelID: modelID, Temperature: key.temperature})
		}
		groups[i].Requests = append(groups[i].Requests, req)
	}

	return groups, nil
}
