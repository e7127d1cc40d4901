package batch

import (
	"strings"

	"github.com/crewkit/crewkit-go/crewkit"
)

// minResponseChars is the quality floor for a parsed persona section.
// Anything shorter is treated as a degenerate answer and fails the batch.
const minResponseChars = 50

// ParseResponse splits a batched completion back into per-persona answers.
//
// The raw text is scanned line by line. A line whose trimmed form equals a
// persona's marker opens that persona's section; the section runs until the
// next marker, the end sentinel, or end of input. Marker-shaped lines for
// unknown ids are kept as content. Section bodies are whitespace-trimmed.
//
// After the scan, a section missing for any expected persona yields
// IncompleteResponseError and a section under the quality floor yields
// QualityValidationFailedError. Completeness is checked first.
func ParseResponse(raw string, personaIDs []string) (map[string]string, error) {
	expected := make(map[string]bool, len(personaIDs))
	for _, id := range personaIDs {
		expected[id] = true
	}

	sections := make(map[string]string, len(personaIDs))
	var current string
	var body strings.Builder

	flush := func() {
		if current == "" {
			return
		}
		sections[current] = strings.TrimSpace(body.String())
		current = ""
		body.Reset()
	}

	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == endSentinel {
			flush()
			break
		}
		if id, ok := markerID(trimmed); ok && expected[id] {
			flush()
			current = id
			continue
		}
		if current != "" {
			body.WriteString(line)
			body.WriteString("\n")
		}
	}
	flush()

	// An empty captured block counts as missing, not as a quality failure.
	var missing []string
	for _, id := range personaIDs {
		if body, ok := sections[id]; !ok || body == "" {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return nil, &crewkit.IncompleteResponseError{MissingIDs: missing}
	}

	for _, id := range personaIDs {
		if n := len(sections[id]); n < minResponseChars {
			return nil, &crewkit.QualityValidationFailedError{
				PersonaID: id,
				Length:    n,
				MinLength: minResponseChars,
			}
		}
	}

	return sections, nil
}

// markerID reports whether a trimmed line is marker-shaped, and the id it
// names. The marker must span the whole line; the length check keeps a
// degenerate line like "---CREW: ---" from overlapping prefix and suffix.
func markerID(line string) (string, bool) {
	if len(line) < len(crewMarkerPrefix)+len(crewMarkerSuffix) {
		return "", false
	}
	if !strings.HasPrefix(line, crewMarkerPrefix) || !strings.HasSuffix(line, crewMarkerSuffix) {
		return "", false
	}
	id := line[len(crewMarkerPrefix) : len(line)-len(crewMarkerSuffix)]
	if id == "" {
		return "", false
	}
	return id, true
}
