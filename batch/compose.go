// Package batch merges concurrent persona requests into combined upstream
// calls and splits the replies back out.
//
// Personas sharing a model and temperature are grouped; a multi-member
// group becomes one upstream call using the delimiter protocol, parsed back
// into per-persona answers with attribution of the call's token usage and
// cost. A reply that cannot be split cleanly falls back to one call per
// persona, so the caller always gets exactly one result per persona.
package batch

import (
	"fmt"
	"math"
	"strings"

	"github.com/crewkit/crewkit-go/crewkit"
)

// Delimiter protocol markers. A persona section starts with a marker line
// and runs until the next marker or the end sentinel.
const (
	crewMarkerPrefix = "---CREW: "
	crewMarkerSuffix = " ---"
	endSentinel      = "---END_RESPONSES---"
)

// Cross-persona output buffer applied to the summed per-persona caps.
const outputBufferFactor = 1.1

const composePreamble = "You will answer the following request as multiple distinct crew members. " +
	"Each crew member has their own role and perspective, described below. " +
	"Answer for every crew member separately, staying fully in that member's role."

// marker returns the delimiter line for a persona id.
func marker(personaID string) string {
	return crewMarkerPrefix + personaID + crewMarkerSuffix
}

// validatePersonaID rejects ids that would corrupt the delimiter protocol.
func validatePersonaID(id string) error {
	if id == "" {
		return fmt.Errorf("empty persona id")
	}
	if strings.ContainsAny(id, "\n\r") {
		return fmt.Errorf("persona id %q contains line breaks", id)
	}
	if strings.Contains(id, "---") {
		return fmt.Errorf("persona id %q contains delimiter glyphs", id)
	}
	return nil
}

// ComposePrompt builds the single user-role message for a multi-member
// group, and the max output tokens to request: the sum of the per-persona
// caps with a 10% cross-persona buffer.
//
// Wire format, in order: a fixed preamble, the shared request stated once,
// formatting instructions listing one delimited block per persona ending
// with the end sentinel, and a labelled detail section with each persona's
// name and full system prompt.
func ComposePrompt(requests []crewkit.PersonaRequest, perPersonaMaxTokens []int) (string, int, error) {
	if len(requests) < 2 {
		return "", 0, fmt.Errorf("composition requires at least 2 personas, got %d", len(requests))
	}
	if len(perPersonaMaxTokens) != len(requests) {
		return "", 0, fmt.Errorf("per-persona token caps: got %d, want %d", len(perPersonaMaxTokens), len(requests))
	}
	for _, req := range requests {
		if err := validatePersonaID(req.PersonaID); err != nil {
			return "", 0, err
		}
	}

	var b strings.Builder

	b.WriteString(composePreamble)
	b.WriteString("\n\nREQUEST:\n")
	b.WriteString(requests[0].UserRequest)

	b.WriteString("\n\nFORMAT YOUR RESPONSE EXACTLY AS FOLLOWS:\n\n")
	for _, req := range requests {
		b.WriteString(marker(req.PersonaID))
		b.WriteString("\n[")
		b.WriteString(req.PersonaName)
		b.WriteString("'s complete answer]\n\n")
	}
	b.WriteString(endSentinel)
	b.WriteString("\n")

	b.WriteString("\nCREW MEMBER DETAILS:\n")
	for _, req := range requests {
		b.WriteString("\n==========\n")
		b.WriteString(fmt.Sprintf("%s (%s):\n", req.PersonaName, req.PersonaID))
		b.WriteString(req.SystemPrompt)
		b.WriteString("\n")
	}

	total := 0
	for _, n := range perPersonaMaxTokens {
		total += n
	}
	maxTokens := int(math.Round(float64(total) * outputBufferFactor))

	return b.String(), maxTokens, nil
}
