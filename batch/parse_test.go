package batch

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/crewkit/crewkit-go/crewkit"
)

func filler(n int) string {
	return strings.Repeat("x", n)
}

func TestParseResponseSplitsAllSections(t *testing.T) {
	ids := []string{"architect", "skeptic", "optimist"}
	raw := strings.Join([]string{
		"---CREW: architect ---",
		"The architect's answer. " + filler(60),
		"",
		"---CREW: skeptic ---",
		"The skeptic's answer. " + filler(60),
		"---CREW: optimist ---",
		"The optimist's answer. " + filler(60),
		"---END_RESPONSES---",
	}, "\n")

	sections, err := ParseResponse(raw, ids)
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if len(sections) != len(ids) {
		t.Fatalf("got %d sections, want %d", len(sections), len(ids))
	}
	for _, id := range ids {
		body, ok := sections[id]
		if !ok {
			t.Errorf("missing section for %s", id)
			continue
		}
		if !strings.Contains(body, id+"'s answer") {
			t.Errorf("section for %s holds wrong body: %q", id, body)
		}
		if strings.HasPrefix(body, "\n") || strings.HasSuffix(body, "\n") {
			t.Errorf("section for %s not trimmed: %q", id, body)
		}
	}
}

// Any group size with a well-formed reply must parse to exactly one entry
// per requested persona.
func TestParseResponseExactEntryPerPersona(t *testing.T) {
	for _, n := range []int{2, 5, 9} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			var ids []string
			var b strings.Builder
			for i := 0; i < n; i++ {
				id := fmt.Sprintf("persona-%d", i)
				ids = append(ids, id)
				b.WriteString(marker(id))
				b.WriteString("\nanswer body for ")
				b.WriteString(id)
				b.WriteString(" ")
				b.WriteString(filler(50))
				b.WriteString("\n")
			}
			b.WriteString(endSentinel)

			sections, err := ParseResponse(b.String(), ids)
			if err != nil {
				t.Fatalf("ParseResponse: %v", err)
			}
			if len(sections) != n {
				t.Fatalf("got %d sections, want %d", len(sections), n)
			}
		})
	}
}

func TestParseResponseMissingSection(t *testing.T) {
	raw := "---CREW: alpha ---\nonly alpha answered here " + filler(50) + "\n---END_RESPONSES---"

	_, err := ParseResponse(raw, []string{"alpha", "beta", "gamma"})
	var incomplete *crewkit.IncompleteResponseError
	if !errors.As(err, &incomplete) {
		t.Fatalf("expected IncompleteResponseError, got %v", err)
	}
	want := []string{"beta", "gamma"}
	if len(incomplete.MissingIDs) != len(want) {
		t.Fatalf("MissingIDs = %v, want %v", incomplete.MissingIDs, want)
	}
	for i, id := range want {
		if incomplete.MissingIDs[i] != id {
			t.Errorf("MissingIDs[%d] = %s, want %s", i, incomplete.MissingIDs[i], id)
		}
	}
}

func TestParseResponseShortSection(t *testing.T) {
	raw := strings.Join([]string{
		"---CREW: alpha ---",
		filler(80),
		"---CREW: beta ---",
		"too short",
		"---END_RESPONSES---",
	}, "\n")

	_, err := ParseResponse(raw, []string{"alpha", "beta"})
	var quality *crewkit.QualityValidationFailedError
	if !errors.As(err, &quality) {
		t.Fatalf("expected QualityValidationFailedError, got %v", err)
	}
	if quality.PersonaID != "beta" {
		t.Errorf("PersonaID = %s, want beta", quality.PersonaID)
	}
	if quality.MinLength != minResponseChars {
		t.Errorf("MinLength = %d, want %d", quality.MinLength, minResponseChars)
	}
}

// Completeness is validated before the quality floor, so a reply that is
// both missing a section and short elsewhere reports the missing persona.
func TestParseResponseCompletenessCheckedFirst(t *testing.T) {
	raw := "---CREW: alpha ---\nshort\n---END_RESPONSES---"

	_, err := ParseResponse(raw, []string{"alpha", "beta"})
	var incomplete *crewkit.IncompleteResponseError
	if !errors.As(err, &incomplete) {
		t.Fatalf("expected IncompleteResponseError, got %v", err)
	}
}

// A reply line where prefix and suffix overlap must read as content, not
// crash the scanner; the group then degrades to the normal fallback path.
func TestParseResponseDegenerateMarkerLine(t *testing.T) {
	raw := strings.Join([]string{
		"---CREW: alpha ---",
		"---CREW: ---",
		filler(80),
		"---END_RESPONSES---",
	}, "\n")

	sections, err := ParseResponse(raw, []string{"alpha", "beta"})
	if err == nil {
		t.Fatalf("expected incomplete error, got sections %v", sections)
	}
	var incomplete *crewkit.IncompleteResponseError
	if !errors.As(err, &incomplete) {
		t.Fatalf("expected IncompleteResponseError, got %v", err)
	}
	if len(incomplete.MissingIDs) != 1 || incomplete.MissingIDs[0] != "beta" {
		t.Errorf("MissingIDs = %v, want [beta]", incomplete.MissingIDs)
	}
}

func TestParseResponseEmptySectionCountsAsMissing(t *testing.T) {
	raw := strings.Join([]string{
		"---CREW: alpha ---",
		"---CREW: beta ---",
		filler(80),
		"---END_RESPONSES---",
	}, "\n")

	_, err := ParseResponse(raw, []string{"alpha", "beta"})
	var incomplete *crewkit.IncompleteResponseError
	if !errors.As(err, &incomplete) {
		t.Fatalf("expected IncompleteResponseError for empty block, got %v", err)
	}
	if len(incomplete.MissingIDs) != 1 || incomplete.MissingIDs[0] != "alpha" {
		t.Errorf("MissingIDs = %v, want [alpha]", incomplete.MissingIDs)
	}
}

func TestParseResponseMarkerMidLineIsContent(t *testing.T) {
	raw := strings.Join([]string{
		"---CREW: alpha ---",
		"a mention of ---CREW: beta --- inside a sentence " + filler(50),
		"---CREW: beta ---",
		filler(80),
		"---END_RESPONSES---",
	}, "\n")

	sections, err := ParseResponse(raw, []string{"alpha", "beta"})
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if !strings.Contains(sections["alpha"], "inside a sentence") {
		t.Errorf("mid-line marker mention dropped from alpha's body")
	}
}

func TestParseResponseUnknownMarkerKeptAsContent(t *testing.T) {
	raw := strings.Join([]string{
		"---CREW: alpha ---",
		"---CREW: stranger ---",
		filler(80),
		"---END_RESPONSES---",
	}, "\n")

	sections, err := ParseResponse(raw, []string{"alpha"})
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if !strings.Contains(sections["alpha"], "stranger") {
		t.Errorf("unknown marker line should stay in the section body")
	}
}

func TestParseResponseTextAfterSentinelIgnored(t *testing.T) {
	raw := strings.Join([]string{
		"---CREW: alpha ---",
		filler(80),
		"---END_RESPONSES---",
		"trailing chatter the model added",
	}, "\n")

	sections, err := ParseResponse(raw, []string{"alpha"})
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if strings.Contains(sections["alpha"], "trailing chatter") {
		t.Errorf("content after the end sentinel leaked into a section")
	}
}

func BenchmarkParseResponse(b *testing.B) {
	var ids []string
	var raw strings.Builder
	for i := 0; i < 8; i++ {
		id := fmt.Sprintf("persona-%d", i)
		ids = append(ids, id)
		raw.WriteString(marker(id))
		raw.WriteString("\n")
		raw.WriteString(filler(2000))
		raw.WriteString("\n")
	}
	raw.WriteString(endSentinel)
	text := raw.String()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := ParseResponse(text, ids); err != nil {
			b.Fatal(err)
		}
	}
}

func TestParseResponseWithoutSentinel(t *testing.T) {
	// Models sometimes stop before emitting the sentinel; the last section
	// still runs to end of input.
	raw := "---CREW: alpha ---\n" + filler(80)

	sections, err := ParseResponse(raw, []string{"alpha"})
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if len(sections["alpha"]) != 80 {
		t.Errorf("section length = %d, want 80", len(sections["alpha"]))
	}
}
