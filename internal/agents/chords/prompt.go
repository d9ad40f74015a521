package chords

import (
	"fmt"
	"strings"

	"github.com/songsmith/songsmith-api/internal/song"
)

const systemPrompt = `You are a songwriter's harmony assistant. Write chord progressions for a song's sections.

Rules:
- Use standard chord symbols: C, Am, F#m7, Cmaj7, G7, Dsus4, Em/G.
- Stay diatonic to the requested key unless the style calls for borrowed chords.
- Each section's chord durations must sum exactly to the section's total beats.
- Prefer one chord per bar; split a bar only for a deliberate push.
- Verse and chorus should feel related but distinct (the chorus usually opens away from the tonic).`

// buildUserPrompt renders the brief and the required section layout.
func buildUserPrompt(req song.CompositionRequest, sections []song.Section) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Write chord progressions for %q.\n", req.Title)
	fmt.Fprintf(&b, "Style: %s\n", orUnspecified(req.Style))
	fmt.Fprintf(&b, "Key: %s\n", req.Key)
	fmt.Fprintf(&b, "Tempo: %d BPM, time signature %d/%d\n",
		req.Tempo, req.TimeSignature.Numerator, req.TimeSignature.Denominator)
	if req.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", req.Description)
	}
	if len(req.Inspirations) > 0 {
		fmt.Fprintf(&b, "Inspirations: %s\n", strings.Join(req.Inspirations, ", "))
	}

	b.WriteString("\nSections:\n")
	beatsPerBar := req.TimeSignature.BeatsPerBar()
	for _, s := range sections {
		fmt.Fprintf(&b, "- %s: %d bars (%.0f beats total)\n", s.Kind, s.Bars, float64(s.Bars)*beatsPerBar)
	}

	return b.String()
}

func orUnspecified(s string) string {
	if strings.TrimSpace(s) == "" {
		return "unspecified"
	}
	return s
}
