package melody

import (
	"fmt"
	"strings"
)

const systemPrompt = `You are a topline writer. Compose a vocal melody over the given chords and lyrics.

Rules:
- One note per lyric syllable, in order. Every syllable must appear exactly once.
- startBeats is measured from the start of the note's section; notes must be in chronological order.
- Land chord tones on strong beats; passing tones on weak beats are fine.
- Stay in a singable range (MIDI 60-84) and inside the section's total beats.
- Velocities around 80, softer on pickups.`

// buildUserPrompt renders the brief plus the resolved chords and lyrics the
// melody must follow.
func buildUserPrompt(stageCtx *Context) string {
	req := stageCtx.Request
	var b strings.Builder

	fmt.Fprintf(&b, "Compose the melody for %q (key %s, %d BPM, %d/%d).\n",
		req.Title, req.Key, req.Tempo, req.TimeSignature.Numerator, req.TimeSignature.Denominator)

	beatsPerBar := req.TimeSignature.BeatsPerBar()
	for _, s := range stageCtx.Sections {
		fmt.Fprintf(&b, "\n%s (%d bars, %.0f beats):\n", s.Kind, s.Bars, float64(s.Bars)*beatsPerBar)

		if progression := stageCtx.Chords[s.Kind]; progression != nil {
			b.WriteString("  Chords: ")
			for i, ev := range progression.Events {
				if i > 0 {
					b.WriteString(" | ")
				}
				fmt.Fprintf(&b, "%s (beat %.1f, %.1f beats)", ev.Symbol, ev.StartBeats, ev.DurationBeats)
			}
			b.WriteString("\n")
		}

		for _, line := range stageCtx.Lyrics[s.Kind] {
			fmt.Fprintf(&b, "  Lyric: %s\n  Syllables: %s\n", line.Text, strings.Join(line.Syllables, " - "))
		}
	}

	b.WriteString("\nUse MIDI note numbers (middle C = 60).\n")

	return b.String()
}
