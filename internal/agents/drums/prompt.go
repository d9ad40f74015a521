package drums

import (
	"fmt"
	"strings"

	"github.com/songsmith/songsmith-api/internal/song"
)

const systemPrompt = `You are a professional drummer. Create a one-bar drum groove as per-voice grids.

GRID: 16 chars = 1 bar. "x"=hit, "X"=accent, "o"=ghost, "-"=rest.
A 32-char grid doubles the subdivision (use it for rolling hats).

Keep it playable: a groove needs a foundation (kick), a backbeat (snare or clap),
and timekeeping (hats, ride or shaker). Three to five voices is plenty.`

// buildUserPrompt renders the brief and the target style.
func buildUserPrompt(req song.CompositionRequest, style string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Create the drum groove for %q.\n", req.Title)
	fmt.Fprintf(&b, "Target style: %s\n", style)
	fmt.Fprintf(&b, "Tempo: %d BPM, time signature %d/%d\n",
		req.Tempo, req.TimeSignature.Numerator, req.TimeSignature.Denominator)
	if req.Description != "" {
		fmt.Fprintf(&b, "Song description: %s\n", req.Description)
	}

	return b.String()
}
