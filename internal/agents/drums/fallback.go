package drums

import (
	"github.com/songsmith/songsmith-api/internal/song"
	"github.com/songsmith/songsmith-api/internal/theory"
)

// FallbackPattern expands the style's grid template into a tick-stamped loop.
// Unknown styles use the basic template, so this never fails.
func FallbackPattern(style string, loopTicks int) *song.DrumPattern {
	grids, known := theory.DrumStylePatterns(style)
	if !known {
		style = "basic"
	}

	pattern := &song.DrumPattern{Style: style, LoopTicks: loopTicks}
	for _, g := range grids {
		note, ok := theory.DrumNotes[g.Drum]
		if !ok {
			continue
		}
		hits, err := theory.ExpandGrid(g.Grid, loopTicks)
		if err != nil {
			continue
		}
		for _, h := range hits {
			pattern.Hits = append(pattern.Hits, song.DrumHit{
				Instrument: note,
				Tick:       h.Tick,
				Velocity:   h.Velocity,
			})
		}
	}

	return pattern
}
