package chords

import (
	"github.com/songsmith/songsmith-api/internal/song"
	"github.com/songsmith/songsmith-api/internal/theory"
)

// FallbackProgressions builds progressions from the style template: one chord
// per bar, the template tiled across each section. Never fails for any
// normalized request; unknown styles use the generic template.
func FallbackProgressions(req song.CompositionRequest, sections []song.Section) map[song.SectionKind]*song.ChordProgression {
	template, _ := theory.StyleTemplateFor(req.Style)
	beatsPerBar := req.TimeSignature.BeatsPerBar()

	out := make(map[song.SectionKind]*song.ChordProgression, len(sections))
	for _, s := range sections {
		symbols := template.VerseChords
		if s.Kind == song.SectionChorus {
			symbols = template.ChorusChords
		}

		progression := &song.ChordProgression{Section: s.Kind}
		for bar := 0; bar < s.Bars; bar++ {
			symbol := symbols[bar%len(symbols)]
			event, err := resolveChordEvent(symbol, float64(bar)*beatsPerBar, beatsPerBar)
			if err != nil {
				// Template symbols always parse; keep time moving regardless.
				continue
			}
			progression.Events = append(progression.Events, event)
		}
		out[s.Kind] = progression
	}

	return out
}
