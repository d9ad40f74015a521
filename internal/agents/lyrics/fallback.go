package lyrics

import (
	"github.com/songsmith/songsmith-api/internal/song"
	"github.com/songsmith/songsmith-api/internal/theory"
)

// Canned section lyrics used when generation fails. Deliberately neutral so
// they fit any brief.
var fallbackTexts = map[song.SectionKind][]string{
	song.SectionVerse: {
		"Walking down an empty street tonight",
		"City lights are fading out of view",
		"Every step is taking me somewhere",
		"Somewhere I was always meant to go",
	},
	song.SectionChorus: {
		"And we sing it loud",
		"Let the music carry us away",
		"And we sing it loud",
		"We were always meant to find our way",
	},
}

// FallbackLines returns the canned lyrics for each section, syllabified the
// same way generated lines are. Never fails.
func FallbackLines(sections []song.Section) map[song.SectionKind][]song.LyricLine {
	out := make(map[song.SectionKind][]song.LyricLine, len(sections))
	for _, s := range sections {
		texts, ok := fallbackTexts[s.Kind]
		if !ok {
			texts = fallbackTexts[song.SectionVerse]
		}
		lines := make([]song.LyricLine, 0, len(texts))
		for _, text := range texts {
			lines = append(lines, song.LyricLine{
				Text:      text,
				Syllables: theory.Syllabify(text),
			})
		}
		out[s.Kind] = lines
	}
	return out
}
