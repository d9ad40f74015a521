package theory

// General MIDI program numbers for the song's instrument tracks.
const (
	ProgramPiano   = 0  // Acoustic Grand Piano
	ProgramStrings = 48 // String Ensemble 1
	ProgramMelody  = 73 // Flute
)

// MIDI channel assignments.
const (
	ChannelPiano   = 0
	ChannelMelody  = 1
	ChannelStrings = 2
	ChannelDrums   = 9 // GM percussion channel
)

// Default track velocities.
const (
	ChordVelocity   = 64
	MelodyVelocity  = 80
	StringsVelocity = 50
)

// StyleTemplate carries the deterministic musical defaults for a style:
// the progressions used when generation falls back, and the drum style.
type StyleTemplate struct {
	Name         string
	VerseChords  []string
	ChorusChords []string
	DrumStyle    string
}

var styleTemplates = map[string]StyleTemplate{
	"generic": {
		Name:         "generic",
		VerseChords:  []string{"C", "G", "Am", "F"},
		ChorusChords: []string{"F", "C", "G", "Am"},
		DrumStyle:    "basic",
	},
	"pop": {
		Name:         "pop",
		VerseChords:  []string{"C", "G", "Am", "F"},
		ChorusChords: []string{"F", "C", "G", "Am"},
		DrumStyle:    "pop",
	},
	"rock": {
		Name:         "rock",
		VerseChords:  []string{"E", "D", "A", "E"},
		ChorusChords: []string{"A", "D", "E", "A"},
		DrumStyle:    "rock",
	},
	"jazz": {
		Name:         "jazz",
		VerseChords:  []string{"Dm7", "G7", "Cmaj7", "Am7"},
		ChorusChords: []string{"Fmaj7", "Em7", "Dm7", "G7"},
		DrumStyle:    "jazz",
	},
	"hip_hop": {
		Name:         "hip_hop",
		VerseChords:  []string{"Am", "F", "C", "G"},
		ChorusChords: []string{"F", "G", "Am", "Am"},
		DrumStyle:    "hip_hop",
	},
	"r_and_b": {
		Name:         "r_and_b",
		VerseChords:  []string{"Fmaj7", "Em7", "Dm7", "Cmaj7"},
		ChorusChords: []string{"Dm7", "Em7", "Fmaj7", "G7"},
		DrumStyle:    "r_and_b",
	},
	"electronic": {
		Name:         "electronic",
		VerseChords:  []string{"Am", "C", "G", "F"},
		ChorusChords: []string{"F", "G", "Am", "C"},
		DrumStyle:    "electronic",
	},
	"latin": {
		Name:         "latin",
		VerseChords:  []string{"Am", "Dm", "E7", "Am"},
		ChorusChords: []string{"Dm", "Am", "E7", "Am"},
		DrumStyle:    "latin",
	},
	"folk": {
		Name:         "folk",
		VerseChords:  []string{"G", "C", "D", "G"},
		ChorusChords: []string{"C", "G", "D", "Em"},
		DrumStyle:    "basic",
	},
}

// StyleTemplateFor resolves a style template from free-form style text.
// Unknown styles fall back to "generic", reported via the second return.
func StyleTemplateFor(style string) (StyleTemplate, bool) {
	if tmpl, ok := styleTemplates[normalizeStyleName(style)]; ok {
		return tmpl, true
	}

	// Keyword match against the free-form description
	inferred := InferDrumStyle(style)
	if tmpl, ok := styleTemplates[inferred]; ok && inferred != "basic" {
		return tmpl, true
	}

	return styleTemplates["generic"], false
}
