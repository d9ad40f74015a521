package song

import (
	"fmt"
	"strings"

	"github.com/songsmith/songsmith-api/internal/theory"
)

// Section kinds
type SectionKind string

const (
	SectionVerse  SectionKind = "verse"
	SectionChorus SectionKind = "chorus"
)

// PartSource records whether a part came from the generator or the
// deterministic fallback tables.
type PartSource string

const (
	SourceGenerator PartSource = "generator"
	SourceFallback  PartSource = "fallback"
)

// Pipeline stage names, also used as keys in Composition.Sources.
const (
	StageChords = "chords"
	StageLyrics = "lyrics"
	StageMelody = "melody"
	StageDrums  = "drums"
)

// Request limits
const (
	TempoMin   = 40
	TempoMax   = 240
	BarsMin    = 4
	BarsMax    = 64
	DefaultKey = "C"

	defaultTempo = 120
	defaultBars  = 16
)

// TimeSignature is the song's meter.
type TimeSignature struct {
	Numerator   int `json:"numerator"`
	Denominator int `json:"denominator"`
}

// BeatsPerBar returns the number of quarter-note beats in one bar.
func (ts TimeSignature) BeatsPerBar() float64 {
	if ts.Denominator == 0 {
		return 4
	}
	return float64(ts.Numerator) * 4 / float64(ts.Denominator)
}

// CompositionRequest is the validated song brief.
type CompositionRequest struct {
	Title         string        `json:"title"`
	Description   string        `json:"description"`
	Style         string        `json:"style"`
	Key           string        `json:"key"`
	Tempo         int           `json:"tempo"`
	Bars          int           `json:"bars"`
	TimeSignature TimeSignature `json:"timeSignature"`
	DrumStyle     string        `json:"drumStyle,omitempty"`
	Inspirations  []string      `json:"inspirations,omitempty"`
}

// RequestError marks an invalid composition request. It is the only error
// class that moves a pipeline run to the failed state.
type RequestError struct {
	Field  string
	Reason string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("invalid request: %s: %s", e.Field, e.Reason)
}

// Normalize fills defaults and validates the request in place.
func (r *CompositionRequest) Normalize() error {
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		return &RequestError{Field: "title", Reason: "must not be empty"}
	}

	if r.Tempo == 0 {
		r.Tempo = defaultTempo
	}
	if r.Tempo < TempoMin || r.Tempo > TempoMax {
		return &RequestError{Field: "tempo", Reason: fmt.Sprintf("must be between %d and %d BPM", TempoMin, TempoMax)}
	}

	if r.Bars == 0 {
		r.Bars = defaultBars
	}
	if r.Bars < BarsMin || r.Bars > BarsMax {
		return &RequestError{Field: "bars", Reason: fmt.Sprintf("must be between %d and %d", BarsMin, BarsMax)}
	}
	if r.Bars%2 != 0 {
		return &RequestError{Field: "bars", Reason: "must be even (half verse, half chorus)"}
	}

	if r.TimeSignature.Numerator == 0 && r.TimeSignature.Denominator == 0 {
		r.TimeSignature = TimeSignature{Numerator: 4, Denominator: 4}
	}
	if r.TimeSignature.Numerator < 1 || r.TimeSignature.Numerator > 32 {
		return &RequestError{Field: "timeSignature", Reason: "numerator out of range"}
	}
	switch r.TimeSignature.Denominator {
	case 1, 2, 4, 8, 16, 32:
	default:
		return &RequestError{Field: "timeSignature", Reason: "denominator must be a power of two"}
	}

	if r.Key == "" {
		r.Key = DefaultKey
	}
	if _, err := theory.ParseKey(r.Key); err != nil {
		return &RequestError{Field: "key", Reason: err.Error()}
	}

	return nil
}

// Section is a contiguous span of bars with one musical role.
type Section struct {
	Kind     SectionKind `json:"kind"`
	StartBar int         `json:"startBar"` // 0-based
	Bars     int         `json:"bars"`
}

// ChordEvent is one chord in a progression, positioned in beats from the
// start of its section.
type ChordEvent struct {
	Symbol        string  `json:"symbol"`
	Root          string  `json:"root"`
	Quality       string  `json:"quality"`
	Pitches       []int   `json:"pitches"`
	StartBeats    float64 `json:"startBeats"`
	DurationBeats float64 `json:"durationBeats"`
}

// ChordProgression is the harmony of one section.
type ChordProgression struct {
	Section SectionKind  `json:"section"`
	Events  []ChordEvent `json:"events"`
}

// LyricLine is one line of lyrics with its syllable split.
type LyricLine struct {
	Text      string   `json:"text"`
	Syllables []string `json:"syllables"`
}

// NoteEvent is one melody note. Rest gaps are implicit: a note starts where
// its StartBeats says, regardless of the previous note's end.
type NoteEvent struct {
	MidiNoteNumber int     `json:"midiNoteNumber"`
	Velocity       int     `json:"velocity"`
	StartBeats     float64 `json:"startBeats"`
	DurationBeats  float64 `json:"durationBeats"`
	Syllable       string  `json:"syllable,omitempty"`
}

// MelodyLine is the melody of one section.
type MelodyLine struct {
	Section SectionKind `json:"section"`
	Notes   []NoteEvent `json:"notes"`
}

// DrumHit is one percussion hit inside the drum loop, positioned in ticks.
type DrumHit struct {
	Instrument int `json:"instrument"` // GM percussion note number
	Tick       int `json:"tick"`
	Velocity   int `json:"velocity"`
}

// DrumPattern is a loop that the assembler tiles across the whole song.
type DrumPattern struct {
	Style     string    `json:"style"`
	LoopTicks int       `json:"loopTicks"`
	Hits      []DrumHit `json:"hits"`
}

// Composition is the fully assembled song entity.
type Composition struct {
	ID       string                            `json:"id"`
	Request  CompositionRequest                `json:"request"`
	Sections []Section                         `json:"sections"`
	Chords   map[SectionKind]*ChordProgression `json:"chords"`
	Lyrics   map[SectionKind][]LyricLine       `json:"lyrics"`
	Melody   map[SectionKind]*MelodyLine       `json:"melody"`
	Drums    *DrumPattern                      `json:"drums"`
	Sources  map[string]PartSource             `json:"sources"`
}

// SectionByKind returns the section with the given kind, or nil.
func (c *Composition) SectionByKind(kind SectionKind) *Section {
	for i := range c.Sections {
		if c.Sections[i].Kind == kind {
			return &c.Sections[i]
		}
	}
	return nil
}

// DefaultSections splits the song length into the standard verse/chorus form:
// first half verse, second half chorus.
func DefaultSections(bars int) []Section {
	half := bars / 2
	return []Section{
		{Kind: SectionVerse, StartBar: 0, Bars: half},
		{Kind: SectionChorus, StartBar: half, Bars: bars - half},
	}
}
