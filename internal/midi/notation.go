package midi

import (
	"encoding/json"
	"fmt"

	"github.com/songsmith/songsmith-api/internal/song"
	"github.com/songsmith/songsmith-api/internal/theory"
)

// NotationDocument is the human-readable score form of a composition:
// named pitches, beat positions and lyrics instead of ticks and note numbers.
type NotationDocument struct {
	Title         string            `json:"title"`
	Style         string            `json:"style,omitempty"`
	Key           string            `json:"key"`
	Tempo         int               `json:"tempo"`
	TimeSignature string            `json:"timeSignature"`
	Bars          int               `json:"bars"`
	Sections      []NotationSection `json:"sections"`
	DrumStyle     string            `json:"drumStyle,omitempty"`
}

// NotationSection is one verse/chorus with its chords, lyrics and melody.
type NotationSection struct {
	Kind     string          `json:"kind"`
	StartBar int             `json:"startBar"`
	Bars     int             `json:"bars"`
	Chords   []NotationChord `json:"chords"`
	Lyrics   []string        `json:"lyrics"`
	Melody   []NotationNote  `json:"melody"`
}

// NotationChord positions a chord symbol by bar and beat within its section.
type NotationChord struct {
	Symbol        string  `json:"symbol"`
	Bar           int     `json:"bar"` // 1-based within the section
	Beat          float64 `json:"beat"`
	DurationBeats float64 `json:"durationBeats"`
}

// NotationNote is one melody note with a named pitch ("C5").
type NotationNote struct {
	Pitch         string  `json:"pitch"`
	StartBeats    float64 `json:"startBeats"`
	DurationBeats float64 `json:"durationBeats"`
	Syllable      string  `json:"syllable,omitempty"`
}

// BuildNotation derives the notation document from a composition.
func BuildNotation(c *song.Composition) *NotationDocument {
	doc := &NotationDocument{
		Title: c.Request.Title,
		Style: c.Request.Style,
		Key:   c.Request.Key,
		Tempo: c.Request.Tempo,
		TimeSignature: fmt.Sprintf("%d/%d",
			c.Request.TimeSignature.Numerator, c.Request.TimeSignature.Denominator),
		Bars: c.Request.Bars,
	}
	if c.Drums != nil {
		doc.DrumStyle = c.Drums.Style
	}

	beatsPerBar := c.Request.TimeSignature.BeatsPerBar()

	for _, s := range c.Sections {
		section := NotationSection{
			Kind:     string(s.Kind),
			StartBar: s.StartBar,
			Bars:     s.Bars,
			Chords:   []NotationChord{},
			Lyrics:   []string{},
			Melody:   []NotationNote{},
		}

		if progression := c.Chords[s.Kind]; progression != nil {
			for _, ev := range progression.Events {
				bar := int(ev.StartBeats/beatsPerBar) + 1
				section.Chords = append(section.Chords, NotationChord{
					Symbol:        ev.Symbol,
					Bar:           bar,
					Beat:          ev.StartBeats - float64(bar-1)*beatsPerBar,
					DurationBeats: ev.DurationBeats,
				})
			}
		}

		for _, line := range c.Lyrics[s.Kind] {
			section.Lyrics = append(section.Lyrics, line.Text)
		}

		if line := c.Melody[s.Kind]; line != nil {
			for _, note := range line.Notes {
				section.Melody = append(section.Melody, NotationNote{
					Pitch:         theory.MIDIToNoteName(note.MidiNoteNumber),
					StartBeats:    note.StartBeats,
					DurationBeats: note.DurationBeats,
					Syllable:      note.Syllable,
				})
			}
		}

		doc.Sections = append(doc.Sections, section)
	}

	return doc
}

// EncodeNotation renders the notation document as stable, indented JSON.
func EncodeNotation(c *song.Composition) ([]byte, error) {
	return json.MarshalIndent(BuildNotation(c), "", "  ")
}
