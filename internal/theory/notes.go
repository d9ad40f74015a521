package theory

import (
	"fmt"
	"strings"
)

const (
	// TicksPerQuarter is the pulse resolution used for every encoded song.
	TicksPerQuarter = 480

	// MIDI note range
	MIDINoteMin = 0
	MIDINoteMax = 127

	semitonesPerOctave = 12
)

// noteOffsets maps a pitch-class name to its semitone offset from C.
var noteOffsets = map[string]int{
	"C":  0,
	"C#": 1, "Db": 1,
	"D":  2,
	"D#": 3, "Eb": 3,
	"E":  4,
	"F":  5,
	"F#": 6, "Gb": 6,
	"G":  7,
	"G#": 8, "Ab": 8,
	"A":  9,
	"A#": 10, "Bb": 10,
	"B": 11,
}

// sharpNames is the canonical spelling used when converting MIDI numbers back
// to note names (sharps, never flats).
var sharpNames = [semitonesPerOctave]string{
	"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B",
}

// NoteNameToMIDI converts a note name like "E1", "C4", "F#3", "Bb2" to a MIDI
// note number. Format: <letter><accidental?><octave> where the octave may be
// negative (C-1 = 0, C4 = 60 = middle C).
func NoteNameToMIDI(noteName string) (int, error) {
	if len(noteName) < 2 {
		return 0, fmt.Errorf("note name too short: %s", noteName)
	}

	noteChar := strings.ToUpper(string(noteName[0]))
	if noteChar < "A" || noteChar > "G" {
		return 0, fmt.Errorf("invalid note letter: %s", noteChar)
	}
	semitone := noteOffsets[noteChar]

	idx := 1
	if idx < len(noteName) {
		switch noteName[idx] {
		case '#':
			semitone++
			idx++
		case 'b':
			semitone--
			idx++
		}
	}

	if idx >= len(noteName) {
		return 0, fmt.Errorf("missing octave in note name: %s", noteName)
	}

	var octave int
	if _, err := fmt.Sscanf(noteName[idx:], "%d", &octave); err != nil {
		return 0, fmt.Errorf("invalid octave in note name %s: %w", noteName, err)
	}

	midiNote := (octave+1)*semitonesPerOctave + semitone
	if midiNote < MIDINoteMin {
		midiNote = MIDINoteMin
	}
	if midiNote > MIDINoteMax {
		midiNote = MIDINoteMax
	}

	return midiNote, nil
}

// MIDIToNoteName converts a MIDI note number back to a note name ("C4").
// Out-of-range values are clamped first.
func MIDIToNoteName(midiNote int) string {
	if midiNote < MIDINoteMin {
		midiNote = MIDINoteMin
	}
	if midiNote > MIDINoteMax {
		midiNote = MIDINoteMax
	}
	octave := midiNote/semitonesPerOctave - 1
	return fmt.Sprintf("%s%d", sharpNames[midiNote%semitonesPerOctave], octave)
}

// PitchClassOffset returns the semitone offset from C for a pitch-class name
// like "C#", "Bb".
func PitchClassOffset(name string) (int, bool) {
	offset, ok := noteOffsets[name]
	return offset, ok
}
