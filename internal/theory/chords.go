package theory

import (
	"fmt"
	"strings"
)

// Chord qualities
const (
	QualityMajor      = "major"
	QualityMinor      = "minor"
	QualityDiminished = "diminished"
	QualityAugmented  = "augmented"
	QualitySus2       = "sus2"
	QualitySus4       = "sus4"
)

// Chord is a parsed chord symbol.
type Chord struct {
	Symbol     string
	Root       string
	Quality    string
	Extensions []string
	Bass       string // slash-chord bass note, empty when absent
}

// ParseChord parses a chord symbol like "Am7", "Cmaj7", "F#dim" or "Em/G"
// into its root, quality, extensions and optional bass note.
func ParseChord(chordSymbol string) (*Chord, error) {
	baseChord := strings.TrimSpace(chordSymbol)
	bassNote := ""
	if strings.Contains(baseChord, "/") {
		parts := strings.Split(baseChord, "/")
		if len(parts) == 2 {
			baseChord = strings.TrimSpace(parts[0])
			bassNote = strings.TrimSpace(parts[1])
		}
	}

	root, err := parseRootNote(baseChord)
	if err != nil {
		return nil, fmt.Errorf("invalid chord root: %w", err)
	}

	if bassNote != "" {
		if _, err := parseRootNote(bassNote); err != nil {
			return nil, fmt.Errorf("invalid bass note in %q: %w", chordSymbol, err)
		}
	}

	return &Chord{
		Symbol:     strings.TrimSpace(chordSymbol),
		Root:       root,
		Quality:    parseChordQuality(baseChord),
		Extensions: parseExtensions(baseChord),
		Bass:       bassNote,
	}, nil
}

// ChordToMIDI converts a chord symbol to MIDI note numbers at the given
// octave. Supports: C, Em, Am7, Cmaj7, Em/G (inversions), etc.
func ChordToMIDI(chordSymbol string, octave int) ([]int, error) {
	chord, err := ParseChord(chordSymbol)
	if err != nil {
		return nil, err
	}

	rootMIDI := noteToMIDI(chord.Root, octave)
	intervals := BuildChordIntervals(chord.Quality, chord.Extensions)

	notes := make([]int, 0, len(intervals)+1)
	for _, interval := range intervals {
		midiNote := rootMIDI + interval
		if midiNote < MIDINoteMin || midiNote > MIDINoteMax {
			continue // Skip out-of-range notes
		}
		notes = append(notes, midiNote)
	}

	// Slash-chord bass goes one octave lower, prepended
	if chord.Bass != "" {
		bassMIDI := noteToMIDI(chord.Bass, octave-1)
		if bassMIDI >= MIDINoteMin && bassMIDI <= MIDINoteMax {
			notes = append([]int{bassMIDI}, notes...)
		}
	}

	if len(notes) == 0 {
		return nil, fmt.Errorf("no valid MIDI notes generated for chord: %s", chordSymbol)
	}

	return notes, nil
}

func parseRootNote(chordSymbol string) (string, error) {
	if len(chordSymbol) == 0 {
		return "", fmt.Errorf("empty chord symbol")
	}

	root := ""
	if len(chordSymbol) > 1 && (chordSymbol[1] == '#' || chordSymbol[1] == 'b') {
		root = chordSymbol[:2]
	} else {
		root = chordSymbol[:1]
	}

	if _, ok := noteOffsets[root]; !ok {
		return "", fmt.Errorf("invalid root note: %s", root)
	}

	return root, nil
}

func parseChordQuality(chordSymbol string) string {
	chordSymbol = stripRoot(chordSymbol)

	if strings.HasPrefix(chordSymbol, "min") {
		return QualityMinor
	}
	if strings.HasPrefix(chordSymbol, "m") && !strings.HasPrefix(chordSymbol, "maj") {
		return QualityMinor
	}
	if strings.HasPrefix(chordSymbol, "dim") {
		return QualityDiminished
	}
	if strings.HasPrefix(chordSymbol, "aug") {
		return QualityAugmented
	}
	if strings.HasPrefix(chordSymbol, "sus2") {
		return QualitySus2
	}
	if strings.HasPrefix(chordSymbol, "sus4") {
		return QualitySus4
	}

	return QualityMajor
}

func parseExtensions(chordSymbol string) []string {
	extensions := []string{}
	chordSymbol = stripRoot(chordSymbol)

	// Extract maj7/min7 BEFORE removing quality markers so that
	// TrimPrefix("m") cannot corrupt "maj7" into "aj7".
	if strings.Contains(chordSymbol, "maj7") {
		extensions = append(extensions, "maj7")
		chordSymbol = strings.ReplaceAll(chordSymbol, "maj7", "")
	}
	if strings.Contains(chordSymbol, "min7") {
		extensions = append(extensions, "min7")
		chordSymbol = strings.ReplaceAll(chordSymbol, "min7", "")
	}

	chordSymbol = strings.TrimPrefix(chordSymbol, "m")
	chordSymbol = strings.TrimPrefix(chordSymbol, "dim")
	chordSymbol = strings.TrimPrefix(chordSymbol, "aug")
	chordSymbol = strings.TrimPrefix(chordSymbol, "sus2")
	chordSymbol = strings.TrimPrefix(chordSymbol, "sus4")

	if strings.Contains(chordSymbol, "7") {
		extensions = append(extensions, "7")
		chordSymbol = strings.ReplaceAll(chordSymbol, "7", "")
	}
	if strings.Contains(chordSymbol, "9") {
		extensions = append(extensions, "9")
	}
	if strings.Contains(chordSymbol, "11") {
		extensions = append(extensions, "11")
	}
	if strings.Contains(chordSymbol, "13") {
		extensions = append(extensions, "13")
	}

	return extensions
}

func stripRoot(chordSymbol string) string {
	if len(chordSymbol) > 1 && (chordSymbol[1] == '#' || chordSymbol[1] == 'b') {
		return chordSymbol[2:]
	}
	if len(chordSymbol) > 0 {
		return chordSymbol[1:]
	}
	return chordSymbol
}

// BuildChordIntervals returns the semitone intervals from the root for the
// given quality and extensions.
func BuildChordIntervals(quality string, extensions []string) []int {
	var intervals []int

	switch quality {
	case QualityMajor:
		intervals = []int{0, 4, 7} // Root, Major 3rd, Perfect 5th
	case QualityMinor:
		intervals = []int{0, 3, 7} // Root, Minor 3rd, Perfect 5th
	case QualityDiminished:
		intervals = []int{0, 3, 6} // Root, Minor 3rd, Diminished 5th
	case QualityAugmented:
		intervals = []int{0, 4, 8} // Root, Major 3rd, Augmented 5th
	case QualitySus2:
		intervals = []int{0, 2, 7} // Root, Major 2nd, Perfect 5th
	case QualitySus4:
		intervals = []int{0, 5, 7} // Root, Perfect 4th, Perfect 5th
	default:
		intervals = []int{0, 4, 7}
	}

	for _, ext := range extensions {
		switch ext {
		case "7", "min7":
			intervals = append(intervals, 10) // Minor 7th
		case "maj7":
			intervals = append(intervals, 11) // Major 7th
		case "9":
			intervals = append(intervals, 14) // Major 9th
		case "11":
			intervals = append(intervals, 17) // Perfect 11th
		case "13":
			intervals = append(intervals, 21) // Major 13th
		}
	}

	return intervals
}

func noteToMIDI(note string, octave int) int {
	offset, ok := noteOffsets[note]
	if !ok {
		return 60 // Default to C4
	}
	return (octave+1)*semitonesPerOctave + offset
}
