package theory

import (
	"fmt"
	"strings"
)

var (
	majorScaleIntervals = []int{0, 2, 4, 5, 7, 9, 11}
	minorScaleIntervals = []int{0, 2, 3, 5, 7, 8, 10}
)

// Key is a parsed key signature ("C", "F# minor", "Bbm").
type Key struct {
	Tonic string
	Minor bool
}

// ParseKey parses a key string. Accepted spellings: "C", "Am", "A minor",
// "F# major", "Bbm". An empty string defaults to C major.
func ParseKey(key string) (*Key, error) {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return &Key{Tonic: "C"}, nil
	}

	minor := false
	lower := strings.ToLower(trimmed)
	switch {
	case strings.HasSuffix(lower, " minor"):
		minor = true
		trimmed = strings.TrimSpace(trimmed[:len(trimmed)-len(" minor")])
	case strings.HasSuffix(lower, " major"):
		trimmed = strings.TrimSpace(trimmed[:len(trimmed)-len(" major")])
	case strings.HasSuffix(trimmed, "m") && len(trimmed) > 1:
		minor = true
		trimmed = trimmed[:len(trimmed)-1]
	}

	tonic, err := parseRootNote(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid key %q: %w", key, err)
	}

	return &Key{Tonic: tonic, Minor: minor}, nil
}

// ScalePitchClasses returns the pitch classes (0..11) of the key's diatonic
// scale.
func (k *Key) ScalePitchClasses() []int {
	root, ok := noteOffsets[k.Tonic]
	if !ok {
		root = 0
	}

	intervals := majorScaleIntervals
	if k.Minor {
		intervals = minorScaleIntervals
	}

	classes := make([]int, len(intervals))
	for i, interval := range intervals {
		classes[i] = (root + interval) % semitonesPerOctave
	}
	return classes
}

// Contains reports whether the MIDI note's pitch class is diatonic to the key.
func (k *Key) Contains(midiNote int) bool {
	pc := ((midiNote % semitonesPerOctave) + semitonesPerOctave) % semitonesPerOctave
	for _, c := range k.ScalePitchClasses() {
		if c == pc {
			return true
		}
	}
	return false
}

// String renders the key in the canonical "F# minor" form.
func (k *Key) String() string {
	if k.Minor {
		return k.Tonic + " minor"
	}
	return k.Tonic + " major"
}
