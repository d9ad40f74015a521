package theory

import (
	"testing"
)

func TestChordToMIDI(t *testing.T) {
	tests := []struct {
		name          string
		chordSymbol   string
		octave        int
		expectedNotes []int
		expectError   bool
	}{
		{
			name:          "C major",
			chordSymbol:   "C",
			octave:        4,
			expectedNotes: []int{60, 64, 67}, // C4, E4, G4
			expectError:   false,
		},
		{
			name:          "E minor",
			chordSymbol:   "Em",
			octave:        4,
			expectedNotes: []int{64, 67, 71}, // E4, G4, B4
			expectError:   false,
		},
		{
			name:          "A minor",
			chordSymbol:   "Am",
			octave:        4,
			expectedNotes: []int{69, 72, 76}, // A4, C5, E5
			expectError:   false,
		},
		{
			name:          "G major",
			chordSymbol:   "G",
			octave:        4,
			expectedNotes: []int{67, 71, 74}, // G4, B4, D5
			expectError:   false,
		},
		{
			name:          "F major",
			chordSymbol:   "F",
			octave:        3,
			expectedNotes: []int{53, 57, 60}, // F3, A3, C4
			expectError:   false,
		},
		{
			name:          "A minor 7th",
			chordSymbol:   "Am7",
			octave:        4,
			expectedNotes: []int{69, 72, 76, 79}, // A4, C5, E5, G5
			expectError:   false,
		},
		{
			name:          "C major 7th",
			chordSymbol:   "Cmaj7",
			octave:        4,
			expectedNotes: []int{60, 64, 67, 71}, // C4, E4, G4, B4
			expectError:   false,
		},
		{
			name:          "F sharp diminished",
			chordSymbol:   "F#dim",
			octave:        4,
			expectedNotes: []int{66, 69, 72}, // F#4, A4, C5
			expectError:   false,
		},
		{
			name:          "D sus4",
			chordSymbol:   "Dsus4",
			octave:        4,
			expectedNotes: []int{62, 67, 69}, // D4, G4, A4
			expectError:   false,
		},
		{
			name:          "octave 3",
			chordSymbol:   "C",
			octave:        3,
			expectedNotes: []int{48, 52, 55}, // C3, E3, G3
			expectError:   false,
		},
		{
			name:        "invalid root",
			chordSymbol: "H",
			octave:      4,
			expectError: true,
		},
		{
			name:        "empty symbol",
			chordSymbol: "",
			octave:      4,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notes, err := ChordToMIDI(tt.chordSymbol, tt.octave)
			if tt.expectError {
				if err == nil {
					t.Error("Expected error but got none")
				}
				return
			}

			if err != nil {
				t.Fatalf("ChordToMIDI failed: %v", err)
			}

			if len(notes) != len(tt.expectedNotes) {
				t.Errorf("Expected %d notes, got %d", len(tt.expectedNotes), len(notes))
			}

			for i, expected := range tt.expectedNotes {
				if i < len(notes) && notes[i] != expected {
					t.Errorf("Note %d: expected MIDI %d, got %d", i, expected, notes[i])
				}
			}
		})
	}
}

func TestChordToMIDI_Inversion(t *testing.T) {
	notes, err := ChordToMIDI("Em/G", 4)
	if err != nil {
		t.Fatalf("ChordToMIDI failed: %v", err)
	}

	// Bass G one octave lower prepended, then the Em triad
	if len(notes) != 4 {
		t.Fatalf("Expected 4 notes with bass, got %d", len(notes))
	}

	if notes[0] != 55 { // G3
		t.Errorf("Expected bass note G3 (55), got %d", notes[0])
	}
	if notes[1] != 64 { // E4
		t.Errorf("Expected chord root E4 (64), got %d", notes[1])
	}
}

func TestParseChord(t *testing.T) {
	tests := []struct {
		symbol  string
		root    string
		quality string
	}{
		{"C", "C", QualityMajor},
		{"Am", "A", QualityMinor},
		{"Bbmaj7", "Bb", QualityMajor},
		{"F#dim", "F#", QualityDiminished},
		{"Gaug", "G", QualityAugmented},
		{"Dsus2", "D", QualitySus2},
		{"Asus4", "A", QualitySus4},
		{"Cmin", "C", QualityMinor},
	}

	for _, tt := range tests {
		t.Run(tt.symbol, func(t *testing.T) {
			chord, err := ParseChord(tt.symbol)
			if err != nil {
				t.Fatalf("ParseChord(%q) failed: %v", tt.symbol, err)
			}
			if chord.Root != tt.root {
				t.Errorf("Root: expected %s, got %s", tt.root, chord.Root)
			}
			if chord.Quality != tt.quality {
				t.Errorf("Quality: expected %s, got %s", tt.quality, chord.Quality)
			}
		})
	}
}

func TestNoteNameToMIDI(t *testing.T) {
	tests := []struct {
		noteName string
		expected int
	}{
		{"C4", 60},
		{"A4", 69},
		{"C-1", 0},
		{"G9", 127},
		{"F#3", 54},
		{"Bb2", 46},
	}

	for _, tt := range tests {
		t.Run(tt.noteName, func(t *testing.T) {
			got, err := NoteNameToMIDI(tt.noteName)
			if err != nil {
				t.Fatalf("NoteNameToMIDI(%q) failed: %v", tt.noteName, err)
			}
			if got != tt.expected {
				t.Errorf("Expected %d, got %d", tt.expected, got)
			}
		})
	}

	if _, err := NoteNameToMIDI("X4"); err == nil {
		t.Error("Expected error for invalid note letter")
	}
	if _, err := NoteNameToMIDI("C"); err == nil {
		t.Error("Expected error for missing octave")
	}
}

func TestMIDIToNoteName(t *testing.T) {
	tests := []struct {
		midiNote int
		expected string
	}{
		{60, "C4"},
		{61, "C#4"},
		{69, "A4"},
		{0, "C-1"},
		{127, "G9"},
	}

	for _, tt := range tests {
		if got := MIDIToNoteName(tt.midiNote); got != tt.expected {
			t.Errorf("MIDIToNoteName(%d): expected %s, got %s", tt.midiNote, tt.expected, got)
		}
	}
}
