package song

import (
	"fmt"
	"math"
	"strings"

	"github.com/songsmith/songsmith-api/internal/theory"
)

// ValidationFailure describes why a generated part was rejected. Validators
// only report problems, they never repair the part.
type ValidationFailure struct {
	Stage  string
	Reason string
}

func (e *ValidationFailure) Error() string {
	return fmt.Sprintf("%s validation failed: %s", e.Stage, e.Reason)
}

const beatEpsilon = 1e-6

// ValidateChordProgression checks that a progression exactly covers its
// section: contiguous events, no gaps or overlaps, resolvable symbols, and
// resolved pitch sets inside the MIDI range.
func ValidateChordProgression(p *ChordProgression, section Section, ts TimeSignature) error {
	if p == nil || len(p.Events) == 0 {
		return &ValidationFailure{Stage: StageChords, Reason: "progression is empty"}
	}

	sectionBeats := float64(section.Bars) * ts.BeatsPerBar()
	cursor := 0.0

	for i, ev := range p.Events {
		if strings.TrimSpace(ev.Symbol) == "" {
			return &ValidationFailure{Stage: StageChords, Reason: fmt.Sprintf("event %d has no chord symbol", i)}
		}
		if _, err := theory.ParseChord(ev.Symbol); err != nil {
			return &ValidationFailure{Stage: StageChords, Reason: fmt.Sprintf("event %d: %v", i, err)}
		}
		if ev.DurationBeats <= 0 {
			return &ValidationFailure{Stage: StageChords, Reason: fmt.Sprintf("event %d has non-positive duration", i)}
		}
		if math.Abs(ev.StartBeats-cursor) > beatEpsilon {
			return &ValidationFailure{
				Stage:  StageChords,
				Reason: fmt.Sprintf("event %d starts at beat %.2f, expected %.2f (gap or overlap)", i, ev.StartBeats, cursor),
			}
		}
		if len(ev.Pitches) == 0 {
			return &ValidationFailure{Stage: StageChords, Reason: fmt.Sprintf("event %d has no resolved pitches", i)}
		}
		for _, pitch := range ev.Pitches {
			if pitch < theory.MIDINoteMin || pitch > theory.MIDINoteMax {
				return &ValidationFailure{Stage: StageChords, Reason: fmt.Sprintf("event %d pitch %d out of MIDI range", i, pitch)}
			}
		}
		cursor = ev.StartBeats + ev.DurationBeats
	}

	if math.Abs(cursor-sectionBeats) > beatEpsilon {
		return &ValidationFailure{
			Stage:  StageChords,
			Reason: fmt.Sprintf("progression covers %.2f beats, section is %.2f", cursor, sectionBeats),
		}
	}

	return nil
}

// ValidateLyrics checks that every line is non-empty, has a syllable split,
// and that the split reassembles the line's words.
func ValidateLyrics(lines []LyricLine) error {
	if len(lines) == 0 {
		return &ValidationFailure{Stage: StageLyrics, Reason: "no lyric lines"}
	}

	for i, line := range lines {
		if strings.TrimSpace(line.Text) == "" {
			return &ValidationFailure{Stage: StageLyrics, Reason: fmt.Sprintf("line %d is empty", i)}
		}
		if len(line.Syllables) == 0 {
			return &ValidationFailure{Stage: StageLyrics, Reason: fmt.Sprintf("line %d has no syllables", i)}
		}
		joined := strings.Join(line.Syllables, "")
		collapsed := strings.ReplaceAll(line.Text, " ", "")
		if joined != collapsed {
			return &ValidationFailure{
				Stage:  StageLyrics,
				Reason: fmt.Sprintf("line %d syllables do not reassemble the text", i),
			}
		}
	}

	return nil
}

// ValidateMelody checks the melody of one section: notes in range, in order
// and non-overlapping, inside the section span, and carrying exactly the
// section's syllables.
func ValidateMelody(m *MelodyLine, lines []LyricLine, section Section, ts TimeSignature) error {
	if m == nil || len(m.Notes) == 0 {
		return &ValidationFailure{Stage: StageMelody, Reason: "melody is empty"}
	}

	sectionBeats := float64(section.Bars) * ts.BeatsPerBar()
	prevEnd := 0.0

	for i, note := range m.Notes {
		if note.MidiNoteNumber < theory.MIDINoteMin || note.MidiNoteNumber > theory.MIDINoteMax {
			return &ValidationFailure{Stage: StageMelody, Reason: fmt.Sprintf("note %d pitch %d out of MIDI range", i, note.MidiNoteNumber)}
		}
		if note.Velocity < 1 || note.Velocity > 127 {
			return &ValidationFailure{Stage: StageMelody, Reason: fmt.Sprintf("note %d velocity %d out of range", i, note.Velocity)}
		}
		if note.DurationBeats <= 0 {
			return &ValidationFailure{Stage: StageMelody, Reason: fmt.Sprintf("note %d has non-positive duration", i)}
		}
		if note.StartBeats < -beatEpsilon {
			return &ValidationFailure{Stage: StageMelody, Reason: fmt.Sprintf("note %d starts before the section", i)}
		}
		if i > 0 && note.StartBeats < prevEnd-beatEpsilon {
			return &ValidationFailure{
				Stage:  StageMelody,
				Reason: fmt.Sprintf("note %d starts at beat %.2f before note %d ends at %.2f (overlap)", i, note.StartBeats, i-1, prevEnd),
			}
		}
		if note.StartBeats+note.DurationBeats > sectionBeats+beatEpsilon {
			return &ValidationFailure{
				Stage:  StageMelody,
				Reason: fmt.Sprintf("note %d ends at beat %.2f, section is %.2f beats", i, note.StartBeats+note.DurationBeats, sectionBeats),
			}
		}
		prevEnd = note.StartBeats + note.DurationBeats
	}

	// Syllable alignment: melody must carry exactly the section's syllables,
	// in order. A count mismatch is a failure, never a truncation.
	var want []string
	for _, line := range lines {
		want = append(want, line.Syllables...)
	}
	var got []string
	for _, note := range m.Notes {
		if note.Syllable != "" {
			got = append(got, note.Syllable)
		}
	}
	if len(got) != len(want) {
		return &ValidationFailure{
			Stage:  StageMelody,
			Reason: fmt.Sprintf("melody carries %d syllables, lyrics have %d", len(got), len(want)),
		}
	}
	for i := range want {
		if got[i] != want[i] {
			return &ValidationFailure{
				Stage:  StageMelody,
				Reason: fmt.Sprintf("syllable %d is %q, lyrics say %q", i, got[i], want[i]),
			}
		}
	}

	return nil
}

// ValidateDrumPattern checks instruments against the GM percussion map and
// hit positions against the loop length.
func ValidateDrumPattern(p *DrumPattern) error {
	if p == nil || len(p.Hits) == 0 {
		return &ValidationFailure{Stage: StageDrums, Reason: "pattern is empty"}
	}
	if p.LoopTicks <= 0 {
		return &ValidationFailure{Stage: StageDrums, Reason: "loop length must be positive"}
	}

	known := make(map[int]bool, len(theory.DrumNotes))
	for _, note := range theory.DrumNotes {
		known[note] = true
	}

	for i, hit := range p.Hits {
		if !known[hit.Instrument] {
			return &ValidationFailure{Stage: StageDrums, Reason: fmt.Sprintf("hit %d uses unknown percussion note %d", i, hit.Instrument)}
		}
		if hit.Tick < 0 || hit.Tick >= p.LoopTicks {
			return &ValidationFailure{Stage: StageDrums, Reason: fmt.Sprintf("hit %d tick %d outside loop of %d ticks", i, hit.Tick, p.LoopTicks)}
		}
		if hit.Velocity < 1 || hit.Velocity > 127 {
			return &ValidationFailure{Stage: StageDrums, Reason: fmt.Sprintf("hit %d velocity %d out of range", i, hit.Velocity)}
		}
	}

	return nil
}

// CheckConsistency verifies that all parts of an assembled composition agree
// on the section layout.
func (c *Composition) CheckConsistency() error {
	if len(c.Sections) == 0 {
		return fmt.Errorf("composition has no sections")
	}

	expectedBar := 0
	for _, s := range c.Sections {
		if s.StartBar != expectedBar {
			return fmt.Errorf("section %s starts at bar %d, expected %d", s.Kind, s.StartBar, expectedBar)
		}
		if s.Bars <= 0 {
			return fmt.Errorf("section %s has no bars", s.Kind)
		}
		expectedBar += s.Bars
	}
	if expectedBar != c.Request.Bars {
		return fmt.Errorf("sections cover %d bars, request says %d", expectedBar, c.Request.Bars)
	}

	for _, s := range c.Sections {
		if err := ValidateChordProgression(c.Chords[s.Kind], s, c.Request.TimeSignature); err != nil {
			return err
		}
		if err := ValidateLyrics(c.Lyrics[s.Kind]); err != nil {
			return err
		}
		if err := ValidateMelody(c.Melody[s.Kind], c.Lyrics[s.Kind], s, c.Request.TimeSignature); err != nil {
			return err
		}
	}

	return ValidateDrumPattern(c.Drums)
}
