package melody

import (
	"github.com/songsmith/songsmith-api/internal/song"
	"github.com/songsmith/songsmith-api/internal/theory"
)

const (
	// Fallback notes sound one octave above the piano voicing.
	melodyOctaveShift = 12

	// Fraction of each slot the note actually sounds; the rest is breath.
	noteGateRatio = 0.9
)

// FallbackMelodies walks the chord tones in an even rhythm matching the
// syllable count of each section's lyrics. Never fails for a composition that
// has chords and lyrics for every section.
func FallbackMelodies(stageCtx *Context) map[song.SectionKind]*song.MelodyLine {
	out := make(map[song.SectionKind]*song.MelodyLine, len(stageCtx.Sections))
	beatsPerBar := stageCtx.Request.TimeSignature.BeatsPerBar()

	for _, s := range stageCtx.Sections {
		var syllables []string
		for _, line := range stageCtx.Lyrics[s.Kind] {
			syllables = append(syllables, line.Syllables...)
		}

		line := &song.MelodyLine{Section: s.Kind}
		if len(syllables) == 0 {
			out[s.Kind] = line
			continue
		}

		sectionBeats := float64(s.Bars) * beatsPerBar
		slot := sectionBeats / float64(len(syllables))
		progression := stageCtx.Chords[s.Kind]

		for i, syllable := range syllables {
			start := float64(i) * slot
			pitch := chordToneAt(progression, start, i)
			line.Notes = append(line.Notes, song.NoteEvent{
				MidiNoteNumber: pitch,
				Velocity:       theory.MelodyVelocity,
				StartBeats:     start,
				DurationBeats:  slot * noteGateRatio,
				Syllable:       syllable,
			})
		}
		out[s.Kind] = line
	}

	return out
}

// chordToneAt picks a tone from whichever chord is sounding at the given beat,
// cycling through the voicing so consecutive notes move.
func chordToneAt(progression *song.ChordProgression, beat float64, index int) int {
	const middleC = 60

	if progression == nil || len(progression.Events) == 0 {
		return middleC + melodyOctaveShift
	}

	active := progression.Events[0]
	for _, ev := range progression.Events {
		if beat >= ev.StartBeats && beat < ev.StartBeats+ev.DurationBeats {
			active = ev
			break
		}
	}
	if len(active.Pitches) == 0 {
		return middleC + melodyOctaveShift
	}

	pitch := active.Pitches[index%len(active.Pitches)] + melodyOctaveShift
	for pitch > theory.MIDINoteMax {
		pitch -= 12
	}
	return pitch
}
