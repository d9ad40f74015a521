package assembler

import (
	"fmt"
	"log"
	"math"
	"sort"

	"github.com/songsmith/songsmith-api/internal/song"
	"github.com/songsmith/songsmith-api/internal/theory"
)

// Track names, stable across encodes.
const (
	TrackPiano   = "Piano"
	TrackMelody  = "Melody"
	TrackStrings = "Strings"
	TrackDrums   = "Drums"
)

const (
	// Drum hits are struck, not held; a 32nd note is plenty.
	drumHitTicks = theory.TicksPerQuarter / 8

	// Interval of a perfect fifth, for the strings pad.
	fifthSemitones = 7

	// noProgram marks a track that sends no program change (percussion).
	noProgram = -1
)

// NoteEvent is one tick-stamped note, ready for encoding.
type NoteEvent struct {
	Tick     int
	Duration int // ticks, always > 0
	Note     int
	Velocity int
	Lyric    string // syllable meta on the melody track, empty elsewhere
}

// Track is one instrument's complete event stream.
type Track struct {
	Name    string
	Channel int
	Program int // GM program number, noProgram for drums
	Notes   []NoteEvent
}

// Assembly is the time-aligned multi-track form of a Composition.
type Assembly struct {
	TicksPerQuarter int
	Tempo           int
	TimeSignature   song.TimeSignature
	TotalTicks      int
	Tracks          []Track
	Anomalies       []string
}

// Assemble merges a Composition's validated parts into one globally
// tick-ordered structure. Events past the composition's end are clamped and
// reported as anomalies, never dropped silently.
func Assemble(c *song.Composition) *Assembly {
	beatsPerBar := c.Request.TimeSignature.BeatsPerBar()
	barTicks := int(beatsPerBar * theory.TicksPerQuarter)
	totalTicks := c.Request.Bars * barTicks

	a := &Assembly{
		TicksPerQuarter: theory.TicksPerQuarter,
		Tempo:           c.Request.Tempo,
		TimeSignature:   c.Request.TimeSignature,
		TotalTicks:      totalTicks,
	}

	sectionStarts := sectionStartTicks(c.Sections, barTicks)

	a.Tracks = []Track{
		a.buildPianoTrack(c, sectionStarts),
		a.buildMelodyTrack(c, sectionStarts),
		a.buildStringsTrack(c, sectionStarts),
		a.buildDrumTrack(c),
	}

	for i := range a.Tracks {
		sortNotes(a.Tracks[i].Notes)
	}

	if len(a.Anomalies) > 0 {
		log.Printf("⚠️  ASSEMBLY: %d anomalies for %s", len(a.Anomalies), c.ID)
	}

	return a
}

// sectionStartTicks computes each section's absolute start tick from the
// cumulative bars before it.
func sectionStartTicks(sections []song.Section, barTicks int) map[song.SectionKind]int {
	starts := make(map[song.SectionKind]int, len(sections))
	for _, s := range sections {
		starts[s.Kind] = s.StartBar * barTicks
	}
	return starts
}

func (a *Assembly) buildPianoTrack(c *song.Composition, starts map[song.SectionKind]int) Track {
	track := Track{Name: TrackPiano, Channel: theory.ChannelPiano, Program: theory.ProgramPiano}

	for _, s := range c.Sections {
		progression := c.Chords[s.Kind]
		if progression == nil {
			continue
		}
		base := starts[s.Kind]
		for _, ev := range progression.Events {
			tick := base + beatsToTicks(ev.StartBeats)
			duration := beatsToTicks(ev.DurationBeats)
			for _, pitch := range ev.Pitches {
				track.Notes = append(track.Notes, a.clampedNote(NoteEvent{
					Tick:     tick,
					Duration: duration,
					Note:     pitch,
					Velocity: theory.ChordVelocity,
				}, TrackPiano))
			}
		}
	}

	return track
}

func (a *Assembly) buildMelodyTrack(c *song.Composition, starts map[song.SectionKind]int) Track {
	track := Track{Name: TrackMelody, Channel: theory.ChannelMelody, Program: theory.ProgramMelody}

	for _, s := range c.Sections {
		line := c.Melody[s.Kind]
		if line == nil {
			continue
		}
		base := starts[s.Kind]
		for _, note := range line.Notes {
			track.Notes = append(track.Notes, a.clampedNote(NoteEvent{
				Tick:     base + beatsToTicks(note.StartBeats),
				Duration: beatsToTicks(note.DurationBeats),
				Note:     note.MidiNoteNumber,
				Velocity: note.Velocity,
				Lyric:    note.Syllable,
			}, TrackMelody))
		}
	}

	return track
}

// buildStringsTrack doubles the progression with a sustained root+fifth pad.
func (a *Assembly) buildStringsTrack(c *song.Composition, starts map[song.SectionKind]int) Track {
	track := Track{Name: TrackStrings, Channel: theory.ChannelStrings, Program: theory.ProgramStrings}

	for _, s := range c.Sections {
		progression := c.Chords[s.Kind]
		if progression == nil {
			continue
		}
		base := starts[s.Kind]
		for _, ev := range progression.Events {
			if len(ev.Pitches) == 0 {
				continue
			}
			tick := base + beatsToTicks(ev.StartBeats)
			duration := beatsToTicks(ev.DurationBeats)
			root := ev.Pitches[0]
			for _, pitch := range []int{root, root + fifthSemitones} {
				if pitch > theory.MIDINoteMax {
					continue
				}
				track.Notes = append(track.Notes, a.clampedNote(NoteEvent{
					Tick:     tick,
					Duration: duration,
					Note:     pitch,
					Velocity: theory.StringsVelocity,
				}, TrackStrings))
			}
		}
	}

	return track
}

// buildDrumTrack tiles the pattern loop across the whole composition and adds
// a crash on the very first downbeat.
func (a *Assembly) buildDrumTrack(c *song.Composition) Track {
	track := Track{Name: TrackDrums, Channel: theory.ChannelDrums, Program: noProgram}
	if c.Drums == nil || c.Drums.LoopTicks <= 0 {
		return track
	}

	track.Notes = append(track.Notes, NoteEvent{
		Tick:     0,
		Duration: drumHitTicks,
		Note:     theory.DrumNotes["crash"],
		Velocity: theory.VelocityAccent,
	})

	for loopStart := 0; loopStart < a.TotalTicks; loopStart += c.Drums.LoopTicks {
		for _, hit := range c.Drums.Hits {
			tick := loopStart + hit.Tick
			if tick >= a.TotalTicks {
				continue
			}
			track.Notes = append(track.Notes, a.clampedNote(NoteEvent{
				Tick:     tick,
				Duration: drumHitTicks,
				Note:     hit.Instrument,
				Velocity: hit.Velocity,
			}, TrackDrums))
		}
	}

	return track
}

// clampedNote enforces the composition-length invariant: a note may not sound
// past the final tick. Overflow is clamped and recorded as an anomaly.
func (a *Assembly) clampedNote(n NoteEvent, trackName string) NoteEvent {
	if n.Tick >= a.TotalTicks {
		a.Anomalies = append(a.Anomalies,
			fmt.Sprintf("%s: note %d at tick %d starts past composition end %d, clamped", trackName, n.Note, n.Tick, a.TotalTicks))
		n.Tick = a.TotalTicks - 1
		n.Duration = 1
		return n
	}
	if n.Tick+n.Duration > a.TotalTicks {
		a.Anomalies = append(a.Anomalies,
			fmt.Sprintf("%s: note %d at tick %d overruns composition end %d, clamped", trackName, n.Note, n.Tick, a.TotalTicks))
		n.Duration = a.TotalTicks - n.Tick
	}
	if n.Duration <= 0 {
		n.Duration = 1
	}
	return n
}

// beatsToTicks converts a beat offset to ticks, rounding to the nearest tick.
func beatsToTicks(beats float64) int {
	return int(math.Round(beats * theory.TicksPerQuarter))
}

// sortNotes orders a track's events deterministically: by tick, then pitch,
// then duration.
func sortNotes(notes []NoteEvent) {
	sort.SliceStable(notes, func(i, j int) bool {
		if notes[i].Tick != notes[j].Tick {
			return notes[i].Tick < notes[j].Tick
		}
		if notes[i].Note != notes[j].Note {
			return notes[i].Note < notes[j].Note
		}
		return notes[i].Duration < notes[j].Duration
	})
}
