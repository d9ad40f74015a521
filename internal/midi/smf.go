package midi

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/songsmith/songsmith-api/internal/assembler"
)

// Standard MIDI file constants.
const (
	formatMultiTrack = 1

	statusNoteOn        = 0x90
	statusNoteOff       = 0x80
	statusProgramChange = 0xC0

	metaPrefix        = 0xFF
	metaLyric         = 0x05
	metaTempo         = 0x51
	metaTimeSignature = 0x58
	metaEndOfTrack    = 0x2F

	microsecondsPerMinute = 60_000_000

	// MIDI time-signature meta defaults: 24 clocks per metronome tick,
	// eight 32nds per quarter.
	clocksPerClick       = 24
	thirtySecondsPerBeat = 8

	noteOffVelocity = 64
)

// Encode serializes an Assembly into a format-1 Standard MIDI File. Encoding
// is pure: the same assembly always yields byte-identical output.
func Encode(a *assembler.Assembly) ([]byte, error) {
	if a.TotalTicks <= 0 {
		return nil, fmt.Errorf("assembly has no duration")
	}
	if a.Tempo <= 0 {
		return nil, fmt.Errorf("assembly has no tempo")
	}

	var buf bytes.Buffer

	trackCount := uint16(len(a.Tracks) + 1) // meta track first
	writeHeaderChunk(&buf, trackCount, uint16(a.TicksPerQuarter))
	writeTrackChunk(&buf, encodeMetaTrack(a))
	for _, track := range a.Tracks {
		writeTrackChunk(&buf, encodeInstrumentTrack(track, a.TotalTicks))
	}

	return buf.Bytes(), nil
}

func writeHeaderChunk(buf *bytes.Buffer, tracks, division uint16) {
	buf.WriteString("MThd")
	binary.Write(buf, binary.BigEndian, uint32(6))
	binary.Write(buf, binary.BigEndian, uint16(formatMultiTrack))
	binary.Write(buf, binary.BigEndian, tracks)
	binary.Write(buf, binary.BigEndian, division)
}

func writeTrackChunk(buf *bytes.Buffer, data []byte) {
	buf.WriteString("MTrk")
	binary.Write(buf, binary.BigEndian, uint32(len(data)))
	buf.Write(data)
}

// encodeMetaTrack writes tempo and time signature at tick 0 and holds the
// track open until the composition's final tick, so the file's total duration
// equals bars x beats-per-bar x ticks-per-quarter.
func encodeMetaTrack(a *assembler.Assembly) []byte {
	var data bytes.Buffer

	microsPerQuarter := microsecondsPerMinute / a.Tempo
	writeVLQ(&data, 0)
	data.Write([]byte{metaPrefix, metaTempo, 3,
		byte(microsPerQuarter >> 16), byte(microsPerQuarter >> 8), byte(microsPerQuarter)})

	writeVLQ(&data, 0)
	data.Write([]byte{metaPrefix, metaTimeSignature, 4,
		byte(a.TimeSignature.Numerator),
		denominatorPower(a.TimeSignature.Denominator),
		clocksPerClick, thirtySecondsPerBeat})

	writeVLQ(&data, uint32(a.TotalTicks))
	data.Write([]byte{metaPrefix, metaEndOfTrack, 0})

	return data.Bytes()
}

// trackEvent is one wire event with an absolute tick, ordered for encoding.
type trackEvent struct {
	tick  int
	order int // same-tick ordering: note-off < lyric < note-on
	bytes []byte
}

const (
	orderNoteOff = iota
	orderLyric
	orderNoteOn
)

// encodeInstrumentTrack expands notes into matched on/off pairs (plus lyric
// metas on texted notes) and delta-encodes them.
func encodeInstrumentTrack(track assembler.Track, totalTicks int) []byte {
	var events []trackEvent

	channel := byte(track.Channel & 0x0F)

	for _, note := range track.Notes {
		if note.Lyric != "" {
			lyric := []byte(note.Lyric)
			meta := append([]byte{metaPrefix, metaLyric}, vlqBytes(uint32(len(lyric)))...)
			meta = append(meta, lyric...)
			events = append(events, trackEvent{tick: note.Tick, order: orderLyric, bytes: meta})
		}
		events = append(events, trackEvent{
			tick:  note.Tick,
			order: orderNoteOn,
			bytes: []byte{statusNoteOn | channel, byte(note.Note), byte(note.Velocity)},
		})
		events = append(events, trackEvent{
			tick:  note.Tick + note.Duration,
			order: orderNoteOff,
			bytes: []byte{statusNoteOff | channel, byte(note.Note), noteOffVelocity},
		})
	}

	sort.SliceStable(events, func(i, j int) bool {
		if events[i].tick != events[j].tick {
			return events[i].tick < events[j].tick
		}
		if events[i].order != events[j].order {
			return events[i].order < events[j].order
		}
		return bytes.Compare(events[i].bytes, events[j].bytes) < 0
	})

	var data bytes.Buffer

	if track.Program >= 0 {
		writeVLQ(&data, 0)
		data.Write([]byte{statusProgramChange | channel, byte(track.Program)})
	}

	cursor := 0
	for _, ev := range events {
		writeVLQ(&data, uint32(ev.tick-cursor))
		data.Write(ev.bytes)
		cursor = ev.tick
	}

	endTick := totalTicks
	if cursor > endTick {
		endTick = cursor
	}
	writeVLQ(&data, uint32(endTick-cursor))
	data.Write([]byte{metaPrefix, metaEndOfTrack, 0})

	return data.Bytes()
}

// denominatorPower converts a time-signature denominator to its log2 form as
// the MIDI meta event expects (4 -> 2, 8 -> 3).
func denominatorPower(denominator int) byte {
	power := byte(0)
	for denominator > 1 {
		denominator >>= 1
		power++
	}
	return power
}

// writeVLQ appends a variable-length quantity, MSB-first with continuation
// bits.
func writeVLQ(buf *bytes.Buffer, value uint32) {
	buf.Write(vlqBytes(value))
}

func vlqBytes(value uint32) []byte {
	out := []byte{byte(value & 0x7F)}
	value >>= 7
	for value > 0 {
		out = append([]byte{byte(value&0x7F) | 0x80}, out...)
		value >>= 7
	}
	return out
}
