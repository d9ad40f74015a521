package midi

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/songsmith/songsmith-api/internal/assembler"
	"github.com/songsmith/songsmith-api/internal/song"
	"github.com/songsmith/songsmith-api/internal/theory"
)

func testAssembly() *assembler.Assembly {
	return &assembler.Assembly{
		TicksPerQuarter: theory.TicksPerQuarter,
		Tempo:           120,
		TimeSignature:   song.TimeSignature{Numerator: 4, Denominator: 4},
		TotalTicks:      4 * theory.TicksPerQuarter,
		Tracks: []assembler.Track{
			{
				Name:    assembler.TrackPiano,
				Channel: 0,
				Program: 0,
				Notes: []assembler.NoteEvent{
					{Tick: 0, Duration: 960, Note: 60, Velocity: 64},
					{Tick: 0, Duration: 960, Note: 64, Velocity: 64},
					{Tick: 960, Duration: 960, Note: 67, Velocity: 64},
				},
			},
			{
				Name:    assembler.TrackMelody,
				Channel: 1,
				Program: 73,
				Notes: []assembler.NoteEvent{
					{Tick: 0, Duration: 480, Note: 72, Velocity: 80, Lyric: "la"},
					{Tick: 480, Duration: 480, Note: 74, Velocity: 80, Lyric: "di"},
				},
			},
			{
				Name:    assembler.TrackDrums,
				Channel: 9,
				Program: -1,
				Notes: []assembler.NoteEvent{
					{Tick: 0, Duration: 60, Note: 36, Velocity: 90},
					{Tick: 480, Duration: 60, Note: 38, Velocity: 90},
				},
			},
		},
	}
}

func TestEncodeHeader(t *testing.T) {
	data, err := Encode(testAssembly())
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	if !bytes.HasPrefix(data, []byte("MThd")) {
		t.Fatal("output does not start with MThd")
	}
	if got := binary.BigEndian.Uint32(data[4:8]); got != 6 {
		t.Errorf("header length = %d, want 6", got)
	}
	if got := binary.BigEndian.Uint16(data[8:10]); got != 1 {
		t.Errorf("format = %d, want 1", got)
	}
	// Meta track plus three instrument tracks.
	if got := binary.BigEndian.Uint16(data[10:12]); got != 4 {
		t.Errorf("track count = %d, want 4", got)
	}
	if got := binary.BigEndian.Uint16(data[12:14]); got != theory.TicksPerQuarter {
		t.Errorf("division = %d, want %d", got, theory.TicksPerQuarter)
	}
}

func TestEncodeDeterministic(t *testing.T) {
	a := testAssembly()

	first, err := Encode(a)
	if err != nil {
		t.Fatalf("first encode failed: %v", err)
	}
	second, err := Encode(a)
	if err != nil {
		t.Fatalf("second encode failed: %v", err)
	}

	if !bytes.Equal(first, second) {
		t.Error("re-encoding the same assembly produced different bytes")
	}
}

func TestEncodeTrackChunks(t *testing.T) {
	data, err := Encode(testAssembly())
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	// Walk the chunks after the 14-byte header; every MTrk length must be
	// consistent and every track must end with end-of-track.
	offset := 14
	trackCount := 0
	for offset < len(data) {
		if string(data[offset:offset+4]) != "MTrk" {
			t.Fatalf("chunk at offset %d is not MTrk", offset)
		}
		length := int(binary.BigEndian.Uint32(data[offset+4 : offset+8]))
		body := data[offset+8 : offset+8+length]
		if !bytes.HasSuffix(body, []byte{0xFF, 0x2F, 0x00}) {
			t.Errorf("track %d does not end with end-of-track", trackCount)
		}
		offset += 8 + length
		trackCount++
	}
	if trackCount != 4 {
		t.Errorf("walked %d tracks, want 4", trackCount)
	}
}

func TestEncodeLyricMeta(t *testing.T) {
	data, err := Encode(testAssembly())
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	// Lyric meta: FF 05 <len> "la"
	if !bytes.Contains(data, []byte{0xFF, 0x05, 0x02, 'l', 'a'}) {
		t.Error("melody track is missing the lyric meta event")
	}
}

func TestEncodeTempoMeta(t *testing.T) {
	data, err := Encode(testAssembly())
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	// 120 BPM = 500000 microseconds per quarter = 0x07 0xA1 0x20.
	if !bytes.Contains(data, []byte{0xFF, 0x51, 0x03, 0x07, 0xA1, 0x20}) {
		t.Error("meta track is missing the 120 BPM tempo event")
	}
	// 4/4: numerator 4, denominator power 2.
	if !bytes.Contains(data, []byte{0xFF, 0x58, 0x04, 0x04, 0x02, 24, 8}) {
		t.Error("meta track is missing the 4/4 time signature event")
	}
}

func TestEncodeRejectsEmptyAssembly(t *testing.T) {
	if _, err := Encode(&assembler.Assembly{TicksPerQuarter: 480, Tempo: 120}); err == nil {
		t.Error("expected an error for an assembly with no duration")
	}
}

func TestVLQBytes(t *testing.T) {
	tests := []struct {
		value uint32
		want  []byte
	}{
		{0, []byte{0x00}},
		{0x40, []byte{0x40}},
		{0x7F, []byte{0x7F}},
		{0x80, []byte{0x81, 0x00}},
		{1920, []byte{0x8F, 0x00}},
		{0x3FFF, []byte{0xFF, 0x7F}},
		{0x4000, []byte{0x81, 0x80, 0x00}},
	}

	for _, tt := range tests {
		got := vlqBytes(tt.value)
		if !bytes.Equal(got, tt.want) {
			t.Errorf("vlqBytes(%d) = %v, want %v", tt.value, got, tt.want)
		}
	}
}
