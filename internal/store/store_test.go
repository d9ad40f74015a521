package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/songsmith/songsmith-api/internal/song"
)

func testInfo(id string, createdAt time.Time) *SongInfo {
	return &SongInfo{
		ID:            id,
		Title:         "Test Song",
		Key:           "C",
		Tempo:         120,
		TimeSignature: "4/4",
		Bars:          16,
		CreatedAt:     createdAt,
		Sources: map[string]song.PartSource{
			song.StageChords: song.SourceGenerator,
			song.StageLyrics: song.SourceFallback,
		},
		Chords:      map[string][]string{"verse": {"C", "G", "Am", "F"}},
		Lyrics:      map[string][]string{"verse": {"hello world"}},
		MelodyNotes: map[string]int{"verse": 8},
		MIDIBytes:   3,
	}
}

func TestSaveAndGet(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	midiData := []byte{0x4D, 0x54, 0x68}
	notationData := []byte(`{"title":"Test Song"}`)
	require.NoError(t, s.Save("test-song-abc12345", midiData, notationData, testInfo("test-song-abc12345", time.Now().UTC())))

	info, err := s.GetInfo("test-song-abc12345")
	require.NoError(t, err)
	assert.Equal(t, "Test Song", info.Title)
	assert.Equal(t, 120, info.Tempo)
	assert.Equal(t, song.SourceFallback, info.Sources[song.StageLyrics])
	assert.Equal(t, []string{"C", "G", "Am", "F"}, info.Chords["verse"])

	gotMIDI, err := s.GetArtifact("test-song-abc12345", KindMIDI)
	require.NoError(t, err)
	assert.Equal(t, midiData, gotMIDI)

	gotNotation, err := s.GetArtifact("test-song-abc12345", KindNotation)
	require.NoError(t, err)
	assert.Equal(t, notationData, gotNotation)
}

func TestExists(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	assert.False(t, s.Exists("missing"))
	require.NoError(t, s.Save("present", []byte{1}, []byte(`{}`), testInfo("present", time.Now().UTC())))
	assert.True(t, s.Exists("present"))
}

func TestGetNotFound(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = s.GetInfo("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.GetArtifact("missing", KindMIDI)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetArtifactUnknownKind(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = s.GetArtifact("any", "waveform")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestSaveOverwrites(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Save("song", []byte("old"), []byte(`{"v":1}`), testInfo("song", time.Now().UTC())))
	require.NoError(t, s.Save("song", []byte("new"), []byte(`{"v":2}`), testInfo("song", time.Now().UTC())))

	data, err := s.GetArtifact("song", KindMIDI)
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), data)
}

func TestListNewestFirst(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		id := fmt.Sprintf("song-%d", i)
		require.NoError(t, s.Save(id, []byte{byte(i)}, []byte(`{}`), testInfo(id, base.Add(time.Duration(i)*time.Hour))))
	}

	infos, err := s.List()
	require.NoError(t, err)
	require.Len(t, infos, 3)
	assert.Equal(t, "song-2", infos[0].ID)
	assert.Equal(t, "song-0", infos[2].ID)
}

func TestListSkipsCorruptEntries(t *testing.T) {
	root := t.TempDir()
	s, err := New(root)
	require.NoError(t, err)

	require.NoError(t, s.Save("good", []byte{1}, []byte(`{}`), testInfo("good", time.Now().UTC())))

	// A directory without a readable metadata record must not break listing.
	require.NoError(t, os.MkdirAll(filepath.Join(root, "broken"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "broken", infoFileName), []byte("not json"), 0o644))

	infos, err := s.List()
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "good", infos[0].ID)
}

func TestDelete(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Save("song", []byte{1}, []byte(`{}`), testInfo("song", time.Now().UTC())))
	require.NoError(t, s.Delete("song"))
	assert.False(t, s.Exists("song"))
	assert.ErrorIs(t, s.Delete("song"), ErrNotFound)
}

func TestConcurrentSavesSameID(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			payload := []byte(fmt.Sprintf("midi-%d", i))
			assert.NoError(t, s.Save("song", payload, []byte(`{}`), testInfo("song", time.Now().UTC())))
		}(i)
	}
	wg.Wait()

	// One of the writers wins; the surviving artifact must be a complete
	// payload, never an interleaving.
	data, err := s.GetArtifact("song", KindMIDI)
	require.NoError(t, err)
	assert.Regexp(t, `^midi-\d$`, string(data))
}

func TestNoLeftoverTempFiles(t *testing.T) {
	root := t.TempDir()
	s, err := New(root)
	require.NoError(t, err)

	require.NoError(t, s.Save("song", []byte{1}, []byte(`{}`), testInfo("song", time.Now().UTC())))

	entries, err := os.ReadDir(filepath.Join(root, "song"))
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp")
	}
}
