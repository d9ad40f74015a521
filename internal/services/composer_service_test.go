package services

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/songsmith/songsmith-api/internal/agents/coordination"
	"github.com/songsmith/songsmith-api/internal/config"
	"github.com/songsmith/songsmith-api/internal/llm"
	"github.com/songsmith/songsmith-api/internal/song"
	"github.com/songsmith/songsmith-api/internal/store"
)

// brokenProvider forces every stage onto its deterministic fallback, which
// gives the service a complete composition without any backend.
type brokenProvider struct{}

func (brokenProvider) Generate(_ context.Context, _ *llm.GenerationRequest) (*llm.GenerationResponse, error) {
	return &llm.GenerationResponse{RawOutput: "no json here"}, nil
}

func (brokenProvider) Name() string { return "broken" }

func newTestService(t *testing.T) *ComposerService {
	t.Helper()
	cfg := &config.Config{SongsDir: t.TempDir()}
	pipeline := coordination.NewPipeline(brokenProvider{}, "test-model", time.Second, nil)
	svc, err := NewComposerService(cfg, pipeline, nil)
	require.NoError(t, err)
	return svc
}

func TestComposeEndToEnd(t *testing.T) {
	svc := newTestService(t)

	result, err := svc.Compose(context.Background(), song.CompositionRequest{
		Title: "My First Song",
		Style: "pop",
		Bars:  8,
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(result.ID, "my-first-song-"))
	assert.Equal(t, "/api/v1/songs/"+result.ID+"/midi", result.MIDIPath)
	assert.Empty(t, result.Anomalies)

	// Everything falls back with a broken backend, and that must be visible
	// in the stored metadata.
	info, err := svc.GetComposition(result.ID)
	require.NoError(t, err)
	for _, stage := range []string{song.StageChords, song.StageLyrics, song.StageMelody, song.StageDrums} {
		assert.Equal(t, song.SourceFallback, info.Sources[stage], "stage %s", stage)
	}
	assert.Equal(t, "My First Song", info.Title)
	assert.NotEmpty(t, info.Chords["verse"])
	assert.NotEmpty(t, info.Lyrics["chorus"])
	assert.Positive(t, info.MelodyNotes["verse"])

	midiData, err := svc.GetArtifact(result.ID, store.KindMIDI)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(midiData, []byte("MThd")))
	assert.Equal(t, len(midiData), info.MIDIBytes)

	notationData, err := svc.GetArtifact(result.ID, store.KindNotation)
	require.NoError(t, err)
	assert.Contains(t, string(notationData), "\"verse\"")
}

func TestComposeInvalidRequest(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Compose(context.Background(), song.CompositionRequest{Title: "Bad Tempo", Tempo: 5})
	var reqErr *song.RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, "tempo", reqErr.Field)

	songs, err := svc.ListSongs()
	require.NoError(t, err)
	assert.Empty(t, songs)
}

func TestComposeDistinctIDsForSameTitle(t *testing.T) {
	svc := newTestService(t)

	first, err := svc.Compose(context.Background(), song.CompositionRequest{Title: "Same Title", Bars: 8})
	require.NoError(t, err)
	second, err := svc.Compose(context.Background(), song.CompositionRequest{Title: "Same Title", Bars: 8})
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)

	songs, err := svc.ListSongs()
	require.NoError(t, err)
	assert.Len(t, songs, 2)
}

func TestComposeConcurrent(t *testing.T) {
	svc := newTestService(t)

	var wg sync.WaitGroup
	titles := []string{"Alpha", "Beta", "Gamma", "Delta"}
	for _, title := range titles {
		wg.Add(1)
		go func(title string) {
			defer wg.Done()
			_, err := svc.Compose(context.Background(), song.CompositionRequest{Title: title, Bars: 8})
			assert.NoError(t, err)
		}(title)
	}
	wg.Wait()

	songs, err := svc.ListSongs()
	require.NoError(t, err)
	assert.Len(t, songs, len(titles))
}

func TestDeleteSong(t *testing.T) {
	svc := newTestService(t)

	result, err := svc.Compose(context.Background(), song.CompositionRequest{Title: "Short Lived", Bars: 8})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteSong(result.ID))
	_, err = svc.GetComposition(result.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"My First Song", "my-first-song"},
		{"  Hello,   World!  ", "hello-world"},
		{"Déjà Vu", "d-j-vu"},
		{"!!!", ""},
		{"already-slugged", "already-slugged"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, slugify(tt.in), "slugify(%q)", tt.in)
	}
}

func TestSongIDFallsBackForEmptySlug(t *testing.T) {
	id := songID("!!!")
	assert.True(t, strings.HasPrefix(id, "song-"))
	assert.Len(t, id, len("song-")+idSuffixLen)
}
