package coordination

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/songsmith/songsmith-api/internal/llm"
	"github.com/songsmith/songsmith-api/internal/song"
)

// brokenProvider always returns output no stage can parse, forcing every
// stage onto its fallback.
type brokenProvider struct{}

func (brokenProvider) Generate(_ context.Context, _ *llm.GenerationRequest) (*llm.GenerationResponse, error) {
	return &llm.GenerationResponse{RawOutput: "][ not json ]["}, nil
}

func (brokenProvider) Name() string { return "broken" }

// failingProvider always errors, as if the backend were unreachable.
type failingProvider struct{}

func (failingProvider) Generate(_ context.Context, _ *llm.GenerationRequest) (*llm.GenerationResponse, error) {
	return nil, errors.New("connection refused")
}

func (failingProvider) Name() string { return "failing" }

func TestRunAllStagesFallBack(t *testing.T) {
	pipeline := NewPipeline(brokenProvider{}, "test-model", time.Second, nil)

	req := song.CompositionRequest{Title: "Fallback Song", Style: "rock", Bars: 8}
	composition, err := pipeline.Run(context.Background(), "fallback-song-test", req)
	require.NoError(t, err)
	require.NotNil(t, composition)

	// Every stage must have fallen back, and the result must still be a
	// fully consistent composition.
	for _, stage := range []string{song.StageChords, song.StageLyrics, song.StageMelody, song.StageDrums} {
		assert.Equal(t, song.SourceFallback, composition.Sources[stage], "stage %s", stage)
	}
	assert.NoError(t, composition.CheckConsistency())
}

func TestRunProviderUnreachable(t *testing.T) {
	pipeline := NewPipeline(failingProvider{}, "test-model", time.Second, nil)

	req := song.CompositionRequest{Title: "Offline Song", Bars: 8}
	composition, err := pipeline.Run(context.Background(), "offline-song-test", req)
	require.NoError(t, err)
	assert.NoError(t, composition.CheckConsistency())
	assert.Equal(t, song.SourceFallback, composition.Sources[song.StageChords])
}

func TestRunInvalidRequest(t *testing.T) {
	pipeline := NewPipeline(brokenProvider{}, "test-model", time.Second, nil)

	tests := []struct {
		name  string
		req   song.CompositionRequest
		field string
	}{
		{"empty title", song.CompositionRequest{Title: "   "}, "title"},
		{"tempo too high", song.CompositionRequest{Title: "Fast", Tempo: 999}, "tempo"},
		{"odd bars", song.CompositionRequest{Title: "Odd", Bars: 7}, "bars"},
		{"bad key", song.CompositionRequest{Title: "Weird", Key: "H#"}, "key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := pipeline.Run(context.Background(), "invalid-test", tt.req)
			var reqErr *song.RequestError
			require.ErrorAs(t, err, &reqErr)
			assert.Equal(t, tt.field, reqErr.Field)
		})
	}
}

func TestRunPopulatesAllSections(t *testing.T) {
	pipeline := NewPipeline(brokenProvider{}, "test-model", time.Second, nil)

	req := song.CompositionRequest{Title: "Full Form", Style: "pop", Bars: 16}
	composition, err := pipeline.Run(context.Background(), "full-form-test", req)
	require.NoError(t, err)

	require.Len(t, composition.Sections, 2)
	for _, s := range composition.Sections {
		assert.NotNil(t, composition.Chords[s.Kind], "chords for %s", s.Kind)
		assert.NotEmpty(t, composition.Lyrics[s.Kind], "lyrics for %s", s.Kind)
		assert.NotNil(t, composition.Melody[s.Kind], "melody for %s", s.Kind)
	}
	require.NotNil(t, composition.Drums)
	assert.NotEmpty(t, composition.Drums.Hits)
}

func TestRunAppliesDefaults(t *testing.T) {
	pipeline := NewPipeline(brokenProvider{}, "test-model", time.Second, nil)

	composition, err := pipeline.Run(context.Background(), "defaults-test",
		song.CompositionRequest{Title: "Defaults"})
	require.NoError(t, err)

	assert.Equal(t, 120, composition.Request.Tempo)
	assert.Equal(t, 16, composition.Request.Bars)
	assert.Equal(t, "C", composition.Request.Key)
	assert.Equal(t, 4, composition.Request.TimeSignature.Numerator)
}

func TestTransition(t *testing.T) {
	got := Transition("some-id", StatePending, StateChordsReady)
	assert.Equal(t, StateChordsReady, got)
}
