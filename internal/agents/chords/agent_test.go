package chords

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

// stubProvider replays canned outputs in order, repeating the last one.
type stubProvider struct {
	outputs  []string
	err      error
	calls    int
	requests []*llm.GenerationRequest
}

func (p *stubProvider) Generate(_ context.Context, req *llm.GenerationRequest) (*llm.GenerationResponse, error) {
	p.requests = append(p.requests, req)
	i := p.calls
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	if i >= len(p.outputs) {
		i = len(p.outputs) - 1
	}
	return &llm.GenerationResponse{
		RawOutput: p.outputs[i],
		Usage:     llm.TokenUsage{InputTokens: 100, OutputTokens: 50, TotalTokens: 150},
	}, nil
}

func (p *stubProvider) Name() string { return "stub" }

func testRequest() song.CompositionRequest {
	req := song.CompositionRequest{Title: "Test Song", Style: "pop", Bars: 8}
	if err := req.Normalize(); err != nil {
		panic(err)
	}
	return req
}

const validChordsJSON = `{
  "sections": [
    {"section": "verse", "chords": [
      {"symbol": "C", "durationBeats": 8},
      {"symbol": "G", "durationBeats": 8}
    ]},
    {"section": "chorus", "chords": [
      {"symbol": "F", "durationBeats": 8},
      {"symbol": "C", "durationBeats": 8}
    ]}
  ]
}`

func TestGenerateFromProvider(t *testing.T) {
	provider := &stubProvider{outputs: []string{validChordsJSON}}
	agent := NewAgent(provider, "test-model", time.Second)
	req := testRequest()
	sections := song.DefaultSections(req.Bars)

	res := agent.Generate(context.Background(), req, sections)

	assert.Equal(t, song.SourceGenerator, res.Source)
	assert.Equal(t, 1, provider.calls)
	assert.Equal(t, 150, res.Usage.TotalTokens)

	verse := res.Progressions[song.SectionVerse]
	require.NotNil(t, verse)
	require.Len(t, verse.Events, 2)
	assert.Equal(t, "C", verse.Events[0].Symbol)
	assert.Equal(t, []int{60, 64, 67}, verse.Events[0].Pitches)
	assert.Equal(t, 8.0, verse.Events[1].StartBeats)

	for _, s := range sections {
		assert.NoError(t, song.ValidateChordProgression(res.Progressions[s.Kind], s, req.TimeSignature))
	}
}

func TestGenerateCorrectiveRetry(t *testing.T) {
	provider := &stubProvider{outputs: []string{"not even json", validChordsJSON}}
	agent := NewAgent(provider, "test-model", time.Second)
	req := testRequest()

	res := agent.Generate(context.Background(), req, song.DefaultSections(req.Bars))

	assert.Equal(t, song.SourceGenerator, res.Source)
	assert.Equal(t, 2, provider.calls)

	// The retry call must carry the corrective message on top of the original.
	require.Len(t, provider.requests, 2)
	retry := provider.requests[1]
	require.Len(t, retry.InputArray, 2)
	assert.Contains(t, retry.InputArray[1]["content"], "rejected")
}

func TestGenerateFallsBackAfterRetries(t *testing.T) {
	provider := &stubProvider{outputs: []string{"garbage"}}
	agent := NewAgent(provider, "test-model", time.Second)
	req := testRequest()
	sections := song.DefaultSections(req.Bars)

	res := agent.Generate(context.Background(), req, sections)

	assert.Equal(t, song.SourceFallback, res.Source)
	assert.Equal(t, 2, provider.calls)
	for _, s := range sections {
		assert.NoError(t, song.ValidateChordProgression(res.Progressions[s.Kind], s, req.TimeSignature))
	}
}

func TestGenerateFallsBackOnProviderError(t *testing.T) {
	provider := &stubProvider{err: errors.New("rate limited")}
	agent := NewAgent(provider, "test-model", time.Second)
	req := testRequest()

	res := agent.Generate(context.Background(), req, song.DefaultSections(req.Bars))

	assert.Equal(t, song.SourceFallback, res.Source)
	assert.Equal(t, 2, provider.calls)
	assert.Zero(t, res.Usage.TotalTokens)
}

func TestGenerateRejectsShortProgression(t *testing.T) {
	// Verse covers only 8 of 16 beats; both attempts return it, so the agent
	// must fall back.
	short := `{"sections": [
		{"section": "verse", "chords": [{"symbol": "C", "durationBeats": 8}]},
		{"section": "chorus", "chords": [{"symbol": "F", "durationBeats": 16}]}
	]}`
	provider := &stubProvider{outputs: []string{short}}
	agent := NewAgent(provider, "test-model", time.Second)
	req := testRequest()

	res := agent.Generate(context.Background(), req, song.DefaultSections(req.Bars))

	assert.Equal(t, song.SourceFallback, res.Source)
}

func TestFallbackProgressionsValid(t *testing.T) {
	styles := []string{"pop", "rock", "jazz", "", "zydeco-polka"}

	for _, style := range styles {
		req := testRequest()
		req.Style = style
		sections := song.DefaultSections(req.Bars)

		out := FallbackProgressions(req, sections)
		for _, s := range sections {
			assert.NoError(t, song.ValidateChordProgression(out[s.Kind], s, req.TimeSignature),
				"style %q section %s", style, s.Kind)
		}
	}
}

func TestFallbackChorusDiffersFromVerse(t *testing.T) {
	req := testRequest()
	sections := song.DefaultSections(req.Bars)

	out := FallbackProgressions(req, sections)
	verse := out[song.SectionVerse].Events[0].Symbol
	chorus := out[song.SectionChorus].Events[0].Symbol
	assert.NotEqual(t, verse, chorus)
}
