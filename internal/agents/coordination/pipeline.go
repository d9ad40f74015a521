package coordination

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/songsmith/songsmith-api/internal/agents/chords"
	"github.com/songsmith/songsmith-api/internal/agents/drums"
	"github.com/songsmith/songsmith-api/internal/agents/lyrics"
	"github.com/songsmith/songsmith-api/internal/agents/melody"
	"github.com/songsmith/songsmith-api/internal/llm"
	"github.com/songsmith/songsmith-api/internal/metrics"
	"github.com/songsmith/songsmith-api/internal/observability"
	"github.com/songsmith/songsmith-api/internal/song"
)

// State is a pipeline run's position in the stage sequence.
type State string

const (
	StatePending     State = "pending"
	StateChordsReady State = "chords_ready"
	StateLyricsReady State = "lyrics_ready"
	StateMelodyReady State = "melody_ready"
	StateDrumsReady  State = "drums_ready"
	StateAssembled   State = "assembled"
	StateEncoded     State = "encoded"
	StateDone        State = "done"
	StateFailed      State = "failed"
)

// Transition logs a state change for one pipeline run and returns the new
// state. Encoding and persistence report through this too, so the whole
// lifecycle shows up in one log stream.
func Transition(id string, from, to State) State {
	log.Printf("🔀 PIPELINE %s: %s -> %s", id, from, to)
	return to
}

// Pipeline sequences the generation stages and assembles their outputs into
// one Composition. It is the only component that mutates a Composition while
// it is being built.
type Pipeline struct {
	chords     *chords.Agent
	lyrics     *lyrics.Agent
	melody     *melody.Agent
	drums      *drums.Agent
	model      string
	metrics    *metrics.SentryMetrics
	cloudwatch *metrics.Client
}

// NewPipeline wires the four stage agents to one provider and model. The
// CloudWatch client may be nil outside production.
func NewPipeline(provider llm.Provider, model string, stageTimeout time.Duration, cloudwatch *metrics.Client) *Pipeline {
	return &Pipeline{
		chords:     chords.NewAgent(provider, model, stageTimeout),
		lyrics:     lyrics.NewAgent(provider, model, stageTimeout),
		melody:     melody.NewAgent(provider, model, stageTimeout),
		drums:      drums.NewAgent(provider, model, stageTimeout),
		model:      model,
		metrics:    metrics.NewSentryMetrics(),
		cloudwatch: cloudwatch,
	}
}

// Run executes the pipeline for one request. The only error path is an
// invalid request; stage agents absorb generator failures via fallback, so a
// valid request always yields a complete Composition.
//
// The drum stage only depends on tempo/style, so it runs concurrently with
// the chord/lyric/melody chain and is joined before assembly.
func (p *Pipeline) Run(ctx context.Context, id string, req song.CompositionRequest) (*song.Composition, error) {
	startTime := time.Now()
	state := StatePending
	log.Printf("🎼 PIPELINE STARTED: %s (%q)", id, req.Title)

	transaction := sentry.StartTransaction(ctx, "pipeline.run")
	defer transaction.Finish()
	transaction.SetTag("song_id", id)
	transaction.SetTag("model", p.model)

	if err := req.Normalize(); err != nil {
		state = Transition(id, state, StateFailed)
		transaction.SetTag("success", "false")
		return nil, err
	}

	trace := observability.GetClient().StartTrace(ctx, "compose", map[string]interface{}{
		"song_id": id,
		"title":   req.Title,
		"style":   req.Style,
	})
	defer trace.Finish()

	sections := song.DefaultSections(req.Bars)

	// Drums in parallel with the chord/lyric/melody chain
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		drumsRes  *drums.Result
		drumsSpan = transaction.StartChild("stage.drums")
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		res := p.drums.Generate(ctx, req)
		mu.Lock()
		drumsRes = res
		mu.Unlock()
		drumsSpan.Finish()
	}()

	chordsSpan := transaction.StartChild("stage.chords")
	chordsRes := p.chords.Generate(ctx, req, sections)
	chordsSpan.Finish()
	p.recordStage(trace, song.StageChords, chordsRes.RawOutput, chordsRes.Source, chordsRes.Usage)
	state = Transition(id, state, StateChordsReady)

	lyricsSpan := transaction.StartChild("stage.lyrics")
	lyricsRes := p.lyrics.Generate(ctx, req, sections)
	lyricsSpan.Finish()
	p.recordStage(trace, song.StageLyrics, lyricsRes.RawOutput, lyricsRes.Source, lyricsRes.Usage)
	state = Transition(id, state, StateLyricsReady)

	melodySpan := transaction.StartChild("stage.melody")
	melodyRes := p.melody.Generate(ctx, &melody.Context{
		Request:  req,
		Sections: sections,
		Chords:   chordsRes.Progressions,
		Lyrics:   lyricsRes.Lines,
	})
	melodySpan.Finish()
	p.recordStage(trace, song.StageMelody, melodyRes.RawOutput, melodyRes.Source, melodyRes.Usage)
	state = Transition(id, state, StateMelodyReady)

	wg.Wait()
	p.recordStage(trace, song.StageDrums, drumsRes.RawOutput, drumsRes.Source, drumsRes.Usage)
	state = Transition(id, state, StateDrumsReady)

	composition := &song.Composition{
		ID:       id,
		Request:  req,
		Sections: sections,
		Chords:   chordsRes.Progressions,
		Lyrics:   lyricsRes.Lines,
		Melody:   melodyRes.Melodies,
		Drums:    drumsRes.Pattern,
		Sources: map[string]song.PartSource{
			song.StageChords: chordsRes.Source,
			song.StageLyrics: lyricsRes.Source,
			song.StageMelody: melodyRes.Source,
			song.StageDrums:  drumsRes.Source,
		},
	}

	if err := composition.CheckConsistency(); err != nil {
		// Stage agents guarantee valid parts, so this indicates a defect
		// rather than bad input. Fatal for this request.
		state = Transition(id, state, StateFailed)
		transaction.SetTag("success", "false")
		sentry.CaptureException(err)
		return nil, fmt.Errorf("assembled composition is inconsistent: %w", err)
	}
	state = Transition(id, state, StateAssembled)

	transaction.SetTag("success", "true")
	log.Printf("🎼 PIPELINE COMPLETE: %s in %v (state=%s)", id, time.Since(startTime), state)
	return composition, nil
}

// recordStage reports one stage's generation to Langfuse and token metrics.
func (p *Pipeline) recordStage(trace *observability.Trace, stage, rawOutput string, source song.PartSource, usage llm.TokenUsage) {
	gen := trace.Generation(stage, map[string]interface{}{
		"stage":  stage,
		"source": string(source),
	})
	if rawOutput != "" {
		gen.Output(rawOutput)
	}
	gen.Usage(p.model, usage)
	if source == song.SourceFallback {
		gen.SetLevel("WARNING")
	}
	gen.Finish()

	if usage.TotalTokens > 0 {
		p.metrics.RecordTokenUsage(context.Background(), p.model, usage.TotalTokens, usage.InputTokens, usage.OutputTokens)
		if p.cloudwatch != nil {
			p.cloudwatch.RecordTokenUsage(p.model, usage.TotalTokens, usage.InputTokens, usage.OutputTokens)
		}
	}
	if source == song.SourceFallback && p.cloudwatch != nil {
		p.cloudwatch.RecordStageFallback(stage)
	}
}

