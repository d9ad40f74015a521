package chords

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/songsmith/songsmith-api/internal/llm"
	"github.com/songsmith/songsmith-api/internal/metrics"
	"github.com/songsmith/songsmith-api/internal/song"
	"github.com/songsmith/songsmith-api/internal/theory"
)

// chordOctave is the register the piano voicings resolve to (C4 = middle C).
const chordOctave = 4

// maxAttempts bounds generation: one initial call plus one corrective retry.
const maxAttempts = 2

// Agent generates one chord progression per section.
type Agent struct {
	provider llm.Provider
	model    string
	timeout  time.Duration
	metrics  *metrics.SentryMetrics
}

// Result is the chord stage outcome. The progressions are always present and
// valid: when generation fails, they come from the style tables.
type Result struct {
	Progressions map[song.SectionKind]*song.ChordProgression
	Source       song.PartSource
	Usage        llm.TokenUsage
	RawOutput    string
}

// NewAgent creates a chords agent bound to one provider and model.
func NewAgent(provider llm.Provider, model string, timeout time.Duration) *Agent {
	return &Agent{
		provider: provider,
		model:    model,
		timeout:  timeout,
		metrics:  metrics.NewSentryMetrics(),
	}
}

// Generate produces the chord progressions for the request. It never fails:
// invalid or late generator output falls back to the style template.
func (a *Agent) Generate(ctx context.Context, req song.CompositionRequest, sections []song.Section) *Result {
	startTime := time.Now()
	log.Printf("🎹 CHORDS STAGE STARTED (Model: %s)", a.model)

	transaction := sentry.StartTransaction(ctx, "chords.generate")
	defer transaction.Finish()
	transaction.SetTag("model", a.model)
	transaction.SetTag("stage", song.StageChords)

	inputArray := []map[string]any{
		{"role": "user", "content": buildUserPrompt(req, sections)},
	}

	var usage llm.TokenUsage
	var rawOutput string

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, a.timeout)
		resp, err := a.provider.Generate(callCtx, &llm.GenerationRequest{
			Model:        a.model,
			InputArray:   inputArray,
			SystemPrompt: systemPrompt,
			OutputSchema: &llm.OutputSchema{
				Name:        "chord_progressions",
				Description: "Chord progressions per song section",
				Schema:      llm.GetChordsOutputSchema(),
			},
		})
		cancel()

		if err != nil {
			log.Printf("⚠️  CHORDS attempt %d failed: %v", attempt, err)
			inputArray = append(inputArray, correctiveMessage(err.Error()))
			continue
		}

		usage.InputTokens += resp.Usage.InputTokens
		usage.OutputTokens += resp.Usage.OutputTokens
		usage.TotalTokens += resp.Usage.TotalTokens
		rawOutput = resp.RawOutput

		progressions, err := parseProgressions(resp.RawOutput, sections, req.TimeSignature)
		if err != nil {
			log.Printf("⚠️  CHORDS attempt %d invalid: %v", attempt, err)
			inputArray = append(inputArray, correctiveMessage(err.Error()))
			continue
		}

		transaction.SetTag("success", "true")
		transaction.SetTag("source", string(song.SourceGenerator))
		a.metrics.RecordGenerationDuration(ctx, time.Since(startTime), true)
		log.Printf("✅ CHORDS STAGE COMPLETE in %v (generator)", time.Since(startTime))

		return &Result{
			Progressions: progressions,
			Source:       song.SourceGenerator,
			Usage:        usage,
			RawOutput:    rawOutput,
		}
	}

	// Deterministic fallback from the style tables. Cannot fail.
	transaction.SetTag("success", "true")
	transaction.SetTag("source", string(song.SourceFallback))
	a.metrics.RecordStageFallback(ctx, song.StageChords, "generation invalid or timed out")
	a.metrics.RecordGenerationDuration(ctx, time.Since(startTime), false)
	log.Printf("🛟 CHORDS STAGE falling back to style template (%s)", req.Style)

	return &Result{
		Progressions: FallbackProgressions(req, sections),
		Source:       song.SourceFallback,
		Usage:        usage,
		RawOutput:    rawOutput,
	}
}

// chordsPayload mirrors the structured output schema.
type chordsPayload struct {
	Sections []struct {
		Section string `json:"section"`
		Chords  []struct {
			Symbol        string  `json:"symbol"`
			DurationBeats float64 `json:"durationBeats"`
		} `json:"chords"`
	} `json:"sections"`
}

// parseProgressions decodes the stage output and validates it against the
// section layout. The returned map always covers every requested section.
func parseProgressions(raw string, sections []song.Section, ts song.TimeSignature) (map[song.SectionKind]*song.ChordProgression, error) {
	var payload chordsPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("output is not valid JSON: %w", err)
	}

	bySection := make(map[song.SectionKind]*song.ChordProgression, len(payload.Sections))
	for _, ps := range payload.Sections {
		kind := song.SectionKind(ps.Section)
		progression := &song.ChordProgression{Section: kind}
		cursor := 0.0
		for _, c := range ps.Chords {
			event, err := resolveChordEvent(c.Symbol, cursor, c.DurationBeats)
			if err != nil {
				return nil, err
			}
			progression.Events = append(progression.Events, event)
			cursor += c.DurationBeats
		}
		bySection[kind] = progression
	}

	for _, s := range sections {
		progression, ok := bySection[s.Kind]
		if !ok {
			return nil, fmt.Errorf("output is missing the %s section", s.Kind)
		}
		if err := song.ValidateChordProgression(progression, s, ts); err != nil {
			return nil, err
		}
	}

	return bySection, nil
}

// resolveChordEvent parses a chord symbol and resolves its MIDI voicing.
func resolveChordEvent(symbol string, startBeats, durationBeats float64) (song.ChordEvent, error) {
	chord, err := theory.ParseChord(symbol)
	if err != nil {
		return song.ChordEvent{}, err
	}
	pitches, err := theory.ChordToMIDI(symbol, chordOctave)
	if err != nil {
		return song.ChordEvent{}, err
	}
	return song.ChordEvent{
		Symbol:        strings.TrimSpace(symbol),
		Root:          chord.Root,
		Quality:       chord.Quality,
		Pitches:       pitches,
		StartBeats:    startBeats,
		DurationBeats: durationBeats,
	}, nil
}

func correctiveMessage(reason string) map[string]any {
	return map[string]any{
		"role": "user",
		"content": fmt.Sprintf(
			"Your previous output was rejected: %s. Return corrected JSON matching the schema exactly. "+
				"Every section's chord durations must sum to the section's total beats.", reason),
	}
}
