package melody

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/songsmith/songsmith-api/internal/llm"
	"github.com/songsmith/songsmith-api/internal/metrics"
	"github.com/songsmith/songsmith-api/internal/song"
)

const maxAttempts = 2

// Agent writes the vocal melody, one line per section, carrying the lyric
// syllables note by note.
type Agent struct {
	provider llm.Provider
	model    string
	timeout  time.Duration
	metrics  *metrics.SentryMetrics
}

// Context carries the prior stage outputs the melody depends on.
type Context struct {
	Request  song.CompositionRequest
	Sections []song.Section
	Chords   map[song.SectionKind]*song.ChordProgression
	Lyrics   map[song.SectionKind][]song.LyricLine
}

// Result is the melody stage outcome. Melodies are always present: invalid
// generation falls back to a chord-tone walk.
type Result struct {
	Melodies  map[song.SectionKind]*song.MelodyLine
	Source    song.PartSource
	Usage     llm.TokenUsage
	RawOutput string
}

// NewAgent creates a melody agent bound to one provider and model.
func NewAgent(provider llm.Provider, model string, timeout time.Duration) *Agent {
	return &Agent{
		provider: provider,
		model:    model,
		timeout:  timeout,
		metrics:  metrics.NewSentryMetrics(),
	}
}

// Generate writes the melody for every section. It never fails.
func (a *Agent) Generate(ctx context.Context, stageCtx *Context) *Result {
	startTime := time.Now()
	log.Printf("🎤 MELODY STAGE STARTED (Model: %s)", a.model)

	transaction := sentry.StartTransaction(ctx, "melody.generate")
	defer transaction.Finish()
	transaction.SetTag("model", a.model)
	transaction.SetTag("stage", song.StageMelody)

	inputArray := []map[string]any{
		{"role": "user", "content": buildUserPrompt(stageCtx)},
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
				Name:        "vocal_melody",
				Description: "Melody notes per song section, aligned to the lyric syllables",
				Schema:      llm.GetMelodyOutputSchema(),
			},
		})
		cancel()

		if err != nil {
			log.Printf("⚠️  MELODY attempt %d failed: %v", attempt, err)
			inputArray = append(inputArray, correctiveMessage(err.Error()))
			continue
		}

		usage.InputTokens += resp.Usage.InputTokens
		usage.OutputTokens += resp.Usage.OutputTokens
		usage.TotalTokens += resp.Usage.TotalTokens
		rawOutput = resp.RawOutput

		melodies, err := parseMelodies(resp.RawOutput, stageCtx)
		if err != nil {
			log.Printf("⚠️  MELODY attempt %d invalid: %v", attempt, err)
			inputArray = append(inputArray, correctiveMessage(err.Error()))
			continue
		}

		transaction.SetTag("success", "true")
		transaction.SetTag("source", string(song.SourceGenerator))
		a.metrics.RecordGenerationDuration(ctx, time.Since(startTime), true)
		log.Printf("✅ MELODY STAGE COMPLETE in %v (generator)", time.Since(startTime))

		return &Result{
			Melodies:  melodies,
			Source:    song.SourceGenerator,
			Usage:     usage,
			RawOutput: rawOutput,
		}
	}

	transaction.SetTag("success", "true")
	transaction.SetTag("source", string(song.SourceFallback))
	a.metrics.RecordStageFallback(ctx, song.StageMelody, "generation invalid or timed out")
	a.metrics.RecordGenerationDuration(ctx, time.Since(startTime), false)
	log.Printf("🛟 MELODY STAGE falling back to chord-tone walk")

	return &Result{
		Melodies:  FallbackMelodies(stageCtx),
		Source:    song.SourceFallback,
		Usage:     usage,
		RawOutput: rawOutput,
	}
}

// melodyPayload mirrors the structured output schema.
type melodyPayload struct {
	Sections []struct {
		Section string           `json:"section"`
		Notes   []song.NoteEvent `json:"notes"`
	} `json:"sections"`
}

// parseMelodies decodes the stage output and validates each section against
// its lyrics and span. All requested sections must be present.
func parseMelodies(raw string, stageCtx *Context) (map[song.SectionKind]*song.MelodyLine, error) {
	var payload melodyPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("output is not valid JSON: %w", err)
	}

	bySection := make(map[song.SectionKind]*song.MelodyLine, len(payload.Sections))
	for _, ps := range payload.Sections {
		kind := song.SectionKind(ps.Section)
		bySection[kind] = &song.MelodyLine{Section: kind, Notes: ps.Notes}
	}

	for _, s := range stageCtx.Sections {
		line, ok := bySection[s.Kind]
		if !ok {
			return nil, fmt.Errorf("output is missing the %s section", s.Kind)
		}
		if err := song.ValidateMelody(line, stageCtx.Lyrics[s.Kind], s, stageCtx.Request.TimeSignature); err != nil {
			return nil, err
		}
	}

	return bySection, nil
}

func correctiveMessage(reason string) map[string]any {
	return map[string]any{
		"role": "user",
		"content": fmt.Sprintf(
			"Your previous output was rejected: %s. Return corrected JSON matching the schema exactly. "+
				"Notes must be in chronological order, stay inside the section, and carry every lyric "+
				"syllable exactly once, in order.", reason),
	}
}
