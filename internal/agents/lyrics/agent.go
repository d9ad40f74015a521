package lyrics

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
	"github.com/songsmith/songsmith-api/internal/theory"
)

const maxAttempts = 2

// Agent writes the lyric lines for each section.
type Agent struct {
	provider llm.Provider
	model    string
	timeout  time.Duration
	metrics  *metrics.SentryMetrics
}

// Result is the lyric stage outcome. Lines are always present: invalid
// generation falls back to the canned verses.
type Result struct {
	Lines     map[song.SectionKind][]song.LyricLine
	Source    song.PartSource
	Usage     llm.TokenUsage
	RawOutput string
}

// NewAgent creates a lyrics agent bound to one provider and model.
func NewAgent(provider llm.Provider, model string, timeout time.Duration) *Agent {
	return &Agent{
		provider: provider,
		model:    model,
		timeout:  timeout,
		metrics:  metrics.NewSentryMetrics(),
	}
}

// Generate writes lyrics for every section. It never fails.
func (a *Agent) Generate(ctx context.Context, req song.CompositionRequest, sections []song.Section) *Result {
	startTime := time.Now()
	log.Printf("✍️  LYRICS STAGE STARTED (Model: %s)", a.model)

	transaction := sentry.StartTransaction(ctx, "lyrics.generate")
	defer transaction.Finish()
	transaction.SetTag("model", a.model)
	transaction.SetTag("stage", song.StageLyrics)

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
				Name:        "song_lyrics",
				Description: "Lyric lines per song section",
				Schema:      llm.GetLyricsOutputSchema(),
			},
		})
		cancel()

		if err != nil {
			log.Printf("⚠️  LYRICS attempt %d failed: %v", attempt, err)
			inputArray = append(inputArray, correctiveMessage(err.Error()))
			continue
		}

		usage.InputTokens += resp.Usage.InputTokens
		usage.OutputTokens += resp.Usage.OutputTokens
		usage.TotalTokens += resp.Usage.TotalTokens
		rawOutput = resp.RawOutput

		lines, err := parseLines(resp.RawOutput, sections)
		if err != nil {
			log.Printf("⚠️  LYRICS attempt %d invalid: %v", attempt, err)
			inputArray = append(inputArray, correctiveMessage(err.Error()))
			continue
		}

		transaction.SetTag("success", "true")
		transaction.SetTag("source", string(song.SourceGenerator))
		a.metrics.RecordGenerationDuration(ctx, time.Since(startTime), true)
		log.Printf("✅ LYRICS STAGE COMPLETE in %v (generator)", time.Since(startTime))

		return &Result{
			Lines:     lines,
			Source:    song.SourceGenerator,
			Usage:     usage,
			RawOutput: rawOutput,
		}
	}

	transaction.SetTag("success", "true")
	transaction.SetTag("source", string(song.SourceFallback))
	a.metrics.RecordStageFallback(ctx, song.StageLyrics, "generation invalid or timed out")
	a.metrics.RecordGenerationDuration(ctx, time.Since(startTime), false)
	log.Printf("🛟 LYRICS STAGE falling back to canned lines")

	return &Result{
		Lines:     FallbackLines(sections),
		Source:    song.SourceFallback,
		Usage:     usage,
		RawOutput: rawOutput,
	}
}

// lyricsPayload mirrors the structured output schema.
type lyricsPayload struct {
	Sections []struct {
		Section string   `json:"section"`
		Lines   []string `json:"lines"`
	} `json:"sections"`
}

// parseLines decodes the stage output, syllabifies every line and validates
// the result. All requested sections must be present.
func parseLines(raw string, sections []song.Section) (map[song.SectionKind][]song.LyricLine, error) {
	var payload lyricsPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("output is not valid JSON: %w", err)
	}

	bySection := make(map[song.SectionKind][]song.LyricLine, len(payload.Sections))
	for _, ps := range payload.Sections {
		kind := song.SectionKind(ps.Section)
		lines := make([]song.LyricLine, 0, len(ps.Lines))
		for _, text := range ps.Lines {
			lines = append(lines, song.LyricLine{
				Text:      text,
				Syllables: theory.Syllabify(text),
			})
		}
		bySection[kind] = lines
	}

	for _, s := range sections {
		lines, ok := bySection[s.Kind]
		if !ok {
			return nil, fmt.Errorf("output is missing the %s section", s.Kind)
		}
		if err := song.ValidateLyrics(lines); err != nil {
			return nil, err
		}
	}

	return bySection, nil
}

func correctiveMessage(reason string) map[string]any {
	return map[string]any{
		"role": "user",
		"content": fmt.Sprintf(
			"Your previous output was rejected: %s. Return corrected JSON matching the schema exactly, "+
				"with non-empty lines for every section.", reason),
	}
}
