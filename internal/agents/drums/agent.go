package drums

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/songsmith/songsmith-api/internal/llm"
	"github.com/songsmith/songsmith-api/internal/metrics"
	"github.com/songsmith/songsmith-api/internal/song"
	"github.com/songsmith/songsmith-api/internal/theory"
)

const maxAttempts = 2

// Agent generates the drum loop. The loop covers one bar and is tiled across
// the whole song by the assembler.
type Agent struct {
	provider llm.Provider
	model    string
	timeout  time.Duration
	metrics  *metrics.SentryMetrics
}

// Result is the drum stage outcome. The pattern is always present: invalid
// generation falls back to the style's grid template.
type Result struct {
	Pattern   *song.DrumPattern
	Source    song.PartSource
	Usage     llm.TokenUsage
	RawOutput string
}

// NewAgent creates a drums agent bound to one provider and model.
func NewAgent(provider llm.Provider, model string, timeout time.Duration) *Agent {
	return &Agent{
		provider: provider,
		model:    model,
		timeout:  timeout,
		metrics:  metrics.NewSentryMetrics(),
	}
}

// Generate produces the drum pattern for the request. It never fails.
func (a *Agent) Generate(ctx context.Context, req song.CompositionRequest) *Result {
	startTime := time.Now()
	log.Printf("🥁 DRUMS STAGE STARTED (Model: %s)", a.model)

	transaction := sentry.StartTransaction(ctx, "drums.generate")
	defer transaction.Finish()
	transaction.SetTag("model", a.model)
	transaction.SetTag("stage", song.StageDrums)

	style := resolveStyle(req)
	loopTicks := barTicks(req.TimeSignature)
	transaction.SetTag("drum_style", style)

	inputArray := []map[string]any{
		{"role": "user", "content": buildUserPrompt(req, style)},
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
				Name:        "drum_pattern",
				Description: "One-bar drum groove as per-voice grids",
				Schema:      llm.GetDrumsOutputSchema(theory.DrumStyleNames, DrumNames()),
			},
		})
		cancel()

		if err != nil {
			log.Printf("⚠️  DRUMS attempt %d failed: %v", attempt, err)
			inputArray = append(inputArray, correctiveMessage(err.Error()))
			continue
		}

		usage.InputTokens += resp.Usage.InputTokens
		usage.OutputTokens += resp.Usage.OutputTokens
		usage.TotalTokens += resp.Usage.TotalTokens
		rawOutput = resp.RawOutput

		pattern, err := parsePattern(resp.RawOutput, loopTicks)
		if err != nil {
			log.Printf("⚠️  DRUMS attempt %d invalid: %v", attempt, err)
			inputArray = append(inputArray, correctiveMessage(err.Error()))
			continue
		}

		transaction.SetTag("success", "true")
		transaction.SetTag("source", string(song.SourceGenerator))
		a.metrics.RecordGenerationDuration(ctx, time.Since(startTime), true)
		log.Printf("✅ DRUMS STAGE COMPLETE in %v (generator, style=%s)", time.Since(startTime), pattern.Style)

		return &Result{
			Pattern:   pattern,
			Source:    song.SourceGenerator,
			Usage:     usage,
			RawOutput: rawOutput,
		}
	}

	transaction.SetTag("success", "true")
	transaction.SetTag("source", string(song.SourceFallback))
	a.metrics.RecordStageFallback(ctx, song.StageDrums, "generation invalid or timed out")
	a.metrics.RecordGenerationDuration(ctx, time.Since(startTime), false)
	log.Printf("🛟 DRUMS STAGE falling back to %s template", style)

	return &Result{
		Pattern:   FallbackPattern(style, loopTicks),
		Source:    song.SourceFallback,
		Usage:     usage,
		RawOutput: rawOutput,
	}
}

// drumsPayload mirrors the structured output schema.
type drumsPayload struct {
	Style    string `json:"style"`
	Patterns []struct {
		Drum string `json:"drum"`
		Grid string `json:"grid"`
	} `json:"patterns"`
}

// parsePattern decodes the stage output, expands the grids into tick-stamped
// hits and validates the result.
func parsePattern(raw string, loopTicks int) (*song.DrumPattern, error) {
	var payload drumsPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("output is not valid JSON: %w", err)
	}
	if len(payload.Patterns) == 0 {
		return nil, fmt.Errorf("output has no drum patterns")
	}

	pattern := &song.DrumPattern{Style: payload.Style, LoopTicks: loopTicks}
	for _, p := range payload.Patterns {
		note, ok := theory.DrumNotes[p.Drum]
		if !ok {
			return nil, fmt.Errorf("unknown drum voice %q", p.Drum)
		}
		hits, err := theory.ExpandGrid(p.Grid, loopTicks)
		if err != nil {
			return nil, fmt.Errorf("voice %s: %w", p.Drum, err)
		}
		for _, h := range hits {
			pattern.Hits = append(pattern.Hits, song.DrumHit{
				Instrument: note,
				Tick:       h.Tick,
				Velocity:   h.Velocity,
			})
		}
	}

	if err := song.ValidateDrumPattern(pattern); err != nil {
		return nil, err
	}
	return pattern, nil
}

// resolveStyle picks the drum style: explicit request first, then keywords in
// the style and description text.
func resolveStyle(req song.CompositionRequest) string {
	if req.DrumStyle != "" {
		if _, ok := theory.DrumStylePatterns(req.DrumStyle); ok {
			return req.DrumStyle
		}
	}
	return theory.InferDrumStyle(req.Style + " " + req.Description)
}

// barTicks returns the tick length of one bar in the given meter.
func barTicks(ts song.TimeSignature) int {
	return int(ts.BeatsPerBar() * theory.TicksPerQuarter)
}

// DrumNames lists the known percussion voices in a stable order.
func DrumNames() []string {
	names := make([]string, 0, len(theory.DrumNotes))
	for name := range theory.DrumNotes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func correctiveMessage(reason string) map[string]any {
	return map[string]any{
		"role": "user",
		"content": fmt.Sprintf(
			"Your previous output was rejected: %s. Return corrected JSON matching the schema exactly. "+
				"Grids use only the characters x, X, o and - and should be 16 characters per bar.", reason),
	}
}
