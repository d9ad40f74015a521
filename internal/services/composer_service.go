package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/songsmith/songsmith-api/internal/agents/coordination"
	"github.com/songsmith/songsmith-api/internal/assembler"
	"github.com/songsmith/songsmith-api/internal/config"
	"github.com/songsmith/songsmith-api/internal/logger"
	"github.com/songsmith/songsmith-api/internal/metrics"
	"github.com/songsmith/songsmith-api/internal/midi"
	"github.com/songsmith/songsmith-api/internal/song"
	"github.com/songsmith/songsmith-api/internal/store"
)

// idSuffixLen is the number of uuid characters appended to the title slug so
// distinct requests with the same title get distinct songs.
const idSuffixLen = 8

// ComposerService drives one composition end to end: pipeline, assembly,
// encoding, persistence.
type ComposerService struct {
	pipeline   *coordination.Pipeline
	store      *store.Store
	metrics    *metrics.SentryMetrics
	cloudwatch *metrics.Client
}

// ComposeResult is the synchronous outcome of a compose call.
type ComposeResult struct {
	ID        string          `json:"id"`
	Info      *store.SongInfo `json:"info"`
	MIDIPath  string          `json:"midiPath"`
	Anomalies []string        `json:"anomalies,omitempty"`
}

// NewComposerService wires the pipeline to storage and metrics.
func NewComposerService(cfg *config.Config, pipeline *coordination.Pipeline, cloudwatch *metrics.Client) (*ComposerService, error) {
	st, err := store.New(cfg.SongsDir)
	if err != nil {
		return nil, err
	}
	return &ComposerService{
		pipeline:   pipeline,
		store:      st,
		metrics:    metrics.NewSentryMetrics(),
		cloudwatch: cloudwatch,
	}, nil
}

// Compose runs the full pipeline for one request and persists the artifacts.
// It returns only after the song is durably written. The only user-visible
// failure is an invalid request; generator unreliability is absorbed by the
// stage fallbacks.
func (s *ComposerService) Compose(ctx context.Context, req song.CompositionRequest) (*ComposeResult, error) {
	startTime := time.Now()

	id := songID(req.Title)
	composition, err := s.pipeline.Run(ctx, id, req)
	if err != nil {
		s.recordCompose(ctx, time.Since(startTime), false)
		return nil, err
	}

	state := coordination.StateAssembled

	assembly := assembler.Assemble(composition)

	midiData, err := midi.Encode(assembly)
	if err != nil {
		// Validated input should always encode; failing here is a defect.
		coordination.Transition(id, state, coordination.StateFailed)
		logger.Error("MIDI encoding failed", err, logger.Fields{"song_id": id})
		s.recordCompose(ctx, time.Since(startTime), false)
		return nil, fmt.Errorf("encoding failed: %w", err)
	}

	notationData, err := midi.EncodeNotation(composition)
	if err != nil {
		coordination.Transition(id, state, coordination.StateFailed)
		logger.Error("notation encoding failed", err, logger.Fields{"song_id": id})
		s.recordCompose(ctx, time.Since(startTime), false)
		return nil, fmt.Errorf("encoding failed: %w", err)
	}
	state = coordination.Transition(id, state, coordination.StateEncoded)

	info := buildSongInfo(composition, assembly, len(midiData))
	if err := s.store.Save(id, midiData, notationData, info); err != nil {
		coordination.Transition(id, state, coordination.StateFailed)
		logger.Error("failed to persist song", err, logger.Fields{"song_id": id})
		s.recordCompose(ctx, time.Since(startTime), false)
		return nil, fmt.Errorf("failed to persist song: %w", err)
	}
	coordination.Transition(id, state, coordination.StateDone)

	s.recordCompose(ctx, time.Since(startTime), true)
	logger.Info("song composed", logger.Fields{
		"song_id":     id,
		"duration_ms": time.Since(startTime).Milliseconds(),
		"midi_bytes":  len(midiData),
	})

	return &ComposeResult{
		ID:        id,
		Info:      info,
		MIDIPath:  fmt.Sprintf("/api/v1/songs/%s/midi", id),
		Anomalies: assembly.Anomalies,
	}, nil
}

// GetComposition returns a stored song's metadata.
func (s *ComposerService) GetComposition(id string) (*store.SongInfo, error) {
	return s.store.GetInfo(id)
}

// GetArtifact returns a stored song's MIDI or notation artifact.
func (s *ComposerService) GetArtifact(id, kind string) ([]byte, error) {
	return s.store.GetArtifact(id, kind)
}

// ListSongs returns metadata for every stored song, newest first.
func (s *ComposerService) ListSongs() ([]*store.SongInfo, error) {
	return s.store.List()
}

// DeleteSong removes a stored song.
func (s *ComposerService) DeleteSong(id string) error {
	return s.store.Delete(id)
}

func (s *ComposerService) recordCompose(ctx context.Context, duration time.Duration, success bool) {
	s.metrics.RecordComposeDuration(ctx, duration, success)
	if s.cloudwatch != nil {
		s.cloudwatch.RecordComposeDuration(duration, success)
	}
}

// songID builds a filesystem-safe identifier from the title plus a short
// random suffix.
func songID(title string) string {
	slug := slugify(title)
	if slug == "" {
		slug = "song"
	}
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:idSuffixLen]
	return slug + "-" + suffix
}

// slugify lowercases the title and keeps only letters, digits and hyphens.
func slugify(title string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// buildSongInfo summarizes a composition into the durable metadata record.
func buildSongInfo(c *song.Composition, a *assembler.Assembly, midiBytes int) *store.SongInfo {
	info := &store.SongInfo{
		ID:    c.ID,
		Title: c.Request.Title,
		Style: c.Request.Style,
		Key:   c.Request.Key,
		Tempo: c.Request.Tempo,
		TimeSignature: fmt.Sprintf("%d/%d",
			c.Request.TimeSignature.Numerator, c.Request.TimeSignature.Denominator),
		Bars:        c.Request.Bars,
		CreatedAt:   time.Now().UTC(),
		Sources:     c.Sources,
		Chords:      make(map[string][]string, len(c.Sections)),
		Lyrics:      make(map[string][]string, len(c.Sections)),
		MelodyNotes: make(map[string]int, len(c.Sections)),
		Anomalies:   a.Anomalies,
		MIDIBytes:   midiBytes,
	}
	if c.Drums != nil {
		info.DrumStyle = c.Drums.Style
	}

	for _, s := range c.Sections {
		kind := string(s.Kind)
		if progression := c.Chords[s.Kind]; progression != nil {
			for _, ev := range progression.Events {
				info.Chords[kind] = append(info.Chords[kind], ev.Symbol)
			}
		}
		for _, line := range c.Lyrics[s.Kind] {
			info.Lyrics[kind] = append(info.Lyrics[kind], line.Text)
		}
		if line := c.Melody[s.Kind]; line != nil {
			info.MelodyNotes[kind] = len(line.Notes)
		}
	}

	return info
}
