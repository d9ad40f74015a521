package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/songsmith/songsmith-api/internal/agents/coordination"
	"github.com/songsmith/songsmith-api/internal/config"
	"github.com/songsmith/songsmith-api/internal/llm"
	"github.com/songsmith/songsmith-api/internal/services"
)

type brokenProvider struct{}

func (brokenProvider) Generate(_ context.Context, _ *llm.GenerationRequest) (*llm.GenerationResponse, error) {
	return &llm.GenerationResponse{RawOutput: "not json"}, nil
}

func (brokenProvider) Name() string { return "broken" }

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{SongsDir: t.TempDir()}
	pipeline := coordination.NewPipeline(brokenProvider{}, "test-model", time.Second, nil)
	composer, err := services.NewComposerService(cfg, pipeline, nil)
	require.NoError(t, err)

	router := gin.New()
	h := NewSongsHandler(composer)
	v1 := router.Group("/api/v1")
	v1.POST("/songs", h.Compose)
	v1.GET("/songs", h.List)
	v1.GET("/songs/:id", h.Get)
	v1.GET("/songs/:id/midi", h.GetMIDI)
	v1.GET("/songs/:id/notation", h.GetNotation)
	v1.DELETE("/songs/:id", h.Delete)
	return router
}

func composeSong(t *testing.T, router *gin.Engine, body string) map[string]any {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/songs", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var result map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	return result
}

func TestComposeEndpoint(t *testing.T) {
	router := newTestRouter(t)

	result := composeSong(t, router, `{"title": "Handler Song", "style": "rock", "bars": 8}`)

	id, ok := result["id"].(string)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(id, "handler-song-"))
	assert.Equal(t, "/api/v1/songs/"+id+"/midi", result["midiPath"])
}

func TestComposeEndpointBadJSON(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/songs", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestComposeEndpointInvalidRequest(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/songs", strings.NewReader(`{"title": "Too Fast", "tempo": 999}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "tempo", body["field"])
}

func TestGetMIDIEndpoint(t *testing.T) {
	router := newTestRouter(t)
	result := composeSong(t, router, `{"title": "MIDI Song", "bars": 8}`)
	id := result["id"].(string)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/songs/"+id+"/midi", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, midiContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), id+".mid")
	assert.True(t, strings.HasPrefix(w.Body.String(), "MThd"))
}

func TestGetNotationEndpoint(t *testing.T) {
	router := newTestRouter(t)
	result := composeSong(t, router, `{"title": "Notation Song", "bars": 8}`)
	id := result["id"].(string)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/songs/"+id+"/notation", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, "Notation Song", doc["title"])
}

func TestGetMissingSong(t *testing.T) {
	router := newTestRouter(t)

	for _, path := range []string{
		"/api/v1/songs/no-such-song",
		"/api/v1/songs/no-such-song/midi",
		"/api/v1/songs/no-such-song/notation",
	} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNotFound, w.Code, path)
	}
}

func TestListEndpoint(t *testing.T) {
	router := newTestRouter(t)
	composeSong(t, router, `{"title": "First", "bars": 8}`)
	composeSong(t, router, `{"title": "Second", "bars": 8}`)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/songs", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Count int              `json:"count"`
		Songs []map[string]any `json:"songs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
	assert.Len(t, body.Songs, 2)
}

func TestDeleteEndpoint(t *testing.T) {
	router := newTestRouter(t)
	result := composeSong(t, router, `{"title": "Doomed", "bars": 8}`)
	id := result["id"].(string)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/songs/"+id, nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/songs/"+id, nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Deleting again is a 404.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodDelete, "/api/v1/songs/"+id, nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
