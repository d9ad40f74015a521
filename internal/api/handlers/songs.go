package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/songsmith/songsmith-api/internal/logger"
	"github.com/songsmith/songsmith-api/internal/services"
	"github.com/songsmith/songsmith-api/internal/song"
	"github.com/songsmith/songsmith-api/internal/store"
)

const midiContentType = "audio/midi"

// SongsHandler exposes the composition pipeline over HTTP.
type SongsHandler struct {
	composer *services.ComposerService
}

func NewSongsHandler(composer *services.ComposerService) *SongsHandler {
	return &SongsHandler{composer: composer}
}

// Compose handles POST /api/v1/songs. It is synchronous: the response is sent
// once the song is durably written.
func (h *SongsHandler) Compose(c *gin.Context) {
	var req song.CompositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":      "invalid request body: " + err.Error(),
			"request_id": c.GetString("request_id"),
		})
		return
	}

	result, err := h.composer.Compose(c.Request.Context(), req)
	if err != nil {
		var reqErr *song.RequestError
		if errors.As(err, &reqErr) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":      reqErr.Error(),
				"field":      reqErr.Field,
				"request_id": c.GetString("request_id"),
			})
			return
		}

		// Anything else indicates a defect, not bad input.
		logger.Error("compose failed", err, logger.Fields{
			"request_id": c.GetString("request_id"),
			"title":      req.Title,
		})
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":      "composition failed",
			"request_id": c.GetString("request_id"),
		})
		return
	}

	c.JSON(http.StatusCreated, result)
}

// List handles GET /api/v1/songs.
func (h *SongsHandler) List(c *gin.Context) {
	infos, err := h.composer.ListSongs()
	if err != nil {
		logger.Error("failed to list songs", err, logger.Fields{
			"request_id": c.GetString("request_id"),
		})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list songs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"songs": infos,
		"count": len(infos),
	})
}

// Get handles GET /api/v1/songs/:id.
func (h *SongsHandler) Get(c *gin.Context) {
	info, err := h.composer.GetComposition(c.Param("id"))
	if err != nil {
		h.artifactError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// GetMIDI handles GET /api/v1/songs/:id/midi.
func (h *SongsHandler) GetMIDI(c *gin.Context) {
	id := c.Param("id")
	data, err := h.composer.GetArtifact(id, store.KindMIDI)
	if err != nil {
		h.artifactError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id+".mid"))
	c.Data(http.StatusOK, midiContentType, data)
}

// GetNotation handles GET /api/v1/songs/:id/notation.
func (h *SongsHandler) GetNotation(c *gin.Context) {
	data, err := h.composer.GetArtifact(c.Param("id"), store.KindNotation)
	if err != nil {
		h.artifactError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", data)
}

// Delete handles DELETE /api/v1/songs/:id.
func (h *SongsHandler) Delete(c *gin.Context) {
	if err := h.composer.DeleteSong(c.Param("id")); err != nil {
		h.artifactError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *SongsHandler) artifactError(c *gin.Context, err error) {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "song not found"})
		return
	}
	logger.Error("song storage error", err, logger.Fields{
		"request_id": c.GetString("request_id"),
		"song_id":    c.Param("id"),
	})
	c.JSON(http.StatusInternalServerError, gin.H{"error": "storage error"})
}
