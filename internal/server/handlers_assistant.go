package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"mangadome/internal/assistant"
	"mangadome/internal/gemini"
	"mangadome/internal/logging"
)

type assistantPart struct {
	Text string `json:"text" binding:"required"`
}

type assistantTurn struct {
	Role  string          `json:"role" binding:"required,oneof=user model"`
	Parts []assistantPart `json:"parts" binding:"required,min=1,dive"`
}

type assistantRequest struct {
	Message           string          `json:"message" binding:"required,min=1"`
	UserID            string          `json:"userId"`
	History           []assistantTurn `json:"history" binding:"omitempty,dive"`
	SystemInstruction string          `json:"systemInstruction"`
	Persona           string          `json:"persona"`
}

// handleAssistant streams one assistant turn as text/plain. Status codes are
// only available before the first chunk is written; after that, failures are
// carried in-band by the relay.
func (s *Server) handleAssistant(c *gin.Context) {
	var req assistantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request",
			"details": err.Error(),
		})
		return
	}

	history := make([]gemini.Content, 0, len(req.History))
	for _, turn := range req.History {
		parts := make([]gemini.Part, 0, len(turn.Parts))
		for _, p := range turn.Parts {
			parts = append(parts, gemini.Part{Text: p.Text})
		}
		history = append(history, gemini.Content{Role: turn.Role, Parts: parts})
	}

	flusher, _ := c.Writer.(http.Flusher)
	wrote := false
	emit := func(chunk string) error {
		if !wrote {
			// Headers go out with the first chunk; until then a pre-stream
			// failure can still respond with a JSON error body.
			c.Header("Content-Type", "text/plain; charset=utf-8")
			c.Header("Cache-Control", "no-cache")
			c.Header("X-Accel-Buffering", "no")
		}
		if _, err := c.Writer.WriteString(chunk); err != nil {
			return err
		}
		wrote = true
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	}

	outcome, err := s.deps.Relay.Stream(c.Request.Context(), assistant.Request{
		Message:           req.Message,
		UserID:            req.UserID,
		History:           history,
		SystemInstruction: req.SystemInstruction,
		Persona:           req.Persona,
	}, emit)

	if err != nil && !wrote {
		// Nothing committed yet; a proper status is still possible.
		switch {
		case errors.Is(err, gemini.ErrNoAPIKey):
			c.JSON(http.StatusInternalServerError, gin.H{"error": "API key not configured"})
		case errors.Is(err, assistant.ErrEmptyMessage):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		default:
			logging.ServerError("assistant request failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "assistant unavailable"})
		}
		return
	}
	if err != nil {
		// Consumer disconnected mid-stream; nothing left to send.
		logging.ServerDebug("assistant stream aborted: %v", err)
		return
	}
	if outcome != nil && outcome.Interrupted {
		logging.ServerWarn("assistant stream ended with in-band error after %d chunks", outcome.Delivered)
	}
}
