// Package server exposes the HTTP surface: health, the chat event callback
// and the approval interaction callback.
package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/SmartNewbieProject/sometimes-work-helper/internal/dedup"
	"github.com/SmartNewbieProject/sometimes-work-helper/internal/models"
	"github.com/SmartNewbieProject/sometimes-work-helper/internal/processor"
)

// Pipeline is the slice of the processor the HTTP layer drives.
type Pipeline interface {
	HandleMention(ctx context.Context, ev processor.MentionEvent)
	HandleInteraction(ctx context.Context, payload models.InteractionPayload) models.InteractionResult
}

type Server struct {
	pipeline Pipeline
	// seenEvents absorbs platform-level redelivery by event id. Distinct
	// from message fingerprints and checked before any analysis work.
	seenEvents *dedup.SeenSet
	logger     *zap.Logger
}

func New(pipeline Pipeline, seenEvents *dedup.SeenSet, logger *zap.Logger) *Server {
	return &Server{
		pipeline:   pipeline,
		seenEvents: seenEvents,
		logger:     logger,
	}
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", s.handleHealth)
	r.GET("/slack/event", s.handleHealth)
	r.POST("/slack/event", s.handleEvent)
	r.POST("/slack/interactions", s.handleInteraction)

	return r
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type eventEnvelope struct {
	Type      string `json:"type"`
	Challenge string `json:"challenge"`
	EventID   string `json:"event_id"`
	Event     struct {
		Type     string `json:"type"`
		User     string `json:"user"`
		Text     string `json:"text"`
		TS       string `json:"ts"`
		ThreadTS string `json:"thread_ts"`
		Channel  string `json:"channel"`
	} `json:"event"`
}

func (s *Server) handleEvent(c *gin.Context) {
	var body eventEnvelope
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Redelivery is absorbed before anything else, the handshake included.
	if body.EventID != "" {
		if s.seenEvents.Contains(body.EventID) {
			s.logger.Info("Duplicate event delivery, skipping",
				zap.String("event_id", body.EventID))
			c.JSON(http.StatusOK, gin.H{"ok": true})
			return
		}
		s.seenEvents.Add(body.EventID)
	}

	if body.Type == "url_verification" {
		c.JSON(http.StatusOK, gin.H{"challenge": body.Challenge})
		return
	}

	if body.Type == "event_callback" && body.Event.Type == "app_mention" {
		s.pipeline.HandleMention(c.Request.Context(), processor.MentionEvent{
			User:     body.Event.User,
			Text:     body.Event.Text,
			TS:       body.Event.TS,
			ThreadTS: body.Event.ThreadTS,
			Channel:  body.Event.Channel,
		})
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) handleInteraction(c *gin.Context) {
	raw := c.PostForm("payload")
	if raw == "" {
		c.String(http.StatusBadRequest, "No payload")
		return
	}

	var payload models.InteractionPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		s.logger.Error("Failed to decode interaction payload", zap.Error(err))
		c.String(http.StatusOK, "Failed to create the ticket.")
		return
	}

	result := s.pipeline.HandleInteraction(c.Request.Context(), payload)
	switch {
	case result.OK && result.Skipped:
		c.String(http.StatusOK, "Ticket skipped.")
	case result.OK:
		c.String(http.StatusOK, "Ticket created: "+result.IssueKey)
	default:
		c.String(http.StatusOK, "Failed to create the ticket.")
	}
}
