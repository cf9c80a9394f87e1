package delivery

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PushHandler exposes the classifier and the in-app stream over HTTP.
type PushHandler struct {
	classifier Classifier
	hub        *Hub
	log        *zap.Logger
}

func NewPushHandler(classifier Classifier, hub *Hub, log *zap.Logger) *PushHandler {
	return &PushHandler{classifier: classifier, hub: hub, log: log}
}

// Inbound accepts a push payload from a host that relays provider messages.
// Receipt is always acknowledged with 202.
// POST /api/push/inbound
func (h *PushHandler) Inbound(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 64<<10))
	if err != nil {
		h.log.Warn("Failed to read push payload", zap.Error(err))
	}

	msg, err := DecodePayload(c.GetHeader("X-Message-ID"), body)
	if err != nil {
		h.log.Warn("Malformed push payload", zap.Error(err))
	}

	out := h.classifier.Classify(c.Request.Context(), msg)
	c.JSON(http.StatusAccepted, gin.H{
		"type":  out.Type,
		"stage": out.Stage,
	})
}

// Events streams in-app events for the authenticated user.
// GET /api/events
func (h *PushHandler) Events(c *gin.Context) {
	h.hub.ServeHTTP(c, c.GetString("userID"))
}
