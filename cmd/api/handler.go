package api

import (
	"net/http"

	accessDelivery "aura-backend/internal/access/delivery"
	authUsecase "aura-backend/internal/auth/usecase"
	conversationDelivery "aura-backend/internal/conversation/delivery"
	deviceDelivery "aura-backend/internal/device/delivery"
	pushDelivery "aura-backend/internal/push/delivery"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	authUsecase         authUsecase.AuthUsecase
	accessHandler       *accessDelivery.AccessHandler
	pushHandler         *pushDelivery.PushHandler
	deviceHandler       *deviceDelivery.DeviceHandler
	conversationHandler *conversationDelivery.ConversationHandler
	metrics             http.Handler
	queues              map[string]QueueReporter
}

// QueueReporter exposes a background queue's backlog. *worker.Pool implements it.
type QueueReporter interface {
	QueueDepth() int
}

// Handlers groups the feature handlers the API serves.
type Handlers struct {
	Access       *accessDelivery.AccessHandler
	Push         *pushDelivery.PushHandler
	Device       *deviceDelivery.DeviceHandler
	Conversation *conversationDelivery.ConversationHandler
	// Metrics serves /metrics. Nil disables the route.
	Metrics http.Handler
	// Queues are reported by /api/health under their map key.
	Queues map[string]QueueReporter
}

func NewHandler(authUc authUsecase.AuthUsecase, handlers Handlers) *Handler {
	return &Handler{
		authUsecase:         authUc,
		accessHandler:       handlers.Access,
		pushHandler:         handlers.Push,
		deviceHandler:       handlers.Device,
		conversationHandler: handlers.Conversation,
		metrics:             handlers.Metrics,
		queues:              handlers.Queues,
	}
}

// Engine builds the gin engine with CORS and every route mounted.
func (h *Handler) Engine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	// CORS middleware
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Message-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	SetupRoutes(r, h)
	return r
}

func (h *Handler) health(c *gin.Context) {
	depths := make(map[string]int, len(h.queues))
	for name, q := range h.queues {
		depths[name] = q.QueueDepth()
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "queues": depths})
}
