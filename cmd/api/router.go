package api

import (
	"aura-backend/internal/auth/delivery"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, h *Handler) {
	if h.metrics != nil {
		r.GET("/metrics", gin.WrapH(h.metrics))
	}

	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", h.health)

		protected := api.Group("")
		protected.Use(delivery.AuthMiddleware(h.authUsecase))

		// Access guard, called by the document store before a conversation write
		protected.POST("/authorize", h.accessHandler.Authorize)

		// SSE endpoint for foreground delivery
		protected.GET("/events", h.pushHandler.Events)

		// Push routes
		protected.POST("/push/inbound", h.pushHandler.Inbound)

		// Device token routes
		devices := protected.Group("/devices")
		{
			devices.POST("/token", h.deviceHandler.RegisterToken)
			devices.DELETE("/token/:token", h.deviceHandler.UnregisterToken)
		}

		// Conversation routes
		conversations := protected.Group("/conversations")
		{
			conversations.POST("", h.conversationHandler.Invite)
			conversations.GET("/:id", h.conversationHandler.GetConversation)
			conversations.POST("/:id/respond", h.conversationHandler.Respond)
		}
	}
}
