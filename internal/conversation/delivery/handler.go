package delivery

import (
	"errors"
	"net/http"

	accessdomain "aura-backend/internal/access/domain"
	"aura-backend/internal/conversation/domain"
	"aura-backend/internal/conversation/usecase"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ConversationHandler struct {
	usecase usecase.ConversationUsecase
	log     *zap.Logger
}

func NewConversationHandler(uc usecase.ConversationUsecase, log *zap.Logger) *ConversationHandler {
	return &ConversationHandler{usecase: uc, log: log}
}

type InviteRequest struct {
	PartnerUserID string `json:"partner_user_id" binding:"required"`
	Topic         string `json:"topic"`
}

type RespondRequest struct {
	Accept *bool `json:"accept" binding:"required"`
}

// Invite starts a conversation with another user.
// POST /api/conversations
func (h *ConversationHandler) Invite(c *gin.Context) {
	userID := c.GetString("userID")

	var req InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conv, err := h.usecase.Invite(c.Request.Context(), userID, req.PartnerUserID, req.Topic)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, conv)
}

// GetConversation returns a conversation the caller takes part in.
// GET /api/conversations/:id
func (h *ConversationHandler) GetConversation(c *gin.Context) {
	conv, err := h.usecase.Get(c.Request.Context(), c.GetString("userID"), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, conv)
}

// Respond accepts or declines an invitation.
// POST /api/conversations/:id/respond
func (h *ConversationHandler) Respond(c *gin.Context) {
	userID := c.GetString("userID")

	var req RespondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conv, err := h.usecase.Respond(c.Request.Context(), userID, c.Param("id"), *req.Accept)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, conv)
}

func (h *ConversationHandler) writeError(c *gin.Context, err error) {
	var denied *accessdomain.DeniedError
	switch {
	case errors.As(err, &denied):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden", "reason": denied.Decision.Reason})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrSelfInvite):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrNotPartner):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrAlreadyAnswered):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.log.Error("Conversation request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
