package delivery

import (
	"errors"
	"net/http"
	"time"

	"aura-backend/internal/device/domain"

	"github.com/gin-gonic/gin"
)

// TokenManager is the lifecycle port the HTTP layer calls into.
type TokenManager interface {
	OnTokenIssuedOrRotated(token domain.DeviceToken) error
	Unregister(userID, value string) bool
}

type DeviceHandler struct {
	manager TokenManager
}

func NewDeviceHandler(manager TokenManager) *DeviceHandler {
	return &DeviceHandler{manager: manager}
}

type RegisterTokenRequest struct {
	Token    string     `json:"token" binding:"required"`
	IssuedAt *time.Time `json:"issued_at"`
}

// RegisterToken records a newly issued or rotated token for the caller.
// Forwarding happens in the background, so the answer is 202. issued_at is
// only an ordering hint; the manager clamps it to the server clock.
// POST /api/devices/token
func (h *DeviceHandler) RegisterToken(c *gin.Context) {
	userID := c.GetString("userID")

	var req RegisterTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token := domain.DeviceToken{Value: req.Token, OwnerUserID: userID, IssuedAt: time.Now()}
	if req.IssuedAt != nil {
		token.IssuedAt = *req.IssuedAt
	}

	if err := h.manager.OnTokenIssuedOrRotated(token); err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidToken):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, domain.ErrStaleToken):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "token not accepted, retry later"})
		}
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}

// UnregisterToken drops one of the caller's tokens.
// DELETE /api/devices/token/:token
func (h *DeviceHandler) UnregisterToken(c *gin.Context) {
	userID := c.GetString("userID")
	value := c.Param("token")

	if !h.manager.Unregister(userID, value) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "token not accepted, retry later"})
		return
	}
	c.Status(http.StatusNoContent)
}
