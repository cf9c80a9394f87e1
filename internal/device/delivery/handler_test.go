package delivery

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"aura-backend/internal/device/domain"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeManager struct {
	accept       bool
	registerErr  error
	registered   []domain.DeviceToken
	unregistered []string
}

func (m *fakeManager) OnTokenIssuedOrRotated(token domain.DeviceToken) error {
	m.registered = append(m.registered, token)
	return m.registerErr
}

func (m *fakeManager) Unregister(userID, value string) bool {
	m.unregistered = append(m.unregistered, userID+":"+value)
	return m.accept
}

func setupRouter(m *fakeManager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewDeviceHandler(m)
	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set("userID", "u1"); c.Next() })
	r.POST("/api/devices/token", h.RegisterToken)
	r.DELETE("/api/devices/token/:token", h.UnregisterToken)
	return r
}

func TestRegisterToken(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		registerErr  error
		expectedCode int
		reaches      bool
	}{
		{"accepted", `{"token":"t1"}`, nil, http.StatusAccepted, true},
		{"with issue time", `{"token":"t1","issued_at":"2026-01-01T00:00:00Z"}`, nil, http.StatusAccepted, true},
		{"queue full", `{"token":"t1"}`, domain.ErrForwardQueueFull, http.StatusServiceUnavailable, true},
		{"stale token", `{"token":"t1"}`, domain.ErrStaleToken, http.StatusConflict, true},
		{"rejected token", `{"token":"t1"}`, domain.ErrInvalidToken, http.StatusBadRequest, true},
		{"missing token", `{}`, nil, http.StatusBadRequest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &fakeManager{registerErr: tt.registerErr}
			r := setupRouter(m)

			req := httptest.NewRequest(http.MethodPost, "/api/devices/token", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedCode, w.Code)
			if !tt.reaches {
				assert.Empty(t, m.registered)
				return
			}
			require.Len(t, m.registered, 1)
			assert.Equal(t, "t1", m.registered[0].Value)
			assert.Equal(t, "u1", m.registered[0].OwnerUserID)
			assert.False(t, m.registered[0].IssuedAt.IsZero())
		})
	}
}

func TestUnregisterToken(t *testing.T) {
	m := &fakeManager{accept: true}
	r := setupRouter(m)

	req := httptest.NewRequest(http.MethodDelete, "/api/devices/token/t1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{"u1:t1"}, m.unregistered)
}
