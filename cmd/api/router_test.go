package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	accessDelivery "aura-backend/internal/access/delivery"
	authUsecase "aura-backend/internal/auth/usecase"
	conversationDelivery "aura-backend/internal/conversation/delivery"
	conversationDomain "aura-backend/internal/conversation/domain"
	deviceDelivery "aura-backend/internal/device/delivery"
	deviceDomain "aura-backend/internal/device/domain"
	pushDelivery "aura-backend/internal/push/delivery"
	pushRepo "aura-backend/internal/push/repository"
	pushUsecase "aura-backend/internal/push/usecase"
	"aura-backend/pkg/config"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type acceptAll struct{}

func (acceptAll) OnTokenIssuedOrRotated(deviceDomain.DeviceToken) error { return nil }
func (acceptAll) Unregister(string, string) bool { return true }

type fixedQueue int

func (q fixedQueue) QueueDepth() int { return int(q) }

type noConversations struct{}

func (noConversations) Invite(context.Context, string, string, string) (*conversationDomain.Conversation, error) {
	return nil, conversationDomain.ErrSelfInvite
}

func (noConversations) Get(context.Context, string, string) (*conversationDomain.Conversation, error) {
	return nil, conversationDomain.ErrNotFound
}

func (noConversations) Respond(context.Context, string, string, bool) (*conversationDomain.Conversation, error) {
	return nil, conversationDomain.ErrNotFound
}

func newTestEngine(t *testing.T) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zap.NewNop()
	reg := prometheus.NewRegistry()

	hub := pushDelivery.NewHub(log)
	classifier, err := pushUsecase.NewClassifier(
		pushUsecase.BaseRoutes(pushRepo.NewMemorySeenStore(time.Hour), hub, log),
		pushUsecase.NewLogObserver(log, reg),
	)
	require.NoError(t, err)

	auth := authUsecase.NewAuthUsecase(&config.Config{JWTSecret: "s", JWTAccessExpiry: time.Minute})
	token, err := auth.IssueToken("alice")
	require.NoError(t, err)

	h := NewHandler(auth, Handlers{
		Access:       accessDelivery.NewAccessHandler(accessDelivery.NewDecisionCounter(reg), log),
		Push:         pushDelivery.NewPushHandler(classifier, hub, log),
		Device:       deviceDelivery.NewDeviceHandler(acceptAll{}),
		Conversation: conversationDelivery.NewConversationHandler(noConversations{}, log),
		Metrics:      promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Queues:       map[string]QueueReporter{"token_forward": fixedQueue(3)},
	})
	return h.Engine(), token
}

func TestRoutes(t *testing.T) {
	r, token := newTestEngine(t)

	tests := []struct {
		name         string
		method       string
		path         string
		body         string
		auth         bool
		expectedCode int
	}{
		{"health is public", http.MethodGet, "/api/health", "", false, http.StatusOK},
		{"authorize requires auth", http.MethodPost, "/api/authorize", `{}`, false, http.StatusUnauthorized},
		{"authorize", http.MethodPost, "/api/authorize", `{"userId":"alice","operation":"read","documentData":{"initiatorUserId":"alice","partnerUserId":"bob"}}`, true, http.StatusOK},
		{"push inbound", http.MethodPost, "/api/push/inbound", `{"from":"x","data":{"type":"nope"}}`, true, http.StatusAccepted},
		{"device token", http.MethodPost, "/api/devices/token", `{"token":"t1"}`, true, http.StatusAccepted},
		{"device unregister", http.MethodDelete, "/api/devices/token/t1", "", true, http.StatusNoContent},
		{"conversation not found", http.MethodGet, "/api/conversations/c1", "", true, http.StatusNotFound},
		{"self invite", http.MethodPost, "/api/conversations", `{"partner_user_id":"alice"}`, true, http.StatusBadRequest},
		{"preflight", http.MethodOptions, "/api/conversations", "", false, http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			if tt.auth {
				req.Header.Set("Authorization", "Bearer "+token)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedCode, w.Code)
		})
	}
}

func TestMetricsRoute(t *testing.T) {
	r, token := newTestEngine(t)

	req := httptest.NewRequest(http.MethodPost, "/api/push/inbound", bytes.NewBufferString(`{"data":{}}`))
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(httptest.NewRecorder(), req)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "push_messages_classified_total")
}

func TestHealthReportsQueueDepths(t *testing.T) {
	r, _ := newTestEngine(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Status string         `json:"status"`
		Queues map[string]int `json:"queues"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, map[string]int{"token_forward": 3}, body.Queues)
}
