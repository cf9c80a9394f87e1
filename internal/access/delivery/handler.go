package delivery

import (
	"net/http"

	"aura-backend/internal/access/domain"
	"aura-backend/internal/access/usecase"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// AccessHandler serves the authorization endpoint a document store calls
// before committing a conversation write.
type AccessHandler struct {
	decisions *prometheus.CounterVec
	log       *zap.Logger
}

// NewDecisionCounter registers access_decisions_total on reg. reg may be nil.
func NewDecisionCounter(reg prometheus.Registerer) *prometheus.CounterVec {
	c := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "access_decisions_total",
		Help: "Conversation access decisions by operation and outcome",
	}, []string{"operation", "allowed"})
	if reg != nil {
		reg.MustRegister(c)
	}
	return c
}

func NewAccessHandler(decisions *prometheus.CounterVec, log *zap.Logger) *AccessHandler {
	return &AccessHandler{decisions: decisions, log: log}
}

// Authorize answers every request with a decision, 200 OK.
// POST /api/authorize
func (h *AccessHandler) Authorize(c *gin.Context) {
	var req domain.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Malformed authorization request", zap.Error(err))
		h.record(req.Operation, false)
		c.JSON(http.StatusOK, domain.Deny(domain.ReasonMalformedRequest))
		return
	}

	decision := usecase.Decide(req)
	h.record(req.Operation, decision.Allowed)
	if !decision.Allowed {
		h.log.Info("Conversation access denied",
			zap.String("userID", req.UserID),
			zap.String("operation", string(req.Operation)),
			zap.String("reason", decision.Reason))
	}

	c.JSON(http.StatusOK, decision)
}

func (h *AccessHandler) record(op domain.Operation, allowed bool) {
	if h.decisions == nil {
		return
	}
	label := string(op)
	if !op.IsValid() {
		label = "other"
	}
	result := "false"
	if allowed {
		result = "true"
	}
	h.decisions.WithLabelValues(label, result).Inc()
}
