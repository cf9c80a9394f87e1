package usecase

import (
	"errors"
	"testing"

	"aura-backend/internal/push/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestLogObserver_Counts(t *testing.T) {
	obs := NewLogObserver(zap.NewNop(), prometheus.NewRegistry())
	msg := domain.PushMessage{MessageID: "m1"}

	obs.Classified(msg, domain.TypeConversationInvitation)
	obs.Classified(msg, domain.TypeConversationInvitation)
	obs.Unknown(msg, "mystery", true)
	obs.HandlerFailed(msg, domain.TypeConversationInvitation, errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(obs.classified.WithLabelValues("conversation_invitation")))
	assert.Equal(t, 1.0, testutil.ToFloat64(obs.classified.WithLabelValues("unknown")))
	assert.Equal(t, 1.0, testutil.ToFloat64(obs.failures.WithLabelValues("conversation_invitation")))
}
