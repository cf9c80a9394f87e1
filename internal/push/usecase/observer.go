package usecase

import (
	"aura-backend/internal/push/domain"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Observer receives classification events. It is the classifier's only
// link to logging and metrics.
type Observer interface {
	Classified(msg domain.PushMessage, t domain.MessageType)
	Unknown(msg domain.PushMessage, rawType string, present bool)
	HandlerFailed(msg domain.PushMessage, t domain.MessageType, err error)
}

type NopObserver struct{}

func (NopObserver) Classified(domain.PushMessage, domain.MessageType)           {}
func (NopObserver) Unknown(domain.PushMessage, string, bool)                    {}
func (NopObserver) HandlerFailed(domain.PushMessage, domain.MessageType, error) {}

// LogObserver writes classification events to zap and counts them.
type LogObserver struct {
	log        *zap.Logger
	classified *prometheus.CounterVec
	failures   *prometheus.CounterVec
}

// NewLogObserver registers its counters on reg. reg may be nil.
func NewLogObserver(log *zap.Logger, reg prometheus.Registerer) *LogObserver {
	classified := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "push_messages_classified_total",
		Help: "Inbound push messages by classified type",
	}, []string{"type"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "push_handler_failures_total",
		Help: "Push handler errors absorbed at the dispatch boundary",
	}, []string{"type"})
	if reg != nil {
		reg.MustRegister(classified, failures)
	}
	return &LogObserver{log: log, classified: classified, failures: failures}
}

func (o *LogObserver) Classified(msg domain.PushMessage, t domain.MessageType) {
	o.log.Debug("Push message classified",
		zap.String("messageID", msg.MessageID),
		zap.String("from", msg.From),
		zap.String("type", string(t)))
	o.classified.WithLabelValues(string(t)).Inc()
}

func (o *LogObserver) Unknown(msg domain.PushMessage, rawType string, present bool) {
	o.log.Info("Unknown push message type",
		zap.String("messageID", msg.MessageID),
		zap.String("from", msg.From),
		zap.String("type", rawType),
		zap.Bool("typePresent", present))
	o.classified.WithLabelValues(string(domain.TypeUnknown)).Inc()
}

func (o *LogObserver) HandlerFailed(msg domain.PushMessage, t domain.MessageType, err error) {
	o.log.Warn("Push handler failed",
		zap.String("messageID", msg.MessageID),
		zap.String("type", string(t)),
		zap.Error(err))
	o.failures.WithLabelValues(string(t)).Inc()
}
