package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"aura-backend/internal/push/domain"
)

// Handler processes one classified push message. Handlers must tolerate
// redelivery of a message they have already processed.
type Handler interface {
	Handle(ctx context.Context, msg domain.PushMessage) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, msg domain.PushMessage) error

func (f HandlerFunc) Handle(ctx context.Context, msg domain.PushMessage) error {
	return f(ctx, msg)
}

// Routes is the dispatch table. Default is required and receives every
// message whose type is missing or not in Handlers.
type Routes struct {
	Handlers map[domain.MessageType]Handler
	Default  Handler
}

var ErrNoDefaultHandler = errors.New("classifier requires a default handler")

// Classifier routes push messages to exactly one handler.
type Classifier struct {
	handlers map[domain.MessageType]Handler
	fallback Handler
	obs      Observer
}

// NewClassifier validates the table once so Classify never meets a hole.
func NewClassifier(routes Routes, obs Observer) (*Classifier, error) {
	if routes.Default == nil {
		return nil, ErrNoDefaultHandler
	}
	handlers := make(map[domain.MessageType]Handler, len(routes.Handlers))
	for t, h := range routes.Handlers {
		if t == "" || t == domain.TypeUnknown {
			return nil, fmt.Errorf("invalid route key %q", t)
		}
		if h == nil {
			return nil, fmt.Errorf("nil handler for %q", t)
		}
		handlers[t] = h
	}
	if obs == nil {
		obs = NopObserver{}
	}
	return &Classifier{handlers: handlers, fallback: routes.Default, obs: obs}, nil
}

// Types lists the recognised message types.
func (c *Classifier) Types() []domain.MessageType {
	out := make([]domain.MessageType, 0, len(c.handlers))
	for t := range c.handlers {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Classify dispatches msg and always completes. Handler errors and panics are
// absorbed here and reported through the observer and Outcome.Err.
func (c *Classifier) Classify(ctx context.Context, msg domain.PushMessage) domain.Outcome {
	out := domain.Outcome{Stage: domain.StageReceived}

	handler := c.fallback
	out.Type = domain.TypeUnknown
	raw, present := msg.RawType()
	if h, ok := c.handlers[domain.MessageType(raw)]; ok && present {
		handler = h
		out.Type = domain.MessageType(raw)
		c.obs.Classified(msg, out.Type)
	} else {
		c.obs.Unknown(msg, raw, present)
	}
	out.Stage = domain.StageClassified

	if err := invoke(ctx, handler, msg); err != nil {
		out.Err = err
		c.obs.HandlerFailed(msg, out.Type, err)
	}
	out.Stage = domain.StageDispatched
	return out
}

func invoke(ctx context.Context, h Handler, msg domain.PushMessage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", domain.ErrHandlerPanic, r)
		}
	}()
	return h.Handle(ctx, msg)
}
