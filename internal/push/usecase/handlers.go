package usecase

import (
	"context"
	"fmt"

	"aura-backend/internal/push/domain"
	"aura-backend/internal/push/repository"

	"go.uber.org/zap"
)

// InAppNotifier delivers an event to a user's foreground session. It returns
// false when the user has none; display is then left to the OS.
type InAppNotifier interface {
	Send(userID, event string, payload any) bool
}

// InvitationHandler handles conversation_invitation pushes.
type InvitationHandler struct {
	seen     repository.SeenStore
	notifier InAppNotifier
	log      *zap.Logger
}

func NewInvitationHandler(seen repository.SeenStore, notifier InAppNotifier, log *zap.Logger) *InvitationHandler {
	return &InvitationHandler{seen: seen, notifier: notifier, log: log}
}

func (h *InvitationHandler) Handle(ctx context.Context, msg domain.PushMessage) error {
	fields, err := requireFields(msg, domain.KeyConversationID, domain.KeySenderID, domain.KeyRecipientID)
	if err != nil {
		return err
	}
	convID, sender, recipient := fields[0], fields[1], fields[2]

	if !firstSighting(ctx, h.seen, h.log, "invitation:"+convID+":"+recipient) {
		h.log.Debug("Duplicate invitation ignored", zap.String("conversationID", convID))
		return nil
	}

	event := domain.InvitationEvent{ConversationID: convID, SenderID: sender}
	if msg.Notification != nil {
		event.Title = msg.Notification.Title
		event.Body = msg.Notification.Body
	}
	if !h.notifier.Send(recipient, string(domain.TypeConversationInvitation), event) {
		h.log.Debug("Recipient not in foreground",
			zap.String("conversationID", convID),
			zap.String("recipientID", recipient))
	}
	return nil
}

// ResponseHandler handles invitation_response pushes.
type ResponseHandler struct {
	seen     repository.SeenStore
	notifier InAppNotifier
	log      *zap.Logger
}

func NewResponseHandler(seen repository.SeenStore, notifier InAppNotifier, log *zap.Logger) *ResponseHandler {
	return &ResponseHandler{seen: seen, notifier: notifier, log: log}
}

func (h *ResponseHandler) Handle(ctx context.Context, msg domain.PushMessage) error {
	fields, err := requireFields(msg, domain.KeyConversationID, domain.KeySenderID, domain.KeyRecipientID, domain.KeyStatus)
	if err != nil {
		return err
	}
	convID, sender, recipient := fields[0], fields[1], fields[2]
	status := domain.InvitationStatus(fields[3])
	if !status.IsValid() {
		return fmt.Errorf("%w: invalid status %q", domain.ErrMalformedPayload, status)
	}

	if !firstSighting(ctx, h.seen, h.log, "response:"+convID+":"+string(status)) {
		h.log.Debug("Duplicate invitation response ignored", zap.String("conversationID", convID))
		return nil
	}

	event := domain.ResponseEvent{ConversationID: convID, SenderID: sender, Status: status}
	if !h.notifier.Send(recipient, string(domain.TypeInvitationResponse), event) {
		h.log.Debug("Recipient not in foreground",
			zap.String("conversationID", convID),
			zap.String("recipientID", recipient))
	}
	return nil
}

// DefaultHandler receives unknown and untyped messages. It only logs.
type DefaultHandler struct {
	log *zap.Logger
}

func NewDefaultHandler(log *zap.Logger) *DefaultHandler {
	return &DefaultHandler{log: log}
}

func (h *DefaultHandler) Handle(_ context.Context, msg domain.PushMessage) error {
	raw, _ := msg.RawType()
	h.log.Info("Unhandled push message",
		zap.String("messageID", msg.MessageID),
		zap.String("from", msg.From),
		zap.String("type", raw),
		zap.Int("dataKeys", len(msg.Data)))
	return nil
}

func requireFields(msg domain.PushMessage, keys ...string) ([]string, error) {
	values := make([]string, len(keys))
	for i, k := range keys {
		v := msg.Data[k]
		if v == "" {
			return nil, fmt.Errorf("%w: missing %s", domain.ErrMalformedPayload, k)
		}
		values[i] = v
	}
	return values, nil
}

// firstSighting falls back to processing when the store is unavailable:
// a duplicate in-app event beats a lost one.
func firstSighting(ctx context.Context, seen repository.SeenStore, log *zap.Logger, key string) bool {
	if seen == nil {
		return true
	}
	first, err := seen.MarkSeen(ctx, key)
	if err != nil {
		log.Warn("Dedup store unavailable, processing message anyway", zap.String("key", key), zap.Error(err))
		return true
	}
	return first
}

// BaseRoutes is the base rule set: invitations, responses and the logging
// default.
func BaseRoutes(seen repository.SeenStore, notifier InAppNotifier, log *zap.Logger) Routes {
	return Routes{
		Handlers: map[domain.MessageType]Handler{
			domain.TypeConversationInvitation: NewInvitationHandler(seen, notifier, log.Named("invitation")),
			domain.TypeInvitationResponse:     NewResponseHandler(seen, notifier, log.Named("response")),
		},
		Default: NewDefaultHandler(log.Named("default")),
	}
}
