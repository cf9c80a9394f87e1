package usecase

import (
	"context"
	"fmt"

	"aura-backend/internal/conversation/domain"
	"aura-backend/internal/conversation/repository"
	pushdomain "aura-backend/internal/push/domain"
	"aura-backend/pkg/fcm"
	"aura-backend/pkg/worker"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Pusher sends a push to a set of device tokens. *fcm.Client implements it.
type Pusher interface {
	SendToDevices(ctx context.Context, tokens []string, notification fcm.NotificationData) (*fcm.SendResult, error)
}

// TokenDirectory resolves and prunes users' device tokens.
type TokenDirectory interface {
	TokensForUser(ctx context.Context, userID string) ([]string, error)
	RevokeToken(ctx context.Context, token string) error
}

// Submitter queues background work without blocking.
type Submitter interface {
	Submit(job worker.Job) bool
}

type conversationUsecase struct {
	repo   repository.ConversationRepository
	tokens TokenDirectory
	pusher Pusher
	jobs   Submitter
	log    *zap.Logger
}

// NewConversationUsecase wires the usecase. pusher may be nil, in which case
// no pushes are sent.
func NewConversationUsecase(repo repository.ConversationRepository, tokens TokenDirectory, pusher Pusher, jobs Submitter, log *zap.Logger) ConversationUsecase {
	return &conversationUsecase{
		repo:   repo,
		tokens: tokens,
		pusher: pusher,
		jobs:   jobs,
		log:    log,
	}
}

func (u *conversationUsecase) Invite(ctx context.Context, userID, partnerID, topic string) (*domain.Conversation, error) {
	if userID == partnerID {
		return nil, domain.ErrSelfInvite
	}

	conv := &domain.Conversation{
		ID:              uuid.New().String(),
		InitiatorUserID: userID,
		PartnerUserID:   partnerID,
		Status:          domain.StatusPending,
		Topic:           topic,
	}
	if err := u.repo.Create(ctx, userID, conv); err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}

	body := "Someone wants to start a guided conversation with you"
	if topic != "" {
		body = fmt.Sprintf("Someone wants to talk about %s", topic)
	}
	u.notify(partnerID, fcm.NotificationData{
		Title: "New conversation invitation",
		Body:  body,
		Data: map[string]string{
			pushdomain.TypeKey:           string(pushdomain.TypeConversationInvitation),
			pushdomain.KeyConversationID: conv.ID,
			pushdomain.KeySenderID:       userID,
			pushdomain.KeyRecipientID:    partnerID,
		},
		CollapseKey: conv.ID,
	})

	return conv, nil
}

func (u *conversationUsecase) Get(ctx context.Context, userID, id string) (*domain.Conversation, error) {
	return u.repo.Get(ctx, userID, id)
}

func (u *conversationUsecase) Respond(ctx context.Context, userID, id string, accept bool) (*domain.Conversation, error) {
	status := domain.StatusDeclined
	if accept {
		status = domain.StatusAccepted
	}

	changed := false
	conv, err := u.repo.Update(ctx, userID, id, func(c *domain.Conversation) error {
		if c.PartnerUserID != userID {
			return domain.ErrNotPartner
		}
		switch c.Status {
		case status:
			return nil
		case domain.StatusPending:
			c.Status = status
			changed = true
			return nil
		default:
			return domain.ErrAlreadyAnswered
		}
	})
	if err != nil {
		return nil, err
	}

	if changed {
		u.notify(conv.InitiatorUserID, fcm.NotificationData{
			Title: "Invitation answered",
			Body:  fmt.Sprintf("Your invitation was %s", status),
			Data: map[string]string{
				pushdomain.TypeKey:           string(pushdomain.TypeInvitationResponse),
				pushdomain.KeyConversationID: conv.ID,
				pushdomain.KeySenderID:       userID,
				pushdomain.KeyRecipientID:    conv.InitiatorUserID,
				pushdomain.KeyStatus:         string(status),
			},
			CollapseKey: conv.ID,
		})
	}
	return conv, nil
}

// notify fans a push out to recipientID's devices in the background and
// revokes tokens FCM reports as unregistered.
func (u *conversationUsecase) notify(recipientID string, data fcm.NotificationData) {
	if u.pusher == nil {
		u.log.Debug("Push disabled, skipping notification", zap.String("recipientID", recipientID))
		return
	}

	queued := u.jobs.Submit(worker.Job{
		Name: "push-" + data.Data[pushdomain.TypeKey],
		Execute: func(ctx context.Context) error {
			tokens, err := u.tokens.TokensForUser(ctx, recipientID)
			if err != nil {
				return fmt.Errorf("tokens for %s: %w", recipientID, err)
			}
			if len(tokens) == 0 {
				u.log.Debug("No device tokens, skipping push", zap.String("recipientID", recipientID))
				return nil
			}

			result, err := u.pusher.SendToDevices(ctx, tokens, data)
			if err != nil {
				return err
			}
			for _, t := range result.Unregistered {
				if err := u.tokens.RevokeToken(ctx, t); err != nil {
					u.log.Warn("Failed to revoke unregistered token", zap.Error(err))
				}
			}
			return nil
		},
	})
	if !queued {
		u.log.Warn("Push dropped", zap.String("recipientID", recipientID))
	}
}
