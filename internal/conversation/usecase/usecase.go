package usecase

import (
	"context"

	"aura-backend/internal/conversation/domain"
)

// ConversationUsecase defines the business logic for guided conversations.
type ConversationUsecase interface {
	// Invite creates a pending conversation from userID to partnerID and
	// pushes an invitation to the partner's devices.
	Invite(ctx context.Context, userID, partnerID, topic string) (*domain.Conversation, error)

	// Get returns a conversation the caller participates in.
	Get(ctx context.Context, userID, id string) (*domain.Conversation, error)

	// Respond records the partner's answer and pushes it to the initiator.
	Respond(ctx context.Context, userID, id string, accept bool) (*domain.Conversation, error)
}
