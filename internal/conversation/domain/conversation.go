package domain

import (
	"errors"
	"time"

	accessdomain "aura-backend/internal/access/domain"
)

// ConversationStatus tracks the invitation through the partner's answer.
type ConversationStatus string

const (
	StatusPending  ConversationStatus = "pending"
	StatusAccepted ConversationStatus = "accepted"
	StatusDeclined ConversationStatus = "declined"
)

// Conversation is a guided conversation between exactly two participants.
type Conversation struct {
	ID              string             `json:"id" gorm:"primaryKey"`
	InitiatorUserID string             `json:"initiator_user_id" gorm:"index;not null"`
	PartnerUserID   string             `json:"partner_user_id" gorm:"index;not null"`
	Status          ConversationStatus `json:"status" gorm:"default:pending"`
	Topic           string             `json:"topic,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// Document is the view the access guard decides on.
func (c *Conversation) Document() accessdomain.Document {
	return accessdomain.Document{
		InitiatorUserID: c.InitiatorUserID,
		PartnerUserID:   c.PartnerUserID,
		Fields: map[string]any{
			"id":     c.ID,
			"status": string(c.Status),
			"topic":  c.Topic,
		},
	}
}

var (
	ErrNotFound        = errors.New("conversation not found")
	ErrNotPartner      = errors.New("only the invited partner can respond")
	ErrAlreadyAnswered = errors.New("invitation already answered")
	ErrSelfInvite      = errors.New("cannot invite yourself")
)
