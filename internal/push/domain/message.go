package domain

import "errors"

// MessageType is the value of a push payload's data["type"].
type MessageType string

const (
	TypeConversationInvitation MessageType = "conversation_invitation"
	TypeInvitationResponse     MessageType = "invitation_response"
	// TypeUnknown is the default variant for missing or unrecognised types.
	TypeUnknown MessageType = "unknown"
)

// TypeKey is the data key the classifier dispatches on.
const TypeKey = "type"

// Data keys carried by conversation pushes.
const (
	KeyConversationID = "conversation_id"
	KeySenderID       = "sender_id"
	KeyRecipientID    = "recipient_id"
	KeyStatus         = "status"
)

// Notification is the optional display block of a push.
type Notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// PushMessage is one inbound push payload. It lives for a single dispatch.
type PushMessage struct {
	// MessageID is the provider's delivery id when one is known.
	MessageID    string            `json:"messageId,omitempty"`
	From         string            `json:"from"`
	Notification *Notification     `json:"notification,omitempty"`
	Data         map[string]string `json:"data"`
}

// RawType returns data["type"] and whether it was present.
func (m PushMessage) RawType() (string, bool) {
	if m.Data == nil {
		return "", false
	}
	t, ok := m.Data[TypeKey]
	return t, ok
}

// Stage tracks a message through Received -> Classified -> Dispatched.
type Stage string

const (
	StageReceived   Stage = "received"
	StageClassified Stage = "classified"
	StageDispatched Stage = "dispatched"
)

// Outcome describes what happened to one message. Err is informational: the
// message is acknowledged regardless.
type Outcome struct {
	Type  MessageType
	Stage Stage
	Err   error
}

// InvitationStatus is the partner's answer carried by invitation_response.
type InvitationStatus string

const (
	StatusAccepted InvitationStatus = "accepted"
	StatusDeclined InvitationStatus = "declined"
)

func (s InvitationStatus) IsValid() bool {
	return s == StatusAccepted || s == StatusDeclined
}

var (
	ErrMalformedPayload = errors.New("malformed push payload")
	ErrHandlerPanic     = errors.New("push handler panicked")
)

// InvitationEvent is what the in-app stream receives for conversation_invitation.
type InvitationEvent struct {
	ConversationID string `json:"conversation_id"`
	SenderID       string `json:"sender_id"`
	Title          string `json:"title,omitempty"`
	Body           string `json:"body,omitempty"`
}

// ResponseEvent is what the in-app stream receives for invitation_response.
type ResponseEvent struct {
	ConversationID string           `json:"conversation_id"`
	SenderID       string           `json:"sender_id"`
	Status         InvitationStatus `json:"status"`
}
