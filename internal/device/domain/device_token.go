package domain

import (
	"errors"
	"time"
)

// DeviceToken is the push-delivery identity of one device. A rotation
// replaces it wholesale; the previous value is invalid from then on.
type DeviceToken struct {
	Value       string    `json:"value"`
	OwnerUserID string    `json:"owner_user_id"`
	IssuedAt    time.Time `json:"issued_at"`
}

// DeviceTokenRecord is the registry row for a forwarded token.
type DeviceTokenRecord struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	UserID    string    `json:"user_id" gorm:"index;not null"`
	Token     string    `json:"-" gorm:"uniqueIndex;not null"` // Don't expose token in JSON
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (DeviceTokenRecord) TableName() string {
	return "device_tokens"
}

var (
	ErrInvalidToken = errors.New("device token requires a value and an owner")
	// ErrStaleToken marks a token issued before the owner's current one.
	ErrStaleToken = errors.New("device token is older than the current token")
	// ErrForwardQueueFull means the forward could not be queued; the caller may retry.
	ErrForwardQueueFull = errors.New("device token forward queue full")
)

// Validate checks the fields the registry needs.
func (t DeviceToken) Validate() error {
	if t.Value == "" || t.OwnerUserID == "" {
		return ErrInvalidToken
	}
	return nil
}
