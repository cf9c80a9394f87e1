package repository

import (
	"context"
	"time"

	"aura-backend/internal/device/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Registry is the backend store of forwarded device tokens.
type Registry interface {
	// ForwardToken records token for userID. Repeating it is harmless.
	ForwardToken(ctx context.Context, token, userID string) error
	// RevokeToken removes a superseded or rejected token.
	RevokeToken(ctx context.Context, token string) error
	TokensForUser(ctx context.Context, userID string) ([]string, error)
}

type gormRegistry struct {
	db *gorm.DB
}

func NewRegistry(db *gorm.DB) Registry {
	return &gormRegistry{db: db}
}

// ForwardToken is an atomic upsert keyed on the token value.
func (r *gormRegistry) ForwardToken(ctx context.Context, token, userID string) error {
	now := time.Now()
	record := &domain.DeviceTokenRecord{
		ID:        uuid.New().String(),
		UserID:    userID,
		Token:     token,
		CreatedAt: now,
		UpdatedAt: now,
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "updated_at"}),
	}).Create(record).Error
}

func (r *gormRegistry) RevokeToken(ctx context.Context, token string) error {
	return r.db.WithContext(ctx).Where("token = ?", token).Delete(&domain.DeviceTokenRecord{}).Error
}

func (r *gormRegistry) TokensForUser(ctx context.Context, userID string) ([]string, error) {
	var tokens []string
	err := r.db.WithContext(ctx).
		Model(&domain.DeviceTokenRecord{}).
		Where("user_id = ?", userID).
		Pluck("token", &tokens).Error
	if err != nil {
		return nil, err
	}
	return tokens, nil
}
