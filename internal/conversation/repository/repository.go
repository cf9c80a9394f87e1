package repository

import (
	"context"
	"errors"
	"time"

	accessdomain "aura-backend/internal/access/domain"
	access "aura-backend/internal/access/usecase"
	"aura-backend/internal/conversation/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ConversationRepository stores conversations. Every method authorizes the
// caller with the access guard against the stored row, in the same
// transaction as the write it gates.
type ConversationRepository interface {
	Create(ctx context.Context, userID string, conv *domain.Conversation) error
	Get(ctx context.Context, userID, id string) (*domain.Conversation, error)
	// Update locks the row, authorizes userID, applies mutate and saves.
	Update(ctx context.Context, userID, id string, mutate func(*domain.Conversation) error) (*domain.Conversation, error)
}

type conversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

func (r *conversationRepository) Create(ctx context.Context, userID string, conv *domain.Conversation) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := authorize(userID, accessdomain.OperationCreate, conv); err != nil {
			return err
		}
		now := time.Now()
		conv.CreatedAt = now
		conv.UpdatedAt = now
		return tx.Create(conv).Error
	})
}

func (r *conversationRepository) Get(ctx context.Context, userID, id string) (*domain.Conversation, error) {
	conv, err := find(r.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	if err := authorize(userID, accessdomain.OperationRead, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

func (r *conversationRepository) Update(ctx context.Context, userID, id string, mutate func(*domain.Conversation) error) (*domain.Conversation, error) {
	var result *domain.Conversation
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		conv, err := find(tx.Clauses(clause.Locking{Strength: "UPDATE"}), id)
		if err != nil {
			return err
		}
		if err := authorize(userID, accessdomain.OperationUpdate, conv); err != nil {
			return err
		}
		if err := mutate(conv); err != nil {
			return err
		}
		conv.UpdatedAt = time.Now()
		if err := tx.Save(conv).Error; err != nil {
			return err
		}
		result = conv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func find(db *gorm.DB, id string) (*domain.Conversation, error) {
	var conv domain.Conversation
	if err := db.Where("id = ?", id).First(&conv).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &conv, nil
}

func authorize(userID string, op accessdomain.Operation, conv *domain.Conversation) error {
	return access.Enforce(accessdomain.Request{
		UserID:    userID,
		Operation: op,
		Document:  conv.Document(),
	})
}
