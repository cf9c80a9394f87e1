package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	accessdomain "aura-backend/internal/access/domain"
	"aura-backend/internal/conversation/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockRepo(t *testing.T) (ConversationRepository, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return NewConversationRepository(db), mock
}

var conversationColumns = []string{"id", "initiator_user_id", "partner_user_id", "status", "topic", "created_at", "updated_at"}

func conversationRow(status string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(conversationColumns).AddRow("c1", "u1", "u2", status, "hiking", now, now)
}

func assertDenied(t *testing.T, err error, reason string) {
	t.Helper()
	var denied *accessdomain.DeniedError
	require.True(t, errors.As(err, &denied), "expected a denial, got %v", err)
	assert.Equal(t, reason, denied.Decision.Reason)
}

func TestCreate_InitiatorInserts(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "conversations"`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	conv := &domain.Conversation{ID: "c1", InitiatorUserID: "u1", PartnerUserID: "u2", Status: domain.StatusPending}
	require.NoError(t, repo.Create(context.Background(), "u1", conv))
	assert.False(t, conv.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_NonInitiatorNeverInserts(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	conv := &domain.Conversation{ID: "c1", InitiatorUserID: "u1", PartnerUserID: "u2", Status: domain.StatusPending}
	err := repo.Create(context.Background(), "u2", conv)

	assertDenied(t, err, accessdomain.ReasonMustBeInitiator)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGet(t *testing.T) {
	tests := []struct {
		name   string
		userID string
		reason string
	}{
		{"initiator", "u1", ""},
		{"partner", "u2", ""},
		{"outsider", "u3", accessdomain.ReasonNotParticipant},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepo(t)
			mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "conversations" WHERE id = $1`)).
				WillReturnRows(conversationRow("pending"))

			conv, err := repo.Get(context.Background(), tt.userID, "c1")
			if tt.reason != "" {
				assertDenied(t, err, tt.reason)
				assert.Nil(t, conv)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "u1", conv.InitiatorUserID)
				assert.Equal(t, domain.StatusPending, conv.Status)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestGet_NotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "conversations"`)).
		WillReturnRows(sqlmock.NewRows(conversationColumns))

	_, err := repo.Get(context.Background(), "u1", "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdate_LocksDecidesAndSaves(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "conversations" WHERE id = $1`) + `.*FOR UPDATE`).
		WillReturnRows(conversationRow("pending"))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "conversations" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	conv, err := repo.Update(context.Background(), "u2", "c1", func(c *domain.Conversation) error {
		c.Status = domain.StatusAccepted
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, domain.StatusAccepted, conv.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_OutsiderRollsBackWithoutMutating(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "conversations"`)).
		WillReturnRows(conversationRow("pending"))
	mock.ExpectRollback()

	mutated := false
	_, err := repo.Update(context.Background(), "u3", "c1", func(c *domain.Conversation) error {
		mutated = true
		return nil
	})

	assertDenied(t, err, accessdomain.ReasonNotParticipant)
	assert.False(t, mutated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_MutateErrorRollsBack(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "conversations"`)).
		WillReturnRows(conversationRow("accepted"))
	mock.ExpectRollback()

	_, err := repo.Update(context.Background(), "u2", "c1", func(c *domain.Conversation) error {
		return domain.ErrAlreadyAnswered
	})

	assert.ErrorIs(t, err, domain.ErrAlreadyAnswered)
	assert.NoError(t, mock.ExpectationsWereMet())
}
