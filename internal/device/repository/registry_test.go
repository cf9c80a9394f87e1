package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockRegistry(t *testing.T) (Registry, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return NewRegistry(db), mock
}

func TestRegistry_ForwardTokenUpserts(t *testing.T) {
	registry, mock := newMockRegistry(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "device_tokens"`) + `.*` + regexp.QuoteMeta(`ON CONFLICT ("token") DO UPDATE`)).
		WithArgs(sqlmock.AnyArg(), "u1", "t2", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, registry.ForwardToken(context.Background(), "t2", "u1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistry_ForwardTokenError(t *testing.T) {
	registry, mock := newMockRegistry(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "device_tokens"`)).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	assert.Error(t, registry.ForwardToken(context.Background(), "t2", "u1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistry_RevokeToken(t *testing.T) {
	registry, mock := newMockRegistry(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "device_tokens" WHERE token = $1`)).
		WithArgs("t1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, registry.RevokeToken(context.Background(), "t1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistry_TokensForUser(t *testing.T) {
	registry, mock := newMockRegistry(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "token" FROM "device_tokens" WHERE user_id = $1`)).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"token"}).AddRow("t1").AddRow("t2"))

	tokens, err := registry.TokensForUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"t1", "t2"}, tokens)
	assert.NoError(t, mock.ExpectationsWereMet())
}
