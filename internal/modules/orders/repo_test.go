package orders

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockRepo(t *testing.T) (*Repo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gdb, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	return NewRepo(gdb), mock
}

func orderColumns() []string {
	return []string{
		"id", "gateway", "external_ref", "amount", "currency",
		"customer_name", "customer_email", "customer_phone",
		"status", "provider_meta", "created_at", "updated_at",
	}
}

func orderRow(status, ref string, meta []byte) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(orderColumns()).AddRow(
		"ord-1", "stripe", ref, 499.5, "INR",
		"Jane", "jane@example.com", "9990001111",
		status, meta, now, now,
	)
}

func TestRepo_ByID(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `orders` WHERE id = ?")).
		WillReturnRows(orderRow(StatusPending, "sess_1", nil))

	o, err := repo.ByID(context.Background(), "ord-1")
	require.NoError(t, err)
	assert.Equal(t, "sess_1", o.ExternalRef)
	assert.False(t, o.Terminal())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepo_ByExternalRef(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `orders` WHERE gateway = ? AND external_ref = ?")).
		WillReturnRows(orderRow(StatusPending, "sess_1", nil))

	o, err := repo.ByExternalRef(context.Background(), "stripe", "sess_1")
	require.NoError(t, err)
	assert.Equal(t, "ord-1", o.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepo_Finalize_Applies(t *testing.T) {
	repo, mock := newMockRepo(t)

	existing, _ := json.Marshal(map[string]any{"session_token": "tok_1"})

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `orders` WHERE id = ?")).
		WillReturnRows(orderRow(StatusPending, "sess_1", existing))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE `orders` SET")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	o, applied, err := repo.Finalize(context.Background(), "ord-1", StatusCompleted, map[string]any{
		"external_txn_id": "txn_9",
		"session_token":   "tok_overwrite",
	})
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, StatusCompleted, o.Status)

	meta := o.MetaMap()
	assert.Equal(t, "txn_9", meta["external_txn_id"])
	// existing keys win; the stored token survives the merge
	assert.Equal(t, "tok_1", meta["session_token"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepo_Finalize_AlreadyTerminalIsNoOp(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `orders` WHERE id = ?")).
		WillReturnRows(orderRow(StatusCompleted, "sess_1", nil))
	mock.ExpectCommit()

	o, applied, err := repo.Finalize(context.Background(), "ord-1", StatusFailed, nil)
	require.NoError(t, err)
	assert.False(t, applied)
	// terminal is final; the later failed report does not downgrade it
	assert.Equal(t, StatusCompleted, o.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepo_Finalize_LostRaceReloadsWinner(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `orders` WHERE id = ?")).
		WillReturnRows(orderRow(StatusPending, "sess_1", nil))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE `orders` SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `orders` WHERE id = ?")).
		WillReturnRows(orderRow(StatusFailed, "sess_1", nil))
	mock.ExpectCommit()

	o, applied, err := repo.Finalize(context.Background(), "ord-1", StatusCompleted, nil)
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, StatusFailed, o.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepo_Finalize_RejectsNonTerminalTarget(t *testing.T) {
	repo, _ := newMockRepo(t)

	_, _, err := repo.Finalize(context.Background(), "ord-1", StatusPending, nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestRepo_Finalize_MissingExternalRef(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `orders` WHERE id = ?")).
		WillReturnRows(orderRow(StatusPending, "", nil))
	mock.ExpectRollback()

	_, applied, err := repo.Finalize(context.Background(), "ord-1", StatusCompleted, nil)
	assert.ErrorIs(t, err, ErrNoExternalRef)
	assert.False(t, applied)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMergeMeta(t *testing.T) {
	t.Run("nil current", func(t *testing.T) {
		out, err := mergeMeta(nil, map[string]any{"a": "1"})
		require.NoError(t, err)
		assert.JSONEq(t, `{"a":"1"}`, string(out))
	})

	t.Run("existing keys win", func(t *testing.T) {
		out, err := mergeMeta([]byte(`{"a":"old"}`), map[string]any{"a": "new", "b": "2"})
		require.NoError(t, err)
		assert.JSONEq(t, `{"a":"old","b":"2"}`, string(out))
	})

	t.Run("nil additions keep current", func(t *testing.T) {
		out, err := mergeMeta([]byte(`{"a":"1"}`), nil)
		require.NoError(t, err)
		assert.JSONEq(t, `{"a":"1"}`, string(out))
	})
}
