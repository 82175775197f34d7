package mariadb

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*Storage, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to open gorm db: %v", err)
	}

	return &Storage{DB: gormDB}, mock
}

func TestStorage_RecordWrite(t *testing.T) {
	storage, mock := setupMockDB(t)
	defer storage.Close()

	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `sync_writes`")).
			WithArgs("owner@studio.dev", 42, "abc", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(7, 1))
		mock.ExpectCommit()

		w := &SyncWrite{AdminEmail: "owner@studio.dev", Bytes: 42, Checksum: "abc"}
		err := storage.RecordWrite(ctx, w)

		require.NoError(t, err)
		assert.Equal(t, int64(7), w.ID)
		assert.False(t, w.CreatedAt.IsZero())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `sync_writes`")).
			WillReturnError(errors.New("insert error"))
		mock.ExpectRollback()

		err := storage.RecordWrite(ctx, &SyncWrite{AdminEmail: "owner@studio.dev"})

		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStorage_RecentWrites(t *testing.T) {
	storage, mock := setupMockDB(t)
	defer storage.Close()

	ctx := context.Background()
	now := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)

	t.Run("success", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"id", "admin_email", "bytes", "checksum", "created_at"}).
			AddRow(2, "b@studio.dev", 20, "bb", now).
			AddRow(1, "a@studio.dev", 10, "aa", now.Add(-time.Hour))

		mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `sync_writes` ORDER BY created_at desc LIMIT ?")).
			WithArgs(2).
			WillReturnRows(rows)

		writes, err := storage.RecentWrites(ctx, 2)

		require.NoError(t, err)
		require.Len(t, writes, 2)
		assert.Equal(t, "b@studio.dev", writes[0].AdminEmail)
		assert.Equal(t, int64(1), writes[1].ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `sync_writes`")).
			WillReturnError(errors.New("db down"))

		writes, err := storage.RecentWrites(ctx, 5)

		assert.Error(t, err)
		assert.Nil(t, writes)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
