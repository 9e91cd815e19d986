package notification

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func TestProcessLocksNotificationRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	p := NewProcessor(gormDB, 5*time.Minute)

	// The row is read FOR UPDATE inside the transaction, so a pool worker
	// and the scheduler drain cannot both count the same attempt.
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "notifications" WHERE "notifications"."id" = $1 ORDER BY "notifications"."id" LIMIT $2 FOR UPDATE`)).
		WithArgs(int64(9), 1).
		WillReturnError(errors.New("lock timeout"))
	mock.ExpectRollback()

	err = p.Process(context.Background(), 9)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lock timeout")
	assert.NoError(t, mock.ExpectationsWereMet())
}
