package repository_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/bchikara/la-carte-backend/repository"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	assert.NoError(t, err)
	return gormDB, mock
}

func TestOutboxCreate_Success(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormOutboxRepository(gormDB)

	entry := &repository.OrderOutbox{
		OrderID:      "order-1",
		BuyerID:      "buyer-1",
		RestaurantID: "r1",
		TableID:      "t7",
		Payload:      []byte(`{"id":"order-1"}`),
		Missing:      "restaurant",
	}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "order_outboxes"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New()))
	mock.ExpectCommit()

	err := repo.Create(context.Background(), entry)
	assert.NoError(t, err)
}

func TestOutboxGetUnprocessed_Success(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormOutboxRepository(gormDB)

	id := uuid.New()
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "order_id", "buyer_id", "restaurant_id", "table_id", "payload", "missing", "attempts", "processed_at", "created_at", "updated_at"}).
		AddRow(id, "order-1", "buyer-1", "r1", "", []byte(`{"id":"order-1"}`), "restaurant", 2, nil, now, now)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "order_outboxes" WHERE processed_at IS NULL`)).
		WillReturnRows(rows)

	entries, err := repo.GetUnprocessed(context.Background(), 100)
	assert.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, "order-1", entries[0].OrderID)
	assert.Equal(t, "restaurant", entries[0].Missing)
	assert.Equal(t, 2, entries[0].Attempts)
	assert.Nil(t, entries[0].ProcessedAt)
}

func TestOutboxGetUnprocessed_Empty(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormOutboxRepository(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "order_outboxes"`)).
		WillReturnRows(sqlmock.NewRows([]string{}))

	entries, err := repo.GetUnprocessed(context.Background(), 100)
	assert.NoError(t, err)
	assert.Empty(t, entries)
}

func TestOutboxMarkProcessed_Success(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormOutboxRepository(gormDB)

	id := uuid.New()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "order_outboxes"`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.MarkProcessed(context.Background(), id)
	assert.NoError(t, err)
}

func TestOutboxIncrementAttempts_Success(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormOutboxRepository(gormDB)

	id := uuid.New()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "order_outboxes" SET "attempts"=attempts + 1`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.IncrementAttempts(context.Background(), id)
	assert.NoError(t, err)
}
