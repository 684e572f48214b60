package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Projection names recorded on an outbox row.
const (
	ProjectionRestaurant = "restaurant"
	ProjectionTable      = "table"
)

// OrderOutbox records an order whose payment was captured and whose buyer
// projection committed, but whose restaurant or table projection did not.
// The poller replays the missing writes; the row is the reconciliation trail
// for money that moved before the restaurant could see the order.
type OrderOutbox struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID      string    `gorm:"not null;index"`
	BuyerID      string    `gorm:"not null"`
	RestaurantID string    `gorm:"not null"`
	TableID      string
	Payload      []byte `gorm:"type:jsonb;not null"`
	Missing      string `gorm:"not null"` // comma-joined projection names
	Attempts     int    `gorm:"not null;default:0"`
	ProcessedAt  *time.Time
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

type OutboxRepository interface {
	Create(ctx context.Context, entry *OrderOutbox) error
	GetUnprocessed(ctx context.Context, limit int) ([]OrderOutbox, error)
	MarkProcessed(ctx context.Context, id uuid.UUID) error
	IncrementAttempts(ctx context.Context, id uuid.UUID) error
}

type GormOutboxRepository struct {
	db *gorm.DB
}

func NewGormOutboxRepository(db *gorm.DB) *GormOutboxRepository {
	return &GormOutboxRepository{db: db}
}

func (r *GormOutboxRepository) Create(ctx context.Context, entry *OrderOutbox) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *GormOutboxRepository) GetUnprocessed(ctx context.Context, limit int) ([]OrderOutbox, error) {
	var entries []OrderOutbox
	err := r.db.WithContext(ctx).
		Where("processed_at IS NULL").
		Order("created_at ASC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

func (r *GormOutboxRepository) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&OrderOutbox{}).
		Where("id = ?", id).
		Update("processed_at", now).Error
}

func (r *GormOutboxRepository) IncrementAttempts(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&OrderOutbox{}).
		Where("id = ?", id).
		Update("attempts", gorm.Expr("attempts + 1")).Error
}
