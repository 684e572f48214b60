package database

import (
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/bchikara/la-carte-backend/logger"
)

// NewPostgresDB opens the Postgres connection backing the reconciliation
// outbox.
func NewPostgresDB(dsn string) *gorm.DB {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		logger.Log.Fatal("Failed to connect to Postgres", zap.Error(err))
	}

	logger.Log.Info("Connected to Postgres")
	return db
}
