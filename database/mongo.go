package database

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/bchikara/la-carte-backend/logger"
)

// NewMongoDatabase connects to MongoDB and returns a handle on the named
// database. The order store keeps its path-addressed documents here.
func NewMongoDatabase(uri, dbName string) *mongo.Database {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		logger.Log.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}

	if err := client.Ping(ctx, nil); err != nil {
		logger.Log.Fatal("Failed to ping MongoDB", zap.Error(err))
	}

	logger.Log.Info("Connected to MongoDB", zap.String("database", dbName))
	return client.Database(dbName)
}
