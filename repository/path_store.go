package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrPathNotFound = errors.New("path not found")

// PathStore exposes the hosted data store as set/get/list primitives over a
// `/`-joined path namespace. Order projections, restaurant records and menu
// entries all live behind it; keys are chosen by the caller, so the order id
// is identical across every projection of the same record.
type PathStore interface {
	// Set writes value at exactly path, replacing any previous value.
	Set(ctx context.Context, path string, value interface{}) error
	// Get decodes the value at path into out, or returns ErrPathNotFound.
	Get(ctx context.Context, path string, out interface{}) error
	// List returns every value stored directly under parent, newest first.
	List(ctx context.Context, parent string) ([]bson.Raw, error)
}

type pathDocument struct {
	Path      string    `bson:"path"`
	Parent    string    `bson:"parent"`
	Value     bson.Raw  `bson:"value"`
	UpdatedAt time.Time `bson:"updated_at"`
}

type MongoPathStore struct {
	collection *mongo.Collection
}

func NewMongoPathStore(db *mongo.Database) *MongoPathStore {
	return &MongoPathStore{collection: db.Collection("paths")}
}

// JoinPath builds a store path from its segments.
func JoinPath(segments ...string) string {
	return strings.Join(segments, "/")
}

func parentOf(path string) string {
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return ""
	}
	return path[:idx]
}

func (s *MongoPathStore) Set(ctx context.Context, path string, value interface{}) error {
	raw, err := bson.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode value for %s: %w", path, err)
	}

	doc := pathDocument{
		Path:      path,
		Parent:    parentOf(path),
		Value:     raw,
		UpdatedAt: time.Now(),
	}

	filter := bson.M{"path": path}
	update := bson.M{"$set": doc}
	opts := options.Update().SetUpsert(true)

	if _, err := s.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to set %s: %w", path, err)
	}
	return nil
}

func (s *MongoPathStore) Get(ctx context.Context, path string, out interface{}) error {
	var doc pathDocument
	err := s.collection.FindOne(ctx, bson.M{"path": path}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrPathNotFound
		}
		return fmt.Errorf("failed to get %s: %w", path, err)
	}
	return bson.Unmarshal(doc.Value, out)
}

func (s *MongoPathStore) List(ctx context.Context, parent string) ([]bson.Raw, error) {
	cursor, err := s.collection.Find(ctx, bson.M{"parent": parent},
		options.Find().SetSort(bson.M{"updated_at": -1}))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", parent, err)
	}
	defer cursor.Close(ctx)

	values := make([]bson.Raw, 0)
	for cursor.Next(ctx) {
		var doc pathDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		values = append(values, doc.Value)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return values, nil
}
