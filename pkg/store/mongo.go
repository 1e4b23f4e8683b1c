package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultMongoDatabase is used when [MongoConfig.Database] is empty.
const DefaultMongoDatabase = "wcm_db"

// MongoConfig configures a [MongoBackend].
type MongoConfig struct {
	URI      string
	Database string
}

// MongoBackend stores each namespace in its own collection with documents
// {_id: key, data: value}.
type MongoBackend struct {
	client *mongo.Client
	db     *mongo.Database
}

type mongoDoc struct {
	Key       string    `bson:"_id"`
	Data      []byte    `bson:"data"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// NewMongoBackend connects to MongoDB and verifies the connection.
func NewMongoBackend(ctx context.Context, cfg MongoConfig) (*MongoBackend, error) {
	uri := cfg.URI
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	name := cfg.Database
	if name == "" {
		name = DefaultMongoDatabase
	}
	return &MongoBackend{client: client, db: client.Database(name)}, nil
}

// Get implements [Backend].
func (b *MongoBackend) Get(ctx context.Context, ns, key string) ([]byte, bool, error) {
	var doc mongoDoc
	err := b.db.Collection(ns).FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, b.wrap(err)
	}
	return doc.Data, true, nil
}

// Set implements [Backend].
func (b *MongoBackend) Set(ctx context.Context, ns, key string, data []byte) error {
	if err := checkNamespace(ns); err != nil {
		return err
	}
	_, err := b.db.Collection(ns).ReplaceOne(ctx,
		bson.M{"_id": key},
		mongoDoc{Key: key, Data: data, UpdatedAt: time.Now().UTC()},
		options.Replace().SetUpsert(true),
	)
	return b.wrap(err)
}

// Delete implements [Backend].
func (b *MongoBackend) Delete(ctx context.Context, ns, key string) error {
	_, err := b.db.Collection(ns).DeleteOne(ctx, bson.M{"_id": key})
	return b.wrap(err)
}

// Flush implements [Backend].
func (b *MongoBackend) Flush(ctx context.Context, ns string) error {
	_, err := b.db.Collection(ns).DeleteMany(ctx, bson.M{})
	return b.wrap(err)
}

// Close implements [Backend].
func (b *MongoBackend) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return b.client.Disconnect(ctx)
}

func (b *MongoBackend) wrap(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrClientDisconnected) {
		return fmt.Errorf("mongo: %w", ErrClosed)
	}
	return fmt.Errorf("mongo: %w", err)
}

var _ Backend = (*MongoBackend)(nil)
