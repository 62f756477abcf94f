package storage

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore is a DocumentStore that keeps each collection in a Mongo
// collection of the same name, using the document id as _id.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

func NewMongoStore(ctx context.Context, mongoURI, dbName string) (*MongoStore, error) {
	opts := options.Client().ApplyURI(mongoURI)
	if strings.HasPrefix(mongoURI, "mongodb+srv://") {
		// Atlas occasionally fails TLS negotiation unless TLS 1.2 is forced.
		opts.SetTLSConfig(&tls.Config{
			MinVersion: tls.VersionTLS12,
			MaxVersion: tls.VersionTLS12,
		})
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	db := client.Database(dbName)

	// Best-effort indexes.
	_, _ = db.Collection(PostsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}},
	})
	_, _ = db.Collection(UsersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "avatar", Value: 1}},
	})

	return &MongoStore{client: client, db: db}, nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) Get(ctx context.Context, collection, id string, dst interface{}) error {
	err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(dst)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrNotFound
		}
		return fmt.Errorf("mongo get %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *MongoStore) QueryEqual(ctx context.Context, collection, field string, value interface{}, dst interface{}) error {
	cur, err := s.db.Collection(collection).Find(ctx, bson.M{field: value})
	if err != nil {
		return fmt.Errorf("mongo query %s where %s: %w", collection, field, err)
	}
	defer cur.Close(ctx)

	if err := cur.All(ctx, dst); err != nil {
		return fmt.Errorf("mongo decode %s: %w", collection, err)
	}
	return nil
}

func (s *MongoStore) All(ctx context.Context, collection string, dst interface{}) error {
	cur, err := s.db.Collection(collection).Find(ctx, bson.D{})
	if err != nil {
		return fmt.Errorf("mongo scan %s: %w", collection, err)
	}
	defer cur.Close(ctx)

	if err := cur.All(ctx, dst); err != nil {
		return fmt.Errorf("mongo decode %s: %w", collection, err)
	}
	return nil
}

// Set replaces the whole document, inserting it when missing.
func (s *MongoStore) Set(ctx context.Context, collection, id string, doc interface{}) error {
	_, err := s.db.Collection(collection).ReplaceOne(
		ctx,
		bson.M{"_id": id},
		doc,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("mongo set %s/%s: %w", collection, id, err)
	}
	return nil
}
