package storage

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore is a DocumentStore backed by Cloud Firestore.
type FirestoreStore struct {
	client *firestore.Client
}

func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

func (s *FirestoreStore) Get(ctx context.Context, collection, id string, dst interface{}) error {
	snap, err := s.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return ErrNotFound
		}
		return fmt.Errorf("firestore get %s/%s: %w", collection, id, err)
	}
	if !snap.Exists() {
		return ErrNotFound
	}
	return snap.DataTo(dst)
}

func (s *FirestoreStore) QueryEqual(ctx context.Context, collection, field string, value interface{}, dst interface{}) error {
	iter := s.client.Collection(collection).Where(field, "==", value).Documents(ctx)
	defer iter.Stop()

	snaps, err := iter.GetAll()
	if err != nil {
		return fmt.Errorf("firestore query %s where %s: %w", collection, field, err)
	}

	app, err := newSliceAppender(dst)
	if err != nil {
		return err
	}
	for _, snap := range snaps {
		if err := snap.DataTo(app.next()); err != nil {
			return fmt.Errorf("firestore decode %s/%s: %w", collection, snap.Ref.ID, err)
		}
		app.commit()
	}
	return nil
}

func (s *FirestoreStore) All(ctx context.Context, collection string, dst interface{}) error {
	snaps, err := s.client.Collection(collection).Documents(ctx).GetAll()
	if err != nil {
		return fmt.Errorf("firestore scan %s: %w", collection, err)
	}

	app, err := newSliceAppender(dst)
	if err != nil {
		return err
	}
	for _, snap := range snaps {
		if err := snap.DataTo(app.next()); err != nil {
			return fmt.Errorf("firestore decode %s/%s: %w", collection, snap.Ref.ID, err)
		}
		app.commit()
	}
	return nil
}

func (s *FirestoreStore) Set(ctx context.Context, collection, id string, doc interface{}) error {
	if _, err := s.client.Collection(collection).Doc(id).Set(ctx, doc); err != nil {
		return fmt.Errorf("firestore set %s/%s: %w", collection, id, err)
	}
	return nil
}
