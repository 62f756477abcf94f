package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// Collections used by the profile flow.
const (
	UsersCollection = "users"
	PostsCollection = "posts"
)

var (
	ErrNotFound    = errors.New("document not found")
	ErrInvalidPath = errors.New("invalid object path")
)

// DocumentStore is the document database capability. Set always replaces the
// whole document; there is no partial patch.
type DocumentStore interface {
	// Get decodes the document into dst or returns ErrNotFound.
	Get(ctx context.Context, collection, id string, dst interface{}) error
	// QueryEqual decodes every document whose field equals value into dst,
	// which must be a pointer to a slice.
	QueryEqual(ctx context.Context, collection, field string, value interface{}, dst interface{}) error
	// All decodes every document in the collection into dst, which must be a
	// pointer to a slice.
	All(ctx context.Context, collection string, dst interface{}) error
	Set(ctx context.Context, collection, id string, doc interface{}) error
}

// Object is a handle to a stored blob.
type Object struct {
	Path        string
	ContentType string
	Size        int64
	Updated     time.Time
}

// BlobStore is the file storage capability. Put on an existing path
// overwrites it.
type BlobStore interface {
	Put(ctx context.Context, path string, r io.Reader, contentType string) (*Object, error)
	DownloadURL(ctx context.Context, obj *Object) (string, error)
	// ObjectPath recovers the object path from a URL this store handed out.
	// Only the path part of the URL is used, so a URL minted under an older
	// public host still resolves.
	ObjectPath(rawURL string) (string, bool)
	List(ctx context.Context, prefix string) ([]Object, error)
	Delete(ctx context.Context, path string) error
}
