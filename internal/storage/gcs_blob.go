package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	gcs "cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
)

const downloadTokenKey = "firebaseStorageDownloadTokens"

// GCSBlobStore stores blobs in the Firebase Storage bucket and hands out
// token-based Firebase download URLs.
type GCSBlobStore struct {
	bucket     *gcs.BucketHandle
	bucketName string
}

func NewGCSBlobStore(bucket *gcs.BucketHandle, bucketName string) *GCSBlobStore {
	return &GCSBlobStore{bucket: bucket, bucketName: bucketName}
}

// Put uploads the object. An existing object at the same path is overwritten
// and keeps its download token, so its retrieval URL does not change.
func (s *GCSBlobStore) Put(ctx context.Context, objectPath string, r io.Reader, contentType string) (*Object, error) {
	p, err := cleanObjectPath(objectPath)
	if err != nil {
		return nil, err
	}
	obj := s.bucket.Object(p)

	token := ""
	if attrs, err := obj.Attrs(ctx); err == nil {
		token = attrs.Metadata[downloadTokenKey]
	} else if !errors.Is(err, gcs.ErrObjectNotExist) {
		return nil, fmt.Errorf("gcs attrs %s: %w", p, err)
	}
	if token == "" {
		token = uuid.NewString()
	}

	w := obj.NewWriter(ctx)
	w.ContentType = contentType
	w.Metadata = map[string]string{downloadTokenKey: token}
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return nil, fmt.Errorf("gcs write %s: %w", p, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("gcs write %s: %w", p, err)
	}

	attrs := w.Attrs()
	return &Object{
		Path:        p,
		ContentType: attrs.ContentType,
		Size:        attrs.Size,
		Updated:     attrs.Updated,
	}, nil
}

func (s *GCSBlobStore) DownloadURL(ctx context.Context, o *Object) (string, error) {
	obj := s.bucket.Object(o.Path)
	attrs, err := obj.Attrs(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("gcs attrs %s: %w", o.Path, err)
	}

	token := attrs.Metadata[downloadTokenKey]
	if token == "" {
		token = uuid.NewString()
		md := map[string]string{}
		for k, v := range attrs.Metadata {
			md[k] = v
		}
		md[downloadTokenKey] = token
		if _, err := obj.Update(ctx, gcs.ObjectAttrsToUpdate{Metadata: md}); err != nil {
			return "", fmt.Errorf("gcs update metadata %s: %w", o.Path, err)
		}
	}
	return firebaseDownloadURL(s.bucketName, o.Path, token), nil
}

func (s *GCSBlobStore) ObjectPath(rawURL string) (string, bool) {
	return firebaseObjectPath(rawURL)
}

func (s *GCSBlobStore) List(ctx context.Context, prefix string) ([]Object, error) {
	it := s.bucket.Objects(ctx, &gcs.Query{Prefix: prefix})
	var out []Object
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("gcs list %s: %w", prefix, err)
		}
		out = append(out, Object{
			Path:        attrs.Name,
			ContentType: attrs.ContentType,
			Size:        attrs.Size,
			Updated:     attrs.Updated,
		})
	}
	return out, nil
}

func (s *GCSBlobStore) Delete(ctx context.Context, objectPath string) error {
	err := s.bucket.Object(objectPath).Delete(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return ErrNotFound
	}
	return err
}

func firebaseDownloadURL(bucket, objectName, token string) string {
	// https://firebasestorage.googleapis.com/v0/b/{bucket}/o/{path}?alt=media&token={token}
	return fmt.Sprintf(
		"https://firebasestorage.googleapis.com/v0/b/%s/o/%s?alt=media&token=%s",
		bucket,
		url.PathEscape(objectName),
		url.QueryEscape(token),
	)
}

// firebaseObjectPath is the inverse of firebaseDownloadURL. The bucket and
// token are ignored.
func firebaseObjectPath(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	rest, ok := strings.CutPrefix(u.Path, "/v0/b/")
	if !ok {
		return "", false
	}
	_, name, ok := strings.Cut(rest, "/o/")
	if !ok || name == "" {
		return "", false
	}
	return name, true
}
