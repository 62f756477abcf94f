package storage

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// DiskBlobStore keeps blobs under a local directory that the server exposes
// at /uploads/.
type DiskBlobStore struct {
	rootDir string
	baseURL string
}

func NewDiskBlobStore(rootDir, publicBaseURL string) (*DiskBlobStore, error) {
	if err := os.MkdirAll(rootDir, 0755); err != nil {
		return nil, err
	}
	return &DiskBlobStore{
		rootDir: rootDir,
		baseURL: strings.TrimRight(publicBaseURL, "/"),
	}, nil
}

// cleanObjectPath rejects absolute paths and anything escaping the root.
func cleanObjectPath(p string) (string, error) {
	if p == "" || strings.HasPrefix(p, "/") {
		return "", ErrInvalidPath
	}
	cleaned := path.Clean(p)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrInvalidPath
	}
	return cleaned, nil
}

func (s *DiskBlobStore) Put(ctx context.Context, objectPath string, r io.Reader, contentType string) (*Object, error) {
	p, err := cleanObjectPath(objectPath)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	filePath := filepath.Join(s.rootDir, filepath.FromSlash(p))
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	// Write next to the target and rename so readers never see a partial file.
	tmp, err := os.CreateTemp(filepath.Dir(filePath), ".upload-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	n, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("failed to save file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("failed to save file: %w", err)
	}
	if err := os.Rename(tmp.Name(), filePath); err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("failed to save file: %w", err)
	}

	info, err := os.Stat(filePath)
	if err != nil {
		return nil, err
	}
	return &Object{
		Path:        p,
		ContentType: contentType,
		Size:        n,
		Updated:     info.ModTime(),
	}, nil
}

func (s *DiskBlobStore) DownloadURL(ctx context.Context, obj *Object) (string, error) {
	p, err := cleanObjectPath(obj.Path)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(filepath.Join(s.rootDir, filepath.FromSlash(p))); err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", err
	}

	segments := strings.Split(p, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return s.baseURL + "/uploads/" + strings.Join(segments, "/"), nil
}

func (s *DiskBlobStore) ObjectPath(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	_, rest, ok := strings.Cut(u.Path, "/uploads/")
	if !ok {
		return "", false
	}
	p, err := cleanObjectPath(rest)
	if err != nil {
		return "", false
	}
	return p, true
}

func (s *DiskBlobStore) List(ctx context.Context, prefix string) ([]Object, error) {
	var out []Object
	err := filepath.WalkDir(s.rootDir, func(fp string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".upload-") {
			return nil
		}
		rel, err := filepath.Rel(s.rootDir, fp)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if !strings.HasPrefix(rel, prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		out = append(out, Object{Path: rel, Size: info.Size(), Updated: info.ModTime()})
		return ctx.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *DiskBlobStore) Delete(ctx context.Context, objectPath string) error {
	p, err := cleanObjectPath(objectPath)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.rootDir, filepath.FromSlash(p))); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
