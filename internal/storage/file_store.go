package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"sync"
)

// FileStore is a DocumentStore persisted to a single JSON file. It is meant
// for local development and tests; every Set rewrites the file.
type FileStore struct {
	mu       sync.RWMutex
	filePath string
	docs     map[string]map[string]json.RawMessage // collection -> id -> document
}

// NewFileStore opens (or creates) documents.json in dataDir.
func NewFileStore(dataDir string) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, err
	}

	s := &FileStore{
		filePath: filepath.Join(dataDir, "documents.json"),
		docs:     make(map[string]map[string]json.RawMessage),
	}
	if err := s.load(); err != nil {
		return nil, fmt.Errorf("file store: load %s: %w", s.filePath, err)
	}
	return s, nil
}

func (s *FileStore) load() error {
	file, err := os.Open(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist yet, not an error
			return nil
		}
		return err
	}
	defer file.Close()

	return json.NewDecoder(file).Decode(&s.docs)
}

func (s *FileStore) Get(ctx context.Context, collection, id string, dst interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	raw, ok := s.docs[collection][id]
	s.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	return json.Unmarshal(raw, dst)
}

func (s *FileStore) QueryEqual(ctx context.Context, collection, field string, value interface{}, dst interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	want, err := normalize(value)
	if err != nil {
		return err
	}

	s.mu.RLock()
	ids := make([]string, 0, len(s.docs[collection]))
	for id := range s.docs[collection] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	matches := make([]json.RawMessage, 0)
	for _, id := range ids {
		raw := s.docs[collection][id]
		var fields map[string]interface{}
		if err := json.Unmarshal(raw, &fields); err != nil {
			s.mu.RUnlock()
			return fmt.Errorf("file store: decode %s/%s: %w", collection, id, err)
		}
		if got, ok := fields[field]; ok && reflect.DeepEqual(got, want) {
			matches = append(matches, raw)
		}
	}
	s.mu.RUnlock()

	app, err := newSliceAppender(dst)
	if err != nil {
		return err
	}
	for _, raw := range matches {
		if err := json.Unmarshal(raw, app.next()); err != nil {
			return err
		}
		app.commit()
	}
	return nil
}

func (s *FileStore) All(ctx context.Context, collection string, dst interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	ids := make([]string, 0, len(s.docs[collection]))
	for id := range s.docs[collection] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	raws := make([]json.RawMessage, 0, len(ids))
	for _, id := range ids {
		raws = append(raws, s.docs[collection][id])
	}
	s.mu.RUnlock()

	app, err := newSliceAppender(dst)
	if err != nil {
		return err
	}
	for i, raw := range raws {
		if err := json.Unmarshal(raw, app.next()); err != nil {
			return fmt.Errorf("file store: decode %s/%s: %w", collection, ids[i], err)
		}
		app.commit()
	}
	return nil
}

func (s *FileStore) Set(ctx context.Context, collection, id string, doc interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.docs[collection] == nil {
		s.docs[collection] = make(map[string]json.RawMessage)
	}
	prev, existed := s.docs[collection][id]
	s.docs[collection][id] = raw

	if err := s.save(); err != nil {
		if existed {
			s.docs[collection][id] = prev
		} else {
			delete(s.docs[collection], id)
		}
		return err
	}
	return nil
}

// save writes to a temp file first, then renames over the data file.
func (s *FileStore) save() error {
	tempFile := s.filePath + ".tmp"
	file, err := os.Create(tempFile)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(s.docs); err != nil {
		file.Close()
		os.Remove(tempFile)
		return err
	}

	if err := file.Close(); err != nil {
		os.Remove(tempFile)
		return err
	}

	return os.Rename(tempFile, s.filePath)
}

// normalize round-trips a query value through JSON so it compares equal to
// the decoded document fields.
func normalize(value interface{}) (interface{}, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var out interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
