package session

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/laibashaikh28/twee-webapp/internal/models"
)

var errUnreachable = errors.New("store unreachable")

// fakeProfiles is an in-memory ProfileStore with switches for failures and
// gates that hold a user's profile read until released.
type fakeProfiles struct {
	mu        sync.Mutex
	profiles  map[string]models.Profile
	posts     map[string][]models.Post
	gates     map[string]chan struct{}
	postGates map[string]chan struct{}
	// uploadGate, when set, holds every upload until closed or canceled.
	uploadGate chan struct{}
	getErr     error
	saveErr    error
	uploadErr  error
	postsFor   []string
	saved      []models.Profile
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{
		profiles:  make(map[string]models.Profile),
		posts:     make(map[string][]models.Post),
		gates:     make(map[string]chan struct{}),
		postGates: make(map[string]chan struct{}),
	}
}

func (f *fakeProfiles) hold(uid string) (release func()) {
	ch := make(chan struct{})
	f.mu.Lock()
	f.gates[uid] = ch
	f.mu.Unlock()
	return func() { close(ch) }
}

func (f *fakeProfiles) holdPosts(uid string) (release func()) {
	ch := make(chan struct{})
	f.mu.Lock()
	f.postGates[uid] = ch
	f.mu.Unlock()
	return func() { close(ch) }
}

func (f *fakeProfiles) holdUploads() (release func()) {
	ch := make(chan struct{})
	f.mu.Lock()
	f.uploadGate = ch
	f.mu.Unlock()
	return func() { close(ch) }
}

func (f *fakeProfiles) savedProfiles() []models.Profile {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Profile(nil), f.saved...)
}

func (f *fakeProfiles) setGetErr(err error) {
	f.mu.Lock()
	f.getErr = err
	f.mu.Unlock()
}

func (f *fakeProfiles) setSaveErr(err error) {
	f.mu.Lock()
	f.saveErr = err
	f.mu.Unlock()
}

func (f *fakeProfiles) GetProfile(ctx context.Context, uid string) (*models.Profile, error) {
	f.mu.Lock()
	gate := f.gates[uid]
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	p, ok := f.profiles[uid]
	if !ok {
		return nil, errors.New("profile not found")
	}
	return &p, nil
}

func (f *fakeProfiles) ListPosts(ctx context.Context, uid string) ([]models.Post, error) {
	f.mu.Lock()
	f.postsFor = append(f.postsFor, uid)
	gate := f.postGates[uid]
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	return append([]models.Post(nil), f.posts[uid]...), nil
}

func (f *fakeProfiles) SaveProfile(ctx context.Context, uid string, p models.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.profiles[uid] = p
	f.saved = append(f.saved, p)
	return nil
}

func (f *fakeProfiles) UploadAvatar(ctx context.Context, filename string, r io.Reader, contentType string) (*models.AvatarUploadResponse, error) {
	if _, err := io.ReadAll(r); err != nil {
		return nil, err
	}
	f.mu.Lock()
	gate := f.uploadGate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	return &models.AvatarUploadResponse{
		Path: "avatar/" + filename,
		URL:  "http://localhost/uploads/avatar/" + filename,
	}, nil
}

func (f *fakeProfiles) EmptyStateImage() string {
	return "https://example.test/empty.jpg"
}

func (f *fakeProfiles) postQueries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.postsFor...)
}
