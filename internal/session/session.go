package session

import (
	"context"
	"errors"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/laibashaikh28/twee-webapp/internal/auth"
	"github.com/laibashaikh28/twee-webapp/internal/models"
)

var (
	ErrSessionClosed  = errors.New("session closed")
	ErrNotSignedIn    = errors.New("not signed in")
	ErrEditorClosed   = errors.New("profile editor is not open")
	ErrSaveInProgress = errors.New("profile save already in progress")
)

// ProfileStore is what a session needs from the profile service.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	ListPosts(ctx context.Context, userID string) ([]models.Post, error)
	SaveProfile(ctx context.Context, userID string, prof models.Profile) error
	UploadAvatar(ctx context.Context, filename string, r io.Reader, contentType string) (*models.AvatarUploadResponse, error)
	EmptyStateImage() string
}

// View is a snapshot of what the profile page shows.
type View struct {
	SignedIn bool `json:"signedIn"`
	// Loading is set while a read for the current user is still outstanding.
	Loading         bool           `json:"loading"`
	UserID          string         `json:"userId"`
	Profile         models.Profile `json:"profile"`
	Handle          string         `json:"handle"`
	Posts           []models.Post  `json:"posts,omitempty"`
	EmptyState      bool           `json:"emptyState"`
	EmptyStateImage string         `json:"emptyStateImage,omitempty"`
	Editor          EditorView     `json:"editor"`
}

type EditorView struct {
	Open      bool           `json:"open"`
	Form      models.Profile `json:"form"`
	Saving    bool           `json:"saving"`
	Uploading bool           `json:"uploading"`
}

// state is owned by the reducer goroutine; nothing else touches it.
type state struct {
	signedIn bool
	userID   string
	// gen increments on every sign-in so results of an older load are dropped.
	gen int

	profile models.Profile
	posts   []models.Post

	profilePending bool
	postsPending   bool
	// postsLoaded is set once the current user's posts were read successfully.
	postsLoaded bool

	editorOpen bool
	// editorGen is the gen the editor was opened under.
	editorGen int
	form      Form
	saving    bool
	uploads   int
}

// Session is one mounted profile page: it loads the signed-in user's profile
// and posts and runs the profile editor. All state changes go through a
// single reducer goroutine; auth transitions and editor operations are
// messages to it.
type Session struct {
	profiles ProfileStore
	log      *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	events chan func()
	wg     sync.WaitGroup

	unsubscribe func()
	closeOnce   sync.Once

	st state
}

// New mounts a session on provider. The provider's current state is applied
// immediately. Close must be called to release it.
func New(provider auth.Provider, profiles ProfileStore, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		profiles: profiles,
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
		events:   make(chan func()),
	}

	s.wg.Add(1)
	go s.run()

	s.unsubscribe = provider.OnAuthStateChanged(func(u *auth.User) {
		s.post(func() { s.onAuthStateChanged(u) })
	})
	return s
}

func (s *Session) run() {
	defer s.wg.Done()
	for {
		select {
		case fn := <-s.events:
			fn()
		case <-s.ctx.Done():
			return
		}
	}
}

// Close tears the session down. Pending reads and writes are canceled and
// their results discarded; Close returns once every goroutine has exited.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		s.unsubscribe()
		s.wg.Wait()
	})
}

// post hands fn to the reducer, or drops it once the session is closed.
func (s *Session) post(fn func()) {
	select {
	case s.events <- fn:
	case <-s.ctx.Done():
	}
}

// do runs fn on the reducer and waits for it.
func (s *Session) do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	select {
	case s.events <- func() { fn(); close(done) }:
	case <-s.ctx.Done():
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	<-done
	return nil
}

// goIO runs fn on its own goroutine, tracked so Close waits for it.
func (s *Session) goIO(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

// opContext derives a context that ends with either the caller or the session.
func (s *Session) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	opCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.ctx, cancel)
	return opCtx, func() {
		stop()
		cancel()
	}
}

func (s *Session) onAuthStateChanged(u *auth.User) {
	if u == nil {
		// Signing out leaves the last loaded profile in place.
		s.st.signedIn = false
		s.log.Debug("auth state: signed out", zap.String("user_id", s.st.userID))
		return
	}

	s.st.signedIn = true
	s.st.userID = u.UID
	s.st.gen++
	gen, uid := s.st.gen, u.UID

	// A form filled for the previous identity must never be written for this one.
	s.st.editorOpen = false
	s.st.form = Form{}
	s.st.profilePending = true
	s.st.postsPending = true
	s.st.postsLoaded = false
	s.log.Debug("auth state: signed in", zap.String("user_id", uid))

	s.goIO(func() {
		prof, err := s.profiles.GetProfile(s.ctx, uid)
		s.post(func() { s.applyProfile(gen, uid, prof, err) })
	})
	s.goIO(func() {
		posts, err := s.profiles.ListPosts(s.ctx, uid)
		s.post(func() { s.applyPosts(gen, uid, posts, err) })
	})
}

func (s *Session) applyProfile(gen int, uid string, prof *models.Profile, err error) {
	if gen != s.st.gen {
		return
	}
	s.st.profilePending = false
	if err != nil {
		s.log.Warn("profile load failed", zap.String("user_id", uid), zap.Error(err))
		return
	}
	s.st.profile = *prof
}

func (s *Session) applyPosts(gen int, uid string, posts []models.Post, err error) {
	if gen != s.st.gen {
		return
	}
	s.st.postsPending = false
	if err != nil {
		s.log.Warn("posts load failed", zap.String("user_id", uid), zap.Error(err))
		return
	}
	s.st.posts = posts
	s.st.postsLoaded = true
}

// View returns a snapshot of the page.
func (s *Session) View(ctx context.Context) (View, error) {
	var v View
	err := s.do(ctx, func() { v = s.snapshot() })
	return v, err
}

func (s *Session) snapshot() View {
	v := View{
		SignedIn: s.st.signedIn,
		Loading:  s.st.profilePending || s.st.postsPending,
		UserID:   s.st.userID,
		Profile:  s.st.profile,
		Handle:   s.st.profile.Handle(),
		Editor: EditorView{
			Open:      s.st.editorOpen,
			Saving:    s.st.saving,
			Uploading: s.st.uploads > 0,
		},
	}
	if s.st.editorOpen {
		v.Editor.Form = s.st.form.Record()
	}
	switch {
	case len(s.st.posts) > 0:
		v.Posts = append([]models.Post(nil), s.st.posts...)
	case s.st.postsLoaded:
		// Only a completed read can say the user has no posts.
		v.EmptyState = true
		v.EmptyStateImage = s.profiles.EmptyStateImage()
	}
	return v
}
