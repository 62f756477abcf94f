package auth

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// User is the signed-in identity reported by an auth provider.
type User struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

// Provider delivers auth-state transitions. A nil user means signed out.
// Listeners are called once with the current state on registration and then
// on every change until the returned unsubscribe func is called.
type Provider interface {
	OnAuthStateChanged(fn func(*User)) (unsubscribe func())
}

// TokenVerifier turns a bearer token into the identity it was issued for.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*User, error)
}

// Hub is an in-process Provider. The server keeps one per client session and
// publishes the identity it verified from the request.
type Hub struct {
	mu        sync.Mutex
	current   *User
	nextID    int
	listeners map[int]func(*User)
}

func NewHub() *Hub {
	return &Hub{listeners: make(map[int]func(*User))}
}

func (h *Hub) OnAuthStateChanged(fn func(*User)) func() {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.listeners[id] = fn
	current := h.current
	h.mu.Unlock()

	fn(copyUser(current))

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.listeners, id)
			h.mu.Unlock()
		})
	}
}

// SignIn publishes a signed-in transition. Signing in again as the same uid
// is not a transition and notifies nobody.
func (h *Hub) SignIn(u User) {
	h.mu.Lock()
	if h.current != nil && h.current.UID == u.UID {
		h.current = &u
		h.mu.Unlock()
		return
	}
	h.current = &u
	fns := h.snapshot()
	h.mu.Unlock()

	for _, fn := range fns {
		fn(copyUser(&u))
	}
}

func (h *Hub) SignOut() {
	h.mu.Lock()
	if h.current == nil {
		h.mu.Unlock()
		return
	}
	h.current = nil
	fns := h.snapshot()
	h.mu.Unlock()

	for _, fn := range fns {
		fn(nil)
	}
}

// CurrentUser returns the signed-in user or nil.
func (h *Hub) CurrentUser() *User {
	h.mu.Lock()
	defer h.mu.Unlock()
	return copyUser(h.current)
}

func (h *Hub) snapshot() []func(*User) {
	fns := make([]func(*User), 0, len(h.listeners))
	for _, fn := range h.listeners {
		fns = append(fns, fn)
	}
	return fns
}

func copyUser(u *User) *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
