package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_ListenerGetsCurrentStateOnRegister(t *testing.T) {
	h := NewHub()
	h.SignIn(User{UID: "u1"})

	var got []*User
	unsubscribe := h.OnAuthStateChanged(func(u *User) { got = append(got, u) })
	defer unsubscribe()

	require.Len(t, got, 1)
	require.NotNil(t, got[0])
	assert.Equal(t, "u1", got[0].UID)
}

func TestHub_Transitions(t *testing.T) {
	h := NewHub()

	var got []string
	unsubscribe := h.OnAuthStateChanged(func(u *User) {
		if u == nil {
			got = append(got, "out")
			return
		}
		got = append(got, "in:"+u.UID)
	})

	h.SignIn(User{UID: "u1"})
	h.SignIn(User{UID: "u1"}) // same identity, no transition
	h.SignIn(User{UID: "u2"})
	h.SignOut()
	h.SignOut() // already signed out

	unsubscribe()
	unsubscribe()
	h.SignIn(User{UID: "u3"})

	assert.Equal(t, []string{"out", "in:u1", "in:u2", "out"}, got)
	assert.Equal(t, "u3", h.CurrentUser().UID)
}
