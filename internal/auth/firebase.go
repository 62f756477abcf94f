package auth

import (
	"context"
	"fmt"

	fbauth "firebase.google.com/go/v4/auth"
)

// FirebaseVerifier verifies Firebase ID tokens issued to the web client.
type FirebaseVerifier struct {
	client *fbauth.Client
}

func NewFirebaseVerifier(client *fbauth.Client) *FirebaseVerifier {
	return &FirebaseVerifier{client: client}
}

func (v *FirebaseVerifier) Verify(ctx context.Context, idToken string) (*User, error) {
	if v == nil || v.client == nil {
		return nil, fmt.Errorf("firebase auth not configured")
	}
	tok, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	u := &User{UID: tok.UID}
	if email, ok := tok.Claims["email"].(string); ok {
		u.Email = email
	}
	if name, ok := tok.Claims["name"].(string); ok {
		u.DisplayName = name
	}
	return u, nil
}

// LookupUser fetches the Firebase Auth record for uid. Used to fill public
// profiles for users that never saved one.
func (v *FirebaseVerifier) LookupUser(ctx context.Context, uid string) (*User, error) {
	rec, err := v.client.GetUser(ctx, uid)
	if err != nil {
		return nil, err
	}
	return &User{UID: rec.UID, Email: rec.Email, DisplayName: rec.DisplayName}, nil
}
