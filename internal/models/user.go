package models

// Account is a local development login. Production sign-in goes through
// Firebase Auth; accounts are only read when AUTH_MODE=local.
type Account struct {
	UID          string `json:"uid" yaml:"uid"`
	Email        string `json:"email" yaml:"email"`
	PasswordHash string `json:"-" yaml:"password_hash"`
	DisplayName  string `json:"displayName" yaml:"display_name"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	Token string  `json:"token"`
	User  Account `json:"user"`
}
