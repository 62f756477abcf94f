package auth

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/laibashaikh28/twee-webapp/internal/models"
)

// LocalAuth signs in development accounts with bcrypt passwords and issues
// HS256 tokens that its Verify accepts.
type LocalAuth struct {
	mu         sync.RWMutex
	accounts   map[string]models.Account // email -> account
	secret     []byte
	expiration time.Duration
	now        func() time.Time
}

func NewLocalAuth(secret string, expiration time.Duration, accounts []models.Account) *LocalAuth {
	byEmail := make(map[string]models.Account, len(accounts))
	for _, a := range accounts {
		byEmail[strings.ToLower(a.Email)] = a
	}
	return &LocalAuth{
		accounts:   byEmail,
		secret:     []byte(secret),
		expiration: expiration,
		now:        time.Now,
	}
}

type accountsFile struct {
	Accounts []models.Account `yaml:"accounts"`
}

// LoadAccounts reads the YAML accounts file used in local auth mode.
func LoadAccounts(path string) ([]models.Account, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read accounts file: %w", err)
	}
	var f accountsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse accounts file: %w", err)
	}
	for i, a := range f.Accounts {
		if a.UID == "" || a.Email == "" || a.PasswordHash == "" {
			return nil, fmt.Errorf("accounts[%d]: uid, email and password_hash are required", i)
		}
	}
	return f.Accounts, nil
}

// HashPassword returns the bcrypt hash stored in the accounts file.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func (a *LocalAuth) Login(email, password string) (string, *models.Account, error) {
	a.mu.RLock()
	acct, ok := a.accounts[strings.ToLower(strings.TrimSpace(email))]
	a.mu.RUnlock()
	if !ok {
		return "", nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := a.generateToken(acct)
	if err != nil {
		return "", nil, err
	}
	return token, &acct, nil
}

func (a *LocalAuth) generateToken(acct models.Account) (string, error) {
	now := a.now()
	claims := jwt.MapClaims{
		"user_id": acct.UID,
		"email":   acct.Email,
		"name":    acct.DisplayName,
		"exp":     now.Add(a.expiration).Unix(),
		"iat":     now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

func (a *LocalAuth) Verify(ctx context.Context, tokenString string) (*User, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.secret, nil
	}, jwt.WithTimeFunc(a.now))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return nil, ErrInvalidToken
	}

	u := &User{UID: userID}
	u.Email, _ = claims["email"].(string)
	u.DisplayName, _ = claims["name"].(string)
	return u, nil
}

// LookupUser resolves a uid against the accounts file.
func (a *LocalAuth) LookupUser(ctx context.Context, uid string) (*User, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, acct := range a.accounts {
		if acct.UID == uid {
			return &User{UID: acct.UID, Email: acct.Email, DisplayName: acct.DisplayName}, nil
		}
	}
	return nil, fmt.Errorf("user %s not found", uid)
}
