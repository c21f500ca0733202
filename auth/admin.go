package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned for any failed admin login.
var ErrInvalidCredentials = errors.New("auth: invalid id or password")

// Admin checks the single agency admin account.
type Admin struct {
	username string
	hash     []byte
	tokens   *Tokens
}

// NewAdmin accepts either a bcrypt hash or a plaintext password. A plaintext
// password is hashed once here so it is never compared directly.
func NewAdmin(username, password, passwordHash string, tokens *Tokens) (*Admin, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, errors.New("auth: admin username required")
	}
	hash := []byte(strings.TrimSpace(passwordHash))
	if len(hash) == 0 {
		if password == "" {
			return nil, errors.New("auth: admin password required")
		}
		var err error
		hash, err = bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("auth: hash admin password: %w", err)
		}
	} else if _, err := bcrypt.Cost(hash); err != nil {
		return nil, fmt.Errorf("auth: admin password hash: %w", err)
	}
	return &Admin{username: username, hash: hash, tokens: tokens}, nil
}

// Login returns an admin token for valid credentials.
func (a *Admin) Login(ctx context.Context, username, password string) (string, error) {
	userOK := subtle.ConstantTimeCompare([]byte(strings.TrimSpace(username)), []byte(a.username)) == 1
	passErr := bcrypt.CompareHashAndPassword(a.hash, []byte(password))
	if !userOK || passErr != nil {
		return "", ErrInvalidCredentials
	}
	return a.tokens.IssueAdminToken(ctx, a.username)
}

// Logout revokes an admin token.
func (a *Admin) Logout(ctx context.Context, raw string) error {
	if _, err := a.tokens.ParseRole(ctx, raw, RoleAdmin); err != nil {
		return err
	}
	return a.tokens.Revoke(ctx, raw)
}
