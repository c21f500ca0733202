// Package auth signs and checks the bearer tokens used by visitors and by
// the agency admin, and provides the echo middleware that guards routes.
package auth

import (
	"context"
	"time"
)

// Role separates user tokens from admin tokens signed with the same key.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Claims is the payload embedded inside a signed token.
type Claims struct {
	ID        string
	Subject   string
	Role      Role
	Issuer    string
	IssuedAt  time.Time
	ExpiresAt time.Time
	NotBefore time.Time
}

// Token is a signed token and the claims it carries.
type Token struct {
	Raw    string
	Claims Claims
}

// TokenParser validates a raw token.
type TokenParser interface {
	Parse(ctx context.Context, raw string) (Token, error)
}
