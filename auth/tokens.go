package auth

import (
	"context"
	"errors"
	"time"

	"github.com/adeilh/digitally/users"
)

// ErrWrongRole is returned when a valid token carries another role.
var ErrWrongRole = errors.New("auth: token role not accepted here")

// Tokens mints role-scoped tokens on top of a Signer.
type Tokens struct {
	signer   *Signer
	userTTL  time.Duration
	adminTTL time.Duration
}

var _ users.TokenIssuer = (*Tokens)(nil)

func NewTokens(signer *Signer, userTTL, adminTTL time.Duration) *Tokens {
	if userTTL <= 0 {
		userTTL = 30 * 24 * time.Hour
	}
	if adminTTL <= 0 {
		adminTTL = 12 * time.Hour
	}
	return &Tokens{signer: signer, userTTL: userTTL, adminTTL: adminTTL}
}

func (t *Tokens) IssueUserToken(ctx context.Context, userID string) (string, error) {
	tok, err := t.signer.Issue(ctx, Claims{Subject: userID, Role: RoleUser}, t.userTTL)
	if err != nil {
		return "", err
	}
	return tok.Raw, nil
}

func (t *Tokens) IssueAdminToken(ctx context.Context, username string) (string, error) {
	tok, err := t.signer.Issue(ctx, Claims{Subject: username, Role: RoleAdmin}, t.adminTTL)
	if err != nil {
		return "", err
	}
	return tok.Raw, nil
}

// ParseRole parses raw and requires it to carry role.
func (t *Tokens) ParseRole(ctx context.Context, raw string, role Role) (Token, error) {
	tok, err := t.signer.Parse(ctx, raw)
	if err != nil {
		return Token{}, err
	}
	if tok.Claims.Role != role {
		return Token{}, ErrWrongRole
	}
	return tok, nil
}

// Revoke invalidates raw if it is a token this service issued.
func (t *Tokens) Revoke(ctx context.Context, raw string) error {
	tok, err := t.signer.Parse(ctx, raw)
	if err != nil {
		return err
	}
	return t.signer.Revoke(ctx, tok.Claims.ID)
}
