package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newSigner(t *testing.T, opts ...Option) (*Signer, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	s, err := NewSigner([]byte("super-secret-key-that-is-32-bytes"), append([]Option{WithClock(clock.Now)}, opts...)...)
	require.NoError(t, err)
	return s, clock
}

func TestSignerIssueParse(t *testing.T) {
	s, _ := newSigner(t)
	ctx := context.Background()

	tok, err := s.Issue(ctx, Claims{Subject: "user-1", Role: RoleUser}, time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, tok.Claims.ID)
	assert.Equal(t, "digitally", tok.Claims.Issuer)

	parsed, err := s.Parse(ctx, tok.Raw)
	require.NoError(t, err)
	assert.Equal(t, tok.Claims, parsed.Claims)
	assert.Equal(t, time.Hour, parsed.Claims.ExpiresAt.Sub(parsed.Claims.IssuedAt))
}

func TestSignerRejects(t *testing.T) {
	s, clock := newSigner(t, WithLeeway(0))
	ctx := context.Background()
	tok, err := s.Issue(ctx, Claims{Subject: "user-1"}, time.Minute)
	require.NoError(t, err)

	parts := strings.Split(tok.Raw, ".")
	other, _ := newSigner(t, WithIssuer("someone-else"))
	foreign, err := other.Issue(ctx, Claims{Subject: "user-1"}, time.Minute)
	require.NoError(t, err)
	hs512, _ := newSigner(t, WithAlgorithm("HS512"))
	strong, err := hs512.Issue(ctx, Claims{Subject: "user-1"}, time.Minute)
	require.NoError(t, err)

	tests := map[string]struct {
		raw  string
		want error
	}{
		"garbage":         {"not-a-token", ErrJWTInvalidFormat},
		"bad header":      {"!!." + parts[1] + "." + parts[2], ErrJWTInvalidFormat},
		"tampered":        {parts[0] + "." + parts[1] + "x." + parts[2], ErrJWTInvalidSignature},
		"bad signature":   {parts[0] + "." + parts[1] + ".AAAA", ErrJWTInvalidSignature},
		"other issuer":    {foreign.Raw, ErrJWTInvalidIssuer},
		"other algorithm": {strong.Raw, ErrJWTUnsupportedAlgo},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := s.Parse(ctx, tt.raw)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	clock.Advance(2 * time.Minute)
	_, err = s.Parse(ctx, tok.Raw)
	assert.ErrorIs(t, err, ErrJWTExpired)
}

func TestSignerRevocation(t *testing.T) {
	s, _ := newSigner(t)
	ctx := context.Background()

	tok, err := s.Issue(ctx, Claims{Subject: "admin", Role: RoleAdmin}, time.Hour)
	require.NoError(t, err)
	require.NoError(t, s.Revoke(ctx, tok.Claims.ID))

	_, err = s.Parse(ctx, tok.Raw)
	assert.ErrorIs(t, err, ErrJWTRevoked)
	assert.ErrorIs(t, s.Revoke(ctx, ""), ErrJWTInvalidClaims)
}

func TestSignerIssueValidation(t *testing.T) {
	_, err := NewSigner(nil)
	assert.ErrorIs(t, err, ErrJWTMissingSigningKey)
	_, err = NewSigner([]byte("k"), WithAlgorithm("RS256"))
	assert.ErrorIs(t, err, ErrJWTUnsupportedAlgo)

	s, _ := newSigner(t)
	_, err = s.Issue(context.Background(), Claims{Subject: "x"}, 0)
	assert.ErrorIs(t, err, ErrJWTInvalidClaims)
	_, err = s.Issue(context.Background(), Claims{}, time.Hour)
	assert.ErrorIs(t, err, ErrJWTInvalidClaims)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Issue(ctx, Claims{Subject: "x"}, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTokensScopeByRole(t *testing.T) {
	s, _ := newSigner(t)
	tokens := NewTokens(s, 0, 0)
	ctx := context.Background()

	userTok, err := tokens.IssueUserToken(ctx, "u1")
	require.NoError(t, err)
	adminTok, err := tokens.IssueAdminToken(ctx, "admin")
	require.NoError(t, err)

	got, err := tokens.ParseRole(ctx, userTok, RoleUser)
	require.NoError(t, err)
	assert.Equal(t, "u1", got.Claims.Subject)
	assert.Equal(t, 30*24*time.Hour, got.Claims.ExpiresAt.Sub(got.Claims.IssuedAt))

	_, err = tokens.ParseRole(ctx, userTok, RoleAdmin)
	assert.ErrorIs(t, err, ErrWrongRole)
	_, err = tokens.ParseRole(ctx, adminTok, RoleUser)
	assert.ErrorIs(t, err, ErrWrongRole)

	require.NoError(t, tokens.Revoke(ctx, userTok))
	_, err = tokens.ParseRole(ctx, userTok, RoleUser)
	assert.ErrorIs(t, err, ErrJWTRevoked)
}
