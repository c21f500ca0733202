package auth

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"hash"
	"io"
	"strings"
	"time"

	"github.com/adeilh/digitally/cache"
)

var (
	ErrJWTInvalidFormat     = errors.New("auth: invalid jwt format")
	ErrJWTInvalidSignature  = errors.New("auth: invalid jwt signature")
	ErrJWTUnsupportedAlgo   = errors.New("auth: unsupported jwt algorithm")
	ErrJWTExpired           = errors.New("auth: jwt expired")
	ErrJWTNotYetValid       = errors.New("auth: jwt not yet valid")
	ErrJWTRevoked           = errors.New("auth: jwt revoked")
	ErrJWTInvalidClaims     = errors.New("auth: invalid jwt claims")
	ErrJWTMissingSigningKey = errors.New("auth: missing signing key")
	ErrJWTInvalidIssuer     = errors.New("auth: invalid jwt issuer")
)

// MinSecretLength is the minimum recommended secret length for HMAC-SHA256.
const MinSecretLength = 32

type jwtHeader struct {
	Algorithm string `json:"alg"`
	Type      string `json:"typ"`
}

type jwtPayload struct {
	ID        string `json:"jti,omitempty"`
	Subject   string `json:"sub,omitempty"`
	Role      Role   `json:"role,omitempty"`
	Issuer    string `json:"iss,omitempty"`
	IssuedAt  int64  `json:"iat,omitempty"`
	ExpiresAt int64  `json:"exp,omitempty"`
	NotBefore int64  `json:"nbf,omitempty"`
}

// Signer issues and validates HMAC-signed JWTs. Revoked token ids are kept
// in memory until they could no longer be valid.
type Signer struct {
	secret  []byte
	opts    Options
	revoked *cache.TTL[struct{}]
}

var _ TokenParser = (*Signer)(nil)

// NewSigner creates a signer. Algorithm defaults to HS256.
func NewSigner(secret []byte, opts ...Option) (*Signer, error) {
	if len(secret) == 0 {
		return nil, ErrJWTMissingSigningKey
	}
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if _, err := signingHasher(o.Algorithm); err != nil {
		return nil, err
	}
	return &Signer{
		secret:  append([]byte(nil), secret...),
		opts:    o,
		revoked: cache.New[struct{}](cache.WithTTL(o.RevokeFor), cache.WithClock(o.Now)),
	}, nil
}

// Issue signs claims valid for ttl from now.
func (s *Signer) Issue(ctx context.Context, claims Claims, ttl time.Duration) (Token, error) {
	if err := ctx.Err(); err != nil {
		return Token{}, err
	}
	if ttl <= 0 {
		return Token{}, fmt.Errorf("%w: ttl must be positive", ErrJWTInvalidClaims)
	}
	if claims.Subject == "" {
		return Token{}, fmt.Errorf("%w: empty subject", ErrJWTInvalidClaims)
	}

	c := claims
	if c.ID == "" {
		id, err := randomID()
		if err != nil {
			return Token{}, err
		}
		c.ID = id
	}
	now := s.opts.Now().Truncate(time.Second)
	c.IssuedAt = now
	c.NotBefore = now
	c.ExpiresAt = now.Add(ttl)
	c.Issuer = s.opts.Issuer

	headerSeg, err := encodeSegment(jwtHeader{Algorithm: s.opts.Algorithm, Type: "JWT"})
	if err != nil {
		return Token{}, err
	}
	payloadSeg, err := encodeSegment(payloadFromClaims(c))
	if err != nil {
		return Token{}, err
	}
	signingInput := headerSeg + "." + payloadSeg
	sig, err := s.sign(signingInput, s.opts.Algorithm)
	if err != nil {
		return Token{}, err
	}
	return Token{Raw: signingInput + "." + sig, Claims: c}, nil
}

// Parse verifies the signature and time window of raw.
func (s *Signer) Parse(ctx context.Context, raw string) (Token, error) {
	if err := ctx.Err(); err != nil {
		return Token{}, err
	}

	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return Token{}, ErrJWTInvalidFormat
	}

	var header jwtHeader
	if err := decodeSegment(parts[0], &header); err != nil {
		return Token{}, ErrJWTInvalidFormat
	}
	if header.Algorithm != s.opts.Algorithm {
		return Token{}, ErrJWTUnsupportedAlgo
	}
	if err := s.verify(parts[0]+"."+parts[1], parts[2], header.Algorithm); err != nil {
		return Token{}, err
	}

	var payload jwtPayload
	if err := decodeSegment(parts[1], &payload); err != nil {
		return Token{}, ErrJWTInvalidFormat
	}
	claims := claimsFromPayload(payload)
	if err := s.validate(claims); err != nil {
		return Token{}, err
	}
	if claims.ID != "" && s.revoked.Has(claims.ID) {
		return Token{}, ErrJWTRevoked
	}
	return Token{Raw: raw, Claims: claims}, nil
}

// Revoke rejects the token with id from now on.
func (s *Signer) Revoke(_ context.Context, tokenID string) error {
	if tokenID == "" {
		return fmt.Errorf("%w: empty token id", ErrJWTInvalidClaims)
	}
	s.revoked.Set(tokenID, struct{}{})
	return nil
}

func (s *Signer) validate(claims Claims) error {
	now := s.opts.Now()
	if claims.Subject == "" || claims.ExpiresAt.IsZero() {
		return ErrJWTInvalidClaims
	}
	if now.After(claims.ExpiresAt.Add(s.opts.Leeway)) {
		return ErrJWTExpired
	}
	if !claims.NotBefore.IsZero() && now.Add(s.opts.Leeway).Before(claims.NotBefore) {
		return ErrJWTNotYetValid
	}
	if s.opts.Issuer != "" && claims.Issuer != s.opts.Issuer {
		return ErrJWTInvalidIssuer
	}
	return nil
}

func (s *Signer) sign(input, alg string) (string, error) {
	hasher, err := signingHasher(alg)
	if err != nil {
		return "", err
	}
	mac := hmac.New(hasher, s.secret)
	_, _ = mac.Write([]byte(input))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil)), nil
}

func (s *Signer) verify(input, signature, alg string) error {
	hasher, err := signingHasher(alg)
	if err != nil {
		return err
	}
	provided, err := base64.RawURLEncoding.DecodeString(signature)
	if err != nil {
		return ErrJWTInvalidSignature
	}
	mac := hmac.New(hasher, s.secret)
	_, _ = mac.Write([]byte(input))
	if !hmac.Equal(provided, mac.Sum(nil)) {
		return ErrJWTInvalidSignature
	}
	return nil
}

func signingHasher(alg string) (func() hash.Hash, error) {
	switch alg {
	case "HS256":
		return sha256.New, nil
	case "HS384":
		return sha512.New384, nil
	case "HS512":
		return sha512.New, nil
	default:
		return nil, ErrJWTUnsupportedAlgo
	}
}

func payloadFromClaims(c Claims) jwtPayload {
	return jwtPayload{
		ID:        c.ID,
		Subject:   c.Subject,
		Role:      c.Role,
		Issuer:    c.Issuer,
		IssuedAt:  unixOrZero(c.IssuedAt),
		ExpiresAt: unixOrZero(c.ExpiresAt),
		NotBefore: unixOrZero(c.NotBefore),
	}
}

func claimsFromPayload(p jwtPayload) Claims {
	return Claims{
		ID:        p.ID,
		Subject:   p.Subject,
		Role:      p.Role,
		Issuer:    p.Issuer,
		IssuedAt:  timeFromUnix(p.IssuedAt),
		ExpiresAt: timeFromUnix(p.ExpiresAt),
		NotBefore: timeFromUnix(p.NotBefore),
	}
}

func encodeSegment(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

func decodeSegment(segment string, dest any) error {
	data, err := base64.RawURLEncoding.DecodeString(segment)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func timeFromUnix(v int64) time.Time {
	if v == 0 {
		return time.Time{}
	}
	return time.Unix(v, 0).UTC()
}

func randomID() (string, error) {
	buf := make([]byte, 18)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
