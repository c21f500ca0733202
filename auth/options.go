package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

var (
	ErrTokenNotFound     = errors.New("auth: token not found")
	ErrTokenInvalidInput = errors.New("auth: invalid token source")
)

// Options configures a Signer.
type Options struct {
	Algorithm string
	Issuer    string
	Leeway    time.Duration
	// RevokeFor is how long a revoked token id is remembered. It should cover
	// the longest token lifetime.
	RevokeFor time.Duration
	Now       func() time.Time
}

type Option func(*Options)

func defaultOptions() Options {
	return Options{
		Algorithm: "HS256",
		Issuer:    "digitally",
		Leeway:    30 * time.Second,
		RevokeFor: 30 * 24 * time.Hour,
		Now:       time.Now,
	}
}

func WithAlgorithm(alg string) Option {
	return func(o *Options) {
		if alg != "" {
			o.Algorithm = alg
		}
	}
}

// WithIssuer sets the issuer stamped on new tokens and required on parsed ones.
func WithIssuer(issuer string) Option {
	return func(o *Options) {
		o.Issuer = strings.TrimSpace(issuer)
	}
}

func WithLeeway(d time.Duration) Option {
	return func(o *Options) {
		if d < 0 {
			d = 0
		}
		o.Leeway = d
	}
}

func WithRevokeFor(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.RevokeFor = d
		}
	}
}

// WithClock allows injecting a deterministic clock (useful for tests).
func WithClock(now func() time.Time) Option {
	return func(o *Options) {
		if now != nil {
			o.Now = now
		}
	}
}

// TokenExtractor pulls a raw token out of a request.
type TokenExtractor func(echo.Context) (string, error)

// BearerToken reads "Authorization: Bearer <token>".
func BearerToken() TokenExtractor {
	return func(c echo.Context) (string, error) {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		if header == "" {
			return "", ErrTokenNotFound
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return "", ErrTokenInvalidInput
		}
		token := strings.TrimSpace(parts[1])
		if token == "" {
			return "", ErrTokenInvalidInput
		}
		return token, nil
	}
}

// HeaderToken reads the whole value of header as the token.
func HeaderToken(header string) TokenExtractor {
	return func(c echo.Context) (string, error) {
		token := strings.TrimSpace(c.Request().Header.Get(header))
		if token == "" {
			return "", ErrTokenNotFound
		}
		return token, nil
	}
}

// ChainExtractors tries each extractor in turn.
func ChainExtractors(extractors ...TokenExtractor) TokenExtractor {
	copied := append([]TokenExtractor(nil), extractors...)
	return func(c echo.Context) (string, error) {
		var lastErr error = ErrTokenNotFound
		for _, extractor := range copied {
			if extractor == nil {
				continue
			}
			token, err := extractor(c)
			if err == nil {
				return token, nil
			}
			lastErr = err
		}
		return "", lastErr
	}
}
