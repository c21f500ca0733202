package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/adeilh/digitally/users"
	"github.com/labstack/echo/v4"
)

// AdminHeader carries the admin token.
const AdminHeader = "x-admin-auth"

const (
	msgNoToken      = "Not authorized, no token"
	msgTokenFailed  = "Not authorized, token failed"
	msgUserNotFound = "Not authorized, user not found"
	msgNotAdmin     = "Not authorized as admin"
)

const userContextKey = "auth.user"

// UserLookup loads the account a token points at.
type UserLookup interface {
	Get(ctx context.Context, id string) (users.User, error)
}

// Guard builds route middleware from a token service.
type Guard struct {
	tokens    *Tokens
	lookup    UserLookup
	extractor TokenExtractor
}

func NewGuard(tokens *Tokens, lookup UserLookup) *Guard {
	return &Guard{tokens: tokens, lookup: lookup, extractor: BearerToken()}
}

// Protect requires a valid user token and stores the user on the context.
func (g *Guard) Protect() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, err := g.extractor(c)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, msgNoToken)
			}
			u, err := g.resolve(c.Request().Context(), raw)
			switch {
			case errors.Is(err, users.ErrNotFound):
				return echo.NewHTTPError(http.StatusUnauthorized, msgUserNotFound)
			case err != nil:
				return echo.NewHTTPError(http.StatusUnauthorized, msgTokenFailed)
			}
			c.Set(userContextKey, u)
			return next(c)
		}
	}
}

// OptionalProtect attaches the user when a valid token is present and
// otherwise lets the request through as a guest.
func (g *Guard) OptionalProtect() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if raw, err := g.extractor(c); err == nil {
				if u, err := g.resolve(c.Request().Context(), raw); err == nil {
					c.Set(userContextKey, u)
				}
			}
			return next(c)
		}
	}
}

// AdminOnly requires an admin token in the x-admin-auth header.
func (g *Guard) AdminOnly() echo.MiddlewareFunc {
	extract := HeaderToken(AdminHeader)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, err := extract(c)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, msgNotAdmin)
			}
			if _, err := g.tokens.ParseRole(c.Request().Context(), raw, RoleAdmin); err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, msgNotAdmin)
			}
			return next(c)
		}
	}
}

func (g *Guard) resolve(ctx context.Context, raw string) (users.User, error) {
	tok, err := g.tokens.ParseRole(ctx, raw, RoleUser)
	if err != nil {
		return users.User{}, err
	}
	return g.lookup.Get(ctx, tok.Claims.Subject)
}

// UserFromContext returns the signed-in user, if any.
func UserFromContext(c echo.Context) (users.User, bool) {
	u, ok := c.Get(userContextKey).(users.User)
	return u, ok
}

// UserID returns the signed-in user's id or "" for guests.
func UserID(c echo.Context) string {
	u, _ := UserFromContext(c)
	return u.ID
}
