package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/adeilh/digitally/store/memory"
	"github.com/adeilh/digitally/users"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	tokens *Tokens
	users  *users.Service
	guard  *Guard
	admin  *Admin
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	s, _ := newSigner(t)
	tokens := NewTokens(s, 0, 0)
	svc := users.NewService(memory.NewUsers(), tokens)
	admin, err := NewAdmin("admin", "hunter2", "", tokens)
	require.NoError(t, err)
	return fixture{tokens: tokens, users: svc, guard: NewGuard(tokens, svc), admin: admin}
}

// serve runs one request through mw and reports the status, the echo error
// message and the user id the handler saw.
func serve(t *testing.T, mw echo.MiddlewareFunc, header, value string) (int, string, string) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(header, value)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seen string
	err := mw(func(c echo.Context) error {
		seen = UserID(c)
		return c.NoContent(http.StatusNoContent)
	})(c)
	if err != nil {
		he, ok := err.(*echo.HTTPError)
		require.True(t, ok, "unexpected error %v", err)
		return he.Code, he.Message.(string), seen
	}
	return rec.Code, "", seen
}

func TestProtect(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess, err := f.users.Register(ctx, "jane@example.com")
	require.NoError(t, err)
	ghost, err := f.tokens.IssueUserToken(ctx, "no-such-user")
	require.NoError(t, err)
	adminTok, err := f.admin.Login(ctx, "admin", "hunter2")
	require.NoError(t, err)

	tests := map[string]struct {
		header, value string
		code          int
		msg           string
	}{
		"valid":        {"Authorization", "Bearer " + sess.Token, http.StatusNoContent, ""},
		"missing":      {"", "", http.StatusUnauthorized, msgNoToken},
		"not bearer":   {"Authorization", "Basic abc", http.StatusUnauthorized, msgNoToken},
		"garbage":      {"Authorization", "Bearer nope", http.StatusUnauthorized, msgTokenFailed},
		"admin token":  {"Authorization", "Bearer " + adminTok, http.StatusUnauthorized, msgTokenFailed},
		"unknown user": {"Authorization", "Bearer " + ghost, http.StatusUnauthorized, msgUserNotFound},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			code, msg, seen := serve(t, f.guard.Protect(), tt.header, tt.value)
			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.msg, msg)
			if tt.code == http.StatusNoContent {
				assert.Equal(t, sess.User.ID, seen)
			}
		})
	}
}

func TestOptionalProtect(t *testing.T) {
	f := newFixture(t)
	sess, err := f.users.Register(context.Background(), "sam@example.com")
	require.NoError(t, err)

	code, _, seen := serve(t, f.guard.OptionalProtect(), "Authorization", "Bearer "+sess.Token)
	assert.Equal(t, http.StatusNoContent, code)
	assert.Equal(t, sess.User.ID, seen)

	code, _, seen = serve(t, f.guard.OptionalProtect(), "Authorization", "Bearer broken")
	assert.Equal(t, http.StatusNoContent, code)
	assert.Empty(t, seen)

	code, _, seen = serve(t, f.guard.OptionalProtect(), "", "")
	assert.Equal(t, http.StatusNoContent, code)
	assert.Empty(t, seen)
}

func TestAdminOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	adminTok, err := f.admin.Login(ctx, "admin", "hunter2")
	require.NoError(t, err)
	userTok, err := f.tokens.IssueUserToken(ctx, "u1")
	require.NoError(t, err)

	code, _, _ := serve(t, f.guard.AdminOnly(), AdminHeader, adminTok)
	assert.Equal(t, http.StatusNoContent, code)

	for _, raw := range []string{"", "junk", userTok} {
		code, msg, _ := serve(t, f.guard.AdminOnly(), AdminHeader, raw)
		assert.Equal(t, http.StatusUnauthorized, code)
		assert.Equal(t, msgNotAdmin, msg)
	}

	require.NoError(t, f.admin.Logout(ctx, adminTok))
	code, _, _ = serve(t, f.guard.AdminOnly(), AdminHeader, adminTok)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestAdminLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.admin.Login(ctx, "admin", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.admin.Login(ctx, "root", "hunter2")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	tok, err := f.admin.Login(ctx, " admin ", "hunter2")
	require.NoError(t, err)
	_, err = f.tokens.ParseRole(ctx, tok, RoleAdmin)
	assert.NoError(t, err)

	_, err = NewAdmin("admin", "", "not-a-bcrypt-hash", f.tokens)
	assert.Error(t, err)
	_, err = NewAdmin("", "pw", "", f.tokens)
	assert.Error(t, err)
}

func TestExtractors(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(AdminHeader, "  abc ")
	c := e.NewContext(req, httptest.NewRecorder())

	_, err := BearerToken()(c)
	assert.ErrorIs(t, err, ErrTokenNotFound)

	tok, err := ChainExtractors(nil, BearerToken(), HeaderToken(AdminHeader))(c)
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	req.Header.Set("Authorization", "Bearer   ")
	_, err = BearerToken()(c)
	assert.ErrorIs(t, err, ErrTokenInvalidInput)
}
