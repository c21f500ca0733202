package api

import (
	"errors"
	"strings"

	"github.com/adeilh/digitally/auth"
	"github.com/adeilh/digitally/httpx"
	"github.com/adeilh/digitally/users"
)

type emailRequest struct {
	Email string `json:"email"`
}

// sessionResponse keeps the field names the web client reads.
type sessionResponse struct {
	ID      string     `json:"_id"`
	Email   string     `json:"email"`
	Token   string     `json:"token"`
	Credits int        `json:"credits"`
	Plan    users.Plan `json:"plan"`
}

func newSessionResponse(s users.Session) sessionResponse {
	return sessionResponse{
		ID:      s.User.ID,
		Email:   s.User.Email,
		Token:   s.Token,
		Credits: s.User.Credits,
		Plan:    s.User.Plan,
	}
}

func (h *Handler) register(c httpx.Context) error {
	var req emailRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if strings.TrimSpace(req.Email) == "" {
		return httpx.HTTPError(httpx.StatusBadRequest, "Please add all fields")
	}
	s, err := h.d.Users.Register(c.Request().Context(), req.Email)
	if err != nil {
		return toHTTP(err)
	}
	return c.JSON(httpx.StatusCreated, newSessionResponse(s))
}

func (h *Handler) login(c httpx.Context) error {
	var req emailRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	s, err := h.d.Users.Login(c.Request().Context(), req.Email)
	if errors.Is(err, users.ErrNotFound) || errors.Is(err, users.ErrInvalidEmail) {
		return httpx.HTTPError(httpx.StatusBadRequest, "Invalid credentials")
	}
	if err != nil {
		return toHTTP(err)
	}
	return c.JSON(httpx.StatusOK, newSessionResponse(s))
}

func (h *Handler) me(c httpx.Context) error {
	u, ok := auth.UserFromContext(c)
	if !ok {
		return httpx.HTTPError(httpx.StatusUnauthorized, "Not authorized")
	}
	return c.JSON(httpx.StatusOK, map[string]any{
		"id":      u.ID,
		"email":   u.Email,
		"credits": u.Credits,
		"plan":    u.Plan,
	})
}
