package api

import (
	"errors"
	"strings"

	"github.com/adeilh/digitally/advisor"
	"github.com/adeilh/digitally/httpx"
	"go.uber.org/zap"
)

type chatRequest struct {
	Message string         `json:"message"`
	History []advisor.Turn `json:"history"`
}

func (h *Handler) chat(c httpx.Context) error {
	var req chatRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	res, err := h.d.Advisor.Chat(c.Request().Context(), req.Message, req.History)
	if errors.Is(err, advisor.ErrMissingMessage) {
		return httpx.HTTPError(httpx.StatusBadRequest, "Message required")
	}
	if err != nil {
		return toHTTP(err)
	}
	return respond(c, res)
}

func (h *Handler) roast(c httpx.Context) error {
	var req struct {
		URL string `json:"url"`
	}
	if err := bind(c, &req); err != nil {
		return err
	}
	if strings.TrimSpace(req.URL) == "" {
		return httpx.HTTPError(httpx.StatusBadRequest, map[string]string{"error": "URL is required"})
	}
	res, err := h.d.Advisor.Roast(c.Request().Context(), req.URL)
	if errors.Is(err, advisor.ErrInvalidURL) {
		return httpx.HTTPError(httpx.StatusBadRequest, map[string]string{"error": "A valid website URL is required"})
	}
	if err != nil {
		return toHTTP(err)
	}
	return respond(c, res)
}

func (h *Handler) qualify(c httpx.Context) error {
	var in advisor.LeadInfo
	if err := bind(c, &in); err != nil {
		return err
	}
	res, err := h.d.Advisor.Qualify(c.Request().Context(), in)
	if errors.Is(err, advisor.ErrMissingBusiness) {
		return httpx.HTTPError(httpx.StatusBadRequest, "Business type is required")
	}
	if err != nil {
		return toHTTP(err)
	}
	return respond(c, res)
}

func (h *Handler) generateResponse(c httpx.Context) error {
	var f advisor.Feedback
	if err := bind(c, &f); err != nil {
		return err
	}
	return respond(c, h.d.Advisor.RespondToFeedback(c.Request().Context(), f))
}

func (h *Handler) consult(c httpx.Context) error {
	var req struct {
		Message string `json:"message"`
	}
	if err := bind(c, &req); err != nil {
		return err
	}
	reply, err := h.d.Advisor.Consult(c.Request().Context(), req.Message)
	if err != nil {
		return h.toolError(err, "consultant", "Message required", "Chat failed")
	}
	return c.JSON(httpx.StatusOK, map[string]string{"reply": reply})
}

func (h *Handler) content(c httpx.Context) error {
	var req struct {
		Topic string `json:"topic"`
	}
	if err := bind(c, &req); err != nil {
		return err
	}
	payload, err := h.d.Advisor.GenerateContent(c.Request().Context(), req.Topic)
	if err != nil {
		return h.toolError(err, "content", "Topic required", "Content generation failed")
	}
	return c.JSONBlob(httpx.StatusOK, payload)
}

func (h *Handler) rewrite(c httpx.Context) error {
	var req struct {
		Bullet string `json:"bullet"`
	}
	if err := bind(c, &req); err != nil {
		return err
	}
	payload, err := h.d.Advisor.RewriteBullet(c.Request().Context(), req.Bullet)
	if err != nil {
		return h.toolError(err, "rewrite", "Bullet point required", "Rewrite failed")
	}
	return c.JSONBlob(httpx.StatusOK, payload)
}

// toolError maps failures of the career tools, which have no fallback
// payload: missing input is a 400, provider trouble a 503 and anything
// else a 502 carrying failed.
func (h *Handler) toolError(err error, tool, missing, failed string) error {
	switch {
	case errors.Is(err, advisor.ErrMissingMessage),
		errors.Is(err, advisor.ErrMissingTopic),
		errors.Is(err, advisor.ErrMissingBullet):
		return httpx.HTTPError(httpx.StatusBadRequest, missing)
	case errors.Is(err, advisor.ErrUnavailable):
		return toHTTP(err)
	}
	h.log.Error("api: career tool failed", zap.String("tool", tool), zap.Error(err))
	return httpx.HTTPError(httpx.StatusBadGateway, failed)
}
