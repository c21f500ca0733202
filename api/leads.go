package api

import (
	"errors"
	"strconv"

	"github.com/adeilh/digitally/advisor"
	"github.com/adeilh/digitally/auth"
	"github.com/adeilh/digitally/cache"
	"github.com/adeilh/digitally/httpx"
	"github.com/adeilh/digitally/leads"
	"github.com/adeilh/digitally/llm"
	"github.com/adeilh/digitally/queue"
	"go.uber.org/zap"
)

func (h *Handler) contact(c httpx.Context) error {
	var req leads.ContactRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	_, err := h.d.Leads.Contact(c.Request().Context(), req)
	if errors.Is(err, leads.ErrInvalidLead) {
		return toHTTP(err)
	}
	if err != nil {
		h.log.Error("api: store contact lead", zap.Error(err))
		return httpx.HTTPError(httpx.StatusInternalError, "Failed to send email. Please try again later.")
	}
	return c.JSON(httpx.StatusOK, map[string]string{"message": "Lead received successfully!"})
}

func (h *Handler) adminLogin(c httpx.Context) error {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := bind(c, &req); err != nil {
		return err
	}
	token, err := h.d.Admin.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return toHTTP(err)
	}
	return c.JSON(httpx.StatusOK, map[string]string{"token": token})
}

func (h *Handler) adminLogout(c httpx.Context) error {
	raw := c.Request().Header.Get(auth.AdminHeader)
	if err := h.d.Admin.Logout(c.Request().Context(), raw); err != nil {
		return httpx.HTTPError(httpx.StatusUnauthorized, "Not authorized as admin")
	}
	return c.NoContent(httpx.StatusNoContent)
}

func (h *Handler) listLeads(c httpx.Context) error {
	f := leads.Filter{
		Type:   leads.Type(c.QueryParam("type")),
		Status: leads.Status(c.QueryParam("status")),
	}
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return httpx.HTTPError(httpx.StatusBadRequest, "limit must be a non-negative integer")
		}
		f.Limit = n
	}
	list, err := h.d.Leads.List(c.Request().Context(), f)
	if err != nil {
		return toHTTP(err)
	}
	return c.JSON(httpx.StatusOK, list)
}

func (h *Handler) updateLead(c httpx.Context) error {
	var req struct {
		Status leads.Status `json:"status"`
	}
	if err := bind(c, &req); err != nil {
		return err
	}
	lead, err := h.d.Leads.UpdateStatus(c.Request().Context(), c.Param("id"), req.Status)
	if err != nil {
		return toHTTP(err)
	}
	return c.JSON(httpx.StatusOK, lead)
}

func (h *Handler) stats(c httpx.Context) error {
	st, err := h.d.Leads.Stats(c.Request().Context())
	if err != nil {
		return toHTTP(err)
	}
	return c.JSON(httpx.StatusOK, st)
}

// metricsResponse is the runtime snapshot shown on the admin dashboard.
type metricsResponse struct {
	Queue   *queue.Stats      `json:"queue,omitempty"`
	Cache   *cache.Stats      `json:"cache,omitempty"`
	Gateway *llm.GatewayStats `json:"gateway,omitempty"`
	Advisor *advisor.Stats    `json:"advisor,omitempty"`
}

func (h *Handler) metrics(c httpx.Context) error {
	var m metricsResponse
	if h.d.Queue != nil {
		st := h.d.Queue.Stats()
		m.Queue = &st
	}
	if h.d.Cache != nil {
		st := h.d.Cache.Stats()
		m.Cache = &st
	}
	if h.d.Gateway != nil {
		st := h.d.Gateway.Stats()
		m.Gateway = &st
	}
	if h.d.Advisor != nil {
		st := h.d.Advisor.Stats()
		m.Advisor = &st
	}
	return c.JSON(httpx.StatusOK, m)
}
