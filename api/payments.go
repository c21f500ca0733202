package api

import (
	"errors"
	"io"

	"github.com/adeilh/digitally/auth"
	"github.com/adeilh/digitally/httpx"
	"github.com/adeilh/digitally/payments"
	"go.uber.org/zap"
)

// SignatureHeader carries Razorpay's webhook signature.
const SignatureHeader = "x-razorpay-signature"

func (h *Handler) subscribe(c httpx.Context) error {
	var req struct {
		PlanID string `json:"planId"`
	}
	if err := bind(c, &req); err != nil {
		return err
	}
	order, err := h.d.Payments.CreateOrder(c.Request().Context(), auth.UserID(c), req.PlanID)
	if err != nil {
		return toHTTP(err)
	}
	return c.JSON(httpx.StatusOK, order)
}

// webhook verifies the signature over the exact bytes received.
func (h *Handler) webhook(c httpx.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return httpx.HTTPError(httpx.StatusBadRequest, map[string]string{"status": "unreadable_body"})
	}
	err = h.d.Payments.HandleWebhook(c.Request().Context(), body, c.Request().Header.Get(SignatureHeader))
	switch {
	case err == nil:
		return c.JSON(httpx.StatusOK, map[string]string{"status": "ok"})
	case errors.Is(err, payments.ErrInvalidSignature):
		return c.JSON(httpx.StatusBadRequest, map[string]string{"status": "invalid_signature"})
	case errors.Is(err, payments.ErrInvalidEvent):
		return c.JSON(httpx.StatusBadRequest, map[string]string{"status": "invalid_event"})
	}
	h.log.Error("api: webhook failed", zap.Error(err))
	return c.JSON(httpx.StatusInternalError, map[string]string{"status": "error"})
}
