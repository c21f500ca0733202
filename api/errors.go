package api

import (
	"context"
	"errors"

	"github.com/adeilh/digitally/advisor"
	"github.com/adeilh/digitally/auth"
	"github.com/adeilh/digitally/httpx"
	"github.com/adeilh/digitally/leads"
	"github.com/adeilh/digitally/payments"
	"github.com/adeilh/digitally/queue"
	"github.com/adeilh/digitally/resumes"
	"github.com/adeilh/digitally/users"
)

const msgAIUnavailable = "AI service temporarily unavailable. Please try again later."

var statusByError = []struct {
	err  error
	code int
	msg  string
}{
	{leads.ErrInvalidLead, httpx.StatusBadRequest, "Name, email, and message are required"},
	{leads.ErrInvalidStatus, httpx.StatusBadRequest, "Invalid status"},
	{leads.ErrNotFound, httpx.StatusNotFound, "Lead not found"},

	{users.ErrInvalidEmail, httpx.StatusBadRequest, "Please add a valid email"},
	{users.ErrEmailInUse, httpx.StatusBadRequest, "User already exists"},
	{users.ErrNotFound, httpx.StatusNotFound, "User not found"},

	{resumes.ErrNoFile, httpx.StatusBadRequest, "No file uploaded"},
	{resumes.ErrFileType, httpx.StatusBadRequest, "Error: Resumes Only (PDF/DOC)!"},
	{resumes.ErrFileTooLarge, httpx.StatusRequestEntityTooLarge, "File too large (max 5MB)"},
	{resumes.ErrNotFound, httpx.StatusNotFound, "Resume not found"},
	{resumes.ErrNotAuthorized, httpx.StatusUnauthorized, "User not authorized"},
	{resumes.ErrNoCredits, httpx.StatusForbidden, "No credits remaining. Please upgrade."},
	{resumes.ErrAnalysisUnparseable, httpx.StatusInternalError, "Could not categorize analysis result"},
	{resumes.ErrAIUnavailable, httpx.StatusServiceUnavailable, msgAIUnavailable},

	{advisor.ErrUnavailable, httpx.StatusServiceUnavailable, msgAIUnavailable},
	{queue.ErrQueueFull, httpx.StatusServiceUnavailable, "AI queue is full. Please retry shortly."},

	{payments.ErrInvalidPlan, httpx.StatusBadRequest, "Invalid Plan"},
	{payments.ErrProvider, httpx.StatusBadGateway, "Payment initiation failed"},

	{auth.ErrInvalidCredentials, httpx.StatusUnauthorized, "Invalid ID or password"},
	{context.DeadlineExceeded, httpx.StatusGatewayTimeout, "Request timed out"},
}

// toHTTP maps service errors onto status codes and client-facing messages.
// Anything unknown is passed through to the server's error handler, which
// logs it and answers 500.
func toHTTP(err error) error {
	for _, e := range statusByError {
		if errors.Is(err, e.err) {
			return httpx.HTTPError(e.code, e.msg)
		}
	}
	return err
}
