// Package api mounts the agency's HTTP surface on an httpx.App.
package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/adeilh/digitally/advisor"
	"github.com/adeilh/digitally/auth"
	"github.com/adeilh/digitally/cache"
	"github.com/adeilh/digitally/config"
	"github.com/adeilh/digitally/httpx"
	"github.com/adeilh/digitally/leads"
	"github.com/adeilh/digitally/llm"
	"github.com/adeilh/digitally/payments"
	"github.com/adeilh/digitally/queue"
	"github.com/adeilh/digitally/resumes"
	"github.com/adeilh/digitally/users"
	"go.uber.org/zap"
)

// SourceHeader names the tier that produced an AI tool response.
const SourceHeader = "X-Result-Source"

const (
	msgTooManyRequests = "Too many requests, please try again later."
	msgAILimit         = "AI request limit reached. Please try again in 15 minutes."
	msgStrictLimit     = "Rate limit exceeded. Please try again in an hour."
)

// Deps are the services behind the routes. Queue, Cache, Gateway and Log
// are optional and only feed the admin metrics.
type Deps struct {
	Leads    *leads.Service
	Users    *users.Service
	Resumes  *resumes.Service
	Advisor  *advisor.Service
	Payments *payments.Service
	Admin    *auth.Admin
	Guard    *auth.Guard
	Limits   config.RateLimitConfig

	Queue   *queue.Queue
	Cache   *cache.TTL[json.RawMessage]
	Gateway *llm.Gateway
	Log     *zap.Logger
}

// Handler serves the JSON API.
type Handler struct {
	d   Deps
	log *zap.Logger
}

func New(d Deps) *Handler {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{d: d, log: log}
}

// Register mounts every route on a. It is an httpx.RouteRegistrar.
func (h *Handler) Register(a *httpx.App) {
	a.GET("/health", httpx.Health)
	// webhooks are exempt from the per-IP budget
	a.POST("/api/payments/webhook", h.webhook)

	aiLimit := limit(h.d.Limits.AI, msgAILimit)
	guard := h.d.Guard

	root := a.Group("/api", limit(h.d.Limits.API, msgTooManyRequests))

	root.Group("/ai", aiLimit).
		POST("/chat", h.chat).
		POST("/roast-website", h.roast).
		POST("/qualify-lead", h.qualify).
		POST("/generate-response", h.generateResponse)

	root.Group("/chat", aiLimit).
		POST("/consultant", h.consult, guard.Protect()).
		POST("/content", h.content, guard.Protect()).
		POST("/rewrite", h.rewrite, guard.OptionalProtect())

	root.Group("/resumes", guard.OptionalProtect()).
		POST("", h.uploadResume).
		GET("", h.listResumes).
		GET("/:id", h.getResume).
		POST("/:id/analyze", h.analyzeResume, aiLimit)

	root.Group("/users").
		POST("", h.register).
		POST("/login", h.login).
		GET("/me", h.me, guard.Protect())

	root.POST("/contact", h.contact)

	root.Group("/payments").
		POST("/subscribe", h.subscribe, guard.Protect())

	root.POST("/admin/login", h.adminLogin, limit(h.d.Limits.Strict, msgStrictLimit))
	root.Group("/admin", guard.AdminOnly()).
		POST("/logout", h.adminLogout).
		GET("/leads", h.listLeads).
		PATCH("/leads/:id", h.updateLead).
		GET("/stats", h.stats).
		GET("/metrics", h.metrics)
}

func limit(l config.Limit, message string) httpx.MiddlewareFunc {
	return httpx.RateLimit(l.Requests, l.Window, message)
}

// respond writes an AI tool result. Degraded results are still 200; the
// producing tier travels in SourceHeader.
func respond(c httpx.Context, r advisor.Result) error {
	c.Response().Header().Set(SourceHeader, string(r.Source))
	return c.JSONBlob(http.StatusOK, r.Payload)
}

// bind decodes the request body, reporting malformed JSON as a 400.
func bind(c httpx.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return httpx.HTTPError(httpx.StatusBadRequest, "Invalid request body")
	}
	return nil
}

func splitIDs(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return strings.Split(raw, ",")
}
