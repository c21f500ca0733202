package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/adeilh/digitally/httpx"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Source tells which path produced a Reply.
type Source string

const (
	SourceLive        Source = "live"
	SourceMock        Source = "mock"
	SourceUnavailable Source = "unavailable"
)

// Reply is the raw text produced for one Call.
type Reply struct {
	Content string
	Source  Source
}

// Degraded reports whether the reply is a stand-in rather than model output.
func (r Reply) Degraded() bool { return r.Source == SourceUnavailable }

// ServiceError is any upstream failure other than the soft-unavailable codes.
// Status is zero for transport failures.
type ServiceError struct {
	Status  int
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("llm: ai service failed: %d %s", e.Status, e.Message)
	}
	return "llm: ai service failed: " + e.Message
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Completer is the single call surface consumers depend on.
type Completer interface {
	Call(ctx context.Context, prompt, system string, opts ...CallOption) (Reply, error)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Gateway sends chat-completion requests to an OpenRouter compatible API.
// It performs no retries; callers decide how to degrade.
type Gateway struct {
	client *httpx.Client
	opts   Options
	log    *zap.Logger

	calls    atomic.Int64
	failures atomic.Int64
	soft     atomic.Int64
}

// GatewayStats counts gateway outcomes since start.
type GatewayStats struct {
	Calls       int64 `json:"calls"`
	Errors      int64 `json:"errors"`
	Unavailable int64 `json:"unavailable"`
	Mock        bool  `json:"mock"`
}

func NewGateway(opts ...Option) *Gateway {
	cfg := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	client := httpx.NewClient(
		httpx.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/")),
		httpx.WithClientTimeout(cfg.Timeout),
		httpx.WithHeaders(map[string]string{
			"Content-Type": "application/json",
			"HTTP-Referer": cfg.Referer,
			"X-Title":      cfg.Title,
		}),
	)
	return &Gateway{client: client, opts: cfg, log: cfg.Logger}
}

// Mock reports whether calls short-circuit to the canned payload.
func (g *Gateway) Mock() bool {
	key := strings.TrimSpace(g.opts.APIKey)
	if key == "" {
		return true
	}
	return g.opts.TestKeyPrefix != "" && strings.HasPrefix(key, g.opts.TestKeyPrefix)
}

// Call sends system and prompt as a two-message conversation and returns the
// first choice's content.
func (g *Gateway) Call(ctx context.Context, prompt, system string, opts ...CallOption) (Reply, error) {
	co := callOptions{model: g.opts.Model, mock: MockPayload, unavailable: UnavailablePayload}
	for _, opt := range opts {
		if opt != nil {
			opt(&co)
		}
	}

	if g.Mock() {
		g.log.Warn("llm: api key missing or placeholder, serving mock response")
		return Reply{Content: co.mock, Source: SourceMock}, nil
	}

	g.calls.Add(1)
	req := chatRequest{
		Model: co.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
	}
	if !co.plainText {
		req.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	var out chatResponse
	resp, err := g.client.Post(ctx, "/chat/completions", req, &out, httpx.WithBearer(g.opts.APIKey))
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode()
		}
		switch status {
		case http.StatusUnauthorized, http.StatusPaymentRequired, http.StatusTooManyRequests:
			g.soft.Add(1)
			g.log.Warn("llm: provider unavailable, serving soft payload", zap.Int("status", status))
			return Reply{Content: co.unavailable, Source: SourceUnavailable}, nil
		}
		g.failures.Add(1)
		se := &ServiceError{Status: status, Message: upstreamMessage(resp, err), Err: err}
		if ctxErr := ctx.Err(); ctxErr != nil {
			se.Err = errors.Join(err, ctxErr)
		}
		g.log.Error("llm: call failed", zap.Int("status", status), zap.String("message", se.Message))
		return Reply{}, se
	}

	if len(out.Choices) == 0 {
		g.failures.Add(1)
		return Reply{}, &ServiceError{Status: resp.StatusCode(), Message: "response has no choices"}
	}
	return Reply{Content: out.Choices[0].Message.Content, Source: SourceLive}, nil
}

// Stats returns call counters.
func (g *Gateway) Stats() GatewayStats {
	return GatewayStats{
		Calls:       g.calls.Load(),
		Errors:      g.failures.Load(),
		Unavailable: g.soft.Load(),
		Mock:        g.Mock(),
	}
}

func upstreamMessage(resp *resty.Response, err error) string {
	if resp != nil {
		var er errorResponse
		if body := resp.Body(); len(body) > 0 && json.Unmarshal(body, &er) == nil && er.Error.Message != "" {
			return er.Error.Message
		}
	}
	return err.Error()
}
