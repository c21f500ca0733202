// Package payments creates Razorpay orders for paid plans and applies
// captured payments to user accounts.
package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/adeilh/digitally/cache"
	"github.com/adeilh/digitally/httpx"
	"github.com/adeilh/digitally/users"
	"go.uber.org/zap"
)

var (
	ErrInvalidPlan      = errors.New("payments: invalid plan")
	ErrInvalidSignature = errors.New("payments: invalid webhook signature")
	ErrInvalidEvent     = errors.New("payments: malformed webhook event")
	ErrProvider         = errors.New("payments: order creation failed")
)

// Plan is something a user can buy. Amount is in the smallest currency unit.
type Plan struct {
	ID     string
	Amount int64
	Grants users.Plan
}

const (
	PlanProMonthly  = "pro_monthly"
	PlanOneTimePass = "one_time_pass"
)

var plans = map[string]Plan{
	PlanProMonthly:  {ID: PlanProMonthly, Amount: 199900, Grants: users.PlanPro},
	PlanOneTimePass: {ID: PlanOneTimePass, Amount: 49900, Grants: users.PlanOneTime},
}

// LookupPlan returns the plan with id.
func LookupPlan(id string) (Plan, bool) {
	p, ok := plans[strings.TrimSpace(id)]
	return p, ok
}

// Order mirrors the Razorpay order resource.
type Order struct {
	ID        string         `json:"id"`
	Entity    string         `json:"entity,omitempty"`
	Amount    int64          `json:"amount"`
	Currency  string         `json:"currency"`
	Receipt   string         `json:"receipt,omitempty"`
	Status    string         `json:"status,omitempty"`
	Notes     map[string]any `json:"notes,omitempty"`
	CreatedAt int64          `json:"created_at,omitempty"`
}

// Upgrader applies a purchased plan to an account.
type Upgrader interface {
	ApplyPlan(ctx context.Context, userID string, plan users.Plan, paymentID string) (users.User, error)
}

// Options configures a Service.
type Options struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
	BaseURL       string
	Currency      string
	Timeout       time.Duration
	Now           func() time.Time
	Logger        *zap.Logger
}

type Option func(*Options)

func defaultOptions() Options {
	return Options{
		BaseURL:  "https://api.razorpay.com/v1",
		Currency: "INR",
		Timeout:  15 * time.Second,
		Now:      time.Now,
	}
}

// WithKeys sets the Razorpay API key pair. Without a key id orders are mocked.
func WithKeys(id, secret string) Option {
	return func(o *Options) {
		o.KeyID = strings.TrimSpace(id)
		o.KeySecret = secret
	}
}

func WithWebhookSecret(secret string) Option {
	return func(o *Options) { o.WebhookSecret = secret }
}

func WithBaseURL(url string) Option {
	return func(o *Options) {
		if url != "" {
			o.BaseURL = strings.TrimRight(url, "/")
		}
	}
}

func WithCurrency(c string) Option {
	return func(o *Options) {
		if c != "" {
			o.Currency = c
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *Options) {
		if now != nil {
			o.Now = now
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// Service talks to Razorpay.
type Service struct {
	opts     Options
	client   *httpx.Client
	upgrader Upgrader
	// applied remembers captured payment ids so webhook retries are no-ops.
	applied  *cache.TTL[struct{}]
	log      *zap.Logger
}

func NewService(upgrader Upgrader, opts ...Option) *Service {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	log := o.Logger
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{
		opts:     o,
		client:   httpx.NewClient(httpx.WithBaseURL(o.BaseURL), httpx.WithClientTimeout(o.Timeout)),
		upgrader: upgrader,
		applied:  cache.New[struct{}](cache.WithTTL(48*time.Hour), cache.WithClock(o.Now)),
		log:      log,
	}
	if s.Mock() {
		log.Warn("payments: razorpay keys missing, orders are mocked")
	}
	return s
}

// Mock reports whether orders are simulated.
func (s *Service) Mock() bool { return s.opts.KeyID == "" }

// CreateOrder opens an order for planID on behalf of userID.
func (s *Service) CreateOrder(ctx context.Context, userID, planID string) (Order, error) {
	plan, ok := LookupPlan(planID)
	if !ok {
		return Order{}, fmt.Errorf("%w: %q", ErrInvalidPlan, planID)
	}
	now := s.opts.Now().UnixMilli()
	if s.Mock() {
		return Order{
			ID:       fmt.Sprintf("order_mock_%d", now),
			Amount:   plan.Amount,
			Currency: s.opts.Currency,
			Notes:    map[string]any{"planId": plan.ID, "isMock": true},
		}, nil
	}

	req := map[string]any{
		"amount":   plan.Amount,
		"currency": s.opts.Currency,
		"receipt":  "rcpt_" + strconv.FormatInt(now, 10),
		"notes":    map[string]string{"userId": userID, "planId": plan.ID},
	}
	var order Order
	resp, err := s.client.Post(ctx, "/orders", req, &order, httpx.WithBasicAuth(s.opts.KeyID, s.opts.KeySecret))
	if err != nil {
		if resp != nil {
			s.log.Error("payments: razorpay rejected order",
				zap.Int("status", resp.StatusCode()),
				zap.String("description", providerError(resp.Body())))
			return Order{}, fmt.Errorf("%w: status %d", ErrProvider, resp.StatusCode())
		}
		return Order{}, fmt.Errorf("%w: %w", ErrProvider, err)
	}
	s.log.Info("payments: order created", zap.String("order", order.ID), zap.String("plan", plan.ID), zap.String("user", userID))
	return order, nil
}

type webhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID    string `json:"id"`
				Notes struct {
					UserID string `json:"userId"`
					PlanID string `json:"planId"`
				} `json:"notes"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// HandleWebhook verifies and applies a Razorpay webhook. Events that cannot
// be matched to a user are acknowledged and ignored.
func (s *Service) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if !s.validSignature(body, signature) {
		return ErrInvalidSignature
	}
	var ev webhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}
	if ev.Event != "payment.captured" {
		s.log.Debug("payments: webhook ignored", zap.String("event", ev.Event))
		return nil
	}

	entity := ev.Payload.Payment.Entity
	log := s.log.With(zap.String("payment", entity.ID), zap.String("user", entity.Notes.UserID), zap.String("plan", entity.Notes.PlanID))
	if entity.Notes.UserID == "" {
		log.Warn("payments: captured payment without user")
		return nil
	}
	plan, ok := LookupPlan(entity.Notes.PlanID)
	if !ok {
		log.Warn("payments: captured payment for unknown plan")
		return nil
	}
	if entity.ID != "" && s.applied.Has(entity.ID) {
		log.Info("payments: duplicate webhook ignored")
		return nil
	}
	if _, err := s.upgrader.ApplyPlan(ctx, entity.Notes.UserID, plan.Grants, entity.ID); err != nil {
		if errors.Is(err, users.ErrNotFound) {
			log.Warn("payments: captured payment for unknown user")
			return nil
		}
		return fmt.Errorf("payments: apply plan: %w", err)
	}
	if entity.ID != "" {
		s.applied.Set(entity.ID, struct{}{})
	}
	log.Info("payments: plan applied")
	return nil
}

func (s *Service) validSignature(body []byte, signature string) bool {
	if s.opts.WebhookSecret == "" || signature == "" {
		return false
	}
	want := Sign(s.opts.WebhookSecret, body)
	return hmac.Equal([]byte(want), []byte(strings.ToLower(strings.TrimSpace(signature))))
}

// Sign returns the hex HMAC-SHA256 Razorpay would send for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func providerError(body []byte) string {
	var e struct {
		Error struct {
			Description string `json:"description"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error.Description != "" {
		return e.Error.Description
	}
	return strings.TrimSpace(string(body))
}
