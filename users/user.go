package users

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("users: user not found")
	ErrEmailInUse   = errors.New("users: email already registered")
	ErrInvalidEmail = errors.New("users: invalid email")
	ErrUnknownPlan  = errors.New("users: unknown plan")
	ErrNoCredits    = errors.New("users: no credits remaining")
)

// Plan is the billing tier of an account.
type Plan string

const (
	PlanFree    Plan = "free"
	PlanPro     Plan = "pro"
	PlanOneTime Plan = "one_time"
)

const (
	// SignupCredits is granted to every new free account.
	SignupCredits = 1
	// ProCredits is effectively unlimited analyses.
	ProCredits = 9999
	// PassCredits is added by each one-time pass.
	PassCredits = 5
)

// User is an account identified by email only.
type User struct {
	ID                 string    `json:"id"`
	Email              string    `json:"email"`
	Verified           bool      `json:"isVerified"`
	Plan               Plan      `json:"plan"`
	Credits            int       `json:"credits"`
	SubscriptionID     string    `json:"subscriptionId,omitempty"`
	SubscriptionStatus string    `json:"subscriptionStatus,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// CanAnalyze reports whether the user may run a paid analysis.
func (u User) CanAnalyze() bool {
	return u.Plan != PlanFree || u.Credits > 0
}

// Store persists users.
type Store interface {
	Create(ctx context.Context, u User) (User, error)
	GetByID(ctx context.Context, id string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	Update(ctx context.Context, u User) (User, error)
	// AdjustCredits adds delta to the stored balance atomically.
	AdjustCredits(ctx context.Context, id string, delta int) (User, error)
	// SpendCredit takes one credit while the balance is positive and
	// returns ErrNoCredits otherwise.
	SpendCredit(ctx context.Context, id string) (User, error)
}

// TokenIssuer mints bearer tokens for signed-in users.
type TokenIssuer interface {
	IssueUserToken(ctx context.Context, userID string) (string, error)
}
