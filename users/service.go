package users

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
)

// Session is returned by Register and Login.
type Session struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

// Service implements email-only sign up and sign in plus plan changes.
type Service struct {
	store  Store
	tokens TokenIssuer
}

func NewService(store Store, tokens TokenIssuer) *Service {
	return &Service{store: store, tokens: tokens}
}

// Register creates a verified free account with the signup credit.
func (s *Service) Register(ctx context.Context, email string) (Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return Session{}, err
	}
	if _, err := s.store.GetByEmail(ctx, email); err == nil {
		return Session{}, ErrEmailInUse
	} else if !errors.Is(err, ErrNotFound) {
		return Session{}, err
	}

	u, err := s.store.Create(ctx, User{
		Email:    email,
		Verified: true,
		Plan:     PlanFree,
		Credits:  SignupCredits,
	})
	if err != nil {
		return Session{}, err
	}
	return s.session(ctx, u)
}

// Login signs in an existing account.
func (s *Service) Login(ctx context.Context, email string) (Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return Session{}, err
	}
	u, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		return Session{}, err
	}
	return s.session(ctx, u)
}

func (s *Service) Get(ctx context.Context, id string) (User, error) {
	return s.store.GetByID(ctx, id)
}

// Debit consumes one credit from a free account; other plans are untouched.
// A free account with no credits left gets ErrNoCredits.
func (s *Service) Debit(ctx context.Context, id string) (User, error) {
	u, err := s.store.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if u.Plan != PlanFree {
		return u, nil
	}
	if !u.CanAnalyze() {
		return User{}, ErrNoCredits
	}
	return s.store.SpendCredit(ctx, id)
}

// Refund returns a credit taken by Debit.
func (s *Service) Refund(ctx context.Context, id string) (User, error) {
	return s.store.AdjustCredits(ctx, id, 1)
}

// ApplyPlan records a captured payment for plan.
func (s *Service) ApplyPlan(ctx context.Context, id string, plan Plan, paymentID string) (User, error) {
	u, err := s.store.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	switch plan {
	case PlanPro:
		u.Plan = PlanPro
		u.Credits = ProCredits
		u.SubscriptionStatus = "active"
		if paymentID != "" {
			u.SubscriptionID = paymentID
		}
		return s.store.Update(ctx, u)
	case PlanOneTime:
		// a pass tops up credits without changing the plan
		return s.store.AdjustCredits(ctx, id, PassCredits)
	default:
		return User{}, fmt.Errorf("%w: %q", ErrUnknownPlan, plan)
	}
}

func (s *Service) session(ctx context.Context, u User) (Session, error) {
	token, err := s.tokens.IssueUserToken(ctx, u.ID)
	if err != nil {
		return Session{}, fmt.Errorf("users: issue token: %w", err)
	}
	return Session{User: u, Token: token}, nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}
