package leads

import (
	"context"
	"net/mail"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ContactRequest is the public contact form.
type ContactRequest struct {
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Service  string    `json:"service"`
	Budget   string    `json:"budget"`
	Message  string    `json:"message"`
	Location *Location `json:"location,omitempty"`
}

// Service handles contact capture and the admin lead workflow.
type Service struct {
	store   Store
	alerter Alerter
	log     *zap.Logger
	wg      sync.WaitGroup
}

func NewService(store Store, alerter Alerter, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, alerter: alerter, log: log}
}

// Contact validates and stores a contact request, then alerts in the background.
func (s *Service) Contact(ctx context.Context, req ContactRequest) (Lead, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Message = strings.TrimSpace(req.Message)
	if req.Name == "" || req.Email == "" || req.Message == "" {
		return Lead{}, ErrInvalidLead
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return Lead{}, ErrInvalidLead
	}

	lead, err := s.store.Create(ctx, Lead{
		Name:     req.Name,
		Email:    req.Email,
		Service:  strings.TrimSpace(req.Service),
		Budget:   strings.TrimSpace(req.Budget),
		Message:  req.Message,
		Type:     TypeContact,
		Location: req.Location,
		Status:   StatusNew,
	})
	if err != nil {
		return Lead{}, err
	}
	s.alert(ctx, lead)
	return lead, nil
}

func (s *Service) List(ctx context.Context, f Filter) ([]Lead, error) {
	return s.store.List(ctx, f)
}

func (s *Service) UpdateStatus(ctx context.Context, id string, status Status) (Lead, error) {
	if !status.Valid() {
		return Lead{}, ErrInvalidStatus
	}
	return s.store.UpdateStatus(ctx, id, status)
}

// Stats returns dashboard totals with the five newest leads.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	return s.store.Stats(ctx, 5)
}

// Wait blocks until background alerts have finished.
func (s *Service) Wait() { s.wg.Wait() }

func (s *Service) alert(ctx context.Context, lead Lead) {
	if s.alerter == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		s.alerter.LeadCaptured(actx, lead)
	}()
}
