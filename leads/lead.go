package leads

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("leads: lead not found")
	ErrInvalidStatus = errors.New("leads: invalid status")
	ErrInvalidLead   = errors.New("leads: name, email and message are required")
)

// Type classifies how a lead was captured.
type Type string

const (
	TypeContact Type = "contact"
	TypeRoast   Type = "roast"
	TypeQualify Type = "qualify"
)

// Status tracks the sales follow-up of a lead.
type Status string

const (
	StatusNew       Status = "new"
	StatusContacted Status = "contacted"
	StatusClosed    Status = "closed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusContacted, StatusClosed:
		return true
	}
	return false
}

// Location is the optional browser-reported position of a visitor.
type Location struct {
	Lat      float64 `json:"lat,omitempty"`
	Lng      float64 `json:"lng,omitempty"`
	Accuracy float64 `json:"accuracy,omitempty"`
	City     string  `json:"city,omitempty"`
	Country  string  `json:"country,omitempty"`
}

// Lead is a captured prospect, optionally carrying the AI payload produced for it.
type Lead struct {
	ID          string          `json:"id"`
	Name        string          `json:"name,omitempty"`
	Email       string          `json:"email,omitempty"`
	Service     string          `json:"service,omitempty"`
	Budget      string          `json:"budget,omitempty"`
	Message     string          `json:"message,omitempty"`
	Type        Type            `json:"type"`
	Fingerprint string          `json:"fingerprint,omitempty"`
	Details     json.RawMessage `json:"details,omitempty"`
	Location    *Location       `json:"location,omitempty"`
	Status      Status          `json:"status"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Criteria selects leads of one type sharing a request fingerprint.
type Criteria struct {
	Type        Type
	Fingerprint string
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Type   Type
	Status Status
	Limit  int
}

// Stats summarises the lead table for the admin dashboard.
type Stats struct {
	TotalLeads  int          `json:"totalLeads"`
	NewLeads    int          `json:"newLeads"`
	RecentLeads []Lead       `json:"recentLeads"`
	ByType      map[Type]int `json:"statsByType"`
}

// Store persists leads.
type Store interface {
	Create(ctx context.Context, lead Lead) (Lead, error)
	// FindRecent returns the newest lead matching c created at or after since,
	// or ErrNotFound.
	FindRecent(ctx context.Context, c Criteria, since time.Time) (Lead, error)
	// List returns leads newest first.
	List(ctx context.Context, f Filter) ([]Lead, error)
	UpdateStatus(ctx context.Context, id string, status Status) (Lead, error)
	Stats(ctx context.Context, recent int) (Stats, error)
}

// Alerter is told about newly captured leads. Implementations must not
// block the caller for long; delivery failures are theirs to log.
type Alerter interface {
	LeadCaptured(ctx context.Context, lead Lead)
}
