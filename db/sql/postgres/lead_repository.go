package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/adeilh/digitally/leads"
	"github.com/google/uuid"
)

const leadColumns = `id, name, email, service, budget, message, type, fingerprint, details, location, status, created_at, updated_at`

// LeadRepository persists leads.Lead records inside PostgreSQL.
type LeadRepository struct {
	db *sql.DB
}

var _ leads.Store = (*LeadRepository)(nil)

func NewLeadRepository(db *sql.DB) *LeadRepository {
	return &LeadRepository{db: db}
}

func (r *LeadRepository) Create(ctx context.Context, l leads.Lead) (leads.Lead, error) {
	details, err := nullJSON(l.Details)
	if err != nil {
		return leads.Lead{}, err
	}
	location, err := nullJSON(l.Location)
	if err != nil {
		return leads.Lead{}, err
	}
	if l.Status == "" {
		l.Status = leads.StatusNew
	}
	const query = `INSERT INTO leads (id, name, email, service, budget, message, type, fingerprint, details, location, status)
                   VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
                   RETURNING ` + leadColumns
	row := r.db.QueryRowContext(ctx, query, uuid.NewString(), l.Name, l.Email, l.Service, l.Budget, l.Message,
		string(l.Type), l.Fingerprint, details, location, string(l.Status))
	return scanLead(row)
}

func (r *LeadRepository) FindRecent(ctx context.Context, c leads.Criteria, since time.Time) (leads.Lead, error) {
	const query = `SELECT ` + leadColumns + ` FROM leads
                   WHERE type = $1 AND fingerprint = $2 AND created_at >= $3
                   ORDER BY created_at DESC LIMIT 1`
	return scanLead(r.db.QueryRowContext(ctx, query, string(c.Type), c.Fingerprint, since))
}

func (r *LeadRepository) List(ctx context.Context, f leads.Filter) ([]leads.Lead, error) {
	const query = `SELECT ` + leadColumns + ` FROM leads
                   WHERE ($1 = '' OR type = $1) AND ($2 = '' OR status = $2)
                   ORDER BY created_at DESC, id DESC
                   LIMIT $3`
	limit := sql.NullInt64{Int64: int64(f.Limit), Valid: f.Limit > 0}
	rows, err := r.db.QueryContext(ctx, query, string(f.Type), string(f.Status), limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list leads: %w", err)
	}
	defer rows.Close()

	out := []leads.Lead{}
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *LeadRepository) UpdateStatus(ctx context.Context, id string, status leads.Status) (leads.Lead, error) {
	const query = `UPDATE leads SET status = $2, updated_at = now() WHERE id = $1 RETURNING ` + leadColumns
	return scanLead(r.db.QueryRowContext(ctx, query, id, string(status)))
}

func (r *LeadRepository) Stats(ctx context.Context, recent int) (leads.Stats, error) {
	st := leads.Stats{ByType: make(map[leads.Type]int)}
	rows, err := r.db.QueryContext(ctx, `SELECT type, count(*), count(*) FILTER (WHERE status = 'new') FROM leads GROUP BY type`)
	if err != nil {
		return leads.Stats{}, fmt.Errorf("postgres: lead stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			typ          string
			total, fresh int
		)
		if err := rows.Scan(&typ, &total, &fresh); err != nil {
			return leads.Stats{}, err
		}
		st.ByType[leads.Type(typ)] = total
		st.TotalLeads += total
		st.NewLeads += fresh
	}
	if err := rows.Err(); err != nil {
		return leads.Stats{}, err
	}

	st.RecentLeads, err = r.List(ctx, leads.Filter{Limit: recent})
	if err != nil {
		return leads.Stats{}, err
	}
	return st, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLead(s scanner) (leads.Lead, error) {
	var (
		l                 leads.Lead
		typ, status       string
		details, location []byte
	)
	err := s.Scan(&l.ID, &l.Name, &l.Email, &l.Service, &l.Budget, &l.Message, &typ, &l.Fingerprint,
		&details, &location, &status, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return leads.Lead{}, translate(err, leads.ErrNotFound, nil)
	}
	l.Type, l.Status = leads.Type(typ), leads.Status(status)
	if len(details) > 0 {
		l.Details = json.RawMessage(details)
	}
	if len(location) > 0 {
		l.Location = new(leads.Location)
		if err := json.Unmarshal(location, l.Location); err != nil {
			return leads.Lead{}, fmt.Errorf("postgres: lead location: %w", err)
		}
	}
	return l, nil
}
