package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/adeilh/digitally/users"
	"github.com/google/uuid"
)

const userColumns = `id, email, verified, plan, credits, subscription_id, subscription_status, created_at, updated_at`

// UserRepository persists users.User records inside PostgreSQL.
type UserRepository struct {
	db *sql.DB
}

var _ users.Store = (*UserRepository)(nil)

// NewUserRepository wraps an existing *sql.DB connection.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, u users.User) (users.User, error) {
	const query = `INSERT INTO users (id, email, verified, plan, credits, subscription_id, subscription_status)
                   VALUES ($1, $2, $3, $4, $5, $6, $7)
                   RETURNING ` + userColumns
	return scanUser(r.db.QueryRowContext(ctx, query, uuid.NewString(), u.Email, u.Verified, string(u.Plan),
		u.Credits, u.SubscriptionID, u.SubscriptionStatus))
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (users.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (users.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *UserRepository) Update(ctx context.Context, u users.User) (users.User, error) {
	const query = `UPDATE users
                   SET email = $2, verified = $3, plan = $4, credits = $5, subscription_id = $6,
                       subscription_status = $7, updated_at = now()
                   WHERE id = $1
                   RETURNING ` + userColumns
	return scanUser(r.db.QueryRowContext(ctx, query, u.ID, u.Email, u.Verified, string(u.Plan), u.Credits,
		u.SubscriptionID, u.SubscriptionStatus))
}

// AdjustCredits changes the balance in a single statement so concurrent
// debits and top-ups never overwrite each other.
func (r *UserRepository) AdjustCredits(ctx context.Context, id string, delta int) (users.User, error) {
	const query = `UPDATE users SET credits = credits + $2, updated_at = now() WHERE id = $1 RETURNING ` + userColumns
	return scanUser(r.db.QueryRowContext(ctx, query, id, delta))
}

// SpendCredit decrements only while credits are positive. When no row
// matches, a lookup tells a missing user from an empty balance.
func (r *UserRepository) SpendCredit(ctx context.Context, id string) (users.User, error) {
	const query = `UPDATE users SET credits = credits - 1, updated_at = now() WHERE id = $1 AND credits > 0 RETURNING ` + userColumns
	u, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if !errors.Is(err, users.ErrNotFound) {
		return u, err
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return users.User{}, err
	}
	return users.User{}, users.ErrNoCredits
}

func scanUser(s scanner) (users.User, error) {
	var (
		u    users.User
		plan string
	)
	err := s.Scan(&u.ID, &u.Email, &u.Verified, &plan, &u.Credits, &u.SubscriptionID, &u.SubscriptionStatus,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return users.User{}, translate(err, users.ErrNotFound, users.ErrEmailInUse)
	}
	u.Plan = users.Plan(plan)
	return u, nil
}
