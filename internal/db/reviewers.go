package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrDuplicateEmail is returned when a reviewer with the same email already exists
var ErrDuplicateEmail = errors.New("reviewer email already exists")

// CreateReviewer inserts a reviewer with an already hashed password
func (db *DB) CreateReviewer(ctx context.Context, name, email, passwordHash string) (*Reviewer, error) {
	var r Reviewer
	err := db.pool.QueryRow(ctx,
		`INSERT INTO reviewers (name, email, password_hash)
		 VALUES ($1, $2, $3)
		 RETURNING id, name, email, password_hash, created_at, updated_at`,
		name, normalizeEmail(email), passwordHash,
	).Scan(&r.ID, &r.Name, &r.Email, &r.PasswordHash, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create reviewer: %w", err)
	}
	return &r, nil
}

// GetReviewer retrieves a reviewer by ID. Returns nil, nil when not found.
func (db *DB) GetReviewer(ctx context.Context, id uuid.UUID) (*Reviewer, error) {
	var r Reviewer
	err := db.pool.QueryRow(ctx,
		`SELECT id, name, email, password_hash, created_at, updated_at
		 FROM reviewers WHERE id = $1`,
		id,
	).Scan(&r.ID, &r.Name, &r.Email, &r.PasswordHash, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get reviewer: %w", err)
	}
	return &r, nil
}

// GetReviewerByEmail retrieves a reviewer by email, case-insensitively. Returns nil, nil when not found.
func (db *DB) GetReviewerByEmail(ctx context.Context, email string) (*Reviewer, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, nil
	}
	var r Reviewer
	err := db.pool.QueryRow(ctx,
		`SELECT id, name, email, password_hash, created_at, updated_at
		 FROM reviewers WHERE email = $1`,
		email,
	).Scan(&r.ID, &r.Name, &r.Email, &r.PasswordHash, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get reviewer by email: %w", err)
	}
	return &r, nil
}

// DeleteReviewer removes a reviewer
func (db *DB) DeleteReviewer(ctx context.Context, id uuid.UUID) error {
	result, err := db.pool.Exec(ctx, `DELETE FROM reviewers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete reviewer: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("reviewer not found: %s", id)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
