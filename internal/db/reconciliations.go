package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/happyhackingspace/kurdish-dataset/internal/corpus"
)

const reconciliationColumns = `id, submission_id, repo_id, metadata_written, text_written, record_line,
	formatted_text, last_error, attempts, status, created_at, updated_at, resolved_at`

func scanReconciliation(row pgx.Row) (*corpus.Reconciliation, error) {
	var r corpus.Reconciliation
	err := row.Scan(&r.ID, &r.SubmissionID, &r.RepoID, &r.MetadataWritten, &r.TextWritten, &r.RecordLine,
		&r.FormattedText, &r.LastError, &r.Attempts, &r.Status, &r.CreatedAt, &r.UpdatedAt, &r.ResolvedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// RecordReconciliation stores a new reconciliation and fills in its ID and timestamps
func (db *DB) RecordReconciliation(ctx context.Context, r *corpus.Reconciliation) error {
	status := r.Status
	if status == "" {
		status = corpus.ReconciliationOpen
	}
	err := db.pool.QueryRow(ctx,
		`INSERT INTO merge_reconciliations
		     (submission_id, repo_id, metadata_written, text_written, record_line, formatted_text,
		      last_error, attempts, status, resolved_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id, created_at, updated_at`,
		r.SubmissionID, r.RepoID, r.MetadataWritten, r.TextWritten, r.RecordLine, r.FormattedText,
		r.LastError, r.Attempts, status, r.ResolvedAt,
	).Scan(&r.ID, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to record reconciliation: %w", err)
	}
	r.Status = status
	return nil
}

// ClaimReconciliation takes an open reconciliation for one resume attempt.
// It only matches while the stored attempt count equals r.Attempts and loads the claimed row into r.
func (db *DB) ClaimReconciliation(ctx context.Context, r *corpus.Reconciliation) (bool, error) {
	claimed, err := scanReconciliation(db.pool.QueryRow(ctx,
		`UPDATE merge_reconciliations
		 SET attempts = attempts + 1, updated_at = NOW()
		 WHERE id = $1 AND status = 'open' AND attempts = $2
		 RETURNING `+reconciliationColumns,
		r.ID, r.Attempts))
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to claim reconciliation: %w", err)
	}
	*r = *claimed
	return true, nil
}

// UpdateReconciliation stores the outcome of a claimed attempt
func (db *DB) UpdateReconciliation(ctx context.Context, r *corpus.Reconciliation) error {
	result, err := db.pool.Exec(ctx,
		`UPDATE merge_reconciliations
		 SET metadata_written = $2, text_written = $3, last_error = $4,
		     status = $5, resolved_at = $6, updated_at = NOW()
		 WHERE id = $1 AND status = 'open' AND attempts = $7`,
		r.ID, r.MetadataWritten, r.TextWritten, r.LastError, r.Status, r.ResolvedAt, r.Attempts,
	)
	if err != nil {
		return fmt.Errorf("failed to update reconciliation: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("reconciliation %s: %w", r.ID, corpus.ErrReconciliationStale)
	}
	return nil
}

// ListOpenReconciliations returns every open reconciliation, oldest first
func (db *DB) ListOpenReconciliations(ctx context.Context) ([]corpus.Reconciliation, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+reconciliationColumns+`
		 FROM merge_reconciliations WHERE status = 'open'
		 ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list reconciliations: %w", err)
	}
	defer rows.Close()

	var out []corpus.Reconciliation
	for rows.Next() {
		r, err := scanReconciliation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reconciliation: %w", err)
		}
		out = append(out, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list reconciliations: %w", err)
	}
	return out, nil
}

// GetOpenReconciliation returns the open reconciliation of a submission, or nil, nil
func (db *DB) GetOpenReconciliation(ctx context.Context, submissionID uuid.UUID) (*corpus.Reconciliation, error) {
	r, err := scanReconciliation(db.pool.QueryRow(ctx,
		`SELECT `+reconciliationColumns+`
		 FROM merge_reconciliations
		 WHERE submission_id = $1 AND status = 'open'
		 ORDER BY created_at DESC LIMIT 1`,
		submissionID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get reconciliation: %w", err)
	}
	return r, nil
}

// GetResolvedReconciliation returns the latest resolved reconciliation of a submission, or nil, nil.
// A resolved row means both artifacts hold the submission.
func (db *DB) GetResolvedReconciliation(ctx context.Context, submissionID uuid.UUID) (*corpus.Reconciliation, error) {
	r, err := scanReconciliation(db.pool.QueryRow(ctx,
		`SELECT `+reconciliationColumns+`
		 FROM merge_reconciliations
		 WHERE submission_id = $1 AND status = 'resolved'
		 ORDER BY resolved_at DESC LIMIT 1`,
		submissionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reconciliation: %w", err)
	}
	return r, nil
}
