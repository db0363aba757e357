package db

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const submissionColumns = `id, name, email, subject, author_source, publication_date, text_type,
	pdf_key, extracted_text, edited_text, status, created_at, updated_at, decided_at, merged_at`

func scanSubmission(row pgx.Row) (*Submission, error) {
	var s Submission
	err := row.Scan(&s.ID, &s.Name, &s.Email, &s.Subject, &s.AuthorSource, &s.PublicationDate, &s.TextType,
		&s.PDFKey, &s.ExtractedText, &s.EditedText, &s.Status, &s.CreatedAt, &s.UpdatedAt, &s.DecidedAt, &s.MergedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// CreateSubmission inserts a new pending submission. A nil ID is generated.
func (db *DB) CreateSubmission(ctx context.Context, s *Submission) (*Submission, error) {
	id := s.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	row := db.pool.QueryRow(ctx,
		`INSERT INTO submissions (id, name, email, subject, author_source, publication_date, text_type,
		     pdf_key, extracted_text, edited_text, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 'pending')
		 RETURNING `+submissionColumns,
		id, s.Name, s.Email, s.Subject, s.AuthorSource, s.PublicationDate, s.TextType,
		s.PDFKey, s.ExtractedText, s.EditedText,
	)
	created, err := scanSubmission(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create submission: %w", err)
	}
	return created, nil
}

// GetSubmission retrieves a submission by ID. Returns nil, nil when it does not exist.
func (db *DB) GetSubmission(ctx context.Context, id uuid.UUID) (*Submission, error) {
	s, err := scanSubmission(db.pool.QueryRow(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE id = $1`, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	return s, nil
}

// UpdateEditedText replaces the edited text in any state. Returns nil, nil when the submission does not exist.
func (db *DB) UpdateEditedText(ctx context.Context, id uuid.UUID, text string) (*Submission, error) {
	s, err := scanSubmission(db.pool.QueryRow(ctx,
		`UPDATE submissions SET edited_text = $2, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+submissionColumns,
		id, text))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update edited text: %w", err)
	}
	return s, nil
}

// DecideSubmission stores the final text and the terminal status in one statement.
// Only pending submissions are updated; nil, nil means the submission is missing or already decided.
func (db *DB) DecideSubmission(ctx context.Context, id uuid.UUID, status, text string) (*Submission, error) {
	if status != StatusAccepted && status != StatusRejected {
		return nil, fmt.Errorf("invalid decision status: %s", status)
	}
	s, err := scanSubmission(db.pool.QueryRow(ctx,
		`UPDATE submissions
		 SET edited_text = $3, status = $2, decided_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND status = 'pending'
		 RETURNING `+submissionColumns,
		id, status, text))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to decide submission: %w", err)
	}
	return s, nil
}

// MarkMerged records that the corpus merge for an accepted submission completed
func (db *DB) MarkMerged(ctx context.Context, id uuid.UUID) error {
	result, err := db.pool.Exec(ctx,
		`UPDATE submissions SET merged_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND status = 'accepted'`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark submission merged: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("accepted submission not found: %s", id)
	}
	return nil
}

// DeleteSubmission removes a submission record
func (db *DB) DeleteSubmission(ctx context.Context, id uuid.UUID) error {
	result, err := db.pool.Exec(ctx, `DELETE FROM submissions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete submission: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("submission not found: %s", id)
	}
	return nil
}

// ListSubmissions retrieves submissions newest first with optional filters
func (db *DB) ListSubmissions(ctx context.Context, filters SubmissionFilters) ([]Submission, error) {
	query, args, err := buildListQuery(filters)
	if err != nil {
		return nil, fmt.Errorf("failed to build submission query: %w", err)
	}

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer rows.Close()

	var submissions []Submission
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		submissions = append(submissions, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	return submissions, nil
}

func buildListQuery(filters SubmissionFilters) (string, []any, error) {
	// id breaks ties so that offset pages do not overlap
	q := psql.Select(submissionColumns).
		From("submissions").
		OrderBy("created_at DESC", "id DESC")

	if filters.Limit > 0 {
		q = q.Limit(uint64(filters.Limit))
	}
	if filters.Offset > 0 {
		q = q.Offset(uint64(filters.Offset))
	}

	if filters.Status != "" {
		q = q.Where(sq.Eq{"status": filters.Status})
	}
	if search := strings.TrimSpace(filters.Search); search != "" {
		pattern := "%" + escapeLike(search) + "%"
		q = q.Where(sq.Or{
			sq.ILike{"subject": pattern},
			sq.ILike{"name": pattern},
			sq.ILike{"email": pattern},
		})
	}
	return q.ToSql()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes user input match literally inside a LIKE pattern
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
