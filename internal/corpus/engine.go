package corpus

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/happyhackingspace/kurdish-dataset/internal/hub"
)

// Hub is the remote file store holding the corpus artifacts.
type Hub interface {
	Download(ctx context.Context, repoID, filename string) ([]byte, error)
	Upload(ctx context.Context, repoID, filename string, content []byte, message string) error
}

// Ledger persists reconciliation records. Merges that did not complete leave an open
// record; completed merges leave a resolved one.
//
// ClaimReconciliation takes an open record for one resume attempt. It matches on ID,
// open status and the attempt count r carries, increments the stored count and loads
// the stored row into r. It reports false when another attempt got there first.
// UpdateReconciliation stores the outcome of a claimed attempt under the same conditions
// and returns ErrReconciliationStale when they no longer hold.
type Ledger interface {
	RecordReconciliation(ctx context.Context, r *Reconciliation) error
	ClaimReconciliation(ctx context.Context, r *Reconciliation) (bool, error)
	UpdateReconciliation(ctx context.Context, r *Reconciliation) error
}

// ErrReconciliationStale is returned by Resume when the reconciliation it was given
// has been resumed or resolved since it was read.
var ErrReconciliationStale = errors.New("reconciliation changed since it was read")

// Reconciliation statuses.
const (
	ReconciliationOpen     = "open"
	ReconciliationResolved = "resolved"
)

// Reconciliation captures a merge that wrote none or only one of the two artifacts,
// together with everything needed to finish it later.
type Reconciliation struct {
	ID              uuid.UUID  `json:"id"`
	SubmissionID    uuid.UUID  `json:"submission_id"`
	RepoID          string     `json:"repo_id"`
	MetadataWritten bool       `json:"metadata_written"`
	TextWritten     bool       `json:"text_written"`
	RecordLine      string     `json:"record_line"`
	FormattedText   string     `json:"formatted_text"`
	LastError       string     `json:"last_error,omitempty"`
	Attempts        int        `json:"attempts"`
	Status          string     `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
}

// Entry is an accepted submission ready to be merged.
type Entry struct {
	SubmissionID    uuid.UUID
	Subject         string
	TextType        string // display label
	AuthorSource    string
	PublicationDate string
	CreatedAt       time.Time
	Text            string
}

// InvalidEntryError reports a missing required entry field.
type InvalidEntryError struct {
	Field string
}

func (e *InvalidEntryError) Error() string {
	return fmt.Sprintf("invalid corpus entry: %s is required", e.Field)
}

func (e Entry) validate() error {
	required := []struct {
		field string
		empty bool
	}{
		{"submission_id", e.SubmissionID == uuid.Nil},
		{"subject", strings.TrimSpace(e.Subject) == ""},
		{"text_type", strings.TrimSpace(e.TextType) == ""},
		{"author_source", strings.TrimSpace(e.AuthorSource) == ""},
		{"publication_date", strings.TrimSpace(e.PublicationDate) == ""},
		{"created_at", e.CreatedAt.IsZero()},
		{"text", strings.TrimSpace(e.Text) == ""},
	}
	for _, r := range required {
		if r.empty {
			return &InvalidEntryError{Field: r.field}
		}
	}
	return nil
}

// Pending is an entry rendered into its two artifact forms.
type Pending struct {
	Record    Record
	Line      string
	Formatted string
}

// MergeError is returned when at least one artifact could not be written.
// Reconciliation describes what was written and is already stored in the ledger,
// unless LedgerErr is set.
type MergeError struct {
	Reconciliation *Reconciliation
	Err            error
	LedgerErr      error
}

func (e *MergeError) Error() string {
	msg := fmt.Sprintf("corpus merge incomplete (metadata written: %t, text written: %t): %v",
		e.Reconciliation.MetadataWritten, e.Reconciliation.TextWritten, e.Err)
	if e.LedgerErr != nil {
		msg += fmt.Sprintf("; reconciliation not stored: %v", e.LedgerErr)
	}
	return msg
}

func (e *MergeError) Unwrap() error {
	return e.Err
}

// Options configures an Engine.
type Options struct {
	RepoID       string
	MetadataFile string
	TextFile     string
	Location     *time.Location
	Locker       Locker
	Ledger       Ledger
	Logger       *zap.Logger
	Now          func() time.Time
}

// Engine merges accepted entries into the metadata file and the text blob of one repository.
type Engine struct {
	hub          Hub
	repoID       string
	metadataFile string
	textFile     string
	location     *time.Location
	locker       Locker
	ledger       Ledger
	logger       *zap.Logger
	now          func() time.Time
}

// NewEngine creates an Engine. Engines sharing a Locker serialize with each other;
// without one the engine only serializes with itself.
func NewEngine(h Hub, opts Options) *Engine {
	e := &Engine{
		hub:          h,
		repoID:       opts.RepoID,
		metadataFile: opts.MetadataFile,
		textFile:     opts.TextFile,
		location:     opts.Location,
		locker:       opts.Locker,
		ledger:       opts.Ledger,
		logger:       opts.Logger,
		now:          opts.Now,
	}
	if e.location == nil {
		e.location = time.UTC
	}
	if e.locker == nil {
		e.locker = NewLocks()
	}
	if e.ledger == nil {
		e.ledger = nopLedger{}
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// RepoID returns the repository this engine writes to.
func (e *Engine) RepoID() string {
	return e.repoID
}

// Prepare renders entry without touching the hub.
func (e *Engine) Prepare(entry Entry) (*Pending, error) {
	if err := entry.validate(); err != nil {
		return nil, err
	}

	text := strings.TrimSpace(entry.Text)
	counts := Count(text)
	rec := Record{
		DocumentSubject: entry.Subject,
		TextType:        entry.TextType,
		AuthorSource:    entry.AuthorSource,
		PublicationDate: entry.PublicationDate,
		CreatedAt:       entry.CreatedAt.In(e.location).Format(CreatedAtLayout),
		CharCount:       counts.Chars,
		WordCount:       counts.Words,
		Text:            text,
	}
	line, err := rec.MarshalLine()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize corpus record: %w", err)
	}
	return &Pending{
		Record:    rec,
		Line:      line,
		Formatted: WrapSentences(Flatten(text)),
	}, nil
}

// Merge appends entry to both artifacts. When a write fails the partial state is
// recorded as an open reconciliation and returned inside a *MergeError. A complete
// merge is recorded as a resolved reconciliation so callers can tell it happened.
// Merge is not idempotent: calling it twice for one entry duplicates it.
func (e *Engine) Merge(ctx context.Context, entry Entry) (*Pending, error) {
	p, err := e.Prepare(entry)
	if err != nil {
		return nil, err
	}

	unlock, err := e.locker.Lock(ctx, e.repoID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", e.repoID, err)
	}
	defer unlock()

	rec := &Reconciliation{
		SubmissionID:  entry.SubmissionID,
		RepoID:        e.repoID,
		RecordLine:    p.Line,
		FormattedText: p.Formatted,
		Status:        ReconciliationOpen,
	}
	if err := e.apply(ctx, rec); err != nil {
		now := e.now()
		rec.Attempts = 1
		rec.LastError = err.Error()
		rec.CreatedAt, rec.UpdatedAt = now, now

		mergeErr := &MergeError{Reconciliation: rec, Err: err}
		if lerr := e.ledger.RecordReconciliation(context.WithoutCancel(ctx), rec); lerr != nil {
			mergeErr.LedgerErr = lerr
			e.logger.Error("Failed to store reconciliation record",
				zap.String("submission_id", entry.SubmissionID.String()),
				zap.String("record_line", rec.RecordLine),
				zap.Error(lerr))
		}
		return nil, mergeErr
	}

	now := e.now()
	rec.Attempts = 1
	rec.Status = ReconciliationResolved
	rec.CreatedAt, rec.UpdatedAt, rec.ResolvedAt = now, now, &now
	if lerr := e.ledger.RecordReconciliation(context.WithoutCancel(ctx), rec); lerr != nil {
		e.logger.Error("Failed to journal completed merge",
			zap.String("submission_id", entry.SubmissionID.String()),
			zap.Error(lerr))
	}

	e.logger.Info("Merged submission into corpus",
		zap.String("submission_id", entry.SubmissionID.String()),
		zap.String("repo_id", e.repoID),
		zap.Int("char_count", p.Record.CharCount),
		zap.Int("word_count", p.Record.WordCount))
	return p, nil
}

// Resume writes the artifacts a reconciliation is still missing and stores the outcome.
// rec is claimed in the ledger before anything is written; a copy that no longer matches
// the stored row yields ErrReconciliationStale and no writes.
func (e *Engine) Resume(ctx context.Context, rec *Reconciliation) error {
	if rec.Status == ReconciliationResolved {
		return nil
	}
	if rec.RepoID != e.repoID {
		return fmt.Errorf("reconciliation %s targets %s, engine writes %s", rec.ID, rec.RepoID, e.repoID)
	}

	unlock, err := e.locker.Lock(ctx, e.repoID)
	if err != nil {
		return fmt.Errorf("failed to lock %s: %w", e.repoID, err)
	}
	defer unlock()

	claimed, err := e.ledger.ClaimReconciliation(ctx, rec)
	if err != nil {
		return fmt.Errorf("failed to claim reconciliation %s: %w", rec.ID, err)
	}
	if !claimed {
		return ErrReconciliationStale
	}

	applyErr := e.apply(ctx, rec)
	now := e.now()
	rec.UpdatedAt = now
	if applyErr != nil {
		rec.LastError = applyErr.Error()
	} else {
		rec.LastError = ""
		rec.Status = ReconciliationResolved
		rec.ResolvedAt = &now
	}

	if err := e.ledger.UpdateReconciliation(context.WithoutCancel(ctx), rec); err != nil {
		return errors.Join(applyErr, fmt.Errorf("failed to update reconciliation %s: %w", rec.ID, err))
	}
	if applyErr != nil {
		return &MergeError{Reconciliation: rec, Err: applyErr}
	}
	e.logger.Info("Resolved corpus reconciliation",
		zap.String("reconciliation_id", rec.ID.String()),
		zap.String("submission_id", rec.SubmissionID.String()),
		zap.Int("attempts", rec.Attempts))
	return nil
}

// apply performs the remaining writes in order: metadata first, then text.
func (e *Engine) apply(ctx context.Context, rec *Reconciliation) error {
	if !rec.MetadataWritten {
		if err := e.writeMetadata(ctx, rec.RecordLine); err != nil {
			return fmt.Errorf("metadata file %s: %w", e.metadataFile, err)
		}
		rec.MetadataWritten = true
	}
	if !rec.TextWritten {
		if err := e.writeText(ctx, rec.FormattedText); err != nil {
			return fmt.Errorf("text file %s: %w", e.textFile, err)
		}
		rec.TextWritten = true
	}
	return nil
}

func (e *Engine) writeMetadata(ctx context.Context, line string) error {
	existing, err := e.fetch(ctx, e.metadataFile)
	if err != nil {
		return err
	}
	if _, bad := DecodeMetadata(existing); len(bad) > 0 {
		e.logger.Warn("Metadata file contains lines that fail validation; keeping them as is",
			zap.String("file", e.metadataFile),
			zap.Int("invalid_lines", len(bad)),
			zap.String("first_error", bad[0].Error()))
	}
	updated := AppendMetadata(existing, line)
	return e.hub.Upload(ctx, e.repoID, e.metadataFile, updated,
		fmt.Sprintf("Update %s with admin-edited text", e.metadataFile))
}

func (e *Engine) writeText(ctx context.Context, formatted string) error {
	existing, err := e.fetch(ctx, e.textFile)
	if err != nil {
		return err
	}
	updated := AppendText(existing, formatted)
	return e.hub.Upload(ctx, e.repoID, e.textFile, updated,
		fmt.Sprintf("Update %s with admin-edited text", e.textFile))
}

// fetch downloads filename; a file that does not exist yet reads as empty.
func (e *Engine) fetch(ctx context.Context, filename string) ([]byte, error) {
	data, err := e.hub.Download(ctx, e.repoID, filename)
	if errors.Is(err, hub.ErrNotFound) {
		e.logger.Info("Corpus file not found, starting empty", zap.String("file", filename))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	return data, nil
}

type nopLedger struct{}

func (nopLedger) RecordReconciliation(context.Context, *Reconciliation) error { return nil }
func (nopLedger) UpdateReconciliation(context.Context, *Reconciliation) error { return nil }

func (nopLedger) ClaimReconciliation(_ context.Context, r *Reconciliation) (bool, error) {
	r.Attempts++
	return true, nil
}
