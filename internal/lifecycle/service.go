// Package lifecycle implements the submission state machine: intake, editing,
// the one-way pending to accepted or rejected decision and the corpus merge that follows acceptance.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/happyhackingspace/kurdish-dataset/internal/config"
	"github.com/happyhackingspace/kurdish-dataset/internal/corpus"
	"github.com/happyhackingspace/kurdish-dataset/internal/db"
	"github.com/happyhackingspace/kurdish-dataset/internal/extraction"
	"github.com/happyhackingspace/kurdish-dataset/internal/observability"
	"github.com/happyhackingspace/kurdish-dataset/internal/storage"
)

// Store is the record store holding submissions.
type Store interface {
	CreateSubmission(ctx context.Context, s *db.Submission) (*db.Submission, error)
	GetSubmission(ctx context.Context, id uuid.UUID) (*db.Submission, error)
	UpdateEditedText(ctx context.Context, id uuid.UUID, text string) (*db.Submission, error)
	DecideSubmission(ctx context.Context, id uuid.UUID, status, text string) (*db.Submission, error)
	MarkMerged(ctx context.Context, id uuid.UUID) error
	DeleteSubmission(ctx context.Context, id uuid.UUID) error
	ListSubmissions(ctx context.Context, filters db.SubmissionFilters) ([]db.Submission, error)
}

// Reconciliations is the merge ledger. Open records are merges that did not complete;
// resolved records are merges whose artifacts are both written.
type Reconciliations interface {
	corpus.Ledger
	ListOpenReconciliations(ctx context.Context) ([]corpus.Reconciliation, error)
	GetOpenReconciliation(ctx context.Context, submissionID uuid.UUID) (*corpus.Reconciliation, error)
	GetResolvedReconciliation(ctx context.Context, submissionID uuid.UUID) (*corpus.Reconciliation, error)
}

// Blobs stores the original PDF files.
type Blobs interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	URL(ctx context.Context, key string) (string, error)
	Remove(ctx context.Context, key string) error
}

// Extractor turns PDF bytes into text.
type Extractor interface {
	Extract(data []byte) (string, error)
}

// Merger appends accepted entries to the corpus. *corpus.Engine implements it.
type Merger interface {
	Merge(ctx context.Context, entry corpus.Entry) (*corpus.Pending, error)
	Resume(ctx context.Context, rec *corpus.Reconciliation) error
	RepoID() string
}

// Decision actions
const (
	ActionAccept = "accept"
	ActionReject = "reject"
)

// Stamping merged_at is retried briefly before the failure is reported.
const (
	markMergedAttempts = 3
	markMergedDelay    = 20 * time.Millisecond
)

// Deps are the collaborators of a Service.
type Deps struct {
	Store           Store
	Reconciliations Reconciliations
	Blobs           Blobs
	Extractor       Extractor
	Merger          Merger
	TextTypes       *config.TextTypes
	// KeyPrefix is the object key prefix PDFs are stored under.
	KeyPrefix string
	Metrics   *observability.Metrics
	Logger    *zap.Logger
}

// Service runs submission lifecycle operations.
type Service struct {
	store     Store
	recs      Reconciliations
	blobs     Blobs
	extractor Extractor
	merger    Merger
	textTypes *config.TextTypes
	keyPrefix string
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// NewService creates a Service.
func NewService(d Deps) *Service {
	s := &Service{
		store:     d.Store,
		recs:      d.Reconciliations,
		blobs:     d.Blobs,
		extractor: d.Extractor,
		merger:    d.Merger,
		textTypes: d.TextTypes,
		keyPrefix: d.KeyPrefix,
		metrics:   d.Metrics,
		logger:    d.Logger,
	}
	if s.textTypes == nil {
		s.textTypes = config.DefaultTextTypes()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// TextTypes returns the category catalog submissions are validated against.
func (s *Service) TextTypes() *config.TextTypes {
	return s.textTypes
}

// CreateInput is a contributor upload.
type CreateInput struct {
	Name            string
	Email           string
	Subject         string
	AuthorSource    string
	PublicationDate string
	TextType        string
	FileName        string
	PDF             []byte
}

func (in *CreateInput) normalize(types *config.TextTypes) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Subject = strings.TrimSpace(in.Subject)
	in.AuthorSource = strings.TrimSpace(in.AuthorSource)
	in.PublicationDate = strings.TrimSpace(in.PublicationDate)
	in.TextType = strings.TrimSpace(in.TextType)

	switch {
	case in.Name == "":
		return &ErrValidation{Field: "name", Message: "is required"}
	case in.Email == "":
		return &ErrValidation{Field: "email", Message: "is required"}
	case in.Subject == "":
		return &ErrValidation{Field: "subject", Message: "is required"}
	case len(in.PDF) == 0:
		return &ErrValidation{Field: "pdf_file", Message: "is required"}
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return &ErrValidation{Field: "email", Message: "must be a valid email address"}
	}

	if in.AuthorSource == "" {
		in.AuthorSource = db.DefaultAuthorSource
	}
	if in.PublicationDate == "" {
		in.PublicationDate = db.DefaultPublicationDate
	}
	if in.TextType == "" {
		in.TextType = config.DefaultTextType
	}
	if !types.Valid(in.TextType) {
		return &ErrValidation{Field: "text_type", Message: fmt.Sprintf("unknown text type %q", in.TextType)}
	}
	return nil
}

// Create stores the PDF, extracts its text and records a new pending submission.
// Extraction problems degrade to the placeholder text and never fail the upload.
func (s *Service) Create(ctx context.Context, in CreateInput) (*db.Submission, error) {
	if err := in.normalize(s.textTypes); err != nil {
		return nil, err
	}

	id := uuid.New()
	key := storage.ObjectKey(s.keyPrefix, id.String(), in.FileName)
	if err := s.blobs.Upload(ctx, key, in.PDF, "application/pdf"); err != nil {
		return nil, fmt.Errorf("failed to store PDF: %w", err)
	}

	raw, extractErr := s.extractor.Extract(in.PDF)
	text, placeholder := extraction.TextOrPlaceholder(raw, extractErr)
	if placeholder {
		s.metrics.ExtractionFallback()
		s.logger.Warn("PDF text extraction failed, using placeholder",
			zap.String("submission_id", id.String()),
			zap.String("file", in.FileName),
			zap.Error(extractErr))
	}

	created, err := s.store.CreateSubmission(ctx, &db.Submission{
		ID:              id,
		Name:            in.Name,
		Email:           in.Email,
		Subject:         in.Subject,
		AuthorSource:    in.AuthorSource,
		PublicationDate: in.PublicationDate,
		TextType:        in.TextType,
		PDFKey:          key,
		ExtractedText:   text,
		EditedText:      text,
	})
	if err != nil {
		if rmErr := s.blobs.Remove(context.WithoutCancel(ctx), key); rmErr != nil {
			s.logger.Warn("Failed to remove orphaned PDF", zap.String("key", key), zap.Error(rmErr))
		}
		return nil, fmt.Errorf("failed to save submission: %w", err)
	}

	s.metrics.SubmissionCreated(created.TextType)
	s.logger.Info("Submission created",
		zap.String("submission_id", created.ID.String()),
		zap.String("text_type", created.TextType),
		zap.Bool("placeholder", placeholder))
	return created, nil
}

// Get returns a submission or ErrSubmissionNotFound.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*db.Submission, error) {
	sub, err := s.store.GetSubmission(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, &ErrSubmissionNotFound{ID: id}
	}
	return sub, nil
}

// PDFURL returns a link to the stored PDF, or "" when the submission has none.
func (s *Service) PDFURL(ctx context.Context, sub *db.Submission) (string, error) {
	if sub == nil || sub.PDFKey == "" {
		return "", nil
	}
	link, err := s.blobs.URL(ctx, sub.PDFKey)
	if err != nil {
		return "", fmt.Errorf("failed to build PDF link: %w", err)
	}
	return link, nil
}

// Edit replaces the edited text. It is allowed in every status.
func (s *Service) Edit(ctx context.Context, id uuid.UUID, text string) (*db.Submission, error) {
	sub, err := s.store.UpdateEditedText(ctx, id, text)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, &ErrSubmissionNotFound{ID: id}
	}
	return sub, nil
}

// DecisionResult is the outcome of Decide.
type DecisionResult struct {
	Submission *db.Submission
	// Merge is set when an accepted submission reached the corpus.
	Merge *corpus.Pending
	// MergeWarning explains a failed corpus merge. The decision itself is committed.
	MergeWarning string
}

// Decide applies a reviewer decision. The final text and the new status are written
// in one update guarded on the pending status, so only the first of concurrent
// decisions commits. Accepting then merges the text into the corpus; a merge
// failure is reported in MergeWarning and leaves an open reconciliation.
// A nil finalText keeps the current edited text.
func (s *Service) Decide(ctx context.Context, id uuid.UUID, action string, finalText *string) (*DecisionResult, error) {
	var target string
	switch action {
	case ActionAccept:
		target = db.StatusAccepted
	case ActionReject:
		target = db.StatusRejected
	default:
		return nil, &ErrValidation{Field: "action", Message: "must be accept or reject"}
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.IsTerminal() {
		return nil, &ErrInvalidTransition{ID: id, From: current.Status, To: target}
	}

	text := current.EditedText
	if finalText != nil {
		text = *finalText
	}
	text = strings.TrimSpace(text)
	if target == db.StatusAccepted && text == "" {
		return nil, &ErrValidation{Field: "edited_text", Message: "cannot be empty when accepting"}
	}

	decided, err := s.store.DecideSubmission(ctx, id, target, text)
	if err != nil {
		return nil, err
	}
	if decided == nil {
		// lost a race with another decision, or the record is gone
		latest, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, &ErrInvalidTransition{ID: id, From: latest.Status, To: target}
	}

	s.metrics.Decision(target)
	s.logger.Info("Submission decided",
		zap.String("submission_id", id.String()),
		zap.String("status", target))

	result := &DecisionResult{Submission: decided}
	if target != db.StatusAccepted {
		return result, nil
	}

	pending, err := s.merge(ctx, decided)
	if err != nil {
		result.MergeWarning = mergeWarning(err)
		return result, nil
	}
	result.Merge = pending
	merged, err := s.markMerged(ctx, decided)
	if err != nil {
		result.MergeWarning = fmt.Sprintf("Submission merged into the corpus, but recording the merge failed: %v. "+
			"Retry the merge from the panel to record it; the corpus is not written again.", err)
		return result, nil
	}
	result.Submission = merged
	return result, nil
}

func (s *Service) entry(sub *db.Submission) corpus.Entry {
	return corpus.Entry{
		SubmissionID:    sub.ID,
		Subject:         sub.Subject,
		TextType:        s.textTypes.Label(sub.TextType),
		AuthorSource:    sub.AuthorSource,
		PublicationDate: sub.PublicationDate,
		CreatedAt:       sub.CreatedAt,
		Text:            sub.EditedText,
	}
}

func (s *Service) merge(ctx context.Context, sub *db.Submission) (*corpus.Pending, error) {
	pending, err := s.merger.Merge(ctx, s.entry(sub))
	if err != nil {
		s.metrics.MergeFinished(observability.MergeFailed)
		s.logger.Error("Corpus merge failed",
			zap.String("submission_id", sub.ID.String()),
			zap.Error(err))
		return nil, err
	}
	s.metrics.MergeFinished(observability.MergeSucceeded)
	return pending, nil
}

// markMerged stamps merged_at and returns the refreshed record.
func (s *Service) markMerged(ctx context.Context, sub *db.Submission) (*db.Submission, error) {
	err := retry.Do(
		func() error { return s.store.MarkMerged(ctx, sub.ID) },
		retry.Context(ctx),
		retry.Attempts(markMergedAttempts),
		retry.Delay(markMergedDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		s.logger.Error("Failed to record merge completion",
			zap.String("submission_id", sub.ID.String()),
			zap.Error(err))
		return nil, err
	}
	refreshed, err := s.store.GetSubmission(ctx, sub.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload submission %s: %w", sub.ID, err)
	}
	if refreshed == nil {
		return nil, &ErrSubmissionNotFound{ID: sub.ID}
	}
	return refreshed, nil
}

func mergeWarning(err error) string {
	var mergeErr *corpus.MergeError
	if errors.As(err, &mergeErr) && mergeErr.LedgerErr == nil {
		return fmt.Sprintf("Submission accepted, but the corpus update did not complete (%v). "+
			"The remaining writes are queued for retry.", mergeErr.Err)
	}
	return fmt.Sprintf("Submission accepted, but the corpus update failed: %v. Retry the merge from the panel.", err)
}

// RetryMerge finishes the corpus merge of an accepted submission. An open reconciliation
// is resumed so that only the missing artifacts are written. A submission the ledger
// already records as merged only gets merged_at stamped. Otherwise a submission that
// was never merged is merged from scratch.
func (s *Service) RetryMerge(ctx context.Context, id uuid.UUID) (*db.Submission, error) {
	sub, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	rec, err := s.recs.GetOpenReconciliation(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		return s.resume(ctx, sub, rec)
	}

	if sub.Status != db.StatusAccepted {
		return nil, &ErrInvalidTransition{ID: id, From: sub.Status, To: "merged"}
	}
	if sub.MergedAt != nil {
		return nil, &ErrAlreadyMerged{ID: id}
	}

	done, err := s.recs.GetResolvedReconciliation(ctx, id)
	if err != nil {
		return nil, err
	}
	if done == nil {
		if _, err := s.merge(ctx, sub); err != nil {
			return nil, err
		}
	} else {
		s.logger.Info("Submission already in corpus, recording merge",
			zap.String("submission_id", id.String()),
			zap.String("reconciliation_id", done.ID.String()))
	}
	return s.recordMerge(ctx, sub)
}

// resume finishes rec. A copy that went stale is re-read once: if another attempt
// resolved it there is nothing left to write.
func (s *Service) resume(ctx context.Context, sub *db.Submission, rec *corpus.Reconciliation) (*db.Submission, error) {
	err := s.merger.Resume(ctx, rec)
	if errors.Is(err, corpus.ErrReconciliationStale) {
		rec, err = s.recs.GetOpenReconciliation(ctx, sub.ID)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			err = s.merger.Resume(ctx, rec)
		}
	}
	if err != nil {
		s.metrics.ReconciliationResumed(observability.MergeFailed)
		return nil, fmt.Errorf("failed to resume merge of submission %s: %w", sub.ID, err)
	}
	s.metrics.ReconciliationResumed(observability.MergeSucceeded)

	latest, err := s.Get(ctx, sub.ID)
	if err != nil {
		return nil, err
	}
	return s.recordMerge(ctx, latest)
}

// recordMerge stamps merged_at on an accepted submission whose text is in the corpus.
func (s *Service) recordMerge(ctx context.Context, sub *db.Submission) (*db.Submission, error) {
	if sub.Status != db.StatusAccepted || sub.MergedAt != nil {
		return sub, nil
	}
	merged, err := s.markMerged(ctx, sub)
	if err != nil {
		return nil, fmt.Errorf("corpus holds submission %s but recording the merge failed: %w", sub.ID, err)
	}
	return merged, nil
}

// ResumeFailure is one reconciliation that could not be resolved.
type ResumeFailure struct {
	ReconciliationID uuid.UUID `json:"reconciliation_id"`
	SubmissionID     uuid.UUID `json:"submission_id"`
	Error            string    `json:"error"`
}

// ResumeReport summarizes a ResumeOpen run.
type ResumeReport struct {
	Resolved int             `json:"resolved"`
	Failures []ResumeFailure `json:"failures"`
}

// ResumeOpen resumes every open reconciliation of the merger's repository.
func (s *Service) ResumeOpen(ctx context.Context) (*ResumeReport, error) {
	recs, err := s.recs.ListOpenReconciliations(ctx)
	if err != nil {
		return nil, err
	}

	report := &ResumeReport{Failures: []ResumeFailure{}}
	for i := range recs {
		rec := &recs[i]
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if rec.RepoID != s.merger.RepoID() {
			continue
		}
		err := s.merger.Resume(ctx, rec)
		if errors.Is(err, corpus.ErrReconciliationStale) {
			// resumed elsewhere since the list was read
			s.logger.Debug("Skipping reconciliation that changed since listing",
				zap.String("reconciliation_id", rec.ID.String()))
			continue
		}
		if err != nil {
			s.metrics.ReconciliationResumed(observability.MergeFailed)
			report.Failures = append(report.Failures, ResumeFailure{
				ReconciliationID: rec.ID,
				SubmissionID:     rec.SubmissionID,
				Error:            err.Error(),
			})
			continue
		}
		s.metrics.ReconciliationResumed(observability.MergeSucceeded)
		report.Resolved++

		s.stampResolved(ctx, rec.SubmissionID)
	}

	s.logger.Info("Resumed open reconciliations",
		zap.Int("resolved", report.Resolved),
		zap.Int("failed", len(report.Failures)))
	return report, nil
}

// stampResolved records merged_at for the submission of a resolved reconciliation.
// A failure is logged; RetryMerge repairs it later without writing the corpus again.
func (s *Service) stampResolved(ctx context.Context, id uuid.UUID) {
	sub, err := s.store.GetSubmission(ctx, id)
	if err != nil {
		s.logger.Warn("Failed to load submission of resolved reconciliation",
			zap.String("submission_id", id.String()), zap.Error(err))
		return
	}
	if sub == nil || sub.Status != db.StatusAccepted || sub.MergedAt != nil {
		return
	}
	if _, err := s.markMerged(ctx, sub); err == nil {
		s.logger.Debug("Recorded merge of resumed submission", zap.String("submission_id", id.String()))
	}
}

// OpenReconciliations lists merges still waiting to be completed.
func (s *Service) OpenReconciliations(ctx context.Context) ([]corpus.Reconciliation, error) {
	return s.recs.ListOpenReconciliations(ctx)
}

// ListFilter selects submissions for the panel.
type ListFilter struct {
	Status string // empty means every status
	Search string
	// Limit caps the page size; zero returns every match.
	Limit  int
	Offset int
}

// List returns submissions newest first.
func (s *Service) List(ctx context.Context, f ListFilter) ([]db.Submission, error) {
	if f.Status != "" && !db.IsValidStatus(f.Status) {
		return nil, &ErrValidation{Field: "status", Message: fmt.Sprintf("unknown status %q", f.Status)}
	}
	if f.Limit < 0 {
		return nil, &ErrValidation{Field: "limit", Message: "must not be negative"}
	}
	if f.Offset < 0 {
		return nil, &ErrValidation{Field: "offset", Message: "must not be negative"}
	}
	subs, err := s.store.ListSubmissions(ctx, db.SubmissionFilters{
		Status: f.Status,
		Search: f.Search,
		Limit:  f.Limit,
		Offset: f.Offset,
	})
	if err != nil {
		return nil, err
	}
	if subs == nil {
		subs = []db.Submission{}
	}
	return subs, nil
}

// Delete removes a submission and its stored PDF. Corpus artifacts are not touched.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	sub, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteSubmission(ctx, id); err != nil {
		return err
	}
	if sub.PDFKey != "" {
		if err := s.blobs.Remove(ctx, sub.PDFKey); err != nil {
			s.logger.Warn("Failed to remove PDF of deleted submission",
				zap.String("submission_id", id.String()),
				zap.String("key", sub.PDFKey),
				zap.Error(err))
		}
	}
	s.logger.Info("Submission deleted", zap.String("submission_id", id.String()))
	return nil
}
