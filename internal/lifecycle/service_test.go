package lifecycle_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/happyhackingspace/kurdish-dataset/internal/corpus"
	"github.com/happyhackingspace/kurdish-dataset/internal/db"
	"github.com/happyhackingspace/kurdish-dataset/internal/extraction"
	"github.com/happyhackingspace/kurdish-dataset/internal/lifecycle"
	"github.com/happyhackingspace/kurdish-dataset/internal/lifecycle/lifecycletest"
)

const (
	repo         = "org/kurmanji"
	metadataFile = "kurmanji.json"
	textFile     = "kurmanji.txt"
)

type harness struct {
	svc    *lifecycle.Service
	store  *lifecycletest.MemoryStore
	blobs  *lifecycletest.MemoryBlobs
	hub    *lifecycletest.MemoryHub
	engine *corpus.Engine
}

func newHarness(t *testing.T, extractor lifecycle.Extractor) *harness {
	t.Helper()
	return newHarnessWith(t, extractor, nil)
}

// newHarnessWith lets wrap replace the merger the service sees.
func newHarnessWith(t *testing.T, extractor lifecycle.Extractor, wrap func(*corpus.Engine) lifecycle.Merger) *harness {
	t.Helper()
	store := lifecycletest.NewMemoryStore()
	blobs := lifecycletest.NewMemoryBlobs()
	h := lifecycletest.NewMemoryHub()
	engine := corpus.NewEngine(h, corpus.Options{
		RepoID:       repo,
		MetadataFile: metadataFile,
		TextFile:     textFile,
		Location:     time.FixedZone("+03", 3*60*60),
		Ledger:       store,
	})
	var merger lifecycle.Merger = engine
	if wrap != nil {
		merger = wrap(engine)
	}
	svc := lifecycle.NewService(lifecycle.Deps{
		Store:           store,
		Reconciliations: store,
		Blobs:           blobs,
		Extractor:       extractor,
		Merger:          merger,
		KeyPrefix:       "pdfs",
	})
	return &harness{svc: svc, store: store, blobs: blobs, hub: h, engine: engine}
}

func validInput() lifecycle.CreateInput {
	return lifecycle.CreateInput{
		Name:     "Rojda",
		Email:    "rojda@example.com",
		Subject:  "Çîrokên gundê me",
		FileName: "cirok.pdf",
		PDF:      []byte("%PDF-1.4 fake"),
	}
}

func strPtr(s string) *string { return &s }

func TestCreate_EditedTextStartsAsExtractedText(t *testing.T) {
	h := newHarness(t, lifecycletest.StaticExtractor{Text: "Roj baş. Çawa yî?"})

	sub, err := h.svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	assert.Equal(t, db.StatusPending, sub.Status)
	assert.Equal(t, "Roj baş. Çawa yî?", sub.ExtractedText)
	assert.Equal(t, sub.ExtractedText, sub.EditedText)
	assert.Equal(t, db.DefaultAuthorSource, sub.AuthorSource)
	assert.Equal(t, db.DefaultPublicationDate, sub.PublicationDate)
	assert.Equal(t, "other", sub.TextType)
	assert.Nil(t, sub.DecidedAt)
	assert.True(t, strings.HasPrefix(sub.PDFKey, "pdfs/"))
	assert.True(t, h.blobs.Has(sub.PDFKey))
	assert.Equal(t, "application/pdf", h.blobs.ContentType(sub.PDFKey))
}

func TestCreate_ExtractionFailureUsesPlaceholder(t *testing.T) {
	tests := []struct {
		name      string
		extractor lifecycletest.StaticExtractor
	}{
		{"error", lifecycletest.StaticExtractor{Err: errors.New("malformed xref")}},
		{"blank text", lifecycletest.StaticExtractor{Text: "  \n "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.extractor)
			sub, err := h.svc.Create(context.Background(), validInput())
			require.NoError(t, err)
			assert.Equal(t, extraction.Placeholder, sub.ExtractedText)
			assert.Equal(t, extraction.Placeholder, sub.EditedText)
		})
	}
}

func TestCreate_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*lifecycle.CreateInput)
		field  string
	}{
		{"missing name", func(in *lifecycle.CreateInput) { in.Name = "  " }, "name"},
		{"missing email", func(in *lifecycle.CreateInput) { in.Email = "" }, "email"},
		{"bad email", func(in *lifecycle.CreateInput) { in.Email = "not-an-email" }, "email"},
		{"missing subject", func(in *lifecycle.CreateInput) { in.Subject = "" }, "subject"},
		{"missing pdf", func(in *lifecycle.CreateInput) { in.PDF = nil }, "pdf_file"},
		{"unknown text type", func(in *lifecycle.CreateInput) { in.TextType = "recipes" }, "text_type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, lifecycletest.StaticExtractor{Text: "x"})
			in := validInput()
			tt.mutate(&in)

			_, err := h.svc.Create(context.Background(), in)
			var verr *lifecycle.ErrValidation
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
			assert.Equal(t, 0, h.blobs.Len(), "nothing stored for rejected input")
		})
	}
}

func TestCreate_StoreFailureRemovesPDF(t *testing.T) {
	h := newHarness(t, lifecycletest.StaticExtractor{Text: "x"})
	h.store.FailCreate = errors.New("connection refused")

	_, err := h.svc.Create(context.Background(), validInput())
	require.Error(t, err)
	assert.Equal(t, 0, h.blobs.Len())
}

func TestCreate_BlobFailure(t *testing.T) {
	h := newHarness(t, lifecycletest.StaticExtractor{Text: "x"})
	h.blobs.FailUpload = errors.New("bucket missing")

	_, err := h.svc.Create(context.Background(), validInput())
	require.Error(t, err)
	list, err := h.svc.List(context.Background(), lifecycle.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestDecide_AcceptMergesIntoCorpus(t *testing.T) {
	h := newHarness(t, lifecycletest.StaticExtractor{Text: "raw"})
	ctx := context.Background()
	sub, err := h.svc.Create(ctx, validInput())
	require.NoError(t, err)

	result, err := h.svc.Decide(ctx, sub.ID, lifecycle.ActionAccept, strPtr("  Hi. Bye.  "))
	require.NoError(t, err)

	assert.Empty(t, result.MergeWarning)
	require.NotNil(t, result.Merge)
	assert.Equal(t, 8, result.Merge.Record.CharCount)
	assert.Equal(t, 2, result.Merge.Record.WordCount)
	assert.Equal(t, db.StatusAccepted, result.Submission.Status)
	assert.Equal(t, "Hi. Bye.", result.Submission.EditedText)
	assert.NotNil(t, result.Submission.DecidedAt)
	assert.NotNil(t, result.Submission.MergedAt)

	metadata := h.hub.File(repo, metadataFile)
	assert.Contains(t, metadata, `"char_count":8`)
	assert.Contains(t, metadata, `"text_type":"Other"`)
	assert.Equal(t, "Hi.\nBye.", h.hub.File(repo, textFile))
}

func TestDecide_NilTextKeepsEditedText(t *testing.T) {
	h := newHarness(t, lifecycletest.StaticExtractor{Text: "raw"})
	ctx := context.Background()
	sub, err := h.svc.Create(ctx, validInput())
	require.NoError(t, err)
	_, err = h.svc.Edit(ctx, sub.ID, "Edited once.")
	require.NoError(t, err)

	result, err := h.svc.Decide(ctx, sub.ID, lifecycle.ActionAccept, nil)
	require.NoError(t, err)
	assert.Equal(t, "Edited once.", result.Submission.EditedText)
	assert.Equal(t, "Edited once.", h.hub.File(repo, textFile))
}

func TestDecide_RejectDoesNotTouchCorpus(t *testing.T) {
	h := newHarness(t, lifecycletest.StaticExtractor{Text: "raw"})
	ctx := context.Background()
	sub, err := h.svc.Create(ctx, validInput())
	require.NoError(t, err)

	result, err := h.svc.Decide(ctx, sub.ID, lifecycle.ActionReject, strPtr("final"))
	require.NoError(t, err)

	assert.Equal(t, db.StatusRejected, result.Submission.Status)
	assert.Equal(t, "final", result.Submission.EditedText)
	assert.Nil(t, result.Merge)
	assert.Equal(t, 0, h.hub.Uploads())
}

func TestDecide_IsOneWay(t *testing.T) {
	h := newHarness(t, lifecycletest.StaticExtractor{Text: "raw"})
	ctx := context.Background()
	sub, err := h.svc.Create(ctx, validInput())
	require.NoError(t, err)

	_, err = h.svc.Decide(ctx, sub.ID, lifecycle.ActionReject, nil)
	require.NoError(t, err)

	_, err = h.svc.Decide(ctx, sub.ID, lifecycle.ActionAccept, nil)
	var terr *lifecycle.ErrInvalidTransition
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, db.StatusRejected, terr.From)
	assert.Equal(t, db.StatusAccepted, terr.To)
	assert.Equal(t, 0, h.hub.Uploads())

	pending, err := h.svc.List(ctx, lifecycle.ListFilter{Status: db.StatusPending})
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestDecide_ConcurrentDecisionsCommitOnce(t *testing.T) {
	h := newHarness(t, lifecycletest.StaticExtractor{Text: "raw"})
	ctx := context.Background()
	sub, err := h.svc.Create(ctx, validInput())
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var succeeded int
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := h.svc.Decide(ctx, sub.ID, lifecycle.ActionAccept, strPtr("Only once.")); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, "Only once.", h.hub.File(repo, textFile))
	assert.Equal(t, 1, strings.Count(h.hub.File(repo, metadataFile), "\n"))
}

func TestDecide_Errors(t *testing.T) {
	h := newHarness(t, lifecycletest.StaticExtractor{Text: "raw"})
	ctx := context.Background()
	sub, err := h.svc.Create(ctx, validInput())
	require.NoError(t, err)

	t.Run("unknown action", func(t *testing.T) {
		_, err := h.svc.Decide(ctx, sub.ID, "approve", nil)
		var verr *lifecycle.ErrValidation
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "action", verr.Field)
	})

	t.Run("missing submission", func(t *testing.T) {
		_, err := h.svc.Decide(ctx, uuid.New(), lifecycle.ActionAccept, nil)
		var nerr *lifecycle.ErrSubmissionNotFound
		assert.ErrorAs(t, err, &nerr)
	})

	t.Run("blank accepted text", func(t *testing.T) {
		_, err := h.svc.Decide(ctx, sub.ID, lifecycle.ActionAccept, strPtr(" \n "))
		var verr *lifecycle.ErrValidation
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "edited_text", verr.Field)

		got, err := h.svc.Get(ctx, sub.ID)
		require.NoError(t, err)
		assert.Equal(t, db.StatusPending, got.Status)
	})
}

func TestDecide_MergeFailureLeavesReconciliation(t *testing.T) {
	h := newHarness(t, lifecycletest.StaticExtractor{Text: "raw"})
	ctx := context.Background()
	sub, err := h.svc.Create(ctx, validInput())
	require.NoError(t, err)

	h.hub.FailUploads(textFile, lifecycletest.ErrUnavailable)
	result, err := h.svc.Decide(ctx, sub.ID, lifecycle.ActionAccept, strPtr("Hi. Bye."))
	require.NoError(t, err, "decision commits even when the merge fails")

	assert.Equal(t, db.StatusAccepted, result.Submission.Status)
	assert.Nil(t, result.Submission.MergedAt)
	assert.Contains(t, result.MergeWarning, "queued for retry")

	recs, err := h.svc.OpenReconciliations(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, sub.ID, recs[0].SubmissionID)
	assert.True(t, recs[0].MetadataWritten)
	assert.False(t, recs[0].TextWritten)

	t.Run("retry writes only the missing artifact", func(t *testing.T) {
		h.hub.FailUploads(textFile, nil)
		before := h.hub.File(repo, metadataFile)

		merged, err := h.svc.RetryMerge(ctx, sub.ID)
		require.NoError(t, err)
		assert.NotNil(t, merged.MergedAt)
		assert.Equal(t, before, h.hub.File(repo, metadataFile))
		assert.Equal(t, "Hi.\nBye.", h.hub.File(repo, textFile))

		open, err := h.svc.OpenReconciliations(ctx)
		require.NoError(t, err)
		assert.Empty(t, open)
	})

	t.Run("retry after merge", func(t *testing.T) {
		_, err := h.svc.RetryMerge(ctx, sub.ID)
		var merr *lifecycle.ErrAlreadyMerged
		assert.ErrorAs(t, err, &merr)
	})
}

func TestRetryMerge_StaleCopyDoesNotWriteAgain(t *testing.T) {
	h := newHarness(t, lifecycletest.StaticExtractor{Text: "raw"})
	ctx := context.Background()
	sub, err := h.svc.Create(ctx, validInput())
	require.NoError(t, err)

	h.hub.FailUploads(textFile, lifecycletest.ErrUnavailable)
	_, err = h.svc.Decide(ctx, sub.ID, lifecycle.ActionAccept, strPtr("Hi. Bye."))
	require.NoError(t, err)
	h.hub.FailUploads(textFile, nil)

	// a reconciliation read by a scheduled run before the reviewer retried
	listed, err := h.svc.OpenReconciliations(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)

	_, err = h.svc.RetryMerge(ctx, sub.ID)
	require.NoError(t, err)
	uploads := h.hub.Uploads()

	err = h.engine.Resume(ctx, &listed[0])
	require.ErrorIs(t, err, corpus.ErrReconciliationStale)
	assert.Equal(t, uploads, h.hub.Uploads())
	assert.Equal(t, []string{"Hi.\nBye."}, corpus.TextEntries([]byte(h.hub.File(repo, textFile))))
	assert.Equal(t, 1, strings.Count(h.hub.File(repo, metadataFile), "\n"))
}

// racingMerger resolves a reconciliation through another copy just before the
// service's own attempt, the way a concurrent scheduled run would.
type racingMerger struct {
	*corpus.Engine
	once sync.Once
}

func (m *racingMerger) Resume(ctx context.Context, rec *corpus.Reconciliation) error {
	var err error
	m.once.Do(func() {
		other := *rec
		err = m.Engine.Resume(ctx, &other)
	})
	if err != nil {
		return err
	}
	return m.Engine.Resume(ctx, rec)
}

func TestRetryMerge_ResolvedConcurrently(t *testing.T) {
	h := newHarnessWith(t, lifecycletest.StaticExtractor{Text: "raw"}, func(e *corpus.Engine) lifecycle.Merger {
		return &racingMerger{Engine: e}
	})
	ctx := context.Background()
	sub, err := h.svc.Create(ctx, validInput())
	require.NoError(t, err)

	h.hub.FailUploads(textFile, lifecycletest.ErrUnavailable)
	_, err = h.svc.Decide(ctx, sub.ID, lifecycle.ActionAccept, strPtr("Hi. Bye."))
	require.NoError(t, err)
	h.hub.FailUploads(textFile, nil)

	merged, err := h.svc.RetryMerge(ctx, sub.ID)
	require.NoError(t, err)
	assert.NotNil(t, merged.MergedAt)
	assert.Equal(t, "Hi.\nBye.", h.hub.File(repo, textFile))

	open, err := h.svc.OpenReconciliations(ctx)
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestResumeOpen_SkipsReconciliationResolvedMeanwhile(t *testing.T) {
	h := newHarnessWith(t, lifecycletest.StaticExtractor{Text: "raw"}, func(e *corpus.Engine) lifecycle.Merger {
		return &racingMerger{Engine: e}
	})
	ctx := context.Background()
	sub, err := h.svc.Create(ctx, validInput())
	require.NoError(t, err)

	h.hub.FailUploads(textFile, lifecycletest.ErrUnavailable)
	_, err = h.svc.Decide(ctx, sub.ID, lifecycle.ActionAccept, strPtr("Hi."))
	require.NoError(t, err)
	h.hub.FailUploads(textFile, nil)

	report, err := h.svc.ResumeOpen(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Resolved, "the other run resolved it")
	assert.Empty(t, report.Failures)
	assert.Equal(t, []string{"Hi."}, corpus.TextEntries([]byte(h.hub.File(repo, textFile))))
}

func TestDecide_MarkMergedFailureIsRepairedWithoutRemerge(t *testing.T) {
	h := newHarness(t, lifecycletest.StaticExtractor{Text: "raw"})
	ctx := context.Background()
	sub, err := h.svc.Create(ctx, validInput())
	require.NoError(t, err)

	h.store.BeforeMarkMerged = func(uuid.UUID) error { return errors.New("connection reset") }
	result, err := h.svc.Decide(ctx, sub.ID, lifecycle.ActionAccept, strPtr("Hi. Bye."))
	require.NoError(t, err)
	require.NotNil(t, result.Merge)
	assert.Nil(t, result.Submission.MergedAt)
	assert.Contains(t, result.MergeWarning, "recording the merge failed")
	uploads := h.hub.Uploads()

	recs := h.store.Reconciliations()
	require.Len(t, recs, 1)
	assert.Equal(t, corpus.ReconciliationResolved, recs[0].Status)

	t.Run("retry keeps failing to stamp", func(t *testing.T) {
		_, err := h.svc.RetryMerge(ctx, sub.ID)
		require.Error(t, err)
		assert.Equal(t, uploads, h.hub.Uploads())
	})

	t.Run("retry stamps without merging again", func(t *testing.T) {
		h.store.BeforeMarkMerged = nil
		merged, err := h.svc.RetryMerge(ctx, sub.ID)
		require.NoError(t, err)
		assert.NotNil(t, merged.MergedAt)
		assert.Equal(t, uploads, h.hub.Uploads())
		assert.Equal(t, 1, strings.Count(h.hub.File(repo, metadataFile), "\n"))
		assert.Equal(t, "Hi.\nBye.", h.hub.File(repo, textFile))
	})
}

func TestDecide_MarkMergedIsRetried(t *testing.T) {
	h := newHarness(t, lifecycletest.StaticExtractor{Text: "raw"})
	ctx := context.Background()
	sub, err := h.svc.Create(ctx, validInput())
	require.NoError(t, err)

	calls := 0
	h.store.BeforeMarkMerged = func(uuid.UUID) error {
		calls++
		if calls == 1 {
			return errors.New("connection reset")
		}
		return nil
	}
	result, err := h.svc.Decide(ctx, sub.ID, lifecycle.ActionAccept, strPtr("Hi."))
	require.NoError(t, err)
	assert.Empty(t, result.MergeWarning)
	assert.NotNil(t, result.Submission.MergedAt)
	assert.Equal(t, 2, calls)
}

func TestRetryMerge_RequiresAcceptedSubmission(t *testing.T) {
	h := newHarness(t, lifecycletest.StaticExtractor{Text: "raw"})
	ctx := context.Background()
	sub, err := h.svc.Create(ctx, validInput())
	require.NoError(t, err)

	_, err = h.svc.RetryMerge(ctx, sub.ID)
	var terr *lifecycle.ErrInvalidTransition
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, db.StatusPending, terr.From)
}

func TestResumeOpen(t *testing.T) {
	h := newHarness(t, lifecycletest.StaticExtractor{Text: "raw"})
	ctx := context.Background()

	h.hub.FailUploads(metadataFile, lifecycletest.ErrUnavailable)
	var ids []uuid.UUID
	for i := 0; i < 2; i++ {
		sub, err := h.svc.Create(ctx, validInput())
		require.NoError(t, err)
		result, err := h.svc.Decide(ctx, sub.ID, lifecycle.ActionAccept, strPtr("Text."))
		require.NoError(t, err)
		require.NotEmpty(t, result.MergeWarning)
		ids = append(ids, sub.ID)
	}

	report, err := h.svc.ResumeOpen(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Resolved)
	assert.Len(t, report.Failures, 2)

	h.hub.FailUploads(metadataFile, nil)
	report, err = h.svc.ResumeOpen(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Resolved)
	assert.Empty(t, report.Failures)

	for _, id := range ids {
		sub, err := h.svc.Get(ctx, id)
		require.NoError(t, err)
		assert.NotNil(t, sub.MergedAt)
	}
	assert.Equal(t, 2, strings.Count(h.hub.File(repo, metadataFile), "\n"))
	assert.Equal(t, "Text.\n\nText.", h.hub.File(repo, textFile))
}

func TestResumeOpen_SkipsOtherRepositories(t *testing.T) {
	h := newHarness(t, lifecycletest.StaticExtractor{Text: "raw"})
	ctx := context.Background()
	require.NoError(t, h.store.RecordReconciliation(ctx, &corpus.Reconciliation{
		SubmissionID:  uuid.New(),
		RepoID:        "org/other",
		RecordLine:    "{}",
		FormattedText: "x",
	}))

	report, err := h.svc.ResumeOpen(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Resolved)
	assert.Empty(t, report.Failures)
	assert.Equal(t, 0, h.hub.Uploads())
}

func TestEdit(t *testing.T) {
	h := newHarness(t, lifecycletest.StaticExtractor{Text: "raw"})
	ctx := context.Background()

	_, err := h.svc.Edit(ctx, uuid.New(), "text")
	var nerr *lifecycle.ErrSubmissionNotFound
	require.ErrorAs(t, err, &nerr)

	sub, err := h.svc.Create(ctx, validInput())
	require.NoError(t, err)
	edited, err := h.svc.Edit(ctx, sub.ID, "better text")
	require.NoError(t, err)
	assert.Equal(t, "better text", edited.EditedText)
	assert.Equal(t, "raw", edited.ExtractedText)
	assert.Equal(t, db.StatusPending, edited.Status)
}

func TestList(t *testing.T) {
	h := newHarness(t, lifecycletest.StaticExtractor{Text: "raw"})
	ctx := context.Background()

	first := validInput()
	first.Subject = "Dîroka Botan"
	second := validInput()
	second.Subject = "Helbestên nû"
	a, err := h.svc.Create(ctx, first)
	require.NoError(t, err)
	b, err := h.svc.Create(ctx, second)
	require.NoError(t, err)

	all, err := h.svc.List(ctx, lifecycle.ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, b.ID, all[0].ID, "newest first")
	assert.Equal(t, a.ID, all[1].ID)

	found, err := h.svc.List(ctx, lifecycle.ListFilter{Search: "botan"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, a.ID, found[0].ID)

	_, err = h.svc.List(ctx, lifecycle.ListFilter{Status: "archived"})
	var verr *lifecycle.ErrValidation
	assert.ErrorAs(t, err, &verr)

	_, err = h.svc.List(ctx, lifecycle.ListFilter{Limit: -1})
	assert.ErrorAs(t, err, &verr)
	_, err = h.svc.List(ctx, lifecycle.ListFilter{Offset: -1})
	assert.ErrorAs(t, err, &verr)
}

func TestList_NoLimitReturnsEverything(t *testing.T) {
	h := newHarness(t, lifecycletest.StaticExtractor{Text: "raw"})
	ctx := context.Background()
	const total = 60
	for i := 0; i < total; i++ {
		_, err := h.svc.Create(ctx, validInput())
		require.NoError(t, err)
	}

	all, err := h.svc.List(ctx, lifecycle.ListFilter{Status: db.StatusPending})
	require.NoError(t, err)
	assert.Len(t, all, total)

	page, err := h.svc.List(ctx, lifecycle.ListFilter{Status: db.StatusPending, Limit: 20, Offset: 50})
	require.NoError(t, err)
	require.Len(t, page, 10)
	assert.Equal(t, all[50].ID, page[0].ID)

	past, err := h.svc.List(ctx, lifecycle.ListFilter{Offset: total})
	require.NoError(t, err)
	assert.Empty(t, past)
}

func TestDelete(t *testing.T) {
	h := newHarness(t, lifecycletest.StaticExtractor{Text: "raw"})
	ctx := context.Background()
	sub, err := h.svc.Create(ctx, validInput())
	require.NoError(t, err)

	require.NoError(t, h.svc.Delete(ctx, sub.ID))
	assert.False(t, h.blobs.Has(sub.PDFKey))

	_, err = h.svc.Get(ctx, sub.ID)
	var nerr *lifecycle.ErrSubmissionNotFound
	assert.ErrorAs(t, err, &nerr)

	err = h.svc.Delete(ctx, sub.ID)
	assert.ErrorAs(t, err, &nerr)
}

func TestPDFURL(t *testing.T) {
	h := newHarness(t, lifecycletest.StaticExtractor{Text: "raw"})
	ctx := context.Background()
	sub, err := h.svc.Create(ctx, validInput())
	require.NoError(t, err)

	link, err := h.svc.PDFURL(ctx, sub)
	require.NoError(t, err)
	assert.Equal(t, "https://blobs.test/"+sub.PDFKey, link)

	link, err = h.svc.PDFURL(ctx, &db.Submission{})
	require.NoError(t, err)
	assert.Empty(t, link)
}
