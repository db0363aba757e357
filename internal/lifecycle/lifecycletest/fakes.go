// Package lifecycletest provides in-memory collaborators for lifecycle and server tests.
package lifecycletest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/happyhackingspace/kurdish-dataset/internal/corpus"
	"github.com/happyhackingspace/kurdish-dataset/internal/db"
	"github.com/happyhackingspace/kurdish-dataset/internal/hub"
)

// MemoryStore implements the submission store and the reconciliation ledger in memory.
type MemoryStore struct {
	mu   sync.Mutex
	subs map[uuid.UUID]*db.Submission
	seq  map[uuid.UUID]int
	recs []*corpus.Reconciliation
	next int

	// Now stamps created_at and updated_at. Each call on the default clock is one second later.
	Now func() time.Time
	// FailCreate, when set, is returned by CreateSubmission.
	FailCreate error
	// BeforeMarkMerged, when set, runs first in MarkMerged; an error it returns fails the call.
	BeforeMarkMerged func(id uuid.UUID) error
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	var tick int
	return &MemoryStore{
		subs: make(map[uuid.UUID]*db.Submission),
		seq:  make(map[uuid.UUID]int),
		Now: func() time.Time {
			tick++
			return base.Add(time.Duration(tick) * time.Second)
		},
	}
}

func clone(s *db.Submission) *db.Submission {
	c := *s
	return &c
}

func (m *MemoryStore) CreateSubmission(_ context.Context, s *db.Submission) (*db.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailCreate != nil {
		return nil, m.FailCreate
	}
	c := clone(s)
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	now := m.Now()
	c.Status = db.StatusPending
	c.CreatedAt, c.UpdatedAt = now, now
	c.DecidedAt, c.MergedAt = nil, nil
	m.subs[c.ID] = c
	m.next++
	m.seq[c.ID] = m.next
	return clone(c), nil
}

func (m *MemoryStore) GetSubmission(_ context.Context, id uuid.UUID) (*db.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[id]
	if !ok {
		return nil, nil
	}
	return clone(s), nil
}

func (m *MemoryStore) UpdateEditedText(_ context.Context, id uuid.UUID, text string) (*db.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[id]
	if !ok {
		return nil, nil
	}
	s.EditedText = text
	s.UpdatedAt = m.Now()
	return clone(s), nil
}

func (m *MemoryStore) DecideSubmission(_ context.Context, id uuid.UUID, status, text string) (*db.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[id]
	if !ok || s.Status != db.StatusPending {
		return nil, nil
	}
	now := m.Now()
	s.Status = status
	s.EditedText = text
	s.DecidedAt = &now
	s.UpdatedAt = now
	return clone(s), nil
}

func (m *MemoryStore) MarkMerged(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.BeforeMarkMerged != nil {
		if err := m.BeforeMarkMerged(id); err != nil {
			return err
		}
	}
	s, ok := m.subs[id]
	if !ok || s.Status != db.StatusAccepted {
		return fmt.Errorf("accepted submission not found: %s", id)
	}
	now := m.Now()
	s.MergedAt = &now
	s.UpdatedAt = now
	return nil
}

func (m *MemoryStore) DeleteSubmission(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subs[id]; !ok {
		return fmt.Errorf("submission not found: %s", id)
	}
	delete(m.subs, id)
	delete(m.seq, id)
	return nil
}

func (m *MemoryStore) ListSubmissions(_ context.Context, f db.SubmissionFilters) ([]db.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	search := strings.ToLower(strings.TrimSpace(f.Search))
	var out []db.Submission
	for _, s := range m.subs {
		if f.Status != "" && s.Status != f.Status {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(s.Subject), search) &&
			!strings.Contains(strings.ToLower(s.Name), search) &&
			!strings.Contains(strings.ToLower(s.Email), search) {
			continue
		}
		out = append(out, *clone(s))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return m.seq[out[i].ID] > m.seq[out[j].ID]
	})
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return nil, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *MemoryStore) RecordReconciliation(_ context.Context, r *corpus.Reconciliation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = uuid.New()
	if r.Status == "" {
		r.Status = corpus.ReconciliationOpen
	}
	c := *r
	m.recs = append(m.recs, &c)
	return nil
}

func (m *MemoryStore) find(id uuid.UUID) *corpus.Reconciliation {
	for _, stored := range m.recs {
		if stored.ID == id {
			return stored
		}
	}
	return nil
}

func (m *MemoryStore) ClaimReconciliation(_ context.Context, r *corpus.Reconciliation) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := m.find(r.ID)
	if stored == nil || stored.Status != corpus.ReconciliationOpen || stored.Attempts != r.Attempts {
		return false, nil
	}
	stored.Attempts++
	stored.UpdatedAt = m.Now()
	*r = *stored
	return true, nil
}

func (m *MemoryStore) UpdateReconciliation(_ context.Context, r *corpus.Reconciliation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := m.find(r.ID)
	if stored == nil || stored.Status != corpus.ReconciliationOpen || stored.Attempts != r.Attempts {
		return fmt.Errorf("reconciliation %s: %w", r.ID, corpus.ErrReconciliationStale)
	}
	*stored = *r
	return nil
}

func (m *MemoryStore) ListOpenReconciliations(_ context.Context) ([]corpus.Reconciliation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []corpus.Reconciliation
	for _, r := range m.recs {
		if r.Status == corpus.ReconciliationOpen {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *MemoryStore) GetOpenReconciliation(_ context.Context, submissionID uuid.UUID) (*corpus.Reconciliation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.recs) - 1; i >= 0; i-- {
		r := m.recs[i]
		if r.SubmissionID == submissionID && r.Status == corpus.ReconciliationOpen {
			c := *r
			return &c, nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) GetResolvedReconciliation(_ context.Context, submissionID uuid.UUID) (*corpus.Reconciliation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.recs) - 1; i >= 0; i-- {
		r := m.recs[i]
		if r.SubmissionID == submissionID && r.Status == corpus.ReconciliationResolved {
			c := *r
			return &c, nil
		}
	}
	return nil, nil
}

// Reconciliations returns every stored reconciliation in insertion order.
func (m *MemoryStore) Reconciliations() []corpus.Reconciliation {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]corpus.Reconciliation, 0, len(m.recs))
	for _, r := range m.recs {
		out = append(out, *r)
	}
	return out
}

// MemoryBlobs is an in-memory blob store.
type MemoryBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string

	FailUpload error
	FailRemove error
}

// NewMemoryBlobs returns an empty blob store.
func NewMemoryBlobs() *MemoryBlobs {
	return &MemoryBlobs{objects: make(map[string][]byte), types: make(map[string]string)}
}

func (b *MemoryBlobs) Upload(_ context.Context, key string, data []byte, contentType string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.FailUpload != nil {
		return b.FailUpload
	}
	b.objects[key] = append([]byte(nil), data...)
	b.types[key] = contentType
	return nil
}

func (b *MemoryBlobs) URL(_ context.Context, key string) (string, error) {
	return "https://blobs.test/" + key, nil
}

func (b *MemoryBlobs) Remove(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.FailRemove != nil {
		return b.FailRemove
	}
	delete(b.objects, key)
	delete(b.types, key)
	return nil
}

// Has reports whether an object is stored under key.
func (b *MemoryBlobs) Has(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.objects[key]
	return ok
}

// ContentType returns the content type an object was uploaded with.
func (b *MemoryBlobs) ContentType(key string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.types[key]
}

// Len returns the number of stored objects.
func (b *MemoryBlobs) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.objects)
}

// StaticExtractor returns a fixed result for every document.
type StaticExtractor struct {
	Text string
	Err  error
}

func (x StaticExtractor) Extract([]byte) (string, error) {
	return x.Text, x.Err
}

// ErrUnavailable is a transient hub failure for tests.
var ErrUnavailable = errors.New("hub unavailable")

// MemoryHub is an in-memory dataset hub keyed by repository and file name.
type MemoryHub struct {
	mu         sync.Mutex
	files      map[string][]byte
	failUpload map[string]error
	uploads    int
}

// NewMemoryHub returns a hub with no files.
func NewMemoryHub() *MemoryHub {
	return &MemoryHub{files: make(map[string][]byte), failUpload: make(map[string]error)}
}

func (h *MemoryHub) Download(_ context.Context, repoID, filename string) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	data, ok := h.files[repoID+"/"+filename]
	if !ok {
		return nil, hub.ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (h *MemoryHub) Upload(_ context.Context, repoID, filename string, content []byte, _ string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.failUpload[filename]; err != nil {
		return err
	}
	h.files[repoID+"/"+filename] = append([]byte(nil), content...)
	h.uploads++
	return nil
}

// FailUploads makes uploads of filename return err; a nil err clears the failure.
func (h *MemoryHub) FailUploads(filename string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err == nil {
		delete(h.failUpload, filename)
		return
	}
	h.failUpload[filename] = err
}

// File returns the current content of a file.
func (h *MemoryHub) File(repoID, filename string) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return string(h.files[repoID+"/"+filename])
}

// Put sets the content of a file.
func (h *MemoryHub) Put(repoID, filename string, content string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.files[repoID+"/"+filename] = []byte(content)
}

// Uploads returns the number of successful uploads.
func (h *MemoryHub) Uploads() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.uploads
}
