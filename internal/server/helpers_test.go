package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/happyhackingspace/kurdish-dataset/internal/config"
	"github.com/happyhackingspace/kurdish-dataset/internal/corpus"
	"github.com/happyhackingspace/kurdish-dataset/internal/db"
	"github.com/happyhackingspace/kurdish-dataset/internal/lifecycle"
	"github.com/happyhackingspace/kurdish-dataset/internal/lifecycle/lifecycletest"
	"github.com/happyhackingspace/kurdish-dataset/internal/observability"
	"github.com/happyhackingspace/kurdish-dataset/internal/server/ratelimit"
	"github.com/happyhackingspace/kurdish-dataset/internal/types"
)

const (
	testRepo     = "org/kurmanji"
	testPassword = "correct-horse-battery"
)

type memoryReviewers struct {
	mu        sync.Mutex
	reviewers map[uuid.UUID]*db.Reviewer
}

func newMemoryReviewers() *memoryReviewers {
	return &memoryReviewers{reviewers: make(map[uuid.UUID]*db.Reviewer)}
}

func (m *memoryReviewers) CreateReviewer(_ context.Context, name, email, hash string) (*db.Reviewer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email = strings.ToLower(email)
	for _, r := range m.reviewers {
		if r.Email == email {
			return nil, db.ErrDuplicateEmail
		}
	}
	r := &db.Reviewer{ID: uuid.New(), Name: name, Email: email, PasswordHash: hash, CreatedAt: time.Now()}
	m.reviewers[r.ID] = r
	c := *r
	return &c, nil
}

func (m *memoryReviewers) GetReviewer(_ context.Context, id uuid.UUID) (*db.Reviewer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reviewers[id]
	if !ok {
		return nil, nil
	}
	c := *r
	return &c, nil
}

func (m *memoryReviewers) GetReviewerByEmail(_ context.Context, email string) (*db.Reviewer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reviewers {
		if r.Email == strings.ToLower(email) {
			c := *r
			return &c, nil
		}
	}
	return nil, nil
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type testEnv struct {
	server    *Server
	handler   http.Handler
	store     *lifecycletest.MemoryStore
	blobs     *lifecycletest.MemoryBlobs
	hub       *lifecycletest.MemoryHub
	reviewers *ReviewerService
	tokens    *SessionTokens
	metrics   *observability.Metrics
	token     string
}

type envOption func(*Config, *Dependencies)

func withRateLimit(cfg *ratelimit.Config) envOption {
	return func(_ *Config, d *Dependencies) { d.RateLimit = cfg }
}

func withHealth(p Pinger) envOption {
	return func(_ *Config, d *Dependencies) { d.Health = p }
}

func withMaxUpload(n int64) envOption {
	return func(c *Config, _ *Dependencies) { c.MaxUploadBytes = n }
}

func newTestEnv(t *testing.T, extractor lifecycle.Extractor, opts ...envOption) *testEnv {
	t.Helper()
	store := lifecycletest.NewMemoryStore()
	blobs := lifecycletest.NewMemoryBlobs()
	h := lifecycletest.NewMemoryHub()
	metrics := observability.NewMetrics()

	engine := corpus.NewEngine(h, corpus.Options{
		RepoID:       testRepo,
		MetadataFile: "kurmanji.json",
		TextFile:     "kurmanji.txt",
		Location:     time.FixedZone("+03", 3*60*60),
		Ledger:       store,
	})
	svc := lifecycle.NewService(lifecycle.Deps{
		Store:           store,
		Reconciliations: store,
		Blobs:           blobs,
		Extractor:       extractor,
		Merger:          engine,
		KeyPrefix:       "pdfs",
		Metrics:         metrics,
	})

	passwords := &config.PasswordConfig{BcryptCost: bcrypt.MinCost}
	reviewers := NewReviewerService(newMemoryReviewers(), passwords)
	tokens := NewSessionTokens(&config.JWTConfig{Secret: "test-secret-with-enough-length", ExpirationHours: 1})

	cfg := Config{Port: 0}
	deps := Dependencies{
		Lifecycle: svc,
		Reviewers: reviewers,
		Tokens:    tokens,
		Metrics:   metrics,
		RateLimit: &ratelimit.Config{Enabled: false},
	}
	for _, opt := range opts {
		opt(&cfg, &deps)
	}
	srv := New(cfg, deps)
	t.Cleanup(srv.Close)

	reviewer, err := reviewers.Create(context.Background(), &types.CreateReviewerRequest{Name: "Berfin", Email: "berfin@example.com", Password: testPassword})
	require.NoError(t, err)
	token, err := tokens.Issue(reviewer.ID)
	require.NoError(t, err)

	return &testEnv{
		server:    srv,
		handler:   srv.Handler(),
		store:     store,
		blobs:     blobs,
		hub:       h,
		reviewers: reviewers,
		tokens:    tokens,
		metrics:   metrics,
		token:     token,
	}
}

func (e *testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func (e *testEnv) panel(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	req := jsonRequest(t, method, path, body)
	req.Header.Set("Authorization", "Bearer "+e.token)
	return e.do(t, req)
}

func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

// uploadRequest builds a multipart upload. An empty filename omits the file part.
func uploadRequest(t *testing.T, fields map[string]string, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		part, err := mw.CreateFormFile("pdf_file", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/submissions", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func validFields() map[string]string {
	return map[string]string{
		"name":      "Rojda",
		"email":     "rojda@example.com",
		"subject":   "Çîrokên gundê me",
		"text_type": "literature",
	}
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

// createSubmission uploads a document and returns its id.
func (e *testEnv) createSubmission(t *testing.T) string {
	t.Helper()
	w := e.do(t, uploadRequest(t, validFields(), "cirok.pdf", []byte("%PDF-1.4")))
	require.Equal(t, http.StatusSeeOther, w.Code, w.Body.String())
	var body struct {
		ID string `json:"id"`
	}
	decode(t, w, &body)
	return body.ID
}
