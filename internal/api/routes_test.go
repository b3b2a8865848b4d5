package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/NikitosKh/clipbot/internal/journal"
)

const testToken = "local-test-token"

type fakeRepo struct {
	requests []*journal.Request
	config   map[string]string
}

func (f *fakeRepo) CreateRequest(ctx context.Context, req *journal.Request) error { return nil }

func (f *fakeRepo) GetRequest(ctx context.Context, id string) (*journal.Request, error) {
	for _, r := range f.requests {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) ListRequests(ctx context.Context, limit int) ([]*journal.Request, error) {
	if limit > len(f.requests) {
		limit = len(f.requests)
	}
	return f.requests[:limit], nil
}

func (f *fakeRepo) CountRequests(ctx context.Context) (int, error) {
	return len(f.requests), nil
}

func (f *fakeRepo) UpdateRequestStatus(ctx context.Context, id, status, errorMsg string) error {
	return nil
}

func (f *fakeRepo) GetConfig(ctx context.Context, key string) (string, error) {
	return f.config[key], nil
}

func (f *fakeRepo) SetConfig(ctx context.Context, key, value string) error {
	f.config[key] = value
	return nil
}

func seededRepo() *fakeRepo {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	return &fakeRepo{
		config: map[string]string{APITokenKey: testToken},
		requests: []*journal.Request{
			{
				ID: "req-2", ChatID: 42, SourceURL: "https://youtu.be/def",
				StartSeconds: 0, EndSeconds: 10,
				Status: journal.StatusExtracting, CreatedAt: now,
			},
			{
				ID: "req-1", ChatID: 42, SourceURL: "https://youtu.be/abc",
				StartSeconds: 30, EndSeconds: 75,
				Status: journal.StatusFailed, Error: "could not resolve the video",
				CreatedAt: now.Add(-time.Minute), UpdatedAt: now,
			},
		},
	}
}

func testRouter(repo journal.Repository) http.Handler {
	return NewRouter(ServerConfig{
		Port:       0,
		Repository: repo,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		StartTime:  time.Now().Add(-time.Minute),
		Version:    "0.1.0",
		Workers:    4,
	})
}

func doRequest(t *testing.T, h http.Handler, method, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth_NoAuthRequired(t *testing.T) {
	rec := doRequest(t, testRouter(seededRepo()), http.MethodGet, "/health", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" || resp.Version != "0.1.0" {
		t.Errorf("resp = %+v", resp)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}

func TestAuth_Rejections(t *testing.T) {
	router := testRouter(seededRepo())

	tests := []struct {
		name  string
		token string
	}{
		{"missing token", ""},
		{"wrong token", "not-the-token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, router, http.MethodGet, "/status", tt.token)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
			var resp ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Code != "UNAUTHORIZED" {
				t.Errorf("code = %q", resp.Code)
			}
		})
	}
}

func TestAuth_MalformedHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("Authorization", "Basic abc")
	rec := httptest.NewRecorder()
	testRouter(seededRepo()).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestStatus(t *testing.T) {
	rec := doRequest(t, testRouter(seededRepo()), http.MethodGet, "/status", testToken)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp StatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.State != "clipping" {
		t.Errorf("state = %q, want clipping", resp.State)
	}
	if resp.ActiveRequests != 1 || resp.RequestsTotal != 2 {
		t.Errorf("counts = %+v", resp)
	}
	if resp.LastError != "could not resolve the video" {
		t.Errorf("last_error = %q", resp.LastError)
	}
	if resp.Workers != 4 {
		t.Errorf("workers = %d", resp.Workers)
	}
}

func TestStatus_IdleWithErrorBecomesError(t *testing.T) {
	repo := seededRepo()
	repo.requests[0].Status = journal.StatusCompleted

	rec := doRequest(t, testRouter(repo), http.MethodGet, "/status", testToken)

	var resp StatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.State != "error" {
		t.Errorf("state = %q, want error", resp.State)
	}
}

func TestListRequests(t *testing.T) {
	rec := doRequest(t, testRouter(seededRepo()), http.MethodGet, "/requests", testToken)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp RequestsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Requests) != 2 {
		t.Fatalf("len = %d, want 2", len(resp.Requests))
	}
	first := resp.Requests[0]
	if first.ID != "req-2" || first.Status != journal.StatusExtracting {
		t.Errorf("first = %+v", first)
	}
	if first.CreatedAt == "" {
		t.Error("created_at missing")
	}
}

func TestGetRequest(t *testing.T) {
	router := testRouter(seededRepo())

	rec := doRequest(t, router, http.MethodGet, "/requests/req-1", testToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp RequestResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.SourceURL != "https://youtu.be/abc" || resp.Error != "could not resolve the video" {
		t.Errorf("resp = %+v", resp)
	}

	rec = doRequest(t, router, http.MethodGet, "/requests/missing", testToken)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := RecoveryMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}
