package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stacksift/api/internal/ai"
	"github.com/stacksift/api/internal/auth"
	"github.com/stacksift/api/internal/collection"
	"github.com/stacksift/api/internal/email"
	"github.com/stacksift/api/internal/storage"
	"github.com/stacksift/api/internal/testutil"
	"github.com/stacksift/api/internal/user"
	"github.com/stacksift/api/internal/website"
)

type fakeSuggester struct {
	mu      sync.Mutex
	results []ai.Suggestion
	err     error
	queries []string
}

func (f *fakeSuggester) Suggest(_ context.Context, query string) ([]ai.Suggestion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	return f.results, f.err
}

type recordingSender struct {
	mu   sync.Mutex
	sent []email.Message
}

func (s *recordingSender) Send(_ context.Context, m email.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, m)
	return nil
}

type testEnv struct {
	h         *Handler
	db        *sql.DB
	suggester *fakeSuggester
	sender    *recordingSender
	tokens    *auth.TokenService
}

// testHandler creates a fully-wired Handler backed by an in-memory SQLite database.
func testHandler(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.TestDB(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	userRepo := user.NewRepository(db)
	websiteRepo := website.NewRepository(db)
	tokens := auth.NewTokenService("test-access", "test-refresh", 30*time.Minute, 7*24*time.Hour)
	authService := auth.NewService(userRepo, tokens, nil, 4)

	avatars, err := storage.NewLocalStore(t.TempDir(), "/api/v1/avatars")
	if err != nil {
		t.Fatalf("creating avatar store: %v", err)
	}

	suggester := &fakeSuggester{}
	sender := &recordingSender{}

	h := New(Dependencies{
		AuthService:    authService,
		UserRepo:       userRepo,
		WebsiteRepo:    websiteRepo,
		WebsiteService: website.NewService(websiteRepo, nil, nil, logger),
		CollectionRepo: collection.NewRepository(db),
		Suggester:      suggester,
		EmailService:   email.NewServiceWithSender(sender, "support@stacksift.dev", true),
		Avatars:        avatars,
		Logger:         logger,
	})

	return &testEnv{h: h, db: db, suggester: suggester, sender: sender, tokens: tokens}
}

// newRequest builds a JSON request. A non-empty userID simulates what
// TokenMiddleware attaches for an authenticated caller.
func newRequest(t *testing.T, method, target string, body any, userID string) *http.Request {
	t.Helper()

	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, r)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req = req.WithContext(auth.WithUserID(req.Context(), userID))
	}
	return req
}

// withURLParam attaches a chi URL parameter as the router would.
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func serve(handler http.HandlerFunc, r *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	handler(rec, r)
	return rec
}

func decodeResponse[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("response is not valid JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return v
}

func expectError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) apiErrorResponse {
	t.Helper()

	if rec.Code != status {
		t.Fatalf("status = %d, want %d (body: %s)", rec.Code, status, rec.Body.String())
	}
	resp := decodeResponse[apiErrorResponse](t, rec)
	if resp.Error.Code != code {
		t.Errorf("error code = %q, want %q", resp.Error.Code, code)
	}
	return resp
}
