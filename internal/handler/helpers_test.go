package handler_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sort-storage/admin/internal/auth"
	"github.com/sort-storage/admin/internal/backend"
	"github.com/sort-storage/admin/internal/cache"
	"github.com/sort-storage/admin/internal/middleware"
)

// --- Fake upstream ---

type upstreamCall struct {
	Method string
	Path   string // escaped form as received
	Query  string
	Body   string
	Auth   string
}

type fakeUpstream struct {
	mu     sync.Mutex
	calls  []upstreamCall
	status int
	body   string
	server *httptest.Server
}

func newFakeUpstream(t *testing.T, status int, body string) *fakeUpstream {
	t.Helper()
	f := &fakeUpstream{status: status, body: body}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.calls = append(f.calls, upstreamCall{
			Method: r.Method,
			Path:   r.URL.EscapedPath(),
			Query:  r.URL.RawQuery,
			Body:   string(data),
			Auth:   r.Header.Get("Authorization"),
		})
		status, body := f.status, f.body
		f.mu.Unlock()
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeUpstream) client() *backend.Client {
	return backend.New("storage", f.server.URL, backend.Options{Timeout: 2 * time.Second, RetryDelay: time.Millisecond})
}

func (f *fakeUpstream) lastCall(t *testing.T) upstreamCall {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		t.Fatal("upstream was not called")
	}
	return f.calls[len(f.calls)-1]
}

func (f *fakeUpstream) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// --- Fake invalidator ---

type recordingInvalidator struct {
	keys []string
}

func (r *recordingInvalidator) Invalidate(_ context.Context, keys ...cache.Key) {
	for _, k := range keys {
		r.keys = append(r.keys, k.String())
	}
}

// --- Request helpers ---

const testToken = "upstream-token"

func withSession(r *http.Request) *http.Request {
	s := &auth.Session{Token: testToken, Claims: &auth.Claims{AccountType: "admin", Email: "ops@example.com"}}
	s.Claims.Subject = "auth0|admin"
	return r.WithContext(middleware.WithSession(r.Context(), s))
}

func serve(t *testing.T, mount func(chi.Router), method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	mount(r)

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := withSession(httptest.NewRequest(method, target, reader))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func errorOf(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp["error"]
}
