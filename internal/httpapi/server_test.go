package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"wizqueue/internal/config"
	"wizqueue/internal/httpapi"
	"wizqueue/internal/invoice"
	"wizqueue/internal/logging"
	"wizqueue/internal/processing"
	"wizqueue/internal/queue"
	"wizqueue/internal/storage"
	"wizqueue/internal/testsupport"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeDispatcher struct {
	mu    sync.Mutex
	tasks []processing.Task
	err   error
}

func (d *fakeDispatcher) Dispatch(_ context.Context, task processing.Task) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.tasks = append(d.tasks, task)
	return nil
}

func (d *fakeDispatcher) Close() error { return nil }

func (d *fakeDispatcher) dispatched() []processing.Task {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]processing.Task(nil), d.tasks...)
}

type fakeTracker struct {
	running   map[int64]bool
	cancelled []int64
}

func (f *fakeTracker) Snapshot() []processing.TaskInfo {
	out := make([]processing.TaskInfo, 0, len(f.running))
	for id := range f.running {
		out = append(out, processing.TaskInfo{InvoiceID: id, State: processing.TaskRunning})
	}
	return out
}

func (f *fakeTracker) Cancel(id int64) bool {
	if !f.running[id] {
		return false
	}
	f.cancelled = append(f.cancelled, id)
	return true
}

func (f *fakeTracker) InFlight(id int64) bool { return f.running[id] }

type fakeCheck struct{ err error }

func (f fakeCheck) HealthCheck(context.Context) error { return f.err }

type env struct {
	cfg        *config.Config
	db         *storage.DB
	queue      *queue.Store
	invoices   *invoice.Store
	dispatcher *fakeDispatcher
	tracker    *fakeTracker
	handler    http.Handler
}

func newEnv(t *testing.T, opts ...testsupport.ConfigOption) *env {
	t.Helper()
	return newEnvWith(t, nil, opts...)
}

func newEnvWith(t *testing.T, mutate func(*config.Config), opts ...testsupport.ConfigOption) *env {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	if mutate != nil {
		mutate(cfg)
	}
	db := testsupport.MustOpenDB(t, cfg)
	e := &env{
		cfg:        cfg,
		db:         db,
		queue:      queue.NewStore(db),
		invoices:   invoice.NewStore(db),
		dispatcher: &fakeDispatcher{},
		tracker:    &fakeTracker{running: map[int64]bool{}},
	}
	srv, err := httpapi.New(cfg, httpapi.Deps{
		Queue:      e.queue,
		Invoices:   e.invoices,
		Dispatcher: e.dispatcher,
		Tasks:      e.tracker,
		DB:         db,
		Model:      fakeCheck{},
	}, logging.NewNop())
	if err != nil {
		t.Fatalf("httpapi.New: %v", err)
	}
	e.handler = srv.Handler()
	return e
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

func (e *env) do(t *testing.T, method, path string, body any, headers ...string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		payload, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	return e.serve(t, req)
}

func (e *env) serve(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	var env envelope
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("decode data %s: %v", raw, err)
	}
	return out
}

func TestNewRequiresDependencies(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if _, err := httpapi.New(cfg, httpapi.Deps{}, logging.NewNop()); err == nil {
		t.Fatal("expected error for missing dependencies")
	}
}

func TestRootAndUnknownRoute(t *testing.T) {
	e := newEnv(t)

	rec, _ := e.do(t, http.MethodGet, "/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET / status = %d", rec.Code)
	}
	var info map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatalf("decode info: %v", err)
	}
	if info["name"] != "WizQueue API" {
		t.Fatalf("name = %v", info["name"])
	}

	rec, body := e.do(t, http.MethodGet, "/api/nope", nil)
	if rec.Code != http.StatusNotFound || body.Success {
		t.Fatalf("unknown route = %d %+v", rec.Code, body)
	}
	if body.Message != "Cannot GET /api/nope" {
		t.Fatalf("message = %q", body.Message)
	}
}

func TestRequestIDHeader(t *testing.T) {
	e := newEnv(t)

	rec, _ := e.do(t, http.MethodGet, "/api/queue", nil, "X-Request-ID", "abc-123")
	if got := rec.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Fatalf("echoed request id = %q", got)
	}
	rec, _ = e.do(t, http.MethodGet, "/api/queue", nil)
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected generated request id")
	}
}

func TestCORSPreflight(t *testing.T) {
	e := newEnvWith(t, func(cfg *config.Config) {
		cfg.API.CORSOrigins = []string{"http://app.local"}
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/queue", nil)
	req.Header.Set("Origin", "http://app.local")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://app.local" {
		t.Fatalf("allow origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/queue", nil)
	req.Header.Set("Origin", "http://evil.local")
	rec = httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unexpected allow origin %q", got)
	}
}

func TestHealth(t *testing.T) {
	e := newEnv(t)
	rec, _ := e.do(t, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d body=%s", rec.Code, rec.Body.String())
	}
	var report struct {
		Status   string            `json:"status"`
		Services map[string]string `json:"services"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if report.Status != "healthy" || report.Services["database"] != "connected" || report.Services["ollama"] != "connected" {
		t.Fatalf("unexpected report %+v", report)
	}

	cfg := testsupport.NewConfig(t)
	db := testsupport.MustOpenDB(t, cfg)
	srv, err := httpapi.New(cfg, httpapi.Deps{
		Queue:      queue.NewStore(db),
		Invoices:   invoice.NewStore(db),
		Dispatcher: &fakeDispatcher{},
		DB:         db,
		Model:      fakeCheck{err: errors.New("connection refused")},
	}, logging.NewNop())
	if err != nil {
		t.Fatalf("httpapi.New: %v", err)
	}
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("unhealthy status = %d", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if report.Status != "unhealthy" || report.Services["ollama"] != "disconnected" {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestAuth(t *testing.T) {
	const secret = "jwt-secret"
	valid, _, err := httpapi.IssueToken(secret, "cli", 0)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	forged, _, err := httpapi.IssueToken("other-secret", "cli", 0)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	e := newEnvWith(t, func(cfg *config.Config) {
		cfg.API.Token = "static-token"
		cfg.API.JWTSecret = secret
	})

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "missing header", header: "", want: http.StatusUnauthorized},
		{name: "static token", header: "Bearer static-token", want: http.StatusOK},
		{name: "jwt", header: "Bearer " + valid, want: http.StatusOK},
		{name: "wrong secret", header: "Bearer " + forged, want: http.StatusUnauthorized},
		{name: "garbage", header: "Bearer not-a-token", want: http.StatusUnauthorized},
		{name: "basic scheme", header: "Basic abc", want: http.StatusUnauthorized},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var headers []string
			if tc.header != "" {
				headers = []string{"Authorization", tc.header}
			}
			rec, body := e.do(t, http.MethodGet, "/api/queue", nil, headers...)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d (%+v)", rec.Code, tc.want, body)
			}
			if tc.want == http.StatusUnauthorized && body.Error != "Unauthorized" {
				t.Fatalf("error = %q", body.Error)
			}
		})
	}

	rec, _ := e.do(t, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("health should not require auth, got %d", rec.Code)
	}
}

func TestIssueTokenRequiresSecret(t *testing.T) {
	if _, _, err := httpapi.IssueToken("  ", "cli", 0); err == nil {
		t.Fatal("expected error without secret")
	}
}

func TestInternalErrorsHiddenInProduction(t *testing.T) {
	tests := []struct {
		name    string
		opts    []testsupport.ConfigOption
		generic bool
	}{
		{name: "development", generic: false},
		{name: "production", opts: []testsupport.ConfigOption{testsupport.WithProduction()}, generic: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := newEnv(t, tc.opts...)
			if err := e.db.Close(); err != nil {
				t.Fatalf("close db: %v", err)
			}
			rec, body := e.do(t, http.MethodGet, "/api/queue", nil)
			if rec.Code != http.StatusInternalServerError {
				t.Fatalf("status = %d", rec.Code)
			}
			if body.Error != "Internal server error" {
				t.Fatalf("error = %q", body.Error)
			}
			if got := body.Message == "An error occurred"; got != tc.generic {
				t.Fatalf("message = %q, generic=%v", body.Message, tc.generic)
			}
		})
	}
}

func TestProcessingEndpoints(t *testing.T) {
	e := newEnv(t)
	e.tracker.running[7] = true

	rec, body := e.do(t, http.MethodGet, "/api/processing", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	tasks := decode[[]processing.TaskInfo](t, body.Data)
	if len(tasks) != 1 || tasks[0].InvoiceID != 7 {
		t.Fatalf("unexpected tasks %+v", tasks)
	}

	rec, body = e.do(t, http.MethodDelete, "/api/processing/7", nil)
	if rec.Code != http.StatusOK || body.Message != "Processing cancelled" {
		t.Fatalf("cancel = %d %+v", rec.Code, body)
	}
	if len(e.tracker.cancelled) != 1 {
		t.Fatalf("cancelled = %v", e.tracker.cancelled)
	}

	rec, _ = e.do(t, http.MethodDelete, "/api/processing/8", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("cancel unknown = %d", rec.Code)
	}
	rec, _ = e.do(t, http.MethodDelete, "/api/processing/abc", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("cancel bad id = %d", rec.Code)
	}
}

// multipartUpload builds a POST /api/upload request with one file part.
func multipartUpload(t *testing.T, field, filename, contentType string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if field != "" {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
		header.Set("Content-Type", contentType)
		part, err := w.CreatePart(header)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		if _, err := part.Write(content); err != nil {
			t.Fatalf("write part: %v", err)
		}
	} else if err := w.WriteField("note", "nothing attached"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func uploadDirEntries(t *testing.T, cfg *config.Config) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(cfg.Paths.UploadDir)
	if err != nil {
		t.Fatalf("read upload dir: %v", err)
	}
	return entries
}
