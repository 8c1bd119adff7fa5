package ui

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dhamidi/javasyn/java/scanner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	if opts.RateLimit == 0 && opts.Burst == 0 {
		opts.RateLimit, opts.Burst = 1000, 1000
	}
	if opts.MaxSourceBytes == 0 {
		opts.MaxSourceBytes = 1 << 20
	}
	if opts.Scanner == nil {
		opts.Scanner = scanner.New(nil, 1)
	}
	s, err := NewServer(opts)
	require.NoError(t, err)
	return s
}

func postForm(s http.Handler, path string, values url.Values, accept string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestIndex(t *testing.T) {
	s := newTestServer(t, Options{})
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `<textarea name="source"`)
	assert.Contains(t, rec.Body.String(), `action="/scan"`)
}

func TestStatic(t *testing.T) {
	s := newTestServer(t, Options{})
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/style.css", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAnalyzeFormRendersResult(t *testing.T) {
	s := newTestServer(t, Options{})
	rec := postForm(s, "/analyze", url.Values{"source": {"class Foo { public void bar() { return x; } }"}}, "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Failed")
	assert.Contains(t, body, "Missing semicolon after &#39;return&#39; statement")
	assert.Contains(t, body, `id="node-0.0"`)
	assert.Contains(t, body, `class="tok keyword"`)
}

func TestAnalyzeJSON(t *testing.T) {
	s := newTestServer(t, Options{})
	req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(`{"source":"class A {}"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got struct {
		Success bool `json:"success"`
		Summary struct {
			Tokens  int `json:"tokens"`
			Classes int `json:"classes"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.True(t, got.Success)
	assert.Equal(t, 4, got.Summary.Tokens)
	assert.Equal(t, 1, got.Summary.Classes)
}

func TestAnalyzeRejectsEmptySource(t *testing.T) {
	s := newTestServer(t, Options{})
	rec := postForm(s, "/analyze", url.Values{"source": {"  \n\t "}}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzeRejectsLargeSource(t *testing.T) {
	s := newTestServer(t, Options{MaxSourceBytes: 64})
	rec := postForm(s, "/analyze", url.Values{"source": {strings.Repeat("x", 200)}}, "")
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestAnalyzeRateLimited(t *testing.T) {
	s := newTestServer(t, Options{RateLimit: 0.001, Burst: 1})
	form := url.Values{"source": {"int x;"}}

	assert.Equal(t, http.StatusOK, postForm(s, "/analyze", form, "").Code)
	assert.Equal(t, http.StatusTooManyRequests, postForm(s, "/analyze", form, "").Code)
}

func TestScanFlow(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "A.java"), []byte("class A {"), 0o644))

	sc := scanner.New(nil, 1)
	s := newTestServer(t, Options{Scanner: sc, ScanRoot: root})

	rec := postForm(s, "/scan", url.Values{"path": {root}}, "")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	location := rec.Header().Get("Location")
	require.True(t, strings.HasPrefix(location, "/scans/"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := sc.Wait(ctx, strings.TrimPrefix(location, "/scans/"))
	require.NoError(t, err)

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, location, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "A.java")
	assert.Contains(t, rec.Body.String(), "1 files, 1 with errors.")
}

func TestScanRefusesPathsOutsideRoot(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	secret := filepath.Join(outside, "Secret.java")
	require.NoError(t, os.WriteFile(secret, []byte("class Secret {}"), 0o644))

	sc := scanner.New(nil, 1)
	s := newTestServer(t, Options{Scanner: sc, ScanRoot: root})

	for _, path := range []string{
		secret,
		outside,
		filepath.Join("..", filepath.Base(outside)),
		filepath.Join(outside, "missing.java"),
	} {
		rec := postForm(s, "/scan", url.Values{"path": {path}}, "application/json")
		assert.Equal(t, http.StatusForbidden, rec.Code, path)
	}

	link := filepath.Join(root, "link")
	if err := os.Symlink(outside, link); err == nil {
		rec := postForm(s, "/scan", url.Values{"path": {link}}, "application/json")
		assert.Equal(t, http.StatusForbidden, rec.Code, "symlinks are followed before the check")
	}

	assert.Empty(t, sc.List(), "refused paths never reach the scanner")
}

func TestScanRefusesNonJavaFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "secret.txt"), []byte("password = hunter2;"), 0o644))

	sc := scanner.New(nil, 1)
	s := newTestServer(t, Options{Scanner: sc, ScanRoot: root})

	rec := postForm(s, "/scan", url.Values{"path": {"secret.txt"}}, "application/json")
	require.Equal(t, http.StatusAccepted, rec.Code)
	var submitted struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &submitted))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	result, err := sc.Wait(ctx, submitted.ID)
	require.NoError(t, err)
	assert.Equal(t, scanner.StatusFailed, result.Status)

	req := httptest.NewRequest(http.MethodGet, "/scans/"+submitted.ID, nil)
	req.Header.Set("Accept", "application/json")
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "excluded by filter")
	assert.NotContains(t, rec.Body.String(), "hunter2")
}

type fullQueue struct {
	Scans
}

func (fullQueue) Submit(scanner.Request) (string, error) {
	return "", scanner.ErrQueueFull
}

func TestScanQueueFull(t *testing.T) {
	root := t.TempDir()
	s := newTestServer(t, Options{Scanner: fullQueue{scanner.New(nil, 1)}, ScanRoot: root})

	rec := postForm(s, "/scan", url.Values{"path": {root}}, "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestJSONMediaTypeParameters(t *testing.T) {
	s := newTestServer(t, Options{})
	req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(`{"source":"class A {}"}`))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Accept", "application/json, text/plain;q=0.5")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestWantsJSON(t *testing.T) {
	tests := []struct {
		accept string
		want   bool
	}{
		{"", false},
		{"application/json", true},
		{"application/json; charset=utf-8", true},
		{"text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8", false},
		{"*/*", false},
		{"application/*", true},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Accept", tt.accept)
		assert.Equal(t, tt.want, wantsJSON(req), tt.accept)
	}
}

func TestScanRequiresPath(t *testing.T) {
	s := newTestServer(t, Options{})
	rec := postForm(s, "/scan", url.Values{}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/scans/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, Options{})
	postForm(s, "/analyze", url.Values{"source": {"int x;"}}, "")

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `javasyn_analyses_total{outcome="clean",surface="ui"}`)
}
