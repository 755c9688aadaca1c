package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestPreflight_AnyPath(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	router := newTestRouter(t, server.URL)

	for _, path := range []string{"/tts", "/tts?text=hi", "/", "/nowhere/at/all"} {
		req := httptest.NewRequest(http.MethodOptions, path, nil)
		req.Header.Set("Origin", "http://example.com")
		req.Header.Set("Access-Control-Request-Method", "GET")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, rec.Code)
		}
		want := map[string]string{
			"Access-Control-Allow-Origin":  "*",
			"Access-Control-Allow-Methods": "GET, POST, OPTIONS",
			"Access-Control-Allow-Headers": "Content-Type",
		}
		for k, v := range want {
			if got := rec.Header().Get(k); got != v {
				t.Errorf("%s: expected %s %q, got %q", path, k, v, got)
			}
		}
		if rec.Body.Len() != 0 {
			t.Errorf("%s: expected empty body, got %q", path, rec.Body.String())
		}
	}

	if called {
		t.Error("preflight must not reach the upstream")
	}
}

func TestPreflight_UpstreamDown(t *testing.T) {
	router := newTestRouter(t, "http://127.0.0.1:1")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/tts", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected upstream call: %s", r.URL)
	}))
	defer server.Close()

	router := newTestRouter(t, server.URL)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/unknown-path"},
		{http.MethodGet, "/"},
		{http.MethodGet, "/api/tts"},
		{http.MethodPost, "/tts?text=hi"},
		{http.MethodDelete, "/tts"},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

		if rec.Code != http.StatusNotFound {
			t.Errorf("%s %s: expected 404, got %d", tt.method, tt.path, rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "text/plain; charset=utf-8" {
			t.Errorf("%s %s: expected text/plain, got %q", tt.method, tt.path, ct)
		}
		body := rec.Body.String()
		if !strings.HasPrefix(body, "404 Not Found\n\n") {
			t.Errorf("%s %s: unexpected body %q", tt.method, tt.path, body)
		}
		if !strings.Contains(body, "http://localhost:3000/tts?appkey=xxx&token=xxx&text=xxx...") {
			t.Errorf("%s %s: usage text missing from %q", tt.method, tt.path, body)
		}
	}
}

func TestRouter_TTSPrefix(t *testing.T) {
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.RequestURI)
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	router := newTestRouter(t, server.URL)

	for _, path := range []string{"/tts", "/tts/", "/tts/v2?text=a", "/ttsx?text=b"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, rec.Code)
		}
	}

	want := []string{"/stream/v1/tts?", "/stream/v1/tts?", "/stream/v1/tts?text=a", "/stream/v1/tts?text=b"}
	if strings.Join(paths, " ") != strings.Join(want, " ") {
		t.Errorf("upstream saw %v, want %v", paths, want)
	}
}

func TestRouter_ExposesHeadersToBrowsers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	req := httptest.NewRequest(http.MethodGet, "/tts?text=hi", nil)
	req.Header.Set("Origin", "http://localhost:8080")
	rec := httptest.NewRecorder()
	newTestRouter(t, server.URL).ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("expected wildcard CORS origin, got %q", got)
	}
	if got := rec.Header().Get("Access-Control-Expose-Headers"); got != "Content-Length, Content-Type" {
		t.Errorf("unexpected exposed headers %q", got)
	}
	if vals := rec.Header().Values("Access-Control-Allow-Origin"); len(vals) != 1 {
		t.Errorf("expected a single CORS origin header, got %v", vals)
	}
}
