package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lazypower/instinct/internal/evolve"
	"github.com/lazypower/instinct/internal/instincts"
	"github.com/lazypower/instinct/internal/observe"
	"github.com/lazypower/instinct/internal/store"
)

type testEnv struct {
	srv  *Server
	dir  instincts.Dir
	log  observe.Log
	db   *store.DB
	home string
}

func newTestEnv(t *testing.T, withDB bool) *testEnv {
	t.Helper()
	home := t.TempDir()
	env := &testEnv{
		home: home,
		dir:  instincts.Dir{Path: filepath.Join(home, "instincts", "personal")},
		log:  observe.Log{Path: filepath.Join(home, "observations.jsonl")},
	}
	if err := os.MkdirAll(env.dir.Path, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	eng := evolve.New(env.dir, env.log, nil)
	if withDB {
		db, err := store.OpenMemory()
		if err != nil {
			t.Fatalf("OpenMemory: %v", err)
		}
		t.Cleanup(func() { db.Close() })
		env.db = db
		eng.SetHistory(db)
	}
	env.srv = New(env.dir, eng, env.db, "test-version", nil)
	return env
}

func (e *testEnv) writeInstinct(t *testing.T, name, text string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(e.dir.Path, name), []byte(text), 0644); err != nil {
		t.Fatalf("write instinct: %v", err)
	}
}

func (e *testEnv) writeLog(t *testing.T, text string) {
	t.Helper()
	if err := os.WriteFile(e.log.Path, []byte(text), 0644); err != nil {
		t.Fatalf("write log: %v", err)
	}
}

func (e *testEnv) do(t *testing.T, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	e.srv.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t, true)

	w := env.do(t, "GET", "/api/health")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content-type = %q", ct)
	}

	var body map[string]any
	decode(t, w, &body)

	if body["status"] != "ok" {
		t.Errorf("status = %v, want ok", body["status"])
	}
	if body["version"] != "test-version" {
		t.Errorf("version = %v, want test-version", body["version"])
	}
	if body["db"] != true {
		t.Errorf("db = %v, want true", body["db"])
	}
}

func TestHealthWithoutDB(t *testing.T) {
	env := newTestEnv(t, false)

	var body map[string]any
	decode(t, env.do(t, "GET", "/api/health"), &body)
	if body["db"] != false {
		t.Errorf("db = %v, want false", body["db"])
	}
}

func TestHistoryRoutesWithoutDB(t *testing.T) {
	env := newTestEnv(t, false)

	for _, path := range []string{"/api/runs", "/api/runs/abc", "/api/history/x"} {
		w := env.do(t, "GET", path)
		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("%s: status = %d, want %d", path, w.Code, http.StatusServiceUnavailable)
		}
		var body map[string]string
		decode(t, w, &body)
		if body["error"] == "" {
			t.Errorf("%s: expected error message in body", path)
		}
	}
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t, false)
	if w := env.do(t, "GET", "/api/nope"); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	if w := env.do(t, "GET", "/api/evolve"); w.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /api/evolve status = %d, want 405", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, false)
	if w := env.do(t, "GET", "/metrics"); w.Code != http.StatusNotFound {
		t.Errorf("metrics disabled: status = %d, want 404", w.Code)
	}

	reg := prometheus.NewRegistry()
	env.srv.engine.Metrics = evolve.NewMetrics(reg)
	env.srv.SetMetrics(reg)

	env.do(t, "POST", "/api/evolve")

	w := env.do(t, "GET", "/metrics")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `instinct_evolve_passes_total{outcome="skipped"} 1`) {
		t.Errorf("metrics body missing pass counter:\n%s", w.Body.String())
	}
}
