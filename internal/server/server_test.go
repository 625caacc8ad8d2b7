package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/probaccess/sitegate/internal/model"
)

func newTestServer(t *testing.T, graphURL string) *Server {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "safe_url: https://safe.example.org\n"
	if graphURL != "" {
		content += "backends:\n  graph_url: " + graphURL + "\n  timeout: 2s\n"
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	s, err := New(path, nil)
	if err != nil {
		t.Fatalf("server start: %v", err)
	}
	return s
}

func postDecide(t *testing.T, s *Server, body any) (*httptest.ResponseRecorder, decideResponse) {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/v1/decide", bytes.NewReader(data))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var resp decideResponse
	if rec.Code == http.StatusOK {
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return rec, resp
}

func TestDecideUnclassifiedAddress(t *testing.T) {
	s := newTestServer(t, "")

	rec, resp := postDecide(t, s, map[string]any{
		"address":   "https://tenant.example.com/sites/public",
		"principal": model.Principal{Email: "bob@example.org"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if resp.Decision.Verdict != model.Allow || resp.Decision.Reason != model.ReasonNotSensitive {
		t.Errorf("expected Allow(not_sensitive), got %+v", resp.Decision)
	}
	if resp.SafeURL != "https://safe.example.org" {
		t.Errorf("expected configured safe URL in response, got %s", resp.SafeURL)
	}
}

func TestDecideProtectedSiteThroughGraph(t *testing.T) {
	graph := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/groups/b12345":
			w.Write([]byte(`{"id":"u-1","slug":"b12345","visibility":"Public"}`))
		case "/groups/u-1/owners":
			w.Write([]byte(`[{"email":"alice@example.org"}]`))
		case "/groups/u-1/transitive-members":
			w.Write([]byte(`[]`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer graph.Close()

	s := newTestServer(t, graph.URL)

	_, resp := postDecide(t, s, map[string]any{
		"address":   "https://tenant.example.com/teams/b12345",
		"principal": model.Principal{Email: "bob@example.org"},
	})
	if resp.Decision.Verdict != model.Deny || resp.Decision.Reason != model.ReasonNotMember {
		t.Errorf("expected Deny(not_member), got %+v", resp.Decision)
	}

	_, resp = postDecide(t, s, map[string]any{
		"address":   "https://tenant.example.com/teams/b12345",
		"principal": model.Principal{Email: "alice@example.org"},
	})
	if resp.Decision.Verdict != model.Allow || resp.Decision.Reason != model.ReasonMember {
		t.Errorf("expected Allow(member), got %+v", resp.Decision)
	}
}

func TestDecideRejectsMalformedBody(t *testing.T) {
	s := newTestServer(t, "")

	req := httptest.NewRequest(http.MethodPost, "/v1/decide", bytes.NewReader([]byte("{broken")))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed body, got %d", rec.Code)
	}
}

func TestDecideRequiresAddress(t *testing.T) {
	s := newTestServer(t, "")

	rec, _ := postDecide(t, s, map[string]any{
		"principal": model.Principal{Email: "bob@example.org"},
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing address, got %d", rec.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t, "")

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" || body["config_hash"] == "" {
		t.Errorf("unexpected health body: %v", body)
	}
}

func TestReloadSwapsConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	os.WriteFile(path, []byte("safe_url: https://before.example.org\n"), 0o600)

	s, err := New(path, nil)
	if err != nil {
		t.Fatal(err)
	}

	os.WriteFile(path, []byte("safe_url: https://after.example.org\n"), 0o600)
	if err := s.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}

	_, resp := postDecide(t, s, map[string]any{
		"address":   "https://tenant.example.com/sites/public",
		"principal": model.Principal{Email: "bob@example.org"},
	})
	if resp.SafeURL != "https://after.example.org" {
		t.Errorf("expected reloaded safe URL, got %s", resp.SafeURL)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, "")

	postDecide(t, s, map[string]any{
		"address":   "https://tenant.example.com/sites/public",
		"principal": model.Principal{Email: "bob@example.org"},
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte("sitegate_decisions_total")) {
		t.Error("expected decision counter in metrics output")
	}
}
