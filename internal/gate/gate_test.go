package gate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/probaccess/sitegate/internal/config"
	"github.com/probaccess/sitegate/internal/engine"
	"github.com/probaccess/sitegate/internal/model"
)

// End-to-end assembly: directory backend down, federated backend resolving,
// non-member denied and member allowed.
func TestAssembledPipeline(t *testing.T) {
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

	cfg := config.DefaultConfig()
	cfg.Backends.GraphURL = graph.URL
	cfg.Backends.Timeout = config.Duration(time.Second)

	g := New(cfg, Options{})

	req := engine.Request{
		Address:   "https://tenant.example.com/teams/b12345/pages",
		Principal: model.Principal{Email: "bob@example.org"},
	}
	if d := g.Engine.Decide(context.Background(), req); d.Verdict != model.Deny || d.Reason != model.ReasonNotMember {
		t.Errorf("expected Deny(not_member) for bob, got %s(%s)", d.Verdict, d.Reason)
	}

	req.Principal = model.Principal{Email: "alice@example.org"}
	if d := g.Engine.Decide(context.Background(), req); d.Verdict != model.Allow || d.Reason != model.ReasonMember {
		t.Errorf("expected Allow(member) for alice, got %s(%s)", d.Verdict, d.Reason)
	}
}

func TestNoBackendsConfiguredFailsClosed(t *testing.T) {
	cfg := config.DefaultConfig()
	g := New(cfg, Options{})

	d := g.Engine.Decide(context.Background(), engine.Request{
		Address:   "https://tenant.example.com/teams/b12345",
		Principal: model.Principal{Email: "bob@example.org"},
	})
	if d.Verdict != model.Deny {
		t.Errorf("no membership sources must deny a protected site, got %s(%s)", d.Verdict, d.Reason)
	}

	// Unprotected addresses still pass without any backend.
	d = g.Engine.Decide(context.Background(), engine.Request{
		Address:   "https://tenant.example.com/sites/public",
		Principal: model.Principal{Email: "bob@example.org"},
	})
	if d.Verdict != model.Allow || d.Reason != model.ReasonNotSensitive {
		t.Errorf("expected Allow(not_sensitive), got %s(%s)", d.Verdict, d.Reason)
	}
}
