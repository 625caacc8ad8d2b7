package guard

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/probaccess/sitegate/internal/classify"
	"github.com/probaccess/sitegate/internal/engine"
	"github.com/probaccess/sitegate/internal/model"
)

type fixedDecider struct {
	decision model.AccessDecision
	calls    int
}

func (d *fixedDecider) Decide(ctx context.Context, req engine.Request) model.AccessDecision {
	d.calls++
	return d.decision
}

type spyNavigator struct {
	mu      sync.Mutex
	targets []string
}

func (n *spyNavigator) RedirectTo(url string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.targets = append(n.targets, url)
}

func (n *spyNavigator) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.targets)
}

const safeURL = "https://tenant.example.com"

var denyReq = engine.Request{
	Address:   "https://tenant.example.com/teams/b12345",
	Principal: model.Principal{Email: "bob@example.org"},
}

func newGuard(d Decider, nav Navigator, exempt ...string) *Guard {
	return New(d, classify.NewExemptList(exempt), nav, safeURL, nil, nil)
}

func TestDenyRedirectsOnce(t *testing.T) {
	nav := &spyNavigator{}
	g := newGuard(&fixedDecider{decision: model.Denied(model.ReasonNotMember, "")}, nav)

	out := g.EvaluateAndEnforce(context.Background(), denyReq)
	if !out.Redirected || out.State != StateRedirected {
		t.Fatalf("expected redirect on first deny, got %+v", out)
	}
	if nav.targets[0] != safeURL {
		t.Errorf("expected redirect to %s, got %s", safeURL, nav.targets[0])
	}

	// Same denied verdict again, e.g. the safe page re-triggering
	// evaluation: must not navigate a second time.
	out = g.EvaluateAndEnforce(context.Background(), denyReq)
	if out.Redirected {
		t.Error("second deny in the same streak must not redirect")
	}
	if nav.count() != 1 {
		t.Errorf("expected exactly one redirect, got %d", nav.count())
	}
}

func TestAllowClearsDenialStreak(t *testing.T) {
	nav := &spyNavigator{}
	d := &fixedDecider{decision: model.Denied(model.ReasonNotMember, "")}
	g := newGuard(d, nav)

	g.EvaluateAndEnforce(context.Background(), denyReq)

	d.decision = model.Allowed(model.ReasonMember, "")
	out := g.EvaluateAndEnforce(context.Background(), denyReq)
	if out.State != StateAllowed || out.Redirected {
		t.Fatalf("expected clean allow, got %+v", out)
	}
	if g.Enforcement().PreviouslyDenied {
		t.Error("allow must clear the denial streak")
	}

	// A fresh deny after an intervening allow redirects again.
	d.decision = model.Denied(model.ReasonNotMember, "")
	out = g.EvaluateAndEnforce(context.Background(), denyReq)
	if !out.Redirected {
		t.Error("deny after intervening allow must redirect again")
	}
	if nav.count() != 2 {
		t.Errorf("expected two redirects total, got %d", nav.count())
	}
}

func TestExemptPathSkipsEngine(t *testing.T) {
	nav := &spyNavigator{}
	d := &fixedDecider{decision: model.Denied(model.ReasonNotMember, "")}
	g := newGuard(d, nav, "/sites/appcatalog/")

	out := g.EvaluateAndEnforce(context.Background(), engine.Request{
		Address: "https://tenant.example.com/sites/AppCatalog/manage",
	})
	if out.State != StateAllowed || out.Decision.Reason != model.ReasonExempt {
		t.Fatalf("expected Allow(exempt), got %+v", out)
	}
	if d.calls != 0 {
		t.Error("exempt path must not invoke the decision engine")
	}
	if nav.count() != 0 {
		t.Error("exempt path must never redirect")
	}
}

func TestResetClearsEnforcement(t *testing.T) {
	nav := &spyNavigator{}
	g := newGuard(&fixedDecider{decision: model.Denied(model.ReasonNotMember, "")}, nav)

	g.EvaluateAndEnforce(context.Background(), denyReq)
	g.Reset()

	out := g.EvaluateAndEnforce(context.Background(), denyReq)
	if !out.Redirected {
		t.Error("deny after session reset must redirect again")
	}
	if nav.count() != 2 {
		t.Errorf("expected two redirects across sessions, got %d", nav.count())
	}
}

// blockingDecider parks the first evaluation until released, letting the
// test supersede it with a second trigger.
type blockingDecider struct {
	release  chan struct{}
	decision model.AccessDecision
	first    bool
	mu       sync.Mutex
}

func (d *blockingDecider) Decide(ctx context.Context, req engine.Request) model.AccessDecision {
	d.mu.Lock()
	isFirst := !d.first
	d.first = true
	d.mu.Unlock()
	if isFirst {
		<-d.release
	}
	return d.decision
}

func TestStaleEvaluationDiscarded(t *testing.T) {
	nav := &spyNavigator{}
	d := &blockingDecider{
		release:  make(chan struct{}),
		decision: model.Denied(model.ReasonNotMember, ""),
	}
	g := newGuard(d, nav)

	done := make(chan Outcome, 1)
	go func() {
		done <- g.EvaluateAndEnforce(context.Background(), denyReq)
	}()

	// Wait for the first evaluation to park inside the decider.
	for g.State() != StateEvaluating {
		time.Sleep(time.Millisecond)
	}

	// A new navigation trigger supersedes the in-flight evaluation.
	second := g.EvaluateAndEnforce(context.Background(), denyReq)
	if !second.Redirected {
		t.Fatal("superseding evaluation should enforce normally")
	}

	close(d.release)
	first := <-done
	if !first.Stale {
		t.Error("superseded evaluation must be marked stale")
	}
	if first.Redirected {
		t.Error("stale evaluation must not redirect")
	}
	if nav.count() != 1 {
		t.Errorf("expected one redirect from the fresh evaluation only, got %d", nav.count())
	}
}

type spyRecorder struct {
	mu       sync.Mutex
	outcomes []Outcome
}

func (r *spyRecorder) Record(req engine.Request, o Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, o)
}

func TestRecorderSeesEnforcedOutcomes(t *testing.T) {
	rec := &spyRecorder{}
	g := New(
		&fixedDecider{decision: model.Denied(model.ReasonNotMember, "")},
		classify.NewExemptList(nil),
		&spyNavigator{},
		safeURL,
		rec,
		nil,
	)

	g.EvaluateAndEnforce(context.Background(), denyReq)
	g.EvaluateAndEnforce(context.Background(), denyReq)

	if len(rec.outcomes) != 2 {
		t.Fatalf("expected 2 recorded outcomes, got %d", len(rec.outcomes))
	}
	if !rec.outcomes[0].Redirected || rec.outcomes[1].Redirected {
		t.Error("expected first outcome redirected, second suppressed")
	}
	if rec.outcomes[0].EvalID == rec.outcomes[1].EvalID {
		t.Error("each evaluation must carry a distinct eval ID")
	}
}
