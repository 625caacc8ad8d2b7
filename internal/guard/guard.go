// Package guard enforces access decisions against the live session: it
// redirects on Deny, suppresses repeated redirects for the same denial
// streak, exempts administrative paths before evaluation, and discards
// evaluations superseded by a newer navigation trigger.
package guard

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/probaccess/sitegate/internal/classify"
	"github.com/probaccess/sitegate/internal/engine"
	"github.com/probaccess/sitegate/internal/model"
)

// State is the guard's position in one evaluation cycle.
type State string

const (
	StateUnchecked   State = "unchecked"
	StateEvaluating  State = "evaluating"
	StateAllowed     State = "allowed"
	StateDenied      State = "denied"
	StateRedirecting State = "redirecting"
	StateRedirected  State = "redirected"
)

// Navigator performs the one side-effecting call the guard owns.
type Navigator interface {
	RedirectTo(url string)
}

// Decider renders the verdict the guard enforces.
type Decider interface {
	Decide(ctx context.Context, req engine.Request) model.AccessDecision
}

// EnforcementState is the only mutable state carried across evaluation
// cycles within a session. It guarantees at most one redirect per
// uninterrupted denial streak; an Allow clears the streak so a later Deny
// may redirect again.
type EnforcementState struct {
	AlreadyRedirected bool
	PreviouslyDenied  bool
}

// Outcome reports what one evaluation cycle did.
type Outcome struct {
	EvalID     string               `json:"eval_id"`
	State      State                `json:"state"`
	Decision   model.AccessDecision `json:"decision"`
	Redirected bool                 `json:"redirected"`
	// Stale is set when a newer trigger superseded this evaluation while
	// it was in flight; its result was discarded without enforcement.
	Stale bool `json:"stale,omitempty"`
}

// Recorder receives every enforced outcome, e.g. for the audit log. Stale
// outcomes are not recorded: they enforced nothing.
type Recorder interface {
	Record(req engine.Request, o Outcome)
}

// Guard ties the decision engine to the session. Evaluations are sequenced;
// the enforcement state is owned exclusively by the guard.
type Guard struct {
	decider  Decider
	exempt   *classify.ExemptList
	nav      Navigator
	safeURL  string
	recorder Recorder
	log      *zap.Logger

	mu          sync.Mutex
	seq         uint64
	state       State
	enforcement EnforcementState
}

func New(decider Decider, exempt *classify.ExemptList, nav Navigator, safeURL string, recorder Recorder, log *zap.Logger) *Guard {
	if log == nil {
		log = zap.NewNop()
	}
	return &Guard{
		decider:  decider,
		exempt:   exempt,
		nav:      nav,
		safeURL:  safeURL,
		recorder: recorder,
		log:      log,
		state:    StateUnchecked,
	}
}

// State returns the guard's current cycle state.
func (g *Guard) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Enforcement returns a snapshot of the session enforcement flags.
func (g *Guard) Enforcement() EnforcementState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.enforcement
}

// Reset clears session enforcement state. Called on session end only; the
// per-cycle state machine resets itself on every trigger.
func (g *Guard) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.enforcement = EnforcementState{}
	g.state = StateUnchecked
}

// EvaluateAndEnforce runs one evaluation cycle for a navigation trigger.
// If a newer trigger arrives while this one is evaluating, this cycle's
// verdict is discarded rather than allowed to override the guard's state.
func (g *Guard) EvaluateAndEnforce(ctx context.Context, req engine.Request) Outcome {
	g.mu.Lock()
	g.seq++
	seq := g.seq
	g.state = StateUnchecked
	g.mu.Unlock()

	evalID := uuid.NewString()

	// Exemption short-circuits straight to Allowed without invoking the
	// engine at all.
	if g.exempt.Matches(req.Address) {
		decision := model.Allowed(model.ReasonExempt, "administrative path")
		return g.enforce(seq, evalID, req, decision)
	}

	g.setState(seq, StateEvaluating)
	decision := g.decider.Decide(ctx, req)
	return g.enforce(seq, evalID, req, decision)
}

func (g *Guard) setState(seq uint64, s State) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if seq == g.seq {
		g.state = s
	}
}

func (g *Guard) enforce(seq uint64, evalID string, req engine.Request, decision model.AccessDecision) Outcome {
	g.mu.Lock()

	if seq != g.seq {
		g.mu.Unlock()
		g.log.Info("stale evaluation discarded",
			zap.String("eval_id", evalID),
			zap.String("address", req.Address))
		return Outcome{EvalID: evalID, Decision: decision, Stale: true}
	}

	if decision.Allowed() {
		g.state = StateAllowed
		g.enforcement.PreviouslyDenied = false
		out := Outcome{EvalID: evalID, State: StateAllowed, Decision: decision}
		g.mu.Unlock()
		g.record(req, out)
		return out
	}

	g.state = StateDenied
	// Redirect unless this denial streak already navigated once; the
	// target page re-triggering evaluation must not loop.
	redirect := !(g.enforcement.AlreadyRedirected && g.enforcement.PreviouslyDenied)
	g.enforcement.PreviouslyDenied = true

	if !redirect {
		out := Outcome{EvalID: evalID, State: StateDenied, Decision: decision}
		g.mu.Unlock()
		g.log.Info("redirect suppressed, already issued this streak",
			zap.String("eval_id", evalID),
			zap.String("address", req.Address))
		g.record(req, out)
		return out
	}

	g.state = StateRedirecting
	g.enforcement.AlreadyRedirected = true
	g.mu.Unlock()

	g.log.Warn("access denied, redirecting",
		zap.String("eval_id", evalID),
		zap.String("address", req.Address),
		zap.String("reason", string(decision.Reason)),
		zap.String("target", g.safeURL))
	g.nav.RedirectTo(g.safeURL)

	g.mu.Lock()
	if seq == g.seq {
		g.state = StateRedirected
	}
	g.mu.Unlock()

	out := Outcome{EvalID: evalID, State: StateRedirected, Decision: decision, Redirected: true}
	g.record(req, out)
	return out
}

func (g *Guard) record(req engine.Request, o Outcome) {
	if g.recorder != nil {
		g.recorder.Record(req, o)
	}
}
