// Package engine combines classification, visibility, and membership lookup
// into a single Allow/Deny verdict. The engine never allows a sensitive
// resource on ambiguous or failed evaluation: every error path lands on Deny.
package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/probaccess/sitegate/internal/classify"
	"github.com/probaccess/sitegate/internal/membership"
	"github.com/probaccess/sitegate/internal/model"
	"github.com/probaccess/sitegate/internal/visibility"
)

// Engine renders access decisions. All collaborators are injected; Decide
// has no side effects beyond logging.
type Engine struct {
	classifier *classify.Classifier
	exempt     *classify.ExemptList
	visibility *visibility.Resolver
	membership *membership.Resolver
	log        *zap.Logger
}

func New(classifier *classify.Classifier, exempt *classify.ExemptList, vis *visibility.Resolver, mem *membership.Resolver, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		classifier: classifier,
		exempt:     exempt,
		visibility: vis,
		membership: mem,
		log:        log,
	}
}

// Request is one evaluation's input, supplied by the host context.
type Request struct {
	Address   string          `json:"address"`
	Metadata  string          `json:"metadata,omitempty"`
	Title     string          `json:"title,omitempty"`
	Principal model.Principal `json:"principal"`
}

// Decide evaluates one request. Order is fixed: exemption, classification,
// visibility, membership. A panic anywhere in the pipeline is recovered and
// mapped to Deny(EvaluationError).
func (e *Engine) Decide(ctx context.Context, req Request) (decision model.AccessDecision) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("evaluation panicked, denying",
				zap.String("address", req.Address),
				zap.Any("panic", r))
			decision = model.Denied(model.ReasonEvaluationError, fmt.Sprintf("evaluation panic: %v", r))
		}
	}()

	// Administrative exemption wins over everything, including
	// classification.
	if e.exempt.Matches(req.Address) {
		return model.Allowed(model.ReasonExempt, "administrative path")
	}

	if e.classifier.Classify(req.Address, req.Metadata) == model.Unclassified {
		return model.Allowed(model.ReasonNotSensitive, "")
	}

	site := model.Site{
		Address: req.Address,
		Slug:    classify.SiteSlug(req.Address),
		Title:   req.Title,
	}
	// A sensitive address whose owning site cannot be determined is
	// undecidable; fail closed.
	if site.Slug == "" {
		e.log.Warn("sensitive address has no extractable site slug, denying",
			zap.String("address", req.Address))
		return model.Denied(model.ReasonEvaluationError, "site slug could not be determined")
	}

	vis := e.visibility.Resolve(ctx, site)
	if vis == model.VisibilityPrivate {
		// Private sites manage their own audience; the platform already
		// keeps outsiders away from them.
		return model.Allowed(model.ReasonPrivateResource, "")
	}
	// Unknown is treated as Public: the branch that still demands proof
	// of membership.

	if e.membership.IsAuthorized(ctx, site, req.Principal) {
		return model.Allowed(model.ReasonMember, "principal in authorized set")
	}
	return model.Denied(model.ReasonNotMember, "principal not in authorized set")
}
