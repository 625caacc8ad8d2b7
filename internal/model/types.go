package model

// Classification says whether a resource requires access gating.
type Classification string

const (
	Unclassified Classification = "unclassified"
	Sensitive    Classification = "sensitive"
)

// Visibility is the openness of a sensitive resource's owning group.
// Unknown is treated as Public for decision purposes: the restriction-requiring
// branch, never silent allow.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
	VisibilityUnknown Visibility = "unknown"
)

// Verdict is the enforcement outcome of one evaluation.
type Verdict string

const (
	Allow Verdict = "allow"
	Deny  Verdict = "deny"
)

// Reason explains a verdict. Exactly one reason accompanies every decision.
type Reason string

const (
	ReasonNotSensitive    Reason = "not_sensitive"
	ReasonExempt          Reason = "exempt"
	ReasonPrivateResource Reason = "private_resource"
	ReasonMember          Reason = "member"
	ReasonNotMember       Reason = "not_member"
	ReasonEvaluationError Reason = "evaluation_error"
)

// AccessDecision is the verdict for one (resource, principal) evaluation.
// Pure data: producing one has no side effects, enforcement is the
// guard's job.
type AccessDecision struct {
	Verdict Verdict `json:"verdict"`
	Reason  Reason  `json:"reason"`
	// Detail carries diagnostic context (which backend answered, which
	// signal resolved visibility). Never used for branching.
	Detail string `json:"detail,omitempty"`
}

// Allowed reports whether the decision permits viewing the resource.
func (d AccessDecision) Allowed() bool {
	return d.Verdict == Allow
}

func Allowed(reason Reason, detail string) AccessDecision {
	return AccessDecision{Verdict: Allow, Reason: reason, Detail: detail}
}

func Denied(reason Reason, detail string) AccessDecision {
	return AccessDecision{Verdict: Deny, Reason: reason, Detail: detail}
}
