// Package authz implements the three-tier authorization check of §4.10:
// identity policies gate first, then resource policies, each using the
// same first-mismatch-is-an-implicit-deny evaluator. The evaluator is
// deliberately non-union-covering: a single non-matching statement denies
// the whole policy even if a later statement would have matched.
package authz

import (
	"errors"

	"policyledger/internal/materializer"
	"policyledger/internal/policy"
)

// Verdict is the outcome of a single evaluate* pass: a human-readable
// reason alongside the allow/deny bit, mirroring the source's (str, bool)
// return shape.
type Verdict struct {
	Reason string
	Allow  bool
}

const (
	reasonAllow         = "Allow"
	reasonExplicitDeny  = "Explicit Deny"
	reasonImplicitDeny  = "Implicit Deny"
)

// Request carries the fields §4.10's evaluators read off the incoming
// authorization check (extract_user_data in the source).
type Request struct {
	ClientID  string
	Action    []string
	Bucket    string
	Resources []string
}

// ErrNoIdentityPolicies and ErrNoResourcePolicies are the two "nothing to
// evaluate" terminal states of §4.10, each a 403 distinct from an
// evaluated deny.
var (
	ErrNoIdentityPolicies = errors.New("authz: user has no identity policies")
	ErrNoResourcePolicies = errors.New("authz: no resource policies found for this resource")
)

// evaluateStatements runs the shared algorithm of §4.10: for every
// statement, in map order, require action and the given resource-match
// predicate both hold; a mismatch denies immediately, a match that is
// Effect: Deny denies immediately, and only a policy whose every statement
// matches with Effect: Allow reaches the end.
func evaluateStatements(policies []policy.Policy, matches func(policy.Statement) bool) Verdict {
	for _, p := range policies {
		for _, stmt := range p.Statements {
			if !matches(stmt) {
				return Verdict{Reason: reasonImplicitDeny, Allow: false}
			}
			if stmt.Effect == policy.EffectDeny {
				return Verdict{Reason: reasonExplicitDeny, Allow: false}
			}
		}
	}
	return Verdict{Reason: reasonAllow, Allow: true}
}

// EvaluateIdentityPolicies implements evaluate_identity_policies: a
// statement matches when the requested actions are a subset of the
// statement's actions and the requested resources are a subset of the
// statement's resources.
func EvaluateIdentityPolicies(policies []policy.Policy, req Request) Verdict {
	return evaluateStatements(policies, func(stmt policy.Statement) bool {
		return stmt.Action.Contains(policy.StringOrSlice(req.Action)) &&
			stmt.Resource.Contains(policy.StringOrSlice(req.Resources))
	})
}

// EvaluateResourcePolicies implements evaluate_resource_policies: a
// statement additionally requires the requesting client id be a subset of
// the statement's principal set, matched against the bucket rather than
// the free-form resource list.
func EvaluateResourcePolicies(policies []policy.Policy, req Request) Verdict {
	return evaluateStatements(policies, func(stmt policy.Statement) bool {
		return stmt.Action.Contains(policy.StringOrSlice(req.Action)) &&
			stmt.Resource.Contains(policy.StringOrSlice{req.Bucket}) &&
			stmt.Principal.Contains(policy.StringOrSlice{req.ClientID})
	})
}

// policiesForResource narrows a flat resource-policy set down to those with
// at least one statement naming bucket, reconstructing the source's
// bucket-keyed policy cache lookup over this implementation's flat,
// id-keyed store.
func policiesForResource(policies []policy.Policy, bucket string) []policy.Policy {
	var out []policy.Policy
	for _, p := range policies {
		for _, stmt := range p.Statements {
			if containsString(stmt.Resource, bucket) {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

func containsString(ss policy.StringOrSlice, v string) bool {
	for _, s := range ss {
		if s == v {
			return true
		}
	}
	return false
}

// Authorize implements the full §4.10 orchestration: identity policies
// must exist and allow the request, then resource policies scoped to
// req.Bucket must exist and allow it. Either absence or either evaluator's
// deny ends the check immediately.
func Authorize(view *materializer.View, req Request) (Verdict, error) {
	identityPolicies := view.IdentityPoliciesFor(req.ClientID)
	if len(identityPolicies) == 0 {
		return Verdict{}, ErrNoIdentityPolicies
	}
	if v := EvaluateIdentityPolicies(identityPolicies, req); !v.Allow {
		return v, nil
	}

	resourcePolicies := policiesForResource(view.AllResourcePolicies(), req.Bucket)
	if len(resourcePolicies) == 0 {
		return Verdict{}, ErrNoResourcePolicies
	}
	if v := EvaluateResourcePolicies(resourcePolicies, req); !v.Allow {
		return v, nil
	}

	return Verdict{Reason: reasonAllow, Allow: true}, nil
}
