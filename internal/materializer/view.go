// Package materializer turns a sequence of per-block policy deltas into the
// cumulative access-control state that internal/authz evaluates against
// (§4.3). Each block's body carries only the policies touched while mining
// that block; View accumulates them across the whole chain.
package materializer

import "policyledger/internal/policy"

// View is the materialized state of §3: resource policies by ID, and
// identity policies by principal then ID.
type View struct {
	ResourcePolicies map[string]policy.Policy
	IdentityPolicies map[string]map[string]policy.Policy
}

// New returns an empty View.
func New() *View {
	return &View{
		ResourcePolicies: make(map[string]policy.Policy),
		IdentityPolicies: make(map[string]map[string]policy.Policy),
	}
}

// AllResourcePolicies returns every resource policy in the view; authz
// filters by bucket statement-by-statement since a resource policy's
// scoping lives on each statement, not on the policy itself.
func (v *View) AllResourcePolicies() []policy.Policy {
	out := make([]policy.Policy, 0, len(v.ResourcePolicies))
	for _, p := range v.ResourcePolicies {
		out = append(out, p)
	}
	return out
}

// IdentityPoliciesFor returns the identity policies attached to principal.
func (v *View) IdentityPoliciesFor(principal string) []policy.Policy {
	byID, ok := v.IdentityPolicies[principal]
	if !ok {
		return nil
	}
	out := make([]policy.Policy, 0, len(byID))
	for _, p := range byID {
		out = append(out, p)
	}
	return out
}
