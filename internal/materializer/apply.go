package materializer

import "policyledger/internal/policy"

// applyOne folds a single delta policy into an existing map keyed by id, per
// §4.3: add replaces wholesale, remove deletes (a no-op if absent, unlike
// the source's bare dict .pop()), and update merges statement-by-statement,
// honoring the per-statement removal overload of §9(c) — including its edge
// case that a removal-marked statement for a sid the view doesn't have yet
// is inserted rather than dropped.
func applyOne(target map[string]policy.Policy, p policy.Policy) {
	switch p.Action {
	case policy.DeltaAdd:
		target[p.ID] = p.Clone()
	case policy.DeltaRemove:
		delete(target, p.ID)
	case policy.DeltaUpdate:
		existing, ok := target[p.ID]
		if !ok {
			existing = policy.Policy{ID: p.ID, Kind: p.Kind, Action: policy.DeltaAdd, AttachedTo: p.AttachedTo, Statements: make(map[string]policy.Statement)}
		} else {
			existing = existing.Clone()
		}
		for sid, stmt := range p.Statements {
			if stmt.IsRemovalMarker() {
				if _, present := existing.Statements[sid]; !present {
					existing.Statements[sid] = stmt
					continue
				}
				delete(existing.Statements, sid)
				continue
			}
			existing.Statements[sid] = stmt
		}
		target[p.ID] = existing
	}
}

// Apply folds one block's resource and identity policy deltas into view
// (§4.3). It never errors: an unknown action was already rejected by
// policy.Validate before the policy reached a block.
func Apply(view *View, resourcePolicies map[string]policy.Policy, identityPolicies map[string]map[string]policy.Policy) {
	for _, p := range resourcePolicies {
		applyOne(view.ResourcePolicies, p)
	}
	for principal, byID := range identityPolicies {
		target, ok := view.IdentityPolicies[principal]
		if !ok {
			target = make(map[string]policy.Policy)
			view.IdentityPolicies[principal] = target
		}
		for _, p := range byID {
			applyOne(target, p)
		}
	}
}
