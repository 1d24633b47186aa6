package materializer

import "policyledger/internal/ledger"

// Rebuild replays every block's policy delta from genesis, producing a
// fresh View. Consensus calls this after adopting a longer peer chain
// (§4.7 step 3), since the wire transfer carries no precomputed view.
func Rebuild(chain *ledger.Chain) *View {
	view := New()
	for _, b := range chain.Blocks() {
		Apply(view, b.Body.ResourcePolicies, b.Body.IdentityPolicies)
	}
	return view
}
