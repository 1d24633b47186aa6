// Package policy implements the access-control statement/policy data model
// of §3: tagged statement and policy records carrying add|remove|update
// delta semantics, evaluated downstream by internal/authz and applied to a
// materialized view by internal/materializer.
package policy

import "encoding/json"

// Effect is the outcome a matching statement grants or denies.
type Effect string

const (
	EffectAllow Effect = "Allow"
	EffectDeny  Effect = "Deny"
)

// StringOrSlice unmarshals either a single string or a list of strings into a
// slice, matching the loose "one or many" shape of action/resource/principal
// fields from the wire schema.
type StringOrSlice []string

func (s *StringOrSlice) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*s = StringOrSlice{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*s = StringOrSlice(many)
	return nil
}

func (s StringOrSlice) MarshalJSON() ([]byte, error) {
	return json.Marshal([]string(s))
}

// Contains reports whether s (read as a set) is a superset of other.
func (s StringOrSlice) Contains(other StringOrSlice) bool {
	set := make(map[string]struct{}, len(s))
	for _, v := range s {
		set[v] = struct{}{}
	}
	for _, v := range other {
		if _, ok := set[v]; !ok {
			return false
		}
	}
	return true
}

// Statement is a single access-control rule. Condition is an extensible,
// opaque predicate map left untouched by the ledger.
type Statement struct {
	Version   string            `json:"version"`
	Sid       string            `json:"sid"`
	Effect    Effect            `json:"effect"`
	Action    StringOrSlice     `json:"action"`
	Resource  StringOrSlice     `json:"resource"`
	Condition map[string]any    `json:"condition,omitempty"`
	Principal StringOrSlice     `json:"principal,omitempty"`
}

// IsRemovalMarker reports whether this statement's action field is being
// overloaded as a removal instruction per §4.3/§9(c): the first action
// element equals "remove".
func (s Statement) IsRemovalMarker() bool {
	return len(s.Action) > 0 && s.Action[0] == "remove"
}
