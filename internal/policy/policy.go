package policy

import "fmt"

// DeltaAction is the mutation verb a Policy carries. It is not an
// authorization effect; see Statement.Effect for that.
type DeltaAction string

const (
	DeltaAdd    DeltaAction = "add"
	DeltaRemove DeltaAction = "remove"
	DeltaUpdate DeltaAction = "update"
)

func (a DeltaAction) Valid() bool {
	switch a {
	case DeltaAdd, DeltaRemove, DeltaUpdate:
		return true
	}
	return false
}

// Kind discriminates the two policy variants named in §3: resource policies
// carry a principal on every statement, identity policies are attached to a
// subject and omit it.
type Kind string

const (
	KindResource Kind = "resource"
	KindIdentity Kind = "identity"
)

// Policy is a delta-carrying bundle of statements, unique by ID across the
// chain's history. A single tagged struct replaces the source's
// ResourcePolicy/IdentityPolicy class split; Kind discriminates at parse
// time and Validate enforces the variant's shape.
type Policy struct {
	ID         string               `json:"id"`
	Kind       Kind                 `json:"kind"`
	Action     DeltaAction          `json:"action"`
	Statements map[string]Statement `json:"statements"`
	// AttachedTo names the principal an IdentityPolicy is attached to. It is
	// ignored for ResourcePolicy, whose principal scoping lives on each
	// statement instead.
	AttachedTo string `json:"attached_to,omitempty"`
}

// ResourcePolicy and IdentityPolicy are the two variants named in §3,
// expressed as the same underlying tagged struct (see Kind).
type ResourcePolicy = Policy
type IdentityPolicy = Policy

// Validate enforces §3's shape constraints: a unique key per statement
// (guaranteed by the map), a known delta action, and principal presence
// matching the declared kind.
func (p Policy) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("policy: missing id")
	}
	if !p.Action.Valid() {
		return fmt.Errorf("policy %s: invalid action %q", p.ID, p.Action)
	}
	if p.Kind == KindIdentity && p.AttachedTo == "" {
		return fmt.Errorf("policy %s: identity policy missing attached_to", p.ID)
	}
	for sid, stmt := range p.Statements {
		if stmt.Sid != "" && stmt.Sid != sid {
			return fmt.Errorf("policy %s: statement key %q does not match sid %q", p.ID, sid, stmt.Sid)
		}
		switch p.Kind {
		case KindResource:
			if len(stmt.Principal) == 0 && !stmt.IsRemovalMarker() {
				return fmt.Errorf("policy %s: resource statement %q missing principal", p.ID, sid)
			}
		case KindIdentity:
			// principal is implicit from attachment; any supplied value is ignored downstream.
		default:
			return fmt.Errorf("policy %s: unknown kind %q", p.ID, p.Kind)
		}
	}
	return nil
}

// Clone returns a deep copy of p, used whenever a candidate block or
// materialized view needs to mutate a policy without aliasing the source.
func (p Policy) Clone() Policy {
	out := Policy{ID: p.ID, Kind: p.Kind, Action: p.Action, AttachedTo: p.AttachedTo}
	if p.Statements != nil {
		out.Statements = make(map[string]Statement, len(p.Statements))
		for sid, stmt := range p.Statements {
			cp := stmt
			if stmt.Action != nil {
				cp.Action = append(StringOrSlice(nil), stmt.Action...)
			}
			if stmt.Resource != nil {
				cp.Resource = append(StringOrSlice(nil), stmt.Resource...)
			}
			if stmt.Principal != nil {
				cp.Principal = append(StringOrSlice(nil), stmt.Principal...)
			}
			out.Statements[sid] = cp
		}
	}
	return out
}
