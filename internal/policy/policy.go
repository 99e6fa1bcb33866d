// Package policy decides whether a principal may mutate a resource.
//
// A principal holding an elevated role (Admin or Moderator) may act on
// anything; any other principal may act only on resources it owns. Decide performs no I/O and never fails.
package policy

import "forum/internal/models"

// Action names the mutation being attempted.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// ElevatedRoles are exempt from ownership checks.
var ElevatedRoles = []string{models.RoleAdmin, models.RoleModerator}

// Principal is the authenticated caller: an identity and its role names.
type Principal struct {
	ID    string
	Roles []string
}

// HasRole reports whether the principal holds the named role.
func (p Principal) HasRole(name string) bool {
	for _, r := range p.Roles {
		if r == name {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the principal holds at least one of names.
func (p Principal) HasAnyRole(names ...string) bool {
	for _, n := range names {
		if p.HasRole(n) {
			return true
		}
	}
	return false
}

// IsElevated reports whether p holds Admin or Moderator.
func IsElevated(p Principal) bool {
	return p.HasAnyRole(ElevatedRoles...)
}

// Outcome is the result of a decision. The zero value is Deny.
type Outcome int

const (
	Deny Outcome = iota
	Allow
)

func (o Outcome) String() string {
	if o == Allow {
		return "allow"
	}
	return "deny"
}

// Reasons attached to a Decision.
const (
	ReasonElevated = "elevated"
	ReasonOwner    = "owner"
	ReasonDenied   = "denied"
)

// Decision carries the outcome and the rule that produced it.
type Decision struct {
	Outcome Outcome
	Reason  string
}

// Allowed is shorthand for Outcome == Allow.
func (d Decision) Allowed() bool {
	return d.Outcome == Allow
}

// Decide returns Allow when the principal is elevated or owns the resource.
// Ownership is equality of principal and owner IDs; an empty principal ID
// owns nothing, so a resource without an owner is only mutable by elevated
// principals. The action is carried for callers' logs and does not change
// the rule.
func Decide(p Principal, ownerID string, _ Action) Decision {
	if IsElevated(p) {
		return Decision{Outcome: Allow, Reason: ReasonElevated}
	}
	if p.ID != "" && p.ID == ownerID {
		return Decision{Outcome: Allow, Reason: ReasonOwner}
	}
	return Decision{Outcome: Deny, Reason: ReasonDenied}
}
