// Package authz decides, for an authenticated principal, whether an operation
// is allowed and which DUN-scoped subset of voter rows is visible.
package authz

import (
	"fmt"

	"github.com/dunvault/dunvault/internal/rbac"
	"github.com/dunvault/dunvault/internal/shared"
)

// Cause distinguishes denial kinds internally. Clients only ever see forbidden.
type Cause string

const (
	CauseCapability Cause = "capability"
	CauseScope      Cause = "scope"
	CauseNoDUN      Cause = "no_dun"
)

// Denial is returned for every refused decision.
type Denial struct {
	Cause      Cause
	Capability rbac.Capability
	message    string
}

func (d *Denial) Error() string { return d.message }

// Reason returns the client-facing message.
func (d *Denial) Reason() string { return d.message }

// Unwrap lets errors.Is match shared.ErrForbidden and shared.ErrNoDUNAssignment.
func (d *Denial) Unwrap() error {
	if d.Cause == CauseNoDUN {
		return shared.ErrNoDUNAssignment
	}
	return shared.ErrForbidden
}

// Decision describes one evaluated check for observers.
type Decision struct {
	Check      string
	Allowed    bool
	Cause      Cause
	Capability rbac.Capability
}

// Observer receives every decision. Implementations must be safe for
// concurrent use.
type Observer interface {
	ObserveDecision(p Principal, d Decision)
}

// Scope is the row-visibility predicate for list operations. The zero value
// matches nothing.
type Scope struct {
	All bool
	DUN string
}

// Empty reports whether the scope matches no rows.
func (s Scope) Empty() bool {
	return !s.All && s.DUN == ""
}

// Allows reports whether a row tagged dun is visible.
func (s Scope) Allows(dun string) bool {
	if s.All {
		return true
	}
	return s.DUN != "" && s.DUN == dun
}

// Key is a stable identifier for caching scoped aggregates.
func (s Scope) Key() string {
	switch {
	case s.All:
		return "all"
	case s.Empty():
		return "none"
	default:
		return "dun:" + s.DUN
	}
}

// Authorizer combines the permission table with the DUN scope rule. It holds
// no mutable state.
type Authorizer struct {
	table    *rbac.Table
	observer Observer
}

// NewAuthorizer constructs an Authorizer. A nil table means rbac.DefaultTable.
func NewAuthorizer(table *rbac.Table, observer Observer) *Authorizer {
	if table == nil {
		table = &rbac.DefaultTable
	}
	return &Authorizer{table: table, observer: observer}
}

// Authorize checks that p holds capability.
func (a *Authorizer) Authorize(p Principal, capability rbac.Capability) error {
	if a.table.Has(p.Role, capability) {
		a.observe(p, Decision{Check: "capability", Allowed: true, Capability: capability})
		return nil
	}
	a.observe(p, Decision{Check: "capability", Cause: CauseCapability, Capability: capability})
	return &Denial{
		Cause:      CauseCapability,
		Capability: capability,
		message:    fmt.Sprintf("Permission denied: %s required", capability),
	}
}

// Scope returns the list predicate for p. Only a super admin may narrow to an
// arbitrary DUN through requestedDUN; for everyone else it is ignored.
func (a *Authorizer) Scope(p Principal, requestedDUN string) Scope {
	if p.IsSuperAdmin() {
		if requestedDUN != "" {
			return Scope{DUN: requestedDUN}
		}
		return Scope{All: true}
	}
	if !p.HasDUN() {
		a.observe(p, Decision{Check: "scope", Cause: CauseNoDUN})
		return Scope{}
	}
	return Scope{DUN: p.DUN}
}

// CheckResource decides visibility of a single fetched resource tagged
// resourceDUN. The message never names the resource's DUN.
func (a *Authorizer) CheckResource(p Principal, resourceDUN string) error {
	switch {
	case p.IsSuperAdmin():
	case !p.HasDUN():
		a.observe(p, Decision{Check: "scope", Cause: CauseNoDUN})
		return &Denial{Cause: CauseNoDUN, message: "User has no DUN assignment"}
	case p.DUN != resourceDUN:
		a.observe(p, Decision{Check: "scope", Cause: CauseScope})
		return &Denial{Cause: CauseScope, message: "Access denied to this DUN"}
	}
	a.observe(p, Decision{Check: "scope", Allowed: true})
	return nil
}

// CanMutate layers the capability check over the scope check.
func (a *Authorizer) CanMutate(p Principal, capability rbac.Capability, resourceDUN string) error {
	if err := a.Authorize(p, capability); err != nil {
		return err
	}
	return a.CheckResource(p, resourceDUN)
}

func (a *Authorizer) observe(p Principal, d Decision) {
	if a.observer != nil {
		a.observer.ObserveDecision(p, d)
	}
}
