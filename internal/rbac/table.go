package rbac

import (
	"errors"
	"fmt"
)

// Table is a role × capability grant matrix. Every cell is defined; there is
// no implicit default.
type Table [roleCount][capabilityCount]bool

// DefaultTable is the deployed permission matrix. Changing it is a release,
// not a runtime operation.
var DefaultTable = Table{
	RoleSuperAdmin: {
		CapViewAllDUN:      true,
		CapViewOwnDUN:      false,
		CapExportOwnDUN:    false,
		CapExportAll:       true,
		CapUpdateVoters:    true,
		CapManageUsers:     true,
		CapGenerateReports: true,
		CapViewAuditLogs:   true,
	},
	RoleCandidate: {
		CapViewAllDUN:      false,
		CapViewOwnDUN:      true,
		CapExportOwnDUN:    true,
		CapExportAll:       false,
		CapUpdateVoters:    true,
		CapManageUsers:     false,
		CapGenerateReports: true,
		CapViewAuditLogs:   false,
	},
	RoleCandidateAssistant: {
		CapViewAllDUN:      false,
		CapViewOwnDUN:      true,
		CapExportOwnDUN:    false,
		CapExportAll:       false,
		CapUpdateVoters:    false,
		CapManageUsers:     false,
		CapGenerateReports: true,
		CapViewAuditLogs:   false,
	},
	RoleSuperUser: {
		CapViewAllDUN:      false,
		CapViewOwnDUN:      true,
		CapExportOwnDUN:    true,
		CapExportAll:       false,
		CapUpdateVoters:    false,
		CapManageUsers:     false,
		CapGenerateReports: true,
		CapViewAuditLogs:   false,
	},
	RolePDM: {
		CapViewAllDUN:      false,
		CapViewOwnDUN:      true,
		CapExportOwnDUN:    true,
		CapExportAll:       false,
		CapUpdateVoters:    true,
		CapManageUsers:     false,
		CapGenerateReports: true,
		CapViewAuditLogs:   false,
	},
}

// Has reports whether role holds capability. Unknown roles and capabilities
// are always denied.
func (t *Table) Has(role Role, capability Capability) bool {
	if t == nil || !role.Valid() || !capability.Valid() {
		return false
	}
	return t[role][capability]
}

// Granted lists the capabilities held by role.
func (t *Table) Granted(role Role) []Capability {
	var out []Capability
	for _, c := range Capabilities() {
		if t.Has(role, c) {
			out = append(out, c)
		}
	}
	return out
}

// Has checks the default table.
func Has(role Role, capability Capability) bool {
	return DefaultTable.Has(role, capability)
}

// Validate checks that the name tables are total and unique and that no
// grant is recorded for the unknown role or capability.
func Validate(t *Table) error {
	if t == nil {
		return errors.New("rbac: nil table")
	}
	var errs []error
	seenRoles := make(map[string]Role, roleCount)
	for _, r := range Roles() {
		name := r.String()
		if name == "" {
			errs = append(errs, fmt.Errorf("rbac: role %d has no name", r))
			continue
		}
		if prev, ok := seenRoles[name]; ok {
			errs = append(errs, fmt.Errorf("rbac: role name %q used by %d and %d", name, prev, r))
		}
		seenRoles[name] = r
	}
	seenCaps := make(map[string]Capability, capabilityCount)
	for _, c := range Capabilities() {
		name := c.String()
		if name == "" {
			errs = append(errs, fmt.Errorf("rbac: capability %d has no name", c))
			continue
		}
		if prev, ok := seenCaps[name]; ok {
			errs = append(errs, fmt.Errorf("rbac: capability name %q used by %d and %d", name, prev, c))
		}
		seenCaps[name] = c
	}
	for c := Capability(0); c < capabilityCount; c++ {
		if t[RoleUnknown][c] {
			errs = append(errs, fmt.Errorf("rbac: unknown role granted %q", c))
		}
	}
	for r := Role(0); r < roleCount; r++ {
		if t[r][CapUnknown] {
			errs = append(errs, fmt.Errorf("rbac: role %q granted unknown capability", r))
		}
	}
	return errors.Join(errs...)
}
