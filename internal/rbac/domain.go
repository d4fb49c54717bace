package rbac

import "strings"

// Role is a closed enumeration of account roles.
type Role uint8

const (
	RoleUnknown Role = iota
	RoleSuperAdmin
	RoleCandidate
	RoleCandidateAssistant
	RoleSuperUser
	RolePDM

	roleCount
)

var roleNames = [roleCount]string{
	RoleUnknown:            "",
	RoleSuperAdmin:         "super_admin",
	RoleCandidate:          "candidate",
	RoleCandidateAssistant: "candidate_assistant",
	RoleSuperUser:          "super_user",
	RolePDM:                "pdm",
}

// String returns the stored role name.
func (r Role) String() string {
	if r >= roleCount {
		return ""
	}
	return roleNames[r]
}

// Valid reports whether r is a recognised role.
func (r Role) Valid() bool {
	return r > RoleUnknown && r < roleCount
}

// MarshalText encodes the role as its stored name.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText decodes a stored role name; unknown names map to RoleUnknown.
func (r *Role) UnmarshalText(text []byte) error {
	*r, _ = ParseRole(string(text))
	return nil
}

// ParseRole maps a stored role name to a Role.
func ParseRole(name string) (Role, bool) {
	name = strings.TrimSpace(strings.ToLower(name))
	for i := RoleSuperAdmin; i < roleCount; i++ {
		if roleNames[i] == name {
			return i, true
		}
	}
	return RoleUnknown, false
}

// Roles lists every recognised role.
func Roles() []Role {
	out := make([]Role, 0, roleCount-1)
	for i := RoleSuperAdmin; i < roleCount; i++ {
		out = append(out, i)
	}
	return out
}

// Capability is a named permission a role either has or lacks.
type Capability uint8

const (
	CapUnknown Capability = iota
	CapViewAllDUN
	CapViewOwnDUN
	CapExportOwnDUN
	CapExportAll
	CapUpdateVoters
	CapManageUsers
	CapGenerateReports
	CapViewAuditLogs

	capabilityCount
)

var capabilityNames = [capabilityCount]string{
	CapUnknown:         "",
	CapViewAllDUN:      "view_all_dun",
	CapViewOwnDUN:      "view_own_dun",
	CapExportOwnDUN:    "export_own_dun",
	CapExportAll:       "export_all",
	CapUpdateVoters:    "update_voters",
	CapManageUsers:     "manage_users",
	CapGenerateReports: "generate_reports",
	CapViewAuditLogs:   "view_audit_logs",
}

// String returns the capability name.
func (c Capability) String() string {
	if c >= capabilityCount {
		return ""
	}
	return capabilityNames[c]
}

// Valid reports whether c is a recognised capability.
func (c Capability) Valid() bool {
	return c > CapUnknown && c < capabilityCount
}

// MarshalText encodes the capability name.
func (c Capability) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// ParseCapability maps a capability name to a Capability.
func ParseCapability(name string) (Capability, bool) {
	name = strings.TrimSpace(strings.ToLower(name))
	for i := CapViewAllDUN; i < capabilityCount; i++ {
		if capabilityNames[i] == name {
			return i, true
		}
	}
	return CapUnknown, false
}

// Capabilities lists every recognised capability.
func Capabilities() []Capability {
	out := make([]Capability, 0, capabilityCount-1)
	for i := CapViewAllDUN; i < capabilityCount; i++ {
		out = append(out, i)
	}
	return out
}
