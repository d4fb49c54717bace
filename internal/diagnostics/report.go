// Package diagnostics cross-checks DUN assignments between accounts and the
// voter register. A user whose DUN matches no voter row sees an empty
// register, and voters without a DUN are invisible to everyone but a super
// admin.
package diagnostics

import (
	"sort"
	"strings"

	"github.com/dunvault/dunvault/internal/rbac"
)

// Finding kinds, also used as metric labels.
const (
	FindingVotersWithoutDUN = "voters_without_dun"
	FindingUsersWithoutDUN  = "users_without_dun"
	FindingDUNWithoutUsers  = "dun_without_users"
	FindingDUNWithoutVoters = "dun_without_voters"
)

// DUNCount is a voter total for one DUN.
type DUNCount struct {
	DUN    string `json:"dun"`
	Voters int64  `json:"voters"`
}

// AccountRef identifies an account in a report.
type AccountRef struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	DUN      string `json:"dun,omitempty"`
}

// DUNUsers lists the accounts assigned to one DUN.
type DUNUsers struct {
	DUN   string       `json:"dun"`
	Users []AccountRef `json:"users"`
}

// OrphanUsers is a DUN held by accounts but absent from the register, with
// the closest register DUN as a hint.
type OrphanUsers struct {
	DUN        string       `json:"dun"`
	Users      []AccountRef `json:"users"`
	ClosestDUN string       `json:"closest_dun,omitempty"`
}

// Match is a DUN present on both sides.
type Match struct {
	DUN    string `json:"dun"`
	Voters int64  `json:"voters"`
	Users  int    `json:"users"`
}

// Report is the outcome of one diagnostics run.
type Report struct {
	TotalVoters      int64         `json:"total_voters"`
	VotersByDUN      []DUNCount    `json:"voters_by_dun"`
	VotersWithoutDUN int64         `json:"voters_without_dun"`
	TotalUsers       int           `json:"total_users"`
	UsersByDUN       []DUNUsers    `json:"users_by_dun"`
	UsersWithoutDUN  []AccountRef  `json:"users_without_dun"`
	DUNWithoutUsers  []DUNCount    `json:"dun_without_users"`
	DUNWithoutVoters []OrphanUsers `json:"dun_without_voters"`
	Matching         []Match       `json:"matching"`
}

// Healthy reports whether every finding list is empty.
func (r Report) Healthy() bool {
	return r.VotersWithoutDUN == 0 &&
		len(r.UsersWithoutDUN) == 0 &&
		len(r.DUNWithoutUsers) == 0 &&
		len(r.DUNWithoutVoters) == 0
}

// Findings returns the count per finding kind.
func (r Report) Findings() map[string]int {
	return map[string]int{
		FindingVotersWithoutDUN: int(r.VotersWithoutDUN),
		FindingUsersWithoutDUN:  len(r.UsersWithoutDUN),
		FindingDUNWithoutUsers:  len(r.DUNWithoutUsers),
		FindingDUNWithoutVoters: len(r.DUNWithoutVoters),
	}
}

// Build assembles a report from per-DUN voter counts, where an empty DUN
// counts voters without one, and the account list. Super admin accounts never
// need a DUN and are not reported as missing one.
func Build(voterCounts []DUNCount, accounts []AccountRef) Report {
	report := Report{
		VotersByDUN:      make([]DUNCount, 0, len(voterCounts)),
		TotalUsers:       len(accounts),
		UsersByDUN:       make([]DUNUsers, 0),
		UsersWithoutDUN:  make([]AccountRef, 0),
		DUNWithoutUsers:  make([]DUNCount, 0),
		DUNWithoutVoters: make([]OrphanUsers, 0),
		Matching:         make([]Match, 0),
	}

	voters := make(map[string]int64, len(voterCounts))
	for _, c := range voterCounts {
		if c.DUN == "" {
			report.VotersWithoutDUN += c.Voters
			report.TotalVoters += c.Voters
			continue
		}
		voters[c.DUN] += c.Voters
		report.TotalVoters += c.Voters
	}
	for _, dun := range sortedKeys(voters) {
		report.VotersByDUN = append(report.VotersByDUN, DUNCount{DUN: dun, Voters: voters[dun]})
	}

	users := make(map[string][]AccountRef)
	for _, a := range accounts {
		if a.DUN == "" {
			if a.Role != rbac.RoleSuperAdmin.String() {
				report.UsersWithoutDUN = append(report.UsersWithoutDUN, a)
			}
			continue
		}
		users[a.DUN] = append(users[a.DUN], a)
	}
	for _, dun := range sortedKeys(users) {
		members := users[dun]
		sort.Slice(members, func(i, j int) bool { return members[i].Username < members[j].Username })
		report.UsersByDUN = append(report.UsersByDUN, DUNUsers{DUN: dun, Users: members})
		if n, ok := voters[dun]; ok {
			report.Matching = append(report.Matching, Match{DUN: dun, Voters: n, Users: len(members)})
			continue
		}
		report.DUNWithoutVoters = append(report.DUNWithoutVoters, OrphanUsers{
			DUN:        dun,
			Users:      members,
			ClosestDUN: closest(dun, voters),
		})
	}
	for _, c := range report.VotersByDUN {
		if _, ok := users[c.DUN]; !ok {
			report.DUNWithoutUsers = append(report.DUNWithoutUsers, c)
		}
	}
	sort.Slice(report.UsersWithoutDUN, func(i, j int) bool {
		return report.UsersWithoutDUN[i].Username < report.UsersWithoutDUN[j].Username
	})
	return report
}

// closest picks the register DUN whose character set differs least from dun,
// ignoring case. Spaces count as characters. Ties resolve to the alphabetically first DUN.
func closest(dun string, voters map[string]int64) string {
	best, bestDiff := "", -1
	target := letters(dun)
	for _, candidate := range sortedKeys(voters) {
		other := letters(candidate)
		diff := 0
		for r := range target {
			if !other[r] {
				diff++
			}
		}
		for r := range other {
			if !target[r] {
				diff++
			}
		}
		if bestDiff < 0 || diff < bestDiff {
			best, bestDiff = candidate, diff
		}
	}
	return best
}

func letters(s string) map[rune]bool {
	out := make(map[rune]bool)
	for _, r := range strings.ToLower(s) {
		out[r] = true
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
