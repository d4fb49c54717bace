package cli

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/spf13/cobra"

	"github.com/dunvault/dunvault/internal/diagnostics"
)

func newDiagnoseCmd(backend Backend) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "diagnose-duns",
		Short: "Report DUN mismatches between accounts and voters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if backend == nil {
				return errors.New("no backend configured")
			}
			reporter, err := backend.Diagnostics(cmd.Context())
			if err != nil {
				return err
			}
			report, err := reporter.Report(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			writeReport(cmd.OutOrStdout(), report)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

func writeReport(w io.Writer, r diagnostics.Report) {
	printf(w, "Voters by DUN:\n")
	for _, c := range r.VotersByDUN {
		printf(w, "  %-30s %10d\n", c.DUN, c.Voters)
	}
	if r.VotersWithoutDUN > 0 {
		printf(w, "  %-30s %10d\n", "(no DUN)", r.VotersWithoutDUN)
		printf(w, "WARNING: %d voter(s) have no DUN and are visible only to super admins\n", r.VotersWithoutDUN)
	}

	printf(w, "\nAccounts by DUN:\n")
	for _, u := range r.UsersByDUN {
		printf(w, "  %s:\n", u.DUN)
		for _, a := range u.Users {
			printf(w, "    - %s (%s)\n", a.Username, a.Role)
		}
	}
	if len(r.UsersWithoutDUN) > 0 {
		printf(w, "  (no DUN):\n")
		for _, a := range r.UsersWithoutDUN {
			printf(w, "    - %s (%s)\n", a.Username, a.Role)
		}
	}

	if len(r.DUNWithoutUsers) > 0 {
		printf(w, "\nWARNING: DUNs with voters but no accounts:\n")
		for _, c := range r.DUNWithoutUsers {
			printf(w, "  - %s (%d voters)\n", c.DUN, c.Voters)
		}
	}
	if len(r.DUNWithoutVoters) > 0 {
		printf(w, "\nWARNING: DUNs with accounts but no voters:\n")
		for _, o := range r.DUNWithoutVoters {
			printf(w, "  - %s (%d account(s))", o.DUN, len(o.Users))
			if o.ClosestDUN != "" {
				printf(w, ", closest register DUN: %s", o.ClosestDUN)
			}
			printf(w, "\n")
		}
	}
	if len(r.Matching) > 0 {
		printf(w, "\nDUNs with both voters and accounts:\n")
		for _, m := range r.Matching {
			printf(w, "  - %s (%d voters, %d accounts)\n", m.DUN, m.Voters, m.Users)
		}
	}

	printf(w, "\nSummary: %d voters, %d accounts, %d DUN(s) with voters, %d with accounts, %d matching\n",
		r.TotalVoters, r.TotalUsers, len(r.VotersByDUN), len(r.UsersByDUN), len(r.Matching))
	if r.Healthy() {
		printf(w, "No DUN problems found.\n")
	}
}
