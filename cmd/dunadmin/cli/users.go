package cli

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dunvault/dunvault/internal/password"
	"github.com/dunvault/dunvault/internal/users"
)

func newHashCmd(prompt func() *Prompter) *cobra.Command {
	var cost int
	cmd := &cobra.Command{
		Use:   "hash",
		Short: "Hash a password for manual insertion into the users table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			plaintext, err := prompt().NewPassword()
			if err != nil {
				return err
			}
			hasher := password.NewHasher()
			if cost > 0 {
				hasher = password.NewHasherWithCost(cost)
			}
			digest, err := hasher.Hash(plaintext)
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "%s\n", digest)
			return nil
		},
	}
	cmd.Flags().IntVar(&cost, "cost", 0, "bcrypt cost (defaults to the server cost)")
	_ = cmd.Flags().MarkHidden("cost")
	return cmd
}

func newListUsersCmd(backend Backend) *cobra.Command {
	return &cobra.Command{
		Use:   "list-users",
		Short: "List accounts with role, DUN and status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			admin, err := userAdmin(cmd, backend)
			if err != nil {
				return err
			}
			accounts, err := admin.List(cmd.Context(), users.SystemPrincipal)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			printf(tw, "ID\tUSERNAME\tROLE\tDUN\tACTIVE\tMUST CHANGE\n")
			for _, a := range accounts {
				dun := a.DUN
				if dun == "" {
					dun = "-"
				}
				printf(tw, "%d\t%s\t%s\t%s\t%t\t%t\n", a.ID, a.Username, a.Role, dun, a.IsActive, a.MustChangePassword)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "%d account(s)\n", len(accounts))
			return nil
		},
	}
}

func newCreateUserCmd(backend Backend, prompt func() *Prompter) *cobra.Command {
	var in users.NewAccount
	cmd := &cobra.Command{
		Use:   "create-user <username>",
		Short: "Create an account; it must change its password at first login",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			admin, err := userAdmin(cmd, backend)
			if err != nil {
				return err
			}
			in.Username = args[0]
			if in.Password, err = prompt().NewPassword(); err != nil {
				return err
			}
			account, err := admin.Create(cmd.Context(), users.SystemPrincipal, in, "")
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "created %s (id %d, role %s, dun %q)\n", account.Username, account.ID, account.Role, account.DUN)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Role, "role", "", "role: super_admin, candidate, candidate_assistant, super_user or pdm")
	cmd.Flags().StringVar(&in.DUN, "dun", "", "DUN assignment (required except for super_admin)")
	cmd.Flags().StringVar(&in.FullName, "full-name", "", "display name")
	cmd.Flags().StringVar(&in.Email, "email", "", "contact email")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}

func newResetPasswordCmd(backend Backend, prompt func() *Prompter) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-password <username>",
		Short: "Set a new password for one account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			admin, err := userAdmin(cmd, backend)
			if err != nil {
				return err
			}
			account, err := admin.Lookup(cmd.Context(), users.SystemPrincipal, args[0])
			if err != nil {
				return err
			}
			next, err := prompt().NewPassword()
			if err != nil {
				return err
			}
			if err := admin.ResetPassword(cmd.Context(), users.SystemPrincipal, account.ID, next, ""); err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "password reset for %s; change required at next login\n", account.Username)
			return nil
		},
	}
}

func newBulkResetPasswordCmd(backend Backend, prompt func() *Prompter) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "bulk-reset-password",
		Short: "Give every account except super admins the same temporary password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			admin, err := userAdmin(cmd, backend)
			if err != nil {
				return err
			}
			if !yes {
				ok, err := prompt().Confirm("Reset the password of every non super admin account?")
				if err != nil {
					return err
				}
				if !ok {
					return ErrAborted
				}
			}
			next, err := prompt().NewPassword()
			if err != nil {
				return err
			}
			n, err := admin.BulkResetPassword(cmd.Context(), users.SystemPrincipal, next, "")
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "reset %d account(s); each must change password at next login\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func newSetActiveCmd(backend Backend) *cobra.Command {
	return &cobra.Command{
		Use:   "set-active <username> <true|false>",
		Short: "Activate or deactivate an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			active, err := strconv.ParseBool(args[1])
			if err != nil {
				return fmt.Errorf("second argument must be true or false: %w", err)
			}
			admin, err := userAdmin(cmd, backend)
			if err != nil {
				return err
			}
			account, err := admin.Lookup(cmd.Context(), users.SystemPrincipal, args[0])
			if err != nil {
				return err
			}
			account, err = admin.SetActive(cmd.Context(), users.SystemPrincipal, account.ID, active, "")
			if err != nil {
				return err
			}
			state := "inactive"
			if account.IsActive {
				state = "active"
			}
			printf(cmd.OutOrStdout(), "%s is now %s\n", account.Username, state)
			return nil
		},
	}
}
