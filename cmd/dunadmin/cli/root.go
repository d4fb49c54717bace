// Package cli implements the dunadmin operator commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dunvault/dunvault/internal/authz"
	"github.com/dunvault/dunvault/internal/diagnostics"
	"github.com/dunvault/dunvault/internal/users"
	"github.com/dunvault/dunvault/internal/voters"
)

// UserAdmin is the account administration surface used by the CLI.
type UserAdmin interface {
	List(ctx context.Context, actor authz.Principal) ([]users.Account, error)
	Lookup(ctx context.Context, actor authz.Principal, username string) (*users.Account, error)
	Create(ctx context.Context, actor authz.Principal, in users.NewAccount, ip string) (*users.Account, error)
	SetActive(ctx context.Context, actor authz.Principal, id int64, active bool, ip string) (*users.Account, error)
	ResetPassword(ctx context.Context, actor authz.Principal, id int64, next, ip string) error
	BulkResetPassword(ctx context.Context, actor authz.Principal, next, ip string) (int64, error)
}

// Reporter builds DUN diagnostics.
type Reporter interface {
	Report(ctx context.Context) (diagnostics.Report, error)
}

// VoterImporter loads parsed register rows.
type VoterImporter interface {
	Import(ctx context.Context, rows []voters.Voter) (int64, error)
}

// Backend opens the stores a command needs. Commands that only hash never
// touch it.
type Backend interface {
	Users(ctx context.Context) (UserAdmin, error)
	Diagnostics(ctx context.Context) (Reporter, error)
	Importer(ctx context.Context) (VoterImporter, error)
	Jobs(ctx context.Context) (*JobsCLI, error)
}

// Options configures the root command.
type Options struct {
	Version string
	Backend Backend
	Prompt  *Prompter
}

// ErrAborted is returned when the operator declines a confirmation.
var ErrAborted = errors.New("aborted")

// New creates the root dunadmin command.
func New(opts Options) *cobra.Command {
	root := &cobra.Command{
		Use:           "dunadmin",
		Short:         "Operator tooling for dunvault accounts and voter data",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	prompt := opts.Prompt
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if prompt == nil {
			prompt = NewPrompter(cmd.InOrStdin(), cmd.ErrOrStderr())
		}
	}
	prompter := func() *Prompter { return prompt }

	root.AddCommand(newVersionCmd(opts.Version))
	root.AddCommand(newHashCmd(prompter))
	root.AddCommand(newListUsersCmd(opts.Backend))
	root.AddCommand(newCreateUserCmd(opts.Backend, prompter))
	root.AddCommand(newResetPasswordCmd(opts.Backend, prompter))
	root.AddCommand(newBulkResetPasswordCmd(opts.Backend, prompter))
	root.AddCommand(newSetActiveCmd(opts.Backend))
	root.AddCommand(newImportVotersCmd(opts.Backend))
	root.AddCommand(newDiagnoseCmd(opts.Backend))
	root.AddCommand(newJobsCmd(opts.Backend))
	return root
}

func newVersionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", version)
		},
	}
}

func userAdmin(cmd *cobra.Command, backend Backend) (UserAdmin, error) {
	if backend == nil {
		return nil, errors.New("no backend configured")
	}
	return backend.Users(cmd.Context())
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
