package cli

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/dunvault/dunvault/internal/voters"
)

func newImportVotersCmd(backend Backend) *cobra.Command {
	var dun string
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "import-voters <file.csv>",
		Short: "Load a register CSV export into the voters table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			rows, err := voters.ParseCSV(f, dun)
			if err != nil {
				return err
			}
			missing := 0
			for _, v := range rows {
				if v.DUN == "" {
					missing++
				}
			}
			printf(cmd.OutOrStdout(), "parsed %d voter(s), %d without DUN\n", len(rows), missing)
			if dryRun {
				return nil
			}
			if backend == nil {
				return errors.New("no backend configured")
			}
			importer, err := backend.Importer(cmd.Context())
			if err != nil {
				return err
			}
			n, err := importer.Import(cmd.Context(), rows)
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "imported %d voter(s)\n", n)
			return nil
		},
	}
	cmd.Flags().StringVar(&dun, "dun", "", "DUN for rows whose DUN column is empty or absent")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "parse and report without writing")
	return cmd
}
