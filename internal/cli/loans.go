package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mrlokans/librarian/internal/config"
	"github.com/mrlokans/librarian/internal/entrypoint"
)

func newSweepRemindersCommand(cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep-reminders",
		Short: "Send pending due-date reminders and overdue notices once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := entrypoint.NewApp(cfg(), false)
			if err != nil {
				return err
			}
			defer app.Close()

			result, err := app.Sweeper.Sweep(cmd.Context())
			app.Audit.LogReminder("reminder_sweep", result.String(), err)
			if err != nil {
				return fmt.Errorf("sweep failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sweep complete: %s\n", result)
			return nil
		},
	}
}

func newExportBorrowsCommand(cfg func() *config.Config) *cobra.Command {
	var userID uint
	var out string

	cmd := &cobra.Command{
		Use:   "export-borrows",
		Short: "Write the borrow history as CSV",
		Example: `  librarian export-borrows --out borrow_history.csv
  librarian export-borrows --user-id 7`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := entrypoint.NewApp(cfg(), false)
			if err != nil {
				return err
			}
			defer app.Close()

			var w io.Writer = cmd.OutOrStdout()
			if out != "" && out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", out, err)
				}
				defer f.Close()
				w = f
			}

			rows, err := app.Ledger.ExportCSV(cmd.Context(), w, userID)
			app.Audit.LogExport(0, rows, err)
			if err != nil {
				return fmt.Errorf("export failed: %w", err)
			}
			if out != "" && out != "-" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d loans to %s\n", rows, out)
			}
			return nil
		},
	}

	cmd.Flags().UintVar(&userID, "user-id", 0, "Only export loans of this user")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (stdout when omitted)")
	return cmd
}
