package cli

import (
	"github.com/spf13/cobra"

	"github.com/mrlokans/librarian/internal/config"
	"github.com/mrlokans/librarian/internal/entrypoint"
	"github.com/mrlokans/librarian/internal/logging"
)

// ConfigLoader produces the configuration a command runs with.
type ConfigLoader func() *config.Config

// Execute runs the librarian command line.
func Execute(version string) error {
	return NewRootCommand(version, config.NewConfig).Execute()
}

// NewRootCommand builds the command tree. Without a subcommand the HTTP
// server is started.
func NewRootCommand(version string, load ConfigLoader) *cobra.Command {
	var cfg *config.Config

	root := &cobra.Command{
		Use:          "librarian",
		Short:        "Digital library API server and maintenance tools",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg = load()
			logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return entrypoint.Run(cfg, version)
		},
	}

	current := func() *config.Config { return cfg }

	root.AddCommand(
		newServeCommand(version, current),
		newSeedCommand(current),
		newCreateAdminCommand(current),
		newSweepRemindersCommand(current),
		newExportBorrowsCommand(current),
	)
	return root
}

func newServeCommand(version string, cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return entrypoint.Run(cfg(), version)
		},
	}
}
