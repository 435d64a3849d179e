// Package cmd holds the aurora-admin command tree.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/teteocan/aurora-admin/config"
	"github.com/teteocan/aurora-admin/internal/observability"
	"go.uber.org/zap"
)

// cliState is populated by the root PersistentPreRunE before any subcommand runs
type cliState struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewRootCmd builds the command tree
func NewRootCmd() *cobra.Command {
	rt := &cliState{}

	root := &cobra.Command{
		Use:   "aurora-admin",
		Short: "Administrator claims and access control for the Aurora platform",
		Long: `aurora-admin serves the admin claim API and offers maintenance commands
for bootstrapping administrators and checking claim/record consistency.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.New(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			logger, err := observability.NewLogger(observability.LoggerConfig{
				Level:      cfg.Observability.LogLevel,
				Format:     cfg.Observability.LogFormat,
				Production: cfg.IsProduction(),
			})
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			rt.cfg = cfg
			rt.logger = logger
			return nil
		},
	}

	root.AddCommand(
		newServeCmd(rt),
		newGrantAdminCmd(rt),
		newCheckAdminCmd(rt),
		newInitSchemaCmd(rt),
	)
	return root
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
