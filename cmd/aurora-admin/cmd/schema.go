package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/teteocan/aurora-admin/config"
	"github.com/teteocan/aurora-admin/repositories/postgres"
)

func newInitSchemaCmd(rt *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "init-schema",
		Short: "Create the admin record, audit and bank info tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			if rt.cfg.Storage.Driver != config.StorageDriverPostgres {
				return fmt.Errorf("init-schema requires the %s storage driver, got %q",
					config.StorageDriverPostgres, rt.cfg.Storage.Driver)
			}

			factory, err := postgres.NewRepositoryFactory(rt.cfg, rt.logger)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer factory.Close()

			if err := factory.InitSchema(cmd.Context()); err != nil {
				return fmt.Errorf("failed to initialize schema: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema initialized")
			return nil
		},
	}
}
