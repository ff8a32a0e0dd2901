package main

import (
	"github.com/spf13/cobra"

	"parkingsystem/backend/services/parking-service/internal/app"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the session schema of the configured storage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadRuntime()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			return app.Migrate(cmd.Context(), cfg, logger)
		},
	}
}
