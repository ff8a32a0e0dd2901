package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"parkingsystem/backend/libs/logging"
	"parkingsystem/backend/services/parking-service/internal/config"
)

const serviceName = "parking-service"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   serviceName,
		Short: "Parking facility session and billing service",
		Long: `parking-service tracks vehicles entering and leaving a parking facility,
bills each stay by vehicle category and serves the dashboard and camera APIs.`,
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(), newMigrateCmd(), newQuoteCmd())
	return root
}

func loadRuntime() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.NewLogger(serviceName)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}
