package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"parkingsystem/backend/services/parking-service/internal/billing"
	"parkingsystem/backend/services/parking-service/internal/config"
	"parkingsystem/backend/services/parking-service/internal/models"
	"parkingsystem/backend/services/parking-service/internal/rates"
)

type quoteOptions struct {
	category string
	entry    string
	exit     string
	minutes  int64
}

type quoteOutput struct {
	VehicleType models.VehicleCategory `json:"vehicleType"`
	billing.Result
}

func newQuoteCmd() *cobra.Command {
	opts := &quoteOptions{}
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Price a stay with the configured rates without touching storage",
		Example: `  parking-service quote --category motorcycle --minutes 62
  parking-service quote --entry 2024-05-01T09:00:00Z --exit 2024-05-01T10:35:00Z`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			out, err := quote(cfg, opts)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().StringVarP(&opts.category, "category", "c", string(models.DefaultCategory), "vehicle category (CAR, MOTORCYCLE, BICYCLE, TRUCK)")
	cmd.Flags().StringVar(&opts.entry, "entry", "", "entry time, RFC3339")
	cmd.Flags().StringVar(&opts.exit, "exit", "", "exit time, RFC3339")
	cmd.Flags().Int64VarP(&opts.minutes, "minutes", "m", -1, "stay length in minutes, instead of --entry/--exit")
	cmd.MarkFlagsRequiredTogether("entry", "exit")
	cmd.MarkFlagsMutuallyExclusive("minutes", "entry")
	return cmd
}

func quote(cfg *config.Config, opts *quoteOptions) (*quoteOutput, error) {
	category, ok := models.ParseVehicleCategory(opts.category)
	if !ok {
		return nil, fmt.Errorf("unknown vehicle category %q", opts.category)
	}

	entry, exit, err := opts.interval()
	if err != nil {
		return nil, err
	}

	table, err := rates.NewTable(cfg.RateOverrides())
	if err != nil {
		return nil, err
	}
	result, err := billing.NewEngine(table).Compute(entry, exit, category)
	if err != nil {
		return nil, err
	}
	return &quoteOutput{VehicleType: category, Result: result}, nil
}

func (o *quoteOptions) interval() (time.Time, time.Time, error) {
	if o.entry == "" {
		if o.minutes < 0 {
			return time.Time{}, time.Time{}, errors.New("either --minutes or --entry and --exit is required")
		}
		entry := time.Unix(0, 0).UTC()
		return entry, entry.Add(time.Duration(o.minutes) * time.Minute), nil
	}

	entry, err := time.Parse(time.RFC3339, o.entry)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse --entry: %w", err)
	}
	exit, err := time.Parse(time.RFC3339, o.exit)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse --exit: %w", err)
	}
	return entry, exit, nil
}
