package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/linemk/gogol-pizza/internal/app"
	"github.com/linemk/gogol-pizza/internal/config"
	"github.com/linemk/gogol-pizza/internal/lib/clock"
	"github.com/linemk/gogol-pizza/internal/lib/logger"
	"github.com/linemk/gogol-pizza/internal/service"
	"github.com/linemk/gogol-pizza/internal/storage"
	"github.com/spf13/cobra"
)

func pendingCmd() *cobra.Command {
	var configPath string
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List orders whose payment was initiated but never resolved",
		Long: `Lists orders that hold a checkout request id but have no recorded result,
last touched before --older-than ago. Nothing is changed; resolve them by hand.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				configPath = os.Getenv("CONFIG_PATH")
			}
			if configPath == "" {
				return fmt.Errorf("config path is required (--config or CONFIG_PATH)")
			}
			return runPending(cmd.Context(), config.MustLoadByPath(configPath), olderThan)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to config file")
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*time.Minute, "minimum age since the last update")

	return cmd
}

func runPending(ctx context.Context, cfg *config.Config, olderThan time.Duration) error {
	log := logger.SetupLogger(cfg.Env)

	application, err := app.NewApp(log, cfg)
	if err != nil {
		return err
	}
	defer application.DB.Close()

	orderService := service.NewOrderService(log, storage.NewOrderRepository(application.DB), nil, clock.NewSystem())
	orders, err := orderService.ListPending(ctx, olderThan)
	if err != nil {
		return err
	}
	if len(orders) == 0 {
		fmt.Println("no pending payments")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ORDER\tCHECKOUT REQUEST\tTOTAL\tUPDATED")
	for _, o := range orders {
		checkout := ""
		if o.Payment.CheckoutRequestID != nil {
			checkout = *o.Payment.CheckoutRequestID
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", o.ID, checkout, o.Total.String(), o.UpdatedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}
