package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/linemk/gogol-pizza/internal/lib/logger"
	"github.com/linemk/gogol-pizza/internal/tracker"
	"github.com/spf13/cobra"
)

func trackCmd() *cobra.Command {
	var apiURL, token string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "track ORDER_ID",
		Short: "Follow one order's status and payment events",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "" {
				token = os.Getenv("GOGOL_TOKEN")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			env := "prod"
			if verbose {
				env = "local"
			}
			return runTrack(ctx, tracker.NewClient(apiURL, token, nil), args[0], logger.SetupLogger(env))
		},
	}

	cmd.Flags().StringVar(&apiURL, "api", "http://localhost:8080", "base URL of the API")
	cmd.Flags().StringVar(&token, "token", "", "bearer token (defaults to $GOGOL_TOKEN)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	return cmd
}

func runTrack(ctx context.Context, client *tracker.Client, orderID string, log *slog.Logger) error {
	fetchCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	order, err := client.FetchOrder(fetchCtx, orderID)
	cancel()
	if err != nil {
		return err
	}
	fmt.Printf("order %s  status=%s  total=%s  paid=%t\n", order.ID, order.Status, order.Total.String(), order.Payment.IsPaid)

	conn, err := client.Dial(ctx)
	if err != nil {
		return err
	}
	log.Debug("connected to realtime channel")

	trk := tracker.New(log, conn, *order)
	err = trk.Run(ctx, printUpdate)
	if errors.Is(err, tracker.ErrOrderDeleted) {
		color.Yellow("order %s was deleted", orderID)
		return nil
	}
	return err
}

func printUpdate(u tracker.Update) {
	ts := time.Now().Format(time.TimeOnly)
	if u.Payment == nil {
		fmt.Printf("%s  status -> %s\n", ts, u.Order.Status)
		return
	}
	if u.Payment.Success {
		receipt := ""
		if u.Payment.Receipt != nil {
			receipt = " receipt " + *u.Payment.Receipt
		}
		color.Green("%s  payment confirmed%s", ts, receipt)
		return
	}
	code := -1
	if u.Payment.ResultCode != nil {
		code = *u.Payment.ResultCode
	}
	color.Red("%s  payment failed (result code %d)", ts, code)
}
