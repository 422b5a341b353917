package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"MarketGauge/internal/model"
	"MarketGauge/internal/notifier"
	"MarketGauge/internal/scheduler"
	"MarketGauge/internal/server"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath string

	rootCmd := &cobra.Command{
		Use:          "gauge",
		Short:        "MarketGauge - daily price history and indicator snapshots",
		SilenceUsage: true,
	}
	defaultCfg := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultCfg = v
	}
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", defaultCfg, "Configuration file path")

	rootCmd.AddCommand(newServeCmd(&cfgPath))
	rootCmd.AddCommand(newSnapshotCmd(&cfgPath))
	rootCmd.AddCommand(newDailyCmd(&cfgPath))
	rootCmd.AddCommand(newGapsCmd(&cfgPath))
	rootCmd.AddCommand(newImportCmd(&cfgPath))
	rootCmd.AddCommand(newHistoryPointsCmd(&cfgPath))
	return rootCmd
}

func newServeCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API with the periodic snapshot refresh",
		RunE: func(cmd *cobra.Command, args []string) error {
			runOnStart, _ := cmd.Flags().GetBool("run-on-start")
			return runServe(*cfgPath, runOnStart)
		},
	}
	cmd.Flags().Bool("run-on-start", os.Getenv("RUN_ON_START") == "true", "Refresh today's snapshot immediately")
	return cmd
}

func runServe(cfgPath string, runOnStart bool) error {
	a, err := newApp(cfgPath)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var tn *notifier.TelegramNotifier
	var sender scheduler.Sender
	if a.cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(a.cfg.Telegram.BotToken, a.cfg.Telegram.ChatID, a.cfg.Proxy)
		sender = tn
	}

	sched := scheduler.NewScheduler(ctx, a.service, sender)
	if err := sched.RegisterRefresh(a.cfg.Schedule.RefreshCron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		a.log.Info("telegram polling started")
	}
	if runOnStart {
		a.log.Info("run-on-start enabled, refreshing today's snapshot")
		go sched.RunNow()
	}

	srv := server.New(a.service, a.metrics.Handler())
	if err := srv.ListenAndServe(ctx, a.cfg.Server.Addr); err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	a.log.Info("MarketGauge stopped")
	return nil
}

func newSnapshotCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Print the indicator snapshot for a date",
		RunE: func(cmd *cobra.Command, args []string) error {
			date, _ := cmd.Flags().GetString("date")
			day, err := parseDay(date, time.Now())
			if err != nil {
				return err
			}
			a, err := newApp(*cfgPath)
			if err != nil {
				return err
			}
			defer a.Close()

			snap, err := a.service.GetSnapshot(cmd.Context(), day)
			if err != nil {
				return err
			}
			return printJSON(struct {
				Date string `json:"date"`
				*model.Snapshot
			}{snap.DateStr(), snap})
		},
	}
	cmd.Flags().String("date", "", "Date in YYYY-MM-DD format (today if not provided)")
	return cmd
}

func newDailyCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daily",
		Short: "Print the daily OHLCV bar for a date",
		RunE: func(cmd *cobra.Command, args []string) error {
			date, _ := cmd.Flags().GetString("date")
			day, err := parseDay(date, time.Now())
			if err != nil {
				return err
			}
			a, err := newApp(*cfgPath)
			if err != nil {
				return err
			}
			defer a.Close()

			bar, err := a.service.GetDaily(cmd.Context(), day)
			if err != nil {
				return err
			}
			return printJSON(struct {
				Date string `json:"date"`
				*model.DailyBar
			}{model.DateKey(bar.Time), bar})
		},
	}
	cmd.Flags().String("date", "", "Date in YYYY-MM-DD format (today if not provided)")
	return cmd
}

func newGapsCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gaps",
		Short: "List dates missing from the daily price store",
		RunE: func(cmd *cobra.Command, args []string) error {
			fromStr, _ := cmd.Flags().GetString("from")
			toStr, _ := cmd.Flags().GetString("to")
			from, err := model.ParseDate(fromStr)
			if err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			to, err := parseDay(toStr, time.Now())
			if err != nil {
				return fmt.Errorf("--to: %w", err)
			}
			a, err := newApp(*cfgPath)
			if err != nil {
				return err
			}
			defer a.Close()

			gaps, err := a.collector.Gaps(cmd.Context(), from, to)
			if err != nil {
				return err
			}
			for _, d := range gaps {
				fmt.Fprintln(cmd.OutOrStdout(), model.DateKey(d))
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%d missing day(s) between %s and %s\n",
				len(gaps), model.DateKey(from), model.DateKey(to))
			return nil
		},
	}
	cmd.Flags().String("from", "", "First date in YYYY-MM-DD format")
	cmd.Flags().String("to", "", "Last date in YYYY-MM-DD format (today if not provided)")
	cmd.MarkFlagRequired("from")
	return cmd
}

func newImportCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "import [FILE]",
		Short: "Import daily bars from a CSV file into the price store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			a, err := newApp(*cfgPath)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.collector.Import(cmd.Context(), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d day(s) from %s\n", n, args[0])
			return nil
		},
	}
}

func newHistoryPointsCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "history-points",
		Short: "Compute and print the snapshot of every configured historical event",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*cfgPath)
			if err != nil {
				return err
			}
			defer a.Close()

			points, err := a.service.HistoricalPoints(cmd.Context())
			if err != nil {
				return err
			}
			if len(points) < len(a.cfg.HistoricalPoints) {
				fmt.Fprintf(cmd.ErrOrStderr(), "%d of %d event(s) skipped, see log\n",
					len(a.cfg.HistoricalPoints)-len(points), len(a.cfg.HistoricalPoints))
			}
			return printJSON(struct {
				TimePoints []model.HistoricalPoint `json:"timePoints"`
			}{points})
		},
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
