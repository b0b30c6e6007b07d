package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"dailymanifest/internal/aggregate"
	"dailymanifest/internal/classify"
	"dailymanifest/internal/config"
	"dailymanifest/internal/ics"
	appLog "dailymanifest/internal/log"
	"dailymanifest/internal/model"
	"dailymanifest/internal/pipeline"
	"dailymanifest/internal/refresh"
	"dailymanifest/internal/report"
	"dailymanifest/internal/source"
	"dailymanifest/internal/web"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "dailymanifest",
	Short:         "Daily activity manifest for booking calendars",
	Long:          "dailymanifest pulls booking calendars, classifies each activity, parses guest rosters and reports per-day guest, capacity and cancellation totals.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Refresh feeds on a schedule and serve the manifest API",
	RunE:  runServe,
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the manifest for the current window",
	RunE:  runReport,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "./config.yaml", "Path to config file")

	serveCmd.Flags().String("listen", "", "HTTP listen address (overrides config)")

	reportCmd.Flags().String("file", "", "Read raw entries from a JSON file instead of the configured feeds")
	reportCmd.Flags().String("type", model.FilterAll, "Activity type filter")
	reportCmd.Flags().String("status", model.FilterAll, "Status filter")
	reportCmd.Flags().String("from", "", "First day (YYYY-MM-DD)")
	reportCmd.Flags().String("to", "", "Last day (YYYY-MM-DD)")
	reportCmd.Flags().Bool("guests", false, "List roster lines under each activity")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(reportCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		appLog.Error("dailymanifest failed", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", configPath, err)
	}
	appLog.Init(os.Stderr, cfg.LogFormat, appLog.ParseLevel(cfg.LogLevel))
	return cfg, nil
}

func newRefresher(cfg *config.Config, src source.Source) *refresh.Refresher {
	proc := pipeline.NewProcessor(classify.New(cfg.ClassifyRules()...))
	return refresh.New(src, proc, refresh.Options{
		Location:     cfg.Location(),
		WindowDays:   cfg.WindowDays,
		BackfillDays: cfg.BackfillDays,
	})
}

func feedSource(cfg *config.Config) source.Source {
	fetcher := ics.NewFetcher(cfg.CacheDir, nil)
	return source.NewICS(fetcher, cfg.Feeds(), cfg.Location())
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
		cfg.Listen = listen
	}
	appLog.Info("effective config", cfg.Summary()...)

	ctx := cmd.Context()
	r := newRefresher(cfg, feedSource(cfg))
	r.Refresh(ctx)
	if err := r.Start(ctx, cfg.RefreshCron); err != nil {
		return err
	}

	err = web.StartServer(ctx, cfg, r)

	// Let in-flight refreshes observe cancellation before exit.
	time.Sleep(100 * time.Millisecond)
	appLog.Info("dailymanifest exiting")
	return err
}

func runReport(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	flags := cmd.Flags()

	var src source.Source = feedSource(cfg)
	if file, _ := flags.GetString("file"); file != "" {
		static, err := source.LoadFile(file)
		if err != nil {
			return err
		}
		src = static
	}

	r := newRefresher(cfg, src)
	window, err := dayFlags(flags.GetString, r.Location())
	if err != nil {
		return err
	}

	fetch := r.Window()
	if !window.IsZero() {
		window = window.OrDefault(r.Now(), cfg.WindowDays)
		fetch = window
	} else {
		window = aggregate.DefaultWindow(r.Now(), cfg.WindowDays)
	}

	snap := r.RefreshWindow(cmd.Context(), fetch)
	if snap.Err != nil && len(snap.Records) == 0 {
		return snap.Err
	}

	typ, _ := flags.GetString("type")
	status, _ := flags.GetString("status")
	guests, _ := flags.GetBool("guests")

	res := aggregate.Build(snap.At(r.Now()), window.Days(), model.FilterState{Type: typ, Status: status})
	appLog.Debug("report window", "range", report.DateRange(res), "records", len(snap.Records))
	return report.Render(cmd.OutOrStdout(), res, report.Options{Guests: guests})
}

// dayFlags reads --from/--to as calendar days in loc.
func dayFlags(get func(string) (string, error), loc *time.Location) (aggregate.Window, error) {
	var w aggregate.Window
	for _, f := range []struct {
		name string
		dst  *time.Time
	}{{"from", &w.Start}, {"to", &w.End}} {
		v, _ := get(f.name)
		if v == "" {
			continue
		}
		t, err := time.ParseInLocation(time.DateOnly, v, loc)
		if err != nil {
			return w, fmt.Errorf("--%s must be YYYY-MM-DD: %w", f.name, err)
		}
		*f.dst = t
	}
	return w, nil
}
