package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"labordash/internal/collector"
	"labordash/internal/config"
	"labordash/internal/logging"
	"labordash/internal/metrics"
	"labordash/internal/model"
	"labordash/internal/providers/bls"
	"labordash/internal/store"
	"labordash/internal/store/csvfile"
	"labordash/internal/store/sqlite"
	"labordash/internal/table"
)

const previewRows = 5

type runFlags struct {
	configPath  string
	out         string
	db          string
	lookback    int
	metricsFile string
	every       string
	verbose     bool
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "run":
		os.Exit(run(os.Args[2:]))
	case "schedule":
		os.Exit(schedule(os.Args[2:]))
	default:
		usage()
		os.Exit(2)
	}
}

func bindFlags(fs *flag.FlagSet) *runFlags {
	f := &runFlags{}
	fs.StringVar(&f.configPath, "config", config.DefaultPath, "TOML config file")
	fs.StringVar(&f.out, "out", "", "CSV output path (overrides data.csv_path)")
	fs.StringVar(&f.db, "db", "", "sqlite mirror path (overrides data.sqlite_path)")
	fs.IntVar(&f.lookback, "lookback", collector.DefaultLookbackYears, "years before the current one to request")
	fs.StringVar(&f.metricsFile, "metrics-file", "", "write Prometheus textfile metrics here after each run")
	fs.BoolVar(&f.verbose, "verbose", false, "print progress and a preview of the newest rows")
	return f
}

func run(args []string) int {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	f := bindFlags(fs)
	fs.Parse(args)

	app, err := newApp(fs, f)
	if err != nil {
		fmt.Fprintln(os.Stderr, "collector setup failed:", err)
		return 1
	}
	defer app.close()

	if err := app.runOnce(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "collector run failed:", err)
		return 1
	}
	return 0
}

func schedule(args []string) int {
	fs := flag.NewFlagSet("schedule", flag.ExitOnError)
	f := bindFlags(fs)
	fs.StringVar(&f.every, "every", "", "run interval (overrides collector.schedule_every)")
	fs.Parse(args)

	app, err := newApp(fs, f)
	if err != nil {
		fmt.Fprintln(os.Stderr, "collector setup failed:", err)
		return 1
	}
	defer app.close()

	every, err := app.cfg.ScheduleInterval()
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid schedule:", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := gocron.NewScheduler(time.UTC)
	scheduler.SingletonModeAll()
	_, err = scheduler.Every(every).Do(func() {
		if err := app.runOnce(ctx); err != nil {
			app.logger.Error("scheduled run failed", zap.Error(err))
		}
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "scheduler setup failed:", err)
		return 1
	}

	app.logger.Info("scheduler started", zap.Duration("every", every))
	scheduler.StartAsync()
	<-ctx.Done()
	scheduler.Stop()
	app.logger.Info("scheduler stopped")
	return 0
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: collector <run|schedule> [options]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "options:")
	fmt.Fprintln(os.Stderr, "  -config        TOML config file (default: labordash.toml)")
	fmt.Fprintln(os.Stderr, "  -out           CSV output path (default: bls_data.csv)")
	fmt.Fprintln(os.Stderr, "  -db            sqlite mirror path (default: disabled)")
	fmt.Fprintln(os.Stderr, "  -lookback      years before the current one to request (default: 6)")
	fmt.Fprintln(os.Stderr, "  -metrics-file  Prometheus textfile output (default: disabled)")
	fmt.Fprintln(os.Stderr, "  -verbose       print progress and a preview of the newest rows")
	fmt.Fprintln(os.Stderr, "  -every         schedule only: run interval (default: 24h)")
}

type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	metrics   *metrics.Metrics
	collector *collector.Collector
	stores    []store.Store
	flags     *runFlags
}

func newApp(fs *flag.FlagSet, f *runFlags) (*app, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}
	applyFlags(fs, f, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Log.Level, f.verbose)
	if err != nil {
		return nil, err
	}

	provider, err := bls.New(bls.Config{
		BaseURL:   cfg.Collector.BaseURL,
		APIKey:    cfg.Collector.APIKey,
		Timeout:   cfg.Timeout(),
		UserAgent: cfg.Collector.UserAgent,
	}, logger)
	if err != nil {
		return nil, err
	}

	stores, err := openStores(cfg)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	c, err := collector.New(provider, model.DefaultCatalog, stores, collector.Options{
		LookbackYears: cfg.Collector.LookbackYears,
		Logger:        logger,
		Metrics:       m,
	})
	if err != nil {
		closeStores(stores)
		return nil, err
	}

	return &app{cfg: cfg, logger: logger, metrics: m, collector: c, stores: stores, flags: f}, nil
}

// applyFlags copies only the flags given on the command line over the config.
func applyFlags(fs *flag.FlagSet, f *runFlags, cfg *config.Config) {
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "out":
			cfg.Data.CSVPath = f.out
		case "db":
			cfg.Data.SQLitePath = f.db
		case "lookback":
			cfg.Collector.LookbackYears = f.lookback
		case "every":
			cfg.Collector.ScheduleEvery = f.every
		}
	})
}

func openStores(cfg *config.Config) ([]store.Store, error) {
	primary, err := csvfile.New(cfg.Data.CSVPath)
	if err != nil {
		return nil, err
	}
	stores := []store.Store{primary}
	if strings.TrimSpace(cfg.Data.SQLitePath) != "" {
		mirror, err := sqlite.New(cfg.Data.SQLitePath)
		if err != nil {
			return nil, err
		}
		stores = append(stores, mirror)
	}
	return stores, nil
}

func closeStores(stores []store.Store) {
	for _, st := range stores {
		st.Close()
	}
}

func (a *app) close() {
	closeStores(a.stores)
	a.logger.Sync()
}

func (a *app) runOnce(ctx context.Context) error {
	if a.flags.verbose {
		start, end := a.collector.Window()
		fmt.Printf("Fetching data for %d series for years %d-%d...\n", len(model.DefaultCatalog), start, end)
	}

	result, err := a.collector.FetchAndPersist(ctx)
	a.writeMetrics()
	if err != nil {
		return err
	}

	fmt.Printf("collector run complete (run=%s years=%d-%d rows=%d columns=%d observations=%d)\n",
		result.Run.ID, result.Run.StartYear, result.Run.EndYear, result.Run.Rows, len(result.Run.Columns), result.Observations,
	)
	if result.Unrecognized > 0 || result.Invalid > 0 {
		fmt.Printf("collector run unrecognized_periods=%d invalid_values=%d\n", result.Unrecognized, result.Invalid)
	}
	if a.flags.verbose {
		fmt.Printf("Data saved to %s\n", a.cfg.Data.CSVPath)
		printTail(result.Table, previewRows)
	}
	return nil
}

func (a *app) writeMetrics() {
	if a.flags.metricsFile == "" {
		return
	}
	if err := a.metrics.WriteTextfile(a.flags.metricsFile); err != nil {
		a.logger.Warn("write metrics textfile", zap.String("path", a.flags.metricsFile), zap.Error(err))
	}
}

func printTail(t table.Table, n int) {
	if t.Len() > n {
		t.Rows = t.Rows[t.Len()-n:]
	}
	if err := table.WriteCSV(os.Stdout, t); err != nil {
		fmt.Fprintln(os.Stderr, "preview failed:", err)
	}
}
