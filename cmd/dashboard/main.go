package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"labordash/internal/config"
	"labordash/internal/logging"
	"labordash/internal/metrics"
	"labordash/internal/server"
	"labordash/internal/store"
	"labordash/internal/store/csvfile"
	"labordash/internal/store/sqlite"
	"labordash/internal/table"
	"labordash/internal/view"
)

type metaFile struct {
	GeneratedAt string `json:"generated_at"`
	Source      string `json:"source"`
	Start       string `json:"start"`
	End         string `json:"end"`
	MinDate     string `json:"min_date"`
	MaxDate     string `json:"max_date"`
	Rows        int    `json:"rows"`
}

type kpisFile struct {
	GeneratedAt string `json:"generated_at"`
	Error       string `json:"error,omitempty"`
	server.KPIPayload
}

type tableFile struct {
	GeneratedAt string `json:"generated_at"`
	server.TablePayload
}

type commonFlags struct {
	configPath string
	data       string
	db         string
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "serve":
		os.Exit(serve(os.Args[2:]))
	case "build":
		os.Exit(build(os.Args[2:]))
	default:
		usage()
		os.Exit(2)
	}
}

func bindCommon(fs *flag.FlagSet) *commonFlags {
	f := &commonFlags{}
	fs.StringVar(&f.configPath, "config", config.DefaultPath, "TOML config file")
	fs.StringVar(&f.data, "data", "", "CSV data file (overrides data.csv_path)")
	fs.StringVar(&f.db, "db", "", "read from this sqlite mirror instead of the CSV file")
	return f
}

func serve(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	common := bindCommon(fs)
	port := fs.Int("port", 0, "listen port (overrides server.port)")
	dev := fs.Bool("dev", false, "gin debug mode and console logs")
	fs.Parse(args)

	cfg, err := loadConfig(fs, common)
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid config:", err)
		return 1
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}
	if *dev {
		cfg.Server.DevMode = true
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Server.DevMode)
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid log level:", err)
		return 1
	}
	defer logger.Sync()

	source, err := openSource(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to open data source:", err)
		return 1
	}
	defer source.Close()

	srv, err := server.New(view.NewLoader(source), server.Options{
		DevMode: cfg.Server.DevMode,
		Logger:  logger,
		Metrics: metrics.New(),
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to build server:", err)
		return 1
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Info("dashboard listening", zap.String("addr", addr), zap.String("source", describeSource(cfg)))
	if err := srv.Run(addr); err != nil {
		fmt.Fprintln(os.Stderr, "server stopped:", err)
		return 1
	}
	return 0
}

func build(args []string) int {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	common := bindCommon(fs)
	outDir := fs.String("out", "site/data", "output directory")
	startFlag := fs.String("start", "", "first date YYYY-MM-DD (default: earliest)")
	endFlag := fs.String("end", "", "last date YYYY-MM-DD (default: latest)")
	fs.Parse(args)

	cfg, err := loadConfig(fs, common)
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid config:", err)
		return 1
	}
	start, err := parseDate(*startFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid -start:", err)
		return 1
	}
	end, err := parseDate(*endFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid -end:", err)
		return 1
	}

	source, err := openSource(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to open data source:", err)
		return 1
	}
	defer source.Close()

	full, err := source.ReadTable(context.Background())
	if err == nil && full.Empty() {
		err = store.ErrNotFound
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			fmt.Fprintln(os.Stderr, "data not found, run the collector first:", describeSource(cfg))
		} else {
			fmt.Fprintln(os.Stderr, "failed to load table:", err)
		}
		return 1
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		fmt.Fprintln(os.Stderr, "failed to create output dir:", err)
		return 1
	}

	start, end = view.Clamp(full, start, end)
	rows := view.Derive(full, start, end)
	minDate, _ := full.MinDate()
	maxDate, _ := full.MaxDate()
	now := time.Now().UTC().Format(time.RFC3339)

	meta := metaFile{
		GeneratedAt: now,
		Source:      describeSource(cfg),
		Start:       start.Format(table.DateLayout),
		End:         end.Format(table.DateLayout),
		MinDate:     minDate.Format(table.DateLayout),
		MaxDate:     maxDate.Format(table.DateLayout),
		Rows:        rows.Len(),
	}
	if err := writeJSON(filepath.Join(*outDir, "meta.json"), meta); err != nil {
		fmt.Fprintln(os.Stderr, "failed to write meta.json:", err)
		return 1
	}

	kpis := kpisFile{GeneratedAt: now}
	set, err := view.ComputeKPIs(view.ForwardFill(rows), view.TrackedMetrics)
	switch {
	case errors.Is(err, view.ErrInsufficientData):
		kpis.Error = err.Error()
		fmt.Fprintln(os.Stderr, "warning:", err)
	case err != nil:
		fmt.Fprintln(os.Stderr, "failed to compute kpis:", err)
		return 1
	default:
		kpis.KPIPayload = server.NewKPIPayload(set)
	}
	if err := writeJSON(filepath.Join(*outDir, "kpis.json"), kpis); err != nil {
		fmt.Fprintln(os.Stderr, "failed to write kpis.json:", err)
		return 1
	}

	tbl := tableFile{GeneratedAt: now, TablePayload: server.NewTablePayload(view.Descending(rows))}
	if err := writeJSON(filepath.Join(*outDir, "table.json"), tbl); err != nil {
		fmt.Fprintln(os.Stderr, "failed to write table.json:", err)
		return 1
	}

	fmt.Printf("dashboard build complete (out=%s rows=%d range=%s..%s)\n", *outDir, rows.Len(), meta.Start, meta.End)
	return 0
}

func writeJSON(path string, value any) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: dashboard <serve|build> [options]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "options:")
	fmt.Fprintln(os.Stderr, "  -config  TOML config file (default: labordash.toml)")
	fmt.Fprintln(os.Stderr, "  -data    CSV data file (default: bls_data.csv)")
	fmt.Fprintln(os.Stderr, "  -db      read from a sqlite mirror instead of the CSV file")
	fmt.Fprintln(os.Stderr, "  -port    serve only: listen port (default: 8501)")
	fmt.Fprintln(os.Stderr, "  -dev     serve only: debug mode")
	fmt.Fprintln(os.Stderr, "  -out     build only: output directory (default: site/data)")
	fmt.Fprintln(os.Stderr, "  -start   build only: first date YYYY-MM-DD")
	fmt.Fprintln(os.Stderr, "  -end     build only: last date YYYY-MM-DD")
}

func loadConfig(fs *flag.FlagSet, f *commonFlags) (*config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "data":
			cfg.Data.CSVPath = f.data
		case "db":
			cfg.Data.SQLitePath = f.db
		}
	})
	return cfg, cfg.Validate()
}

// openSource prefers the sqlite mirror when one is configured.
func openSource(cfg *config.Config) (store.Store, error) {
	if strings.TrimSpace(cfg.Data.SQLitePath) != "" {
		return sqlite.New(cfg.Data.SQLitePath)
	}
	return csvfile.New(cfg.Data.CSVPath)
}

func describeSource(cfg *config.Config) string {
	if strings.TrimSpace(cfg.Data.SQLitePath) != "" {
		return "sqlite:" + cfg.Data.SQLitePath
	}
	return cfg.Data.CSVPath
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(table.DateLayout, raw)
}
