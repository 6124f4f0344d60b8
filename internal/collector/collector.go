package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"labordash/internal/metrics"
	"labordash/internal/model"
	"labordash/internal/providers"
	"labordash/internal/store"
	"labordash/internal/table"
)

const DefaultLookbackYears = 6

type Options struct {
	// LookbackYears is how many years before the current one are requested.
	LookbackYears int
	Logger        *zap.Logger
	Metrics       *metrics.Metrics
	Now           func() time.Time
}

// Collector fetches every catalog series in one request, pivots them into
// the wide table and replaces the persisted copy in each store.
type Collector struct {
	provider providers.Provider
	catalog  model.Catalog
	stores   []store.Store
	lookback int
	logger   *zap.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// Result summarizes a successful run.
type Result struct {
	Run          model.Run
	Table        table.Table
	Observations int
	Unrecognized int
	Invalid      int
}

func New(provider providers.Provider, catalog model.Catalog, stores []store.Store, opts Options) (*Collector, error) {
	if provider == nil {
		return nil, errors.New("collector: provider is required")
	}
	if len(catalog) == 0 {
		return nil, errors.New("collector: catalog is empty")
	}
	if len(stores) == 0 {
		return nil, errors.New("collector: at least one store is required")
	}
	if opts.LookbackYears < 0 {
		return nil, fmt.Errorf("collector: negative lookback %d", opts.LookbackYears)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Collector{
		provider: provider,
		catalog:  append(model.Catalog(nil), catalog...),
		stores:   stores,
		lookback: opts.LookbackYears,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		now:      opts.Now,
	}, nil
}

// Window returns the inclusive year range of the next request.
func (c *Collector) Window() (int, int) {
	end := c.now().Year()
	return end - c.lookback, end
}

// FetchAndPersist runs the whole pipeline. Nothing is written unless the
// upstream call succeeded and the full table was built in memory.
func (c *Collector) FetchAndPersist(ctx context.Context) (Result, error) {
	startedAt := c.now()
	run := model.Run{ID: uuid.NewString(), StartedAt: startedAt}
	run.StartYear, run.EndYear = c.Window()
	log := c.logger.With(zap.String("run_id", run.ID), zap.String("provider", c.provider.Name()))

	log.Info("fetching series",
		zap.Int("series", len(c.catalog)),
		zap.Int("start_year", run.StartYear),
		zap.Int("end_year", run.EndYear),
	)

	observations, err := c.provider.FetchSeries(ctx, c.catalog.IDs(), run.StartYear, run.EndYear)
	if err != nil {
		c.metrics.RunFinished(resultLabel(err), c.now())
		var rejected *providers.RejectedError
		if errors.As(err, &rejected) {
			log.Error("upstream rejected request",
				zap.Int("status", rejected.Status),
				zap.Strings("messages", rejected.Messages),
				zap.ByteString("payload", rejected.Payload),
			)
		}
		return Result{}, err
	}
	c.metrics.ObservationsReceived(len(observations))

	rows, stats := table.Normalize(observations)
	for _, observation := range stats.Unrecognized {
		log.Warn("unrecognized period code, using January",
			zap.String("series_id", observation.SeriesID),
			zap.String("year", observation.Year),
			zap.String("period", observation.Period),
		)
		c.metrics.UnrecognizedPeriod(observation.Period)
	}
	for _, observation := range stats.Invalid {
		log.Warn("dropping unparsable observation",
			zap.String("series_id", observation.SeriesID),
			zap.String("year", observation.Year),
			zap.String("period", observation.Period),
			zap.String("value", observation.Value),
		)
	}
	c.metrics.InvalidValues(len(stats.Invalid))

	wide := table.Pivot(rows, c.catalog)
	for _, series := range c.catalog {
		if !wide.Has(series.Name) {
			log.Warn("series returned no observations", zap.String("series_id", series.ID), zap.String("name", series.Name))
		}
	}
	if wide.Empty() {
		c.metrics.RunFinished("rejected", c.now())
		log.Error("no usable observations, keeping the previous table",
			zap.Int("observations", len(observations)),
			zap.Int("invalid", len(stats.Invalid)),
		)
		return Result{}, &providers.RejectedError{
			Provider: c.provider.Name(),
			Messages: []string{fmt.Sprintf("no usable observations (%d received, %d invalid)", len(observations), len(stats.Invalid))},
		}
	}
	run.Rows = wide.Len()
	run.Columns = append([]string(nil), wide.Columns...)

	// The first store is the primary artifact. Later stores are mirrors: a
	// failed mirror write is logged and the run still succeeds.
	for i, st := range c.stores {
		if err := st.WriteTable(ctx, wide); err != nil {
			if i == 0 {
				c.metrics.RunFinished("error", c.now())
				return Result{}, fmt.Errorf("collector: persist: %w", err)
			}
			log.Warn("mirror write failed, mirror is stale", zap.Int("store", i), zap.Error(err))
			continue
		}
		if recorder, ok := st.(store.RunRecorder); ok {
			if err := recorder.RecordRun(ctx, run); err != nil {
				log.Warn("record run failed", zap.Error(err))
			}
		}
	}

	c.metrics.TableRows(wide.Len())
	c.metrics.RunFinished("ok", c.now())
	log.Info("table persisted",
		zap.Int("rows", wide.Len()),
		zap.Strings("columns", wide.Columns),
		zap.Duration("elapsed", c.now().Sub(startedAt)),
	)

	return Result{
		Run:          run,
		Table:        wide,
		Observations: len(observations),
		Unrecognized: len(stats.Unrecognized),
		Invalid:      len(stats.Invalid),
	}, nil
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, providers.ErrTransport):
		return "transport"
	case errors.Is(err, providers.ErrUpstreamRejected):
		return "rejected"
	default:
		return "error"
	}
}
