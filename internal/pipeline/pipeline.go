package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/zulfahadiyan/Zonasi-Gempa-K-means/internal/domain"
	"github.com/zulfahadiyan/Zonasi-Gempa-K-means/internal/observability"
)

// Extractor reads every raw record of a catalog.
type Extractor interface {
	Extract(ctx context.Context) ([]domain.RawRecord, error)
	Source() string
}

// Presenter publishes a finished report (map page, plot, archive, broker).
// Presenters only see annotated cells and the opaque cluster id.
type Presenter interface {
	Present(ctx context.Context, report domain.Report) error
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithFallback supplies the events to use when the catalog is unavailable or nothing
// survives filtering. Without it those conditions fail the run.
func WithFallback(events ...domain.Event) Option {
	return func(p *Pipeline) {
		p.fallback = append([]domain.Event(nil), events...)
	}
}

// WithMinMagnitude overrides the inclusive magnitude floor.
func WithMinMagnitude(m float64) Option {
	return func(p *Pipeline) {
		p.minMagnitude = m
	}
}

// Pipeline orchestrates one load-aggregate-cluster-annotate-present run.
type Pipeline struct {
	extractor    Extractor
	clusterer    Clusterer
	presenters   []Presenter
	logger       *slog.Logger
	metrics      *observability.Metrics
	minMagnitude float64
	fallback     []domain.Event

	ready atomic.Bool
	last  atomic.Pointer[domain.Report]
}

// New creates a Pipeline with the given stages and observability.
func New(e Extractor, c Clusterer, presenters []Presenter, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Pipeline {
	p := &Pipeline{
		extractor:    e,
		clusterer:    c,
		presenters:   presenters,
		logger:       logger,
		metrics:      metrics,
		minMagnitude: domain.DefaultMinMagnitude,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CheckReadiness returns nil once a run has completed successfully,
// or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not completed a run yet")
	}
	return nil
}

// LastReport returns the report of the most recent successful run.
func (p *Pipeline) LastReport() (domain.Report, bool) {
	r := p.last.Load()
	if r == nil {
		return domain.Report{}, false
	}
	return *r, true
}

// Run executes the pipeline once. Any stage or presenter error aborts the run and the
// report is not recorded as the last report.
func (p *Pipeline) Run(ctx context.Context) (domain.Report, error) {
	start := time.Now()
	p.logger.Info("pipeline started", "source", p.extractor.Source(), "min_magnitude", p.minMagnitude)

	report, err := p.run(ctx)
	p.metrics.RunDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		p.metrics.Runs.WithLabelValues("error").Inc()
		return domain.Report{}, err
	}

	outcome := "success"
	if report.UsedFallback {
		outcome = "fallback"
	}
	p.metrics.Runs.WithLabelValues(outcome).Inc()
	p.last.Store(&report)
	p.ready.Store(true)
	p.metrics.PipelineReady.Set(1)

	p.logger.Info("pipeline finished",
		"run_id", report.RunID,
		"cells", len(report.Cells),
		"used_fallback", report.UsedFallback,
		"duration", time.Since(start),
	)
	return report, nil
}

func (p *Pipeline) run(ctx context.Context) (domain.Report, error) {
	events, stats, usedFallback, err := p.load(ctx)
	if err != nil {
		return domain.Report{}, err
	}

	out, err := transform(events, p.clusterer)
	if err != nil {
		return domain.Report{}, err
	}
	p.observeCells(out.cells)

	report := domain.Report{
		RunID:        uuid.NewString(),
		GeneratedAt:  domain.Now(),
		Source:       p.extractor.Source(),
		Stats:        stats,
		Centroids:    out.centroids,
		Cells:        out.cells,
		UsedFallback: usedFallback,
	}

	for _, presenter := range p.presenters {
		if err := ctx.Err(); err != nil {
			return domain.Report{}, err
		}
		if err := presenter.Present(ctx, report); err != nil {
			return domain.Report{}, fmt.Errorf("present %T: %w", presenter, err)
		}
	}
	return report, nil
}

// load extracts and filters the catalog, substituting the caller's fallback events when
// the catalog is unavailable or empty after filtering.
func (p *Pipeline) load(ctx context.Context) ([]domain.Event, domain.FilterStats, bool, error) {
	records, err := p.extractor.Extract(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrDataUnavailable) && len(p.fallback) > 0 {
			p.logger.Warn("catalog unavailable, using fallback events", "error", err, "events", len(p.fallback))
			return p.fallback, domain.FilterStats{Kept: len(p.fallback)}, true, nil
		}
		return nil, domain.FilterStats{}, false, fmt.Errorf("extract: %w", err)
	}

	events, stats := domain.FilterEvents(records, p.minMagnitude)
	p.metrics.RecordsRead.Add(float64(stats.Read))
	p.metrics.RecordsDropped.WithLabelValues("incomplete").Add(float64(stats.Incomplete))
	p.metrics.RecordsDropped.WithLabelValues("below_magnitude").Add(float64(stats.BelowMagnitude))
	p.metrics.EventsKept.Add(float64(stats.Kept))

	if stats.Dropped() > 0 {
		p.logger.Info("catalog rows dropped",
			"read", stats.Read,
			"incomplete", stats.Incomplete,
			"below_magnitude", stats.BelowMagnitude,
		)
	}

	if len(events) == 0 {
		if len(p.fallback) > 0 {
			p.logger.Warn("no events left after filtering, using fallback events", "read", stats.Read, "events", len(p.fallback))
			return p.fallback, stats, true, nil
		}
		return nil, stats, false, fmt.Errorf("filter %d rows: %w", stats.Read, domain.ErrEmptyDataset)
	}
	return events, stats, false, nil
}

func (p *Pipeline) observeCells(cells []domain.AnnotatedCell) {
	p.metrics.GridCells.Set(float64(len(cells)))
	p.metrics.ClusterCells.Reset()
	for _, c := range cells {
		p.metrics.ClusterCells.WithLabelValues(strconv.Itoa(c.ClusterID)).Inc()
	}
}
