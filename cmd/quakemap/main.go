// Command quakemap zones an earthquake catalog into 0.1° grid cells, clusters the cells by
// depth and publishes the result as an interactive map plus optional exports. With
// QUAKEMAP_SERVE=true it keeps serving the output directory after the run.
package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/zulfahadiyan/Zonasi-Gempa-K-means/internal/adapter/catalog"
	"github.com/zulfahadiyan/Zonasi-Gempa-K-means/internal/adapter/httpadapter"
	kafkaadapter "github.com/zulfahadiyan/Zonasi-Gempa-K-means/internal/adapter/kafka"
	"github.com/zulfahadiyan/Zonasi-Gempa-K-means/internal/adapter/mapbox"
	"github.com/zulfahadiyan/Zonasi-Gempa-K-means/internal/adapter/sqlite"
	"github.com/zulfahadiyan/Zonasi-Gempa-K-means/internal/config"
	"github.com/zulfahadiyan/Zonasi-Gempa-K-means/internal/domain"
	"github.com/zulfahadiyan/Zonasi-Gempa-K-means/internal/observability"
	"github.com/zulfahadiyan/Zonasi-Gempa-K-means/internal/pipeline"
	"github.com/zulfahadiyan/Zonasi-Gempa-K-means/internal/render"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	// Initialize geocoder (feature-flagged via QUAKEMAP_MAPBOX_ENABLED / QUAKEMAP_MAPBOX_TOKEN).
	var geocoder domain.Geocoder
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		geocoder = mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	presenters, closers, err := buildPresenters(cfg, geocoder, logger)
	defer closeAll(closers, logger)
	if err != nil {
		logger.Error("failed to set up presenters", "error", err)
		return 1
	}

	opts := []pipeline.Option{pipeline.WithMinMagnitude(cfg.MinMagnitude)}
	if cfg.FallbackEnabled {
		opts = append(opts, pipeline.WithFallback(domain.PlaceholderEvent()))
	}

	clusterer := domain.NewDepthClusterer(domain.ClusterParams{
		K:       domain.DefaultClusterParams().K,
		Seed:    cfg.ClusterSeed,
		Runs:    cfg.ClusterRuns,
		MaxIter: cfg.ClusterMaxIter,
	})
	reader := catalog.NewReader(cfg.CatalogPath, logger)
	p := pipeline.New(reader, clusterer, presenters, logger, metrics, opts...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var srv *httpadapter.Server
	if cfg.Serve {
		srv = httpadapter.NewServer(cfg.HTTPAddr, p, p, cfg.OutputDir, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
				stop()
			}
		}()
	}

	code := 0
	if _, err := p.Run(ctx); err != nil {
		logger.Error("pipeline run failed", "error", err)
		code = 1
	}

	if srv == nil {
		return code
	}
	if code == 0 {
		logger.Info("serving output", "addr", cfg.HTTPAddr, "dir", cfg.OutputDir)
		<-ctx.Done()
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
	return code
}

// buildPresenters wires the map page and every enabled export. The returned closers
// must be closed even when an error is returned.
func buildPresenters(cfg *config.Config, geocoder domain.Geocoder, logger *slog.Logger) ([]pipeline.Presenter, []io.Closer, error) {
	var (
		presenters []pipeline.Presenter
		closers    []io.Closer
	)

	presenters = append(presenters, render.NewMapRenderer(cfg.OutputDir, render.MapOptions{
		Title:           cfg.MapTitle,
		Subtitle:        cfg.MapSubtitle,
		DataSource:      cfg.DataSource,
		Credits:         cfg.Credits,
		Institution:     cfg.Institution,
		LogoName:        cfg.LogoPath,
		LogoFallbackURL: cfg.LogoFallbackURL,
	}, render.DirAssetResolver{Dir: "."}, geocoder, logger))

	if cfg.GeoJSONEnabled {
		presenters = append(presenters, render.NewGeoJSONWriter(cfg.OutputDir, geocoder, logger))
	}
	if cfg.PlotEnabled {
		presenters = append(presenters, render.NewPlotRenderer(cfg.OutputDir, logger))
	}

	if cfg.SQLitePath != "" {
		store, err := sqlite.Open(cfg.SQLitePath, logger)
		if err != nil {
			return nil, closers, err
		}
		closers = append(closers, store)
		presenters = append(presenters, store)
		logger.Info("run archive enabled", "path", cfg.SQLitePath)
	}

	if len(cfg.KafkaBrokers) > 0 {
		writer := kafkaadapter.NewWriter(cfg, logger)
		closers = append(closers, writer)
		presenters = append(presenters, writer)
		logger.Info("kafka publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	return presenters, closers, nil
}

func closeAll(closers []io.Closer, logger *slog.Logger) {
	for _, c := range closers {
		if err := c.Close(); err != nil {
			logger.Error("close error", "error", err)
		}
	}
}
