package render

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/zulfahadiyan/Zonasi-Gempa-K-means/internal/domain"
)

// GeoJSONFile is the name of the cell export inside the output directory.
const GeoJSONFile = "cells.geojson"

// FeatureCollection is a GeoJSON feature collection of grid cells. RunID and GeneratedAt
// are foreign members identifying the run.
type FeatureCollection struct {
	Type        string    `json:"type"`
	RunID       string    `json:"run_id,omitempty"`
	GeneratedAt string    `json:"generated_at,omitempty"`
	Features    []Feature `json:"features"`
}

// Feature is one grid cell as a GeoJSON point.
type Feature struct {
	Type       string         `json:"type"`
	Geometry   Geometry       `json:"geometry"`
	Properties CellProperties `json:"properties"`
}

// Geometry is a GeoJSON point geometry.
type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"` // [lon, lat]
}

// CellProperties carries the annotated cell attributes.
type CellProperties struct {
	ClusterID     int     `json:"cluster_id"`
	MaxMagnitude  float64 `json:"max_magnitude"`
	MeanDepth     float64 `json:"mean_depth"`
	EventCount    int     `json:"event_count"`
	DepthCategory string  `json:"depth_category"`
	Color         string  `json:"color"`
	MarkerRadius  float64 `json:"marker_radius"`
	Place         string  `json:"place,omitempty"`
}

// NewFeatureCollection converts a report to GeoJSON. places may be nil.
func NewFeatureCollection(report domain.Report, places map[domain.GridKey]string) FeatureCollection {
	fc := FeatureCollection{
		Type:     "FeatureCollection",
		RunID:    report.RunID,
		Features: make([]Feature, 0, len(report.Cells)),
	}
	if !report.GeneratedAt.IsZero() {
		fc.GeneratedAt = report.GeneratedAt.Format("2006-01-02T15:04:05Z07:00")
	}
	for _, c := range report.Cells {
		fc.Features = append(fc.Features, Feature{
			Type: "Feature",
			Geometry: Geometry{
				Type:        "Point",
				Coordinates: []float64{c.LonGroup, c.LatGroup},
			},
			Properties: CellProperties{
				ClusterID:     c.ClusterID,
				MaxMagnitude:  c.MaxMagnitude,
				MeanDepth:     c.MeanDepth,
				EventCount:    c.EventCount,
				DepthCategory: string(c.DepthCategory),
				Color:         c.Color.Hex(),
				MarkerRadius:  c.MarkerRadius,
				Place:         places[c.Key()],
			},
		})
	}
	return fc
}

// GeoJSONWriter writes <outputDir>/cells.geojson. It implements pipeline.Presenter.
type GeoJSONWriter struct {
	outputDir string
	geocoder  domain.Geocoder
	logger    *slog.Logger
}

// NewGeoJSONWriter creates a GeoJSONWriter. geocoder may be nil.
func NewGeoJSONWriter(outputDir string, geocoder domain.Geocoder, logger *slog.Logger) *GeoJSONWriter {
	return &GeoJSONWriter{outputDir: outputDir, geocoder: geocoder, logger: logger}
}

// Present writes the report's cells as GeoJSON.
func (g *GeoJSONWriter) Present(ctx context.Context, report domain.Report) error {
	if err := os.MkdirAll(g.outputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	places := domain.PlaceNames(ctx, report.Cells, g.geocoder, g.logger)
	data, err := json.MarshalIndent(NewFeatureCollection(report, places), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal geojson: %w", err)
	}

	path := filepath.Join(g.outputDir, GeoJSONFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write geojson: %w", err)
	}
	g.logger.Info("geojson written", "path", path, "features", len(report.Cells))
	return nil
}
