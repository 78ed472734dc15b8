package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrDataUnavailable means the catalog source is missing or unreadable.
	ErrDataUnavailable = errors.New("catalog data unavailable")
	// ErrEmptyDataset means no event survived filtering.
	ErrEmptyDataset = errors.New("no events left after filtering")
)

// RawRecord is one catalog row as read from the source. A nil field was missing,
// non-numeric or non-finite in the source.
type RawRecord struct {
	Line      int // 1-based line number in the source, header included
	Latitude  *float64
	Longitude *float64
	Magnitude *float64
	Depth     *float64
}

// Complete reports whether all four fields are present.
func (r RawRecord) Complete() bool {
	return r.Latitude != nil && r.Longitude != nil && r.Magnitude != nil && r.Depth != nil
}

// Event is a complete catalog event that passed the magnitude floor.
type Event struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Magnitude float64 `json:"magnitude"`
	Depth     float64 `json:"depth"` // km
}

// GridKey identifies a grid cell by its rounded coordinates.
type GridKey struct {
	Lat float64
	Lon float64
}

func (k GridKey) String() string {
	return fmt.Sprintf("%.1f,%.1f", k.Lat, k.Lon)
}

// GridCell summarises all events that round to the same key.
type GridCell struct {
	LatGroup     float64 `json:"lat_group"`
	LonGroup     float64 `json:"lon_group"`
	MaxMagnitude float64 `json:"max_magnitude"`
	MeanDepth    float64 `json:"mean_depth"`
	EventCount   int     `json:"event_count"`
}

// Key returns the cell's grid key.
func (c GridCell) Key() GridKey {
	return GridKey{Lat: c.LatGroup, Lon: c.LonGroup}
}

// ClusteredCell is a grid cell with its depth cluster.
type ClusteredCell struct {
	GridCell
	ClusterID int `json:"cluster_id"`
}

// AnnotatedCell carries everything a presenter needs to draw one marker.
type AnnotatedCell struct {
	ClusteredCell
	DepthCategory DepthCategory `json:"depth_category"`
	Color         MarkerColor   `json:"color"`
	MarkerRadius  float64       `json:"marker_radius"`
}

// Report is the immutable output of one pipeline run.
type Report struct {
	RunID        string          `json:"run_id"`
	GeneratedAt  time.Time       `json:"generated_at"`
	Source       string          `json:"source"`
	Stats        FilterStats     `json:"stats"`
	Centroids    []float64       `json:"centroids"`
	Cells        []AnnotatedCell `json:"cells"`
	UsedFallback bool            `json:"used_fallback,omitempty"`
}

// Center returns the mean position of the report's cells, or false when there are none.
func (r Report) Center() (lat, lon float64, ok bool) {
	if len(r.Cells) == 0 {
		return 0, 0, false
	}
	for _, c := range r.Cells {
		lat += c.LatGroup
		lon += c.LonGroup
	}
	n := float64(len(r.Cells))
	return lat / n, lon / n, true
}

// PlaceholderEvent is the stand-in event historically used when no catalog was present.
// Callers may opt into it as fallback data; the core never substitutes it on its own.
func PlaceholderEvent() Event {
	return Event{Latitude: -7, Longitude: 110, Magnitude: 5, Depth: 50}
}
