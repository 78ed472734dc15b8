// Command validate performs end-to-end integrity checks on a pipeline run: it recomputes
// the grid cells from the source catalog and checks them against the exported
// cells.geojson, then verifies the annotation and clustering rules on every feature.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -catalog katalog_gempa_v2.tsv \
//	  -geojson public/cells.geojson
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/zulfahadiyan/Zonasi-Gempa-K-means/internal/adapter/catalog"
	"github.com/zulfahadiyan/Zonasi-Gempa-K-means/internal/domain"
	"github.com/zulfahadiyan/Zonasi-Gempa-K-means/internal/render"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	catalogPath := flag.String("catalog", "", "path to the source catalog (TSV or CSV)")
	geojsonPath := flag.String("geojson", "", "path to the exported cells.geojson")
	minMagnitude := flag.Float64("min-magnitude", domain.DefaultMinMagnitude, "magnitude floor used by the run")
	clusters := flag.Int("k", domain.DefaultClusterParams().K, "number of depth clusters used by the run")
	flag.Parse()

	if *catalogPath == "" || *geojsonPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*catalogPath, *geojsonPath, *minMagnitude, *clusters); code != 0 {
		os.Exit(code)
	}
}

func run(catalogPath, geojsonPath string, minMagnitude float64, k int) int {
	// ── Load all data sources ──
	fmt.Println("=== Earthquake Zoning Validation ===")
	fmt.Println()

	cells, stats, err := loadCatalogCells(catalogPath, minMagnitude)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load catalog: %v\n", err)
		return 1
	}

	fc, err := loadFeatureCollection(geojsonPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load GeoJSON: %v\n", err)
		return 1
	}

	// ── Run validation phases ──
	phases := validateAll(cells, fc, k)

	// ── Report results ──
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d catalog rows, %d kept events, %d recomputed cells, %d GeoJSON features\n",
		stats.Read, stats.Kept, len(cells), len(fc.Features))

	// Print detailed errors.
	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func validateAll(cells []domain.GridCell, fc render.FeatureCollection, k int) []*phase {
	return []*phase{
		validateSchema(fc),
		validateCellSet(cells, fc),
		validateAnnotation(fc),
		validateClusters(fc, k),
	}
}

// ── Data loading ──

func loadCatalogCells(path string, minMagnitude float64) ([]domain.GridCell, domain.FilterStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, domain.FilterStats{}, err
	}
	defer func() { _ = f.Close() }()

	records, err := catalog.Parse(context.Background(), f)
	if err != nil {
		return nil, domain.FilterStats{}, err
	}
	events, stats := domain.FilterEvents(records, minMagnitude)
	if len(events) == 0 {
		return nil, stats, nil
	}
	cells, err := domain.Aggregate(events)
	return cells, stats, err
}

func loadFeatureCollection(path string) (render.FeatureCollection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return render.FeatureCollection{}, err
	}
	var fc render.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return render.FeatureCollection{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return fc, nil
}

// ── Phase 1: GeoJSON schema ──

func validateSchema(fc render.FeatureCollection) *phase {
	p := &phase{name: "GeoJSON schema"}
	if fc.Type != "FeatureCollection" {
		p.errorf("type = %q, want FeatureCollection", fc.Type)
	}
	if fc.RunID == "" {
		p.errorf("run_id is empty")
	}
	for i, f := range fc.Features {
		if f.Type != "Feature" {
			p.errorf("feature %d: type = %q, want Feature", i, f.Type)
		}
		if f.Geometry.Type != "Point" || len(f.Geometry.Coordinates) != 2 {
			p.errorf("feature %d: geometry is not a 2-D point", i)
			continue
		}
		lon, lat := f.Geometry.Coordinates[0], f.Geometry.Coordinates[1]
		if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
			p.errorf("feature %d: coordinates (%v, %v) out of range", i, lon, lat)
		}
		if f.Properties.EventCount < 1 {
			p.errorf("feature %d: event_count = %d", i, f.Properties.EventCount)
		}
	}
	return p
}

// ── Phase 2: Cell set parity with the catalog ──

func validateCellSet(cells []domain.GridCell, fc render.FeatureCollection) *phase {
	p := &phase{name: "Cell set matches catalog"}

	want := make(map[domain.GridKey]domain.GridCell, len(cells))
	for _, c := range cells {
		want[c.Key()] = c
	}

	seen := make(map[domain.GridKey]bool, len(fc.Features))
	for i, f := range fc.Features {
		if len(f.Geometry.Coordinates) != 2 {
			continue
		}
		key := domain.GridKey{Lat: f.Geometry.Coordinates[1], Lon: f.Geometry.Coordinates[0]}
		if seen[key] {
			p.errorf("feature %d: duplicate cell %s", i, key)
			continue
		}
		seen[key] = true

		c, ok := want[key]
		if !ok {
			p.errorf("feature %d: cell %s not derivable from catalog", i, key)
			continue
		}
		props := f.Properties
		if !floatEq(props.MaxMagnitude, c.MaxMagnitude) {
			p.errorf("cell %s: max_magnitude = %v, want %v", key, props.MaxMagnitude, c.MaxMagnitude)
		}
		if !floatEq(props.MeanDepth, c.MeanDepth) {
			p.errorf("cell %s: mean_depth = %v, want %v", key, props.MeanDepth, c.MeanDepth)
		}
		if props.EventCount != c.EventCount {
			p.errorf("cell %s: event_count = %d, want %d", key, props.EventCount, c.EventCount)
		}
	}

	for key := range want {
		if !seen[key] {
			p.errorf("cell %s missing from GeoJSON", key)
		}
	}
	return p
}

// ── Phase 3: Annotation rules ──

func validateAnnotation(fc render.FeatureCollection) *phase {
	p := &phase{name: "Depth category, colour and radius"}
	for i, f := range fc.Features {
		props := f.Properties
		category, color := domain.ClassifyDepth(props.MeanDepth)
		if props.DepthCategory != string(category) {
			p.errorf("feature %d: depth_category = %q for depth %v, want %q", i, props.DepthCategory, props.MeanDepth, category)
		}
		if props.Color != color.Hex() {
			p.errorf("feature %d: color = %q for depth %v, want %q", i, props.Color, props.MeanDepth, color.Hex())
		}
		if want := domain.MarkerRadius(props.MaxMagnitude); !floatEq(props.MarkerRadius, want) {
			p.errorf("feature %d: marker_radius = %v for magnitude %v, want %v", i, props.MarkerRadius, props.MaxMagnitude, want)
		}
	}
	return p
}

// ── Phase 4: Clustering ──

// validateClusters checks ids are in range and that, as 1-D k-means partitions, clusters
// occupy disjoint depth intervals ordered by id.
func validateClusters(fc render.FeatureCollection, k int) *phase {
	p := &phase{name: "Cluster ids and depth ordering"}

	type span struct{ lo, hi float64 }
	spans := make(map[int]*span)
	for i, f := range fc.Features {
		id, depth := f.Properties.ClusterID, f.Properties.MeanDepth
		if id < 0 || id >= k {
			p.errorf("feature %d: cluster_id = %d, want [0, %d)", i, id, k)
			continue
		}
		s, ok := spans[id]
		if !ok {
			spans[id] = &span{lo: depth, hi: depth}
			continue
		}
		s.lo = math.Min(s.lo, depth)
		s.hi = math.Max(s.hi, depth)
	}

	ids := make([]int, 0, len(spans))
	for id := range spans {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for i := 1; i < len(ids); i++ {
		prev, cur := spans[ids[i-1]], spans[ids[i]]
		if prev.hi > cur.lo {
			p.errorf("cluster %d depths [%v, %v] overlap cluster %d depths [%v, %v]",
				ids[i-1], prev.lo, prev.hi, ids[i], cur.lo, cur.hi)
		}
	}
	return p
}

func floatEq(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
