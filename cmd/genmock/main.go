// Command genmock writes a synthetic, reproducible earthquake catalog for local runs and
// tests. Events follow a simplified Sunda subduction zone: depth grows with distance from
// the trench, so all three depth regimes are represented. A share of rows is deliberately
// malformed or below the magnitude floor to exercise the filter.
//
// Usage:
//
//	go run ./cmd/genmock -out data/mock/katalog_gempa_mock.tsv -n 2000 -seed 42
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/zulfahadiyan/Zonasi-Gempa-K-means/internal/adapter/catalog"
	"github.com/zulfahadiyan/Zonasi-Gempa-K-means/internal/domain"
)

// arcSegment is a straight stretch of trench with the dip of its slab.
type arcSegment struct {
	name               string
	lat0, lon0         float64 // trench start
	lat1, lon1         float64 // trench end
	normalLat, normLon float64 // unit step away from the trench, towards the back-arc
	dip                float64 // km of depth per degree away from the trench
}

var segments = []arcSegment{
	{name: "sumatra", lat0: 4, lon0: 94, lat1: -6, lon1: 104, normalLat: 0.6, normLon: 0.8, dip: 60},
	{name: "java", lat0: -9.5, lon0: 105, lat1: -10.5, lon1: 115, normalLat: 1, normLon: 0, dip: 110},
	{name: "banda", lat0: -10.5, lon0: 115, lat1: -8, lon1: 128, normalLat: 1, normLon: -0.1, dip: 140},
}

const (
	malformedShare = 0.03
	belowFloorFrac = 0.15
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output path for the TSV catalog")
	n := flag.Int("n", 2000, "number of rows to generate")
	seed := flag.Uint64("seed", 42, "PCG seed")
	flag.Parse()

	if *out == "" || *n <= 0 {
		flag.Usage()
		return fmt.Errorf("missing required flag -out, and -n must be positive")
	}

	rows := generate(*n, *seed)
	if err := writeTSV(*out, rows); err != nil {
		return err
	}
	log.Printf("wrote %d rows to %s", len(rows), *out)

	return printStats(*out)
}

// generate returns n catalog rows, header excluded. Each row has the columns latitude,
// longitude, magnitude, depth.
func generate(n int, seed uint64) [][]string {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	rows := make([][]string, 0, n)

	for range n {
		if rng.Float64() < malformedShare {
			rows = append(rows, malformedRow(rng))
			continue
		}

		seg := segments[rng.IntN(len(segments))]
		t := rng.Float64()
		// Distance from the trench in degrees, skewed towards the trench.
		d := 4 * math.Pow(rng.Float64(), 1.5)
		lat := seg.lat0 + t*(seg.lat1-seg.lat0) + d*seg.normalLat + rng.NormFloat64()*0.15
		lon := seg.lon0 + t*(seg.lon1-seg.lon0) + d*seg.normLon + rng.NormFloat64()*0.15
		depth := math.Max(1, 10+d*seg.dip+rng.NormFloat64()*12)

		// Gutenberg-Richter-like magnitudes with b ~ 1.
		mag := 3 + rng.ExpFloat64()*0.45
		if rng.Float64() < belowFloorFrac {
			mag = 1.5 + rng.Float64()*1.4
		}
		mag = math.Min(mag, 9)

		rows = append(rows, []string{
			formatFloat(lat, 4),
			formatFloat(lon, 4),
			formatFloat(mag, 1),
			formatFloat(depth, 1),
		})
	}
	return rows
}

func malformedRow(rng *rand.Rand) []string {
	row := []string{
		formatFloat(-8+rng.Float64()*10, 4),
		formatFloat(95+rng.Float64()*30, 4),
		formatFloat(3+rng.Float64()*3, 1),
		formatFloat(rng.Float64()*600, 1),
	}
	switch rng.IntN(3) {
	case 0:
		row[rng.IntN(len(row))] = ""
	case 1:
		row[rng.IntN(len(row))] = "n/a"
	default:
		row[3] = "NaN"
	}
	return row
}

func formatFloat(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}

func writeTSV(path string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	w := bufio.NewWriter(f)
	header := []string{catalog.ColumnLatitude, catalog.ColumnLongitude, catalog.ColumnMagnitude, catalog.ColumnDepth}
	if _, err := fmt.Fprintln(w, strings.Join(header, "\t")); err != nil {
		return err
	}
	for _, row := range rows {
		if _, err := fmt.Fprintln(w, strings.Join(row, "\t")); err != nil {
			return err
		}
	}
	return w.Flush()
}

// printStats reads the catalog back through the real reader and filter and reports what a
// pipeline run would see.
func printStats(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	records, err := catalog.Parse(context.Background(), f)
	if err != nil {
		return fmt.Errorf("read back %s: %w", path, err)
	}
	events, stats := domain.FilterEvents(records, domain.DefaultMinMagnitude)
	cells, err := domain.Aggregate(events)
	if err != nil {
		return fmt.Errorf("aggregate: %w", err)
	}

	byCategory := make(map[domain.DepthCategory]int)
	for _, c := range cells {
		category, _ := domain.ClassifyDepth(c.MeanDepth)
		byCategory[category]++
	}
	categories := make([]string, 0, len(byCategory))
	for c := range byCategory {
		categories = append(categories, string(c))
	}
	sort.Strings(categories)

	fmt.Println("\n=== Catalog Stats ===")
	fmt.Printf("rows:            %d\n", stats.Read)
	fmt.Printf("incomplete:      %d\n", stats.Incomplete)
	fmt.Printf("below magnitude: %d\n", stats.BelowMagnitude)
	fmt.Printf("events kept:     %d\n", stats.Kept)
	fmt.Printf("grid cells:      %d\n", len(cells))
	for _, c := range categories {
		fmt.Printf("  %-14s %d\n", c+":", byCategory[domain.DepthCategory(c)])
	}
	return nil
}
