package domain

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// GridResolution is the cell size in decimal degrees.
const GridResolution = 0.1

// gridScale is 1/GridResolution; dividing an integer by it yields the closest float64
// to the one-decimal value, whereas multiplying by GridResolution would not.
const gridScale = 10

// RoundToGrid rounds a coordinate to one decimal, half to even.
// Negative zero is normalised so that -0.04 and 0.04 share a cell key.
func RoundToGrid(v float64) float64 {
	r := math.RoundToEven(v*gridScale) / gridScale
	if r == 0 {
		return 0
	}
	return r
}

// KeyFor returns the grid key an event falls into.
func KeyFor(e Event) GridKey {
	return GridKey{Lat: RoundToGrid(e.Latitude), Lon: RoundToGrid(e.Longitude)}
}

// Aggregate reduces events to one cell per grid key: the maximum magnitude and the
// unweighted mean depth of the events in that cell. Cells are sorted by latitude then
// longitude so the result does not depend on input order.
func Aggregate(events []Event) ([]GridCell, error) {
	if len(events) == 0 {
		return nil, ErrEmptyDataset
	}

	type group struct {
		magnitudes []float64
		depths     []float64
	}
	groups := make(map[GridKey]*group)
	for _, e := range events {
		k := KeyFor(e)
		g, ok := groups[k]
		if !ok {
			g = &group{}
			groups[k] = g
		}
		g.magnitudes = append(g.magnitudes, e.Magnitude)
		g.depths = append(g.depths, e.Depth)
	}

	cells := make([]GridCell, 0, len(groups))
	for k, g := range groups {
		// Sorted so the floating-point sum does not depend on input order.
		sort.Float64s(g.depths)
		cells = append(cells, GridCell{
			LatGroup:     k.Lat,
			LonGroup:     k.Lon,
			MaxMagnitude: floats.Max(g.magnitudes),
			MeanDepth:    stat.Mean(g.depths, nil),
			EventCount:   len(g.depths),
		})
	}

	sort.Slice(cells, func(i, j int) bool {
		if cells[i].LatGroup != cells[j].LatGroup {
			return cells[i].LatGroup < cells[j].LatGroup
		}
		return cells[i].LonGroup < cells[j].LonGroup
	})
	return cells, nil
}
