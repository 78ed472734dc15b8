package domain

// DepthCategory is the display depth regime of a cell.
type DepthCategory string

const (
	DepthShallow      DepthCategory = "shallow"
	DepthIntermediate DepthCategory = "intermediate"
	DepthDeep         DepthCategory = "deep"
)

// Label returns the capitalised name used in popups and legends.
func (d DepthCategory) Label() string {
	switch d {
	case DepthShallow:
		return "Shallow"
	case DepthIntermediate:
		return "Intermediate"
	case DepthDeep:
		return "Deep"
	default:
		return string(d)
	}
}

// MarkerColor is the display color of a depth regime.
type MarkerColor string

const (
	ColorGreen  MarkerColor = "green"
	ColorYellow MarkerColor = "yellow"
	ColorRed    MarkerColor = "red"
)

// Hex returns the CSS color for the marker.
func (c MarkerColor) Hex() string {
	switch c {
	case ColorGreen:
		return "#00ff00"
	case ColorYellow:
		return "#ffff00"
	case ColorRed:
		return "#ff0000"
	default:
		return "#808080"
	}
}

const (
	shallowMaxDepth      = 60.0  // km, inclusive
	intermediateMaxDepth = 300.0 // km, inclusive

	// MarkerRadiusScale maps magnitude linearly to marker radius: M3 → 4.5, M9 → 13.5.
	MarkerRadiusScale = 1.5
)

// ClassifyDepth maps a mean depth in km to its regime and color:
//   - ≤ 60 km shallow, green
//   - ≤ 300 km intermediate, yellow
//   - otherwise deep, red
//
// NaN compares false against both bounds and is classified deep.
func ClassifyDepth(depth float64) (DepthCategory, MarkerColor) {
	switch {
	case depth <= shallowMaxDepth:
		return DepthShallow, ColorGreen
	case depth <= intermediateMaxDepth:
		return DepthIntermediate, ColorYellow
	default:
		return DepthDeep, ColorRed
	}
}

// MarkerRadius returns the marker radius for a magnitude.
func MarkerRadius(magnitude float64) float64 {
	return magnitude * MarkerRadiusScale
}

// AnnotateCell derives display attributes from the cell's own depth and magnitude.
func AnnotateCell(c ClusteredCell) AnnotatedCell {
	category, color := ClassifyDepth(c.MeanDepth)
	return AnnotatedCell{
		ClusteredCell: c,
		DepthCategory: category,
		Color:         color,
		MarkerRadius:  MarkerRadius(c.MaxMagnitude),
	}
}

// Annotate applies AnnotateCell to every cell.
func Annotate(cells []ClusteredCell) []AnnotatedCell {
	out := make([]AnnotatedCell, len(cells))
	for i, c := range cells {
		out[i] = AnnotateCell(c)
	}
	return out
}
