package render

import (
	"fmt"
	"math"
	"strconv"

	"github.com/zulfahadiyan/Zonasi-Gempa-K-means/internal/domain"
)

// Popup is the marker text for one cell: magnitude, depth truncated to whole kilometres
// and the depth regime, optionally followed by a place name.
func Popup(c domain.AnnotatedCell, place string) string {
	text := fmt.Sprintf("Mag: %s SR<br/>Depth: %d km<br/>(%s)",
		strconv.FormatFloat(c.MaxMagnitude, 'f', -1, 64),
		int(math.Trunc(c.MeanDepth)),
		c.DepthCategory.Label(),
	)
	if place != "" {
		text += "<br/>" + place
	}
	return text
}

// legendEntry describes one depth regime for legends.
type legendEntry struct {
	Category domain.DepthCategory
	Color    string
	Label    string
}

func depthLegend() []legendEntry {
	return []legendEntry{
		{domain.DepthShallow, domain.ColorGreen.Hex(), "Shallow (≤ 60 km)"},
		{domain.DepthIntermediate, domain.ColorYellow.Hex(), "Intermediate (60-300 km)"},
		{domain.DepthDeep, domain.ColorRed.Hex(), "Deep (> 300 km)"},
	}
}
