package domain

import (
	"context"
	"log/slog"
)

// PlaceNames looks up a place name for each cell's grid position. Cells whose lookup
// fails or returns nothing are left out of the map, so a nil geocoder or an outage only
// costs the popups their place line.
func PlaceNames(ctx context.Context, cells []AnnotatedCell, geocoder Geocoder, logger *slog.Logger) map[GridKey]string {
	names := make(map[GridKey]string)
	if geocoder == nil {
		return names
	}

	for _, c := range cells {
		if ctx.Err() != nil {
			return names
		}
		key := c.Key()
		if _, done := names[key]; done {
			continue
		}

		result, err := geocoder.ReverseGeocode(ctx, key.Lat, key.Lon)
		if err != nil {
			logger.Warn("reverse geocoding failed",
				"cell", key.String(),
				"error", err,
			)
			continue
		}
		switch {
		case result.FormattedAddress != "":
			names[key] = result.FormattedAddress
		case result.PlaceName != "":
			names[key] = result.PlaceName
		}
	}
	return names
}
