// Package domain models earthquake catalog events and the grid zoning derived from them.
//
// # Data Source
//
// Catalogs are tabular exports (BMKG, USGS) with a header row and at least the columns
// latitude, longitude, magnitude and depth. Values are decimal degrees, moment/local
// magnitude and hypocentre depth in kilometres. Rows with any of the four values missing,
// non-numeric or non-finite are dropped, never repaired.
//
// # Stages
//
// Each stage is a pure function over an immutable snapshot produced by the previous one:
//
//	[]RawRecord  --FilterEvents-->  []Event
//	[]Event      --Aggregate----->  []GridCell
//	[]GridCell   --Cluster------->  []ClusteredCell
//	[]ClusteredCell --Annotate--->  []AnnotatedCell
//
// # Grid Resolution
//
// Coordinates are quantised by rounding to one decimal degree (round half to even, the same
// rule numpy applies). One cell spans 0.1° of latitude, about 11.1 km, and 0.1° of longitude,
// about 11.1 km × cos(latitude); at Java's latitude (~7°S) that is ~11.0 km. All downstream
// statistics are per cell, so this resolution bounds the spatial detail of the map.
// The grid is sparse: cells without events do not exist.
//
// # Depth Regimes
//
// Display categories follow the conventional seismological split:
//
//	shallow       depth ≤ 60 km         green
//	intermediate  60 < depth ≤ 300 km   yellow
//	deep          depth > 300 km        red
//
// Categories are derived from each cell's own mean depth and are independent of the
// cluster id. Cluster ids come from a seeded one-dimensional k-means over mean depth and
// are relabelled so that cluster 0 has the shallowest centroid.
package domain
