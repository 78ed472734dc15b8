package domain

// DefaultMinMagnitude is the inclusive magnitude floor applied by FilterEvents.
const DefaultMinMagnitude = 3.0

// FilterStats counts what FilterEvents kept and dropped.
type FilterStats struct {
	Read           int `json:"read"`
	Incomplete     int `json:"incomplete"`
	BelowMagnitude int `json:"below_magnitude"`
	Kept           int `json:"kept"`
}

// Dropped is the total number of rows that did not become events.
func (s FilterStats) Dropped() int {
	return s.Incomplete + s.BelowMagnitude
}

// FilterEvents keeps complete records whose magnitude is at least minMagnitude.
// Dropped rows are only counted; the caller decides whether to log them.
func FilterEvents(records []RawRecord, minMagnitude float64) ([]Event, FilterStats) {
	stats := FilterStats{Read: len(records)}
	events := make([]Event, 0, len(records))

	for _, r := range records {
		if !r.Complete() {
			stats.Incomplete++
			continue
		}
		if *r.Magnitude < minMagnitude {
			stats.BelowMagnitude++
			continue
		}
		events = append(events, Event{
			Latitude:  *r.Latitude,
			Longitude: *r.Longitude,
			Magnitude: *r.Magnitude,
			Depth:     *r.Depth,
		})
	}

	stats.Kept = len(events)
	return events, stats
}
