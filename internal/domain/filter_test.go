package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func f(v float64) *float64 { return &v }

func record(lat, lon, mag, depth *float64) RawRecord {
	return RawRecord{Latitude: lat, Longitude: lon, Magnitude: mag, Depth: depth}
}

func TestFilterEvents(t *testing.T) {
	records := []RawRecord{
		record(f(-7.01), f(110.02), f(5.0), f(40)),
		record(f(-7.04), f(110.01), f(3.0), f(55)), // exactly at the floor
		record(f(-8.2), f(112.3), f(2.99), f(10)),
		record(nil, f(110.0), f(6.0), f(10)),
		record(f(-6.5), nil, f(6.0), f(10)),
		record(f(-6.5), f(110.0), nil, f(10)),
		record(f(-6.5), f(110.0), f(6.0), nil),
	}

	events, stats := FilterEvents(records, DefaultMinMagnitude)

	assert.Equal(t, []Event{
		{Latitude: -7.01, Longitude: 110.02, Magnitude: 5.0, Depth: 40},
		{Latitude: -7.04, Longitude: 110.01, Magnitude: 3.0, Depth: 55},
	}, events)
	assert.Equal(t, FilterStats{Read: 7, Incomplete: 4, BelowMagnitude: 1, Kept: 2}, stats)
	assert.Equal(t, 5, stats.Dropped())
}

func TestFilterEvents_AllKeptEventsMeetFloor(t *testing.T) {
	var records []RawRecord
	for i := 0; i < 100; i++ {
		mag := float64(i) / 10 // 0.0 .. 9.9
		records = append(records, record(f(1), f(2), f(mag), f(3)))
	}

	events, stats := FilterEvents(records, DefaultMinMagnitude)

	assert.Equal(t, 70, stats.Kept)
	for _, e := range events {
		assert.GreaterOrEqual(t, e.Magnitude, DefaultMinMagnitude)
	}
}

func TestFilterEvents_Empty(t *testing.T) {
	events, stats := FilterEvents(nil, DefaultMinMagnitude)
	assert.Empty(t, events)
	assert.Equal(t, FilterStats{}, stats)
}

func TestRawRecord_Complete(t *testing.T) {
	assert.True(t, record(f(0), f(0), f(0), f(0)).Complete())
	assert.False(t, RawRecord{}.Complete())
}
