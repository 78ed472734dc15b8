package domain

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundToGrid(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{-7.01, -7.0},
		{-7.04, -7.0},
		{-7.06, -7.1},
		{110.02, 110.0},
		{110.01, 110.0},
		{110.05, 110.0}, // 1100.5 rounds half to even
		{110.15, 110.2}, // 1101.5 rounds half to even
		{-0.04, 0},
		{0.04, 0},
		{179.99, 180.0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RoundToGrid(tt.in), "RoundToGrid(%v)", tt.in)
	}
}

func TestRoundToGrid_NormalisesNegativeZero(t *testing.T) {
	assert.Equal(t, KeyFor(Event{Latitude: -0.04, Longitude: 0.03}), KeyFor(Event{Latitude: 0.04, Longitude: -0.03}))
}

func TestAggregate_Scenario(t *testing.T) {
	events := []Event{
		{Latitude: -7.01, Longitude: 110.02, Magnitude: 5.0, Depth: 40},
		{Latitude: -7.04, Longitude: 110.01, Magnitude: 6.5, Depth: 55},
	}

	cells, err := Aggregate(events)
	require.NoError(t, err)
	require.Len(t, cells, 1)
	assert.Equal(t, GridCell{LatGroup: -7.0, LonGroup: 110.0, MaxMagnitude: 6.5, MeanDepth: 47.5, EventCount: 2}, cells[0])
}

func TestAggregate_Statistics(t *testing.T) {
	events := []Event{
		{Latitude: -8.12, Longitude: 115.21, Magnitude: 4.0, Depth: 10},
		{Latitude: -8.08, Longitude: 115.19, Magnitude: 4.5, Depth: 20},
		{Latitude: -8.11, Longitude: 115.24, Magnitude: 3.5, Depth: 60},
		{Latitude: 2.0, Longitude: 126.0, Magnitude: 7.1, Depth: 600},
	}

	cells, err := Aggregate(events)
	require.NoError(t, err)
	require.Len(t, cells, 2)

	// Sorted by latitude: the southern cell first.
	assert.Equal(t, GridKey{Lat: -8.1, Lon: 115.2}, cells[0].Key())
	assert.Equal(t, 4.5, cells[0].MaxMagnitude)
	assert.Equal(t, 30.0, cells[0].MeanDepth)
	assert.Equal(t, 3, cells[0].EventCount)

	assert.Equal(t, GridKey{Lat: 2.0, Lon: 126.0}, cells[1].Key())
	assert.Equal(t, 7.1, cells[1].MaxMagnitude)
	assert.Equal(t, 600.0, cells[1].MeanDepth)
}

func TestAggregate_OrderIndependent(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 7))
	events := make([]Event, 500)
	for i := range events {
		events[i] = Event{
			Latitude:  -11 + rng.Float64()*3,
			Longitude: 105 + rng.Float64()*3,
			Magnitude: 3 + rng.Float64()*5,
			Depth:     rng.Float64() * 650,
		}
	}

	want, err := Aggregate(events)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		shuffled := make([]Event, len(events))
		copy(shuffled, events)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		got, err := Aggregate(shuffled)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestAggregate_MatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 9))
	events := make([]Event, 200)
	for i := range events {
		events[i] = Event{
			Latitude:  -7 + rng.Float64()*0.5,
			Longitude: 110 + rng.Float64()*0.5,
			Magnitude: 3 + rng.Float64()*4,
			Depth:     float64(rng.IntN(400)),
		}
	}

	cells, err := Aggregate(events)
	require.NoError(t, err)

	for _, c := range cells {
		maxMag, sum, n := 0.0, 0.0, 0
		for _, e := range events {
			if KeyFor(e) != c.Key() {
				continue
			}
			if e.Magnitude > maxMag {
				maxMag = e.Magnitude
			}
			sum += e.Depth
			n++
		}
		require.Positive(t, n, "cell %s has no events", c.Key())
		assert.Equal(t, maxMag, c.MaxMagnitude)
		assert.InDelta(t, sum/float64(n), c.MeanDepth, 1e-9)
		assert.Equal(t, n, c.EventCount)
	}
}

func TestAggregate_Empty(t *testing.T) {
	cells, err := Aggregate(nil)
	require.ErrorIs(t, err, ErrEmptyDataset)
	assert.Nil(t, cells)
}
