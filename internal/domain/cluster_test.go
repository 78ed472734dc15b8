package domain

import (
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cellsWithDepths(depths ...float64) []GridCell {
	cells := make([]GridCell, len(depths))
	for i, d := range depths {
		cells[i] = GridCell{LatGroup: float64(i) / 10, LonGroup: 110, MaxMagnitude: 4, MeanDepth: d, EventCount: 1}
	}
	return cells
}

func randomCells(seed uint64, n int) []GridCell {
	rng := rand.New(rand.NewPCG(seed, seed))
	depths := make([]float64, n)
	for i := range depths {
		depths[i] = rng.Float64() * 650
	}
	return cellsWithDepths(depths...)
}

func TestDepthClusterer_SeparatesDepthRegimes(t *testing.T) {
	cells := cellsWithDepths(10, 15, 20, 150, 160, 170, 550, 560, 580)

	result := NewDepthClusterer(DefaultClusterParams()).Cluster(cells)
	require.Len(t, result.Cells, len(cells))

	ids := make([]int, len(result.Cells))
	for i, c := range result.Cells {
		ids[i] = c.ClusterID
	}
	assert.Equal(t, []int{0, 0, 0, 1, 1, 1, 2, 2, 2}, ids)
	require.Len(t, result.Centroids, 3)
	assert.InDelta(t, 15.0, result.Centroids[0], 1e-9)
	assert.InDelta(t, 160.0, result.Centroids[1], 1e-9)
	assert.InDelta(t, 563.333333, result.Centroids[2], 1e-6)
}

func TestDepthClusterer_Deterministic(t *testing.T) {
	cells := randomCells(11, 300)
	clusterer := NewDepthClusterer(DefaultClusterParams())

	first := clusterer.Cluster(cells)
	second := clusterer.Cluster(cells)
	third := NewDepthClusterer(DefaultClusterParams()).Cluster(cells)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("same clusterer, different result (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(first, third); diff != "" {
		t.Errorf("same seed, different result (-first +third):\n%s", diff)
	}
}

func TestDepthClusterer_IDsInRangeAndOrderedByCentroid(t *testing.T) {
	for seed := uint64(1); seed <= 5; seed++ {
		params := DefaultClusterParams()
		params.Seed = seed
		result := NewDepthClusterer(params).Cluster(randomCells(seed, 120))

		require.Len(t, result.Centroids, params.K)
		assert.IsNonDecreasing(t, result.Centroids)

		for _, c := range result.Cells {
			assert.GreaterOrEqual(t, c.ClusterID, 0)
			assert.Less(t, c.ClusterID, params.K)
		}

		// Each cell is nearest to its own centroid after convergence.
		for _, c := range result.Cells {
			own := abs(c.MeanDepth - result.Centroids[c.ClusterID])
			for _, other := range result.Centroids {
				assert.LessOrEqual(t, own, abs(c.MeanDepth-other)+1e-9)
			}
		}
	}
}

func TestDepthClusterer_DegenerateFallback(t *testing.T) {
	tests := []struct {
		name   string
		depths []float64
	}{
		{name: "one cell", depths: []float64{42}},
		{name: "two cells", depths: []float64{10, 500}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NewDepthClusterer(DefaultClusterParams()).Cluster(cellsWithDepths(tt.depths...))
			require.Len(t, result.Cells, len(tt.depths))
			for _, c := range result.Cells {
				assert.Equal(t, 0, c.ClusterID)
			}
			require.Len(t, result.Centroids, 1)
		})
	}
}

func TestDepthClusterer_FewerDistinctDepthsThanClusters(t *testing.T) {
	result := NewDepthClusterer(DefaultClusterParams()).Cluster(cellsWithDepths(33, 33, 33, 33))

	require.Len(t, result.Cells, 4)
	first := result.Cells[0].ClusterID
	for _, c := range result.Cells {
		assert.Equal(t, first, c.ClusterID)
		assert.GreaterOrEqual(t, c.ClusterID, 0)
		assert.Less(t, c.ClusterID, 3)
	}
}

func TestDepthClusterer_Empty(t *testing.T) {
	result := NewDepthClusterer(DefaultClusterParams()).Cluster(nil)
	assert.Empty(t, result.Cells)
	assert.Empty(t, result.Centroids)
}

func TestDepthClusterer_PreservesCells(t *testing.T) {
	cells := randomCells(5, 20)
	result := NewDepthClusterer(DefaultClusterParams()).Cluster(cells)
	for i, c := range result.Cells {
		assert.Equal(t, cells[i], c.GridCell)
	}
}

func TestNewDepthClusterer_Defaults(t *testing.T) {
	c := NewDepthClusterer(ClusterParams{Seed: 7})
	want := DefaultClusterParams()
	want.Seed = 7
	assert.Equal(t, want, c.Params())
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
