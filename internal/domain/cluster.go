package domain

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ClusterParams configures the depth k-means.
type ClusterParams struct {
	K         int     // number of clusters
	Seed      uint64  // PCG seed; identical seeds give identical assignments
	Runs      int     // k-means++ restarts, lowest inertia wins
	MaxIter   int     // Lloyd iterations per run
	Tolerance float64 // convergence threshold, relative to the feature variance
}

// DefaultClusterParams returns K=3 with a fixed seed.
func DefaultClusterParams() ClusterParams {
	return ClusterParams{
		K:         3,
		Seed:      42,
		Runs:      10,
		MaxIter:   300,
		Tolerance: 1e-4,
	}
}

// ClusterResult holds the clustered cells and the centroid depth of each cluster id.
type ClusterResult struct {
	Cells     []ClusteredCell
	Centroids []float64 // ascending; Centroids[i] belongs to cluster i
}

// DepthClusterer partitions grid cells by mean depth.
type DepthClusterer struct {
	params ClusterParams
}

// NewDepthClusterer creates a clusterer. Non-positive fields fall back to defaults.
func NewDepthClusterer(params ClusterParams) *DepthClusterer {
	def := DefaultClusterParams()
	if params.K <= 0 {
		params.K = def.K
	}
	if params.Runs <= 0 {
		params.Runs = def.Runs
	}
	if params.MaxIter <= 0 {
		params.MaxIter = def.MaxIter
	}
	if params.Tolerance <= 0 {
		params.Tolerance = def.Tolerance
	}
	return &DepthClusterer{params: params}
}

// Params returns the effective parameters.
func (c *DepthClusterer) Params() ClusterParams {
	return c.params
}

// Cluster assigns every cell a cluster id in [0, K) using mean depth as the only feature.
// With fewer than K cells every cell gets cluster 0. Ids are ordered by centroid depth,
// so cluster 0 is always the shallowest group.
func (c *DepthClusterer) Cluster(cells []GridCell) ClusterResult {
	if len(cells) == 0 {
		return ClusterResult{}
	}

	depths := make([]float64, len(cells))
	for i, cell := range cells {
		depths[i] = cell.MeanDepth
	}

	if len(cells) < c.params.K {
		out := make([]ClusteredCell, len(cells))
		for i, cell := range cells {
			out[i] = ClusteredCell{GridCell: cell}
		}
		return ClusterResult{Cells: out, Centroids: []float64{stat.Mean(depths, nil)}}
	}

	rng := rand.New(rand.NewPCG(c.params.Seed, c.params.Seed))
	threshold := c.params.Tolerance * stat.Variance(depths, nil)
	if math.IsNaN(threshold) {
		threshold = 0
	}

	var best kmeansRun
	for run := 0; run < c.params.Runs; run++ {
		r := kmeans1D(depths, c.params.K, rng, c.params.MaxIter, threshold)
		if run == 0 || r.inertia < best.inertia {
			best = r
		}
	}

	labels, centroids := relabelByCentroid(best.labels, best.centroids)
	out := make([]ClusteredCell, len(cells))
	for i, cell := range cells {
		out[i] = ClusteredCell{GridCell: cell, ClusterID: labels[i]}
	}
	return ClusterResult{Cells: out, Centroids: centroids}
}

type kmeansRun struct {
	labels    []int
	centroids []float64
	inertia   float64
}

// kmeans1D runs one k-means++ seeded Lloyd's iteration on scalar values.
func kmeans1D(xs []float64, k int, rng *rand.Rand, maxIter int, threshold float64) kmeansRun {
	centroids := seedPlusPlus(xs, k, rng)
	labels := make([]int, len(xs))
	assign(xs, centroids, labels)

	members := make([]float64, 0, len(xs))
	for iter := 0; iter < maxIter; iter++ {
		shift := 0.0
		for j := range centroids {
			members = members[:0]
			for i, x := range xs {
				if labels[i] == j {
					members = append(members, x)
				}
			}
			// An empty cluster keeps its previous centroid.
			if len(members) == 0 {
				continue
			}
			next := stat.Mean(members, nil)
			if d := next - centroids[j]; d*d > shift {
				shift = d * d
			}
			centroids[j] = next
		}

		changed := assign(xs, centroids, labels)
		if !changed || shift <= threshold {
			break
		}
	}

	inertia := 0.0
	for i, x := range xs {
		d := x - centroids[labels[i]]
		inertia += d * d
	}
	return kmeansRun{labels: labels, centroids: centroids, inertia: inertia}
}

// seedPlusPlus picks k initial centroids with probability proportional to the squared
// distance from the nearest centroid already chosen.
func seedPlusPlus(xs []float64, k int, rng *rand.Rand) []float64 {
	centroids := make([]float64, 0, k)
	centroids = append(centroids, xs[rng.IntN(len(xs))])

	dist := make([]float64, len(xs))
	for len(centroids) < k {
		for i, x := range xs {
			dist[i] = math.Inf(1)
			for _, c := range centroids {
				if d := (x - c) * (x - c); d < dist[i] {
					dist[i] = d
				}
			}
		}

		total := floats.Sum(dist)
		if total == 0 {
			// Fewer distinct depths than clusters.
			centroids = append(centroids, xs[rng.IntN(len(xs))])
			continue
		}

		target := rng.Float64() * total
		pick := len(xs) - 1
		acc := 0.0
		for i, d := range dist {
			acc += d
			if acc > target {
				pick = i
				break
			}
		}
		centroids = append(centroids, xs[pick])
	}
	return centroids
}

// assign labels each value with its nearest centroid (lowest index on ties) and
// reports whether any label changed.
func assign(xs, centroids []float64, labels []int) bool {
	changed := false
	for i, x := range xs {
		best := 0
		bestDist := math.Abs(x - centroids[0])
		for j := 1; j < len(centroids); j++ {
			if d := math.Abs(x - centroids[j]); d < bestDist {
				best, bestDist = j, d
			}
		}
		if labels[i] != best {
			labels[i] = best
			changed = true
		}
	}
	return changed
}

// relabelByCentroid renumbers clusters so that ids ascend with centroid depth.
func relabelByCentroid(labels []int, centroids []float64) ([]int, []float64) {
	sorted := make([]float64, len(centroids))
	copy(sorted, centroids)
	order := make([]int, len(centroids))
	floats.Argsort(sorted, order)

	remap := make([]int, len(centroids))
	for newID, oldID := range order {
		remap[oldID] = newID
	}

	out := make([]int, len(labels))
	for i, l := range labels {
		out[i] = remap[l]
	}
	return out, sorted
}
