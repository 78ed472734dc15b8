package pipeline

import (
	"fmt"

	"github.com/zulfahadiyan/Zonasi-Gempa-K-means/internal/domain"
)

// Clusterer assigns a depth cluster to every grid cell.
type Clusterer interface {
	Cluster(cells []domain.GridCell) domain.ClusterResult
}

// transformed is the output of the pure stages of one run.
type transformed struct {
	grid      []domain.GridCell
	centroids []float64
	cells     []domain.AnnotatedCell
}

// transform runs aggregate -> cluster -> annotate over filtered events. Each stage
// returns a fresh slice; nothing is mutated in place.
func transform(events []domain.Event, clusterer Clusterer) (transformed, error) {
	grid, err := domain.Aggregate(events)
	if err != nil {
		return transformed{}, fmt.Errorf("aggregate: %w", err)
	}

	result := clusterer.Cluster(grid)
	if len(result.Cells) != len(grid) {
		return transformed{}, fmt.Errorf("cluster: got %d labelled cells for %d grid cells", len(result.Cells), len(grid))
	}

	return transformed{
		grid:      grid,
		centroids: result.Centroids,
		cells:     domain.Annotate(result.Cells),
	}, nil
}
