package render

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/zulfahadiyan/Zonasi-Gempa-K-means/internal/domain"
)

// PlotFile is the name of the cluster diagnostic image inside the output directory.
const PlotFile = "clusters.png"

// Depth regime boundaries drawn on the plot, in km.
var regimeBoundaries = []float64{60, 300}

// PlotRenderer draws mean depth against max magnitude for every cell, one colour per
// cluster, with the depth regime boundaries marked. It implements pipeline.Presenter.
type PlotRenderer struct {
	outputDir string
	width     vg.Length
	height    vg.Length
	logger    *slog.Logger
}

// NewPlotRenderer creates a PlotRenderer writing 10x6 inch images.
func NewPlotRenderer(outputDir string, logger *slog.Logger) *PlotRenderer {
	return &PlotRenderer{
		outputDir: outputDir,
		width:     10 * vg.Inch,
		height:    6 * vg.Inch,
		logger:    logger,
	}
}

// Present saves the plot as PNG.
func (r *PlotRenderer) Present(_ context.Context, report domain.Report) error {
	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	p, err := r.build(report)
	if err != nil {
		return err
	}

	path := filepath.Join(r.outputDir, PlotFile)
	if err := p.Save(r.width, r.height, path); err != nil {
		return fmt.Errorf("save plot: %w", err)
	}
	r.logger.Info("cluster plot written", "path", path)
	return nil
}

func (r *PlotRenderer) build(report domain.Report) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Depth clusters (%d cells)", len(report.Cells))
	p.X.Label.Text = "Mean depth (km)"
	p.Y.Label.Text = "Max magnitude"
	p.Add(plotter.NewGrid())

	byCluster := make([]plotter.XYs, len(report.Centroids))
	minMag, maxMag := 0.0, 0.0
	for i, c := range report.Cells {
		for c.ClusterID >= len(byCluster) {
			byCluster = append(byCluster, nil)
		}
		byCluster[c.ClusterID] = append(byCluster[c.ClusterID], plotter.XY{X: c.MeanDepth, Y: c.MaxMagnitude})
		if i == 0 || c.MaxMagnitude < minMag {
			minMag = c.MaxMagnitude
		}
		if i == 0 || c.MaxMagnitude > maxMag {
			maxMag = c.MaxMagnitude
		}
	}

	for id, pts := range byCluster {
		if len(pts) == 0 {
			continue
		}
		s, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, fmt.Errorf("cluster %d scatter: %w", id, err)
		}
		s.GlyphStyle.Color = plotutil.Color(id)
		s.GlyphStyle.Radius = vg.Points(3)
		s.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(s)
		p.Legend.Add(clusterLabel(id, report.Centroids), s)
	}

	if len(report.Cells) > 0 {
		for _, depth := range regimeBoundaries {
			line, err := plotter.NewLine(plotter.XYs{{X: depth, Y: minMag - 0.5}, {X: depth, Y: maxMag + 0.5}})
			if err != nil {
				return nil, fmt.Errorf("regime boundary: %w", err)
			}
			line.Width = vg.Points(1)
			line.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
			p.Add(line)
		}
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

func clusterLabel(id int, centroids []float64) string {
	if id < len(centroids) {
		return fmt.Sprintf("cluster %d (centroid %.0f km)", id, centroids[id])
	}
	return fmt.Sprintf("cluster %d", id)
}
