package render

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/zulfahadiyan/Zonasi-Gempa-K-means/internal/domain"
)

// MapFile is the name of the interactive map page inside the output directory.
const MapFile = "index.html"

// gridPadding widens the axes around the outermost cells, in degrees.
const gridPadding = 1.0

// MapOptions controls the text and assets of the map page.
type MapOptions struct {
	Title           string
	Subtitle        string
	DataSource      string
	Credits         []string
	Institution     []string
	LogoName        string
	LogoFallbackURL string
}

// MapRenderer writes an interactive scatter map of the annotated cells, with a static
// information panel, to <outputDir>/index.html. It implements pipeline.Presenter.
type MapRenderer struct {
	outputDir string
	opts      MapOptions
	assets    AssetResolver
	geocoder  domain.Geocoder
	logger    *slog.Logger
}

// NewMapRenderer creates a MapRenderer. assets and geocoder may be nil.
func NewMapRenderer(outputDir string, o MapOptions, assets AssetResolver, geocoder domain.Geocoder, logger *slog.Logger) *MapRenderer {
	return &MapRenderer{
		outputDir: outputDir,
		opts:      o,
		assets:    assets,
		geocoder:  geocoder,
		logger:    logger,
	}
}

// Present renders the report and writes the page.
func (m *MapRenderer) Present(ctx context.Context, report domain.Report) error {
	if err := os.MkdirAll(m.outputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	logoSrc, err := publishAsset(m.assets, m.opts.LogoName, m.opts.LogoFallbackURL, m.outputDir)
	if err != nil {
		return err
	}
	if logoSrc == m.opts.LogoFallbackURL {
		m.logger.Info("logo not found locally, using fallback URL", "logo", m.opts.LogoName, "url", logoSrc)
	}

	places := domain.PlaceNames(ctx, report.Cells, m.geocoder, m.logger)

	var buf bytes.Buffer
	if err := m.Render(&buf, report, logoSrc, places); err != nil {
		return err
	}

	path := filepath.Join(m.outputDir, MapFile)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write map: %w", err)
	}
	m.logger.Info("map written", "path", path, "cells", len(report.Cells))
	return nil
}

// Render writes the full page for report to w. places may be nil.
func (m *MapRenderer) Render(w io.Writer, report domain.Report, logoSrc string, places map[domain.GridKey]string) error {
	scatter := charts.NewScatter()
	global := []charts.GlobalOpts{
		charts.WithInitializationOpts(opts.Initialization{PageTitle: m.opts.Title, Theme: "dark", Width: "100%", Height: "95vh"}),
		charts.WithTitleOpts(opts.Title{Title: m.opts.Title, Subtitle: fmt.Sprintf("%s · %d cells · run %s", m.opts.Subtitle, len(report.Cells), report.RunID)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "item", Formatter: "{b}"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Bottom: "10"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "inside"}),
	}
	if v, ok := viewportOf(report); ok {
		global = append(global,
			charts.WithXAxisOpts(opts.XAxis{Name: "Longitude", NameLocation: "middle", NameGap: 25, Min: v.minLon, Max: v.maxLon}),
			charts.WithYAxisOpts(opts.YAxis{Name: "Latitude", NameLocation: "middle", NameGap: 30, Min: v.minLat, Max: v.maxLat}),
		)
	}
	scatter.SetGlobalOptions(global...)

	series := make(map[domain.DepthCategory][]opts.ScatterData, 3)
	for _, c := range report.Cells {
		series[c.DepthCategory] = append(series[c.DepthCategory], opts.ScatterData{
			Name:       Popup(c, places[c.Key()]),
			Value:      []interface{}{c.LonGroup, c.LatGroup, c.MaxMagnitude, c.MeanDepth},
			SymbolSize: symbolSize(c),
		})
	}
	for _, entry := range depthLegend() {
		scatter.AddSeries(entry.Label, series[entry.Category],
			charts.WithItemStyleOpts(opts.ItemStyle{Color: entry.Color}),
		)
	}

	var page bytes.Buffer
	if err := scatter.Render(&page); err != nil {
		return fmt.Errorf("render map: %w", err)
	}

	var panel bytes.Buffer
	if err := renderPanel(&panel, newPanelData(m.opts, logoSrc)); err != nil {
		return fmt.Errorf("render info panel: %w", err)
	}

	_, err := w.Write(injectBeforeBodyEnd(page.Bytes(), panel.Bytes()))
	return err
}

// injectBeforeBodyEnd places fragment just before </body>, or appends it when the page
// has no body end tag.
func injectBeforeBodyEnd(page, fragment []byte) []byte {
	marker := []byte("</body>")
	i := bytes.LastIndex(page, marker)
	if i < 0 {
		return append(page, fragment...)
	}
	out := make([]byte, 0, len(page)+len(fragment))
	out = append(out, page[:i]...)
	out = append(out, fragment...)
	return append(out, page[i:]...)
}

type viewport struct {
	minLat, maxLat, minLon, maxLon float64
}

// viewportOf centres the axes on the mean cell position and widens them until every cell
// is inside, plus gridPadding.
func viewportOf(report domain.Report) (viewport, bool) {
	lat, lon, ok := report.Center()
	if !ok {
		return viewport{}, false
	}
	var latSpan, lonSpan float64
	for _, c := range report.Cells {
		latSpan = max(latSpan, math.Abs(c.LatGroup-lat))
		lonSpan = max(lonSpan, math.Abs(c.LonGroup-lon))
	}
	latSpan += gridPadding
	lonSpan += gridPadding
	return viewport{
		minLat: roundAxis(lat - latSpan),
		maxLat: roundAxis(lat + latSpan),
		minLon: roundAxis(lon - lonSpan),
		maxLon: roundAxis(lon + lonSpan),
	}, true
}

func roundAxis(v float64) float64 {
	return math.Round(v*100) / 100
}
