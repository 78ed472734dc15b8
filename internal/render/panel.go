package render

import (
	"html/template"
	"io"

	"github.com/zulfahadiyan/Zonasi-Gempa-K-means/internal/domain"
)

var panelTemplate = template.Must(template.New("panel").Parse(`
<div id="info-panel" style="position: fixed; top: 10px; right: 10px; width: 300px; max-height: 90vh; overflow-y: auto; background-color: rgba(255, 255, 255, 0.95); padding: 15px; border-radius: 10px; border: 1px solid #ddd; box-shadow: 0 0 10px rgba(0,0,0,0.5); z-index: 9999; font-family: sans-serif;">
  <div style="text-align: center; margin-bottom: 15px;">
    <h3 style="margin: 0; color: #222; font-size: 16px; font-weight: bold;">{{.Title}}</h3>
    {{if .Subtitle}}<span style="font-size: 11px; color: #555;">{{.Subtitle}}</span>{{end}}
  </div>
  {{if .Credits}}
  <div style="text-align: center; font-size: 11px; color: #333; margin-bottom: 10px; background-color: #f9f9f9; padding: 8px; border-radius: 5px;">
    <b style="display: block; margin-bottom: 5px;">Created by:</b>
    {{range .Credits}}<div class="credit" style="margin-bottom: 4px;"><b>{{.}}</b></div>{{end}}
  </div>
  {{end}}
  <hr style="border: 0; border-top: 1px solid #ccc; margin: 10px 0;">
  <h4 style="margin: 0 0 8px 0; font-size: 13px; color: #333;">Legend</h4>
  <div style="font-size: 11px; margin-bottom: 10px;">
    <b>Depth (colour):</b><br>
    {{range .Depth}}<span style="color: {{.Color}};">&#9679;</span> {{.Label}}<br>{{end}}
  </div>
  <div style="font-size: 11px;">
    <b>Magnitude (size):</b><br>
    {{range .Sizes}}<div style="display: flex; align-items: center; margin-top: 2px;">
      <div style="width: 15px; text-align: center;"><div style="width: {{.Pixels}}px; height: {{.Pixels}}px; background: #555; border-radius: 50%; margin: auto;"></div></div>
      <div style="margin-left: 5px;">{{.Label}}</div>
    </div>{{end}}
  </div>
  <hr style="border: 0; border-top: 1px solid #ccc; margin: 10px 0;">
  {{if .DataSource}}
  <div style="font-size: 10px; color: #666; margin-bottom: 15px;"><b>Data source:</b><br>{{.DataSource}}</div>
  {{end}}
  <div style="text-align: center; font-size: 10px; color: #444; border-top: 2px solid #eee; padding-top: 10px;">
    {{if .LogoSrc}}<img src="{{.LogoSrc}}" width="60px" style="margin-bottom: 5px;" alt="logo"><br>{{end}}
    <div style="font-weight: bold; margin-top: 5px;">{{range .Institution}}{{.}}<br>{{end}}</div>
  </div>
</div>
`))

type sizeEntry struct {
	Pixels int
	Label  string
}

type panelData struct {
	Title       string
	Subtitle    string
	Credits     []string
	Depth       []legendEntry
	Sizes       []sizeEntry
	DataSource  string
	LogoSrc     string
	Institution []string
}

func newPanelData(o MapOptions, logoSrc string) panelData {
	return panelData{
		Title:    o.Title,
		Subtitle: o.Subtitle,
		Credits:  o.Credits,
		Depth:    depthLegend(),
		Sizes: []sizeEntry{
			{Pixels: 4, Label: "Small (3-4 SR)"},
			{Pixels: 8, Label: "Medium (5-6 SR)"},
			{Pixels: 12, Label: "Large (> 7 SR)"},
		},
		DataSource:  o.DataSource,
		LogoSrc:     logoSrc,
		Institution: o.Institution,
	}
}

func renderPanel(w io.Writer, data panelData) error {
	return panelTemplate.Execute(w, data)
}

// symbolSize converts a marker radius to an echarts symbol diameter in pixels.
func symbolSize(c domain.AnnotatedCell) int {
	size := int(c.MarkerRadius*2 + 0.5)
	if size < 1 {
		return 1
	}
	return size
}
