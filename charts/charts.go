// Package charts renders the embedding scatter and base-stat comparisons as
// interactive echarts HTML pages.
package charts

import (
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/Pabloo22/pokedex-dashboard/dataset"
	"github.com/Pabloo22/pokedex-dashboard/projection"
	"github.com/Pabloo22/pokedex-dashboard/similarity"
)

// ChartConfig holds configuration for charts.
type ChartConfig struct {
	Title      string // Chart title
	Subtitle   string // Chart subtitle
	Width      string // Chart width (e.g., "900px")
	Height     string // Chart height (e.g., "500px")
	Theme      string // Chart theme
	ShowLegend bool   // Show legend
	SymbolSize int    // Scatter marker size

	// Zoom is the half-width of the window drawn around the reference in pop-out
	// charts. 0 draws the whole unit square.
	Zoom float64
}

// DefaultChartConfig returns default chart configuration.
func DefaultChartConfig() ChartConfig {
	return ChartConfig{
		Width:      "900px",
		Height:     "600px",
		Theme:      "light",
		ShowLegend: true,
		SymbolSize: 10,
		Zoom:       0.1,
	}
}

// Highlight colors used by pop-out charts.
const (
	ReferenceColor = "#ee3333"
	OthersColor    = "#cccccc"
)

// ColorBy selects how scatter points are colored.
type ColorBy string

const (
	ColorByType   ColorBy = "type"
	ColorByPopOut ColorBy = "pop-out"
)

// ParseColorBy accepts "type" (the default when empty) and "pop-out".
func ParseColorBy(s string) (ColorBy, error) {
	switch ColorBy(s) {
	case "", ColorByType:
		return ColorByType, nil
	case ColorByPopOut, "highlight":
		return ColorByPopOut, nil
	}
	return "", fmt.Errorf("unknown color mode %q (want type or pop-out)", s)
}

func newScatter(config ChartConfig) *charts.Scatter {
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Width:  config.Width,
			Height: config.Height,
			Theme:  config.Theme,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    config.Title,
			Subtitle: config.Subtitle,
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "item",
		}),
		charts.WithLegendOpts(opts.Legend{
			Show: opts.Bool(config.ShowLegend),
		}),
	)
	return scatter
}

func scatterPoint(name string, x, y float64, size int) opts.ScatterData {
	return opts.ScatterData{
		Name:       name,
		Value:      []float64{x, y},
		SymbolSize: size,
	}
}

// RenderTypeScatter draws every point of the embedding, one series per primary type
// in that type's color.
func RenderTypeScatter(w io.Writer, embedding *projection.Embedding, table *dataset.Table, config ChartConfig) error {
	groups := map[string][]opts.ScatterData{}
	for _, point := range embedding.Points {
		typeName := "unknown"
		if entity, err := table.ByID(point.ID); err == nil {
			typeName = entity.Type1
		}
		groups[typeName] = append(groups[typeName], scatterPoint(point.Name, point.X, point.Y, config.SymbolSize))
	}

	types := make([]string, 0, len(groups))
	for typeName := range groups {
		types = append(types, typeName)
	}
	sort.Strings(types)

	scatter := newScatter(config)
	scatter.SetGlobalOptions(
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Min: 0, Max: 1}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Min: 0, Max: 1}),
	)
	for _, typeName := range types {
		scatter.AddSeries(typeName, groups[typeName],
			charts.WithItemStyleOpts(opts.ItemStyle{Color: dataset.TypeColor(typeName)}),
		)
	}

	if err := scatter.Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}

// RenderPopOutScatter draws a ranking produced in highlight mode: the reference in
// ReferenceColor and every other point in OthersColor. With config.Zoom > 0 the axes
// are limited to the window around the reference.
func RenderPopOutScatter(w io.Writer, ranked []similarity.Ranked, config ChartConfig) error {
	var reference *similarity.Ranked
	var highlighted, others []opts.ScatterData
	othersName := "Others"
	for i := range ranked {
		r := &ranked[i]
		if r.Highlighted {
			if reference == nil {
				reference = r
			}
			highlighted = append(highlighted, scatterPoint(r.Name, r.X, r.Y, config.SymbolSize*2))
			continue
		}
		if r.Group != "" {
			othersName = r.Group
		}
		others = append(others, scatterPoint(r.Name, r.X, r.Y, config.SymbolSize))
	}
	if reference == nil {
		return fmt.Errorf("ranking has no highlighted reference")
	}

	xAxis := opts.XAxis{Type: "value", Min: 0, Max: 1}
	yAxis := opts.YAxis{Type: "value", Min: 0, Max: 1}
	if config.Zoom > 0 {
		xAxis.Min, xAxis.Max = zoomWindow(reference.X, config.Zoom)
		yAxis.Min, yAxis.Max = zoomWindow(reference.Y, config.Zoom)
	}

	scatter := newScatter(config)
	scatter.SetGlobalOptions(
		charts.WithXAxisOpts(xAxis),
		charts.WithYAxisOpts(yAxis),
	)
	// Others first so the reference is drawn on top.
	scatter.AddSeries(othersName, others,
		charts.WithItemStyleOpts(opts.ItemStyle{Color: OthersColor}),
	)
	scatter.AddSeries(reference.Name, highlighted,
		charts.WithItemStyleOpts(opts.ItemStyle{Color: ReferenceColor}),
	)

	if err := scatter.Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}

// zoomWindow returns [center-half, center+half] clipped to the unit square.
func zoomWindow(center, half float64) (float64, float64) {
	return math.Max(0, center-half), math.Min(1, center+half)
}

// RenderStatsBar draws the six base stats of entity, next to compare's when compare is
// not nil. The value axis always spans 0 to dataset.MaxBaseStat.
func RenderStatsBar(w io.Writer, table *dataset.Table, entity, compare *dataset.Entity, config ChartConfig) error {
	stats := table.BaseStats(entity)
	labels := make([]string, len(stats))
	for i, stat := range stats {
		labels[i] = stat.Label
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Width:  config.Width,
			Height: config.Height,
			Theme:  config.Theme,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    config.Title,
			Subtitle: config.Subtitle,
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "axis",
		}),
		charts.WithLegendOpts(opts.Legend{
			Show: opts.Bool(config.ShowLegend),
		}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Min: 0, Max: dataset.MaxBaseStat}),
	)

	bar.SetXAxis(labels).
		AddSeries(entity.Name, barData(stats),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: dataset.TypeColor(entity.Type1)}),
		)
	if compare != nil {
		color := dataset.TypeColor(compare.Type1)
		if compare.Type1 == entity.Type1 {
			color = OthersColor
		}
		bar.AddSeries(compare.Name, barData(table.BaseStats(compare)),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: color}),
		)
	}
	bar.SetSeriesOptions(
		charts.WithLabelOpts(opts.Label{
			Show:     opts.Bool(true),
			Position: "top",
		}),
	)

	if err := bar.Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}

func barData(stats []dataset.Stat) []opts.BarData {
	data := make([]opts.BarData, len(stats))
	for i, stat := range stats {
		data[i] = opts.BarData{Value: stat.Value}
	}
	return data
}

// RenderToFile creates path and renders into it.
func RenderToFile(path string, render func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create chart file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return render(f)
}
