package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Pabloo22/pokedex-dashboard/charts"
	"github.com/Pabloo22/pokedex-dashboard/dataset"
	"github.com/Pabloo22/pokedex-dashboard/similarity"
)

var (
	chartColor   string
	chartRef     string
	chartZoom    float64
	chartStats   string
	chartCompare string
)

var chartCmd = &cobra.Command{
	Use:   "chart <out.html>",
	Short: "Render the map or a stats chart to an HTML file",
	Long: `Render an interactive echarts page.

Examples:
  pokedex chart map.html                                 # colored by type
  pokedex chart near.html --color pop-out --ref Pikachu  # Pikachu against the rest
  pokedex chart stats.html --stats Charizard --compare Blastoise`,
	Args: cobra.ExactArgs(1),
	RunE: runChart,
}

func init() {
	rootCmd.AddCommand(chartCmd)

	chartCmd.Flags().StringVar(&chartColor, "color", string(charts.ColorByType), "Map coloring: type or pop-out")
	chartCmd.Flags().StringVar(&chartRef, "ref", "", "Reference creature for pop-out coloring")
	chartCmd.Flags().Float64Var(&chartZoom, "zoom", charts.DefaultChartConfig().Zoom, "Half-width of the pop-out window; 0 shows the whole map")
	chartCmd.Flags().StringVar(&chartStats, "stats", "", "Draw the base stats of this creature instead of the map")
	chartCmd.Flags().StringVar(&chartCompare, "compare", "", "Second creature for --stats")
}

func runChart(cmd *cobra.Command, args []string) error {
	colorBy, err := charts.ParseColorBy(chartColor)
	if err != nil {
		return err
	}
	if colorBy == charts.ColorByPopOut && chartRef == "" {
		return fmt.Errorf("--color pop-out needs --ref")
	}

	a, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	config := charts.DefaultChartConfig()
	config.Zoom = chartZoom
	ctx := cmd.Context()

	var render func(io.Writer) error
	switch {
	case chartStats != "":
		entity, err := a.service.Lookup(chartStats)
		if err != nil {
			return err
		}
		var compare *dataset.Entity
		if chartCompare != "" {
			if compare, err = a.service.Lookup(chartCompare); err != nil {
				return err
			}
		}
		config.Title = "Base stats of " + entity.Name
		table := a.service.Snapshot().Table
		render = func(w io.Writer) error { return charts.RenderStatsBar(w, table, entity, compare, config) }

	case colorBy == charts.ColorByPopOut:
		ranked, err := a.service.Similar(ctx, chartRef, similarity.Highlight)
		if err != nil {
			return err
		}
		for _, r := range ranked {
			if r.Highlighted {
				config.Title = "Pokémon similar to " + r.Name
			}
		}
		render = func(w io.Writer) error { return charts.RenderPopOutScatter(w, ranked, config) }

	default:
		embedding, err := a.service.Embedding(ctx, a.service.DefaultProjection())
		if err != nil {
			return err
		}
		config.Title = "Pokédex map"
		config.Subtitle = string(embedding.Config.Method)
		table := a.service.Snapshot().Table
		render = func(w io.Writer) error { return charts.RenderTypeScatter(w, embedding, table, config) }
	}

	if err := charts.RenderToFile(args[0], render); err != nil {
		return err
	}
	a.logger.Info().Str("path", args[0]).Msg("chart written")
	return nil
}
