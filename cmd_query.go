package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Pabloo22/pokedex-dashboard/evolution"
	"github.com/Pabloo22/pokedex-dashboard/similarity"
)

var (
	similarMode  string
	similarLimit int

	evolutionSubstring bool
)

var similarCmd = &cobra.Command{
	Use:   "similar <name|number>",
	Short: "List the creatures closest to one on the map",
	Long: `Rank every creature by its distance to the reference on the default map.

Examples:
  pokedex similar Charizard
  pokedex similar 25 --limit 5
  pokedex similar Pikachu --mode highlight`,
	Args: cobra.ExactArgs(1),
	RunE: runSimilar,
}

var evolutionCmd = &cobra.Command{
	Use:   "evolution <name|number>",
	Short: "Show the evolution line of a creature",
	Long: `Show the base form and both evolution stages of every family containing the name.

Examples:
  pokedex evolution Eevee
  pokedex evolution 133
  pokedex evolution Mew --substring   # also matches Mewtwo`,
	Args: cobra.ExactArgs(1),
	RunE: runEvolution,
}

func init() {
	rootCmd.AddCommand(similarCmd)
	rootCmd.AddCommand(evolutionCmd)

	similarCmd.Flags().StringVar(&similarMode, "mode", string(similarity.Continuous), "Scoring mode: continuous or highlight")
	similarCmd.Flags().IntVar(&similarLimit, "limit", 10, "Number of creatures to list besides the reference; 0 lists all")

	evolutionCmd.Flags().BoolVar(&evolutionSubstring, "substring", false, "Match names containing the argument instead of equal to it")
}

func runSimilar(cmd *cobra.Command, args []string) error {
	mode, err := similarity.ParseMode(similarMode)
	if err != nil {
		return err
	}

	a, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	ranked, err := a.service.Similar(cmd.Context(), args[0], mode)
	if err != nil {
		return err
	}
	if similarLimit > 0 {
		ranked = similarity.Top(ranked, similarLimit+1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\t#\tNAME\tSIMILARITY\tSCORE")
	rank := 0
	for _, r := range ranked {
		label := "ref"
		if !r.Highlighted {
			rank++
			label = fmt.Sprint(rank)
		}
		fmt.Fprintf(w, "%s\t%03d\t%s\t%.4f\t%.4f\n", label, r.ID, r.Name, r.Similarity, r.Score)
	}
	return w.Flush()
}

func runEvolution(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	var opts []evolution.Option
	if evolutionSubstring {
		opts = append(opts, evolution.Substring())
	}
	name := args[0]
	if entity, err := a.service.Lookup(name); err == nil {
		name = entity.Name
	}
	line, err := a.service.EvolutionLine(name, opts...)
	if err != nil {
		return err
	}

	fmt.Printf("Base:     %s\n", line.Base)
	fmt.Printf("Stage 1:  %s\n", orNone(line.First))
	fmt.Printf("Stage 2:  %s\n", orNone(line.Second))
	if line.Ambiguous {
		fmt.Println("(matched several families; stages are their union)")
	}
	return nil
}

func orNone(names []string) string {
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ", ")
}
