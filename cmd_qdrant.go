package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Pabloo22/pokedex-dashboard/qdrant"
)

var (
	qdrantQuery string
	qdrantLimit uint64
)

var qdrantSyncCmd = &cobra.Command{
	Use:   "qdrant-sync",
	Short: "Export feature vectors and map coordinates to Qdrant",
	Long: `Upsert one point per creature into the configured Qdrant collection. The vector is
the normalized feature row; the payload carries name, types and map coordinates.
Points of creatures no longer in the table are deleted.
Make sure Qdrant is running: docker run -p 6333:6333 -p 6334:6334 qdrant/qdrant

Examples:
  pokedex qdrant-sync
  pokedex qdrant-sync --query Gengar --limit 5   # search the collection after syncing`,
	Args: cobra.NoArgs,
	RunE: runQdrantSync,
}

func init() {
	rootCmd.AddCommand(qdrantSyncCmd)

	qdrantSyncCmd.Flags().StringVar(&qdrantQuery, "query", "", "After syncing, list the stored creatures nearest to this one")
	qdrantSyncCmd.Flags().Uint64Var(&qdrantLimit, "limit", 10, "Number of search results")
}

func runQdrantSync(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	features, err := a.service.Features(ctx)
	if err != nil {
		return err
	}
	embedding, err := a.service.Embedding(ctx, a.service.DefaultProjection())
	if err != nil {
		return err
	}

	cfg := a.config.Qdrant
	client, err := qdrant.NewClient(ctx, qdrant.Options{
		Host:       cfg.Host,
		Port:       cfg.Port,
		Collection: cfg.Collection,
		APIKey:     cfg.APIKey,
		UseTLS:     cfg.UseTLS,
	}, uint64(len(features.Columns)))
	if err != nil {
		return err
	}
	defer client.Close()

	result, err := qdrant.Sync(ctx, client, a.service.Snapshot().Table, features, embedding)
	if err != nil {
		return err
	}
	a.logger.Info().
		Int("points", result.Written).
		Int("removed", result.Removed).
		Str("collection", cfg.Collection).
		Msg("synced to qdrant")

	if qdrantQuery == "" {
		return nil
	}
	entity, err := a.service.Lookup(qdrantQuery)
	if err != nil {
		return err
	}
	var vector []float32
	for i, id := range features.IDs {
		if id == entity.ID {
			for _, v := range features.Rows[i] {
				vector = append(vector, float32(v))
			}
		}
	}
	if vector == nil {
		return fmt.Errorf("%s has no feature row", entity.Name)
	}

	matches, err := client.Search(ctx, vector, qdrantLimit)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tNAME\tCOSINE")
	for _, match := range matches {
		fmt.Fprintf(w, "%03d\t%s\t%.4f\n", match.ID, match.Name, match.Score)
	}
	return w.Flush()
}
