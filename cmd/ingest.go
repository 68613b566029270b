package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [directory]",
	Short: "Index local documents into the knowledge base",
	Long: `Walks the given directory, chunks supported files (.txt, .md, .csv,
.json, .html) and stores their embeddings in the document store.
Unchanged files are detected by content hash and skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, cleanup, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	stats, err := a.Ingester.Ingest(ctx, args[0])
	if err != nil {
		return fmt.Errorf("ingesting %s: %w", args[0], err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Files seen:    %d\n", stats.Files)
	fmt.Fprintf(out, "Unchanged:     %d\n", stats.Skipped)
	fmt.Fprintf(out, "Re-indexed:    %d\n", stats.Updated)
	fmt.Fprintf(out, "Chunks stored: %d\n", stats.Chunks)

	total, err := a.Knowledge.Count(ctx)
	if err == nil {
		fmt.Fprintf(out, "Documents in store: %d\n", total)
	}
	return nil
}
