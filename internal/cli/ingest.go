package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"medrag/internal/config"
	"medrag/internal/pipeline"
)

var ingestTimeout time.Duration

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest <file.pdf>",
	Short: "Ingest a PDF document into the search index",
	Long: `Ingest extracts the text of a PDF page by page, splits it into
overlapping chunks with page and position metadata, embeds each chunk,
and indexes the whole document atomically. The document only becomes
searchable once every chunk is indexed.

Example:
  medrag ingest report.pdf
  medrag ingest report.pdf --timeout 10m`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().DurationVar(&ingestTimeout, "timeout", 5*time.Minute, "overall ingestion timeout")
}

func runIngest(cmd *cobra.Command, args []string) error {
	path := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), ingestTimeout)
	defer cancel()

	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	sys, err := pipeline.New(ctx, *cfg)
	if err != nil {
		return err
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Ingesting: %s\n", path)
		fmt.Fprintf(os.Stderr, "Chunk size: %d, overlap: %d\n", cfg.Chunking.Size, cfg.Chunking.Overlap)
	}

	res, err := sys.Ingester.IngestFile(ctx, path)
	if err != nil {
		return fmt.Errorf("ingest %s: %w", path, err)
	}

	fmt.Printf("Ingested %s\n", res.Document)
	fmt.Printf("  Document ID: %s\n", res.DocumentID)
	fmt.Printf("  Pages:       %d\n", res.Pages)
	fmt.Printf("  Chunks:      %d\n", res.Chunks)

	return nil
}
