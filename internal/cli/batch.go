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
	"medrag/internal/worker"
)

var (
	batchTimeout     time.Duration
	batchConcurrency int
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <directory>",
	Short: "Ingest every PDF in a directory concurrently",
	Long: `Batch ingests all PDF files in a directory. Files are independent
documents and are processed in parallel; a failure in one file does not
stop the others.

Example:
  medrag batch ./records
  medrag batch ./records --concurrency 8`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 30*time.Minute, "overall batch timeout")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "parallel file ingestions (default: configured worker count)")
}

func runBatch(cmd *cobra.Command, args []string) error {
	dir := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	concurrency := batchConcurrency
	if concurrency <= 0 {
		concurrency = cfg.Concurrency.IngestWorkers
	}

	sys, err := pipeline.New(ctx, *cfg)
	if err != nil {
		return err
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Batch ingesting from: %s (concurrency %d)\n", dir, concurrency)
	}

	processor := worker.NewBatchProcessor(sys.Ingester, concurrency)
	results, err := processor.ProcessDir(ctx, dir)
	if err != nil {
		return err
	}

	var failed int
	for _, r := range results {
		if r.Error != nil {
			failed++
			fmt.Fprintf(os.Stderr, "FAILED  %s: %v\n", r.Path, r.Error)
			continue
		}
		fmt.Printf("OK      %s (%d pages, %d chunks, id %s)\n",
			r.Result.Document, r.Result.Pages, r.Result.Chunks, r.Result.DocumentID)
	}

	fmt.Printf("\n%d ingested, %d failed\n", len(results)-failed, failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(results))
	}
	return nil
}
