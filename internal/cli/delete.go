package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"medrag/internal/config"
	"medrag/internal/pipeline"
)

var deleteTimeout time.Duration

// deleteCmd represents the delete command
var deleteCmd = &cobra.Command{
	Use:   "delete <document-id>",
	Short: "Remove an ingested document from the search index",
	Long: `Delete removes every chunk of a document from the vector store. The
document ID is printed by the ingest and batch commands.

Example:
  medrag delete 7f9c3dd2-41a5-4a8e-9f0b-2d7c8e1a5b4c`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

func init() {
	rootCmd.AddCommand(deleteCmd)

	deleteCmd.Flags().DurationVar(&deleteTimeout, "timeout", time.Minute, "delete timeout")
}

func runDelete(cmd *cobra.Command, args []string) error {
	documentID := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), deleteTimeout)
	defer cancel()

	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	sys, err := pipeline.New(ctx, *cfg)
	if err != nil {
		return err
	}

	if err := sys.Ingester.Delete(ctx, documentID); err != nil {
		return fmt.Errorf("delete %s: %w", documentID, err)
	}

	fmt.Printf("Deleted document %s\n", documentID)
	return nil
}
