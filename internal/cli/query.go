package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"medrag/internal/config"
	"medrag/internal/pipeline"
)

var (
	queryTimeout   time.Duration
	queryTopK      int
	queryThreshold float64
	queryDocuments []string
	querySession   string
	queryJSON      bool
)

// queryCmd represents the query command
var queryCmd = &cobra.Command{
	Use:   "query <question>",
	Short: "Ask a question against the ingested documents",
	Long: `Query retrieves the passages most relevant to a question, generates
an answer constrained to those passages, and verifies the answer before
returning it. Answers that cannot be verified are withheld.

The result includes the confidence score, its sub-scores, and the exact
supporting quotes with page numbers.

Example:
  medrag query "What is the diagnosis?"
  medrag query "What medication was prescribed?" --top-k 10 --json
  medrag query "And the dosage?" --session followup-1`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)

	queryCmd.Flags().DurationVar(&queryTimeout, "timeout", 2*time.Minute, "overall query timeout")
	queryCmd.Flags().IntVar(&queryTopK, "top-k", 0, "passages to retain after reranking (default: configured value)")
	queryCmd.Flags().Float64Var(&queryThreshold, "threshold", 0, "minimum similarity score for candidates (default: configured value)")
	queryCmd.Flags().StringSliceVar(&queryDocuments, "documents", nil, "restrict the search to these document IDs")
	queryCmd.Flags().StringVar(&querySession, "session", "", "session ID for follow-up questions")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "print the full result as JSON")
}

func runQuery(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
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
		fmt.Fprintf(os.Stderr, "Query: %s\n", question)
	}

	res, err := sys.Query(ctx, question, pipeline.QueryOptions{
		TopK:                queryTopK,
		SimilarityThreshold: queryThreshold,
		DocumentScope:       queryDocuments,
		SessionID:           querySession,
	})
	if err != nil {
		return err
	}

	if queryJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	fmt.Println(res.Answer)
	fmt.Println()

	if res.Moderation != nil {
		fmt.Printf("Moderation: flagged at %s stage\n", res.Moderation.Stage)
		return nil
	}
	if res.NoGrounding {
		return nil
	}

	v := res.Verification
	fmt.Printf("Confidence: %.2f (threshold %.2f, %s)\n",
		v.ConfidenceScore, cfg.Verify.ConfidenceThreshold, passFail(v.MeetsThreshold))
	fmt.Printf("  grounding %.2f | consistency %.2f | relevance %.2f | domain %.2f\n",
		v.GroundingScore, v.ConsistencyScore, v.RelevanceScore, v.DomainScore)

	if len(res.PageNumbers) > 0 {
		fmt.Printf("Pages: %v\n", res.PageNumbers)
	}
	for i, ev := range res.Evidence {
		fmt.Printf("\nEvidence %d (%s, page %d):\n  %s\n", i+1, ev.Document, ev.PageNumber, ev.Highlighted)
	}

	return nil
}

func passFail(ok bool) string {
	if ok {
		return "pass"
	}
	return "fail"
}
