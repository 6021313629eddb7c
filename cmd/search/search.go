// Package search provides the command that queries the retrieval index.
package search

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ragstage/ragstage/internal/config"
	"github.com/ragstage/ragstage/internal/setup"
	"github.com/ragstage/ragstage/internal/vectorstore"
)

var (
	searchMode string
	topK       int
)

// SearchCmd queries the vector store.
var SearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Query the retrieval index",
	Long: "Query the retrieval index.\n\n" +
		"Searches the configured retrievers and prints the top scoring chunks. " +
		"Dense mode uses embedding similarity, sparse mode uses keyword matching, " +
		"and hybrid mode merges both result lists by best score.",
	Example: `  # Hybrid search with defaults
  ragstage search "harbor reopening schedule"

  # Dense-only search, ten results
  ragstage search --mode dense --top-k 10 "crane installation"`,
	Args:    cobra.ExactArgs(1),
	PreRunE: validateSearch,
	RunE:    runSearch,
}

func init() {
	SearchCmd.Flags().StringVar(&searchMode, "mode", string(vectorstore.SearchHybrid),
		"search mode: dense, sparse, or hybrid")
	SearchCmd.Flags().IntVar(&topK, "top-k", 5, "number of results to return")
}

func validateSearch(cmd *cobra.Command, args []string) error {
	switch vectorstore.SearchMode(searchMode) {
	case vectorstore.SearchDense, vectorstore.SearchSparse, vectorstore.SearchHybrid:
	default:
		return fmt.Errorf("unknown search mode %q; expected dense, sparse, or hybrid", searchMode)
	}
	if topK <= 0 {
		return fmt.Errorf("top-k must be positive, got %d", topK)
	}

	// All errors after this are runtime errors
	cmd.SilenceUsage = true
	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Get()
	if err != nil {
		return err
	}

	store, err := setup.VectorStore(cmd.Context(), cfg, slog.Default())
	if err != nil {
		return err
	}

	results, err := store.Search(cmd.Context(), args[0], vectorstore.SearchMode(searchMode), topK)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no results")
		return nil
	}

	out := cmd.OutOrStdout()
	for i, res := range results {
		fmt.Fprintf(out, "%2d. %.4f  %s\n", i+1, res.Score, res.Document.ID)
		if file := res.Document.Metadata["file_name"]; file != "" {
			fmt.Fprintf(out, "    file: %s\n", file)
		}
		fmt.Fprintf(out, "    %s\n", excerpt(res.Document.Text, 160))
	}
	return nil
}

// excerpt trims text to a single display line of at most n runes.
func excerpt(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}
