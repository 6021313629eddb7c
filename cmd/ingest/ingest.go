// Package ingest provides the command that submits source files to the
// pipeline.
package ingest

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ragstage/ragstage/internal/config"
	"github.com/ragstage/ragstage/internal/queue"
	"github.com/ragstage/ragstage/internal/setup"
	"github.com/ragstage/ragstage/internal/worker"
)

// IngestCmd publishes clean-stage tasks for one or more source files.
var IngestCmd = &cobra.Command{
	Use:   "ingest <path>...",
	Short: "Submit source files to the pipeline",
	Long: "Submit source files to the pipeline.\n\n" +
		"Publishes one clean-stage task per path. Paths may point at the local " +
		"filesystem or carry an s3:// or azure:// prefix; workers resolve the " +
		"backend from the prefix when they read the file. Excel (.xlsx, .xls), " +
		"JSON (.json), and plain text (.txt, .md) sources are supported.",
	Example: `  # Ingest a local spreadsheet
  ragstage ingest /data/news.xlsx

  # Ingest several files from object storage
  ragstage ingest s3://bucket/reports/q1.xlsx azure://container/notes.md`,
	Args:    cobra.MinimumNArgs(1),
	PreRunE: validateIngest,
	RunE:    runIngest,
}

func validateIngest(cmd *cobra.Command, args []string) error {
	// All errors after this are runtime errors
	cmd.SilenceUsage = true
	return nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := config.Get()
	if err != nil {
		return err
	}

	client := setup.RedisClient(cfg)
	defer func() { _ = client.Close() }()

	// Binding a queue to the clean topic also creates its consumer group,
	// so tasks published before the first worker starts are retained.
	q, err := queue.NewRedisQueue(cmd.Context(), client, queue.RedisConfig{
		Topic:    queue.TopicClean,
		Group:    queue.GroupFor(worker.StageClean),
		Consumer: queue.ConsumerName(worker.StageClean, "ingest"),
		Block:    time.Second,
	})
	if err != nil {
		return err
	}

	for _, path := range args {
		task := queue.NewTaskMessage(path, worker.StageClean)
		if err := q.Publish(cmd.Context(), queue.TopicClean, task); err != nil {
			return fmt.Errorf("failed to submit %s; %w", path, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "submitted %s (trace %s)\n", path, task.TraceID)
	}
	return nil
}
