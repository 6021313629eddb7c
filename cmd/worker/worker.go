// Package worker provides the command that runs a single pipeline stage
// worker in the foreground.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/ragstage/ragstage/internal/config"
	"github.com/ragstage/ragstage/internal/enrich"
	"github.com/ragstage/ragstage/internal/index"
	"github.com/ragstage/ragstage/internal/llm"
	"github.com/ragstage/ragstage/internal/objstore"
	"github.com/ragstage/ragstage/internal/queue"
	"github.com/ragstage/ragstage/internal/registry"
	"github.com/ragstage/ragstage/internal/setup"
	"github.com/ragstage/ragstage/internal/worker"
)

var (
	workerType  string
	workerID    string
	metricsAddr string
)

// WorkerCmd runs one pipeline stage worker in foreground mode.
var WorkerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run a pipeline stage worker in foreground mode",
	Long: "Run a pipeline stage worker in foreground mode.\n\n" +
		"A worker consumes its stage's Redis stream through a consumer group, " +
		"processes each task, and publishes follow-up tasks to the next stage. " +
		"Run several workers of the same type with distinct ids to scale a stage " +
		"horizontally; the consumer group spreads messages across them.",
	Example: `  # Run the clean stage
  ragstage worker --type clean

  # Run a second chunk worker
  ragstage worker --type chunk --id 1

  # Run the index stage without a metrics endpoint
  ragstage worker --type index --metrics-addr ""`,
	PreRunE: validateWorker,
	RunE:    runWorker,
}

func init() {
	WorkerCmd.Flags().StringVar(&workerType, "type", "",
		"stage to run: clean, chunk, enrich, or index")
	WorkerCmd.Flags().StringVar(&workerID, "id", "0",
		"worker instance id, unique per stage")
	WorkerCmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9090",
		"address for the Prometheus metrics endpoint, empty to disable")
	_ = WorkerCmd.MarkFlagRequired("type")
}

func validateWorker(cmd *cobra.Command, args []string) error {
	if _, ok := worker.TopicForStage(workerType); !ok {
		return fmt.Errorf("unknown worker type %q; expected clean, chunk, enrich, or index", workerType)
	}

	// All errors after this are runtime errors
	cmd.SilenceUsage = true
	return nil
}

func runWorker(cmd *cobra.Command, args []string) error {
	cfg, err := config.Get()
	if err != nil {
		return err
	}
	logger := slog.Default()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := setup.RedisClient(cfg)
	defer func() { _ = client.Close() }()

	topic, _ := worker.TopicForStage(workerType)
	q, err := queue.NewRedisQueue(ctx, client, queue.RedisConfig{
		Topic:     topic,
		Group:     queue.GroupFor(workerType),
		Consumer:  queue.ConsumerName(workerType, workerID),
		BatchSize: int64(cfg.Pipeline.BatchSize),
		Block:     time.Duration(cfg.Pipeline.PollIntervalMs) * time.Millisecond,
	})
	if err != nil {
		return err
	}

	handler, err := buildHandler(ctx, cfg, client, q, logger)
	if err != nil {
		return err
	}

	if metricsAddr != "" {
		serveMetrics(metricsAddr, logger)
	}

	poll := time.Duration(cfg.Pipeline.PollIntervalMs) * time.Millisecond
	runner := worker.NewRunner(q, handler, poll, logger)

	if err := runner.Run(ctx); !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func buildHandler(ctx context.Context, cfg *config.Config, client *redis.Client, q queue.Queue, logger *slog.Logger) (worker.Handler, error) {
	store := objstore.NewRouter()

	switch workerType {
	case worker.StageClean:
		return worker.NewCleanWorker(store, q, cfg.Pipeline.RowsPerFile, logger), nil

	case worker.StageChunk:
		return worker.NewChunkWorker(store, q, logger), nil

	case worker.StageEnrich:
		model := llm.NewOpenAIClient(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Model,
			cfg.LLM.RateLimit, llm.WithLogger(logger))
		enricher := enrich.New(model, cfg.Pipeline.MaxConcurrency, logger)
		return worker.NewEnrichWorker(store, q, enricher, logger), nil

	case worker.StageIndex:
		vstore, err := setup.VectorStore(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		reg := registry.NewRedis(client)
		indexer := index.New(vstore, reg, cfg.Pipeline.BatchSize, cfg.Pipeline.StrictConsistency, logger)
		return worker.NewIndexWorker(store, indexer, logger), nil

	default:
		return nil, fmt.Errorf("unknown worker type %q", workerType)
	}
}

func serveMetrics(addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		logger.Info("metrics endpoint listening", "addr", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Error("metrics endpoint failed", "error", err)
		}
	}()
}
