package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ragstage/ragstage/cmd/ingest"
	"github.com/ragstage/ragstage/cmd/search"
	"github.com/ragstage/ragstage/cmd/version"
	"github.com/ragstage/ragstage/cmd/worker"
	"github.com/ragstage/ragstage/internal/config"
	"github.com/ragstage/ragstage/internal/logging"
)

// logManager is the global logging manager, created in init() and upgraded after config loads
var logManager *logging.Manager

var ragstageCmd = &cobra.Command{
	Use:   "ragstage",
	Short: "A Staged Document Ingestion Pipeline for Retrieval-Augmented Generation",
	Long: "Ragstage ingests raw documents into a hybrid retrieval index through four " +
		"queue-driven stages.\n\n" +
		"The clean stage extracts rows from Excel, JSON, and text sources and slices them " +
		"into bounded payload fragments. The chunk stage splits fragment content into " +
		"retrieval-sized pieces, the enrich stage annotates each piece with LLM-generated " +
		"summaries and keywords, and the index stage writes the result into dense and " +
		"sparse vector stores. Stages coordinate through Redis Streams, so any stage can " +
		"be scaled or restarted independently without losing work.\n\n",
	PersistentPreRunE: runInitialize,
}

func init() {
	logManager = logging.NewManager()

	ragstageCmd.AddCommand(worker.WorkerCmd)
	ragstageCmd.AddCommand(ingest.IngestCmd)
	ragstageCmd.AddCommand(search.SearchCmd)
	ragstageCmd.AddCommand(version.VersionCmd)
}

func runInitialize(cmd *cobra.Command, args []string) error {
	logger := logManager.Logger()

	if err := config.Init(); err != nil {
		return err
	}

	logFile := config.GetPath("log_file")
	levelStr := config.GetString("log_level")
	level, ok := logging.ParseLevel(levelStr)
	if !ok {
		level = logging.DefaultLevel
		if levelStr != "" {
			logger.Warn("invalid log level configured, using default", "configured", levelStr, "default", "info")
		}
	}

	if err := logManager.Upgrade(logFile, level); err != nil {
		logger.Warn("failed to enable file logging, continuing with stderr only", "error", err)
		// Don't return error - continue with bootstrap mode
	}

	// Subcommands and components log through slog.Default
	slog.SetDefault(logManager.Logger())

	return nil
}

func Execute() error {
	ragstageCmd.SilenceErrors = true
	ragstageCmd.SilenceUsage = true

	defer func() { _ = logManager.Close() }()

	err := ragstageCmd.Execute()

	if err != nil {
		cmd, _, _ := ragstageCmd.Find(os.Args[1:])
		if cmd == nil {
			cmd = ragstageCmd
		}

		fmt.Printf("Error: %v\n", err)
		if !cmd.SilenceUsage {
			fmt.Printf("\n")
			cmd.SetOut(os.Stdout)
			_ = cmd.Usage()
		}

		return err
	}

	return nil
}
