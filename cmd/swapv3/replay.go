package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"swapv3/internal/config"
	"swapv3/internal/journal"
	"swapv3/internal/storage"
)

func newReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay an operation journal into the ledger",
		RunE:  runReplay,
	}
	cmd.Flags().Uint64("from", 0, "first journal sequence (inclusive)")
	cmd.Flags().Uint64("to", 0, "last journal sequence (inclusive), 0 means end of journal")
	cmd.Flags().Uint64("batch-size", 500, "operations per checkpoint")
	cmd.Flags().String("failures", "./data/failures.jsonl", "rejected operations JSONL")
	cmd.Flags().String("checkpoint", "./data/checkpoint.json", "checkpoint file path")
	cmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	cmd.Flags().String("checkpoint-name", "replay", "checkpoint row name when the store is postgres")
	cmd.Flags().Int("max-retries", 5, "maximum retry attempts for storage failures")
	cmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	return cmd
}

func runReplay(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadReplay(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Journal == "" {
		return fmt.Errorf("journal path is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Replayed operations must not be journaled a second time.
	base := cfg.Config
	base.Journal = ""
	a, err := openApp(ctx, base, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	var checkpoint journal.CheckpointStore
	if cfg.CheckpointEnabled {
		if a.pg != nil {
			checkpoint = journal.NewStateCheckpoint(a.pg, cfg.CheckpointName)
		} else {
			checkpoint = journal.NewFileCheckpoint(cfg.Checkpoint, true)
		}
	}

	var failures journal.FailureSink
	if cfg.Failures != "" {
		failures = storage.NewJsonlStorage(cfg.Failures)
	}

	runner := journal.NewRunner(journal.RunConfig{
		JournalPath:  cfg.Journal,
		FromSequence: cfg.FromSequence,
		ToSequence:   cfg.ToSequence,
		BatchSize:    cfg.BatchSize,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	}, a.ledger, failures, checkpoint, logger)

	logger.Info("replay start",
		zap.String("journal", cfg.Journal),
		zap.String("store", cfg.Store),
		zap.Uint64("from", cfg.FromSequence),
		zap.Uint64("to", cfg.ToSequence),
		zap.Uint64("batch_size", cfg.BatchSize),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
	)

	stats, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	logger.Info("replay complete",
		zap.Int("applied", stats.Applied),
		zap.Int("rejected", stats.Rejected),
		zap.Int("skipped", stats.Skipped),
		zap.Uint64("last", stats.Last),
	)
	return printJSON(cmd.OutOrStdout(), stats)
}
