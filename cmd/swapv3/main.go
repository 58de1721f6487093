package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "swapv3",
		Short:        "Concentrated-liquidity pool ledger",
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file path")
	flags.String("store", "pebble", "ledger backend (memory, pebble, postgres)")
	flags.String("pebble-path", "./data/ledger", "pebble database directory")
	flags.String("pg-dsn", "", "Postgres DSN")
	flags.Int("cache-size", 4096, "records held in the read cache, 0 disables it")
	flags.String("events", "./data/events.jsonl", "output typed events JSONL")
	flags.String("journal", "./data/journal.jsonl", "operation journal JSONL")
	flags.String("metrics-addr", "", "serve Prometheus metrics on this address")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(
		newInitPoolCmd(),
		newAddLiquidityCmd(),
		newRemoveLiquidityCmd(),
		newCollectCmd(),
		newSwapCmd(),
		newInspectCmd(),
		newReplayCmd(),
		newAggregateCmd(),
	)
	return root
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
