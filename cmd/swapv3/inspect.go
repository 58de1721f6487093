package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"swapv3/internal/config"
)

type inspectView struct {
	Sequence  uint64         `json:"sequence"`
	Pool      poolView       `json:"pool"`
	Ticks     []tickView     `json:"ticks"`
	Positions []positionView `json:"positions"`
}

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print a pool with its ticks and positions",
		RunE:  runInspect,
	}
	cmd.Flags().String("pool", "", "pool id (hex)")
	return cmd
}

func runInspect(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	pool, err := requiredHash(cmd.Flags(), "pool")
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	state, err := a.ledger.Pool(ctx, pool)
	if err != nil {
		return err
	}
	ticks, err := a.ledger.Ticks(ctx, pool)
	if err != nil {
		return err
	}
	positions, err := a.ledger.Positions(ctx, pool)
	if err != nil {
		return err
	}
	seq, err := a.ledger.Sequence(ctx)
	if err != nil {
		return err
	}

	view := inspectView{
		Sequence:  seq,
		Pool:      viewPool(pool.Hex(), state),
		Ticks:     make([]tickView, 0, len(ticks)),
		Positions: make([]positionView, 0, len(positions)),
	}
	for _, t := range ticks {
		view.Ticks = append(view.Ticks, viewTick(t))
	}
	for _, p := range positions {
		view.Positions = append(view.Positions, viewPosition(p))
	}
	return printJSON(cmd.OutOrStdout(), view)
}
