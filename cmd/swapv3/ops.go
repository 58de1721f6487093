package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"lukechampine.com/uint128"

	"swapv3/internal/config"
	"swapv3/internal/fixedpoint"
	"swapv3/internal/instruction"
	"swapv3/internal/journal"
	"swapv3/internal/ledger"
)

type requestBuilder func(flags *pflag.FlagSet) (ledger.Request, error)

func newInitPoolCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init-pool",
		Short: "Create a pool at an initial price",
		RunE:  operation(buildInitPool),
	}
	cmd.Flags().String("token0", "", "token0 id (hex)")
	cmd.Flags().String("token1", "", "token1 id (hex)")
	cmd.Flags().Uint32("fee", 5, "swap fee in basis points")
	cmd.Flags().Uint16("tick-spacing", 10, "tick spacing")
	cmd.Flags().String("sqrt-price", "", "initial sqrt price, Q64.64 decimal")
	cmd.Flags().Int32("tick", 0, "initial tick, used when --sqrt-price is empty")
	return cmd
}

func newAddLiquidityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add-liquidity",
		Short: "Add liquidity to a position",
		RunE:  operation(buildModify(true)),
	}
	rangeFlags(cmd.Flags())
	cmd.Flags().String("amount", "", "liquidity amount (decimal)")
	return cmd
}

func newRemoveLiquidityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove-liquidity",
		Short: "Remove liquidity from a position",
		RunE:  operation(buildModify(false)),
	}
	rangeFlags(cmd.Flags())
	cmd.Flags().String("amount", "", "liquidity amount (decimal)")
	return cmd
}

func newCollectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Collect the fees owed to a position",
		RunE:  operation(buildCollect),
	}
	rangeFlags(cmd.Flags())
	return cmd
}

func newSwapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "swap",
		Short: "Swap an exact input amount",
		RunE:  operation(buildSwap),
	}
	cmd.Flags().String("pool", "", "pool id (hex)")
	cmd.Flags().String("owner", "", "sender id (hex)")
	cmd.Flags().Uint64("amount-in", 0, "input amount")
	cmd.Flags().Uint64("min-out", 0, "minimum output amount")
	cmd.Flags().Bool("one-for-zero", false, "sell token1 for token0")
	cmd.Flags().String("sqrt-price-limit", "", "price limit, Q64.64 decimal; empty means the curve bound")
	return cmd
}

func rangeFlags(flags *pflag.FlagSet) {
	flags.String("pool", "", "pool id (hex)")
	flags.String("owner", "", "position owner id (hex)")
	flags.Int32("lower", 0, "lower tick (inclusive)")
	flags.Int32("upper", 0, "upper tick (exclusive)")
}

// operation wraps a request builder into a command that executes the request,
// journals it and prints the outcome.
func operation(build requestBuilder) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
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

		req, err := build(cmd.Flags())
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

		res, err := a.execute(ctx, req)
		if err != nil {
			return err
		}

		view := viewResult(res)
		switch res.Kind {
		case instruction.KindAddLiquidity, instruction.KindRemoveLiquidity:
			pos := viewPosition(res.Liquidity.Position)
			view.Position = &pos
			view.Amount0 = res.Liquidity.Amount0.String()
			view.Amount1 = res.Liquidity.Amount1.String()
		case instruction.KindCollectFees:
			view.Amount0 = res.Collect.Amount0.String()
			view.Amount1 = res.Collect.Amount1.String()
		case instruction.KindSwap, instruction.KindSwapExactIn:
			view.Swap = viewSwap(res.Swap)
		}
		return printJSON(cmd.OutOrStdout(), view)
	}
}

func buildInitPool(flags *pflag.FlagSet) (ledger.Request, error) {
	token0, err := requiredHash(flags, "token0")
	if err != nil {
		return ledger.Request{}, err
	}
	token1, err := requiredHash(flags, "token1")
	if err != nil {
		return ledger.Request{}, err
	}
	fee, _ := flags.GetUint32("fee")
	spacing, _ := flags.GetUint16("tick-spacing")

	price, err := optionalU128(flags, "sqrt-price")
	if err != nil {
		return ledger.Request{}, err
	}
	if !flags.Changed("sqrt-price") {
		tick, _ := flags.GetInt32("tick")
		if price, err = fixedpoint.TickToSqrtPrice(tick); err != nil {
			return ledger.Request{}, err
		}
	}

	return ledger.Request{
		Params:      ledger.PoolParams{Token0: token0, Token1: token1, FeeBps: fee, TickSpacing: spacing},
		Instruction: instruction.InitializePool{InitialSqrtPrice: price},
	}, nil
}

func buildModify(add bool) requestBuilder {
	return func(flags *pflag.FlagSet) (ledger.Request, error) {
		req, lower, upper, err := rangeRequest(flags)
		if err != nil {
			return ledger.Request{}, err
		}
		amount, err := optionalU128(flags, "amount")
		if err != nil {
			return ledger.Request{}, err
		}
		if amount.IsZero() {
			return ledger.Request{}, fmt.Errorf("amount is required")
		}
		if add {
			req.Instruction = instruction.AddLiquidity{LiquidityAmount: amount, TickLower: lower, TickUpper: upper}
		} else {
			req.Instruction = instruction.RemoveLiquidity{LiquidityAmount: amount, TickLower: lower, TickUpper: upper}
		}
		return req, nil
	}
}

func buildCollect(flags *pflag.FlagSet) (ledger.Request, error) {
	req, lower, upper, err := rangeRequest(flags)
	if err != nil {
		return ledger.Request{}, err
	}
	req.Instruction = instruction.CollectFees{TickLower: lower, TickUpper: upper}
	return req, nil
}

func buildSwap(flags *pflag.FlagSet) (ledger.Request, error) {
	pool, err := requiredHash(flags, "pool")
	if err != nil {
		return ledger.Request{}, err
	}
	owner, err := optionalHash(flags, "owner")
	if err != nil {
		return ledger.Request{}, err
	}
	amountIn, _ := flags.GetUint64("amount-in")
	if amountIn == 0 {
		return ledger.Request{}, fmt.Errorf("amount-in is required")
	}
	minOut, _ := flags.GetUint64("min-out")
	oneForZero, _ := flags.GetBool("one-for-zero")
	limit, err := optionalU128(flags, "sqrt-price-limit")
	if err != nil {
		return ledger.Request{}, err
	}

	req := ledger.Request{Pool: pool, Owner: owner}
	if !oneForZero && limit.IsZero() {
		req.Instruction = instruction.Swap{AmountIn: amountIn, MinAmountOut: minOut}
		return req, nil
	}
	req.Instruction = instruction.SwapExactIn{
		AmountIn:       amountIn,
		MinAmountOut:   minOut,
		ZeroForOne:     !oneForZero,
		SqrtPriceLimit: limit,
	}
	return req, nil
}

func rangeRequest(flags *pflag.FlagSet) (ledger.Request, int32, int32, error) {
	pool, err := requiredHash(flags, "pool")
	if err != nil {
		return ledger.Request{}, 0, 0, err
	}
	owner, err := requiredHash(flags, "owner")
	if err != nil {
		return ledger.Request{}, 0, 0, err
	}
	lower, _ := flags.GetInt32("lower")
	upper, _ := flags.GetInt32("upper")
	return ledger.Request{Pool: pool, Owner: owner}, lower, upper, nil
}

func requiredHash(flags *pflag.FlagSet, name string) (common.Hash, error) {
	h, err := optionalHash(flags, name)
	if err != nil {
		return common.Hash{}, err
	}
	if h == (common.Hash{}) {
		return common.Hash{}, fmt.Errorf("%s is required", name)
	}
	return h, nil
}

func optionalHash(flags *pflag.FlagSet, name string) (common.Hash, error) {
	raw, _ := flags.GetString(name)
	h, err := journal.ParseHash(raw)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%s: %w", name, err)
	}
	return h, nil
}

func optionalU128(flags *pflag.FlagSet, name string) (uint128.Uint128, error) {
	raw, _ := flags.GetString(name)
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uint128.Zero, nil
	}
	v, err := uint128.FromString(raw)
	if err != nil {
		return uint128.Zero, fmt.Errorf("%s: %w", name, err)
	}
	return v, nil
}
