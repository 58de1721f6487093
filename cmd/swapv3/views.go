package main

import (
	"swapv3/internal/engine"
	"swapv3/internal/ledger"
	"swapv3/internal/model"
)

type poolView struct {
	ID               string `json:"id"`
	Token0           string `json:"token0"`
	Token1           string `json:"token1"`
	Fee              uint32 `json:"fee_bps"`
	TickSpacing      uint16 `json:"tick_spacing"`
	SqrtPrice        string `json:"sqrt_price_x64"`
	CurrentTick      int32  `json:"tick"`
	ActiveLiquidity  string `json:"liquidity"`
	FeeGrowthGlobal0 string `json:"fee_growth_global0_x64"`
	FeeGrowthGlobal1 string `json:"fee_growth_global1_x64"`
	TotalFee0        string `json:"total_fee0"`
	TotalFee1        string `json:"total_fee1"`
}

type tickView struct {
	Index             int32  `json:"tick"`
	LiquidityNet      string `json:"liquidity_net"`
	LiquidityGross    string `json:"liquidity_gross"`
	FeeGrowthOutside0 string `json:"fee_growth_outside0_x64"`
	FeeGrowthOutside1 string `json:"fee_growth_outside1_x64"`
}

type positionView struct {
	Owner         string `json:"owner"`
	TickLower     int32  `json:"tick_lower"`
	TickUpper     int32  `json:"tick_upper"`
	Liquidity     string `json:"liquidity"`
	TokensOwed0   string `json:"tokens_owed0"`
	TokensOwed1   string `json:"tokens_owed1"`
	CollectedFee0 string `json:"collected_fee0"`
	CollectedFee1 string `json:"collected_fee1"`
}

type resultView struct {
	Sequence uint64        `json:"sequence"`
	Kind     string        `json:"kind"`
	Pool     poolView      `json:"pool"`
	Position *positionView `json:"position,omitempty"`
	Amount0  string        `json:"amount0,omitempty"`
	Amount1  string        `json:"amount1,omitempty"`
	Swap     *swapView     `json:"swap,omitempty"`
}

type swapView struct {
	State        string `json:"state"`
	AmountIn     string `json:"amount_in"`
	AmountOut    string `json:"amount_out"`
	FeeAmount    string `json:"fee_amount"`
	TicksCrossed int    `json:"ticks_crossed"`
}

func viewPool(id string, p model.Pool) poolView {
	return poolView{
		ID:               id,
		Token0:           p.Token0.Hex(),
		Token1:           p.Token1.Hex(),
		Fee:              p.Fee,
		TickSpacing:      p.TickSpacing,
		SqrtPrice:        p.SqrtPrice.String(),
		CurrentTick:      p.CurrentTick,
		ActiveLiquidity:  p.ActiveLiquidity.String(),
		FeeGrowthGlobal0: p.FeeGrowthGlobal0.String(),
		FeeGrowthGlobal1: p.FeeGrowthGlobal1.String(),
		TotalFee0:        p.TotalFee0.String(),
		TotalFee1:        p.TotalFee1.String(),
	}
}

func viewTick(t model.Tick) tickView {
	return tickView{
		Index:             t.Index,
		LiquidityNet:      t.LiquidityNet.String(),
		LiquidityGross:    t.LiquidityGross.String(),
		FeeGrowthOutside0: t.FeeGrowthOutside0.String(),
		FeeGrowthOutside1: t.FeeGrowthOutside1.String(),
	}
}

func viewPosition(p model.Position) positionView {
	return positionView{
		Owner:         p.Owner.Hex(),
		TickLower:     p.TickLower,
		TickUpper:     p.TickUpper,
		Liquidity:     p.Liquidity.String(),
		TokensOwed0:   p.TokensOwed0.String(),
		TokensOwed1:   p.TokensOwed1.String(),
		CollectedFee0: p.CollectedFee0.String(),
		CollectedFee1: p.CollectedFee1.String(),
	}
}

func viewSwap(r engine.SwapResult) *swapView {
	return &swapView{
		State:        r.State.String(),
		AmountIn:     r.AmountIn.String(),
		AmountOut:    r.AmountOut.String(),
		FeeAmount:    r.FeeAmount.String(),
		TicksCrossed: r.TicksCrossed,
	}
}

func viewResult(res ledger.Result) resultView {
	return resultView{
		Sequence: res.Sequence,
		Kind:     res.Kind.String(),
		Pool:     viewPool(res.Pool.Hex(), res.State),
	}
}
