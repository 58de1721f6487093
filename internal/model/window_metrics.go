package model

import "time"

// PoolWindowMetrics summarizes the events of one pool over a time window.
// Amounts are decimal strings in raw token units.
type PoolWindowMetrics struct {
	Pool           string    `json:"pool"`
	WindowSizeSecs int64     `json:"window_size_seconds"`
	WindowStart    time.Time `json:"window_start"`
	WindowEnd      time.Time `json:"window_end"`
	FirstSequence  uint64    `json:"first_sequence"`
	LastSequence   uint64    `json:"last_sequence"`
	SwapCount      uint64    `json:"swap_count"`
	MintCount      uint64    `json:"mint_count"`
	BurnCount      uint64    `json:"burn_count"`
	CollectCount   uint64    `json:"collect_count"`
	Volume0        string    `json:"volume0"`
	Volume1        string    `json:"volume1"`
	Fee0           string    `json:"fee0"`
	Fee1           string    `json:"fee1"`
	// Virtual reserves of the active liquidity at the close of the window.
	Reserve0       *string `json:"reserve0,omitempty"`
	Reserve1       *string `json:"reserve1,omitempty"`
	FeeRate0       *string `json:"fee_rate0,omitempty"`
	FeeRate1       *string `json:"fee_rate1,omitempty"`
	APR            *string `json:"apr,omitempty"`
	CloseSqrtPrice string  `json:"close_sqrt_price_x64"`
	CloseTick      int32   `json:"close_tick"`
	CloseLiquidity string  `json:"close_liquidity"`
}
