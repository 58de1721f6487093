package model

// InitializeEventData is emitted when a pool is created.
type InitializeEventData struct {
	Token0      string `json:"token0"`
	Token1      string `json:"token1"`
	Fee         uint32 `json:"fee"`
	TickSpacing uint16 `json:"tick_spacing"`
	SqrtPrice   string `json:"sqrt_price_x64"`
	Tick        int32  `json:"tick"`
}

// SwapEventData is emitted for every executed swap.
type SwapEventData struct {
	Sender     string `json:"sender"`
	ZeroForOne bool   `json:"zero_for_one"`
	AmountIn   string `json:"amount_in"`
	AmountOut  string `json:"amount_out"`
	FeeAmount  string `json:"fee_amount"`
	SqrtPrice  string `json:"sqrt_price_x64"`
	Liquidity  string `json:"liquidity"`
	Tick       int32  `json:"tick"`
	Crossed    int    `json:"ticks_crossed"`
	State      string `json:"state"`
}

// MintEventData is emitted when liquidity is added to a range.
type MintEventData struct {
	Owner     string `json:"owner"`
	TickLower int32  `json:"tick_lower"`
	TickUpper int32  `json:"tick_upper"`
	Amount    string `json:"amount"`
	Amount0   string `json:"amount0"`
	Amount1   string `json:"amount1"`
}

// BurnEventData is emitted when liquidity is removed from a range.
type BurnEventData struct {
	Owner     string `json:"owner"`
	TickLower int32  `json:"tick_lower"`
	TickUpper int32  `json:"tick_upper"`
	Amount    string `json:"amount"`
	Amount0   string `json:"amount0"`
	Amount1   string `json:"amount1"`
}

// CollectEventData is emitted when owed fees are paid out.
type CollectEventData struct {
	Owner     string `json:"owner"`
	TickLower int32  `json:"tick_lower"`
	TickUpper int32  `json:"tick_upper"`
	Amount0   string `json:"amount0"`
	Amount1   string `json:"amount1"`
}
