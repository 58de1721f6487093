package model

// PoolMeta captures immutable pool metadata with the live price fields.
type PoolMeta struct {
	Token0      string     `json:"token0"`
	Token1      string     `json:"token1"`
	Fee         uint32     `json:"fee"`
	TickSpacing uint16     `json:"tick_spacing"`
	Liquidity   string     `json:"liquidity,omitempty"`
	Slot0       *PoolSlot0 `json:"slot0,omitempty"`
}

// PoolSlot0 includes select price fields.
type PoolSlot0 struct {
	SqrtPriceX64 string `json:"sqrt_price_x64"`
	Tick         int32  `json:"tick"`
}

// MetaOf snapshots a pool record for event enrichment.
func MetaOf(p Pool) PoolMeta {
	return PoolMeta{
		Token0:      p.Token0.Hex(),
		Token1:      p.Token1.Hex(),
		Fee:         p.Fee,
		TickSpacing: p.TickSpacing,
		Liquidity:   p.ActiveLiquidity.String(),
		Slot0: &PoolSlot0{
			SqrtPriceX64: p.SqrtPrice.String(),
			Tick:         p.CurrentTick,
		},
	}
}
