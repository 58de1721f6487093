package aggregate

import (
	"math/big"
	"time"
)

const ratioScale = 18

var q64 = new(big.Int).Lsh(big.NewInt(1), 64)

// virtualReserves returns the token amounts the active liquidity would hold
// if it were spread over the whole curve at sqrtPriceX64: L/√P and L·√P.
func virtualReserves(liquidity, sqrtPriceX64 *big.Int) (*big.Int, *big.Int) {
	if liquidity == nil || sqrtPriceX64 == nil || liquidity.Sign() == 0 || sqrtPriceX64.Sign() == 0 {
		return nil, nil
	}
	reserve0 := new(big.Int).Mul(liquidity, q64)
	reserve0.Quo(reserve0, sqrtPriceX64)
	reserve1 := new(big.Int).Mul(liquidity, sqrtPriceX64)
	reserve1.Quo(reserve1, q64)
	return reserve0, reserve1
}

func optionalString(value *big.Int) *string {
	if value == nil {
		return nil
	}
	s := value.String()
	return &s
}

func computeFeeRates(fee0 *big.Int, fee1 *big.Int, reserve0 *big.Int, reserve1 *big.Int) (*string, *string) {
	var feeRate0 *string
	var feeRate1 *string

	if rate := computeRateFromInt(fee0, reserve0); rate != "" {
		feeRate0 = &rate
	}
	if rate := computeRateFromInt(fee1, reserve1); rate != "" {
		feeRate1 = &rate
	}
	return feeRate0, feeRate1
}

func computeRateFromInt(fee *big.Int, reserve *big.Int) string {
	if fee == nil || fee.Sign() == 0 || reserve == nil || reserve.Sign() == 0 {
		return ""
	}
	rat := new(big.Rat).SetFrac(fee, reserve)
	return rat.FloatString(ratioScale)
}

// computeAPR annualizes the fee rate of a window. Windows with fees in both
// tokens have no single-token rate and report nil.
func computeAPR(feeRate0 *string, feeRate1 *string, windowSeconds uint64) *string {
	if windowSeconds == 0 {
		return nil
	}
	var selected string
	if feeRate0 != nil && feeRate1 == nil {
		selected = *feeRate0
	} else if feeRate1 != nil && feeRate0 == nil {
		selected = *feeRate1
	} else {
		return nil
	}

	rat, ok := new(big.Rat).SetString(selected)
	if !ok {
		return nil
	}
	yearSeconds := big.NewRat(int64(365*24*time.Hour/time.Second), 1)
	window := big.NewRat(int64(windowSeconds), 1)
	apr := new(big.Rat).Mul(rat, yearSeconds)
	apr.Quo(apr, window)
	val := apr.FloatString(ratioScale)
	return &val
}
