package fixedpoint

import (
	"errors"
	"math/big"
	"math/rand"
	"testing"

	"lukechampine.com/uint128"

	"swapv3/internal/swaperr"
)

func randU128(r *rand.Rand) uint128.Uint128 {
	switch r.Intn(3) {
	case 0:
		return uint128.From64(r.Uint64())
	case 1:
		return uint128.New(r.Uint64(), r.Uint64()>>uint(r.Intn(64)))
	default:
		return uint128.New(r.Uint64(), r.Uint64())
	}
}

func TestMulDivFloorBounds(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 2000; i++ {
		a, b, c := randU128(r), randU128(r), randU128(r)
		if c.IsZero() {
			continue
		}
		prod := new(big.Int).Mul(a.Big(), b.Big())
		want := new(big.Int).Quo(prod, c.Big())

		got, err := MulDiv(a, b, c)
		if want.BitLen() > 128 {
			if !errors.Is(err, swaperr.ErrOverflow) {
				t.Fatalf("expected overflow for %s*%s/%s, got %v", a, b, c, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("mul div %s*%s/%s: %v", a, b, c, err)
		}

		lower := new(big.Int).Mul(got.Big(), c.Big())
		upper := new(big.Int).Mul(new(big.Int).Add(got.Big(), big.NewInt(1)), c.Big())
		if lower.Cmp(prod) > 0 || prod.Cmp(upper) >= 0 {
			t.Fatalf("floor bounds violated for %s*%s/%s = %s", a, b, c, got)
		}
	}
}

func TestMulDivByZero(t *testing.T) {
	if _, err := MulDiv(uint128.From64(5), uint128.From64(7), uint128.Zero); !errors.Is(err, swaperr.ErrOverflow) {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
	if _, err := MulDivRoundingUp(uint128.From64(5), uint128.From64(7), uint128.Zero); !errors.Is(err, swaperr.ErrOverflow) {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
}

func TestMulDivFullWidthProduct(t *testing.T) {
	got, err := MulDiv(uint128.Max, uint128.Max, uint128.Max)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equals(uint128.Max) {
		t.Fatalf("got %s", got)
	}
}

func TestMulDivRoundingUp(t *testing.T) {
	got, err := MulDivRoundingUp(uint128.From64(10), uint128.From64(10), uint128.From64(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equals64(34) {
		t.Fatalf("got %s want 34", got)
	}
	got, err = MulDivRoundingUp(uint128.From64(10), uint128.From64(9), uint128.From64(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equals64(30) {
		t.Fatalf("got %s want 30", got)
	}
}

func TestCheckedArithmetic(t *testing.T) {
	if _, err := CheckedAdd(uint128.Max, uint128.From64(1)); !errors.Is(err, swaperr.ErrOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
	if _, err := CheckedSub(uint128.From64(1), uint128.From64(2)); !errors.Is(err, swaperr.ErrOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
}
