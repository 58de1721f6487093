package fixedpoint

import (
	"errors"
	"testing"

	"lukechampine.com/uint128"

	"swapv3/internal/swaperr"
)

func TestInt128AddAndNeg(t *testing.T) {
	a := Int128FromInt64(-500)
	b := Int128FromInt64(200)

	sum, err := a.Add(b)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if sum.String() != "-300" || !sum.IsNeg() {
		t.Fatalf("sum mismatch: %s", sum)
	}
	if !sum.Abs().Equals64(300) {
		t.Fatalf("abs mismatch: %s", sum.Abs())
	}
	if back, _ := sum.Add(sum.Neg()); !back.IsZero() {
		t.Fatalf("x + -x = %s", back)
	}
}

func TestInt128Overflow(t *testing.T) {
	max, err := NewInt128(maxInt128)
	if err != nil {
		t.Fatalf("max: %v", err)
	}
	if _, err := max.Add(Int128FromInt64(1)); !errors.Is(err, swaperr.ErrOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
	if _, err := NewInt128(maxInt128.Add64(1)); !errors.Is(err, swaperr.ErrOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
	min, err := max.Neg().Add(Int128FromInt64(-1))
	if err != nil {
		t.Fatalf("min: %v", err)
	}
	if _, err := min.Add(Int128FromInt64(-1)); !errors.Is(err, swaperr.ErrOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
	if got := min.Neg(); got != min {
		t.Fatalf("negating min must wrap, got %s", got)
	}
}

func TestInt128Bytes(t *testing.T) {
	buf := make([]byte, 16)
	x := Int128FromInt64(-123456789)
	x.PutBytes(buf)
	if got := Int128FromBytes(buf); got != x {
		t.Fatalf("bytes mismatch: %s != %s", got, x)
	}
	if buf[15] != 0xff {
		t.Fatalf("expected sign byte, got %x", buf[15])
	}
}

func TestAddDelta(t *testing.T) {
	got, err := AddDelta(uint128.From64(1000), Int128FromInt64(-400))
	if err != nil || !got.Equals64(600) {
		t.Fatalf("got %s, %v", got, err)
	}
	if _, err := AddDelta(uint128.From64(1000), Int128FromInt64(-1001)); !errors.Is(err, swaperr.ErrOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
}
