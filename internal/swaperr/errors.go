// Package swaperr defines the error kinds returned by the pool engine.
package swaperr

import "errors"

var (
	// ErrInvalidInstruction reports a malformed operation envelope.
	ErrInvalidInstruction = errors.New("invalid instruction")
	// ErrOverflow reports a calculation that does not fit its result width.
	ErrOverflow = errors.New("calculation overflow")
	// ErrInvalidTick reports an out-of-bound, misaligned or inconsistent tick.
	ErrInvalidTick = errors.New("invalid tick index")
	// ErrInvalidPriceLimit reports a bad price or an unmet output bound.
	ErrInvalidPriceLimit = errors.New("invalid price limit")
)

var codes = []error{
	ErrInvalidInstruction,
	ErrOverflow,
	ErrInvalidTick,
	ErrInvalidPriceLimit,
}

// Code returns the numeric code of the error kind wrapped by err.
func Code(err error) (uint32, bool) {
	for i, kind := range codes {
		if errors.Is(err, kind) {
			return uint32(i), true
		}
	}
	return 0, false
}
