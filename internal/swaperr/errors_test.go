package swaperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestCodeUnwrapsContext(t *testing.T) {
	err := fmt.Errorf("tick 7 not aligned: %w", ErrInvalidTick)
	code, ok := Code(err)
	if !ok || code != 2 {
		t.Fatalf("code mismatch: %d %v", code, ok)
	}
}

func TestCodeUnknown(t *testing.T) {
	if _, ok := Code(errors.New("disk full")); ok {
		t.Fatalf("unexpected code for foreign error")
	}
	if _, ok := Code(nil); ok {
		t.Fatalf("unexpected code for nil")
	}
}
