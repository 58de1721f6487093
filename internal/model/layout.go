package model

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"lukechampine.com/uint128"

	"swapv3/internal/fixedpoint"
)

// SchemaVersion is written to byte 0 of every record.
const SchemaVersion byte = 1

// ErrLayout reports a stored buffer that does not match its record schema.
var ErrLayout = errors.New("invalid record layout")

type writer struct {
	buf []byte
	off int
}

func newWriter(size int) *writer {
	w := &writer{buf: make([]byte, size)}
	w.buf[0] = SchemaVersion
	w.off = 1
	return w
}

func (w *writer) hash(h common.Hash) {
	copy(w.buf[w.off:], h[:])
	w.off += common.HashLength
}

func (w *writer) u16(v uint16) {
	binary.LittleEndian.PutUint16(w.buf[w.off:], v)
	w.off += 2
}

func (w *writer) u32(v uint32) {
	binary.LittleEndian.PutUint32(w.buf[w.off:], v)
	w.off += 4
}

func (w *writer) i32(v int32) { w.u32(uint32(v)) }

func (w *writer) u128(v uint128.Uint128) {
	v.PutBytes(w.buf[w.off:])
	w.off += 16
}

func (w *writer) i128(v fixedpoint.Int128) {
	v.PutBytes(w.buf[w.off:])
	w.off += 16
}

type reader struct {
	buf []byte
	off int
}

func newReader(kind string, data []byte, size int) (*reader, error) {
	if len(data) != size {
		return nil, fmt.Errorf("%s record is %d bytes, want %d: %w", kind, len(data), size, ErrLayout)
	}
	if data[0] != SchemaVersion {
		return nil, fmt.Errorf("%s record version %d: %w", kind, data[0], ErrLayout)
	}
	return &reader{buf: data, off: 1}, nil
}

func (r *reader) hash() common.Hash {
	h := common.BytesToHash(r.buf[r.off : r.off+common.HashLength])
	r.off += common.HashLength
	return h
}

func (r *reader) u16() uint16 {
	v := binary.LittleEndian.Uint16(r.buf[r.off:])
	r.off += 2
	return v
}

func (r *reader) u32() uint32 {
	v := binary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v
}

func (r *reader) i32() int32 { return int32(r.u32()) }

func (r *reader) u128() uint128.Uint128 {
	v := uint128.FromBytes(r.buf[r.off:])
	r.off += 16
	return v
}

func (r *reader) i128() fixedpoint.Int128 {
	v := fixedpoint.Int128FromBytes(r.buf[r.off:])
	r.off += 16
	return v
}

// reserved checks that the padding after the last field is zero.
func (r *reader) reserved(kind string) error {
	for i := r.off; i < len(r.buf); i++ {
		if r.buf[i] != 0 {
			return fmt.Errorf("%s record reserved byte %d is set: %w", kind, i, ErrLayout)
		}
	}
	return nil
}
