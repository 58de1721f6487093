package ledger

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/zeebo/blake3"
)

// Record key prefixes.
const (
	prefixPool     byte = 'p'
	prefixTick     byte = 't'
	prefixPosition byte = 'o'
	keySequence         = "s"
)

// PoolID derives a pool's id from its pair and parameters.
func PoolID(token0, token1 common.Hash, feeBps uint32, tickSpacing uint16) common.Hash {
	h := blake3.New()
	h.Write(token0.Bytes())
	h.Write(token1.Bytes())

	var params [6]byte
	binary.BigEndian.PutUint32(params[:4], feeBps)
	binary.BigEndian.PutUint16(params[4:], tickSpacing)
	h.Write(params[:])

	var id common.Hash
	h.Digest().Read(id[:])
	return id
}

// PositionID derives the storage id of a position within its pool.
func PositionID(owner common.Hash, tickLower, tickUpper int32) common.Hash {
	h := blake3.New()
	h.Write(owner.Bytes())

	var ticks [8]byte
	binary.BigEndian.PutUint32(ticks[:4], uint32(tickLower))
	binary.BigEndian.PutUint32(ticks[4:], uint32(tickUpper))
	h.Write(ticks[:])

	var id common.Hash
	h.Digest().Read(id[:])
	return id
}

func PoolKey(pool common.Hash) []byte {
	return append([]byte{prefixPool}, pool.Bytes()...)
}

func TickPrefix(pool common.Hash) []byte {
	return append([]byte{prefixTick}, pool.Bytes()...)
}

// TickKey orders ticks numerically by flipping the sign bit of the index.
func TickKey(pool common.Hash, tick int32) []byte {
	key := TickPrefix(pool)
	return binary.BigEndian.AppendUint32(key, uint32(tick)^0x80000000)
}

func PositionPrefix(pool common.Hash) []byte {
	return append([]byte{prefixPosition}, pool.Bytes()...)
}

func PositionKey(pool, owner common.Hash, tickLower, tickUpper int32) []byte {
	return append(PositionPrefix(pool), PositionID(owner, tickLower, tickUpper).Bytes()...)
}
