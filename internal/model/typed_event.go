package model

import "encoding/json"

// TypedEvent is an engine event enriched with pool metadata.
type TypedEvent struct {
	Sequence  uint64      `json:"sequence"`
	Pool      string      `json:"pool"`
	EventName string      `json:"event_name"`
	Timestamp uint64      `json:"timestamp"`
	Decoded   interface{} `json:"decoded"`
	PoolMeta  PoolMeta    `json:"pool_meta"`
}

// TypedEventRecord is the JSON representation read back from an event log.
type TypedEventRecord struct {
	Sequence  uint64          `json:"sequence"`
	Pool      string          `json:"pool"`
	EventName string          `json:"event_name"`
	Timestamp uint64          `json:"timestamp"`
	Decoded   json.RawMessage `json:"decoded"`
	PoolMeta  PoolMeta        `json:"pool_meta"`
}

// OperationRecord is one line of an operation journal.
type OperationRecord struct {
	Sequence    uint64 `json:"sequence"`
	Pool        string `json:"pool"`
	Owner       string `json:"owner,omitempty"`
	Token0      string `json:"token0,omitempty"`
	Token1      string `json:"token1,omitempty"`
	Fee         uint32 `json:"fee,omitempty"`
	TickSpacing uint16 `json:"tick_spacing,omitempty"`
	Instruction string `json:"instruction"`
}

// OperationFailure records a journal operation that was rejected during
// replay. Code is set when the rejection carries an engine error kind.
type OperationFailure struct {
	Sequence uint64  `json:"sequence"`
	Pool     string  `json:"pool"`
	Kind     string  `json:"kind"`
	Code     *uint32 `json:"code,omitempty"`
	Error    string  `json:"error"`
}
