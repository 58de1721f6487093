package journal

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"swapv3/internal/instruction"
	"swapv3/internal/ledger"
	"swapv3/internal/model"
)

// ParseHash converts a 0x-prefixed 32-byte hex id into a common.Hash.
// Shorter values are left-padded.
func ParseHash(input string) (common.Hash, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return common.Hash{}, nil
	}
	data, err := hexutil.Decode(input)
	if err != nil {
		return common.Hash{}, fmt.Errorf("invalid id %q: %w", input, err)
	}
	if len(data) > common.HashLength {
		return common.Hash{}, fmt.Errorf("invalid id length: %s", input)
	}
	return common.BytesToHash(data), nil
}

// BuildRequest turns a journal record into a ledger request.
func BuildRequest(op model.OperationRecord) (ledger.Request, error) {
	ix, err := instruction.DecodeHex(op.Instruction)
	if err != nil {
		return ledger.Request{}, err
	}
	req := ledger.Request{Instruction: ix}
	if req.Pool, err = ParseHash(op.Pool); err != nil {
		return ledger.Request{}, err
	}
	if req.Owner, err = ParseHash(op.Owner); err != nil {
		return ledger.Request{}, err
	}
	if ix.Kind() == instruction.KindInitializePool {
		if req.Params.Token0, err = ParseHash(op.Token0); err != nil {
			return ledger.Request{}, err
		}
		if req.Params.Token1, err = ParseHash(op.Token1); err != nil {
			return ledger.Request{}, err
		}
		req.Params.FeeBps = op.Fee
		req.Params.TickSpacing = op.TickSpacing
	}
	return req, nil
}

// NewOperationRecord encodes a request as a journal record.
func NewOperationRecord(seq uint64, req ledger.Request) (model.OperationRecord, error) {
	envelope, err := instruction.EncodeHex(req.Instruction)
	if err != nil {
		return model.OperationRecord{}, err
	}
	rec := model.OperationRecord{
		Sequence:    seq,
		Pool:        req.Pool.Hex(),
		Instruction: envelope,
	}
	if req.Owner != (common.Hash{}) {
		rec.Owner = req.Owner.Hex()
	}
	if req.Instruction.Kind() == instruction.KindInitializePool {
		p := req.Params
		rec.Pool = ledger.PoolID(p.Token0, p.Token1, p.FeeBps, p.TickSpacing).Hex()
		rec.Token0 = p.Token0.Hex()
		rec.Token1 = p.Token1.Hex()
		rec.Fee = p.FeeBps
		rec.TickSpacing = p.TickSpacing
	}
	return rec, nil
}
