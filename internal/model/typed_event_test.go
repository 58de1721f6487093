package model

import (
	"encoding/json"
	"testing"
)

func TestSwapEventDataJSONStringFields(t *testing.T) {
	payload := SwapEventData{
		Sender:     "0x1111111111111111111111111111111111111111111111111111111111111111",
		ZeroForOne: true,
		AmountIn:   "12345678901234567890",
		AmountOut:  "42",
		FeeAmount:  "7",
		SqrtPrice:  "18446744073709551616",
		Liquidity:  "5000000000000000000",
		Tick:       10,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	for _, key := range []string{"amount_in", "amount_out", "fee_amount", "sqrt_price_x64", "liquidity"} {
		if _, ok := decoded[key].(string); !ok {
			t.Fatalf("%s should be string", key)
		}
	}
}

func TestTypedEventRecordKeepsRawPayload(t *testing.T) {
	event := TypedEvent{
		Sequence:  3,
		Pool:      "0xabc",
		EventName: "Collect",
		Decoded:   CollectEventData{Owner: "0x01", TickLower: -10, TickUpper: 10, Amount0: "5", Amount1: "0"},
	}
	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var record TypedEventRecord
	if err := json.Unmarshal(data, &record); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	var collect CollectEventData
	if err := json.Unmarshal(record.Decoded, &collect); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if record.Sequence != 3 || collect.TickLower != -10 || collect.Amount0 != "5" {
		t.Fatalf("unexpected record: %+v %+v", record, collect)
	}
}
