package model

import (
	"encoding/json"
	"testing"
)

func TestSwapEventDataJSONStringFields(t *testing.T) {
	payload := SwapEventData{
		Sender:     "0x1111111111111111111111111111111111111111",
		To:         "0x2222222222222222222222222222222222222222",
		Amount0In:  "12345678901234567890",
		Amount1In:  "0",
		Amount0Out: "0",
		Amount1Out: "115792089237316195423570985008687907853269984665640564039457584007913129639935",
	}

	data, err := json.Marshal(Event{Seq: 3, EventName: EventSwap, Decoded: payload})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var record EventRecord
	if err := json.Unmarshal(data, &record); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if record.Seq != 3 || record.EventName != EventSwap {
		t.Fatalf("record mismatch: %+v", record)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(record.Decoded, &decoded); err != nil {
		t.Fatalf("unmarshal decoded failed: %v", err)
	}
	for _, key := range []string{"amount0_in", "amount1_in", "amount0_out", "amount1_out"} {
		if _, ok := decoded[key].(string); !ok {
			t.Fatalf("%s should be string", key)
		}
	}
}

func TestParseCurveKind(t *testing.T) {
	cases := map[string]CurveKind{
		"stable":   CurveStable,
		"S":        CurveStable,
		"volatile": CurveVolatile,
		"":         CurveVolatile,
	}
	for input, want := range cases {
		got, err := ParseCurveKind(input)
		if err != nil {
			t.Fatalf("parse %q: %v", input, err)
		}
		if got != want {
			t.Fatalf("parse %q: got %s want %s", input, got, want)
		}
	}
	if _, err := ParseCurveKind("concentrated"); err == nil {
		t.Fatalf("expected error for unknown curve")
	}
}
