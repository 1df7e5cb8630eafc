package idhash

import (
	"testing"
)

func TestComputeTradeEventID_Determinism(t *testing.T) {
	candidateID := "candidate123"
	tradeDate := int64(1710460800)

	// Compute multiple times
	results := make([]string, 10)
	for i := 0; i < 10; i++ {
		results[i] = ComputeTradeEventID(candidateID, 2, "SELL", tradeDate)
	}

	// All should be identical
	for i := 1; i < len(results); i++ {
		if results[i] != results[0] {
			t.Errorf("Determinism failed: results[%d]=%s != results[0]=%s", i, results[i], results[0])
		}
	}

	if len(results[0]) != 64 {
		t.Errorf("ComputeTradeEventID() length = %d, want 64", len(results[0]))
	}
}

func TestComputeTradeEventID_DifferentInputs(t *testing.T) {
	base := ComputeTradeEventID("candidate", 0, "BUY", 1000)

	if base == ComputeTradeEventID("other_candidate", 0, "BUY", 1000) {
		t.Error("Different candidate should produce different hash")
	}
	if base == ComputeTradeEventID("candidate", 1, "BUY", 1000) {
		t.Error("Different sequence should produce different hash")
	}
	if base == ComputeTradeEventID("candidate", 0, "SELL", 1000) {
		t.Error("Different trade type should produce different hash")
	}
	if base == ComputeTradeEventID("candidate", 0, "BUY", 2000) {
		t.Error("Different trade date should produce different hash")
	}
}

func TestComputeRunID(t *testing.T) {
	a := ComputeRunID("BREAKOUT_LADDER", 1000)
	b := ComputeRunID("BREAKOUT_LADDER", 2000)

	if a == b {
		t.Error("Different start time should produce different hash")
	}
	if a != ComputeRunID("BREAKOUT_LADDER", 1000) {
		t.Error("ComputeRunID() not deterministic")
	}
}
