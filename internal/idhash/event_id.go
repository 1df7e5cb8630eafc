package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeTradeEventID computes a deterministic event_id using SHA256.
// Formula: SHA256(candidate_id|seq|trade_type|trade_date_unix)
// Returns hex-encoded hash (64 characters).
func ComputeTradeEventID(
	candidateID string,
	seq int,
	tradeType string,
	tradeDate int64,
) string {
	data := fmt.Sprintf("%s|%d|%s|%d",
		candidateID,
		seq,
		tradeType,
		tradeDate,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeRunID computes a deterministic run_id using SHA256.
// Formula: SHA256(strategy_id|started_at_ms)
func ComputeRunID(strategyID string, startedAtMs int64) string {
	data := fmt.Sprintf("%s|%d", strategyID, startedAtMs)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
