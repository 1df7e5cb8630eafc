package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// ComputeCandidateID computes a deterministic candidate_id using SHA256.
// Formula: SHA256(stock_code|breakthrough_date) with the date as YYYY-MM-DD.
// Returns hex-encoded hash (64 characters).
func ComputeCandidateID(stockCode string, breakthroughDate time.Time) string {
	data := fmt.Sprintf("%s|%s",
		stockCode,
		breakthroughDate.Format("2006-01-02"),
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
