// Package idhash computes deterministic identifiers for persisted records.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeRunID computes a deterministic run_id using SHA256.
// Formula: SHA256(config_name|symbol|initial_cash|sample_count|first_ts|last_ts)
// Returns hex-encoded hash (64 characters).
func ComputeRunID(
	configName string,
	symbol string,
	initialCash float64,
	sampleCount int,
	firstTsMs int64,
	lastTsMs int64,
) string {
	data := fmt.Sprintf("%s|%s|%.10f|%d|%d|%d",
		configName,
		symbol,
		initialCash,
		sampleCount,
		firstTsMs,
		lastTsMs,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
