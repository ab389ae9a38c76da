package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// ComputeRunID computes a deterministic harvest run id using SHA256.
// Formula: SHA256(start_date|end_date|endpoint_host)
// Returns hex-encoded hash (64 characters). Two runs over the same date range
// against the same host share an id, so re-runs upsert the same manifest rows.
func ComputeRunID(start, end time.Time, endpointHost string) string {
	data := fmt.Sprintf("%s|%s|%s",
		start.UTC().Format("2006-01-02"),
		end.UTC().Format("2006-01-02"),
		endpointHost,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
