package domain

import "time"

// Shard states recorded in the harvest manifest.
const (
	ShardStateWritten = "written" // shard emitted successfully
	ShardStateEmpty   = "empty"   // day had no swaps, no shard emitted
	ShardStatePartial = "partial" // retries exhausted mid-day, shard holds a prefix
	ShardStateFailed  = "failed"  // nothing usable was written
	ShardStateSkipped = "skipped" // already written by an earlier run
)

// ShardManifest is the per-day ledger entry for a harvest run.
type ShardManifest struct {
	Day       time.Time // midnight UTC
	RunID     string    // deterministic run id, see idhash.ComputeRunID
	State     string
	Records   int
	Pages     int
	Path      string // absolute shard path, empty for empty/failed days
	Digest    string // sha256 of the shard file, hex
	UpdatedAt int64  // unix seconds
}
