// Package shard writes per-day CSV artifacts with a fixed schema.
package shard

import (
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"uniswap-econ-lab/internal/domain"
)

// Header is the shard schema, in exact column order.
var Header = []string{
	"swap_id",
	"transaction",
	"block_number",
	"timestamp",
	"datetime_utc",
	"pool",
	"token0_id",
	"token0_symbol",
	"token0_name",
	"token0_decimals",
	"token1_id",
	"token1_symbol",
	"token1_name",
	"token1_decimals",
	"sender",
	"recipient",
	"origin",
	"amount0",
	"amount1",
	"amountUSD",
	"sqrtPriceX96",
	"tick",
	"logIndex",
}

// Filename returns the deterministic shard name for a UTC day.
func Filename(day domain.DayWindow) string {
	return fmt.Sprintf("uniswap_v3_swaps_%s.csv", day)
}

// Result describes a completed shard write.
type Result struct {
	Path    string
	Records int
	Digest  string // sha256 of the file content, hex
}

// Write emits records to path as a CSV shard. The shard is written to a
// temporary sibling and renamed into place, so a crash mid-write never leaves
// a truncated file at the final path. Missing fields become empty cells;
// numeric fields keep their upstream string form.
func Write(records []*domain.SwapRecord, path string) (*Result, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create shard directory: %w", err)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return nil, fmt.Errorf("create shard: %w", err)
	}

	digest := sha256.New()
	if err := writeCSV(io.MultiWriter(f, digest), records); err != nil {
		f.Close()
		os.Remove(tmp)
		return nil, err
	}

	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return nil, fmt.Errorf("close shard: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return nil, fmt.Errorf("rename shard into place: %w", err)
	}

	return &Result{
		Path:    path,
		Records: len(records),
		Digest:  hex.EncodeToString(digest.Sum(nil)),
	}, nil
}

// Digest computes the sha256 of an existing shard file.
func Digest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open shard: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash shard: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// writeCSV renders the header plus one row per record.
func writeCSV(w io.Writer, records []*domain.SwapRecord) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, rec := range records {
		if err := cw.Write(row(rec)); err != nil {
			return fmt.Errorf("write record %s: %w", rec.ID, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush shard: %w", err)
	}
	return nil
}

// row maps one record to the Header column order.
func row(rec *domain.SwapRecord) []string {
	return []string{
		rec.ID,
		rec.TxID,
		rec.BlockNumber,
		strconv.FormatInt(rec.Timestamp, 10),
		rec.DatetimeUTC(),
		rec.PoolID,
		rec.Token0.ID,
		rec.Token0.Symbol,
		rec.Token0.Name,
		rec.Token0.Decimals,
		rec.Token1.ID,
		rec.Token1.Symbol,
		rec.Token1.Name,
		rec.Token1.Decimals,
		rec.Sender,
		rec.Recipient,
		rec.Origin,
		rec.Amount0,
		rec.Amount1,
		rec.AmountUSD,
		rec.SqrtPriceX96,
		rec.Tick,
		rec.LogIndex,
	}
}
