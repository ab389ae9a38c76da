package clickhouse

import (
	"context"
	"fmt"
	"time"

	"uniswap-econ-lab/internal/domain"
	"uniswap-econ-lab/internal/storage"
)

// SwapArchiveStore implements storage.SwapArchiveStore using ClickHouse.
// Big numerics (amounts, sqrtPriceX96) stay String end to end so the archive
// never loses precision relative to the CSV shards.
type SwapArchiveStore struct {
	conn *Conn
}

// NewSwapArchiveStore creates a new SwapArchiveStore.
func NewSwapArchiveStore(conn *Conn) *SwapArchiveStore {
	return &SwapArchiveStore{conn: conn}
}

// Compile-time interface check.
var _ storage.SwapArchiveStore = (*SwapArchiveStore)(nil)

// InsertBulk appends records. Fails the entire batch on any duplicate swap id,
// existing or intra-batch; MergeTree does not enforce uniqueness so the check
// runs before the insert.
func (s *SwapArchiveStore) InsertBulk(ctx context.Context, records []*domain.SwapRecord) error {
	if len(records) == 0 {
		return nil
	}

	ids := make([]string, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for _, rec := range records {
		if rec == nil || rec.ID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := seen[rec.ID]; exists {
			return storage.ErrDuplicateKey
		}
		seen[rec.ID] = struct{}{}
		ids = append(ids, rec.ID)
	}

	existing, err := s.anyExist(ctx, ids)
	if err != nil {
		return fmt.Errorf("check existing ids: %w", err)
	}
	if existing {
		return storage.ErrDuplicateKey
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO swap_archive (
			swap_id, tx_id, block_number, timestamp, pool_id,
			token0_id, token0_symbol, token0_name, token0_decimals,
			token1_id, token1_symbol, token1_name, token1_decimals,
			sender, recipient, origin,
			amount0, amount1, amount_usd, sqrt_price_x96, tick, log_index
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, rec := range records {
		err = batch.Append(
			rec.ID, rec.TxID, rec.BlockNumber, rec.Timestamp, rec.PoolID,
			rec.Token0.ID, rec.Token0.Symbol, rec.Token0.Name, rec.Token0.Decimals,
			rec.Token1.ID, rec.Token1.Symbol, rec.Token1.Name, rec.Token1.Decimals,
			rec.Sender, rec.Recipient, rec.Origin,
			rec.Amount0, rec.Amount1, rec.AmountUSD, rec.SqrtPriceX96, rec.Tick, rec.LogIndex,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByPool retrieves swaps for one pool within [from, to], ordered by id ASC.
func (s *SwapArchiveStore) GetByPool(ctx context.Context, poolID string, from, to int64) ([]*domain.SwapRecord, error) {
	query := `
		SELECT swap_id, tx_id, block_number, timestamp, pool_id,
		       token0_id, token0_symbol, token0_name, token0_decimals,
		       token1_id, token1_symbol, token1_name, token1_decimals,
		       sender, recipient, origin,
		       amount0, amount1, amount_usd, sqrt_price_x96, tick, log_index
		FROM swap_archive
		WHERE pool_id = ? AND timestamp >= ? AND timestamp <= ?
		ORDER BY swap_id ASC
	`

	rows, err := s.conn.Query(ctx, query, poolID, from, to)
	if err != nil {
		return nil, fmt.Errorf("query by pool: %w", err)
	}
	defer rows.Close()

	var out []*domain.SwapRecord
	for rows.Next() {
		var rec domain.SwapRecord
		err := rows.Scan(
			&rec.ID, &rec.TxID, &rec.BlockNumber, &rec.Timestamp, &rec.PoolID,
			&rec.Token0.ID, &rec.Token0.Symbol, &rec.Token0.Name, &rec.Token0.Decimals,
			&rec.Token1.ID, &rec.Token1.Symbol, &rec.Token1.Name, &rec.Token1.Decimals,
			&rec.Sender, &rec.Recipient, &rec.Origin,
			&rec.Amount0, &rec.Amount1, &rec.AmountUSD, &rec.SqrtPriceX96, &rec.Tick, &rec.LogIndex,
		)
		if err != nil {
			return nil, fmt.Errorf("scan swap row: %w", err)
		}
		out = append(out, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate swap rows: %w", err)
	}

	return out, nil
}

// CountByDay counts archived swaps in the UTC day containing the given time.
func (s *SwapArchiveStore) CountByDay(ctx context.Context, day time.Time) (int64, error) {
	window := domain.NewDayWindow(day)

	query := `
		SELECT count() FROM swap_archive
		WHERE timestamp >= ? AND timestamp <= ?
	`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, window.Start, window.End).Scan(&count); err != nil {
		return 0, fmt.Errorf("count by day: %w", err)
	}

	return int64(count), nil
}

// anyExist reports whether any of the ids is already archived.
func (s *SwapArchiveStore) anyExist(ctx context.Context, ids []string) (bool, error) {
	query := `SELECT count() FROM swap_archive WHERE swap_id IN (?)`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, ids).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}
