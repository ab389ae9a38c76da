package clickhouse

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uniswap-econ-lab/internal/domain"
	"uniswap-econ-lab/internal/storage"
)

func sampleSwap(id string, ts int64) *domain.SwapRecord {
	return &domain.SwapRecord{
		ID:          id,
		TxID:        "0xtx" + id,
		BlockNumber: "18500000",
		Timestamp:   ts,
		PoolID:      "0xpool",
		Token0: domain.TokenDescriptor{
			ID: "0xtoken0", Symbol: "USDC", Name: "USD Coin", Decimals: "6",
		},
		Token1: domain.TokenDescriptor{
			ID: "0xtoken1", Symbol: "WETH", Name: "Wrapped Ether", Decimals: "18",
		},
		Sender:       "0xsender",
		Recipient:    "0xrecipient",
		Origin:       "0xorigin",
		Amount0:      "-1500.25",
		Amount1:      "0.75",
		AmountUSD:    "1500.25",
		SqrtPriceX96: "1829744519839156249741929393",
		Tick:         "201450",
		LogIndex:     "42",
	}
}

func TestSwapArchiveStore_InsertAndGetByPool(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSwapArchiveStore(conn)
	ctx := context.Background()

	records := []*domain.SwapRecord{
		sampleSwap("0xaaa#3", 1700000300),
		sampleSwap("0xaaa#1", 1700000100),
		sampleSwap("0xaaa#2", 1700000200),
	}
	require.NoError(t, store.InsertBulk(ctx, records))

	got, err := store.GetByPool(ctx, "0xpool", 1700000000, 1700001000)
	require.NoError(t, err)
	require.Len(t, got, 3)

	// Ordered by swap id ASC.
	assert.Equal(t, "0xaaa#1", got[0].ID)
	assert.Equal(t, "0xaaa#2", got[1].ID)
	assert.Equal(t, "0xaaa#3", got[2].ID)

	// Big numerics survive the round trip untouched.
	assert.Equal(t, "1829744519839156249741929393", got[0].SqrtPriceX96)
	assert.Equal(t, "USDC", got[0].Token0.Symbol)
}

func TestSwapArchiveStore_GetByPool_TimeBounds(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSwapArchiveStore(conn)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, []*domain.SwapRecord{
		sampleSwap("0xbbb#1", 1700000100),
		sampleSwap("0xbbb#2", 1700000200),
	}))

	got, err := store.GetByPool(ctx, "0xpool", 1700000150, 1700000250)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "0xbbb#2", got[0].ID)

	got, err = store.GetByPool(ctx, "0xother", 0, 2000000000)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSwapArchiveStore_DuplicateRejected(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSwapArchiveStore(conn)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, []*domain.SwapRecord{sampleSwap("0xccc#1", 1700000100)}))

	err := store.InsertBulk(ctx, []*domain.SwapRecord{sampleSwap("0xccc#1", 1700000100)})
	assert.True(t, errors.Is(err, storage.ErrDuplicateKey))

	// Intra-batch duplicate fails before anything is written.
	err = store.InsertBulk(ctx, []*domain.SwapRecord{
		sampleSwap("0xccc#2", 1700000200),
		sampleSwap("0xccc#2", 1700000200),
	})
	assert.True(t, errors.Is(err, storage.ErrDuplicateKey))

	got, err := store.GetByPool(ctx, "0xpool", 0, 2000000000)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestSwapArchiveStore_CountByDay(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSwapArchiveStore(conn)
	ctx := context.Background()

	day := time.Date(2023, 11, 14, 0, 0, 0, 0, time.UTC)
	start := day.Unix()

	var records []*domain.SwapRecord
	for i := 0; i < 5; i++ {
		records = append(records, sampleSwap(fmt.Sprintf("0xddd#%d", i), start+int64(i*3600)))
	}
	// Last second of the day is in, first second of the next day is out.
	records = append(records,
		sampleSwap("0xddd#last", start+86399),
		sampleSwap("0xddd#next", start+86400),
	)
	require.NoError(t, store.InsertBulk(ctx, records))

	count, err := store.CountByDay(ctx, day.Add(12*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(6), count)
}

func TestSwapArchiveStore_InsertEmpty(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSwapArchiveStore(conn)
	assert.NoError(t, store.InsertBulk(context.Background(), nil))
}
