package shard

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uniswap-econ-lab/internal/domain"
)

func testRecord(id string, ts int64) *domain.SwapRecord {
	return &domain.SwapRecord{
		ID:          id,
		TxID:        "0xtx",
		BlockNumber: "19000000",
		Timestamp:   ts,
		PoolID:      "0xpool",
		Token0: domain.TokenDescriptor{
			ID: "0xt0", Symbol: "USDC", Name: "USD Coin", Decimals: "6",
		},
		Token1: domain.TokenDescriptor{
			ID: "0xt1", Symbol: "WETH", Name: "Wrapped Ether", Decimals: "18",
		},
		Sender:       "0xsender",
		Recipient:    "0xrecipient",
		Origin:       "0xorigin",
		Amount0:      "-100.5",
		Amount1:      "0.03",
		AmountUSD:    "",
		SqrtPriceX96: "1407524963032762203706628966434571",
		Tick:         "195239",
		LogIndex:     "7",
	}
}

func TestFilename(t *testing.T) {
	day := domain.NewDayWindow(time.Date(2024, 3, 5, 13, 45, 0, 0, time.UTC))
	assert.Equal(t, "uniswap_v3_swaps_2024-03-05.csv", Filename(day))
}

func TestWrite_HeaderExact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "uniswap_v3_swaps_2024-03-05.csv")

	_, err := Write([]*domain.SwapRecord{testRecord("0xa#1", 1709600000)}, path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(string(data), "\n")
	want := "swap_id,transaction,block_number,timestamp,datetime_utc,pool," +
		"token0_id,token0_symbol,token0_name,token0_decimals," +
		"token1_id,token1_symbol,token1_name,token1_decimals," +
		"sender,recipient,origin,amount0,amount1,amountUSD,sqrtPriceX96,tick,logIndex"
	assert.Equal(t, want, lines[0], "header must match the shard schema byte-for-byte")
}

func TestWrite_RowsAndEmptyFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "uniswap_v3_swaps_2024-03-05.csv")

	res, err := Write([]*domain.SwapRecord{
		testRecord("0xa#1", 1709600000),
		testRecord("0xa#2", 1709600001),
	}, path)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Records)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 3, "header plus one line per record")

	// amountUSD may be empty upstream and must stay an empty cell.
	fields := strings.Split(lines[1], ",")
	require.Len(t, fields, len(Header))
	assert.Equal(t, "", fields[19], "amountUSD column")
	assert.Equal(t, "1709600000", fields[3], "timestamp column")
}

func TestWrite_Idempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "uniswap_v3_swaps_2024-03-05.csv")
	records := []*domain.SwapRecord{testRecord("0xa#1", 1709600000)}

	first, err := Write(records, path)
	require.NoError(t, err)

	second, err := Write(records, path)
	require.NoError(t, err)

	assert.Equal(t, first.Digest, second.Digest, "rewriting a shard must be byte-identical")

	onDisk, err := Digest(path)
	require.NoError(t, err)
	assert.Equal(t, first.Digest, onDisk)
}

func TestWrite_NoTempFileLeftBehind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "uniswap_v3_swaps_2024-03-05.csv")

	_, err := Write([]*domain.SwapRecord{testRecord("0xa#1", 1709600000)}, path)
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, filepath.Base(path), entries[0].Name())
}

func TestWrite_DatetimeDerived(t *testing.T) {
	path := filepath.Join(t.TempDir(), "uniswap_v3_swaps_2023-11-14.csv")

	_, err := Write([]*domain.SwapRecord{testRecord("0xa#1", 1700000000)}, path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "2023-11-14 22:13:20 UTC")
}
