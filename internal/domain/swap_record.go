package domain

import "time"

// TokenDescriptor identifies one side of a Uniswap v3 pool.
// All fields are the subgraph's string representation.
type TokenDescriptor struct {
	ID       string // token contract address (hex, lowercase)
	Symbol   string
	Name     string
	Decimals string
}

// SwapRecord represents one swap event fetched from the subgraph.
// Numeric fields that can overflow 64-bit (amounts, sqrtPriceX96) are carried
// as strings to preserve precision. Corresponds to one row of a day shard.
type SwapRecord struct {
	ID           string // globally unique swap id ("<tx hash>#<log index>")
	TxID         string // transaction hash
	BlockNumber  string
	Timestamp    int64 // seconds since epoch
	PoolID       string
	Token0       TokenDescriptor
	Token1       TokenDescriptor
	Sender       string
	Recipient    string
	Origin       string
	Amount0      string // signed arbitrary-precision decimal
	Amount1      string // signed arbitrary-precision decimal
	AmountUSD    string // may be empty
	SqrtPriceX96 string // 256-bit unsigned integer
	Tick         string // signed integer
	LogIndex     string // non-negative integer
}

// DatetimeUTC returns the derived "YYYY-MM-DD HH:MM:SS UTC" form of Timestamp.
func (s *SwapRecord) DatetimeUTC() string {
	return time.Unix(s.Timestamp, 0).UTC().Format("2006-01-02 15:04:05") + " UTC"
}
