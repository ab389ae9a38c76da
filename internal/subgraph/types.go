package subgraph

import (
	"encoding/json"
	"fmt"
	"strconv"

	"uniswap-econ-lab/internal/domain"
)

// graphqlRequest is the POST body for both queries and subscriptions.
type graphqlRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

// graphqlResponse is the standard GraphQL envelope. A 200 response may still
// carry errors; that counts as a fetch failure.
type graphqlResponse struct {
	Data   json.RawMessage `json:"data,omitempty"`
	Errors []graphqlError  `json:"errors,omitempty"`
}

// graphqlError is one entry of the errors array.
type graphqlError struct {
	Message string `json:"message"`
}

func (e *graphqlError) Error() string {
	return fmt.Sprintf("graphql error: %s", e.Message)
}

// swapsData is the data object shape for swaps queries.
type swapsData struct {
	Swaps *[]wireSwap `json:"swaps"`
}

// wireSwap is the raw subgraph representation of one swap. BigInt and
// BigDecimal fields arrive as JSON strings.
type wireSwap struct {
	ID           string    `json:"id"`
	Transaction  wireTx    `json:"transaction"`
	Timestamp    string    `json:"timestamp"`
	Pool         wirePool  `json:"pool"`
	Token0       wireToken `json:"token0"`
	Token1       wireToken `json:"token1"`
	Sender       string    `json:"sender"`
	Recipient    string    `json:"recipient"`
	Origin       string    `json:"origin"`
	Amount0      string    `json:"amount0"`
	Amount1      string    `json:"amount1"`
	AmountUSD    string    `json:"amountUSD"`
	SqrtPriceX96 string    `json:"sqrtPriceX96"`
	Tick         string    `json:"tick"`
	LogIndex     string    `json:"logIndex"`
}

type wireTx struct {
	ID          string `json:"id"`
	BlockNumber string `json:"blockNumber"`
}

type wirePool struct {
	ID string `json:"id"`
}

type wireToken struct {
	ID       string `json:"id"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals string `json:"decimals"`
}

// toDomain converts a wire swap into a SwapRecord.
func (w *wireSwap) toDomain() (*domain.SwapRecord, error) {
	ts, err := strconv.ParseInt(w.Timestamp, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse swap %s timestamp %q: %w", w.ID, w.Timestamp, err)
	}

	return &domain.SwapRecord{
		ID:          w.ID,
		TxID:        w.Transaction.ID,
		BlockNumber: w.Transaction.BlockNumber,
		Timestamp:   ts,
		PoolID:      w.Pool.ID,
		Token0: domain.TokenDescriptor{
			ID:       w.Token0.ID,
			Symbol:   w.Token0.Symbol,
			Name:     w.Token0.Name,
			Decimals: w.Token0.Decimals,
		},
		Token1: domain.TokenDescriptor{
			ID:       w.Token1.ID,
			Symbol:   w.Token1.Symbol,
			Name:     w.Token1.Name,
			Decimals: w.Token1.Decimals,
		},
		Sender:       w.Sender,
		Recipient:    w.Recipient,
		Origin:       w.Origin,
		Amount0:      w.Amount0,
		Amount1:      w.Amount1,
		AmountUSD:    w.AmountUSD,
		SqrtPriceX96: w.SqrtPriceX96,
		Tick:         w.Tick,
		LogIndex:     w.LogIndex,
	}, nil
}

// decodeSwaps converts a batch of wire swaps, failing on the first bad record.
func decodeSwaps(wire []wireSwap) ([]*domain.SwapRecord, error) {
	records := make([]*domain.SwapRecord, 0, len(wire))
	for i := range wire {
		rec, err := wire[i].toDomain()
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}
