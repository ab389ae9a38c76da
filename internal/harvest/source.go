package harvest

import (
	"context"

	"uniswap-econ-lab/internal/domain"
	"uniswap-econ-lab/internal/subgraph"
)

// SwapSource fetches one page of swaps inside [start, end] epoch seconds
// (inclusive), ordered by ascending id, strictly after afterID. An empty
// afterID means the first page.
type SwapSource interface {
	FetchSwapsPage(ctx context.Context, start, end int64, afterID string, first int) ([]*domain.SwapRecord, error)
}

// LiveSource streams swaps as they are indexed.
type LiveSource interface {
	SubscribeSwaps(ctx context.Context, since int64) (<-chan []*domain.SwapRecord, error)
}

var _ SwapSource = (*subgraph.Client)(nil)
var _ LiveSource = (*subgraph.WSClient)(nil)
