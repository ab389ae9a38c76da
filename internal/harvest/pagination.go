package harvest

import (
	"context"
	"fmt"
	"time"

	"uniswap-econ-lab/internal/domain"
	"uniswap-econ-lab/internal/observability"
)

// collectDay pulls every swap inside the window via keyset pagination: pages
// are ordered by ascending id and each page resumes strictly after the last
// id of the previous one. On error the returned slice holds the prefix
// collected before retries ran out.
func (h *Harvester) collectDay(ctx context.Context, window domain.DayWindow) ([]*domain.SwapRecord, int, int, error) {
	var (
		records  []*domain.SwapRecord
		cursor   string
		pages    int
		attempts int
	)

	for {
		page, tries, err := h.fetchPageWithRetry(ctx, window, cursor)
		attempts += tries
		if err != nil {
			return records, pages, attempts, err
		}
		pages++
		observability.RecordPageFetched(len(page))

		for _, rec := range page {
			// The cursor guarantees strictly increasing ids; a server that
			// violates that would otherwise duplicate rows in the shard.
			if cursor != "" && rec.ID <= cursor {
				continue
			}
			records = append(records, rec)
			cursor = rec.ID
		}

		if len(page) < h.pageSize {
			return records, pages, attempts, nil
		}
	}
}

// fetchPageWithRetry fetches one page, retrying up to maxAttempts times with
// a fixed delay between attempts. Returns the number of attempts made.
func (h *Harvester) fetchPageWithRetry(ctx context.Context, window domain.DayWindow, afterID string) ([]*domain.SwapRecord, int, error) {
	var lastErr error

	for attempt := 1; attempt <= h.maxAttempts; attempt++ {
		page, err := h.source.FetchSwapsPage(ctx, window.Start, window.End, afterID, h.pageSize)
		if err == nil {
			return page, attempt, nil
		}
		lastErr = err
		observability.RecordFetchError("page")

		if attempt < h.maxAttempts {
			observability.RecordBatchRetry()
			h.logger.Printf("Fetch failed for %s (attempt %d/%d), retrying in %v: %v",
				window, attempt, h.maxAttempts, h.retryDelay, err)

			select {
			case <-ctx.Done():
				return nil, attempt, ctx.Err()
			case <-time.After(h.retryDelay):
			}
		}
	}

	return nil, h.maxAttempts, fmt.Errorf("fetch page after %q for %s: %d attempts exhausted: %w",
		afterID, window, h.maxAttempts, lastErr)
}
