// Package harvest orchestrates the paginated swap harvest: one shard per UTC
// day, bounded concurrency across days, keyset pagination within a day.
package harvest

import (
	"context"
	"errors"
	"log"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"uniswap-econ-lab/internal/domain"
	"uniswap-econ-lab/internal/observability"
	"uniswap-econ-lab/internal/shard"
	"uniswap-econ-lab/internal/storage"
)

// Defaults for Options zero values.
const (
	DefaultConcurrency = 8
	DefaultPageSize    = 1000
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = 5 * time.Second

	// liveSeenWindow is how long (in seconds of swap time) the live tail
	// remembers an id. The subscription re-evaluates newest-first on every
	// block, so an id older than this cannot reappear.
	liveSeenWindow = 3600
)

// Options contains configuration for creating a Harvester.
type Options struct {
	Source      SwapSource
	Live        LiveSource                   // optional, required only for TailLive
	Archive     storage.SwapArchiveStore     // optional mirror of harvested swaps
	Manifest    storage.HarvestManifestStore // optional per-day ledger
	OutDir      string
	RunID       string
	Concurrency int           // Default: 8 day windows in flight
	PageSize    int           // Default: 1000 swaps per page
	MaxAttempts int           // Default: 3 attempts per page
	RetryDelay  time.Duration // Default: 5s between attempts
	Force       bool          // re-harvest days already marked written
	Logger      *log.Logger
}

// Harvester drives the range harvest and the live tail.
type Harvester struct {
	source      SwapSource
	live        LiveSource
	archive     storage.SwapArchiveStore
	manifest    storage.HarvestManifestStore
	outDir      string
	runID       string
	concurrency int64
	pageSize    int
	maxAttempts int
	retryDelay  time.Duration
	force       bool
	logger      *log.Logger
}

// DayResult describes the outcome of harvesting one day window.
type DayResult struct {
	Day      domain.DayWindow
	State    string
	Records  int
	Pages    int
	Attempts int
	Path     string
	Digest   string
	Err      error
}

// New creates a new Harvester.
func New(opts Options) *Harvester {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	retryDelay := opts.RetryDelay
	if retryDelay <= 0 {
		retryDelay = DefaultRetryDelay
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Harvester{
		source:      opts.Source,
		live:        opts.Live,
		archive:     opts.Archive,
		manifest:    opts.Manifest,
		outDir:      opts.OutDir,
		runID:       opts.RunID,
		concurrency: int64(concurrency),
		pageSize:    pageSize,
		maxAttempts: maxAttempts,
		retryDelay:  retryDelay,
		force:       opts.Force,
		logger:      logger,
	}
}

// HarvestRange harvests every UTC day from start through end inclusive. Days
// run concurrently up to the configured limit; one day failing does not stop
// the others. Results come back in day order. The returned error is non-nil
// only when the range itself is unusable or the context was cancelled.
func (h *Harvester) HarvestRange(ctx context.Context, start, end time.Time) ([]DayResult, error) {
	days, err := domain.DaysBetween(start, end)
	if err != nil {
		return nil, err
	}

	h.logger.Printf("Harvesting %d day(s) from %s through %s, concurrency %d",
		len(days), days[0], days[len(days)-1], h.concurrency)

	sem := semaphore.NewWeighted(h.concurrency)
	results := make([]DayResult, len(days))
	var wg sync.WaitGroup

	for i, day := range days {
		if err := sem.Acquire(ctx, 1); err != nil {
			// Cancelled mid-range: mark the rest failed and stop launching.
			for j := i; j < len(days); j++ {
				results[j] = DayResult{Day: days[j], State: domain.ShardStateFailed, Err: err}
			}
			break
		}

		wg.Add(1)
		go func(i int, day domain.DayWindow) {
			defer wg.Done()
			defer sem.Release(1)

			observability.DefaultMetrics.DaysInFlight.Inc()
			defer observability.DefaultMetrics.DaysInFlight.Dec()

			results[i] = h.harvestDay(ctx, day)
		}(i, day)
	}

	wg.Wait()

	for _, res := range results {
		observability.RecordShardFinished(res.State)
		if res.State == domain.ShardStateWritten {
			observability.DefaultMetrics.LastSuccessfulHarvest.SetToCurrentTime()
		}
	}

	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

// harvestDay harvests one day window end to end: skip check, pagination,
// shard write, archive mirror, manifest upsert.
func (h *Harvester) harvestDay(ctx context.Context, day domain.DayWindow) DayResult {
	started := time.Now()
	defer func() {
		observability.DefaultMetrics.DayDuration.Observe(time.Since(started).Seconds())
	}()

	if res, skipped := h.skipIfWritten(ctx, day); skipped {
		return res
	}

	res := DayResult{Day: day}
	records, pages, attempts, err := h.collectDay(ctx, day)
	res.Pages = pages
	res.Attempts = attempts

	switch {
	case err != nil && len(records) == 0:
		res.State = domain.ShardStateFailed
		res.Err = err
		h.logger.Printf("Day %s failed, nothing collected: %v", day, err)

	case err != nil:
		// Retries exhausted mid-day: keep the prefix, mark the shard partial.
		res.State = domain.ShardStatePartial
		res.Err = err
		h.writeShard(records, day, &res)
		h.logger.Printf("Day %s partial: %d records over %d pages before giving up: %v",
			day, len(records), pages, err)

	case len(records) == 0:
		res.State = domain.ShardStateEmpty
		h.logger.Printf("Day %s empty, no shard written", day)

	default:
		res.State = domain.ShardStateWritten
		h.writeShard(records, day, &res)
		h.logger.Printf("Day %s written: %d records over %d pages -> %s", day, len(records), pages, res.Path)
	}

	if len(records) > 0 {
		h.mirrorToArchive(ctx, day, records)
	}
	h.recordManifest(ctx, day, &res)

	return res
}

// skipIfWritten consults the manifest and skips days already written, unless
// force is set.
func (h *Harvester) skipIfWritten(ctx context.Context, day domain.DayWindow) (DayResult, bool) {
	if h.manifest == nil || h.force {
		return DayResult{}, false
	}

	m, err := h.manifest.Get(ctx, day.Date)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			h.logger.Printf("Manifest lookup for %s failed, harvesting anyway: %v", day, err)
		}
		return DayResult{}, false
	}

	if m.State != domain.ShardStateWritten {
		return DayResult{}, false
	}

	h.logger.Printf("Day %s already written (run %s), skipping", day, m.RunID)
	return DayResult{
		Day:     day,
		State:   domain.ShardStateSkipped,
		Records: m.Records,
		Pages:   m.Pages,
		Path:    m.Path,
		Digest:  m.Digest,
	}, true
}

// writeShard emits the CSV shard and fills in path, digest and record count.
// A shard write failure downgrades the day to failed.
func (h *Harvester) writeShard(records []*domain.SwapRecord, day domain.DayWindow, res *DayResult) {
	path := filepath.Join(h.outDir, shard.Filename(day))
	out, err := shard.Write(records, path)
	if err != nil {
		h.logger.Printf("Shard write for %s failed: %v", day, err)
		res.State = domain.ShardStateFailed
		res.Err = err
		return
	}

	res.Path = out.Path
	res.Records = out.Records
	res.Digest = out.Digest
}

// mirrorToArchive inserts the day's records into the archive store, if one is
// configured. Overlap with an earlier run of the same day is not an error;
// the records not archived yet still land.
func (h *Harvester) mirrorToArchive(ctx context.Context, day domain.DayWindow, records []*domain.SwapRecord) {
	if h.archive == nil {
		return
	}

	if err := h.archiveInsert(ctx, records); err != nil {
		h.logger.Printf("Archive insert for %s failed: %v", day, err)
	}
}

// archiveInsert inserts a batch tolerating overlap with already archived
// swaps. InsertBulk rejects a colliding batch wholesale, so on a duplicate
// collision the batch is retried record by record, skipping the duplicates.
func (h *Harvester) archiveInsert(ctx context.Context, records []*domain.SwapRecord) error {
	err := h.archive.InsertBulk(ctx, records)
	if err == nil || !errors.Is(err, storage.ErrDuplicateKey) {
		return err
	}

	for _, rec := range records {
		err := h.archive.InsertBulk(ctx, []*domain.SwapRecord{rec})
		if err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			return err
		}
	}
	return nil
}

// recordManifest upserts the day's ledger row, if a manifest is configured.
func (h *Harvester) recordManifest(ctx context.Context, day domain.DayWindow, res *DayResult) {
	if h.manifest == nil {
		return
	}

	err := h.manifest.Upsert(ctx, &domain.ShardManifest{
		Day:       day.Date,
		RunID:     h.runID,
		State:     res.State,
		Records:   res.Records,
		Pages:     res.Pages,
		Path:      res.Path,
		Digest:    res.Digest,
		UpdatedAt: time.Now().Unix(),
	})
	if err != nil {
		h.logger.Printf("Manifest upsert for %s failed: %v", day, err)
	}
}

// TailLive streams swaps from the live subscription into the archive. The
// subscription re-evaluates on every block, so consecutive batches overlap;
// a sliding window of recently seen ids filters each batch down to the swaps
// not delivered yet. Blocks until the context is cancelled or the
// subscription closes.
func (h *Harvester) TailLive(ctx context.Context, since time.Time) error {
	if h.live == nil {
		return errors.New("no live source configured")
	}

	batches, err := h.live.SubscribeSwaps(ctx, since.Unix())
	if err != nil {
		return err
	}
	h.logger.Printf("Tailing live swaps since %s", since.UTC().Format(time.RFC3339))

	seen := make(map[string]int64) // id -> swap timestamp
	var newest int64

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case batch, ok := <-batches:
			if !ok {
				return errors.New("live subscription closed")
			}

			fresh := make([]*domain.SwapRecord, 0, len(batch))
			for _, rec := range batch {
				if _, dup := seen[rec.ID]; dup {
					continue
				}
				seen[rec.ID] = rec.Timestamp
				if rec.Timestamp > newest {
					newest = rec.Timestamp
				}
				fresh = append(fresh, rec)
			}
			for id, ts := range seen {
				if ts < newest-liveSeenWindow {
					delete(seen, id)
				}
			}
			if len(fresh) == 0 {
				continue
			}

			observability.DefaultMetrics.LiveSwapsReceived.Add(float64(len(fresh)))

			if h.archive != nil {
				if err := h.archiveInsert(ctx, fresh); err != nil {
					h.logger.Printf("Archive insert from live tail failed: %v", err)
				}
			}
		}
	}
}
