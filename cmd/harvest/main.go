package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"uniswap-econ-lab/internal/config"
	"uniswap-econ-lab/internal/domain"
	"uniswap-econ-lab/internal/harvest"
	"uniswap-econ-lab/internal/idhash"
	"uniswap-econ-lab/internal/observability"
	"uniswap-econ-lab/internal/storage"
	chstore "uniswap-econ-lab/internal/storage/clickhouse"
	"uniswap-econ-lab/internal/storage/memory"
	"uniswap-econ-lab/internal/storage/migrations"
	pgstore "uniswap-econ-lab/internal/storage/postgres"
	"uniswap-econ-lab/internal/subgraph"
)

const dateLayout = "2006-01-02"

func main() {
	mode := flag.String("mode", "range", "Harvest mode: range or live")
	startDate := flag.String("start_date", "", "First UTC day to harvest (YYYY-MM-DD)")
	endDate := flag.String("end_date", "", "Last UTC day to harvest (YYYY-MM-DD), inclusive")
	maxConcurrent := flag.Int("max_concurrent", harvest.DefaultConcurrency, "Day windows harvested concurrently")
	pageSize := flag.Int("page-size", subgraph.DefaultPageSize, "Swaps requested per page")
	outDir := flag.String("out-dir", "", "Directory for CSV shards (overrides OUT_DIR)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string for the harvest manifest (overrides POSTGRES_DSN)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string for the swap archive (overrides CLICKHOUSE_DSN)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory stores instead of PostgreSQL/ClickHouse")
	force := flag.Bool("force", false, "Re-harvest days already marked written in the manifest")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics HTTP address (overrides METRICS_ADDR, empty uses config)")
	envFile := flag.String("env-file", "", "Dotenv file to load before reading the environment")

	flag.Parse()

	logger := log.New(os.Stdout, "[harvest] ", log.LstdFlags|log.Lshortfile)

	cfg, err := config.Load(*envFile)
	if err != nil {
		logger.Fatalf("Load config: %v", err)
	}
	if *outDir != "" {
		cfg.OutDir = *outDir
	}
	if *postgresDSN != "" {
		cfg.PostgresDSN = *postgresDSN
	}
	if *clickhouseDSN != "" {
		cfg.ClickhouseDSN = *clickhouseDSN
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}

	if cfg.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Printf("Starting metrics server on %s", cfg.MetricsAddr)
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan error, 1)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	switch *mode {
	case "range":
		err = runRange(ctx, logger, cfg, *startDate, *endDate, *maxConcurrent, *pageSize, *useMemory, *force)
	case "live":
		err = runLive(ctx, logger, cfg, *useMemory)
	default:
		logger.Fatalf("Unknown mode: %s", *mode)
	}

	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		logger.Fatalf("Error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// openStores wires the archive and manifest stores, real or in-memory, and
// returns a release function.
func openStores(ctx context.Context, logger *log.Logger, cfg *config.Config, useMemory bool) (storage.SwapArchiveStore, storage.HarvestManifestStore, func(), error) {
	if useMemory {
		return memory.NewSwapArchiveStore(), memory.NewManifestStore(), func() {}, nil
	}

	var closers []func()
	release := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var archive storage.SwapArchiveStore
	if cfg.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		if err != nil {
			release()
			return nil, nil, nil, fmt.Errorf("prepare clickhouse: %w", err)
		}
		closers = append(closers, func() { conn.Close() })
		archive = chstore.NewSwapArchiveStore(conn)
	} else {
		logger.Println("No ClickHouse DSN, swap archive disabled")
	}

	var manifest storage.HarvestManifestStore
	if cfg.PostgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			release()
			return nil, nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		closers = append(closers, pool.Close)
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			release()
			return nil, nil, nil, fmt.Errorf("migrate postgres: %w", err)
		}
		manifest = pgstore.NewManifestStore(pool)
	} else {
		logger.Println("No PostgreSQL DSN, harvest manifest disabled")
	}

	return archive, manifest, release, nil
}

// runRange harvests every day in [start_date, end_date].
func runRange(ctx context.Context, logger *log.Logger, cfg *config.Config, startDate, endDate string, maxConcurrent, pageSize int, useMemory, force bool) error {
	if startDate == "" || endDate == "" {
		return fmt.Errorf("--start_date and --end_date are required for range mode")
	}
	start, err := time.Parse(dateLayout, startDate)
	if err != nil {
		return fmt.Errorf("parse start_date: %w", err)
	}
	end, err := time.Parse(dateLayout, endDate)
	if err != nil {
		return fmt.Errorf("parse end_date: %w", err)
	}

	endpoint, err := cfg.Endpoint()
	if err != nil {
		return err
	}
	runID := idhash.ComputeRunID(start, end, subgraph.EndpointHost(endpoint))
	logger.Printf("Run %s: %s through %s", runID[:12], startDate, endDate)

	archive, manifest, release, err := openStores(ctx, logger, cfg, useMemory)
	if err != nil {
		return err
	}
	defer release()

	h := harvest.New(harvest.Options{
		Source:      subgraph.NewClient(endpoint),
		Archive:     archive,
		Manifest:    manifest,
		OutDir:      cfg.OutDir,
		RunID:       runID,
		Concurrency: maxConcurrent,
		PageSize:    pageSize,
		Force:       force,
		Logger:      logger,
	})

	results, err := h.HarvestRange(ctx, start, end)
	if err != nil {
		return err
	}

	byState := make(map[string]int)
	for _, res := range results {
		byState[res.State]++
		if res.Err != nil {
			logger.Printf("Day %s: %s (%v)", res.Day, res.State, res.Err)
		}
	}
	logger.Printf("Range done: %d written, %d empty, %d skipped, %d partial, %d failed",
		byState[domain.ShardStateWritten], byState[domain.ShardStateEmpty],
		byState[domain.ShardStateSkipped], byState[domain.ShardStatePartial],
		byState[domain.ShardStateFailed])

	if byState[domain.ShardStateFailed] > 0 || byState[domain.ShardStatePartial] > 0 {
		return fmt.Errorf("%d day(s) did not complete cleanly", byState[domain.ShardStateFailed]+byState[domain.ShardStatePartial])
	}
	return nil
}

// runLive tails the subgraph subscription into the swap archive.
func runLive(ctx context.Context, logger *log.Logger, cfg *config.Config, useMemory bool) error {
	endpoint, err := cfg.Endpoint()
	if err != nil {
		return err
	}
	wsEndpoint := strings.Replace(endpoint, "https://", "wss://", 1)

	archive, _, release, err := openStores(ctx, logger, cfg, useMemory)
	if err != nil {
		return err
	}
	defer release()
	if archive == nil {
		return fmt.Errorf("live mode needs a swap archive (set CLICKHOUSE_DSN or --use-memory)")
	}

	ws, err := subgraph.NewWSClient(ctx, wsEndpoint, nil, logger)
	if err != nil {
		return fmt.Errorf("connect websocket: %w", err)
	}
	defer ws.Close()

	h := harvest.New(harvest.Options{
		Source:  subgraph.NewClient(endpoint),
		Live:    ws,
		Archive: archive,
		Logger:  logger,
	})

	logger.Println("Starting live tail...")
	return h.TailLive(ctx, time.Now())
}
