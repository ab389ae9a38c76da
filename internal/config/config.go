// Package config loads environment-backed configuration, optionally from a
// dotenv file. Flags take precedence over the environment; the environment
// takes precedence over defaults.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"uniswap-econ-lab/internal/subgraph"
)

// Config holds the process configuration shared by the commands.
type Config struct {
	GraphAPIKey   string // Graph gateway API key
	SubgraphID    string // deployment id of the Uniswap v3 subgraph
	PostgresDSN   string
	ClickhouseDSN string
	OutDir        string
	MetricsAddr   string
}

// Load reads configuration from the environment. When envFile is non-empty
// it is loaded first; a missing explicit file is an error, while the default
// .env is optional.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	} else {
		// Best effort: a working directory without .env is fine.
		_ = godotenv.Load()
	}

	return &Config{
		GraphAPIKey:   os.Getenv("GRAPH_API_KEY"),
		SubgraphID:    getenv("SUBGRAPH_ID", subgraph.DefaultSubgraphID),
		PostgresDSN:   os.Getenv("POSTGRES_DSN"),
		ClickhouseDSN: os.Getenv("CLICKHOUSE_DSN"),
		OutDir:        getenv("OUT_DIR", "data/swaps"),
		MetricsAddr:   getenv("METRICS_ADDR", ":9090"),
	}, nil
}

// Endpoint builds the subgraph gateway endpoint from the configured key,
// rejecting missing or placeholder keys.
func (c *Config) Endpoint() (string, error) {
	return subgraph.BuildEndpoint(c.GraphAPIKey, c.SubgraphID)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
