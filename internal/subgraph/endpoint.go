package subgraph

import (
	"fmt"
	"net/url"
	"strings"
)

// Default endpoint pieces for the hosted Uniswap v3 subgraph on The Graph's
// decentralized network. The API key is substituted into the URL path.
const (
	DefaultGatewayHost = "gateway.thegraph.com"

	// DefaultSubgraphID is the Uniswap v3 Ethereum mainnet subgraph.
	DefaultSubgraphID = "5zvR82QoaXYFyDEKLZ9t6v9adgnptxYpKpSbxtgVENFV"

	// APIKeyPlaceholder is the value shipped in .env.example; a run that still
	// carries it must abort before issuing requests.
	APIKeyPlaceholder = "YOUR_API_KEY"
)

// ErrPlaceholderAPIKey indicates the API key was missing or left at the
// placeholder value.
var ErrPlaceholderAPIKey = fmt.Errorf("subgraph API key is missing or still the placeholder")

// BuildEndpoint constructs the gateway URL with the API key embedded in the
// path. Returns ErrPlaceholderAPIKey when the key is absent or a placeholder.
func BuildEndpoint(apiKey, subgraphID string) (string, error) {
	if err := ValidateAPIKey(apiKey); err != nil {
		return "", err
	}
	if subgraphID == "" {
		subgraphID = DefaultSubgraphID
	}
	return fmt.Sprintf("https://%s/api/%s/subgraphs/id/%s", DefaultGatewayHost, apiKey, subgraphID), nil
}

// ValidateAPIKey rejects empty or placeholder keys.
func ValidateAPIKey(apiKey string) error {
	key := strings.TrimSpace(apiKey)
	if key == "" || strings.EqualFold(key, APIKeyPlaceholder) || strings.Contains(key, "YOUR_API") {
		return ErrPlaceholderAPIKey
	}
	return nil
}

// EndpointHost extracts the host component of an endpoint URL for logging and
// run-id derivation. Falls back to the raw string if parsing fails.
func EndpointHost(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return endpoint
	}
	return u.Host
}
