package subgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"uniswap-econ-lab/internal/domain"
)

// graphql-transport-ws message types.
const (
	wsTypeConnectionInit = "connection_init"
	wsTypeConnectionAck  = "connection_ack"
	wsTypeSubscribe      = "subscribe"
	wsTypeNext           = "next"
	wsTypeError          = "error"
	wsTypeComplete       = "complete"
	wsTypePing           = "ping"
	wsTypePong           = "pong"
)

// WSConfig configures WebSocket client behavior.
type WSConfig struct {
	// HandshakeTimeout bounds the dial plus connection_init handshake.
	HandshakeTimeout time.Duration
	// ReadTimeout is the timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is the timeout for writing messages.
	WriteTimeout time.Duration
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSConfig {
	return WSConfig{
		HandshakeTimeout: 10 * time.Second,
		ReadTimeout:      120 * time.Second,
		WriteTimeout:     10 * time.Second,
	}
}

// wsMessage is the graphql-transport-ws frame.
type wsMessage struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// WSClient is a graphql-transport-ws subscription client used by the live
// tail. One client carries at most one active swaps subscription.
type WSClient struct {
	endpoint string
	config   WSConfig
	logger   *log.Logger

	conn    *websocket.Conn
	writeMu sync.Mutex
	closed  atomic.Bool
	subID   atomic.Uint64

	wg sync.WaitGroup
}

// NewWSClient dials the endpoint and completes the connection_init handshake.
func NewWSClient(ctx context.Context, endpoint string, config *WSConfig, logger *log.Logger) (*WSClient, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}
	if logger == nil {
		logger = log.Default()
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: cfg.HandshakeTimeout,
		Subprotocols:     []string{"graphql-transport-ws"},
	}

	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	c := &WSClient{
		endpoint: endpoint,
		config:   cfg,
		logger:   logger,
		conn:     conn,
	}

	if err := c.write(wsMessage{Type: wsTypeConnectionInit}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("send connection_init: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(cfg.HandshakeTimeout))
	var ack wsMessage
	if err := conn.ReadJSON(&ack); err != nil {
		conn.Close()
		return nil, fmt.Errorf("read connection_ack: %w", err)
	}
	if ack.Type != wsTypeConnectionAck {
		conn.Close()
		return nil, fmt.Errorf("expected connection_ack, got %q", ack.Type)
	}

	return c, nil
}

// SubscribeSwaps subscribes to swaps indexed since the given epoch second.
// Each channel element is one subscription evaluation (newest swaps first,
// as returned by the subgraph); the consumer dedupes by id. The channel is
// closed on error, completion, or Close.
func (c *WSClient) SubscribeSwaps(ctx context.Context, since int64) (<-chan []*domain.SwapRecord, error) {
	if c.closed.Load() {
		return nil, fmt.Errorf("client closed")
	}

	id := fmt.Sprintf("%d", c.subID.Add(1))

	payload, err := json.Marshal(graphqlRequest{
		Query:     swapsSubscription,
		Variables: map[string]interface{}{"since": since},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal subscribe payload: %w", err)
	}

	if err := c.write(wsMessage{ID: id, Type: wsTypeSubscribe, Payload: payload}); err != nil {
		return nil, fmt.Errorf("send subscribe: %w", err)
	}

	ch := make(chan []*domain.SwapRecord, 16)
	c.wg.Add(1)
	go c.readLoop(ctx, id, ch)

	return ch, nil
}

// readLoop decodes next frames until error, complete, or shutdown.
func (c *WSClient) readLoop(ctx context.Context, subID string, ch chan<- []*domain.SwapRecord) {
	defer c.wg.Done()
	defer close(ch)

	for {
		if ctx.Err() != nil || c.closed.Load() {
			return
		}

		c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
		var msg wsMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if !c.closed.Load() {
				c.logger.Printf("websocket read: %v", err)
			}
			return
		}

		switch msg.Type {
		case wsTypePing:
			if err := c.write(wsMessage{Type: wsTypePong}); err != nil {
				c.logger.Printf("websocket pong: %v", err)
				return
			}
		case wsTypeNext:
			if msg.ID != subID {
				continue
			}
			records, err := decodeNextPayload(msg.Payload)
			if err != nil {
				c.logger.Printf("decode subscription payload: %v", err)
				continue
			}
			select {
			case ch <- records:
			case <-ctx.Done():
				return
			}
		case wsTypeError:
			c.logger.Printf("subscription %s error: %s", subID, string(msg.Payload))
			return
		case wsTypeComplete:
			return
		}
	}
}

// decodeNextPayload unwraps the ExecutionResult carried by a next frame.
func decodeNextPayload(payload json.RawMessage) ([]*domain.SwapRecord, error) {
	var result graphqlResponse
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("unmarshal execution result: %w", err)
	}
	if len(result.Errors) > 0 {
		return nil, &result.Errors[0]
	}

	var data swapsData
	if err := json.Unmarshal(result.Data, &data); err != nil {
		return nil, fmt.Errorf("unmarshal swaps data: %w", err)
	}
	if data.Swaps == nil {
		return nil, fmt.Errorf("payload missing data.swaps")
	}

	return decodeSwaps(*data.Swaps)
}

// write sends one frame under the write lock.
func (c *WSClient) write(msg wsMessage) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	return c.conn.WriteJSON(msg)
}

// Close terminates the connection and waits for the read loop to exit.
func (c *WSClient) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	// Best effort: tell the server we are done before tearing down.
	_ = c.write(wsMessage{Type: wsTypeComplete})
	err := c.conn.Close()
	c.wg.Wait()
	return err
}
