package subgraph

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// wsTestServer speaks just enough graphql-transport-ws for the client tests:
// acks the init, then replies to the first subscribe with the scripted next
// payloads followed by complete.
func wsTestServer(t *testing.T, nextPayloads []interface{}) *httptest.Server {
	t.Helper()

	upgrader := websocket.Upgrader{
		Subprotocols: []string{"graphql-transport-ws"},
	}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		var init wsMessage
		if err := conn.ReadJSON(&init); err != nil {
			t.Errorf("read init: %v", err)
			return
		}
		if init.Type != wsTypeConnectionInit {
			t.Errorf("expected connection_init, got %s", init.Type)
			return
		}
		if err := conn.WriteJSON(wsMessage{Type: wsTypeConnectionAck}); err != nil {
			return
		}

		var sub wsMessage
		if err := conn.ReadJSON(&sub); err != nil {
			return
		}
		if sub.Type != wsTypeSubscribe {
			// Client shut down without subscribing.
			return
		}

		for _, p := range nextPayloads {
			payload, _ := json.Marshal(p)
			if err := conn.WriteJSON(wsMessage{ID: sub.ID, Type: wsTypeNext, Payload: payload}); err != nil {
				return
			}
		}
		conn.WriteJSON(wsMessage{ID: sub.ID, Type: wsTypeComplete})

		// Hold the connection open until the client closes it.
		conn.ReadJSON(&wsMessage{})
	}))
}

func wsURL(httpURL string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http")
}

func TestWSClient_SubscribeSwaps(t *testing.T) {
	server := wsTestServer(t, []interface{}{
		map[string]interface{}{
			"data": map[string]interface{}{
				"swaps": []interface{}{
					sampleSwapJSON("0xbbb#7", 1700000200),
					sampleSwapJSON("0xbbb#6", 1700000199),
				},
			},
		},
	})
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := NewWSClient(ctx, wsURL(server.URL), nil, nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	ch, err := client.SubscribeSwaps(ctx, 1700000000)
	if err != nil {
		t.Fatalf("SubscribeSwaps: %v", err)
	}

	select {
	case batch, ok := <-ch:
		if !ok {
			t.Fatal("channel closed before first batch")
		}
		if len(batch) != 2 {
			t.Fatalf("expected 2 swaps, got %d", len(batch))
		}
		if batch[0].ID != "0xbbb#7" {
			t.Errorf("expected id 0xbbb#7, got %s", batch[0].ID)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for batch")
	}

	// Complete closes the channel.
	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected channel close after complete")
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for channel close")
	}
}

func TestWSClient_SubscribeAfterClose(t *testing.T) {
	server := wsTestServer(t, nil)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := NewWSClient(ctx, wsURL(server.URL), nil, nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	client.Close()

	if _, err := client.SubscribeSwaps(ctx, 0); err == nil {
		t.Error("expected error subscribing on closed client")
	}
}
