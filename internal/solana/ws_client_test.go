package solana

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

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsServer upgrades and hands every decoded request to handle.
func wsServer(t *testing.T, handle func(c *websocket.Conn, req wsRequest)) string {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}
			var req wsRequest
			if err := json.Unmarshal(msg, &req); err != nil {
				t.Errorf("unmarshal request: %v", err)
				return
			}
			if handle != nil {
				handle(c, req)
			}
		}
	}))
	t.Cleanup(server.Close)
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func subscribeAck(c *websocket.Conn, id uint64, subID int64) error {
	return c.WriteJSON(map[string]interface{}{"jsonrpc": "2.0", "id": id, "result": subID})
}

func signatureNotify(c *websocket.Conn, subID int64, slot int64, txErr interface{}) error {
	return c.WriteJSON(map[string]interface{}{
		"jsonrpc": "2.0",
		"method":  "signatureNotification",
		"params": map[string]interface{}{
			"subscription": subID,
			"result": map[string]interface{}{
				"context": map[string]interface{}{"slot": slot},
				"value":   map[string]interface{}{"err": txErr},
			},
		},
	})
}

func TestWSClient_Connect(t *testing.T) {
	url := wsServer(t, nil)

	client, err := NewWSClient(context.Background(), url, nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	if client.closed.Load() {
		t.Error("client should not be closed")
	}
}

func TestWSClient_SubscribeSignature(t *testing.T) {
	url := wsServer(t, func(c *websocket.Conn, req wsRequest) {
		if req.Method != "signatureSubscribe" {
			return
		}
		if req.Params[0] != "testsig" {
			t.Errorf("unexpected signature param %v", req.Params[0])
		}
		if err := subscribeAck(c, req.ID, 12345); err != nil {
			t.Errorf("write response: %v", err)
			return
		}
		time.Sleep(20 * time.Millisecond)
		if err := signatureNotify(c, 12345, 100, nil); err != nil {
			t.Errorf("write notification: %v", err)
		}
	})

	ctx := context.Background()
	client, err := NewWSClient(ctx, url, nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	ch, cancel, err := client.SubscribeSignature(ctx, "testsig")
	if err != nil {
		t.Fatalf("SubscribeSignature: %v", err)
	}
	defer cancel()

	select {
	case notif := <-ch:
		if notif.Signature != "testsig" {
			t.Errorf("expected testsig, got %s", notif.Signature)
		}
		if notif.Slot != 100 {
			t.Errorf("expected slot 100, got %d", notif.Slot)
		}
		if notif.Err != nil {
			t.Errorf("expected no error, got %v", notif.Err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for notification")
	}

	client.subsMu.Lock()
	remaining := len(client.subs)
	client.subsMu.Unlock()
	if remaining != 0 {
		t.Errorf("expected subscription to be released, %d remain", remaining)
	}
}

func TestWSClient_FailedTransactionNotification(t *testing.T) {
	url := wsServer(t, func(c *websocket.Conn, req wsRequest) {
		if req.Method != "signatureSubscribe" {
			return
		}
		subscribeAck(c, req.ID, 7)
		signatureNotify(c, 7, 5, map[string]interface{}{"InstructionError": []interface{}{1, map[string]interface{}{"Custom": 6003}}})
	})

	ctx := context.Background()
	client, err := NewWSClient(ctx, url, nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	ch, cancel, err := client.SubscribeSignature(ctx, "badsig")
	if err != nil {
		t.Fatalf("SubscribeSignature: %v", err)
	}
	defer cancel()

	select {
	case notif := <-ch:
		if notif.Err == nil {
			t.Error("expected transaction error in notification")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for notification")
	}
}

func TestWSClient_CancelUnsubscribes(t *testing.T) {
	unsubscribed := make(chan interface{}, 1)
	url := wsServer(t, func(c *websocket.Conn, req wsRequest) {
		switch req.Method {
		case "signatureSubscribe":
			subscribeAck(c, req.ID, 99)
		case "signatureUnsubscribe":
			unsubscribed <- req.Params[0]
			c.WriteJSON(map[string]interface{}{"jsonrpc": "2.0", "id": req.ID, "result": true})
		}
	})

	ctx := context.Background()
	client, err := NewWSClient(ctx, url, nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	_, cancel, err := client.SubscribeSignature(ctx, "pending")
	if err != nil {
		t.Fatalf("SubscribeSignature: %v", err)
	}
	cancel()
	cancel() // second call is a no-op

	select {
	case id := <-unsubscribed:
		if id != float64(99) {
			t.Errorf("expected unsubscribe of 99, got %v", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for unsubscribe")
	}
}

func TestWSClient_SubscribeTimeout(t *testing.T) {
	url := wsServer(t, nil)

	cfg := DefaultWSConfig()
	cfg.SubscribeTimeout = 50 * time.Millisecond
	client, err := NewWSClient(context.Background(), url, &cfg)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	if _, _, err := client.SubscribeSignature(context.Background(), "sig"); err == nil {
		t.Fatal("expected subscription timeout")
	}

	client.pendingSubsMu.Lock()
	pending := len(client.pendingSubs)
	client.pendingSubsMu.Unlock()
	if pending != 0 {
		t.Errorf("expected pending request to be dropped, %d remain", pending)
	}
}

func TestWSClient_Close(t *testing.T) {
	url := wsServer(t, func(c *websocket.Conn, req wsRequest) {
		if req.Method == "signatureSubscribe" {
			subscribeAck(c, req.ID, 1)
		}
	})

	ctx := context.Background()
	client, err := NewWSClient(ctx, url, nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}

	ch, _, err := client.SubscribeSignature(ctx, "sig")
	if err != nil {
		t.Fatalf("SubscribeSignature: %v", err)
	}

	if err := client.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}

	if !client.closed.Load() {
		t.Error("client should be closed")
	}

	if _, ok := <-ch; ok {
		t.Error("expected outstanding subscription channel to be closed")
	}

	// Double close should be safe
	if err := client.Close(); err != nil {
		t.Errorf("double Close: %v", err)
	}
}

func TestWSClient_SubscribeAfterClose(t *testing.T) {
	url := wsServer(t, nil)

	ctx := context.Background()
	client, err := NewWSClient(ctx, url, nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}

	client.Close()

	if _, _, err := client.SubscribeSignature(ctx, "sig"); err == nil {
		t.Error("expected error subscribing after close")
	}
}

func TestWSClient_CustomConfig(t *testing.T) {
	url := wsServer(t, nil)

	config := &WSClientConfig{
		ReconnectDelay:    100 * time.Millisecond,
		MaxReconnectDelay: 1 * time.Second,
		PingInterval:      5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      5 * time.Second,
	}

	client, err := NewWSClient(context.Background(), url, config)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	if client.config.PingInterval != 5*time.Second {
		t.Errorf("expected PingInterval 5s, got %v", client.config.PingInterval)
	}
	if client.config.SubscribeTimeout != DefaultWSConfig().SubscribeTimeout {
		t.Errorf("expected default SubscribeTimeout, got %v", client.config.SubscribeTimeout)
	}
}
