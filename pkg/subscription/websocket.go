package subscription

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
)

// WebSocketClient manages a WebSocket connection to a Solana node and
// multiplexes account subscriptions over it.
type WebSocketClient struct {
	url            string
	logger         *slog.Logger
	conn           *websocket.Conn
	mu             sync.RWMutex
	subscriptions  map[uint64]*Subscription
	nextID         uint64
	handlers       map[uint64]AccountUpdateHandler
	reconnectDelay time.Duration
	ctx            context.Context
	cancel         context.CancelFunc
	connected      bool
}

// Subscription represents one account subscription.
type Subscription struct {
	ID        uint64
	AccountID string
	SubID     uint64 // node-assigned subscription ID
}

// AccountUpdateHandler is called when a subscribed account changes.
type AccountUpdateHandler func(accountID string, data []byte, slot uint64)

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

// NewWebSocketClient connects to wsURL and starts the reader and
// reconnection loops.
func NewWebSocketClient(ctx context.Context, wsURL string, logger *slog.Logger) (*WebSocketClient, error) {
	if logger == nil {
		logger = slog.Default()
	}
	clientCtx, cancel := context.WithCancel(ctx)

	client := &WebSocketClient{
		url:            wsURL,
		logger:         logger.With("component", "ws"),
		subscriptions:  make(map[uint64]*Subscription),
		handlers:       make(map[uint64]AccountUpdateHandler),
		reconnectDelay: 5 * time.Second,
		ctx:            clientCtx,
		cancel:         cancel,
		nextID:         1,
	}

	if err := client.connect(); err != nil {
		cancel()
		return nil, err
	}

	go client.readMessages()
	go client.handleReconnection()

	return client, nil
}

func (c *WebSocketClient) connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	conn, _, err := websocket.DefaultDialer.Dial(c.url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to WebSocket: %w", err)
	}

	c.conn = conn
	c.connected = true
	c.logger.Info("connected", "url", c.url)

	return nil
}

// SubscribeAccount subscribes to updates for one account.
func (c *WebSocketClient) SubscribeAccount(accountID string, handler AccountUpdateHandler) (uint64, error) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.mu.Unlock()

	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      id,
		Method:  "accountSubscribe",
		Params: []interface{}{
			accountID,
			map[string]interface{}{
				"encoding":   "base64",
				"commitment": "confirmed",
			},
		},
	}

	if err := c.sendRequest(req); err != nil {
		return 0, err
	}

	c.mu.Lock()
	c.handlers[id] = handler
	c.subscriptions[id] = &Subscription{
		ID:        id,
		AccountID: accountID,
	}
	c.mu.Unlock()

	return id, nil
}

// Unsubscribe removes an account subscription.
func (c *WebSocketClient) Unsubscribe(subID uint64) error {
	c.mu.Lock()
	sub, exists := c.subscriptions[subID]
	if !exists {
		c.mu.Unlock()
		return fmt.Errorf("subscription not found: %d", subID)
	}

	if sub.SubID == 0 {
		// not yet confirmed by the node
		delete(c.subscriptions, subID)
		delete(c.handlers, subID)
		c.mu.Unlock()
		return nil
	}

	nodeSubID := sub.SubID
	c.mu.Unlock()

	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      subID,
		Method:  "accountUnsubscribe",
		Params:  []interface{}{nodeSubID},
	}

	if err := c.sendRequest(req); err != nil {
		return err
	}

	c.mu.Lock()
	delete(c.subscriptions, subID)
	delete(c.handlers, subID)
	c.mu.Unlock()

	return nil
}

func (c *WebSocketClient) sendRequest(req rpcRequest) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil {
		return fmt.Errorf("not connected")
	}

	data, err := json.Marshal(req)
	if err != nil {
		return err
	}

	return conn.WriteMessage(websocket.TextMessage, data)
}

func (c *WebSocketClient) readMessages() {
	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()

		if conn == nil {
			time.Sleep(100 * time.Millisecond)
			continue
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			c.logger.Warn("read error", "error", err)
			c.mu.Lock()
			c.connected = false
			c.mu.Unlock()
			continue
		}

		c.handleMessage(message)
	}
}

// handleMessage routes an incoming frame by sniffing its fields rather
// than unmarshalling the whole payload twice.
func (c *WebSocketClient) handleMessage(data []byte) {
	if gjson.GetBytes(data, "method").String() == "accountNotification" {
		c.handleAccountNotification(data)
		return
	}

	if errMsg := gjson.GetBytes(data, "error.message"); errMsg.Exists() {
		c.logger.Warn("rpc error", "message", errMsg.String())
		return
	}

	// Subscription confirmation: {"id": N, "result": <node sub id>}
	id := gjson.GetBytes(data, "id")
	result := gjson.GetBytes(data, "result")
	if !id.Exists() || result.Type != gjson.Number {
		return
	}

	c.mu.Lock()
	if sub, exists := c.subscriptions[id.Uint()]; exists {
		sub.SubID = result.Uint()
	}
	c.mu.Unlock()
}

func (c *WebSocketClient) handleAccountNotification(data []byte) {
	nodeSubID := gjson.GetBytes(data, "params.subscription").Uint()

	c.mu.RLock()
	var handler AccountUpdateHandler
	var accountID string
	for _, sub := range c.subscriptions {
		if sub.SubID == nodeSubID {
			if h, exists := c.handlers[sub.ID]; exists {
				handler = h
				accountID = sub.AccountID
			}
			break
		}
	}
	c.mu.RUnlock()

	if handler == nil {
		return
	}

	// data is ["<base64>", "base64"]
	encoded := gjson.GetBytes(data, "params.result.value.data.0").String()
	if encoded == "" {
		return
	}
	slot := gjson.GetBytes(data, "params.result.context.slot").Uint()

	handler(accountID, []byte(encoded), slot)
}

func (c *WebSocketClient) handleReconnection() {
	ticker := time.NewTicker(c.reconnectDelay)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.mu.RLock()
			connected := c.connected
			c.mu.RUnlock()

			if !connected {
				if err := c.reconnect(); err != nil {
					c.logger.Warn("reconnection failed", "error", err)
				} else {
					c.logger.Info("reconnected")
				}
			}
		}
	}
}

// reconnect re-establishes the connection and replays all subscriptions.
func (c *WebSocketClient) reconnect() error {
	if err := c.connect(); err != nil {
		return err
	}

	c.mu.RLock()
	subs := make([]*Subscription, 0, len(c.subscriptions))
	for _, sub := range c.subscriptions {
		subs = append(subs, sub)
	}
	c.mu.RUnlock()

	for _, sub := range subs {
		req := rpcRequest{
			JSONRPC: "2.0",
			ID:      sub.ID,
			Method:  "accountSubscribe",
			Params: []interface{}{
				sub.AccountID,
				map[string]interface{}{
					"encoding":   "base64",
					"commitment": "confirmed",
				},
			},
		}

		if err := c.sendRequest(req); err != nil {
			c.logger.Warn("resubscribe failed", "account", sub.AccountID, "error", err)
		}
	}

	return nil
}

// Close shuts the connection down.
func (c *WebSocketClient) Close() error {
	c.cancel()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return c.conn.Close()
	}

	return nil
}

// IsConnected reports whether the client currently has a live connection.
func (c *WebSocketClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}
