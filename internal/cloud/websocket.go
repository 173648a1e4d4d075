// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cloud

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Thermoquad/fieldgate/internal/config"
)

// Envelope types exchanged with the cloud WebSocket endpoint
const (
	EnvelopeTelemetry      = "telemetry"
	EnvelopeMethod         = "method"
	EnvelopeMethodResponse = "methodResponse"
)

// DeviceIDHeader identifies the gateway during the WebSocket handshake
const DeviceIDHeader = "X-Device-Id"

// Envelope is the JSON message framing used on the WebSocket transport
type Envelope struct {
	Type   string          `json:"type"`
	ID     string          `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Status int             `json:"status,omitempty"`
	Body   json.RawMessage `json:"body,omitempty"`
}

// WebSocketClient exchanges JSON envelopes with the cloud over one
// WebSocket connection.
type WebSocketClient struct {
	conn   *websocket.Conn
	logger zerolog.Logger

	writeMu sync.Mutex

	mu       sync.RWMutex
	handlers map[string]Handler
	closed   bool

	done chan struct{}
}

// DialWebSocket connects to ep.Endpoint (a ws:// or wss:// URL)
func DialWebSocket(ctx context.Context, ep config.CloudEndpoint, logger zerolog.Logger) (*WebSocketClient, error) {
	u, err := url.Parse(ep.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("cloud: invalid endpoint: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("cloud: unsupported endpoint scheme %q (use ws:// or wss://)", u.Scheme)
	}

	headers := http.Header{}
	headers.Set(DeviceIDHeader, ep.DeviceID)
	if ep.Token != "" {
		headers.Set("Authorization", "Bearer "+ep.Token)
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, ep.Endpoint, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("cloud: connect %s (HTTP %d): %w", u.Redacted(), resp.StatusCode, err)
		}
		return nil, fmt.Errorf("cloud: connect %s: %w", u.Redacted(), err)
	}

	return NewWebSocketClient(conn, logger), nil
}

// NewWebSocketClient serves methods over an established connection
func NewWebSocketClient(conn *websocket.Conn, logger zerolog.Logger) *WebSocketClient {
	c := &WebSocketClient{
		conn:     conn,
		logger:   logger.With().Str("component", "cloud").Str("transport", "websocket").Logger(),
		handlers: make(map[string]Handler),
		done:     make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// Publish sends document as a telemetry envelope
func (c *WebSocketClient) Publish(ctx context.Context, document []byte) error {
	return c.write(ctx, Envelope{
		Type: EnvelopeTelemetry,
		ID:   uuid.NewString(),
		Body: json.RawMessage(document),
	})
}

// RegisterMethod routes method envelopes named name to handler
func (c *WebSocketClient) RegisterMethod(name string, handler Handler) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if _, exists := c.handlers[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateMethod, name)
	}
	c.handlers[name] = handler
	return nil
}

// Close closes the connection and waits for the read loop to exit
func (c *WebSocketClient) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.writeMu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	c.writeMu.Unlock()

	err := c.conn.Close()
	<-c.done
	return err
}

func (c *WebSocketClient) write(ctx context.Context, env Envelope) error {
	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return ErrClosed
	}

	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("cloud: encode %s: %w", env.Type, err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetWriteDeadline(deadline)
		defer c.conn.SetWriteDeadline(time.Time{})
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("cloud: write %s: %w", env.Type, err)
	}
	return nil
}

func (c *WebSocketClient) readLoop() {
	defer close(c.done)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.mu.RLock()
			closed := c.closed
			c.mu.RUnlock()
			if !closed {
				c.logger.Error().Err(err).Msg("cloud connection lost")
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.logger.Warn().Err(err).Msg("malformed cloud envelope")
			continue
		}
		if env.Type != EnvelopeMethod {
			c.logger.Debug().Str("type", env.Type).Msg("ignored cloud envelope")
			continue
		}
		c.dispatch(env)
	}
}

func (c *WebSocketClient) dispatch(env Envelope) {
	c.mu.RLock()
	handler, ok := c.handlers[env.Method]
	c.mu.RUnlock()

	resp := Envelope{Type: EnvelopeMethodResponse, ID: env.ID, Method: env.Method}
	if !ok {
		resp.Status = http.StatusNotFound
		resp.Body = json.RawMessage(`{"message":"unknown method"}`)
	} else {
		status, body := handler(env.Body)
		resp.Status = status
		if len(body) > 0 {
			resp.Body = json.RawMessage(body)
		}
	}

	if err := c.write(context.Background(), resp); err != nil {
		c.logger.Error().Err(err).Str("method", env.Method).Msg("method response failed")
	}
}
