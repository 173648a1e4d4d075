// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cloud

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/Thermoquad/fieldgate/internal/config"
)

// StatusHeader carries the method status code on NATS replies
const StatusHeader = "Status"

const publishTimeout = 10 * time.Second

// NatsClient publishes telemetry and serves methods over NATS request/reply
type NatsClient struct {
	nc       *nats.Conn
	deviceID string
	logger   zerolog.Logger

	mu      sync.Mutex
	methods map[string]*nats.Subscription
}

// DialNats connects to ep.Endpoint (a nats:// URL)
func DialNats(ctx context.Context, ep config.CloudEndpoint, logger zerolog.Logger) (*NatsClient, error) {
	logger = logger.With().Str("component", "cloud").Str("transport", "nats").Logger()

	opts := []nats.Option{
		nats.Name("fieldgate-" + ep.DeviceID),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn().Err(err).Msg("cloud disconnected")
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info().Str("url", c.ConnectedUrlRedacted()).Msg("cloud reconnected")
		}),
	}
	if ep.Token != "" {
		opts = append(opts, nats.Token(ep.Token))
	}
	if deadline, ok := ctx.Deadline(); ok {
		opts = append(opts, nats.Timeout(time.Until(deadline)))
	}

	nc, err := nats.Connect(ep.Endpoint, opts...)
	if err != nil {
		return nil, fmt.Errorf("cloud: connect %s: %w", ep.Endpoint, err)
	}

	return &NatsClient{
		nc:       nc,
		deviceID: ep.DeviceID,
		logger:   logger,
		methods:  make(map[string]*nats.Subscription),
	}, nil
}

// Publish sends document on the device telemetry subject and waits for the
// server to acknowledge the flush.
func (c *NatsClient) Publish(ctx context.Context, document []byte) error {
	if c.nc.IsClosed() {
		return ErrClosed
	}
	if err := c.nc.Publish(TelemetrySubject(c.deviceID), document); err != nil {
		return fmt.Errorf("cloud: publish: %w", err)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, publishTimeout)
		defer cancel()
	}
	if err := c.nc.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("cloud: flush: %w", err)
	}
	return nil
}

// RegisterMethod subscribes handler to the method subject for name
func (c *NatsClient) RegisterMethod(name string, handler Handler) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.methods[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateMethod, name)
	}

	subject := MethodSubject(c.deviceID, name)
	sub, err := c.nc.Subscribe(subject, func(m *nats.Msg) {
		status, body := handler(m.Data)
		if m.Reply == "" {
			return
		}
		if err := m.RespondMsg(methodReply(m.Reply, status, body)); err != nil {
			c.logger.Error().Err(err).Str("method", name).Msg("method reply failed")
		}
	})
	if err != nil {
		return fmt.Errorf("cloud: subscribe %s: %w", subject, err)
	}

	c.methods[name] = sub
	c.logger.Debug().Str("subject", subject).Msg("method registered")
	return nil
}

// Close drains subscriptions and closes the connection
func (c *NatsClient) Close() error {
	if c.nc.IsClosed() {
		return nil
	}
	return c.nc.Drain()
}

func methodReply(subject string, status int, body []byte) *nats.Msg {
	msg := nats.NewMsg(subject)
	msg.Header.Set(StatusHeader, strconv.Itoa(status))
	msg.Data = body
	return msg
}
