// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package cloud connects the gateway to its cloud telemetry and command
// channel.
package cloud

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Thermoquad/fieldgate/internal/config"
)

var (
	ErrClosed           = errors.New("cloud: client closed")
	ErrDuplicateMethod  = errors.New("cloud: method already registered")
	ErrUnknownTransport = errors.New("cloud: unknown transport type")
)

// Handler serves one cloud method invocation and returns an HTTP-like status
// code with an optional JSON body.
type Handler func(body []byte) (status int, response []byte)

// Client is the gateway's view of the cloud channel
type Client interface {
	// Publish sends one telemetry document
	Publish(ctx context.Context, document []byte) error
	// RegisterMethod exposes handler under name
	RegisterMethod(name string, handler Handler) error
	Close() error
}

// Dial connects to the cloud endpoint using the configured transport
func Dial(ctx context.Context, transport config.TransportType, ep config.CloudEndpoint, logger zerolog.Logger) (Client, error) {
	switch transport {
	case config.TransportNats:
		return DialNats(ctx, ep, logger)
	case config.TransportWebSocket:
		return DialWebSocket(ctx, ep, logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTransport, transport)
	}
}

// TelemetrySubject is the NATS subject telemetry for deviceID is published on
func TelemetrySubject(deviceID string) string {
	return "devices." + deviceID + ".telemetry"
}

// MethodSubject is the NATS subject method requests for deviceID arrive on
func MethodSubject(deviceID, method string) string {
	return "devices." + deviceID + ".methods." + method
}
