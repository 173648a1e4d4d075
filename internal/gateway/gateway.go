// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package gateway dispatches radio frames to the cloud and cloud commands to
// the radio.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/Thermoquad/fieldgate/internal/cloud"
	"github.com/Thermoquad/fieldgate/internal/command"
	"github.com/Thermoquad/fieldgate/internal/config"
	"github.com/Thermoquad/fieldgate/internal/observability"
	"github.com/Thermoquad/fieldgate/internal/pending"
	"github.com/Thermoquad/fieldgate/internal/radio"
	"github.com/Thermoquad/fieldgate/internal/telemetry"
	"github.com/Thermoquad/fieldgate/pkg/rfframe"
)

var (
	ErrCloudConnect    = errors.New("gateway: cloud connection failed")
	ErrRegisterCommand = errors.New("gateway: command registration failed")
	ErrRadioOpen       = errors.New("gateway: radio initialization failed")
	ErrRadioLost       = errors.New("gateway: radio link lost")
	ErrNotStartable    = errors.New("gateway: not in ConfigLoaded state")
)

const (
	publishTimeout       = 30 * time.Second
	defaultSweepInterval = time.Second
)

// Radio is the transceiver as seen by the gateway
type Radio interface {
	Send(destination, payload []byte) error
	Close() error
}

// CloudDialer connects to the cloud channel
type CloudDialer func(ctx context.Context) (cloud.Client, error)

// RadioOpener opens and initializes the transceiver, wiring callbacks to it
type RadioOpener func(ctx context.Context, settings radio.Settings, callbacks radio.Callbacks) (Radio, error)

// Options holds the gateway collaborators
type Options struct {
	CloudDialer CloudDialer
	RadioOpener RadioOpener
	Restarter   command.Restarter
	Logger      zerolog.Logger

	// SweepInterval is how often pending sends are checked for expiry
	SweepInterval time.Duration
}

// Gateway owns the lifecycle of one cloud connection and one radio
type Gateway struct {
	cfg     *config.Settings
	opts    Options
	logger  zerolog.Logger
	state   atomic.Int32
	started atomic.Bool
	pending *pending.Registry

	cloud cloud.Client
	radio atomic.Value // Radio

	publishMu  sync.RWMutex
	publishes  sync.WaitGroup
	publishCtx context.Context
}

// New creates a gateway for cfg in the ConfigLoaded state
func New(cfg *config.Settings, opts Options) *Gateway {
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = defaultSweepInterval
	}
	g := &Gateway{
		cfg:        cfg,
		opts:       opts,
		logger:     opts.Logger.With().Str("component", "gateway").Logger(),
		pending:    pending.NewRegistry(),
		publishCtx: context.Background(),
	}
	g.setState(StateConfigLoaded)
	return g
}

// State returns the current lifecycle state
func (g *Gateway) State() State {
	return State(g.state.Load())
}

func (g *Gateway) setState(s State) {
	old := State(g.state.Swap(int32(s)))
	if old != s {
		g.logger.Debug().Str("from", old.String()).Str("to", s.String()).Msg("state changed")
	}
}

func (g *Gateway) running() bool {
	return g.State() == StateRunning
}

// Run connects the cloud, registers commands, arms the radio and dispatches
// events until ctx is cancelled. Startup failures leave the gateway Failed.
func (g *Gateway) Run(ctx context.Context) error {
	if g.State() != StateConfigLoaded || !g.started.CompareAndSwap(false, true) {
		return fmt.Errorf("%w: %s", ErrNotStartable, g.State())
	}

	g.logger.Info().
		Str("transport", string(g.cfg.CloudTransportType)).
		Bool("sensor_id_is_device_id_sensor_id", g.cfg.SensorIDIsDeviceIDSensorID).
		Strs("commands", g.cfg.EnabledCommands).
		Msg("cloud configuration")

	client, err := g.opts.CloudDialer(ctx)
	if err != nil {
		g.setState(StateFailed)
		return fmt.Errorf("%w: %w", ErrCloudConnect, err)
	}
	g.cloud = client
	g.setState(StateCloudConnected)

	translator := command.NewTranslator(command.Options{
		Radio:          radioSender{g},
		Pending:        g.pending,
		Restarter:      g.opts.Restarter,
		GatewayAddress: g.cfg.RadioAddress(),
		RestartDelay:   time.Duration(g.cfg.RestartDelay),
		Available:      g.running,
		Logger:         g.opts.Logger,
	})
	for name, handler := range translator.Handlers(g.cfg.EnabledCommands) {
		if err := client.RegisterMethod(name, cloud.Handler(handler)); err != nil {
			g.setState(StateFailed)
			_ = client.Close()
			return fmt.Errorf("%w: %s: %w", ErrRegisterCommand, name, err)
		}
	}

	r, err := g.opts.RadioOpener(ctx, radio.SettingsFromConfig(g.cfg), radio.Callbacks{
		Received: g.HandleFrame,
		TransmitSucceeded: func(destination, payload []byte) {
			g.HandleTransmitResult(destination, payload, nil)
		},
		TransmitFailed: g.HandleTransmitResult,
	})
	if err != nil {
		g.setState(StateFailed)
		_ = client.Close()
		return fmt.Errorf("%w: %w", ErrRadioOpen, err)
	}
	g.radio.Store(radioHolder{r})
	g.setState(StateRadioArmed)

	g.publishMu.Lock()
	g.publishCtx = context.WithoutCancel(ctx)
	g.setState(StateRunning)
	g.publishMu.Unlock()
	g.logger.Info().Msg("gateway running")

	sweepCtx, stopSweep := context.WithCancel(ctx)
	go g.sweepPending(sweepCtx)

	var runErr error
	select {
	case <-ctx.Done():
	case <-radioDone(r):
		runErr = ErrRadioLost
	}
	stopSweep()

	g.shutdown(r, runErr)
	return runErr
}

func (g *Gateway) shutdown(r Radio, cause error) {
	// No new publishes start once the state leaves Running
	g.publishMu.Lock()
	if cause != nil {
		g.setState(StateFailed)
	} else {
		g.setState(StateStopped)
	}
	g.publishMu.Unlock()

	g.publishes.Wait()

	if err := r.Close(); err != nil {
		g.logger.Warn().Err(err).Msg("radio close failed")
	}
	if err := g.cloud.Close(); err != nil {
		g.logger.Warn().Err(err).Msg("cloud close failed")
	}

	if cause != nil {
		g.logger.Error().Err(cause).Msg("gateway stopped")
		return
	}
	g.logger.Info().Msg("gateway stopped")
}

// HandleFrame processes one inbound radio frame. Invalid frames are logged
// and dropped.
func (g *Gateway) HandleFrame(data []byte) {
	if !g.running() {
		g.logger.Warn().Str("state", g.State().String()).Msg("frame dropped, gateway not running")
		observability.RecordFrameDropped("not_running")
		return
	}

	f, err := rfframe.Decode(data)
	if err != nil {
		g.logger.Warn().Err(err).Msg("message too short for header")
		observability.RecordFrameDropped("too_short")
		return
	}
	observability.RecordFrame(rfframe.FormatMessageType(f.Type()))

	switch f.Type() {
	case rfframe.MsgDeviceIDPlusCSVSensorReadings:
		g.handleSensorFrame(f)
	default:
		rec := telemetry.TranslateEcho(f.Bytes())
		g.logger.Debug().
			Str("type", rfframe.FormatMessageType(f.Type())).
			Int("length", rec.Length).
			Str("hex", rec.Hex).
			Str("text", rec.Text).
			Msg("message data")
	}
}

func (g *Gateway) handleSensorFrame(f *rfframe.Frame) {
	address, err := f.Address()
	if err != nil {
		g.logger.Warn().Err(err).Str("frame", rfframe.FormatHex(f.Bytes())).Msg("message data too short to contain device identifier")
		observability.RecordFrameDropped("address_truncated")
		return
	}
	payload, _ := f.Payload()

	doc, err := telemetry.TranslateSensorCSV(address, payload, g.cfg.SensorIDIsDeviceIDSensorID)
	if err != nil {
		g.logger.Warn().Err(err).Str("device_id", rfframe.FormatHex(address)).Msg("sensor frame rejected")
		observability.RecordFrameDropped(dropReason(err))
		return
	}

	ev := g.logger.Info()
	for _, field := range doc.Fields() {
		ev = ev.Str(field.Key, field.Value)
	}
	ev.Msg("sensor readings")

	body, err := json.Marshal(doc)
	if err != nil {
		g.logger.Error().Err(err).Msg("telemetry encode failed")
		observability.RecordFrameDropped("encode")
		return
	}
	g.publish(body)
}

func dropReason(err error) string {
	switch {
	case errors.Is(err, telemetry.ErrPayloadEmpty):
		return "payload_empty"
	case errors.Is(err, telemetry.ErrNoReadings):
		return "no_readings"
	case errors.Is(err, telemetry.ErrMalformedReading):
		return "malformed_reading"
	case errors.Is(err, telemetry.ErrDuplicateReading):
		return "duplicate_reading"
	default:
		return "invalid"
	}
}

// publish forwards body to the cloud without blocking frame reception.
// Failures are logged and counted, never retried.
func (g *Gateway) publish(body []byte) {
	g.publishMu.RLock()
	if !g.running() {
		g.publishMu.RUnlock()
		observability.RecordFrameDropped("not_running")
		return
	}
	g.publishes.Add(1)
	ctx := g.publishCtx
	g.publishMu.RUnlock()

	go func() {
		defer g.publishes.Done()

		ctx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()

		if err := g.cloud.Publish(ctx, body); err != nil {
			g.logger.Error().Err(err).Msg("telemetry publish failed")
			observability.RecordPublish(false)
			return
		}
		observability.RecordPublish(true)
	}()
}

// HandleTransmitResult records a transmit outcome and frees the pending slot
// held by destination for payload.
func (g *Gateway) HandleTransmitResult(destination, payload []byte, err error) {
	address := rfframe.FormatHex(destination)
	if err != nil {
		g.logger.Warn().Err(err).Str("address", address).Msg("transmit failed")
	} else {
		g.logger.Info().Str("address", address).Msg("transmit succeeded")
	}
	observability.RecordTransmit(err == nil)

	if g.pending.Release(destination, payload) {
		g.logger.Debug().Str("address", address).Msg("pending send released")
	}
	observability.SetPendingSends(g.pending.Len())
}

func (g *Gateway) sweepPending(ctx context.Context) {
	ttl := time.Duration(g.cfg.PendingSendTimeout)
	if ttl <= 0 {
		return
	}

	ticker := time.NewTicker(g.opts.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			expired := g.pending.Expire(now, ttl)
			for _, address := range expired {
				g.logger.Warn().Str("address", rfframe.FormatHex(address)).Dur("ttl", ttl).Msg("pending send expired without transmit outcome")
			}
			if len(expired) > 0 {
				observability.SetPendingSends(g.pending.Len())
			}
		}
	}
}

// radioHolder gives atomic.Value a single concrete type
type radioHolder struct {
	Radio
}

// radioSender forwards command transmissions to the armed radio
type radioSender struct {
	g *Gateway
}

func (s radioSender) Send(destination, payload []byte) error {
	h, ok := s.g.radio.Load().(radioHolder)
	if !ok {
		return radio.ErrNotInitialized
	}
	return h.Send(destination, payload)
}

// radioDone returns the radio's Done channel when it has one
func radioDone(r Radio) <-chan struct{} {
	if d, ok := r.(interface{ Done() <-chan struct{} }); ok {
		return d.Done()
	}
	return nil
}
