// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package command implements the cloud-invoked gateway commands.
package command

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/Thermoquad/fieldgate/internal/config"
	"github.com/Thermoquad/fieldgate/internal/observability"
	"github.com/Thermoquad/fieldgate/internal/pending"
	"github.com/Thermoquad/fieldgate/pkg/rfframe"
)

// Status codes returned to the cloud
const (
	StatusOK              = http.StatusOK
	StatusBadRequest      = http.StatusBadRequest
	StatusConflict        = http.StatusConflict
	StatusPayloadTooLarge = http.StatusRequestEntityTooLarge
	StatusAddressTooLong  = http.StatusRequestURITooLong
	StatusUnavailable     = http.StatusServiceUnavailable
)

// Device address bounds accepted by Bond, Send and Push
const (
	MinDeviceAddressLength = rfframe.MinDeviceAddressLength
	MaxDeviceAddressLength = rfframe.MaxDeviceAddressLength
)

// Handler serves one command invocation
type Handler func(body []byte) (status int, response []byte)

// Radio transmits payloads to devices. Send only queues the transmission;
// the outcome is reported later by the radio.
type Radio interface {
	Send(destination, payload []byte) error
}

// Restarter restarts the gateway after delay
type Restarter interface {
	ScheduleRestart(delay time.Duration)
}

// Options wires a Translator to its collaborators
type Options struct {
	Radio          Radio
	Pending        *pending.Registry
	Restarter      Restarter
	GatewayAddress []byte
	RestartDelay   time.Duration
	// Available gates every command; nil means always available
	Available func() bool
	Logger    zerolog.Logger
}

// Translator turns command requests into radio transmissions
type Translator struct {
	opts    Options
	encoder *rfframe.Encoder
	logger  zerolog.Logger
}

// BondRequest is the Bond command body
type BondRequest struct {
	DeviceAddress string
}

// SendRequest is the Send command body
type SendRequest struct {
	DeviceAddress string
	DevicePayload string
}

// PushRequest is the Push command body
type PushRequest struct {
	DeviceAddress string
	DevicePayload string
}

var errTrailingData = errors.New("unexpected data after request object")

// NewTranslator creates a Translator
func NewTranslator(opts Options) *Translator {
	if opts.Pending == nil {
		opts.Pending = pending.NewRegistry()
	}
	return &Translator{
		opts:    opts,
		encoder: rfframe.NewEncoder(rfframe.WithAddressLimits(MinDeviceAddressLength, MaxDeviceAddressLength)),
		logger:  opts.Logger.With().Str("component", "command").Logger(),
	}
}

// Handlers returns the handlers named in enabled, each wrapped so it never
// panics and answers 503 while the gateway is unavailable.
func (t *Translator) Handlers(enabled []string) map[string]Handler {
	all := map[string]Handler{
		config.CommandRestart: t.Restart,
		config.CommandBond:    t.Bond,
		config.CommandSend:    t.Send,
		config.CommandPush:    t.Push,
	}

	handlers := make(map[string]Handler, len(enabled))
	for _, name := range config.AllCommands {
		if !config.CommandListed(enabled, name) {
			continue
		}
		handlers[name] = t.guard(name, all[name])
	}
	return handlers
}

func (t *Translator) guard(name string, h Handler) Handler {
	return func(body []byte) (status int, response []byte) {
		defer func() {
			if r := recover(); r != nil {
				t.logger.Error().Str("command", name).Interface("panic", r).Msg("command handler panicked")
				status, response = StatusBadRequest, message("internal error")
			}
			observability.RecordCommand(name, status)
		}()

		if t.opts.Available != nil && !t.opts.Available() {
			return StatusUnavailable, message("gateway not running")
		}
		return h(body)
	}
}

// Restart schedules a delayed gateway restart
func (t *Translator) Restart(_ []byte) (int, []byte) {
	t.logger.Info().Dur("delay", t.opts.RestartDelay).Msg("restart requested")
	if t.opts.Restarter != nil {
		t.opts.Restarter.ScheduleRestart(t.opts.RestartDelay)
	}
	return StatusOK, nil
}

// Bond sends an empty payload to a device address
func (t *Translator) Bond(body []byte) (int, []byte) {
	var req BondRequest
	if err := decodeRequest(body, &req); err != nil {
		return badRequest(err)
	}

	address, status, err := t.deviceAddress(req.DeviceAddress)
	if err != nil {
		return status, message(err.Error())
	}

	if err := t.opts.Radio.Send(address, nil); err != nil {
		t.logger.Warn().Err(err).Str("address", rfframe.FormatHex(address)).Msg("bond transmit failed")
		return badRequest(err)
	}

	t.logger.Info().Str("address", rfframe.FormatHex(address)).Msg("bond sent")
	return StatusOK, nil
}

// Send queues a payload for a device, allowing one in flight per address
func (t *Translator) Send(body []byte) (int, []byte) {
	var req SendRequest
	if err := decodeRequest(body, &req); err != nil {
		return badRequest(err)
	}

	address, status, err := t.deviceAddress(req.DeviceAddress)
	if err != nil {
		return status, message(err.Error())
	}

	payload, err := rfframe.ParseHex(req.DevicePayload)
	if err != nil {
		return badRequest(err)
	}
	if len(payload) > rfframe.MaxFrameSize {
		return StatusPayloadTooLarge, message(fmt.Sprintf("payload is %d bytes, maximum %d", len(payload), rfframe.MaxFrameSize))
	}

	if !t.opts.Pending.TryAdd(address, payload) {
		return StatusConflict, message("send already pending for " + rfframe.FormatHex(address))
	}
	observability.SetPendingSends(t.opts.Pending.Len())

	if err := t.opts.Radio.Send(address, payload); err != nil {
		t.opts.Pending.Release(address, payload)
		observability.SetPendingSends(t.opts.Pending.Len())
		t.logger.Warn().Err(err).Str("address", rfframe.FormatHex(address)).Msg("send transmit failed")
		return badRequest(err)
	}

	t.logger.Info().
		Str("address", rfframe.FormatHex(address)).
		Str("payload", rfframe.FormatHex(payload)).
		Msg("send queued")
	return StatusOK, message("queued")
}

// Push wraps a payload in a binary frame carrying the gateway's own address
// and transmits it to a device.
func (t *Translator) Push(body []byte) (int, []byte) {
	var req PushRequest
	if err := decodeRequest(body, &req); err != nil {
		return badRequest(err)
	}

	address, err := rfframe.ParseHex(req.DeviceAddress)
	if err != nil {
		return badRequest(err)
	}
	if n := len(address); n < MinDeviceAddressLength || n > MaxDeviceAddressLength {
		return badRequest(fmt.Errorf("%w: device address is %d bytes", rfframe.ErrAddressTooLong, n))
	}

	payload, err := rfframe.ParseHex(req.DevicePayload)
	if err != nil {
		return badRequest(err)
	}

	frame, err := t.encoder.Encode(rfframe.MsgDeviceIDPlusBinaryPayload, t.opts.GatewayAddress, payload)
	if err != nil {
		return badRequest(err)
	}

	if err := t.opts.Radio.Send(address, frame); err != nil {
		t.logger.Warn().Err(err).Str("address", rfframe.FormatHex(address)).Msg("push transmit failed")
		return badRequest(err)
	}

	t.logger.Info().
		Str("address", rfframe.FormatHex(address)).
		Str("frame", rfframe.FormatHex(frame)).
		Msg("push sent")
	return StatusOK, nil
}

// deviceAddress parses a device address and maps failures to status codes
func (t *Translator) deviceAddress(text string) ([]byte, int, error) {
	address, err := rfframe.ParseHex(text)
	if err != nil {
		return nil, StatusBadRequest, err
	}
	if n := len(address); n < MinDeviceAddressLength || n > MaxDeviceAddressLength {
		return nil, StatusAddressTooLong, fmt.Errorf("%w: device address is %d bytes, valid %d-%d",
			rfframe.ErrAddressTooLong, n, MinDeviceAddressLength, MaxDeviceAddressLength)
	}
	return address, StatusOK, nil
}

// decodeRequest strictly decodes a JSON request body into v
func decodeRequest(body []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errTrailingData
	}
	return nil
}

func badRequest(err error) (int, []byte) {
	return StatusBadRequest, message(err.Error())
}

func message(msg string) []byte {
	data, _ := json.Marshal(struct {
		Message string `json:"message"`
	}{msg})
	return data
}
