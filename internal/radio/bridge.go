// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package radio

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Thermoquad/fieldgate/pkg/bridge"
)

type outbound struct {
	destination []byte
	payload     []byte
}

// Bridge talks to the radio bridge over a Connection. Send is asynchronous:
// the outcome arrives later through Callbacks.
type Bridge struct {
	conn      Connection
	callbacks Callbacks
	logger    zerolog.Logger

	encoder *bridge.Encoder
	writeMu sync.Mutex

	mu          sync.Mutex
	initialized bool
	closed      bool
	seq         uint32
	inflight    map[uint32]outbound

	done      chan struct{}
	closeOnce sync.Once
}

// NewBridge wraps conn. Nothing is sent until Initialize.
func NewBridge(conn Connection, callbacks Callbacks, logger zerolog.Logger) *Bridge {
	return &Bridge{
		conn:      conn,
		callbacks: callbacks,
		logger:    logger.With().Str("component", "radio").Logger(),
		encoder:   bridge.NewEncoder(),
		inflight:  make(map[uint32]outbound),
		done:      make(chan struct{}),
	}
}

// Initialize configures the transceiver and starts delivering events
func (b *Bridge) Initialize(s Settings) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	if b.initialized {
		b.mu.Unlock()
		return fmt.Errorf("radio: already initialized")
	}
	b.initialized = true
	b.mu.Unlock()

	if err := b.write(bridge.NewConfigure(s.bridgeConfig())); err != nil {
		return fmt.Errorf("radio: configure: %w", err)
	}

	b.logger.Info().
		Uint8("channel", s.Channel).
		Str("address", string(s.Address)).
		Uint8("power_level", s.PowerLevel).
		Uint8("data_rate", s.DataRate).
		Bool("auto_ack", s.AutoAck).
		Bool("dynamic_ack", s.DynamicAck).
		Bool("dynamic_payload", s.DynamicPayload).
		Msg("nRF24L01 configuration")

	go b.readLoop()
	return nil
}

// Send queues payload for destination
func (b *Bridge) Send(destination, payload []byte) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	if !b.initialized {
		b.mu.Unlock()
		return ErrNotInitialized
	}
	b.seq++
	seq := b.seq
	b.inflight[seq] = outbound{
		destination: append([]byte(nil), destination...),
		payload:     append([]byte(nil), payload...),
	}
	b.mu.Unlock()

	if err := b.write(bridge.NewTransmit(seq, destination, payload)); err != nil {
		b.mu.Lock()
		delete(b.inflight, seq)
		b.mu.Unlock()
		return fmt.Errorf("radio: transmit: %w", err)
	}
	return nil
}

// Close stops the read loop and fails every transmit still in flight
func (b *Bridge) Close() error {
	var err error
	b.closeOnce.Do(func() {
		b.mu.Lock()
		b.closed = true
		b.mu.Unlock()
		err = b.conn.Close()
	})
	return err
}

// Done is closed once the read loop exits
func (b *Bridge) Done() <-chan struct{} {
	return b.done
}

func (b *Bridge) write(p *bridge.Packet) error {
	data, err := b.encoder.Encode(p)
	if err != nil {
		return err
	}
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	_, err = b.conn.Write(data)
	return err
}

func (b *Bridge) readLoop() {
	defer close(b.done)
	defer b.failInflight()

	decoder := bridge.NewDecoder()
	buf := make([]byte, 256)
	for {
		n, err := b.conn.Read(buf)
		if n > 0 {
			packets := decoder.Decode(buf[:n], func(err error) {
				b.logger.Warn().Err(err).Msg("bridge link decode error")
			})
			for _, p := range packets {
				b.handlePacket(p)
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !b.isClosed() {
				b.logger.Error().Err(err).Msg("bridge link read failed")
			}
			return
		}
	}
}

func (b *Bridge) handlePacket(p *bridge.Packet) {
	if errs := bridge.ValidatePacket(p); len(errs) > 0 {
		b.logger.Warn().Str("packet", bridge.FormatPacket(p)).Str("anomaly", errs[0].Message).Msg("invalid bridge packet")
		return
	}

	switch p.Type() {
	case bridge.MsgReceived:
		frame, _ := bridge.ReceivedFrame(p)
		if b.callbacks.Received != nil {
			b.callbacks.Received(frame)
		}

	case bridge.MsgTransmitResult:
		seq, ok, _ := bridge.TransmitResult(p)
		b.mu.Lock()
		out, found := b.inflight[seq]
		delete(b.inflight, seq)
		b.mu.Unlock()
		if !found {
			b.logger.Warn().Uint32("seq", seq).Msg("transmit result for unknown sequence")
			return
		}
		b.report(out, ok, ErrTransmitFailed)

	case bridge.MsgError:
		code, _ := p.PayloadMap().Uint(bridge.KeyErrorCode)
		b.logger.Error().Str("code", bridge.FormatErrorCode(bridge.ErrorCode(code))).Msg("radio bridge reported error")

	default:
		b.logger.Debug().Str("packet", bridge.FormatPacket(p)).Msg("ignored bridge packet")
	}
}

func (b *Bridge) report(out outbound, ok bool, failure error) {
	if ok {
		if b.callbacks.TransmitSucceeded != nil {
			b.callbacks.TransmitSucceeded(out.destination, out.payload)
		}
		return
	}
	if b.callbacks.TransmitFailed != nil {
		b.callbacks.TransmitFailed(out.destination, out.payload, failure)
	}
}

func (b *Bridge) failInflight() {
	b.mu.Lock()
	b.closed = true
	pending := b.inflight
	b.inflight = make(map[uint32]outbound)
	b.mu.Unlock()

	for _, out := range pending {
		b.report(out, false, ErrClosed)
	}
}

func (b *Bridge) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}
