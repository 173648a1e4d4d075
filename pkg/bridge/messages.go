// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

// Builders for messages exchanged with the radio bridge.

// RadioConfig carries the transceiver settings applied by MsgConfigure
type RadioConfig struct {
	Channel        uint8
	Address        []byte
	PowerLevel     uint8
	DataRate       uint8
	AutoAck        bool
	DynamicAck     bool
	DynamicPayload bool
}

// NewConfigure builds a MsgConfigure packet
func NewConfigure(cfg RadioConfig) *Packet {
	return NewPacketWithPayload(MsgConfigure, Fields{
		KeyConfigChannel:        uint64(cfg.Channel),
		KeyConfigAddress:        append([]byte(nil), cfg.Address...),
		KeyConfigPowerLevel:     uint64(cfg.PowerLevel),
		KeyConfigDataRate:       uint64(cfg.DataRate),
		KeyConfigAutoAck:        cfg.AutoAck,
		KeyConfigDynamicAck:     cfg.DynamicAck,
		KeyConfigDynamicPayload: cfg.DynamicPayload,
	})
}

// NewTransmit builds a MsgTransmit packet asking the bridge to send frame to
// the device at destination. seq is echoed back in MsgTransmitResult.
func NewTransmit(seq uint32, destination, frame []byte) *Packet {
	return NewPacketWithPayload(MsgTransmit, Fields{
		KeyTransmitSeq:         uint64(seq),
		KeyTransmitDestination: append([]byte(nil), destination...),
		KeyTransmitPayload:     append([]byte(nil), frame...),
	})
}

// NewReceived builds a MsgReceived packet carrying a raw radio frame
func NewReceived(frame []byte) *Packet {
	return NewPacketWithPayload(MsgReceived, Fields{
		KeyReceivedPayload: append([]byte(nil), frame...),
	})
}

// NewTransmitResult builds a MsgTransmitResult packet
func NewTransmitResult(seq uint32, ok bool) *Packet {
	return NewPacketWithPayload(MsgTransmitResult, Fields{
		KeyTransmitSeq: uint64(seq),
		KeyResultOK:    ok,
	})
}

// NewError builds a MsgError packet
func NewError(code ErrorCode) *Packet {
	return NewPacketWithPayload(MsgError, Fields{
		KeyErrorCode: uint64(code),
	})
}

// ReceivedFrame extracts the radio frame from a MsgReceived packet
func ReceivedFrame(p *Packet) ([]byte, bool) {
	if p.Type() != MsgReceived {
		return nil, false
	}
	return p.PayloadMap().Bytes(KeyReceivedPayload)
}

// TransmitResult extracts the sequence number and outcome of a
// MsgTransmitResult packet
func TransmitResult(p *Packet) (seq uint32, ok bool, valid bool) {
	if p.Type() != MsgTransmitResult {
		return 0, false, false
	}
	s, hasSeq := p.PayloadMap().Uint(KeyTransmitSeq)
	res, hasResult := p.PayloadMap().Bool(KeyResultOK)
	if !hasSeq || !hasResult || s > 0xFFFFFFFF {
		return 0, false, false
	}
	return uint32(s), res, true
}
