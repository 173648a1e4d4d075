// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

import "time"

// Packet is one message on the bridge link. Packets read off the wire keep
// their raw body and decode it on first access.
type Packet struct {
	length    uint8
	body      []byte
	crc       uint16
	timestamp time.Time

	decoded  bool
	msgType  uint8
	fields   Fields
	parseErr error
}

// NewPacket wraps a raw body received from the link
func NewPacket(length uint8, body []byte, crc uint16) *Packet {
	return &Packet{
		length:    length,
		body:      body,
		crc:       crc,
		timestamp: time.Now(),
	}
}

// NewPacketWithPayload builds an outbound packet. Body and CRC are produced
// by the encoder.
func NewPacketWithPayload(msgType uint8, fields Fields) *Packet {
	return &Packet{
		msgType:   msgType,
		fields:    fields,
		decoded:   true,
		timestamp: time.Now(),
	}
}

func (p *Packet) decode() {
	if p.decoded {
		return
	}
	p.decoded = true
	p.msgType, p.fields, p.parseErr = ParseCBORMessage(p.body)
}

// Length is the body length as sent on the wire
func (p *Packet) Length() uint8 {
	return p.length
}

func (p *Packet) Type() uint8 {
	p.decode()
	return p.msgType
}

// Payload returns the raw CBOR body
func (p *Packet) Payload() []byte {
	return p.body
}

// PayloadMap returns the message fields, nil when there are none
func (p *Packet) PayloadMap() Fields {
	p.decode()
	return p.fields
}

// ParseError reports a body that could not be decoded
func (p *Packet) ParseError() error {
	p.decode()
	return p.parseErr
}

func (p *Packet) CRC() uint16 {
	return p.crc
}

// Timestamp is when the packet was decoded or built
func (p *Packet) Timestamp() time.Time {
	return p.timestamp
}
