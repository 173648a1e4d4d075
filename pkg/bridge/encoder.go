// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

import "fmt"

// Encoder encodes bridge link packets for transmission.
// Handles CBOR encoding, byte stuffing, and CRC calculation.
type Encoder struct{}

// NewEncoder creates a new bridge packet encoder.
func NewEncoder() *Encoder {
	return &Encoder{}
}

// Encode encodes a Packet to wire format.
func (e *Encoder) Encode(p *Packet) ([]byte, error) {
	return EncodePacketFromValues(p.Type(), p.PayloadMap())
}

// EncodePacketFromValues creates a complete wire-formatted bridge packet,
// framing and byte stuffing included.
func EncodePacketFromValues(msgType uint8, fields Fields) ([]byte, error) {
	cborPayload, err := encodeCBORPayload(msgType, fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode CBOR payload: %w", err)
	}

	if len(cborPayload) > MaxPayloadSize {
		return nil, fmt.Errorf("CBOR payload too large: %d bytes (max %d)", len(cborPayload), MaxPayloadSize)
	}

	// length + CBOR payload is what gets CRC'd and byte-stuffed
	data := make([]byte, 0, 1+len(cborPayload)+2)
	data = append(data, uint8(len(cborPayload)))
	data = append(data, cborPayload...)

	crc := CalculateCRC(data)
	data = append(data, byte(crc>>8), byte(crc&0xFF))

	stuffed := stuffBytes(data)

	packet := make([]byte, 0, len(stuffed)+2)
	packet = append(packet, StartByte)
	packet = append(packet, stuffed...)
	packet = append(packet, EndByte)

	return packet, nil
}

// MustEncodePacket encodes a Packet and panics on failure. Only use it for
// packets built from constants, e.g. in tests.
func MustEncodePacket(p *Packet) []byte {
	data, err := EncodePacketFromValues(p.Type(), p.PayloadMap())
	if err != nil {
		panic(fmt.Sprintf("bridge: encode error: %v", err))
	}
	return data
}
