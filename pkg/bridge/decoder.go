// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

import (
	"errors"
	"fmt"
	"time"
)

// ErrCRCMismatch is returned by the decoder when a packet fails its checksum
var ErrCRCMismatch = errors.New("bridge: CRC mismatch")

// Decoder implements the bridge link packet decoder state machine
type Decoder struct {
	state       int
	buffer      []byte
	bufferIndex int
	escapeNext  bool
	packet      *Packet
	rawBuffer   []byte // Accumulate raw bytes including framing
}

// NewDecoder creates a new link decoder
func NewDecoder() *Decoder {
	return &Decoder{
		state:     stateIdle,
		buffer:    make([]byte, MaxPacketSize),
		rawBuffer: make([]byte, 0, MaxPacketSize*2),
	}
}

// Reset resets the decoder state to idle
func (d *Decoder) Reset() {
	d.state = stateIdle
	d.bufferIndex = 0
	d.escapeNext = false
	d.packet = nil
	d.rawBuffer = d.rawBuffer[:0]
}

// GetRawBytes returns the accumulated raw bytes since the last packet
func (d *Decoder) GetRawBytes() []byte {
	return d.rawBuffer
}

// Decode feeds a chunk of bytes through the decoder and returns every packet
// completed by it. Decode errors are reported through onError and do not stop
// decoding of the remaining bytes.
func (d *Decoder) Decode(data []byte, onError func(error)) []*Packet {
	var packets []*Packet
	for _, b := range data {
		p, err := d.DecodeByte(b)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			continue
		}
		if p != nil {
			packets = append(packets, p)
		}
	}
	return packets
}

// DecodeByte processes a single byte through the decoder state machine
// Returns a completed packet, or nil if the packet is incomplete
// Returns an error if decoding fails
func (d *Decoder) DecodeByte(b byte) (*Packet, error) {
	d.rawBuffer = append(d.rawBuffer, b)

	// Framing bytes are never escaped on the wire, so they resynchronise
	// the decoder regardless of the escape state.
	switch {
	case b == StartByte:
		d.Reset()
		d.rawBuffer = append(d.rawBuffer[:0], b)
		d.state = stateLength
		return nil, nil

	case b == EndByte:
		return d.finish()

	case b == EscByte && !d.escapeNext:
		d.escapeNext = true
		return nil, nil
	}

	if d.escapeNext {
		b ^= EscXor
		d.escapeNext = false
	}

	switch d.state {
	case stateIdle:
		// Waiting for START byte
		return nil, nil

	case stateLength:
		if b > MaxPayloadSize {
			d.Reset()
			return nil, fmt.Errorf("invalid length: %d (max %d)", b, MaxPayloadSize)
		}
		d.packet = &Packet{length: b, body: make([]byte, 0, b)}
		d.buffer[d.bufferIndex] = b
		d.bufferIndex++
		if b == 0 {
			d.state = stateCRC1
		} else {
			d.state = statePayload
		}
		return nil, nil

	case statePayload:
		if d.bufferIndex >= MaxPacketSize {
			d.Reset()
			return nil, fmt.Errorf("buffer overflow: packet exceeds max size")
		}
		d.packet.body = append(d.packet.body, b)
		d.buffer[d.bufferIndex] = b
		d.bufferIndex++
		if len(d.packet.body) >= int(d.packet.length) {
			d.state = stateCRC1
		}
		return nil, nil

	case stateCRC1:
		d.packet.crc = uint16(b) << 8
		d.state = stateCRC2
		return nil, nil

	case stateCRC2:
		d.packet.crc |= uint16(b)
		d.state = stateEnd
		return nil, nil

	case stateEnd:
		d.Reset()
		return nil, fmt.Errorf("trailing byte 0x%02X before END", b)

	default:
		d.Reset()
		return nil, fmt.Errorf("invalid state: %d", d.state)
	}
}

// finish validates the packet terminated by an END byte
func (d *Decoder) finish() (*Packet, error) {
	defer d.Reset()

	if d.state == stateIdle {
		return nil, nil
	}
	if d.state != stateEnd || d.escapeNext {
		return nil, fmt.Errorf("unexpected END byte in state %d", d.state)
	}

	packet := d.packet
	calculatedCRC := CalculateCRC(d.buffer[:d.bufferIndex])
	if packet.crc != calculatedCRC {
		return nil, fmt.Errorf("%w: expected 0x%04X, got 0x%04X", ErrCRCMismatch, calculatedCRC, packet.crc)
	}

	packet.timestamp = time.Now()
	return packet, nil
}
