// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rfframe

import (
	"fmt"
	"time"
)

// Frame is a decoded radio frame. Only the header is interpreted on decode;
// the address and payload are sliced lazily so a frame with a header that
// claims more address bytes than were received can still be inspected.
type Frame struct {
	raw       []byte
	timestamp time.Time
}

// Decode parses the header of a received frame.
// It only fails when data does not even hold a header byte.
func Decode(data []byte) (*Frame, error) {
	if len(data) < HeaderSize {
		return nil, ErrFrameTooShort
	}

	raw := make([]byte, len(data))
	copy(raw, data)

	return &Frame{raw: raw, timestamp: time.Now()}, nil
}

// Type returns the message type from the high nibble of the header
func (f *Frame) Type() MessageType {
	return MessageType(f.raw[0] >> typeShift)
}

// AddressLength returns the address length from the low nibble of the header
func (f *Frame) AddressLength() int {
	return int(f.raw[0] & addressMask)
}

// Len returns the total frame length in bytes
func (f *Frame) Len() int {
	return len(f.raw)
}

// Bytes returns the frame as received
func (f *Frame) Bytes() []byte {
	return f.raw
}

// Timestamp returns the decode timestamp
func (f *Frame) Timestamp() time.Time {
	return f.timestamp
}

// Address returns the device address following the header.
func (f *Frame) Address() ([]byte, error) {
	end := HeaderSize + f.AddressLength()
	if len(f.raw) < end {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrAddressTruncated, end, len(f.raw))
	}
	return f.raw[HeaderSize:end], nil
}

// Payload returns everything after the device address.
func (f *Frame) Payload() ([]byte, error) {
	end := HeaderSize + f.AddressLength()
	if len(f.raw) < end {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrAddressTruncated, end, len(f.raw))
	}
	return f.raw[end:], nil
}

// header packs a message type and address length into a header byte
func header(t MessageType, addressLength int) byte {
	return byte(t)<<typeShift | byte(addressLength)&addressMask
}
