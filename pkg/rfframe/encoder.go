// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rfframe

import "fmt"

// Encoder builds radio frames, optionally enforcing an address length policy.
// The zero value accepts any address that fits in the header nibble.
type Encoder struct {
	minAddressLength int
	maxAddressLength int
}

// EncoderOption configures an Encoder.
type EncoderOption func(*Encoder)

// WithAddressLimits restricts encoded addresses to [min, max] bytes.
func WithAddressLimits(minLen, maxLen int) EncoderOption {
	return func(e *Encoder) {
		e.minAddressLength = minLen
		e.maxAddressLength = maxLen
	}
}

// NewEncoder creates a new radio frame encoder.
func NewEncoder(opts ...EncoderOption) *Encoder {
	e := &Encoder{maxAddressLength: MaxAddressLength}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Encode builds a frame of the given type: header, address, then payload.
func (e *Encoder) Encode(t MessageType, address, payload []byte) ([]byte, error) {
	if err := e.checkAddress(address); err != nil {
		return nil, err
	}
	return EncodeFrame(t, address, payload)
}

func (e *Encoder) checkAddress(address []byte) error {
	limit := e.maxAddressLength
	if limit == 0 || limit > MaxAddressLength {
		limit = MaxAddressLength
	}
	if len(address) < e.minAddressLength || len(address) > limit {
		return fmt.Errorf("%w: %d bytes (allowed %d-%d)", ErrAddressTooLong, len(address), e.minAddressLength, limit)
	}
	return nil
}

// EncodeFrame builds a frame without any address length policy beyond the
// 4-bit header limit.
func EncodeFrame(t MessageType, address, payload []byte) ([]byte, error) {
	if len(address) > MaxAddressLength {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrAddressTooLong, len(address), MaxAddressLength)
	}

	frameLen := HeaderSize + len(address) + len(payload)
	if frameLen > MaxFrameSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrPayloadTooLong, frameLen, MaxFrameSize)
	}

	frame := make([]byte, 0, frameLen)
	frame = append(frame, header(t, len(address)))
	frame = append(frame, address...)
	frame = append(frame, payload...)

	return frame, nil
}
