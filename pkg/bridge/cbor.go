// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// ErrEmptyBody is returned for a packet that carries no CBOR body
var ErrEmptyBody = errors.New("bridge: empty message body")

// message is the CBOR body of every packet: [msg_type, fields]. A message
// without fields carries null in the second slot.
type message struct {
	_      struct{} `cbor:",toarray"`
	Type   uint8
	Fields Fields
}

var (
	// Deterministic encoding keeps identical messages byte-identical on the
	// wire, which the bridge firmware relies on for duplicate detection.
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	if encMode, err = cbor.CoreDetEncOptions().EncMode(); err != nil {
		panic(err)
	}
	decMode, err = cbor.DecOptions{
		DupMapKey:        cbor.DupMapKeyEnforcedAPF,
		MaxNestedLevels:  4,
		MaxArrayElements: MaxPayloadSize,
		MaxMapPairs:      MaxPayloadSize,
	}.DecMode()
	if err != nil {
		panic(err)
	}
}

// Fields is the integer-keyed map carried by a message. Values decode as
// uint64, int64, bool or []byte.
type Fields map[int]interface{}

// Uint returns the unsigned integer stored under key
func (f Fields) Uint(key int) (uint64, bool) {
	switch v := f[key].(type) {
	case uint64:
		return v, true
	case int64:
		if v >= 0 {
			return uint64(v), true
		}
	}
	return 0, false
}

// Bool returns the boolean stored under key
func (f Fields) Bool(key int) (bool, bool) {
	v, ok := f[key].(bool)
	return v, ok
}

// Bytes returns the byte string stored under key
func (f Fields) Bytes(key int) ([]byte, bool) {
	v, ok := f[key].([]byte)
	return v, ok
}

// Has reports whether key is present
func (f Fields) Has(key int) bool {
	_, ok := f[key]
	return ok
}

// ParseCBORMessage decodes a packet body into its message type and fields.
// Fields is nil for messages that carry none.
func ParseCBORMessage(data []byte) (uint8, Fields, error) {
	if len(data) == 0 {
		return 0, nil, ErrEmptyBody
	}

	var msg message
	if err := decMode.Unmarshal(data, &msg); err != nil {
		return 0, nil, fmt.Errorf("bridge: decode message body: %w", err)
	}
	return msg.Type, msg.Fields, nil
}

func encodeCBORPayload(msgType uint8, fields Fields) ([]byte, error) {
	msg := message{Type: msgType}
	if len(fields) > 0 {
		msg.Fields = fields
	}
	return encMode.Marshal(msg)
}
