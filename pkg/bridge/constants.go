// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package bridge implements the host side of the link between the field
// gateway and its nRF24L01 radio bridge.
//
// The bridge is a small microcontroller that owns the transceiver and talks to
// the gateway over a serial port (or a WebSocket relay). Every message on the
// link is a byte-stuffed packet protected by CRC-16-CCITT whose body is a CBOR
// array of [msg_type, payload_map].
//
//	START | len | cbor payload | crc16 (big-endian) | END
//
// Everything between START and END is byte-stuffed.
package bridge

// Link framing bytes
const (
	StartByte = 0x7E
	EndByte   = 0x7F
	EscByte   = 0x7D
	EscXor    = 0x20
)

// Packet size limits
const (
	MaxPayloadSize = 120
	MaxPacketSize  = 1 + MaxPayloadSize + 2 // length + payload + crc
)

// CRC-16-CCITT configuration
const (
	crcPolynomial = 0x1021
	crcInitial    = 0xFFFF
)

// Message types - Gateway → Bridge 0x10-0x2F
const (
	MsgConfigure = 0x10
	MsgTransmit  = 0x20
)

// Message types - Bridge → Gateway 0x30-0x3F
const (
	MsgReceived       = 0x30
	MsgTransmitResult = 0x31
)

// Message types - Errors (Bridge → Gateway) 0xE0-0xEF
const (
	MsgError = 0xE0
)

// Payload map keys for MsgConfigure
const (
	KeyConfigChannel        = 0
	KeyConfigAddress        = 1
	KeyConfigPowerLevel     = 2
	KeyConfigDataRate       = 3
	KeyConfigAutoAck        = 4
	KeyConfigDynamicAck     = 5
	KeyConfigDynamicPayload = 6
)

// Payload map keys for MsgTransmit and MsgTransmitResult
const (
	KeyTransmitSeq         = 0
	KeyTransmitDestination = 1
	KeyTransmitPayload     = 2
	KeyResultOK            = 1
)

// Payload map keys for MsgReceived and MsgError
const (
	KeyReceivedPayload = 0
	KeyErrorCode       = 0
)

// ErrorCode reported by the bridge in MsgError
type ErrorCode int

// Bridge error codes
const (
	ErrorNone          ErrorCode = 0x00
	ErrorInvalidConfig ErrorCode = 0x01
	ErrorNotConfigured ErrorCode = 0x02
	ErrorRadioFault    ErrorCode = 0x03
	ErrorQueueFull     ErrorCode = 0x04
)

// Decoder states (internal)
const (
	stateIdle = iota
	stateLength
	statePayload
	stateCRC1
	stateCRC2
	stateEnd
)
