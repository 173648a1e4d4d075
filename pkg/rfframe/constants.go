// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package rfframe implements the compact radio frame exchanged between the
// field gateway and battery powered nRF24L01 sensor nodes.
//
// Every frame starts with a single header byte. The high nibble carries the
// message type and the low nibble the length of the device address that
// immediately follows the header. Whatever remains after the address is the
// payload, interpreted according to the message type.
//
//	+--------+-------------------+---------------------------+
//	| Header | Address           | Payload                   |
//	+--------+-------------------+---------------------------+
//	| 1 byte | 0-15 bytes        | 0-(23-address) bytes      |
//	+--------+-------------------+---------------------------+
//
// The whole frame never exceeds MaxFrameSize bytes.
package rfframe

// Frame size limits
const (
	HeaderSize       = 1
	MaxFrameSize     = 24 // hardware payload ceiling used by the sensor nodes
	MaxAddressLength = 0x0F
)

// Address length policy applied to device addresses on the command path
const (
	MinDeviceAddressLength = 3
	MaxDeviceAddressLength = 5
)

// Header nibble layout
const (
	typeShift   = 4
	addressMask = 0x0F
)

// MessageType is the high nibble of the frame header.
type MessageType uint8

// Message types
const (
	MsgEcho                          MessageType = 0x0
	MsgDeviceIDPlusCSVSensorReadings MessageType = 0x1
	MsgDeviceIDPlusBinaryPayload     MessageType = 0x2
)
