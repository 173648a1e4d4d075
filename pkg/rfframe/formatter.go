// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rfframe

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// FormatFrame formats a frame into a human-readable string
func FormatFrame(f *Frame) string {
	timestamp := f.timestamp.Format("15:04:05.000")
	msgType := FormatMessageType(f.Type())

	result := fmt.Sprintf("[%s] %s (0x%X) addrlen=%d len=%d\n", timestamp, msgType, uint8(f.Type()), f.AddressLength(), f.Len())

	address, err := f.Address()
	if err != nil {
		return result + fmt.Sprintf("  (truncated) Raw: %s\n", FormatHex(f.raw))
	}
	payload, _ := f.Payload()

	result += fmt.Sprintf("  Device: %s\n", FormatHex(address))

	switch f.Type() {
	case MsgDeviceIDPlusCSVSensorReadings:
		result += fmt.Sprintf("  Readings: %q\n", string(payload))
	default:
		result += formatPayload(payload)
	}

	return result
}

// FormatMessageType returns the human-readable name for a message type
func FormatMessageType(t MessageType) string {
	switch t {
	case MsgEcho:
		return "ECHO"
	case MsgDeviceIDPlusCSVSensorReadings:
		return "DEVICE_ID_PLUS_CSV_SENSOR_READINGS"
	case MsgDeviceIDPlusBinaryPayload:
		return "DEVICE_ID_PLUS_BINARY_PAYLOAD"
	default:
		return "UNKNOWN"
	}
}

// FormatText renders bytes as text, replacing invalid UTF-8 sequences
func FormatText(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	return strings.ToValidUTF8(string(b), "\uFFFD")
}

func formatPayload(payload []byte) string {
	if len(payload) == 0 {
		return "  (no payload)\n"
	}
	return fmt.Sprintf("  Payload: %s\n  Text:    %q\n", FormatHex(payload), FormatText(payload))
}
