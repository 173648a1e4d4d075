// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

import (
	"fmt"
	"strings"
)

// FormatMessageType returns the link name of a bridge message type
func FormatMessageType(msgType uint8) string {
	switch msgType {
	case MsgConfigure:
		return "CONFIGURE"
	case MsgTransmit:
		return "TRANSMIT"
	case MsgReceived:
		return "RECEIVED"
	case MsgTransmitResult:
		return "TRANSMIT_RESULT"
	case MsgError:
		return "ERROR"
	default:
		return fmt.Sprintf("UNKNOWN(0x%02X)", msgType)
	}
}

// FormatErrorCode returns a readable name for a bridge error code
func FormatErrorCode(code ErrorCode) string {
	switch code {
	case ErrorNone:
		return "NONE"
	case ErrorInvalidConfig:
		return "INVALID_CONFIG"
	case ErrorNotConfigured:
		return "NOT_CONFIGURED"
	case ErrorRadioFault:
		return "RADIO_FAULT"
	case ErrorQueueFull:
		return "QUEUE_FULL"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(code))
	}
}

// FormatPacket formats a packet as a single human-readable line
func FormatPacket(p *Packet) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%s] %s", p.Timestamp().Format("15:04:05.000"), FormatMessageType(p.Type())))
	if err := p.ParseError(); err != nil {
		b.WriteString(fmt.Sprintf(" (decode error: %v)", err))
		return b.String()
	}
	b.WriteString(FormatPayloadMap(p.Type(), p.PayloadMap()))
	return b.String()
}

// FormatPayloadMap formats the payload of a known message type
func FormatPayloadMap(msgType uint8, m Fields) string {
	switch msgType {
	case MsgConfigure:
		ch, _ := m.Uint(KeyConfigChannel)
		addr, _ := m.Bytes(KeyConfigAddress)
		rate, _ := m.Uint(KeyConfigDataRate)
		power, _ := m.Uint(KeyConfigPowerLevel)
		return fmt.Sprintf(" channel=%d address=% X rate=%d power=%d", ch, addr, rate, power)

	case MsgTransmit:
		seq, _ := m.Uint(KeyTransmitSeq)
		dest, _ := m.Bytes(KeyTransmitDestination)
		frame, _ := m.Bytes(KeyTransmitPayload)
		return fmt.Sprintf(" seq=%d dest=% X len=%d", seq, dest, len(frame))

	case MsgReceived:
		frame, _ := m.Bytes(KeyReceivedPayload)
		return fmt.Sprintf(" len=%d data=% X", len(frame), frame)

	case MsgTransmitResult:
		seq, _ := m.Uint(KeyTransmitSeq)
		ok, _ := m.Bool(KeyResultOK)
		return fmt.Sprintf(" seq=%d ok=%t", seq, ok)

	case MsgError:
		code, _ := m.Uint(KeyErrorCode)
		return " code=" + FormatErrorCode(ErrorCode(code))
	}
	return ""
}
