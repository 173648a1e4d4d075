// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

import "fmt"

// AnomalyType represents different types of packet anomalies
type AnomalyType int

const (
	AnomalyMissingField AnomalyType = iota
	AnomalyInvalidValue
	AnomalyUnknownType
	AnomalyDecodeError
)

// ValidationError represents a packet validation failure
type ValidationError struct {
	Type    AnomalyType
	Message string
	Details map[string]interface{}
}

// Error implements the error interface
func (v *ValidationError) Error() string {
	return v.Message
}

// ValidatePacket validates packet structure and detects anomalies
// Returns a slice of validation errors (empty if packet is valid)
func ValidatePacket(p *Packet) []ValidationError {
	if err := p.ParseError(); err != nil {
		return []ValidationError{{
			Type:    AnomalyDecodeError,
			Message: fmt.Sprintf("CBOR decode failed: %v", err),
		}}
	}

	switch p.Type() {
	case MsgConfigure:
		return validateConfigure(p)
	case MsgTransmit:
		return validateTransmit(p)
	case MsgReceived:
		return validateReceived(p)
	case MsgTransmitResult:
		return validateTransmitResult(p)
	case MsgError:
		return requireKeys(p, "ERROR", KeyErrorCode)
	}

	return []ValidationError{{
		Type:    AnomalyUnknownType,
		Message: fmt.Sprintf("Unknown message type 0x%02X", p.Type()),
		Details: map[string]interface{}{"type": p.Type()},
	}}
}

func requireKeys(p *Packet, name string, keys ...int) []ValidationError {
	errors := []ValidationError{}
	m := p.PayloadMap()
	for _, k := range keys {
		if !m.Has(k) {
			errors = append(errors, ValidationError{
				Type:    AnomalyMissingField,
				Message: fmt.Sprintf("%s missing key %d", name, k),
				Details: map[string]interface{}{"key": k},
			})
		}
	}
	return errors
}

// validateConfigure validates CONFIGURE packet
func validateConfigure(p *Packet) []ValidationError {
	errors := requireKeys(p, "CONFIGURE",
		KeyConfigChannel, KeyConfigAddress, KeyConfigPowerLevel, KeyConfigDataRate,
		KeyConfigAutoAck, KeyConfigDynamicAck, KeyConfigDynamicPayload)
	if len(errors) > 0 {
		return errors
	}

	if ch, ok := p.PayloadMap().Uint(KeyConfigChannel); !ok || ch > 125 {
		errors = append(errors, ValidationError{
			Type:    AnomalyInvalidValue,
			Message: fmt.Sprintf("Invalid channel=%d (valid 0-125)", ch),
			Details: map[string]interface{}{"channel": ch, "max": 125},
		})
	}

	if addr, ok := p.PayloadMap().Bytes(KeyConfigAddress); !ok || len(addr) < 3 || len(addr) > 5 {
		errors = append(errors, ValidationError{
			Type:    AnomalyInvalidValue,
			Message: fmt.Sprintf("Invalid address length=%d (valid 3-5)", len(addr)),
			Details: map[string]interface{}{"length": len(addr)},
		})
	}

	return errors
}

// validateTransmit validates TRANSMIT packet
func validateTransmit(p *Packet) []ValidationError {
	errors := requireKeys(p, "TRANSMIT", KeyTransmitSeq, KeyTransmitDestination, KeyTransmitPayload)
	if len(errors) > 0 {
		return errors
	}

	frame, _ := p.PayloadMap().Bytes(KeyTransmitPayload)
	if len(frame) == 0 || len(frame) > 32 {
		errors = append(errors, ValidationError{
			Type:    AnomalyInvalidValue,
			Message: fmt.Sprintf("Invalid radio payload length=%d (valid 1-32)", len(frame)),
			Details: map[string]interface{}{"length": len(frame), "max": 32},
		})
	}

	return errors
}

// validateReceived validates RECEIVED packet
func validateReceived(p *Packet) []ValidationError {
	errors := requireKeys(p, "RECEIVED", KeyReceivedPayload)
	if len(errors) > 0 {
		return errors
	}

	if _, ok := p.PayloadMap().Bytes(KeyReceivedPayload); !ok {
		errors = append(errors, ValidationError{
			Type:    AnomalyInvalidValue,
			Message: "RECEIVED payload is not a byte string",
		})
	}

	return errors
}

// validateTransmitResult validates TRANSMIT_RESULT packet
func validateTransmitResult(p *Packet) []ValidationError {
	errors := requireKeys(p, "TRANSMIT_RESULT", KeyTransmitSeq, KeyResultOK)
	if len(errors) > 0 {
		return errors
	}

	if _, _, valid := TransmitResult(p); !valid {
		errors = append(errors, ValidationError{
			Type:    AnomalyInvalidValue,
			Message: "TRANSMIT_RESULT has malformed seq or result",
		})
	}

	return errors
}
