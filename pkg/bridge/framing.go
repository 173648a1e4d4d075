// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

import "fmt"

// CalculateCRC computes the CRC-16-CCITT checksum of a link packet body
func CalculateCRC(data []byte) uint16 {
	crc := uint16(crcInitial)
	for _, b := range data {
		crc ^= uint16(b) << 8
		for bit := 0; bit < 8; bit++ {
			if crc&0x8000 == 0 {
				crc <<= 1
				continue
			}
			crc = (crc << 1) ^ crcPolynomial
		}
	}
	return crc
}

// needsEscape reports whether b collides with a framing byte
func needsEscape(b byte) bool {
	return b == StartByte || b == EndByte || b == EscByte
}

// stuffBytes escapes framing bytes as ESC + (byte XOR EscXor).
func stuffBytes(data []byte) []byte {
	result := make([]byte, 0, len(data)+len(data)/4)
	for _, b := range data {
		if needsEscape(b) {
			result = append(result, EscByte, b^EscXor)
			continue
		}
		result = append(result, b)
	}
	return result
}

// UnstuffBytes removes byte stuffing from escaped data.
func UnstuffBytes(data []byte) ([]byte, error) {
	result := make([]byte, 0, len(data))
	escapeNext := false

	for _, b := range data {
		switch {
		case escapeNext:
			result = append(result, b^EscXor)
			escapeNext = false
		case b == EscByte:
			escapeNext = true
		default:
			result = append(result, b)
		}
	}

	if escapeNext {
		return nil, fmt.Errorf("incomplete escape sequence at end of data")
	}
	return result, nil
}
