// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package telemetry turns inbound radio frames into cloud telemetry documents
// and diagnostic records.
package telemetry

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Thermoquad/fieldgate/pkg/rfframe"
)

// DeviceIDField is the document key holding the sender's address
const DeviceIDField = "DeviceID"

var (
	ErrPayloadEmpty     = errors.New("telemetry: payload is empty")
	ErrNoReadings       = errors.New("telemetry: payload contains no sensor readings")
	ErrMalformedReading = errors.New("telemetry: sensor reading invalid format")
	ErrDuplicateReading = errors.New("telemetry: duplicate sensor reading")
)

// DiagnosticRecord is the loggable rendering of a frame that is never
// forwarded to the cloud.
type DiagnosticRecord struct {
	Length int
	Hex    string
	Text   string
}

// TranslateEcho renders data as hex and best-effort UTF-8 text
func TranslateEcho(data []byte) DiagnosticRecord {
	return DiagnosticRecord{
		Length: len(data),
		Hex:    rfframe.FormatHex(data),
		Text:   rfframe.FormatText(data),
	}
}

// Reading is one sensorId/value pair from a CSV payload
type Reading struct {
	SensorID string
	Value    string
}

// ParseReadings splits a CSV payload into readings. Empty segments and empty
// tokens are skipped; every remaining segment must hold exactly two tokens.
func ParseReadings(payload string) ([]Reading, error) {
	var readings []Reading
	for i, segment := range strings.Split(payload, ",") {
		if segment == "" {
			continue
		}
		tokens := splitTokens(segment)
		if len(tokens) != 2 {
			return nil, fmt.Errorf("%w: segment %d %q has %d tokens", ErrMalformedReading, i, segment, len(tokens))
		}
		readings = append(readings, Reading{SensorID: tokens[0], Value: tokens[1]})
	}
	if len(readings) == 0 {
		return nil, ErrNoReadings
	}
	return readings, nil
}

func splitTokens(segment string) []string {
	var tokens []string
	for _, tok := range strings.Split(segment, " ") {
		if tok != "" {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

// TranslateSensorCSV builds the telemetry document for a sensor readings
// frame. When sensorIDIsDeviceIDSensorID is set each key is prefixed with the
// device id. Nothing is returned unless every reading is valid.
func TranslateSensorCSV(address, payload []byte, sensorIDIsDeviceIDSensorID bool) (*Document, error) {
	if len(payload) == 0 {
		return nil, ErrPayloadEmpty
	}

	readings, err := ParseReadings(string(payload))
	if err != nil {
		return nil, err
	}

	deviceID := rfframe.FormatHex(address)
	doc := NewDocument()
	doc.Set(DeviceIDField, deviceID)

	for _, r := range readings {
		k := r.SensorID
		if sensorIDIsDeviceIDSensorID {
			k = deviceID + r.SensorID
		}
		if _, exists := doc.Get(k); exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateReading, k)
		}
		doc.Set(k, r.Value)
	}

	return doc, nil
}
