// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config loads the gateway settings file.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"
)

// DefaultPath is the settings file used when no --config flag is given
const DefaultPath = "config.json"

var (
	ErrNotFound        = errors.New("config: settings file not found")
	ErrTemplateCreated = errors.New("config: settings template created, edit it and restart")
	ErrMissingField    = errors.New("config: required field missing")
	ErrInvalid         = errors.New("config: invalid setting")
)

// TransportType selects the cloud transport
type TransportType string

const (
	TransportNats      TransportType = "Nats"
	TransportWebSocket TransportType = "WebSocket"
)

// DataRate is the radio air data rate
type DataRate string

const (
	DR250Kbps DataRate = "DR250Kbps"
	DR1Mbps   DataRate = "DR1Mbps"
	DR2Mbps   DataRate = "DR2Mbps"
)

// PowerLevel is the radio transmit power
type PowerLevel string

const (
	PowerMinimum PowerLevel = "Minimum"
	PowerLow     PowerLevel = "Low"
	PowerHigh    PowerLevel = "High"
	PowerMaximum PowerLevel = "Maximum"
)

// Command names accepted in EnabledCommands
const (
	CommandRestart = "Restart"
	CommandBond    = "Bond"
	CommandSend    = "Send"
	CommandPush    = "Push"
)

// AllCommands lists every command the gateway can expose
var AllCommands = []string{CommandRestart, CommandBond, CommandSend, CommandPush}

// Duration is a time.Duration stored as a Go duration string ("30s")
type Duration time.Duration

// MarshalJSON implements json.Marshaler
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON implements json.Unmarshaler
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Settings is the gateway configuration. It is loaded once at startup and
// never modified afterwards.
type Settings struct {
	CloudConnectionString      string
	CloudTransportType         TransportType
	SensorIDIsDeviceIDSensorID bool
	RF24Address                string
	RF24Channel                uint8
	RF24DataRate               DataRate
	RF24PowerLevel             PowerLevel
	RF24AutoAcknowledge        bool
	RF24DynamicAcknowledge     bool
	RF24DynamicPayload         bool

	RadioLink          string   `json:",omitempty"`
	RadioBaudRate      int      `json:",omitempty"`
	MetricsAddress     string   `json:",omitempty"`
	EnabledCommands    []string `json:",omitempty"`
	PendingSendTimeout Duration `json:",omitempty"`
	RestartDelay       Duration `json:",omitempty"`
}

var requiredFields = []string{
	"CloudConnectionString",
	"CloudTransportType",
	"SensorIDIsDeviceIDSensorID",
	"RF24Address",
	"RF24Channel",
	"RF24DataRate",
	"RF24PowerLevel",
	"RF24AutoAcknowledge",
	"RF24DynamicAcknowledge",
	"RF24DynamicPayload",
}

// Default returns the first-run template
func Default() *Settings {
	s := &Settings{
		CloudConnectionString:      "Endpoint=nats://localhost:4222;DeviceId=fieldgate-01",
		CloudTransportType:         TransportNats,
		SensorIDIsDeviceIDSensorID: false,
		RF24Address:                "Base1",
		RF24Channel:                10,
		RF24DataRate:               DR250Kbps,
		RF24PowerLevel:             PowerHigh,
		RF24AutoAcknowledge:        true,
		RF24DynamicAcknowledge:     false,
		RF24DynamicPayload:         true,
	}
	s.applyDefaults()
	return s
}

// Parse decodes and validates a settings document
func Parse(data []byte) (*Settings, error) {
	var present map[string]json.RawMessage
	if err := json.Unmarshal(data, &present); err != nil {
		return nil, fmt.Errorf("config: parse settings: %w", err)
	}
	for _, name := range requiredFields {
		raw, ok := present[name]
		if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			return nil, fmt.Errorf("%w: %s", ErrMissingField, name)
		}
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	s := &Settings{}
	if err := dec.Decode(s); err != nil {
		return nil, fmt.Errorf("config: parse settings: %w", err)
	}

	s.applyDefaults()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Load reads the settings file at path
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// LoadOrCreate loads path, writing the Default template when it does not
// exist. A freshly written template returns ErrTemplateCreated so the
// operator can fill in the real cloud connection string first.
func LoadOrCreate(path string) (*Settings, error) {
	s, err := Load(path)
	if !errors.Is(err, ErrNotFound) {
		return s, err
	}

	data, err := json.MarshalIndent(Default(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("config: encode template: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return nil, fmt.Errorf("config: write template %s: %w", path, err)
	}
	return nil, fmt.Errorf("%w: %s", ErrTemplateCreated, path)
}

func (s *Settings) applyDefaults() {
	if s.RadioLink == "" {
		s.RadioLink = "/dev/ttyUSB0"
	}
	if s.RadioBaudRate == 0 {
		s.RadioBaudRate = 115200
	}
	if s.EnabledCommands == nil {
		s.EnabledCommands = append([]string(nil), AllCommands...)
	}
	if s.PendingSendTimeout == 0 {
		s.PendingSendTimeout = Duration(30 * time.Second)
	}
	if s.RestartDelay == 0 {
		s.RestartDelay = Duration(5 * time.Second)
	}
}

// Validate checks every setting against its allowed range
func (s *Settings) Validate() error {
	if _, err := ParseConnectionString(s.CloudConnectionString); err != nil {
		return err
	}

	switch s.CloudTransportType {
	case TransportNats, TransportWebSocket:
	default:
		return fmt.Errorf("%w: CloudTransportType %q", ErrInvalid, s.CloudTransportType)
	}

	if n := len(s.RF24Address); n < 3 || n > 5 {
		return fmt.Errorf("%w: RF24Address must be 3-5 bytes, got %d", ErrInvalid, n)
	}

	if s.RF24Channel > 125 {
		return fmt.Errorf("%w: RF24Channel %d (valid 0-125)", ErrInvalid, s.RF24Channel)
	}

	switch s.RF24DataRate {
	case DR250Kbps, DR1Mbps, DR2Mbps:
	default:
		return fmt.Errorf("%w: RF24DataRate %q", ErrInvalid, s.RF24DataRate)
	}

	switch s.RF24PowerLevel {
	case PowerMinimum, PowerLow, PowerHigh, PowerMaximum:
	default:
		return fmt.Errorf("%w: RF24PowerLevel %q", ErrInvalid, s.RF24PowerLevel)
	}

	for _, c := range s.EnabledCommands {
		if !isCommand(c) {
			return fmt.Errorf("%w: unknown command %q in EnabledCommands", ErrInvalid, c)
		}
	}

	if s.PendingSendTimeout < 0 || s.RestartDelay < 0 {
		return fmt.Errorf("%w: durations must not be negative", ErrInvalid)
	}

	return nil
}

// CommandEnabled reports whether name is listed in EnabledCommands
func (s *Settings) CommandEnabled(name string) bool {
	return CommandListed(s.EnabledCommands, name)
}

// CommandListed reports whether name appears in list, ignoring case
func CommandListed(list []string, name string) bool {
	for _, c := range list {
		if strings.EqualFold(c, name) {
			return true
		}
	}
	return false
}

// RadioAddress returns the gateway's own radio address bytes
func (s *Settings) RadioAddress() []byte {
	return []byte(s.RF24Address)
}

func isCommand(name string) bool {
	return CommandListed(AllCommands, name)
}
