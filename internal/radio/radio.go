// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package radio drives the nRF24L01 transceiver through the radio bridge.
package radio

import (
	"errors"

	"github.com/Thermoquad/fieldgate/internal/config"
	"github.com/Thermoquad/fieldgate/pkg/bridge"
)

var (
	ErrNotInitialized = errors.New("radio: not initialized")
	ErrClosed         = errors.New("radio: link closed")
	ErrTransmitFailed = errors.New("radio: transmit failed")
)

// Power levels as sent to the bridge
const (
	PowerMinimum uint8 = iota
	PowerLow
	PowerHigh
	PowerMaximum
)

// Data rates as sent to the bridge
const (
	DataRate1Mbps uint8 = iota
	DataRate2Mbps
	DataRate250Kbps
)

// Settings is the transceiver configuration
type Settings struct {
	Channel        uint8
	Address        []byte
	PowerLevel     uint8
	DataRate       uint8
	AutoAck        bool
	DynamicAck     bool
	DynamicPayload bool
}

// SettingsFromConfig converts the gateway settings into transceiver settings
func SettingsFromConfig(cfg *config.Settings) Settings {
	s := Settings{
		Channel:        cfg.RF24Channel,
		Address:        cfg.RadioAddress(),
		AutoAck:        cfg.RF24AutoAcknowledge,
		DynamicAck:     cfg.RF24DynamicAcknowledge,
		DynamicPayload: cfg.RF24DynamicPayload,
	}

	switch cfg.RF24PowerLevel {
	case config.PowerMinimum:
		s.PowerLevel = PowerMinimum
	case config.PowerLow:
		s.PowerLevel = PowerLow
	case config.PowerMaximum:
		s.PowerLevel = PowerMaximum
	default:
		s.PowerLevel = PowerHigh
	}

	switch cfg.RF24DataRate {
	case config.DR1Mbps:
		s.DataRate = DataRate1Mbps
	case config.DR2Mbps:
		s.DataRate = DataRate2Mbps
	default:
		s.DataRate = DataRate250Kbps
	}

	return s
}

func (s Settings) bridgeConfig() bridge.RadioConfig {
	return bridge.RadioConfig{
		Channel:        s.Channel,
		Address:        s.Address,
		PowerLevel:     s.PowerLevel,
		DataRate:       s.DataRate,
		AutoAck:        s.AutoAck,
		DynamicAck:     s.DynamicAck,
		DynamicPayload: s.DynamicPayload,
	}
}

// Callbacks are the named event slots the radio reports through. Each is
// optional and invoked from the bridge read goroutine.
type Callbacks struct {
	Received          func(frame []byte)
	TransmitSucceeded func(destination, payload []byte)
	TransmitFailed    func(destination, payload []byte, err error)
}
