// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gateway

// State is the gateway lifecycle state
type State int32

const (
	StateUninitialized State = iota
	StateConfigLoaded
	StateCloudConnected
	StateRadioArmed
	StateRunning
	StateFailed
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "Uninitialized"
	case StateConfigLoaded:
		return "ConfigLoaded"
	case StateCloudConnected:
		return "CloudConnected"
	case StateRadioArmed:
		return "RadioArmed"
	case StateRunning:
		return "Running"
	case StateFailed:
		return "Failed"
	case StateStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}
