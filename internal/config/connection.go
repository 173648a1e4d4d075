// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"fmt"
	"strings"
)

// CloudEndpoint is the parsed form of CloudConnectionString
type CloudEndpoint struct {
	Endpoint string
	DeviceID string
	Token    string
}

// ParseConnectionString parses "Endpoint=...;DeviceId=...;Token=...".
// Keys are case-insensitive and Token is optional.
func ParseConnectionString(s string) (CloudEndpoint, error) {
	var ep CloudEndpoint
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			return CloudEndpoint{}, fmt.Errorf("%w: connection string segment %q has no '='", ErrInvalid, part)
		}
		switch strings.ToLower(strings.TrimSpace(k)) {
		case "endpoint":
			ep.Endpoint = strings.TrimSpace(v)
		case "deviceid":
			ep.DeviceID = strings.TrimSpace(v)
		case "token":
			ep.Token = strings.TrimSpace(v)
		default:
			return CloudEndpoint{}, fmt.Errorf("%w: unknown connection string key %q", ErrInvalid, k)
		}
	}

	if ep.Endpoint == "" {
		return CloudEndpoint{}, fmt.Errorf("%w: connection string Endpoint", ErrMissingField)
	}
	if ep.DeviceID == "" {
		return CloudEndpoint{}, fmt.Errorf("%w: connection string DeviceId", ErrMissingField)
	}
	return ep, nil
}
