// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rfframe

import "errors"

var (
	ErrFrameTooShort    = errors.New("rfframe: frame too short for header")
	ErrAddressTruncated = errors.New("rfframe: frame too short for device address")
	ErrAddressTooLong   = errors.New("rfframe: address length out of range")
	ErrPayloadTooLong   = errors.New("rfframe: frame exceeds maximum size")
	ErrMalformedHex     = errors.New("rfframe: malformed hex text")
)
