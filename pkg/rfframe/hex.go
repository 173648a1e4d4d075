// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rfframe

import (
	"encoding/hex"
	"fmt"
	"strings"
)

const hexSeparator = "-"

// FormatHex renders bytes as upper-case hex pairs joined by hyphens,
// e.g. "0A-1B-2C". Device addresses cross the cloud boundary in this form.
func FormatHex(b []byte) string {
	if len(b) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.Grow(len(b)*3 - 1)
	for i, v := range b {
		if i > 0 {
			sb.WriteString(hexSeparator)
		}
		fmt.Fprintf(&sb, "%02X", v)
	}
	return sb.String()
}

// ParseHex is the inverse of FormatHex. Every token must be exactly two hex
// digits; case is ignored.
func ParseHex(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrMalformedHex)
	}

	tokens := strings.Split(s, hexSeparator)
	out := make([]byte, 0, len(tokens))
	for i, tok := range tokens {
		if len(tok) != 2 {
			return nil, fmt.Errorf("%w: token %d %q is not a hex pair", ErrMalformedHex, i, tok)
		}
		v, err := hex.DecodeString(tok)
		if err != nil {
			return nil, fmt.Errorf("%w: token %d %q: %v", ErrMalformedHex, i, tok, err)
		}
		out = append(out, v[0])
	}
	return out, nil
}
