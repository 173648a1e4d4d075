// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

// decodeAll feeds wire bytes through a fresh decoder and fails on any error
func decodeAll(t *testing.T, wire []byte) []*Packet {
	t.Helper()
	d := NewDecoder()
	return d.Decode(wire, func(err error) {
		t.Fatalf("unexpected decode error: %v", err)
	})
}

// ============================================================
// CRC and byte stuffing
// ============================================================

func TestCalculateCRC_KnownVector(t *testing.T) {
	// CRC-16/CCITT-FALSE check value
	if got := CalculateCRC([]byte("123456789")); got != 0x29B1 {
		t.Errorf("CalculateCRC = 0x%04X, want 0x29B1", got)
	}
}

func TestStuffBytes(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want []byte
	}{
		{"plain", []byte{0x01, 0x02}, []byte{0x01, 0x02}},
		{"start", []byte{StartByte}, []byte{EscByte, StartByte ^ EscXor}},
		{"end", []byte{EndByte}, []byte{EscByte, EndByte ^ EscXor}},
		{"escape", []byte{EscByte}, []byte{EscByte, EscByte ^ EscXor}},
		{"mixed", []byte{0x10, StartByte, 0x20}, []byte{0x10, EscByte, 0x5E, 0x20}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := stuffBytes(tt.in)
			if !bytes.Equal(got, tt.want) {
				t.Fatalf("stuffBytes = % X, want % X", got, tt.want)
			}
			back, err := UnstuffBytes(got)
			if err != nil {
				t.Fatalf("UnstuffBytes error: %v", err)
			}
			if !bytes.Equal(back, tt.in) {
				t.Errorf("UnstuffBytes = % X, want % X", back, tt.in)
			}
		})
	}
}

func TestUnstuffBytes_TrailingEscape(t *testing.T) {
	if _, err := UnstuffBytes([]byte{0x01, EscByte}); err == nil {
		t.Error("expected error for dangling escape")
	}
}

// ============================================================
// Encode / decode round trips
// ============================================================

func TestEncodeDecode_RoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		packet *Packet
	}{
		{"configure", NewConfigure(RadioConfig{
			Channel:        10,
			Address:        []byte{0xBA, 0x5E, 0x01},
			PowerLevel:     2,
			DataRate:       0,
			AutoAck:        true,
			DynamicPayload: true,
		})},
		{"transmit", NewTransmit(7, []byte{0x01, 0x02, 0x03}, []byte{0x13, 0x01, 0x02, 0x03, 0x7E, 0x7F})},
		{"received", NewReceived([]byte{0x03, 0xAB, 0xCD, 0xEF})},
		{"transmit result", NewTransmitResult(42, true)},
		{"error", NewError(ErrorQueueFull)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wire, err := NewEncoder().Encode(tt.packet)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			if wire[0] != StartByte || wire[len(wire)-1] != EndByte {
				t.Fatalf("packet not framed: % X", wire)
			}
			for _, b := range wire[1 : len(wire)-1] {
				if b == StartByte || b == EndByte {
					t.Fatalf("unescaped framing byte in body: % X", wire)
				}
			}

			packets := decodeAll(t, wire)
			if len(packets) != 1 {
				t.Fatalf("decoded %d packets, want 1", len(packets))
			}
			got := packets[0]
			if got.Type() != tt.packet.Type() {
				t.Errorf("Type = 0x%02X, want 0x%02X", got.Type(), tt.packet.Type())
			}
			if errs := ValidatePacket(got); len(errs) != 0 {
				t.Errorf("ValidatePacket = %v", errs)
			}
			if len(got.PayloadMap()) != len(tt.packet.PayloadMap()) {
				t.Errorf("payload has %d keys, want %d", len(got.PayloadMap()), len(tt.packet.PayloadMap()))
			}
		})
	}
}

func TestDecoder_ExtractsFields(t *testing.T) {
	frame := []byte{0x13, 0x01, 0x02, 0x03, 0x68, 0x69}
	wire := MustEncodePacket(NewTransmit(9, []byte{0x01, 0x02, 0x03}, frame))

	p := decodeAll(t, wire)[0]
	seq, _ := p.PayloadMap().Uint(KeyTransmitSeq)
	dest, _ := p.PayloadMap().Bytes(KeyTransmitDestination)
	payload, _ := p.PayloadMap().Bytes(KeyTransmitPayload)

	if seq != 9 {
		t.Errorf("seq = %d, want 9", seq)
	}
	if !bytes.Equal(dest, []byte{0x01, 0x02, 0x03}) {
		t.Errorf("dest = % X", dest)
	}
	if !bytes.Equal(payload, frame) {
		t.Errorf("payload = % X, want % X", payload, frame)
	}
}

func TestDecoder_StreamWithNoise(t *testing.T) {
	a := MustEncodePacket(NewReceived([]byte{0x03, 0x01, 0x02, 0x03}))
	b := MustEncodePacket(NewTransmitResult(3, false))

	var stream []byte
	stream = append(stream, 0x00, 0x55, 0xAA)
	stream = append(stream, a...)
	stream = append(stream, 0x11)
	stream = append(stream, b...)

	packets := NewDecoder().Decode(stream, nil)
	if len(packets) != 2 {
		t.Fatalf("decoded %d packets, want 2", len(packets))
	}

	frame, ok := ReceivedFrame(packets[0])
	if !ok || !bytes.Equal(frame, []byte{0x03, 0x01, 0x02, 0x03}) {
		t.Errorf("ReceivedFrame = % X, %v", frame, ok)
	}
	seq, res, valid := TransmitResult(packets[1])
	if !valid || seq != 3 || res {
		t.Errorf("TransmitResult = %d, %v, %v", seq, res, valid)
	}
}

func TestDecoder_CRCMismatch(t *testing.T) {
	wire := MustEncodePacket(NewTransmitResult(1, true))
	// Corrupt the first CBOR byte, keeping the length intact
	corrupt := append([]byte(nil), wire...)
	corrupt[2] ^= 0x01
	if corrupt[2] == StartByte || corrupt[2] == EndByte || corrupt[2] == EscByte {
		corrupt[2] ^= 0x03
	}

	var errs []error
	packets := NewDecoder().Decode(corrupt, func(err error) { errs = append(errs, err) })
	if len(packets) != 0 {
		t.Fatalf("decoded %d packets from corrupt input", len(packets))
	}
	if len(errs) != 1 || !errors.Is(errs[0], ErrCRCMismatch) {
		t.Errorf("errors = %v, want one CRC mismatch", errs)
	}
}

func TestDecoder_RejectsOversizedLength(t *testing.T) {
	var errs []error
	NewDecoder().Decode([]byte{StartByte, MaxPayloadSize + 1}, func(err error) { errs = append(errs, err) })
	if len(errs) != 1 {
		t.Errorf("errors = %v, want 1", errs)
	}
}

func TestDecoder_PrematureEnd(t *testing.T) {
	var errs []error
	NewDecoder().Decode([]byte{StartByte, 0x05, 0x01, EndByte}, func(err error) { errs = append(errs, err) })
	if len(errs) != 1 {
		t.Errorf("errors = %v, want 1", errs)
	}
}

func TestEncode_PayloadTooLarge(t *testing.T) {
	_, err := EncodePacketFromValues(MsgTransmit, Fields{
		KeyTransmitPayload: make([]byte, MaxPayloadSize),
	})
	if err == nil {
		t.Error("expected error for oversized payload")
	}
}

// ============================================================
// Validation and formatting
// ============================================================

func TestValidatePacket(t *testing.T) {
	tests := []struct {
		name    string
		packet  *Packet
		anomaly AnomalyType
		valid   bool
	}{
		{"valid configure", NewConfigure(RadioConfig{Channel: 125, Address: []byte{1, 2, 3, 4, 5}}), 0, true},
		{"channel out of range", NewConfigure(RadioConfig{Channel: 126, Address: []byte{1, 2, 3}}), AnomalyInvalidValue, false},
		{"address too short", NewConfigure(RadioConfig{Channel: 1, Address: []byte{1, 2}}), AnomalyInvalidValue, false},
		{"empty transmit", NewTransmit(1, []byte{1, 2, 3}, nil), AnomalyInvalidValue, false},
		{"missing key", NewPacketWithPayload(MsgTransmitResult, Fields{KeyTransmitSeq: uint64(1)}), AnomalyMissingField, false},
		{"unknown type", NewPacketWithPayload(0x55, nil), AnomalyUnknownType, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ValidatePacket(tt.packet)
			if tt.valid {
				if len(errs) != 0 {
					t.Errorf("unexpected errors: %v", errs)
				}
				return
			}
			if len(errs) == 0 {
				t.Fatal("expected validation errors")
			}
			if errs[0].Type != tt.anomaly {
				t.Errorf("anomaly = %d, want %d", errs[0].Type, tt.anomaly)
			}
		})
	}
}

func TestFormatPacket(t *testing.T) {
	tests := []struct {
		packet *Packet
		want   string
	}{
		{NewTransmit(5, []byte{0xAA, 0xBB, 0xCC}, []byte{1, 2}), "TRANSMIT seq=5 dest=AA BB CC len=2"},
		{NewReceived([]byte{0x01, 0x02}), "RECEIVED len=2 data=01 02"},
		{NewTransmitResult(8, true), "TRANSMIT_RESULT seq=8 ok=true"},
		{NewError(ErrorRadioFault), "ERROR code=RADIO_FAULT"},
	}
	for _, tt := range tests {
		got := FormatPacket(tt.packet)
		if !strings.HasSuffix(got, tt.want) {
			t.Errorf("FormatPacket = %q, want suffix %q", got, tt.want)
		}
	}
	if got := FormatMessageType(0x99); got != "UNKNOWN(0x99)" {
		t.Errorf("FormatMessageType = %q", got)
	}
}

// ============================================================
// Message body
// ============================================================

func TestParseCBORMessage_Errors(t *testing.T) {
	tests := []struct {
		name string
		body []byte
	}{
		{"empty", nil},
		{"not an array", []byte{0x01}},
		{"three elements", []byte{0x83, 0x10, 0xF6, 0x00}},
		{"type out of range", []byte{0x82, 0x19, 0x01, 0x00, 0xF6}},
		{"duplicate key", []byte{0x82, 0x10, 0xA2, 0x00, 0x01, 0x00, 0x02}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := ParseCBORMessage(tt.body); err == nil {
				t.Error("expected error")
			}
		})
	}

	if _, _, err := ParseCBORMessage(nil); !errors.Is(err, ErrEmptyBody) {
		t.Errorf("empty body error = %v, want ErrEmptyBody", err)
	}
}

func TestParseCBORMessage_NullFields(t *testing.T) {
	msgType, fields, err := ParseCBORMessage([]byte{0x82, 0x18, 0x30, 0xF6})
	if err != nil {
		t.Fatalf("ParseCBORMessage: %v", err)
	}
	if msgType != MsgReceived {
		t.Errorf("type = 0x%02X, want 0x%02X", msgType, MsgReceived)
	}
	if fields != nil {
		t.Errorf("fields = %v, want nil", fields)
	}
	if _, ok := fields.Uint(0); ok {
		t.Error("Uint on nil fields reported a value")
	}
}

func TestEncode_Deterministic(t *testing.T) {
	build := func() []byte {
		return MustEncodePacket(NewConfigure(RadioConfig{
			Channel:        76,
			Address:        []byte("Base1"),
			PowerLevel:     2,
			DataRate:       1,
			AutoAck:        true,
			DynamicPayload: true,
		}))
	}

	first := build()
	for i := 0; i < 20; i++ {
		if got := build(); !bytes.Equal(got, first) {
			t.Fatalf("encoding %d differs:\n got %X\nwant %X", i, got, first)
		}
	}
}

func TestFields_Accessors(t *testing.T) {
	f := Fields{0: uint64(7), 1: int64(-1), 2: true, 3: []byte{0xAA}}

	if v, ok := f.Uint(0); !ok || v != 7 {
		t.Errorf("Uint(0) = %d, %v", v, ok)
	}
	if _, ok := f.Uint(1); ok {
		t.Error("Uint accepted a negative value")
	}
	if v, ok := f.Bool(2); !ok || !v {
		t.Errorf("Bool(2) = %v, %v", v, ok)
	}
	if v, ok := f.Bytes(3); !ok || !bytes.Equal(v, []byte{0xAA}) {
		t.Errorf("Bytes(3) = %X, %v", v, ok)
	}
	if f.Has(9) {
		t.Error("Has(9) = true")
	}
}
