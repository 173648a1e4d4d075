// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rfframe

import (
	"bytes"
	"math/rand"
	"os"
	"strconv"
	"testing"
	"time"
)

// getFuzzRounds returns the number of fuzz rounds from FUZZ_ROUNDS env var, default 1000
func getFuzzRounds() int {
	if envRounds := os.Getenv("FUZZ_ROUNDS"); envRounds != "" {
		if rounds, err := strconv.Atoi(envRounds); err == nil && rounds > 0 {
			return rounds
		}
	}
	return 1000
}

// newFuzzRng creates a new random number generator and logs the seed for reproducibility
func newFuzzRng(t *testing.T) *rand.Rand {
	seed := time.Now().UnixNano()
	if envSeed := os.Getenv("FUZZ_SEED"); envSeed != "" {
		if s, err := strconv.ParseInt(envSeed, 10, 64); err == nil {
			seed = s
		}
	}
	t.Logf("Seed: %d (reproduce with FUZZ_SEED=%d)", seed, seed)
	return rand.New(rand.NewSource(seed))
}

func randomBytes(rng *rand.Rand, n int) []byte {
	b := make([]byte, n)
	rng.Read(b)
	return b
}

// Any non-empty byte sequence decodes and reports the header nibbles verbatim.
func TestFuzz_DecodeNeverFails(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()

	for i := 0; i < rounds; i++ {
		data := randomBytes(rng, 1+rng.Intn(MaxFrameSize*2))

		f, err := Decode(data)
		if err != nil {
			t.Fatalf("round %d: Decode(%X) error = %v", i, data, err)
		}
		if uint8(f.Type()) != data[0]>>4 {
			t.Fatalf("round %d: Type() = %d, want %d", i, f.Type(), data[0]>>4)
		}
		if f.AddressLength() != int(data[0]&0x0F) {
			t.Fatalf("round %d: AddressLength() = %d, want %d", i, f.AddressLength(), data[0]&0x0F)
		}

		// Address either succeeds or reports truncation, never panics
		_, _ = f.Address()
		_, _ = f.Payload()
		_ = FormatFrame(f)
	}
}

// Encoding any in-bounds triple and decoding it reproduces the triple.
func TestFuzz_RoundTrip(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()

	for i := 0; i < rounds; i++ {
		msgType := MessageType(rng.Intn(16))
		address := randomBytes(rng, rng.Intn(MaxAddressLength+1))
		payload := randomBytes(rng, rng.Intn(MaxFrameSize-HeaderSize-len(address)+1))

		data, err := EncodeFrame(msgType, address, payload)
		if err != nil {
			t.Fatalf("round %d: EncodeFrame() error = %v", i, err)
		}

		f, err := Decode(data)
		if err != nil {
			t.Fatalf("round %d: Decode() error = %v", i, err)
		}
		gotAddr, err := f.Address()
		if err != nil {
			t.Fatalf("round %d: Address() error = %v", i, err)
		}
		gotPayload, _ := f.Payload()

		if f.Type() != msgType || !bytes.Equal(gotAddr, address) || !bytes.Equal(gotPayload, payload) {
			t.Fatalf("round %d: round trip mismatch: type %d/%d addr %X/%X payload %X/%X",
				i, f.Type(), msgType, gotAddr, address, gotPayload, payload)
		}
	}
}
