// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

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

// getFuzzSeed returns the seed from FUZZ_SEED env var, or generates one from current time
func getFuzzSeed() int64 {
	if envSeed := os.Getenv("FUZZ_SEED"); envSeed != "" {
		if seed, err := strconv.ParseInt(envSeed, 10, 64); err == nil {
			return seed
		}
	}
	return time.Now().UnixNano()
}

func newFuzzRng(t *testing.T) *rand.Rand {
	seed := getFuzzSeed()
	t.Logf("Seed: %d (reproduce with FUZZ_SEED=%d)", seed, seed)
	return rand.New(rand.NewSource(seed))
}

func randomBytes(rng *rand.Rand, n int) []byte {
	b := make([]byte, n)
	rng.Read(b)
	return b
}

// TestFuzz_DecoderSurvivesGarbage feeds random bytes and checks the decoder
// never panics and recovers to decode a valid packet afterwards.
func TestFuzz_DecoderSurvivesGarbage(t *testing.T) {
	rng := newFuzzRng(t)
	valid := MustEncodePacket(NewTransmitResult(77, true))

	for i := 0; i < getFuzzRounds(); i++ {
		d := NewDecoder()
		d.Decode(randomBytes(rng, rng.Intn(200)), nil)

		packets := d.Decode(valid, nil)
		if len(packets) != 1 {
			t.Fatalf("round %d: decoder did not resync, got %d packets", i, len(packets))
		}
	}
}

func TestFuzz_TransmitRoundTrip(t *testing.T) {
	rng := newFuzzRng(t)

	for i := 0; i < getFuzzRounds(); i++ {
		seq := rng.Uint32()
		dest := randomBytes(rng, 3+rng.Intn(3))
		frame := randomBytes(rng, 1+rng.Intn(24))

		wire := MustEncodePacket(NewTransmit(seq, dest, frame))
		packets := NewDecoder().Decode(wire, func(err error) {
			t.Fatalf("round %d: decode error: %v", i, err)
		})
		if len(packets) != 1 {
			t.Fatalf("round %d: got %d packets", i, len(packets))
		}

		m := packets[0].PayloadMap()
		gotSeq, _ := m.Uint(KeyTransmitSeq)
		gotDest, _ := m.Bytes(KeyTransmitDestination)
		gotFrame, _ := m.Bytes(KeyTransmitPayload)
		if uint32(gotSeq) != seq || !bytes.Equal(gotDest, dest) || !bytes.Equal(gotFrame, frame) {
			t.Fatalf("round %d: mismatch seq=%d/%d dest=% X/% X frame=% X/% X",
				i, gotSeq, seq, gotDest, dest, gotFrame, frame)
		}
	}
}
