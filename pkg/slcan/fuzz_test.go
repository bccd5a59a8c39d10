// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Riley Calder, Calder Avionics

package slcan

import (
	"bytes"
	"math/rand"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/calder-avionics/mantactl/pkg/dronecan"
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

// newFuzzRng creates a new random number generator and logs the seed for reproducibility
func newFuzzRng(t *testing.T) *rand.Rand {
	seed := getFuzzSeed()
	t.Logf("Seed: %d (reproduce with FUZZ_SEED=%d)", seed, seed)
	return rand.New(rand.NewSource(seed))
}

func randomFrame(rng *rand.Rand) dronecan.Frame {
	data := make([]byte, 1+rng.Intn(dronecan.MaxFrameData))
	rng.Read(data)
	return dronecan.Frame{
		ID:   rng.Uint32() & (1<<29 - 1),
		Data: data,
	}
}

// TestFuzz_DecoderRandomBytes feeds random garbage through the decoder;
// it must never panic and must keep accepting input.
func TestFuzz_DecoderRandomBytes(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()

	d := NewDecoder()
	for i := 0; i < rounds; i++ {
		chunk := make([]byte, 1+rng.Intn(64))
		rng.Read(chunk)
		for _, b := range chunk {
			frame, _ := d.DecodeByte(b)
			if frame != nil && len(frame.Data) > dronecan.MaxFrameData {
				t.Fatalf("Round %d: decoder emitted oversize frame: %+v", i, frame)
			}
		}
	}
}

// TestFuzz_EncodeDecodeRoundTrip checks that every encodable frame decodes
// back to itself.
func TestFuzz_EncodeDecodeRoundTrip(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()

	d := NewDecoder()
	for i := 0; i < rounds; i++ {
		f := randomFrame(rng)
		line, err := EncodeFrame(f)
		if err != nil {
			t.Fatalf("Round %d: encode failed: %v", i, err)
		}

		var got *dronecan.Frame
		for _, b := range line {
			frame, err := d.DecodeByte(b)
			if err != nil {
				t.Fatalf("Round %d: decode failed: %v", i, err)
			}
			if frame != nil {
				got = frame
			}
		}
		if got == nil {
			t.Fatalf("Round %d: no frame decoded from %q", i, line)
		}
		if got.ID != f.ID || !bytes.Equal(got.Data, f.Data) {
			t.Fatalf("Round %d: round trip mismatch: %+v vs %+v", i, got, f)
		}
	}
}

// TestFuzz_DecoderRecovers interleaves garbage with valid frames and
// checks every valid frame still comes through.
func TestFuzz_DecoderRecovers(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()

	d := NewDecoder()
	for i := 0; i < rounds; i++ {
		// Garbage terminated by CR flushes whatever state it caused.
		garbage := make([]byte, rng.Intn(40))
		rng.Read(garbage)
		for _, b := range garbage {
			if b == lineTerminator {
				continue
			}
			d.DecodeByte(b)
		}
		d.DecodeByte(lineTerminator)

		f := randomFrame(rng)
		line, _ := EncodeFrame(f)
		var got *dronecan.Frame
		for _, b := range line {
			frame, err := d.DecodeByte(b)
			if err != nil {
				t.Fatalf("Round %d: valid frame rejected: %v", i, err)
			}
			if frame != nil {
				got = frame
			}
		}
		if got == nil || got.ID != f.ID {
			t.Fatalf("Round %d: frame lost after garbage", i)
		}
	}
}
