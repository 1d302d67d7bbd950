package ring

import (
	"bytes"
	"testing"
)

// FuzzUnpack24 tests 24-bit coefficient deserialization with random inputs
func FuzzUnpack24(f *testing.F) {
	// Add seed corpus
	f.Add([]byte{})
	f.Add([]byte{0})
	f.Add([]byte{0, 0, 0})
	f.Add([]byte{0xff, 0xff, 0xff})
	f.Add(make([]byte, 3*N))
	f.Add(make([]byte, 100))

	f.Fuzz(func(t *testing.T, data []byte) {
		// Should not panic, may return error
		p, err := Unpack24(data, 8380417)
		if err != nil {
			return
		}
		// Accepted input holds only canonical coefficients, so packing
		// must reproduce the exact bytes
		if !bytes.Equal(Pack24(&p), data) {
			t.Fatal("round trip mismatch")
		}
	})
}

// FuzzUnpackBits tests fixed-width bit deserialization with random inputs
func FuzzUnpackBits(f *testing.F) {
	// Add seed corpus
	f.Add([]byte{})
	f.Add([]byte{0})
	f.Add(make([]byte, N*10/8))
	f.Add(make([]byte, 100))

	f.Fuzz(func(t *testing.T, data []byte) {
		// Should not panic, may return error
		p, err := UnpackBits(data, 10)
		if err != nil {
			return
		}
		if !bytes.Equal(PackBits(&p, 10), data) {
			t.Fatal("round trip mismatch")
		}
	})
}
