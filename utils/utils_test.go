package utils

import (
	"bytes"
	"errors"
	"testing"
)

func TestShake256Deterministic(t *testing.T) {
	a := Shake256([]byte("input"), 64)
	b := Shake256([]byte("input"), 64)
	if !bytes.Equal(a, b) {
		t.Fatal("same input produced different output")
	}
	c := Shake256([]byte("inpuu"), 64)
	if bytes.Equal(a, c) {
		t.Fatal("different inputs produced identical output")
	}
}

func TestShake256IntoMatchesShake256(t *testing.T) {
	out := make([]byte, 96)
	Shake256Into([]byte("stream"), out)
	if !bytes.Equal(out, Shake256([]byte("stream"), 96)) {
		t.Fatal("Shake256Into disagrees with Shake256")
	}
}

func TestDomainSeparation(t *testing.T) {
	a := Shake256WithDomain("domain-a", []byte("data"), 32)
	b := Shake256WithDomain("domain-b", []byte("data"), 32)
	if bytes.Equal(a, b) {
		t.Fatal("different domains produced identical output")
	}
}

func TestHashConcatNotAmbiguous(t *testing.T) {
	// length prefixing must distinguish ("ab","c") from ("a","bc")
	a := HashConcat([]byte("ab"), []byte("c"))
	b := HashConcat([]byte("a"), []byte("bc"))
	if bytes.Equal(a, b) {
		t.Fatal("concatenation ambiguity")
	}
}

func TestValidateSeedEntropy(t *testing.T) {
	good := make([]byte, 32)
	for i := range good {
		good[i] = byte(i*37 + 11)
	}
	if err := ValidateSeedEntropy(good); err != nil {
		t.Fatalf("good seed rejected: %v", err)
	}

	if err := ValidateSeedEntropy(make([]byte, 32)); err == nil {
		t.Fatal("all-zero seed accepted")
	}
	if err := ValidateSeedEntropy(good[:31]); err == nil {
		t.Fatal("short seed accepted")
	}

	ascending := make([]byte, 32)
	for i := range ascending {
		ascending[i] = byte(i)
	}
	if err := ValidateSeedEntropy(ascending); err == nil {
		t.Fatal("sequential seed accepted")
	}
}

func TestConstantTimeHelpers(t *testing.T) {
	if !ConstantTimeEqual([]byte{1, 2, 3}, []byte{1, 2, 3}) {
		t.Fatal("equal slices compared unequal")
	}
	if ConstantTimeEqual([]byte{1, 2, 3}, []byte{1, 2, 4}) {
		t.Fatal("unequal slices compared equal")
	}
	if ConstantTimeEqual([]byte{1}, []byte{1, 2}) {
		t.Fatal("different lengths compared equal")
	}

	a, b := []byte{1, 1}, []byte{2, 2}
	if got := ConstantTimeSelect(1, a, b); !bytes.Equal(got, a) {
		t.Fatal("condition 1 did not select first")
	}
	if got := ConstantTimeSelect(0, a, b); !bytes.Equal(got, b) {
		t.Fatal("condition 0 did not select second")
	}
}

func TestZeroize(t *testing.T) {
	b := []byte{1, 2, 3, 4}
	Zeroize(b)
	for _, v := range b {
		if v != 0 {
			t.Fatal("byte survived zeroize")
		}
	}
}

func TestSafeMultiply(t *testing.T) {
	if v, err := SafeMultiply(256, 12); err != nil || v != 3072 {
		t.Fatalf("got %d, %v", v, err)
	}
	if _, err := SafeMultiply(1<<62, 4); !errors.Is(err, ErrOverflow) {
		t.Fatalf("overflow not detected: %v", err)
	}
	if _, err := SafeMultiply(-1, 4); err == nil {
		t.Fatal("negative operand accepted")
	}
}

func TestReadLengthBE(t *testing.T) {
	data := []byte{0x00, 0x00, 0x01, 0x00, 0xAA}
	length, offset, err := ReadLengthBE(data, 0, 1024)
	if err != nil || length != 256 || offset != 4 {
		t.Fatalf("got %d/%d, %v", length, offset, err)
	}
	if _, _, err := ReadLengthBE(data, 0, 255); !errors.Is(err, ErrExceedsLimit) {
		t.Fatalf("limit not enforced: %v", err)
	}
	if _, _, err := ReadLengthBE(data, 3, 1024); err == nil {
		t.Fatal("truncated length accepted")
	}
	if _, _, err := ReadLengthBE(data, -1, 1024); err == nil {
		t.Fatal("negative offset accepted")
	}
}

func TestValidateSliceAccess(t *testing.T) {
	data := make([]byte, 10)
	if err := ValidateSliceAccess(data, 2, 8); err != nil {
		t.Fatalf("valid access rejected: %v", err)
	}
	if err := ValidateSliceAccess(data, 2, 9); err == nil {
		t.Fatal("out-of-bounds access accepted")
	}
	if err := ValidateSliceAccess(data, -1, 2); err == nil {
		t.Fatal("negative offset accepted")
	}
}
