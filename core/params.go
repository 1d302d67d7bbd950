// Package core provides the fixed parameter tables for every latticevault
// variant and their validation. Variant names, byte sizes and declared
// security categories are a stable public contract: adding a variant must
// never change an existing one.
package core

import (
	"errors"
	"fmt"

	latticevault "github.com/latticevault/latticevault-go"
)

// KEMParams is the immutable parameter set of one KEM variant.
type KEMParams struct {
	Variant string
	// N is the ring dimension, Q the prime modulus.
	N int
	Q int32
	// K is the module rank (the public matrix is K x K ring elements).
	K int
	// Eta1 and Eta2 are the centered binomial noise widths.
	Eta1 int
	Eta2 int
	// Du and Dv are the ciphertext compression widths in bits.
	Du uint
	Dv uint

	PublicKeySize    int
	PrivateKeySize   int
	CiphertextSize   int
	SharedSecretSize int

	// SecurityCategory is the declared NIST category (1, 3 or 5).
	SecurityCategory int
	// FailureExponent documents the per-variant decryption failure
	// probability as 2^FailureExponent. It is negligible but NOT zero; the
	// Fujisaki-Okamoto transform depends on this being preserved as-is.
	FailureExponent int
}

// SignParams is the immutable parameter set of one signature variant.
type SignParams struct {
	Variant string
	N       int
	Q       int32
	// K x L is the shape of the public matrix; L is the secret/mask length.
	K int
	L int
	// Eta bounds the secret vector coefficients.
	Eta int
	// Tau is the challenge weight (number of +/-1 coefficients).
	Tau int
	// Gamma1 bounds the masking vector; Gamma2 is the rounding range.
	Gamma1 int32
	Gamma2 int32
	// Beta = Tau * Eta bounds the rejection checks.
	Beta int32
	// MaxAttempts bounds the rejection sampling loop. Exceeding it is a
	// resource-exhaustion failure, not a retry-forever condition.
	MaxAttempts int
	// W1Bits is the packed width of a commitment high-bits coefficient.
	W1Bits uint

	PublicKeySize  int
	PrivateKeySize int
	SignatureSize  int

	SecurityCategory int
}

const (
	kemQ  int32 = 3329
	signQ int32 = 8380417
)

// LV512Params is the KEM parameter set for NIST category 1.
var LV512Params = KEMParams{
	Variant: latticevault.LV512,
	N:       256, Q: kemQ, K: 2,
	Eta1: 3, Eta2: 2, Du: 10, Dv: 4,
	PublicKeySize: 800, PrivateKeySize: 1632, CiphertextSize: 768,
	SharedSecretSize: latticevault.SharedSecretSize,
	SecurityCategory: 1, FailureExponent: -139,
}

// LV768Params is the KEM parameter set for NIST category 3 (the default).
var LV768Params = KEMParams{
	Variant: latticevault.LV768,
	N:       256, Q: kemQ, K: 3,
	Eta1: 2, Eta2: 2, Du: 10, Dv: 4,
	PublicKeySize: 1184, PrivateKeySize: 2400, CiphertextSize: 1088,
	SharedSecretSize: latticevault.SharedSecretSize,
	SecurityCategory: 3, FailureExponent: -164,
}

// LV1024Params is the KEM parameter set for NIST category 5.
var LV1024Params = KEMParams{
	Variant: latticevault.LV1024,
	N:       256, Q: kemQ, K: 4,
	Eta1: 2, Eta2: 2, Du: 11, Dv: 5,
	PublicKeySize: 1568, PrivateKeySize: 3168, CiphertextSize: 1568,
	SharedSecretSize: latticevault.SharedSecretSize,
	SecurityCategory: 5, FailureExponent: -174,
}

// LVS44Params is the signature parameter set for NIST category 2.
var LVS44Params = SignParams{
	Variant: latticevault.LVS44,
	N:       256, Q: signQ, K: 4, L: 4,
	Eta: 2, Tau: 39, Gamma1: 1 << 17, Gamma2: (signQ - 1) / 88,
	Beta: 78, MaxAttempts: 576, W1Bits: 6,
	PublicKeySize: 3104, PrivateKeySize: 2144, SignatureSize: 3104,
	SecurityCategory: 2,
}

// LVS65Params is the signature parameter set for NIST category 3 (the default).
var LVS65Params = SignParams{
	Variant: latticevault.LVS65,
	N:       256, Q: signQ, K: 6, L: 5,
	Eta: 4, Tau: 49, Gamma1: 1 << 19, Gamma2: (signQ - 1) / 32,
	Beta: 196, MaxAttempts: 640, W1Bits: 4,
	PublicKeySize: 4640, PrivateKeySize: 2912, SignatureSize: 3872,
	SecurityCategory: 3,
}

// LVS87Params is the signature parameter set for NIST category 5.
var LVS87Params = SignParams{
	Variant: latticevault.LVS87,
	N:       256, Q: signQ, K: 8, L: 7,
	Eta: 2, Tau: 60, Gamma1: 1 << 19, Gamma2: (signQ - 1) / 32,
	Beta: 120, MaxAttempts: 768, W1Bits: 4,
	PublicKeySize: 6176, PrivateKeySize: 3936, SignatureSize: 5408,
	SecurityCategory: 5,
}

// GetKEMParams returns the parameter set for the given KEM variant name.
func GetKEMParams(variant string) (KEMParams, error) {
	switch variant {
	case latticevault.LV512:
		return LV512Params, nil
	case latticevault.LV768:
		return LV768Params, nil
	case latticevault.LV1024:
		return LV1024Params, nil
	default:
		return KEMParams{}, fmt.Errorf("%w: %q", latticevault.ErrUnknownVariant, variant)
	}
}

// GetSignParams returns the parameter set for the given signature variant name.
func GetSignParams(variant string) (SignParams, error) {
	switch variant {
	case latticevault.LVS44:
		return LVS44Params, nil
	case latticevault.LVS65:
		return LVS65Params, nil
	case latticevault.LVS87:
		return LVS87Params, nil
	default:
		return SignParams{}, fmt.Errorf("%w: %q", latticevault.ErrUnknownVariant, variant)
	}
}

// ValidateKEMParams validates a KEM parameter set for consistency.
func ValidateKEMParams(p KEMParams) error {
	if p.N != 256 {
		return errors.New("ring dimension must be 256")
	}
	if !isPrime(int(p.Q)) {
		return errors.New("modulus must be prime")
	}
	if p.K < 2 || p.K > 8 {
		return errors.New("module rank out of range")
	}
	if p.Eta1 < p.Eta2 {
		return errors.New("eta1 must be at least eta2")
	}
	if p.Du <= p.Dv {
		return errors.New("du must exceed dv")
	}
	if want := p.K*384 + 32; p.PublicKeySize != want {
		return fmt.Errorf("public key size %d, want %d", p.PublicKeySize, want)
	}
	if want := p.K*768 + 96; p.PrivateKeySize != want {
		return fmt.Errorf("private key size %d, want %d", p.PrivateKeySize, want)
	}
	if want := p.K*32*int(p.Du) + 32*int(p.Dv); p.CiphertextSize != want {
		return fmt.Errorf("ciphertext size %d, want %d", p.CiphertextSize, want)
	}
	if p.FailureExponent >= -100 {
		return errors.New("decryption failure probability too large")
	}
	return nil
}

// ValidateSignParams validates a signature parameter set for consistency.
func ValidateSignParams(p SignParams) error {
	if p.N != 256 {
		return errors.New("ring dimension must be 256")
	}
	if !isPrime(int(p.Q)) {
		return errors.New("modulus must be prime")
	}
	if p.K < p.L {
		return errors.New("matrix must have at least as many rows as columns")
	}
	if p.Beta != int32(p.Tau*p.Eta) {
		return errors.New("beta must equal tau*eta")
	}
	if p.Gamma1&(p.Gamma1-1) != 0 {
		return errors.New("gamma1 must be a power of two")
	}
	if (p.Q-1)%(2*p.Gamma2) != 0 {
		return errors.New("2*gamma2 must divide q-1")
	}
	if p.Gamma2 <= p.Beta || p.Gamma1 <= p.Beta {
		return errors.New("rejection bounds must exceed beta")
	}
	if p.MaxAttempts < 64 {
		return errors.New("rejection attempt budget too small")
	}
	if want := 32 + p.K*768; p.PublicKeySize != want {
		return fmt.Errorf("public key size %d, want %d", p.PublicKeySize, want)
	}
	if want := 96 + (p.K+p.L)*256; p.PrivateKeySize != want {
		return fmt.Errorf("private key size %d, want %d", p.PrivateKeySize, want)
	}
	if want := 32 + p.L*768; p.SignatureSize != want {
		return fmt.Errorf("signature size %d, want %d", p.SignatureSize, want)
	}
	return nil
}

// isPrime checks primality by trial division. It validates fixed parameters,
// not large primes.
func isPrime(n int) bool {
	if n < 2 {
		return false
	}
	if n == 2 {
		return true
	}
	if n%2 == 0 {
		return false
	}
	for i := 3; i*i <= n; i += 2 {
		if n%i == 0 {
			return false
		}
	}
	return true
}
