// Package sign implements the latticevault module-lattice signature scheme:
// Fiat-Shamir with aborts over a K x L module, with a bounded rejection
// sampling loop and randomized signing.
//
// The public key carries the full public vector t, so signatures need no
// hint vector; the low-bits rejection check enforces the same bound.
package sign

import (
	"encoding/binary"
	"fmt"

	latticevault "github.com/latticevault/latticevault-go"
	"github.com/latticevault/latticevault-go/core"
	"github.com/latticevault/latticevault-go/ring"
	"github.com/latticevault/latticevault-go/utils"
)

const (
	DomainMatrix    = "latticevault-sign-matrix-v1"
	DomainSecret    = "latticevault-sign-secret-v1"
	DomainKey       = "latticevault-sign-key-v1"
	DomainMessage   = "latticevault-sign-msg-v1"
	DomainMask      = "latticevault-sign-mask-v1"
	DomainChallenge = "latticevault-sign-chal-v1"
)

// KeyPair holds an encoded signature key pair and the variant it belongs to.
type KeyPair struct {
	PublicKey  []byte
	PrivateKey []byte
	Params     core.SignParams
}

// GenerateKeyPair generates a signature key pair for the given variant.
func GenerateKeyPair(variant string) (*KeyPair, error) {
	params, err := core.GetSignParams(variant)
	if err != nil {
		return nil, err
	}
	if err := core.ValidateSignParams(params); err != nil {
		return nil, err
	}

	seed, err := utils.SecureRandomBytes(latticevault.SeedSize)
	if err != nil {
		return nil, err
	}

	kp, err := GenerateKeyPairFromSeed(params, seed)
	utils.Zeroize(seed)
	return kp, err
}

// GenerateKeyPairFromSeed generates a deterministic signature key pair.
func GenerateKeyPairFromSeed(params core.SignParams, seed []byte) (*KeyPair, error) {
	if err := utils.ValidateSeedEntropy(seed); err != nil {
		return nil, err
	}

	rho := utils.Shake256WithDomain(DomainMatrix, seed, 32)
	secretSeed := utils.Shake256WithDomain(DomainSecret, seed, 64)
	kkey := utils.Shake256WithDomain(DomainKey, seed, 32)
	defer func() {
		utils.Zeroize(secretSeed)
		utils.Zeroize(kkey)
	}()

	a := expandMatrix(rho, params.K, params.L, params.Q)

	s1 := make([]ring.Poly, params.L)
	s2 := make([]ring.Poly, params.K)
	for j := 0; j < params.L; j++ {
		s1[j] = ring.SampleEta(nonced(secretSeed, uint16(j)), params.Eta, params.Q)
	}
	for i := 0; i < params.K; i++ {
		s2[i] = ring.SampleEta(nonced(secretSeed, uint16(params.L+i)), params.Eta, params.Q)
	}
	defer ring.ZeroizeVec(s1)
	defer ring.ZeroizeVec(s2)

	// t = A*s1 + s2
	t := make([]ring.Poly, params.K)
	for i := 0; i < params.K; i++ {
		var acc [ring.N]int64
		for j := 0; j < params.L; j++ {
			ring.MulAcc(&a[i][j], &s1[j], &acc)
		}
		sum := ring.Reduce(&acc, params.Q)
		t[i] = ring.Add(&sum, &s2[i], params.Q)
	}

	publicKey := make([]byte, 0, params.PublicKeySize)
	publicKey = append(publicKey, rho...)
	for i := 0; i < params.K; i++ {
		publicKey = append(publicKey, ring.Pack24(&t[i])...)
	}
	tr := utils.SHA3256(publicKey)

	privateKey := make([]byte, 0, params.PrivateKeySize)
	privateKey = append(privateKey, rho...)
	privateKey = append(privateKey, kkey...)
	privateKey = append(privateKey, tr...)
	for j := 0; j < params.L; j++ {
		privateKey = append(privateKey, packEta(&s1[j], params.Eta, params.Q)...)
	}
	for i := 0; i < params.K; i++ {
		privateKey = append(privateKey, packEta(&s2[i], params.Eta, params.Q)...)
	}

	return &KeyPair{PublicKey: publicKey, PrivateKey: privateKey, Params: params}, nil
}

// Sign creates a randomized signature over message. Two signatures over the
// same message with the same key differ in bytes but both verify. The
// rejection loop is bounded by params.MaxAttempts; exhausting it returns
// latticevault.ErrSigningAttemptsExceeded, which signals a parameter or
// entropy anomaly and must not be retried blindly.
func Sign(message, privateKey []byte, params core.SignParams) (*latticevault.SignatureResult, error) {
	if len(privateKey) != params.PrivateKeySize {
		return nil, &latticevault.ParameterMismatchError{
			Field: "private key", Variant: params.Variant,
			Got: len(privateKey), Want: params.PrivateKeySize,
		}
	}

	rho := privateKey[0:32]
	kkey := privateKey[32:64]
	tr := privateKey[64:96]

	s1 := make([]ring.Poly, params.L)
	s2 := make([]ring.Poly, params.K)
	for j := 0; j < params.L; j++ {
		p, err := unpackEta(privateKey[96+j*256:96+(j+1)*256], params.Eta, params.Q)
		if err != nil {
			return nil, err
		}
		s1[j] = p
	}
	off := 96 + params.L*256
	for i := 0; i < params.K; i++ {
		p, err := unpackEta(privateKey[off+i*256:off+(i+1)*256], params.Eta, params.Q)
		if err != nil {
			return nil, err
		}
		s2[i] = p
	}
	defer ring.ZeroizeVec(s1)
	defer ring.ZeroizeVec(s2)

	a := expandMatrix(rho, params.K, params.L, params.Q)

	mu := utils.Shake256WithDomain(DomainMessage, utils.HashConcat(tr, message), 64)

	rnd, err := utils.SecureRandomBytes(32)
	if err != nil {
		return nil, err
	}
	maskSeed := utils.Shake256WithDomain(DomainMask, utils.HashConcat(kkey, rnd, mu), 64)
	utils.Zeroize(rnd)
	defer utils.Zeroize(maskSeed)

	zBound := params.Gamma1 - params.Beta
	lowBound := params.Gamma2 - params.Beta

	for attempt := 0; attempt < params.MaxAttempts; attempt++ {
		y := make([]ring.Poly, params.L)
		for j := 0; j < params.L; j++ {
			y[j] = ring.SampleGamma(nonced(maskSeed, uint16(attempt*params.L+j)), params.Gamma1, params.Q)
		}

		w := make([]ring.Poly, params.K)
		for i := 0; i < params.K; i++ {
			var acc [ring.N]int64
			for j := 0; j < params.L; j++ {
				ring.MulAcc(&a[i][j], &y[j], &acc)
			}
			w[i] = ring.Reduce(&acc, params.Q)
		}

		w1 := make([]ring.Poly, params.K)
		for i := 0; i < params.K; i++ {
			w1[i] = ring.HighBits(&w[i], params.Gamma2, params.Q)
		}

		cTilde := utils.Shake256WithDomain(DomainChallenge,
			utils.HashConcat(mu, packW1(w1, params.W1Bits)), 32)
		c := ring.SampleInBall(cTilde, params.Tau, params.Q)

		z := make([]ring.Poly, params.L)
		ok := true
		for j := 0; j < params.L; j++ {
			cs := ring.Mul(&c, &s1[j], params.Q)
			z[j] = ring.Add(&y[j], &cs, params.Q)
			cs.Zeroize()
			if ring.ExceedsNorm(&z[j], zBound, params.Q) {
				ok = false
				break
			}
		}
		if ok {
			for i := 0; i < params.K; i++ {
				cs := ring.Mul(&c, &s2[i], params.Q)
				wcs := ring.Sub(&w[i], &cs, params.Q)
				cs.Zeroize()
				low := ring.LowBits(&wcs, params.Gamma2, params.Q)
				if ring.ExceedsNorm(&low, lowBound, params.Q) {
					ok = false
					break
				}
			}
		}
		ring.ZeroizeVec(y)
		ring.ZeroizeVec(w)
		if !ok {
			continue
		}

		signature := make([]byte, 0, params.SignatureSize)
		signature = append(signature, cTilde...)
		for j := 0; j < params.L; j++ {
			signature = append(signature, ring.Pack24(&z[j])...)
		}
		return &latticevault.SignatureResult{
			Signature:     signature,
			MessageDigest: utils.SHA3256(message),
		}, nil
	}

	return nil, fmt.Errorf("%w: %s after %d attempts",
		latticevault.ErrSigningAttemptsExceeded, params.Variant, params.MaxAttempts)
}

// Verify reports whether signature is valid for message under publicKey.
// Any structurally invalid, tampered, wrong-message or wrong-key input
// yields false; expected mismatches are never surfaced as errors.
func Verify(message, signature, publicKey []byte, params core.SignParams) bool {
	if len(signature) != params.SignatureSize {
		return false
	}
	if len(publicKey) != params.PublicKeySize {
		return false
	}

	cTilde := signature[0:32]
	z := make([]ring.Poly, params.L)
	zBound := params.Gamma1 - params.Beta
	for j := 0; j < params.L; j++ {
		p, err := ring.Unpack24(signature[32+j*768:32+(j+1)*768], params.Q)
		if err != nil {
			return false
		}
		if ring.ExceedsNorm(&p, zBound, params.Q) {
			return false
		}
		z[j] = p
	}

	rho := publicKey[0:32]
	t := make([]ring.Poly, params.K)
	for i := 0; i < params.K; i++ {
		p, err := ring.Unpack24(publicKey[32+i*768:32+(i+1)*768], params.Q)
		if err != nil {
			return false
		}
		t[i] = p
	}

	a := expandMatrix(rho, params.K, params.L, params.Q)
	tr := utils.SHA3256(publicKey)
	mu := utils.Shake256WithDomain(DomainMessage, utils.HashConcat(tr, message), 64)
	c := ring.SampleInBall(cTilde, params.Tau, params.Q)

	// w' = A*z - c*t; its high bits must rebuild the committed challenge.
	w1 := make([]ring.Poly, params.K)
	for i := 0; i < params.K; i++ {
		var acc [ring.N]int64
		for j := 0; j < params.L; j++ {
			ring.MulAcc(&a[i][j], &z[j], &acc)
		}
		az := ring.Reduce(&acc, params.Q)
		ct := ring.Mul(&c, &t[i], params.Q)
		w := ring.Sub(&az, &ct, params.Q)
		w1[i] = ring.HighBits(&w, params.Gamma2, params.Q)
	}

	expected := utils.Shake256WithDomain(DomainChallenge,
		utils.HashConcat(mu, packW1(w1, params.W1Bits)), 32)
	return utils.ConstantTimeEqual(cTilde, expected)
}

// packW1 serializes the commitment high bits row by row.
func packW1(w1 []ring.Poly, bits uint) []byte {
	out := make([]byte, 0, len(w1)*ring.N*int(bits)/8)
	for i := range w1 {
		out = append(out, ring.PackBits(&w1[i], bits)...)
	}
	return out
}

// packEta stores one small-coefficient polynomial as one byte per
// coefficient, offset by eta.
func packEta(p *ring.Poly, eta int, q int32) []byte {
	out := make([]byte, ring.N)
	for i := 0; i < ring.N; i++ {
		out[i] = byte(ring.Center(p[i], q) + int32(eta))
	}
	return out
}

// unpackEta reverses packEta, rejecting out-of-range bytes.
func unpackEta(data []byte, eta int, q int32) (ring.Poly, error) {
	var p ring.Poly
	if len(data) != ring.N {
		return p, utils.ErrInvalidLength
	}
	for i := 0; i < ring.N; i++ {
		if int(data[i]) > 2*eta {
			return ring.Poly{}, utils.ErrExceedsLimit
		}
		c := int32(data[i]) - int32(eta)
		c += (c >> 31) & q
		p[i] = c
	}
	return p, nil
}

// expandMatrix derives the K x L public matrix from rho.
func expandMatrix(rho []byte, k, l int, q int32) [][]ring.Poly {
	a := make([][]ring.Poly, k)
	for i := 0; i < k; i++ {
		a[i] = make([]ring.Poly, l)
		for j := 0; j < l; j++ {
			seed := make([]byte, len(rho)+2)
			copy(seed, rho)
			seed[len(rho)] = byte(i)
			seed[len(rho)+1] = byte(j)
			a[i][j] = ring.SampleUniform(seed, q)
		}
	}
	return a
}

// nonced appends a 16-bit nonce to a seed for domain-separated sampling.
func nonced(seed []byte, nonce uint16) []byte {
	out := make([]byte, len(seed)+2)
	copy(out, seed)
	binary.LittleEndian.PutUint16(out[len(seed):], nonce)
	return out
}
