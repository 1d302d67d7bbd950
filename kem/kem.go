// Package kem implements the latticevault module-lattice key encapsulation
// mechanism: IND-CPA encryption over a module of rank K with compressed
// ciphertexts, wrapped in a Fujisaki-Okamoto transform with implicit
// rejection for IND-CCA security.
package kem

import (
	"sync"

	latticevault "github.com/latticevault/latticevault-go"
	"github.com/latticevault/latticevault-go/core"
	"github.com/latticevault/latticevault-go/ring"
	"github.com/latticevault/latticevault-go/utils"
)

const (
	DomainMatrix       = "latticevault-kem-matrix-v1"
	DomainNoise        = "latticevault-kem-noise-v1"
	DomainReject       = "latticevault-kem-reject-v1"
	DomainCoins        = "latticevault-kem-coins-v1"
	DomainSharedSecret = "latticevault-kem-ss-v1"
)

// KeyPair holds an encoded KEM key pair and the variant it belongs to.
type KeyPair struct {
	PublicKey  []byte
	PrivateKey []byte
	Params     core.KEMParams
}

// GenerateKeyPair generates a key pair for the given variant. The only
// failure modes are an unknown variant and an entropy-source failure; the
// latter is fatal and not retried.
func GenerateKeyPair(variant string) (*KeyPair, error) {
	params, err := core.GetKEMParams(variant)
	if err != nil {
		return nil, err
	}
	if err := core.ValidateKEMParams(params); err != nil {
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

// GenerateKeyPairFromSeed generates a deterministic key pair from seed.
func GenerateKeyPairFromSeed(params core.KEMParams, seed []byte) (*KeyPair, error) {
	if err := utils.ValidateSeedEntropy(seed); err != nil {
		return nil, err
	}

	rho := utils.Shake256WithDomain(DomainMatrix, seed, 32)
	sigma := utils.Shake256WithDomain(DomainNoise, seed, 32)
	z := utils.Shake256WithDomain(DomainReject, seed, 32)
	defer func() {
		utils.Zeroize(sigma)
		utils.Zeroize(z)
	}()

	k := params.K
	a := expandMatrix(rho, k, params.Q)

	s := make([]ring.Poly, k)
	e := make([]ring.Poly, k)
	nonce := 0
	for i := 0; i < k; i++ {
		s[i] = ring.SampleCBD(prfInput(sigma, nonce), params.Eta1, params.Q)
		nonce++
	}
	for i := 0; i < k; i++ {
		e[i] = ring.SampleCBD(prfInput(sigma, nonce), params.Eta1, params.Q)
		nonce++
	}
	defer ring.ZeroizeVec(s)
	defer ring.ZeroizeVec(e)

	// t = A*s + e
	t := make([]ring.Poly, k)
	for i := 0; i < k; i++ {
		var acc [ring.N]int64
		for j := 0; j < k; j++ {
			ring.MulAcc(&a[i][j], &s[j], &acc)
		}
		sum := ring.Reduce(&acc, params.Q)
		t[i] = ring.Add(&sum, &e[i], params.Q)
	}

	publicKey := make([]byte, 0, params.PublicKeySize)
	for i := 0; i < k; i++ {
		publicKey = append(publicKey, ring.PackBits(&t[i], 12)...)
	}
	publicKey = append(publicKey, rho...)

	privateKey := make([]byte, 0, params.PrivateKeySize)
	for i := 0; i < k; i++ {
		privateKey = append(privateKey, ring.PackBits(&s[i], 12)...)
	}
	privateKey = append(privateKey, publicKey...)
	privateKey = append(privateKey, utils.SHA3256(publicKey)...)
	privateKey = append(privateKey, z...)

	return &KeyPair{PublicKey: publicKey, PrivateKey: privateKey, Params: params}, nil
}

// Encapsulate generates a fresh shared secret and the ciphertext that carries
// it to the holder of the matching private key.
func Encapsulate(publicKey []byte, params core.KEMParams) (*latticevault.EncapsulationResult, error) {
	m, err := utils.SecureRandomBytes(32)
	if err != nil {
		return nil, err
	}
	result, err := EncapsulateDeterministic(publicKey, params, m)
	utils.Zeroize(m)
	return result, err
}

// EncapsulateDeterministic performs encapsulation with caller-supplied
// message randomness m (32 bytes). Used by decapsulation for re-encryption
// and by known-answer tests.
func EncapsulateDeterministic(publicKey []byte, params core.KEMParams, m []byte) (*latticevault.EncapsulationResult, error) {
	if len(publicKey) != params.PublicKeySize {
		return nil, &latticevault.ParameterMismatchError{
			Field: "public key", Variant: params.Variant,
			Got: len(publicKey), Want: params.PublicKeySize,
		}
	}
	if len(m) != 32 {
		return nil, &latticevault.ParameterMismatchError{
			Field: "message randomness", Variant: params.Variant,
			Got: len(m), Want: 32,
		}
	}

	coins := utils.Shake256WithDomain(DomainCoins,
		utils.HashConcat(m, utils.SHA3256(publicKey)), 32)
	defer utils.Zeroize(coins)

	ciphertext, err := encrypt(publicKey, m, coins, params)
	if err != nil {
		return nil, err
	}

	sharedSecret := utils.Shake256WithDomain(DomainSharedSecret,
		utils.HashConcat(m, utils.SHA3256(ciphertext)), params.SharedSecretSize)

	return &latticevault.EncapsulationResult{
		Ciphertext:   ciphertext,
		SharedSecret: sharedSecret,
	}, nil
}

// Decapsulate recovers the shared secret from a ciphertext. For a tampered or
// mismatched ciphertext it returns the implicit-rejection secret, which is
// deterministic but unpredictable without the private key; the choice between
// the two secrets is made in constant time.
func Decapsulate(ciphertext, privateKey []byte, params core.KEMParams) ([]byte, error) {
	if len(ciphertext) != params.CiphertextSize {
		return nil, &latticevault.ParameterMismatchError{
			Field: "ciphertext", Variant: params.Variant,
			Got: len(ciphertext), Want: params.CiphertextSize,
		}
	}
	if len(privateKey) != params.PrivateKeySize {
		return nil, &latticevault.ParameterMismatchError{
			Field: "private key", Variant: params.Variant,
			Got: len(privateKey), Want: params.PrivateKeySize,
		}
	}

	k := params.K
	s := make([]ring.Poly, k)
	for i := 0; i < k; i++ {
		p, err := ring.UnpackBits(privateKey[i*384:(i+1)*384], 12)
		if err != nil {
			return nil, err
		}
		s[i] = p
	}
	defer ring.ZeroizeVec(s)

	publicKey := privateKey[k*384 : k*384+params.PublicKeySize]
	pkHash := privateKey[k*384+params.PublicKeySize : k*384+params.PublicKeySize+32]
	z := privateKey[k*384+params.PublicKeySize+32:]

	u, v, err := unpackCiphertext(ciphertext, params)
	if err != nil {
		return nil, err
	}

	// m' = round(v - s^T u)
	var acc [ring.N]int64
	for i := 0; i < k; i++ {
		ring.MulAcc(&s[i], &u[i], &acc)
	}
	su := ring.Reduce(&acc, params.Q)
	diff := ring.Sub(&v, &su, params.Q)
	mp := ring.ToMessage(&diff, params.Q)
	defer utils.Zeroize(mp)

	// Re-encrypt and compare (Fujisaki-Okamoto).
	coins := utils.Shake256WithDomain(DomainCoins, utils.HashConcat(mp, pkHash), 32)
	reEnc, err := encrypt(publicKey, mp, coins, params)
	utils.Zeroize(coins)
	if err != nil {
		return nil, err
	}

	ctHash := utils.SHA3256(ciphertext)
	good := utils.Shake256WithDomain(DomainSharedSecret,
		utils.HashConcat(mp, ctHash), params.SharedSecretSize)
	reject := utils.Shake256WithDomain(DomainReject,
		utils.HashConcat(z, ctHash), params.SharedSecretSize)

	match := 0
	if utils.ConstantTimeEqual(ciphertext, reEnc) {
		match = 1
	}
	secret := utils.ConstantTimeSelect(match, good, reject)
	utils.Zeroize(good)
	utils.Zeroize(reject)
	return secret, nil
}

// encrypt is the IND-CPA core: u = A^T r + e1, v = t^T r + e2 + encode(m),
// both compressed into the fixed-size ciphertext.
func encrypt(publicKey, m, coins []byte, params core.KEMParams) ([]byte, error) {
	k := params.K
	t := make([]ring.Poly, k)
	for i := 0; i < k; i++ {
		p, err := ring.UnpackBits(publicKey[i*384:(i+1)*384], 12)
		if err != nil {
			return nil, err
		}
		t[i] = p
	}
	rho := publicKey[k*384:]

	a := expandMatrix(rho, k, params.Q)

	r := make([]ring.Poly, k)
	e1 := make([]ring.Poly, k)
	nonce := 0
	for i := 0; i < k; i++ {
		r[i] = ring.SampleCBD(prfInput(coins, nonce), params.Eta1, params.Q)
		nonce++
	}
	for i := 0; i < k; i++ {
		e1[i] = ring.SampleCBD(prfInput(coins, nonce), params.Eta2, params.Q)
		nonce++
	}
	e2 := ring.SampleCBD(prfInput(coins, nonce), params.Eta2, params.Q)
	defer ring.ZeroizeVec(r)
	defer ring.ZeroizeVec(e1)
	defer e2.Zeroize()

	u := make([]ring.Poly, k)
	for j := 0; j < k; j++ {
		var acc [ring.N]int64
		for i := 0; i < k; i++ {
			ring.MulAcc(&a[i][j], &r[i], &acc)
		}
		sum := ring.Reduce(&acc, params.Q)
		u[j] = ring.Add(&sum, &e1[j], params.Q)
	}

	var acc [ring.N]int64
	for i := 0; i < k; i++ {
		ring.MulAcc(&t[i], &r[i], &acc)
	}
	tr := ring.Reduce(&acc, params.Q)
	msg := ring.FromMessage(m, params.Q)
	v := ring.Add(&tr, &e2, params.Q)
	v = ring.Add(&v, &msg, params.Q)

	ciphertext := make([]byte, 0, params.CiphertextSize)
	for j := 0; j < k; j++ {
		cu := ring.Compress(&u[j], params.Du, params.Q)
		ciphertext = append(ciphertext, ring.PackBits(&cu, params.Du)...)
	}
	cv := ring.Compress(&v, params.Dv, params.Q)
	ciphertext = append(ciphertext, ring.PackBits(&cv, params.Dv)...)
	return ciphertext, nil
}

// unpackCiphertext splits and decompresses the two ciphertext components.
func unpackCiphertext(ciphertext []byte, params core.KEMParams) ([]ring.Poly, ring.Poly, error) {
	k := params.K
	uBytes := 32 * int(params.Du)
	u := make([]ring.Poly, k)
	for j := 0; j < k; j++ {
		p, err := ring.UnpackBits(ciphertext[j*uBytes:(j+1)*uBytes], params.Du)
		if err != nil {
			return nil, ring.Poly{}, err
		}
		u[j] = ring.Decompress(&p, params.Du, params.Q)
	}
	p, err := ring.UnpackBits(ciphertext[k*uBytes:], params.Dv)
	if err != nil {
		return nil, ring.Poly{}, err
	}
	v := ring.Decompress(&p, params.Dv, params.Q)
	return u, v, nil
}

// expandMatrix derives the K x K public matrix from rho, one row per worker.
// The matrix is public, so the XOF rejection pattern leaks nothing.
func expandMatrix(rho []byte, k int, q int32) [][]ring.Poly {
	a := make([][]ring.Poly, k)
	var wg sync.WaitGroup
	for i := 0; i < k; i++ {
		a[i] = make([]ring.Poly, k)
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < k; j++ {
				seed := make([]byte, len(rho)+2)
				copy(seed, rho)
				seed[len(rho)] = byte(i)
				seed[len(rho)+1] = byte(j)
				a[i][j] = ring.SampleUniform(seed, q)
			}
		}(i)
	}
	wg.Wait()
	return a
}

// prfInput derives a nonce-separated PRF input for noise sampling.
func prfInput(seed []byte, nonce int) []byte {
	out := make([]byte, len(seed)+1)
	copy(out, seed)
	out[len(seed)] = byte(nonce)
	return out
}
