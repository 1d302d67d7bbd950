package sign

import (
	"bytes"
	"errors"
	"testing"

	latticevault "github.com/latticevault/latticevault-go"
	"github.com/latticevault/latticevault-go/core"
	"github.com/latticevault/latticevault-go/ring"
)

var signVariants = []string{latticevault.LVS44, latticevault.LVS65, latticevault.LVS87}

func testSeed(b byte) []byte {
	s := make([]byte, 32)
	for i := range s {
		s[i] = b ^ byte(i*29+11)
	}
	return s
}

func TestSignVerifyAllVariants(t *testing.T) {
	message := []byte("attestation payload for signing")
	for _, variant := range signVariants {
		t.Run(variant, func(t *testing.T) {
			params, err := core.GetSignParams(variant)
			if err != nil {
				t.Fatal(err)
			}

			kp, err := GenerateKeyPair(variant)
			if err != nil {
				t.Fatalf("keygen: %v", err)
			}
			if len(kp.PublicKey) != params.PublicKeySize {
				t.Fatalf("public key %d bytes, want %d", len(kp.PublicKey), params.PublicKeySize)
			}
			if len(kp.PrivateKey) != params.PrivateKeySize {
				t.Fatalf("private key %d bytes, want %d", len(kp.PrivateKey), params.PrivateKeySize)
			}

			result, err := Sign(message, kp.PrivateKey, params)
			if err != nil {
				t.Fatalf("sign: %v", err)
			}
			if len(result.Signature) != params.SignatureSize {
				t.Fatalf("signature %d bytes, want %d", len(result.Signature), params.SignatureSize)
			}
			if !Verify(message, result.Signature, kp.PublicKey, params) {
				t.Fatal("valid signature rejected")
			}
		})
	}
}

// Signing is randomized: two signatures over the same message differ in
// bytes, and both verify.
func TestSigningRandomized(t *testing.T) {
	params, _ := core.GetSignParams(latticevault.LVS44)
	kp, err := GenerateKeyPair(latticevault.LVS44)
	if err != nil {
		t.Fatal(err)
	}
	message := []byte("same message twice")

	a, err := Sign(message, kp.PrivateKey, params)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Sign(message, kp.PrivateKey, params)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(a.Signature, b.Signature) {
		t.Fatal("two signatures over the same message are identical")
	}
	if !Verify(message, a.Signature, kp.PublicKey, params) || !Verify(message, b.Signature, kp.PublicKey, params) {
		t.Fatal("randomized signature failed to verify")
	}
}

func TestVerifyRejections(t *testing.T) {
	params, _ := core.GetSignParams(latticevault.LVS44)
	kp, err := GenerateKeyPair(latticevault.LVS44)
	if err != nil {
		t.Fatal(err)
	}
	message := []byte("the signed document")
	result, err := Sign(message, kp.PrivateKey, params)
	if err != nil {
		t.Fatal(err)
	}

	// tampered message
	if Verify([]byte("the signed document!"), result.Signature, kp.PublicKey, params) {
		t.Fatal("modified message verified")
	}

	// tampered signature, challenge half
	tampered := bytes.Clone(result.Signature)
	tampered[0] ^= 0x01
	if Verify(message, tampered, kp.PublicKey, params) {
		t.Fatal("tampered challenge verified")
	}

	// tampered signature, response half
	tampered = bytes.Clone(result.Signature)
	tampered[len(tampered)-1] ^= 0x01
	if Verify(message, tampered, kp.PublicKey, params) {
		t.Fatal("tampered response verified")
	}

	// wrong key
	other, err := GenerateKeyPair(latticevault.LVS44)
	if err != nil {
		t.Fatal(err)
	}
	if Verify(message, result.Signature, other.PublicKey, params) {
		t.Fatal("signature verified under unrelated key")
	}

	// structurally invalid inputs return false, never panic or error
	if Verify(message, result.Signature[:100], kp.PublicKey, params) {
		t.Fatal("truncated signature verified")
	}
	if Verify(message, result.Signature, kp.PublicKey[:100], params) {
		t.Fatal("truncated public key verified")
	}
	if Verify(message, nil, kp.PublicKey, params) {
		t.Fatal("nil signature verified")
	}
}

func TestVariantsNotInterchangeable(t *testing.T) {
	params44, _ := core.GetSignParams(latticevault.LVS44)
	params65, _ := core.GetSignParams(latticevault.LVS65)

	kp, err := GenerateKeyPair(latticevault.LVS44)
	if err != nil {
		t.Fatal(err)
	}
	message := []byte("variant confusion")
	result, err := Sign(message, kp.PrivateKey, params44)
	if err != nil {
		t.Fatal(err)
	}
	// sizes differ, so verification under the wrong variant is a clean false
	if Verify(message, result.Signature, kp.PublicKey, params65) {
		t.Fatal("LVS-44 signature verified under LVS-65 params")
	}
	if _, err := Sign(message, kp.PrivateKey, params65); !errors.Is(err, latticevault.ErrParameterMismatch) {
		t.Fatalf("LVS-44 key signed under LVS-65 params: %v", err)
	}
}

func TestDeterministicKeyGeneration(t *testing.T) {
	params, _ := core.GetSignParams(latticevault.LVS44)
	seed := testSeed(5)

	a, err := GenerateKeyPairFromSeed(params, seed)
	if err != nil {
		t.Fatal(err)
	}
	b, err := GenerateKeyPairFromSeed(params, seed)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a.PublicKey, b.PublicKey) || !bytes.Equal(a.PrivateKey, b.PrivateKey) {
		t.Fatal("same seed produced different key pairs")
	}

	if _, err := GenerateKeyPairFromSeed(params, make([]byte, 32)); err == nil {
		t.Fatal("all-zero seed accepted")
	}
}

func TestEmptyAndLargeMessages(t *testing.T) {
	params, _ := core.GetSignParams(latticevault.LVS44)
	kp, err := GenerateKeyPair(latticevault.LVS44)
	if err != nil {
		t.Fatal(err)
	}

	for _, message := range [][]byte{{}, bytes.Repeat([]byte{0xAB}, 1<<16)} {
		result, err := Sign(message, kp.PrivateKey, params)
		if err != nil {
			t.Fatalf("len %d: %v", len(message), err)
		}
		if !Verify(message, result.Signature, kp.PublicKey, params) {
			t.Fatalf("len %d: signature rejected", len(message))
		}
	}
}

func TestPackEtaRoundTrip(t *testing.T) {
	const q int32 = 8380417
	for _, eta := range []int{2, 4} {
		p := mustEta(t, eta, q)
		packed := packEta(&p, eta, q)
		got, err := unpackEta(packed, eta, q)
		if err != nil {
			t.Fatalf("eta=%d: %v", eta, err)
		}
		if got != p {
			t.Fatalf("eta=%d: round trip mismatch", eta)
		}

		bad := bytes.Clone(packed)
		bad[0] = byte(2*eta + 1)
		if _, err := unpackEta(bad, eta, q); err == nil {
			t.Fatalf("eta=%d: out-of-range byte accepted", eta)
		}
	}
}

func mustEta(t *testing.T, eta int, q int32) (p ring.Poly) {
	t.Helper()
	for i := range p {
		c := int32(i%(2*eta+1)) - int32(eta)
		c += (c >> 31) & q
		p[i] = c
	}
	return p
}
