// Package latticevault implements module-lattice cryptographic primitives for
// protecting long-lived, high-sensitivity data: a Kyber-family key
// encapsulation mechanism, a Dilithium-family digital signature scheme, and a
// hybrid envelope that composes them with an authenticated symmetric cipher.
//
// WARNING: the lattice parameter sets in this module follow the published
// CRYSTALS constructions but the implementation has NOT been independently
// audited. Evaluate carefully before protecting production data with it.
package latticevault

// Version of the latticevault Go implementation.
const Version = "1.2.0"

// API summary:
//
// Key Encapsulation (KEM):
//   - kem.GenerateKeyPair(variant) - Generate a key pair for the given variant
//   - kem.Encapsulate(pk, params) - Generate shared secret and ciphertext
//   - kem.Decapsulate(ct, sk, params) - Recover shared secret from ciphertext
//
// Digital Signatures:
//   - sign.GenerateKeyPair(variant) - Generate a signature key pair
//   - sign.Sign(message, sk, params) - Sign a message (randomized)
//   - sign.Verify(message, sig, pk, params) - Verify a signature
//
// Hybrid Envelope:
//   - envelope.Seal / envelope.SealSigned - KEM + AES-256-GCM (+ signature)
//   - envelope.Open / envelope.Verify - decrypt and verify independently
//   - envelope.Encode / envelope.Decode - bit-exact wire format
//
// Key management:
//   - registry.New() - concurrent key store with rotation lifecycle
//   - hsm.NewSoftwareBackend / hsm.NewRemoteBackend - delegation boundary
//   - suite.New(...) - identifier-based facade used by orchestration layers
