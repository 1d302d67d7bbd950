package latticevault

import "time"

// Algorithm identifies which primitive family a key pair belongs to.
type Algorithm string

const (
	// AlgorithmKEM marks keys used for encapsulation/decapsulation.
	AlgorithmKEM Algorithm = "kem"
	// AlgorithmSign marks keys used for signing/verification.
	AlgorithmSign Algorithm = "sign"
)

// KEM parameter variant names. The names and their byte sizes are a stable
// public contract; adding a variant never changes an existing one.
const (
	// LV512 targets NIST security category 1.
	LV512 = "LV-512"
	// LV768 targets NIST security category 3 and is the default variant.
	LV768 = "LV-768"
	// LV1024 targets NIST security category 5.
	LV1024 = "LV-1024"
)

// Signature parameter variant names.
const (
	// LVS44 targets NIST security category 2.
	LVS44 = "LVS-44"
	// LVS65 targets NIST security category 3 and is the default variant.
	LVS65 = "LVS-65"
	// LVS87 targets NIST security category 5.
	LVS87 = "LVS-87"
)

// SharedSecretSize is the size of every KEM shared secret in bytes.
const SharedSecretSize = 32

// SeedSize is the size of the seed consumed by deterministic key generation.
const SeedSize = 32

// KeyState tracks a registry entry through its lifecycle.
type KeyState string

const (
	// KeyStateActive means the key may be used for all of its declared usages.
	KeyStateActive KeyState = "active"
	// KeyStateRetired means the key was rotated out. Its private material is
	// retained through the retention window so envelopes issued under it can
	// still be opened, but no new envelopes should reference it.
	KeyStateRetired KeyState = "retired"
	// KeyStateRevoked means the private material has been destroyed.
	KeyStateRevoked KeyState = "revoked"
)

// RotationPolicy declares when a key must be replaced and how long its
// predecessor stays decryptable after rotation.
type RotationPolicy struct {
	// MaxAge is the maximum time a key may stay active before rotation.
	MaxAge time.Duration
	// RetentionWindow is how long a retired key keeps its private material.
	RetentionWindow time.Duration
}

// KeyMetadata describes ownership and handling requirements of a key pair.
// It is mutated only by the registry during rotation.
type KeyMetadata struct {
	// Classification is the sensitivity tier of the data the key protects.
	Classification string
	// Usage lists the intended usage tags (e.g. "envelope", "attestation").
	Usage []string
	// Rotation is the rotation policy applied by the registry.
	Rotation RotationPolicy
	// Owner is the principal the key belongs to.
	Owner string
}

// KeyPair is a registered key pair. PrivateKey is exclusively owned by the
// holder and never duplicated outside the registry or the HSM. A pair
// generated HSM-resident carries an opaque Handle and no private bytes.
type KeyPair struct {
	// ID uniquely identifies the pair inside the registry.
	ID string
	// Algorithm says whether this is a KEM or a signature pair.
	Algorithm Algorithm
	// Variant names the parameter set the pair was generated under.
	Variant string
	// PublicKey is the encoded public key.
	PublicKey []byte
	// PrivateKey is the encoded private key. Empty for HSM-resident pairs.
	PrivateKey []byte
	// Handle is the opaque HSM handle for HSM-resident pairs.
	Handle string
	// CreatedAt is when the pair was generated.
	CreatedAt time.Time
	// Metadata carries classification, usage and rotation information.
	Metadata KeyMetadata
}

// HSMResident reports whether the private material lives only in the HSM.
func (kp *KeyPair) HSMResident() bool {
	return kp.Handle != "" && len(kp.PrivateKey) == 0
}

// EncapsulationResult is the output of a KEM encapsulation. The shared secret
// is ephemeral: consume it immediately and erase it with utils.Zeroize.
type EncapsulationResult struct {
	// Ciphertext is the encoded KEM ciphertext, fixed-size per variant.
	Ciphertext []byte
	// SharedSecret is the 32-byte derived secret.
	SharedSecret []byte
}

// SignatureResult is the output of a signing operation.
type SignatureResult struct {
	// Signature is the encoded signature, fixed-size per variant.
	Signature []byte
	// MessageDigest is the SHA3-256 digest of the signed message.
	MessageDigest []byte
	// SignerKeyID identifies the signing key when issued through the registry.
	SignerKeyID string
}

// HybridEnvelope is the self-describing byte structure produced by hybrid
// encryption. It references keys by identifier, never by embedded material.
//
// Wire format (big-endian, bit-exact):
//
//	[1 byte: has_signature]
//	[4 bytes: kem_ciphertext_len][kem_ciphertext]
//	[4 bytes: payload_len][payload]
//	[if has_signature: 4 bytes: sig_len][signature]
type HybridEnvelope struct {
	// KEMCiphertext is the encapsulation ciphertext for the recipient.
	KEMCiphertext []byte
	// Payload is nonce || AES-256-GCM ciphertext || tag.
	Payload []byte
	// Signature, when present, covers Payload (not the plaintext).
	Signature []byte
}

// HasSignature reports whether a signature is embedded.
func (e *HybridEnvelope) HasSignature() bool {
	return len(e.Signature) > 0
}
