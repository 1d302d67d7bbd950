// Package envelope implements hybrid encryption: a KEM encapsulation
// establishes a shared secret, HKDF-SHA-512 stretches it into an AES-256-GCM
// key, and an optional module-lattice signature authenticates the symmetric
// ciphertext. Envelopes are self-describing byte structures that reference
// keys by identifier only.
package envelope

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha512"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	latticevault "github.com/latticevault/latticevault-go"
	"github.com/latticevault/latticevault-go/core"
	"github.com/latticevault/latticevault-go/kem"
	"github.com/latticevault/latticevault-go/sign"
	"github.com/latticevault/latticevault-go/utils"
)

// kdfInfo binds derived AEAD keys to this envelope version. Changing it
// invalidates every existing envelope.
const kdfInfo = "latticevault-envelope-aead-v1"

const gcmNonceSize = 12

// deriveKey stretches a KEM shared secret into a 32-byte AEAD key. The salt
// is the hash of the KEM ciphertext, so the key is bound to this exact
// encapsulation.
func deriveKey(sharedSecret, kemCiphertext []byte) ([]byte, error) {
	salt := utils.SHA3256(kemCiphertext)
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha512.New, sharedSecret, salt, []byte(kdfInfo)), key); err != nil {
		return nil, fmt.Errorf("derive envelope key: %w", err)
	}
	return key, nil
}

// Seal encrypts plaintext to the holder of recipientPublicKey. The returned
// envelope carries the KEM ciphertext and nonce||ciphertext||tag; it has no
// signature.
func Seal(plaintext, recipientPublicKey []byte, params core.KEMParams) (*latticevault.HybridEnvelope, error) {
	if err := utils.CheckLength(len(plaintext), utils.MaxPayloadLength); err != nil {
		return nil, err
	}

	encap, err := kem.Encapsulate(recipientPublicKey, params)
	if err != nil {
		return nil, err
	}
	defer utils.Zeroize(encap.SharedSecret)

	payload, err := sealPayload(plaintext, encap.SharedSecret, encap.Ciphertext)
	if err != nil {
		return nil, err
	}

	return &latticevault.HybridEnvelope{
		KEMCiphertext: encap.Ciphertext,
		Payload:       payload,
	}, nil
}

// SealSigned is Seal plus a signature over the symmetric payload. Signing the
// ciphertext rather than the plaintext lets relays verify provenance without
// the ability to decrypt.
func SealSigned(plaintext, recipientPublicKey []byte, kemParams core.KEMParams,
	signingKey []byte, signParams core.SignParams) (*latticevault.HybridEnvelope, error) {

	env, err := Seal(plaintext, recipientPublicKey, kemParams)
	if err != nil {
		return nil, err
	}
	sig, err := sign.Sign(env.Payload, signingKey, signParams)
	if err != nil {
		return nil, err
	}
	env.Signature = sig.Signature
	return env, nil
}

// Open decrypts an envelope with the recipient's KEM private key. A payload
// that fails AEAD authentication yields ErrDecryptionFailed. Open never
// touches the signature; authenticity is checked separately with Verify so a
// stripped or corrupted signature cannot block access to the plaintext.
func Open(env *latticevault.HybridEnvelope, privateKey []byte, params core.KEMParams) ([]byte, error) {
	if env == nil {
		return nil, utils.ErrInvalidLength
	}

	sharedSecret, err := kem.Decapsulate(env.KEMCiphertext, privateKey, params)
	if err != nil {
		return nil, err
	}
	defer utils.Zeroize(sharedSecret)

	return openPayload(env.Payload, sharedSecret, env.KEMCiphertext)
}

// OpenWithSecret decrypts an envelope from an already-recovered shared
// secret. Used when decapsulation was delegated to an HSM and only the
// secret, never the private key, is available in-process.
func OpenWithSecret(env *latticevault.HybridEnvelope, sharedSecret []byte) ([]byte, error) {
	if env == nil {
		return nil, utils.ErrInvalidLength
	}
	return openPayload(env.Payload, sharedSecret, env.KEMCiphertext)
}

// Verify reports whether the envelope's signature is valid over its payload
// under signerPublicKey. An unsigned envelope, like a tampered one, is false.
func Verify(env *latticevault.HybridEnvelope, signerPublicKey []byte, params core.SignParams) bool {
	if env == nil || !env.HasSignature() {
		return false
	}
	return sign.Verify(env.Payload, env.Signature, signerPublicKey, params)
}

// sealPayload performs the AEAD half of Seal: derive the key, pick a fresh
// nonce and return nonce||ciphertext||tag.
func sealPayload(plaintext, sharedSecret, kemCiphertext []byte) ([]byte, error) {
	key, err := deriveKey(sharedSecret, kemCiphertext)
	if err != nil {
		return nil, err
	}
	defer utils.Zeroize(key)

	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce, err := utils.SecureRandomBytes(gcmNonceSize)
	if err != nil {
		return nil, err
	}
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// openPayload reverses sealPayload. Any authentication failure is reported as
// ErrDecryptionFailed without detail, so callers cannot distinguish a wrong
// key from a tampered payload.
func openPayload(payload, sharedSecret, kemCiphertext []byte) ([]byte, error) {
	if len(payload) < gcmNonceSize {
		return nil, fmt.Errorf("%w: payload too short", latticevault.ErrDecryptionFailed)
	}

	key, err := deriveKey(sharedSecret, kemCiphertext)
	if err != nil {
		return nil, err
	}
	defer utils.Zeroize(key)

	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, payload[:gcmNonceSize], payload[gcmNonceSize:], nil)
	if err != nil {
		return nil, latticevault.ErrDecryptionFailed
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
