// Package wrapper adapts the suite to the go-kms-wrapping Wrapper interface,
// so systems that speak that contract (Vault plugins, boundary workers) can
// use module-lattice key wrapping without knowing anything about the
// primitives. The data encryption key is generated by the wrapping envelope
// machinery; this wrapper protects that key with a hybrid envelope and, when
// configured, signs it.
package wrapper

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	wrapping "github.com/hashicorp/go-kms-wrapping/v2"

	latticevault "github.com/latticevault/latticevault-go"
	"github.com/latticevault/latticevault-go/suite"
)

// WrapperTypeLattice identifies this wrapper in go-kms-wrapping metadata.
const WrapperTypeLattice wrapping.WrapperType = "lattice"

// LatticeWrapper wraps data encryption keys with hybrid envelopes keyed by
// registry id.
type LatticeWrapper struct {
	suite          *suite.Suite
	currentKeyId   *atomic.Value
	recipientKeyID string
	signerKeyID    string
}

var _ wrapping.Wrapper = (*LatticeWrapper)(nil)

// NewWrapper creates a wrapper over the given suite. Key ids are supplied
// through SetConfig.
func NewWrapper(s *suite.Suite) *LatticeWrapper {
	w := &LatticeWrapper{
		suite:        s,
		currentKeyId: new(atomic.Value),
	}
	w.currentKeyId.Store("")
	return w
}

// SetConfig sets the recipient (and optional signer) key ids.
func (w *LatticeWrapper) SetConfig(_ context.Context, opt ...wrapping.Option) (*wrapping.WrapperConfig, error) {
	opts, err := getOpts(opt...)
	if err != nil {
		return nil, err
	}
	if opts.withRecipientKeyID != "" {
		w.recipientKeyID = opts.withRecipientKeyID
	}
	if opts.withSignerKeyID != "" {
		w.signerKeyID = opts.withSignerKeyID
	}
	if w.recipientKeyID == "" {
		return nil, errors.New("recipient key id is required")
	}

	wrapConfig := new(wrapping.WrapperConfig)
	wrapConfig.Metadata = map[string]string{
		"recipient_key_id": w.recipientKeyID,
		"signer_key_id":    w.signerKeyID,
	}
	return wrapConfig, nil
}

// Type implements wrapping.Wrapper.
func (w *LatticeWrapper) Type(_ context.Context) (wrapping.WrapperType, error) {
	return WrapperTypeLattice, nil
}

// KeyId implements wrapping.Wrapper.
func (w *LatticeWrapper) KeyId(_ context.Context) (string, error) {
	return w.currentKeyId.Load().(string), nil
}

// Encrypt seals plaintext under a fresh data encryption key and wraps that
// key in a hybrid envelope to the configured recipient.
func (w *LatticeWrapper) Encrypt(ctx context.Context, plaintext []byte, opt ...wrapping.Option) (*wrapping.BlobInfo, error) {
	if plaintext == nil {
		return nil, errors.New("given plaintext for encryption is nil")
	}
	if w.recipientKeyID == "" {
		return nil, errors.New("wrapper not configured: recipient key id missing")
	}

	env, err := wrapping.EnvelopeEncrypt(plaintext, opt...)
	if err != nil {
		return nil, fmt.Errorf("error wrapping data: %w", err)
	}

	wrappedKey, err := w.suite.HybridEncrypt(ctx, env.Key, w.recipientKeyID, w.signerKeyID)
	if err != nil {
		return nil, fmt.Errorf("error wrapping data encryption key: %w", err)
	}

	w.currentKeyId.Store(w.recipientKeyID)

	return &wrapping.BlobInfo{
		Ciphertext: env.Ciphertext,
		Iv:         env.Iv,
		KeyInfo: &wrapping.KeyInfo{
			KeyId:      w.recipientKeyID,
			WrappedKey: wrappedKey,
		},
	}, nil
}

// Decrypt unwraps the data encryption key and decrypts the ciphertext. When
// a signer key is configured, a missing or invalid signature on the wrapped
// key fails closed.
func (w *LatticeWrapper) Decrypt(ctx context.Context, in *wrapping.BlobInfo, opt ...wrapping.Option) ([]byte, error) {
	if in == nil || in.Ciphertext == nil {
		return nil, errors.New("given ciphertext for decryption is nil")
	}
	if in.KeyInfo == nil || len(in.KeyInfo.WrappedKey) == 0 {
		return nil, errors.New("blob is missing its wrapped key")
	}

	keyID := in.KeyInfo.KeyId
	if keyID == "" {
		keyID = w.recipientKeyID
	}

	res, err := w.suite.HybridDecrypt(ctx, in.KeyInfo.WrappedKey, keyID, w.signerKeyID)
	if err != nil {
		return nil, fmt.Errorf("error unwrapping data encryption key: %w", err)
	}
	if w.signerKeyID != "" && !res.Verified {
		return nil, fmt.Errorf("wrapped key: %w", latticevault.ErrSignatureInvalid)
	}

	plaintext, err := wrapping.EnvelopeDecrypt(&wrapping.EnvelopeInfo{
		Key:        res.Plaintext,
		Iv:         in.Iv,
		Ciphertext: in.Ciphertext,
	}, opt...)
	if err != nil {
		return nil, fmt.Errorf("error decrypting data with envelope: %w", err)
	}
	return plaintext, nil
}
