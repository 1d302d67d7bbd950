// Package hsm defines the delegation boundary for private-key operations.
// A Backend owns private material behind opaque handles; callers never see
// the bytes. When a backend cannot service an operation the call fails
// closed: there is no silent fallback to an in-process implementation.
package hsm

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-uuid"

	latticevault "github.com/latticevault/latticevault-go"
	"github.com/latticevault/latticevault-go/core"
	"github.com/latticevault/latticevault-go/kem"
	"github.com/latticevault/latticevault-go/sign"
	"github.com/latticevault/latticevault-go/utils"
)

// Backend performs private-key operations on keys it owns. Implementations
// must be safe for concurrent use.
type Backend interface {
	// Name identifies the backend in errors and audit records.
	Name() string

	// GenerateKeyPair creates a key pair whose private half never leaves the
	// backend. It returns an opaque handle and the encoded public key.
	GenerateKeyPair(ctx context.Context, algorithm latticevault.Algorithm, variant string) (handle string, publicKey []byte, err error)

	// Decapsulate recovers the shared secret for a KEM ciphertext under the
	// handle's private key.
	Decapsulate(ctx context.Context, handle string, ciphertext []byte) ([]byte, error)

	// Sign produces a signature over message under the handle's private key.
	Sign(ctx context.Context, handle string, message []byte) ([]byte, error)

	// DestroyKey irreversibly destroys the private material behind handle.
	DestroyKey(ctx context.Context, handle string) error
}

type softKey struct {
	algorithm  latticevault.Algorithm
	variant    string
	privateKey []byte
}

// SoftwareBackend is an in-process Backend holding private material in its
// own keystore. It exists for environments without hardware and for tests;
// it honors the same handle discipline as a real device.
type SoftwareBackend struct {
	mu   sync.RWMutex
	keys map[string]*softKey
}

// NewSoftwareBackend creates an empty software backend.
func NewSoftwareBackend() *SoftwareBackend {
	return &SoftwareBackend{keys: make(map[string]*softKey)}
}

// Name implements Backend.
func (b *SoftwareBackend) Name() string { return "software" }

// GenerateKeyPair implements Backend.
func (b *SoftwareBackend) GenerateKeyPair(ctx context.Context, algorithm latticevault.Algorithm, variant string) (string, []byte, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}

	var publicKey, privateKey []byte
	switch algorithm {
	case latticevault.AlgorithmKEM:
		kp, err := kem.GenerateKeyPair(variant)
		if err != nil {
			return "", nil, err
		}
		publicKey, privateKey = kp.PublicKey, kp.PrivateKey
	case latticevault.AlgorithmSign:
		kp, err := sign.GenerateKeyPair(variant)
		if err != nil {
			return "", nil, err
		}
		publicKey, privateKey = kp.PublicKey, kp.PrivateKey
	default:
		return "", nil, fmt.Errorf("%w: algorithm %q", latticevault.ErrUnknownVariant, algorithm)
	}

	handle, err := uuid.GenerateUUID()
	if err != nil {
		return "", nil, err
	}

	b.mu.Lock()
	b.keys[handle] = &softKey{algorithm: algorithm, variant: variant, privateKey: privateKey}
	b.mu.Unlock()
	return handle, publicKey, nil
}

// Decapsulate implements Backend.
func (b *SoftwareBackend) Decapsulate(ctx context.Context, handle string, ciphertext []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key, err := b.lookup(handle, latticevault.AlgorithmKEM)
	if err != nil {
		return nil, err
	}
	params, err := core.GetKEMParams(key.variant)
	if err != nil {
		return nil, err
	}
	return kem.Decapsulate(ciphertext, key.privateKey, params)
}

// Sign implements Backend.
func (b *SoftwareBackend) Sign(ctx context.Context, handle string, message []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key, err := b.lookup(handle, latticevault.AlgorithmSign)
	if err != nil {
		return nil, err
	}
	params, err := core.GetSignParams(key.variant)
	if err != nil {
		return nil, err
	}
	result, err := sign.Sign(message, key.privateKey, params)
	if err != nil {
		return nil, err
	}
	return result.Signature, nil
}

// DestroyKey implements Backend.
func (b *SoftwareBackend) DestroyKey(ctx context.Context, handle string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	key, ok := b.keys[handle]
	if !ok {
		return fmt.Errorf("%w: handle %s", latticevault.ErrKeyNotFound, handle)
	}
	utils.Zeroize(key.privateKey)
	delete(b.keys, handle)
	return nil
}

func (b *SoftwareBackend) lookup(handle string, want latticevault.Algorithm) (*softKey, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	key, ok := b.keys[handle]
	if !ok {
		return nil, fmt.Errorf("%w: handle %s", latticevault.ErrKeyNotFound, handle)
	}
	if key.algorithm != want {
		return nil, fmt.Errorf("%w: handle %s is a %s key", latticevault.ErrParameterMismatch, handle, key.algorithm)
	}
	return key, nil
}
