// Package suite is the top-level orchestration layer: it ties the registry,
// the optional HSM backend, hybrid envelopes and the audit boundary together
// behind a key-identifier API. Applications that just need "encrypt this to
// that key id" use this package and nothing below it.
package suite

import (
	"context"
	"fmt"
	"time"

	latticevault "github.com/latticevault/latticevault-go"
	"github.com/latticevault/latticevault-go/audit"
	"github.com/latticevault/latticevault-go/core"
	"github.com/latticevault/latticevault-go/envelope"
	"github.com/latticevault/latticevault-go/hsm"
	"github.com/latticevault/latticevault-go/registry"
	"github.com/latticevault/latticevault-go/sign"
	"github.com/latticevault/latticevault-go/utils"
)

// timeNow stamps audit records; tests may swap it.
var timeNow = time.Now

// Suite coordinates key lifecycle and envelope operations.
type Suite struct {
	registry *registry.Registry
	backend  hsm.Backend
	recorder audit.Recorder
}

// Option configures a Suite.
type Option func(*Suite)

// WithRegistry supplies a pre-populated registry.
func WithRegistry(r *registry.Registry) Option {
	return func(s *Suite) { s.registry = r }
}

// WithHSM attaches an HSM backend. Keys generated with HSMResident then live
// behind handles; their operations delegate to the backend and fail closed
// when it is unavailable.
func WithHSM(b hsm.Backend) Option {
	return func(s *Suite) { s.backend = b }
}

// WithAudit attaches an audit recorder.
func WithAudit(r audit.Recorder) Option {
	return func(s *Suite) { s.recorder = r }
}

// New creates a Suite. Without options it uses a fresh registry, no HSM and
// a no-op audit recorder.
func New(opts ...Option) *Suite {
	s := &Suite{
		registry: registry.New(),
		recorder: audit.NopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry exposes the underlying registry for lifecycle queries.
func (s *Suite) Registry() *registry.Registry { return s.registry }

// GenerateOptions controls key generation.
type GenerateOptions struct {
	hsmResident bool
}

// GenerateOption configures GenerateKeyPair.
type GenerateOption func(*GenerateOptions)

// WithHSMResident requests that the private material never exist outside the
// configured HSM backend. Fails if no backend is attached.
func WithHSMResident() GenerateOption {
	return func(o *GenerateOptions) { o.hsmResident = true }
}

// GenerateKeyPair generates and registers a key pair, returning its id.
func (s *Suite) GenerateKeyPair(ctx context.Context, algorithm latticevault.Algorithm, variant string,
	meta latticevault.KeyMetadata, opts ...GenerateOption) (string, error) {

	var o GenerateOptions
	for _, opt := range opts {
		opt(&o)
	}

	start := timeNow()
	var id, backend string
	var err error
	if o.hsmResident {
		id, err = s.generateResident(ctx, algorithm, variant, meta)
		if s.backend != nil {
			backend = s.backend.Name()
		}
	} else {
		id, err = s.registry.Generate(algorithm, variant, meta)
	}
	s.emit("generate", id, variant, backend, start, err, "")
	return id, err
}

func (s *Suite) generateResident(ctx context.Context, algorithm latticevault.Algorithm, variant string,
	meta latticevault.KeyMetadata) (string, error) {

	if s.backend == nil {
		return "", fmt.Errorf("%w: no hsm backend configured", latticevault.ErrDelegationFailed)
	}
	handle, publicKey, err := s.backend.GenerateKeyPair(ctx, algorithm, variant)
	if err != nil {
		return "", err
	}
	return s.registry.Register(&latticevault.KeyPair{
		Algorithm: algorithm,
		Variant:   variant,
		PublicKey: publicKey,
		Handle:    handle,
		Metadata:  meta,
	})
}

// HybridEncrypt seals plaintext to the recipient key id and returns the
// wire-format envelope. A non-empty signerKeyID additionally signs the
// symmetric payload with that key.
func (s *Suite) HybridEncrypt(ctx context.Context, plaintext []byte, recipientKeyID, signerKeyID string) ([]byte, error) {
	start := timeNow()
	wire, err := s.hybridEncrypt(ctx, plaintext, recipientKeyID, signerKeyID)
	s.emit("encrypt", recipientKeyID, "", "", start, err, "")
	return wire, err
}

func (s *Suite) hybridEncrypt(ctx context.Context, plaintext []byte, recipientKeyID, signerKeyID string) ([]byte, error) {
	rec, err := s.activeKey(recipientKeyID, latticevault.AlgorithmKEM)
	if err != nil {
		return nil, err
	}
	kemParams, err := core.GetKEMParams(rec.Pair.Variant)
	if err != nil {
		return nil, err
	}

	env, err := envelope.Seal(plaintext, rec.Pair.PublicKey, kemParams)
	if err != nil {
		return nil, err
	}

	if signerKeyID != "" {
		sig, err := s.Sign(ctx, env.Payload, signerKeyID)
		if err != nil {
			return nil, err
		}
		env.Signature = sig.Signature
	}
	return envelope.Encode(env)
}

// DecryptResult is the outcome of HybridDecrypt. Verified reports signature
// validity and is independent of decryption: a stripped or corrupted
// signature leaves Verified false without blocking access to the plaintext.
type DecryptResult struct {
	Plaintext []byte
	// Signed reports whether the envelope carried a signature at all.
	Signed bool
	// Verified is true only when a signature was present, a signer key was
	// supplied and the signature checked out.
	Verified bool
}

// HybridDecrypt opens a wire-format envelope with the recipient key id. A
// non-empty signerKeyID verifies the embedded signature against that key.
func (s *Suite) HybridDecrypt(ctx context.Context, wire []byte, recipientKeyID, signerKeyID string) (*DecryptResult, error) {
	start := timeNow()
	res, backend, err := s.hybridDecrypt(ctx, wire, recipientKeyID, signerKeyID)
	s.emit("decrypt", recipientKeyID, "", backend, start, err, "")
	if err == nil && res.Signed && !res.Verified {
		s.recorder.Emit(audit.Record{
			Time:      s.nowRecord().Time,
			Operation: "verify",
			KeyID:     signerKeyID,
			Outcome:   audit.OutcomeRejected,
			Detail:    "envelope signature did not verify",
		})
	}
	return res, err
}

func (s *Suite) hybridDecrypt(ctx context.Context, wire []byte, recipientKeyID, signerKeyID string) (*DecryptResult, string, error) {
	env, err := envelope.Decode(wire)
	if err != nil {
		return nil, "", err
	}

	rec, err := s.registry.Lookup(recipientKeyID)
	if err != nil {
		return nil, "", err
	}
	if rec.Pair.Algorithm != latticevault.AlgorithmKEM {
		return nil, "", fmt.Errorf("%w: %s is not a kem key", latticevault.ErrParameterMismatch, recipientKeyID)
	}
	kemParams, err := core.GetKEMParams(rec.Pair.Variant)
	if err != nil {
		return nil, "", err
	}

	var plaintext []byte
	var backend string
	err = s.registry.UsePrivateKey(recipientKeyID, func(pair *latticevault.KeyPair) error {
		if pair.HSMResident() {
			if s.backend == nil {
				return fmt.Errorf("%w: key %s is hsm-resident but no backend configured",
					latticevault.ErrDelegationFailed, recipientKeyID)
			}
			backend = s.backend.Name()
			secret, err := s.backend.Decapsulate(ctx, pair.Handle, env.KEMCiphertext)
			if err != nil {
				return err
			}
			defer utils.Zeroize(secret)
			plaintext, err = envelope.OpenWithSecret(env, secret)
			return err
		}
		var err error
		plaintext, err = envelope.Open(env, pair.PrivateKey, kemParams)
		return err
	})
	if err != nil {
		return nil, backend, err
	}

	res := &DecryptResult{Plaintext: plaintext, Signed: env.HasSignature()}
	if env.HasSignature() && signerKeyID != "" {
		res.Verified = s.verifyEnvelope(env, signerKeyID)
	}
	return res, backend, nil
}

func (s *Suite) verifyEnvelope(env *latticevault.HybridEnvelope, signerKeyID string) bool {
	rec, err := s.registry.Lookup(signerKeyID)
	if err != nil || rec.Pair.Algorithm != latticevault.AlgorithmSign {
		return false
	}
	signParams, err := core.GetSignParams(rec.Pair.Variant)
	if err != nil {
		return false
	}
	return envelope.Verify(env, rec.Pair.PublicKey, signParams)
}

// Sign signs message with the key id, delegating to the HSM for resident
// keys.
func (s *Suite) Sign(ctx context.Context, message []byte, keyID string) (*latticevault.SignatureResult, error) {
	start := timeNow()
	result, backend, err := s.signWithKey(ctx, message, keyID)
	s.emit("sign", keyID, "", backend, start, err, "")
	return result, err
}

func (s *Suite) signWithKey(ctx context.Context, message []byte, keyID string) (*latticevault.SignatureResult, string, error) {
	rec, err := s.activeKey(keyID, latticevault.AlgorithmSign)
	if err != nil {
		return nil, "", err
	}
	signParams, err := core.GetSignParams(rec.Pair.Variant)
	if err != nil {
		return nil, "", err
	}

	var result *latticevault.SignatureResult
	var backend string
	err = s.registry.UsePrivateKey(keyID, func(pair *latticevault.KeyPair) error {
		if pair.HSMResident() {
			if s.backend == nil {
				return fmt.Errorf("%w: key %s is hsm-resident but no backend configured",
					latticevault.ErrDelegationFailed, keyID)
			}
			backend = s.backend.Name()
			sigBytes, err := s.backend.Sign(ctx, pair.Handle, message)
			if err != nil {
				return err
			}
			result = &latticevault.SignatureResult{
				Signature:     sigBytes,
				MessageDigest: utils.SHA3256(message),
			}
			return nil
		}
		var err error
		result, err = sign.Sign(message, pair.PrivateKey, signParams)
		return err
	})
	if err != nil {
		return nil, backend, err
	}
	result.SignerKeyID = keyID
	return result, backend, nil
}

// Verify checks a detached signature over message against the key id. False
// for unknown keys, wrong algorithms and invalid signatures alike.
func (s *Suite) Verify(message, signature []byte, keyID string) bool {
	rec, err := s.registry.Lookup(keyID)
	if err != nil || rec.Pair.Algorithm != latticevault.AlgorithmSign {
		return false
	}
	signParams, err := core.GetSignParams(rec.Pair.Variant)
	if err != nil {
		return false
	}
	start := timeNow()
	ok := sign.Verify(message, signature, rec.Pair.PublicKey, signParams)
	if !ok {
		s.emit("verify", keyID, rec.Pair.Variant, "", start, latticevault.ErrSignatureInvalid, "detached signature rejected")
	}
	return ok
}

// Rotate retires the key id and activates a fresh successor, returning the
// successor id.
func (s *Suite) Rotate(ctx context.Context, keyID string) (string, error) {
	start := timeNow()
	newID, err := s.registry.Rotate(keyID)
	s.emit("rotate", keyID, "", "", start, err, "successor "+newID)
	return newID, err
}

// Revoke destroys the private material of the key id.
func (s *Suite) Revoke(ctx context.Context, keyID string) error {
	start := timeNow()
	err := s.registry.Revoke(keyID)
	s.emit("revoke", keyID, "", "", start, err, "")
	return err
}

// activeKey looks up a key and insists it is active and of the expected
// algorithm. New operations never start on retired or revoked keys.
func (s *Suite) activeKey(keyID string, want latticevault.Algorithm) (*registry.Record, error) {
	rec, err := s.registry.Lookup(keyID)
	if err != nil {
		return nil, err
	}
	if rec.Pair.Algorithm != want {
		return nil, fmt.Errorf("%w: %s is a %s key, want %s",
			latticevault.ErrParameterMismatch, keyID, rec.Pair.Algorithm, want)
	}
	switch rec.State {
	case latticevault.KeyStateActive:
		return rec, nil
	case latticevault.KeyStateRevoked:
		return nil, fmt.Errorf("%w: %s", latticevault.ErrKeyRevoked, keyID)
	default:
		return nil, fmt.Errorf("key %s is %s; use its successor %s", keyID, rec.State, rec.Successor)
	}
}

func (s *Suite) emit(op, keyID, variant, backend string, start time.Time, err error, detail string) {
	rec := s.nowRecord()
	rec.Operation = op
	rec.KeyID = keyID
	rec.Variant = variant
	rec.Backend = backend
	rec.Latency = rec.Time.Sub(start)
	rec.Detail = detail
	if err != nil {
		rec.Outcome = audit.OutcomeFailure
		rec.Detail = err.Error()
	} else {
		rec.Outcome = audit.OutcomeSuccess
	}
	s.recorder.Emit(rec)
}

func (s *Suite) nowRecord() audit.Record {
	return audit.Record{Time: timeNow()}
}
