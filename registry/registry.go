// Package registry manages key pairs through their lifecycle: registration,
// lookup, scheduled rotation, retention of retired material and revocation.
// Private key bytes never leave the registry; callers either receive redacted
// records or borrow the private key inside a callback.
package registry

import (
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-uuid"

	latticevault "github.com/latticevault/latticevault-go"
	"github.com/latticevault/latticevault-go/core"
	"github.com/latticevault/latticevault-go/kem"
	"github.com/latticevault/latticevault-go/sign"
	"github.com/latticevault/latticevault-go/utils"
)

// Generator produces key pairs for the registry. The default software
// generator runs the lattice keygen in-process; an HSM-backed registry
// substitutes one that returns handle-only pairs.
type Generator interface {
	Generate(algorithm latticevault.Algorithm, variant string) (*latticevault.KeyPair, error)
}

// SoftwareGenerator generates key pairs in-process.
type SoftwareGenerator struct{}

// Generate creates a key pair of the requested algorithm and variant.
func (SoftwareGenerator) Generate(algorithm latticevault.Algorithm, variant string) (*latticevault.KeyPair, error) {
	switch algorithm {
	case latticevault.AlgorithmKEM:
		kp, err := kem.GenerateKeyPair(variant)
		if err != nil {
			return nil, err
		}
		return &latticevault.KeyPair{
			Algorithm:  algorithm,
			Variant:    variant,
			PublicKey:  kp.PublicKey,
			PrivateKey: kp.PrivateKey,
		}, nil
	case latticevault.AlgorithmSign:
		kp, err := sign.GenerateKeyPair(variant)
		if err != nil {
			return nil, err
		}
		return &latticevault.KeyPair{
			Algorithm:  algorithm,
			Variant:    variant,
			PublicKey:  kp.PublicKey,
			PrivateKey: kp.PrivateKey,
		}, nil
	default:
		return nil, fmt.Errorf("%w: algorithm %q", latticevault.ErrUnknownVariant, algorithm)
	}
}

// Record is the redacted public view of a registry entry.
type Record struct {
	Pair latticevault.KeyPair // PrivateKey always nil
	// State is the current lifecycle state.
	State latticevault.KeyState
	// RotatedAt is when the key left the active state; zero while active.
	RotatedAt time.Time
	// Successor is the id of the key that replaced this one, if rotated.
	Successor string
	// Predecessor is the id of the key this one replaced, if any.
	Predecessor string
}

type entry struct {
	pair        latticevault.KeyPair
	state       latticevault.KeyState
	rotatedAt   time.Time
	successor   string
	predecessor string
}

// Registry is a concurrency-safe in-memory key registry.
type Registry struct {
	mu   sync.RWMutex
	keys map[string]*entry

	gen Generator
	now func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithGenerator replaces the default software key generator.
func WithGenerator(g Generator) Option {
	return func(r *Registry) { r.gen = g }
}

// WithClock replaces the time source. Tests use this to drive rotation and
// retention deadlines without sleeping.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		keys: make(map[string]*entry),
		gen:  SoftwareGenerator{},
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Generate creates and registers a new active key pair, returning its id.
func (r *Registry) Generate(algorithm latticevault.Algorithm, variant string, meta latticevault.KeyMetadata) (string, error) {
	pair, err := r.gen.Generate(algorithm, variant)
	if err != nil {
		return "", err
	}
	pair.Metadata = meta
	return r.Register(pair)
}

// Register adds an externally created key pair as active. A pair without an
// id is assigned a fresh UUID; a duplicate id is rejected.
func (r *Registry) Register(pair *latticevault.KeyPair) (string, error) {
	if pair == nil || len(pair.PublicKey) == 0 {
		return "", fmt.Errorf("register: missing public key")
	}
	if err := validateVariant(pair.Algorithm, pair.Variant); err != nil {
		return "", err
	}

	id := pair.ID
	if id == "" {
		var err error
		id, err = uuid.GenerateUUID()
		if err != nil {
			return "", fmt.Errorf("register: %w", err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.keys[id]; exists {
		return "", fmt.Errorf("register: id %s already registered", id)
	}

	stored := *pair
	stored.ID = id
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = r.now()
	}
	stored.PrivateKey = append([]byte(nil), pair.PrivateKey...)
	stored.PublicKey = append([]byte(nil), pair.PublicKey...)

	r.keys[id] = &entry{pair: stored, state: latticevault.KeyStateActive}
	return id, nil
}

// Lookup returns the redacted record for id.
func (r *Registry) Lookup(id string) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.keys[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", latticevault.ErrKeyNotFound, id)
	}
	return e.record(), nil
}

// List returns redacted records for every entry, in no particular order.
func (r *Registry) List() []*Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Record, 0, len(r.keys))
	for _, e := range r.keys {
		out = append(out, e.record())
	}
	return out
}

// UsePrivateKey runs fn with the private key bytes of id while holding the
// registry lock. The slice must not be retained past fn's return. Revoked
// keys and retired keys past their retention window fail with ErrKeyRevoked;
// retired keys inside the window remain usable so old envelopes stay
// decryptable.
func (r *Registry) UsePrivateKey(id string, fn func(pair *latticevault.KeyPair) error) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.keys[id]
	if !ok {
		return fmt.Errorf("%w: %s", latticevault.ErrKeyNotFound, id)
	}
	if e.state == latticevault.KeyStateRevoked {
		return fmt.Errorf("%w: %s", latticevault.ErrKeyRevoked, id)
	}
	if e.state == latticevault.KeyStateRetired {
		window := e.pair.Metadata.Rotation.RetentionWindow
		if window > 0 && r.now().After(e.rotatedAt.Add(window)) {
			return fmt.Errorf("%w: %s retention window elapsed", latticevault.ErrKeyRevoked, id)
		}
	}
	if !e.pair.HSMResident() && len(e.pair.PrivateKey) == 0 {
		return fmt.Errorf("%w: %s has no private material", latticevault.ErrKeyRevoked, id)
	}
	return fn(&e.pair)
}

// Rotate retires id and registers a freshly generated successor with the same
// algorithm, variant and metadata. Returns the successor's id. The retired
// key keeps its private material through the retention window.
func (r *Registry) Rotate(id string) (string, error) {
	r.mu.Lock()
	old, ok := r.keys[id]
	if !ok {
		r.mu.Unlock()
		return "", fmt.Errorf("%w: %s", latticevault.ErrKeyNotFound, id)
	}
	if old.state == latticevault.KeyStateRevoked {
		r.mu.Unlock()
		return "", fmt.Errorf("%w: %s", latticevault.ErrKeyRevoked, id)
	}
	algorithm, variant, meta := old.pair.Algorithm, old.pair.Variant, old.pair.Metadata
	r.mu.Unlock()

	// Keygen runs outside the lock; it can take milliseconds.
	pair, err := r.gen.Generate(algorithm, variant)
	if err != nil {
		return "", fmt.Errorf("rotate %s: %w", id, err)
	}
	pair.Metadata = meta
	newID, err := r.Register(pair)
	if err != nil {
		return "", fmt.Errorf("rotate %s: %w", id, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	old = r.keys[id]
	if old.state == latticevault.KeyStateRevoked {
		// a concurrent revoke landed while keygen ran unlocked; revocation
		// is terminal, so discard the successor instead of retiring
		succ := r.keys[newID]
		utils.Zeroize(succ.pair.PrivateKey)
		succ.pair.PrivateKey = nil
		delete(r.keys, newID)
		return "", fmt.Errorf("%w: %s", latticevault.ErrKeyRevoked, id)
	}
	old.state = latticevault.KeyStateRetired
	old.rotatedAt = r.now()
	old.successor = newID
	r.keys[newID].predecessor = id
	return newID, nil
}

// Revoke destroys the private material of id immediately. Revocation is
// terminal and indifferent to the retention window.
func (r *Registry) Revoke(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.keys[id]
	if !ok {
		return fmt.Errorf("%w: %s", latticevault.ErrKeyNotFound, id)
	}
	utils.Zeroize(e.pair.PrivateKey)
	e.pair.PrivateKey = nil
	e.pair.Handle = ""
	e.state = latticevault.KeyStateRevoked
	if e.rotatedAt.IsZero() {
		e.rotatedAt = r.now()
	}
	return nil
}

// KeysNeedingRotation returns the ids of active keys whose age exceeds their
// rotation policy's MaxAge. Keys with no MaxAge never appear.
func (r *Registry) KeysNeedingRotation() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	now := r.now()
	var due []string
	for id, e := range r.keys {
		maxAge := e.pair.Metadata.Rotation.MaxAge
		if e.state == latticevault.KeyStateActive && maxAge > 0 && now.After(e.pair.CreatedAt.Add(maxAge)) {
			due = append(due, id)
		}
	}
	return due
}

// PurgeExpired destroys the private material of retired keys whose retention
// window has elapsed, moving them to the revoked state. Returns the purged
// ids.
func (r *Registry) PurgeExpired() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	var purged []string
	for id, e := range r.keys {
		if e.state != latticevault.KeyStateRetired {
			continue
		}
		window := e.pair.Metadata.Rotation.RetentionWindow
		if window > 0 && now.After(e.rotatedAt.Add(window)) {
			utils.Zeroize(e.pair.PrivateKey)
			e.pair.PrivateKey = nil
			e.pair.Handle = ""
			e.state = latticevault.KeyStateRevoked
			purged = append(purged, id)
		}
	}
	return purged
}

func (e *entry) record() *Record {
	pair := e.pair
	pair.PrivateKey = nil
	pair.PublicKey = append([]byte(nil), e.pair.PublicKey...)
	return &Record{
		Pair:        pair,
		State:       e.state,
		RotatedAt:   e.rotatedAt,
		Successor:   e.successor,
		Predecessor: e.predecessor,
	}
}

func validateVariant(algorithm latticevault.Algorithm, variant string) error {
	switch algorithm {
	case latticevault.AlgorithmKEM:
		_, err := core.GetKEMParams(variant)
		return err
	case latticevault.AlgorithmSign:
		_, err := core.GetSignParams(variant)
		return err
	default:
		return fmt.Errorf("%w: algorithm %q", latticevault.ErrUnknownVariant, algorithm)
	}
}
