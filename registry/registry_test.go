package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	latticevault "github.com/latticevault/latticevault-go"
)

// fakeGenerator avoids running real lattice keygen in lifecycle tests.
type fakeGenerator struct {
	counter int
}

func (g *fakeGenerator) Generate(algorithm latticevault.Algorithm, variant string) (*latticevault.KeyPair, error) {
	g.counter++
	return &latticevault.KeyPair{
		Algorithm:  algorithm,
		Variant:    variant,
		PublicKey:  []byte{0x70, byte(g.counter)},
		PrivateKey: []byte{0x5e, byte(g.counter)},
	}, nil
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestRegistry(t *testing.T) (*Registry, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	return New(WithGenerator(&fakeGenerator{}), WithClock(clock.Now)), clock
}

func testMeta() latticevault.KeyMetadata {
	return latticevault.KeyMetadata{
		Classification: "restricted",
		Usage:          []string{"envelope"},
		Owner:          "records-service",
		Rotation: latticevault.RotationPolicy{
			MaxAge:          30 * 24 * time.Hour,
			RetentionWindow: 90 * 24 * time.Hour,
		},
	}
}

func TestGenerateAndLookup(t *testing.T) {
	r, _ := newTestRegistry(t)

	id, err := r.Generate(latticevault.AlgorithmKEM, latticevault.LV768, testMeta())
	require.NoError(t, err)
	require.NotEmpty(t, id)

	rec, err := r.Lookup(id)
	require.NoError(t, err)
	assert.Equal(t, latticevault.KeyStateActive, rec.State)
	assert.Equal(t, latticevault.AlgorithmKEM, rec.Pair.Algorithm)
	assert.Equal(t, latticevault.LV768, rec.Pair.Variant)
	assert.Equal(t, "records-service", rec.Pair.Metadata.Owner)
	assert.Nil(t, rec.Pair.PrivateKey, "lookup must never expose private material")
	assert.NotEmpty(t, rec.Pair.PublicKey)
}

func TestLookupUnknown(t *testing.T) {
	r, _ := newTestRegistry(t)
	_, err := r.Lookup("no-such-id")
	require.ErrorIs(t, err, latticevault.ErrKeyNotFound)
}

func TestRegisterValidatesVariant(t *testing.T) {
	r, _ := newTestRegistry(t)
	_, err := r.Register(&latticevault.KeyPair{
		Algorithm: latticevault.AlgorithmKEM,
		Variant:   "LV-9000",
		PublicKey: []byte{1},
	})
	require.ErrorIs(t, err, latticevault.ErrUnknownVariant)

	_, err = r.Register(&latticevault.KeyPair{
		Algorithm: latticevault.AlgorithmKEM,
		Variant:   latticevault.LV512,
	})
	require.Error(t, err, "missing public key accepted")
}

func TestRegisterDuplicateID(t *testing.T) {
	r, _ := newTestRegistry(t)
	pair := &latticevault.KeyPair{
		ID:        "fixed-id",
		Algorithm: latticevault.AlgorithmKEM,
		Variant:   latticevault.LV512,
		PublicKey: []byte{1},
	}
	_, err := r.Register(pair)
	require.NoError(t, err)
	_, err = r.Register(pair)
	require.Error(t, err)
}

func TestUsePrivateKey(t *testing.T) {
	r, _ := newTestRegistry(t)
	id, err := r.Generate(latticevault.AlgorithmKEM, latticevault.LV768, testMeta())
	require.NoError(t, err)

	var seen []byte
	err = r.UsePrivateKey(id, func(pair *latticevault.KeyPair) error {
		seen = append([]byte(nil), pair.PrivateKey...)
		return nil
	})
	require.NoError(t, err)
	require.NotEmpty(t, seen)
}

func TestRotateLifecycle(t *testing.T) {
	r, clock := newTestRegistry(t)
	id, err := r.Generate(latticevault.AlgorithmKEM, latticevault.LV768, testMeta())
	require.NoError(t, err)

	newID, err := r.Rotate(id)
	require.NoError(t, err)
	require.NotEqual(t, id, newID)

	old, err := r.Lookup(id)
	require.NoError(t, err)
	assert.Equal(t, latticevault.KeyStateRetired, old.State)
	assert.Equal(t, newID, old.Successor)
	assert.Equal(t, clock.Now(), old.RotatedAt)

	successor, err := r.Lookup(newID)
	require.NoError(t, err)
	assert.Equal(t, latticevault.KeyStateActive, successor.State)
	assert.Equal(t, id, successor.Predecessor)
	assert.Equal(t, old.Pair.Metadata, successor.Pair.Metadata, "metadata must carry over")

	// retired key remains usable inside the retention window
	err = r.UsePrivateKey(id, func(*latticevault.KeyPair) error { return nil })
	require.NoError(t, err)

	// but not after the window elapses
	clock.Advance(91 * 24 * time.Hour)
	err = r.UsePrivateKey(id, func(*latticevault.KeyPair) error { return nil })
	require.ErrorIs(t, err, latticevault.ErrKeyRevoked)
}

func TestRotateRevokedFails(t *testing.T) {
	r, _ := newTestRegistry(t)
	id, err := r.Generate(latticevault.AlgorithmSign, latticevault.LVS65, testMeta())
	require.NoError(t, err)
	require.NoError(t, r.Revoke(id))

	_, err = r.Rotate(id)
	require.ErrorIs(t, err, latticevault.ErrKeyRevoked)
}

func TestRevokeDestroysMaterial(t *testing.T) {
	r, _ := newTestRegistry(t)
	id, err := r.Generate(latticevault.AlgorithmKEM, latticevault.LV768, testMeta())
	require.NoError(t, err)
	require.NoError(t, r.Revoke(id))

	rec, err := r.Lookup(id)
	require.NoError(t, err)
	assert.Equal(t, latticevault.KeyStateRevoked, rec.State)

	err = r.UsePrivateKey(id, func(*latticevault.KeyPair) error { return nil })
	require.ErrorIs(t, err, latticevault.ErrKeyRevoked)
}

func TestKeysNeedingRotation(t *testing.T) {
	r, clock := newTestRegistry(t)
	due, err := r.Generate(latticevault.AlgorithmKEM, latticevault.LV768, testMeta())
	require.NoError(t, err)

	// no MaxAge means never due
	noPolicy := testMeta()
	noPolicy.Rotation = latticevault.RotationPolicy{}
	exempt, err := r.Generate(latticevault.AlgorithmKEM, latticevault.LV768, noPolicy)
	require.NoError(t, err)

	assert.Empty(t, r.KeysNeedingRotation())

	clock.Advance(31 * 24 * time.Hour)
	ids := r.KeysNeedingRotation()
	assert.Contains(t, ids, due)
	assert.NotContains(t, ids, exempt)
}

func TestPurgeExpired(t *testing.T) {
	r, clock := newTestRegistry(t)
	id, err := r.Generate(latticevault.AlgorithmKEM, latticevault.LV768, testMeta())
	require.NoError(t, err)
	_, err = r.Rotate(id)
	require.NoError(t, err)

	assert.Empty(t, r.PurgeExpired(), "purge inside the retention window")

	clock.Advance(91 * 24 * time.Hour)
	purged := r.PurgeExpired()
	require.Equal(t, []string{id}, purged)

	rec, err := r.Lookup(id)
	require.NoError(t, err)
	assert.Equal(t, latticevault.KeyStateRevoked, rec.State)
}

func TestList(t *testing.T) {
	r, _ := newTestRegistry(t)
	for i := 0; i < 3; i++ {
		_, err := r.Generate(latticevault.AlgorithmKEM, latticevault.LV512, testMeta())
		require.NoError(t, err)
	}
	records := r.List()
	require.Len(t, records, 3)
	for _, rec := range records {
		assert.Nil(t, rec.Pair.PrivateKey)
	}
}

// revokeDuringGenerator revokes a key from inside keygen, standing in for a
// revoke that lands while Rotate runs keygen outside the registry lock.
type revokeDuringGenerator struct {
	inner    fakeGenerator
	registry *Registry
	revokeID string
}

func (g *revokeDuringGenerator) Generate(algorithm latticevault.Algorithm, variant string) (*latticevault.KeyPair, error) {
	if g.revokeID != "" {
		id := g.revokeID
		g.revokeID = ""
		if err := g.registry.Revoke(id); err != nil {
			return nil, err
		}
	}
	return g.inner.Generate(algorithm, variant)
}

func TestRotateLosesRaceWithRevoke(t *testing.T) {
	gen := &revokeDuringGenerator{}
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	r := New(WithGenerator(gen), WithClock(clock.Now))
	gen.registry = r

	id, err := r.Generate(latticevault.AlgorithmKEM, latticevault.LV768, testMeta())
	require.NoError(t, err)

	gen.revokeID = id
	_, err = r.Rotate(id)
	require.ErrorIs(t, err, latticevault.ErrKeyRevoked)

	// revocation stays terminal and no orphan successor is left behind
	rec, err := r.Lookup(id)
	require.NoError(t, err)
	assert.Equal(t, latticevault.KeyStateRevoked, rec.State)
	assert.Empty(t, rec.Successor)
	assert.Len(t, r.List(), 1)

	_, err = r.Rotate(id)
	require.ErrorIs(t, err, latticevault.ErrKeyRevoked)
}
