package wrapper

import (
	"context"
	"testing"

	wrapping "github.com/hashicorp/go-kms-wrapping/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	latticevault "github.com/latticevault/latticevault-go"
	"github.com/latticevault/latticevault-go/suite"
)

func testWrapper(t *testing.T, signed bool) (*LatticeWrapper, *suite.Suite) {
	t.Helper()
	ctx := context.Background()
	s := suite.New()

	recipientID, err := s.GenerateKeyPair(ctx, latticevault.AlgorithmKEM, latticevault.LV768,
		latticevault.KeyMetadata{Owner: "wrapper-test"})
	require.NoError(t, err)

	opts := []wrapping.Option{WithRecipientKeyID(recipientID)}
	if signed {
		signerID, err := s.GenerateKeyPair(ctx, latticevault.AlgorithmSign, latticevault.LVS44,
			latticevault.KeyMetadata{Owner: "wrapper-test"})
		require.NoError(t, err)
		opts = append(opts, WithSignerKeyID(signerID))
	}

	w := NewWrapper(s)
	_, err = w.SetConfig(ctx, opts...)
	require.NoError(t, err)
	return w, s
}

func TestWrapperType(t *testing.T) {
	w, _ := testWrapper(t, false)
	typ, err := w.Type(context.Background())
	require.NoError(t, err)
	assert.Equal(t, WrapperTypeLattice, typ)
}

func TestWrapperRequiresRecipient(t *testing.T) {
	w := NewWrapper(suite.New())
	_, err := w.SetConfig(context.Background())
	require.Error(t, err)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	ctx := context.Background()
	w, _ := testWrapper(t, false)
	plaintext := []byte("data protected through the kms-wrapping contract")

	blob, err := w.Encrypt(ctx, plaintext)
	require.NoError(t, err)
	require.NotNil(t, blob.KeyInfo)
	assert.NotEmpty(t, blob.KeyInfo.WrappedKey)
	assert.NotEqual(t, plaintext, blob.Ciphertext)

	keyID, err := w.KeyId(ctx)
	require.NoError(t, err)
	assert.Equal(t, blob.KeyInfo.KeyId, keyID)

	got, err := w.Decrypt(ctx, blob)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestEncryptDecryptWithAAD(t *testing.T) {
	ctx := context.Background()
	w, _ := testWrapper(t, false)
	plaintext := []byte("aad bound")
	aad := wrapping.WithAad([]byte("request-context"))

	blob, err := w.Encrypt(ctx, plaintext, aad)
	require.NoError(t, err)

	got, err := w.Decrypt(ctx, blob, aad)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)

	_, err = w.Decrypt(ctx, blob, wrapping.WithAad([]byte("wrong-context")))
	require.Error(t, err)
}

func TestSignedWrappedKey(t *testing.T) {
	ctx := context.Background()
	w, _ := testWrapper(t, true)
	plaintext := []byte("signed dek")

	blob, err := w.Encrypt(ctx, plaintext)
	require.NoError(t, err)

	got, err := w.Decrypt(ctx, blob)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

// With a signer configured, a wrapped key whose signature is stripped or
// corrupted must fail closed.
func TestSignedWrappedKeyFailsClosedOnTamper(t *testing.T) {
	ctx := context.Background()
	w, _ := testWrapper(t, true)

	blob, err := w.Encrypt(ctx, []byte("dek"))
	require.NoError(t, err)

	blob.KeyInfo.WrappedKey[len(blob.KeyInfo.WrappedKey)-1] ^= 0xFF
	_, err = w.Decrypt(ctx, blob)
	require.ErrorIs(t, err, latticevault.ErrSignatureInvalid)
}

func TestDecryptRejectsMalformedBlob(t *testing.T) {
	ctx := context.Background()
	w, _ := testWrapper(t, false)

	_, err := w.Decrypt(ctx, nil)
	require.Error(t, err)
	_, err = w.Decrypt(ctx, &wrapping.BlobInfo{Ciphertext: []byte{1}})
	require.Error(t, err)
}
