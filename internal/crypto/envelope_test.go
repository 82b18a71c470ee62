package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFields() map[string]any {
	return map[string]any{
		"title":       "safety incident",
		"description": "chemical spill in building 4",
		"category":    "environmental",
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)

	ciphertext, nonce, err := EncryptReport(testFields(), key)
	require.NoError(t, err)

	fields, err := DecryptReport(ciphertext, nonce, key)
	require.NoError(t, err)
	assert.Equal(t, "safety incident", fields["title"])
	assert.Equal(t, "chemical spill in building 4", fields["description"])
	assert.Equal(t, "environmental", fields["category"])
}

func TestEncryptReportFreshNonce(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)

	c1, n1, err := EncryptReport(testFields(), key)
	require.NoError(t, err)
	c2, n2, err := EncryptReport(testFields(), key)
	require.NoError(t, err)

	assert.NotEqual(t, n1, n2, "nonce must be fresh per encryption")
	assert.NotEqual(t, c1, c2, "same plaintext must not produce the same ciphertext")
}

func TestDecryptReportUniformFailure(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)
	otherKey, err := GenerateKey()
	require.NoError(t, err)

	ciphertext, nonce, err := EncryptReport(testFields(), key)
	require.NoError(t, err)

	_, err = DecryptReport(ciphertext, nonce, otherKey)
	assert.ErrorIs(t, err, ErrDecryptFailed)

	tampered := make([]byte, len(ciphertext))
	copy(tampered, ciphertext)
	tampered[0] ^= 0x01
	_, err = DecryptReport(tampered, nonce, key)
	assert.ErrorIs(t, err, ErrDecryptFailed)

	_, err = DecryptReport(ciphertext, nonce[:4], key)
	assert.ErrorIs(t, err, ErrDecryptFailed)
}

func TestComputeContentHashDeterministic(t *testing.T) {
	ciphertext := []byte("AB12")
	h1 := ComputeContentHash(ciphertext)
	h2 := ComputeContentHash(ciphertext)

	assert.Equal(t, h1, h2, "same bytes must always hash the same")
	assert.Len(t, h1, 64, "BLAKE3-256 hex digest")
}

func TestComputeContentHashBitFlipDiverges(t *testing.T) {
	c1 := []byte("AB12")
	c2 := []byte("AB13")
	assert.NotEqual(t, ComputeContentHash(c1), ComputeContentHash(c2))
}

func TestNewEnvelope(t *testing.T) {
	_, recipient, err := GenerateRecipient()
	require.NoError(t, err)
	key, err := GenerateKey()
	require.NoError(t, err)

	env, err := NewEnvelope(testFields(), key, recipient)
	require.NoError(t, err)

	require.NoError(t, env.Validate())
	assert.True(t, env.VerifyContentHash())
	assert.Equal(t, EnvelopeVersion, env.Version)
	assert.Equal(t, ComputeContentHash(env.Ciphertext), env.ContentHash)
}

func TestEnvelopeResubmissionUnlinkable(t *testing.T) {
	// Identical plaintext resubmitted yields a different, unlinkable
	// content hash: the hash binds the exact ciphertext instance.
	_, recipient, err := GenerateRecipient()
	require.NoError(t, err)
	key, err := GenerateKey()
	require.NoError(t, err)

	env1, err := NewEnvelope(testFields(), key, recipient)
	require.NoError(t, err)
	env2, err := NewEnvelope(testFields(), key, recipient)
	require.NoError(t, err)

	assert.NotEqual(t, env1.ContentHash, env2.ContentHash)
}

func TestEnvelopeValidate(t *testing.T) {
	_, recipient, err := GenerateRecipient()
	require.NoError(t, err)
	key, err := GenerateKey()
	require.NoError(t, err)
	env, err := NewEnvelope(testFields(), key, recipient)
	require.NoError(t, err)

	cases := []struct {
		name   string
		mutate func(*Envelope)
		want   error
	}{
		{"future version", func(e *Envelope) { e.Version = 2 }, ErrUnsupportedEnvelopeVersion},
		{"empty ciphertext", func(e *Envelope) { e.Ciphertext = nil }, ErrMalformedEnvelope},
		{"short nonce", func(e *Envelope) { e.Nonce = e.Nonce[:8] }, ErrMalformedEnvelope},
		{"missing wrapped key", func(e *Envelope) { e.WrappedKey = "" }, ErrMalformedEnvelope},
		{"missing content hash", func(e *Envelope) { e.ContentHash = "" }, ErrMalformedEnvelope},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			bad := *env
			tc.mutate(&bad)
			assert.ErrorIs(t, bad.Validate(), tc.want)
		})
	}
}

func TestEnvelopeMarshalRoundTrip(t *testing.T) {
	_, recipient, err := GenerateRecipient()
	require.NoError(t, err)
	key, err := GenerateKey()
	require.NoError(t, err)
	env, err := NewEnvelope(testFields(), key, recipient)
	require.NoError(t, err)

	data, err := env.Marshal()
	require.NoError(t, err)

	decoded, err := UnmarshalEnvelope(data)
	require.NoError(t, err)
	assert.Equal(t, env, decoded)
}

func TestUnmarshalEnvelopeRejectsGarbage(t *testing.T) {
	_, err := UnmarshalEnvelope([]byte("not cbor at all"))
	assert.ErrorIs(t, err, ErrMalformedEnvelope)
}
