// Package crypto implements the client side of the submission
// protocol: report key generation and wrapping, authenticated report
// encryption, content addressing, and the versioned envelope that
// carries all of it to the server.
//
// The server never sees an unwrapped ReportKey. Key wrapping uses age
// x25519 recipients; report encryption uses XChaCha20-Poly1305 with a
// fresh random nonce generated inside EncryptReport, so nonce reuse
// under one key cannot be caused by a caller.
package crypto

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"filippo.io/age"
)

// KeySize is the size in bytes of a report's symmetric key.
const KeySize = 32

// ReportKey is a report's 256-bit symmetric key. Owned exclusively by
// the client until wrapped; never persisted unwrapped server-side.
type ReportKey [KeySize]byte

var (
	// ErrEntropyUnavailable means the secure random source could not
	// be read. There is no fallback source.
	ErrEntropyUnavailable = errors.New("secure random source unavailable")

	// ErrInvalidRecipientKey means the recipient key material is not
	// a valid age x25519 public key.
	ErrInvalidRecipientKey = errors.New("invalid recipient key")

	// ErrUnwrapFailed covers every unwrap failure: wrong identity,
	// corrupted ciphertext, bad encoding. Deliberately uniform so
	// callers cannot distinguish the cause.
	ErrUnwrapFailed = errors.New("key unwrap failed")
)

// GenerateKey returns a fresh 256-bit report key from the operating
// system's secure random source.
func GenerateKey() (ReportKey, error) {
	var key ReportKey
	if _, err := io.ReadFull(rand.Reader, key[:]); err != nil {
		return ReportKey{}, fmt.Errorf("%w: %v", ErrEntropyUnavailable, err)
	}
	return key, nil
}

// GenerateRecipient returns a fresh age x25519 identity and its public
// recipient string. The identity stays with the redaction worker (or a
// test); the recipient string is what reporters wrap keys to.
func GenerateRecipient() (identity *age.X25519Identity, recipient string, err error) {
	identity, err = age.GenerateX25519Identity()
	if err != nil {
		return nil, "", fmt.Errorf("generating age identity: %w", err)
	}
	return identity, identity.Recipient().String(), nil
}

// WrapKey encrypts the report key to an age x25519 recipient. The
// result is base64 std encoded for transport inside the envelope.
func WrapKey(key ReportKey, recipientKey string) (string, error) {
	recipient, err := age.ParseX25519Recipient(recipientKey)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidRecipientKey, err)
	}

	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, recipient)
	if err != nil {
		return "", fmt.Errorf("creating age encryptor: %w", err)
	}
	if _, err := w.Write(key[:]); err != nil {
		return "", fmt.Errorf("wrapping report key: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalizing key wrap: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// UnwrapKey recovers a report key from its wrapped form using the
// recipient's age identity. All failures return ErrUnwrapFailed with
// no further detail.
func UnwrapKey(wrapped string, identity age.Identity) (ReportKey, error) {
	raw, err := base64.StdEncoding.DecodeString(wrapped)
	if err != nil {
		return ReportKey{}, ErrUnwrapFailed
	}
	r, err := age.Decrypt(bytes.NewReader(raw), identity)
	if err != nil {
		return ReportKey{}, ErrUnwrapFailed
	}
	plaintext, err := io.ReadAll(r)
	if err != nil {
		return ReportKey{}, ErrUnwrapFailed
	}
	if len(plaintext) != KeySize {
		return ReportKey{}, ErrUnwrapFailed
	}
	var key ReportKey
	copy(key[:], plaintext)
	for i := range plaintext {
		plaintext[i] = 0
	}
	return key, nil
}
