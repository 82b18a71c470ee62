package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"
	"golang.org/x/crypto/chacha20poly1305"
)

// EnvelopeVersion is the only envelope version this build understands.
// Future versions are discriminated by the tag and rejected cleanly
// rather than misparsed.
const EnvelopeVersion = 1

var (
	// ErrDecryptFailed covers every report decrypt failure. Uniform
	// for the same reason ErrUnwrapFailed is.
	ErrDecryptFailed = errors.New("report decrypt failed")

	// ErrUnsupportedEnvelopeVersion rejects envelopes from a protocol
	// version this build does not speak.
	ErrUnsupportedEnvelopeVersion = errors.New("unsupported envelope version")

	// ErrMalformedEnvelope rejects envelopes with missing or
	// inconsistent fields.
	ErrMalformedEnvelope = errors.New("malformed envelope")
)

// encMode uses Core Deterministic Encoding (RFC 8949 §4.2) so the same
// report fields always serialize to identical bytes before encryption.
var encMode cbor.EncMode

var decMode cbor.DecMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("crypto: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("crypto: CBOR decoder initialization failed: " + err.Error())
	}
}

// Envelope is the bundle a reporter transmits: ciphertext (AEAD output,
// Poly1305 tag at the tail), the nonce used to seal it, the wrapped
// report key, and the content hash of the ciphertext. Immutable once
// built; Validate gates everything the server accepts.
type Envelope struct {
	Version     int    `cbor:"v" json:"version"`
	Ciphertext  []byte `cbor:"ct" json:"ciphertext"`
	Nonce       []byte `cbor:"n" json:"nonce"`
	WrappedKey  string `cbor:"wk" json:"wrappedKey"`
	ContentHash string `cbor:"ch" json:"contentHash"`
}

// Validate checks structural integrity: version, presence of all
// fields, and nonce length. It does not verify the hash against the
// ciphertext; VerifyContentHash does that where the binding matters.
func (e *Envelope) Validate() error {
	if e.Version != EnvelopeVersion {
		return fmt.Errorf("%w: %d", ErrUnsupportedEnvelopeVersion, e.Version)
	}
	if len(e.Ciphertext) == 0 {
		return fmt.Errorf("%w: empty ciphertext", ErrMalformedEnvelope)
	}
	if len(e.Nonce) != chacha20poly1305.NonceSizeX {
		return fmt.Errorf("%w: nonce must be %d bytes", ErrMalformedEnvelope, chacha20poly1305.NonceSizeX)
	}
	if e.WrappedKey == "" {
		return fmt.Errorf("%w: missing wrapped key", ErrMalformedEnvelope)
	}
	if e.ContentHash == "" {
		return fmt.Errorf("%w: missing content hash", ErrMalformedEnvelope)
	}
	return nil
}

// VerifyContentHash reports whether the envelope's content hash
// matches its ciphertext bytes.
func (e *Envelope) VerifyContentHash() bool {
	return ComputeContentHash(e.Ciphertext) == e.ContentHash
}

// Marshal encodes the envelope with Core Deterministic Encoding.
func (e *Envelope) Marshal() ([]byte, error) {
	return encMode.Marshal(e)
}

// UnmarshalEnvelope decodes and validates a wire envelope.
func UnmarshalEnvelope(data []byte) (*Envelope, error) {
	var e Envelope
	if err := decMode.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return &e, nil
}

// EncryptReport serializes the report fields deterministically and
// seals them with XChaCha20-Poly1305 under the report key. The nonce
// is freshly random per call and is generated here — callers cannot
// supply one, so a nonce can never be reused under the same key.
func EncryptReport(fields map[string]any, key ReportKey) (ciphertext, nonce []byte, err error) {
	plaintext, err := encMode.Marshal(fields)
	if err != nil {
		return nil, nil, fmt.Errorf("serializing report fields: %w", err)
	}

	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		return nil, nil, fmt.Errorf("initializing cipher: %w", err)
	}
	nonce = make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrEntropyUnavailable, err)
	}
	ciphertext = aead.Seal(nil, nonce, plaintext, nil)
	return ciphertext, nonce, nil
}

// DecryptReport opens the ciphertext and decodes the report fields.
// All failures return ErrDecryptFailed.
func DecryptReport(ciphertext, nonce []byte, key ReportKey) (map[string]any, error) {
	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		return nil, ErrDecryptFailed
	}
	if len(nonce) != chacha20poly1305.NonceSizeX {
		return nil, ErrDecryptFailed
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptFailed
	}
	var fields map[string]any
	if err := decMode.Unmarshal(plaintext, &fields); err != nil {
		return nil, ErrDecryptFailed
	}
	return fields, nil
}

// ComputeContentHash returns the lowercase hex BLAKE3-256 digest of
// the ciphertext bytes. This is the public content address anchored on
// the ledger: it binds the exact ciphertext instance, so re-encrypting
// the same plaintext (fresh nonce) yields a different, unlinkable hash.
func ComputeContentHash(ciphertext []byte) string {
	sum := blake3.Sum256(ciphertext)
	return hex.EncodeToString(sum[:])
}

// NewEnvelope runs the full client-side pipeline: encrypt the fields
// under key, hash the ciphertext, and wrap the key to the recipient.
// Each stage short-circuits on failure with no partial side effects.
func NewEnvelope(fields map[string]any, key ReportKey, recipientKey string) (*Envelope, error) {
	ciphertext, nonce, err := EncryptReport(fields, key)
	if err != nil {
		return nil, err
	}
	wrapped, err := WrapKey(key, recipientKey)
	if err != nil {
		return nil, err
	}
	return &Envelope{
		Version:     EnvelopeVersion,
		Ciphertext:  ciphertext,
		Nonce:       nonce,
		WrappedKey:  wrapped,
		ContentHash: ComputeContentHash(ciphertext),
	}, nil
}
