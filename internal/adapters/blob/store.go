// Package blob is a filesystem blob store with a second encryption
// layer: every blob is sealed at rest with XChaCha20-Poly1305 under a
// server-held key, independent of the end-to-end report key. Blob
// format:
//
//	[version: 1 byte] [nonce: 24 bytes, random] [ciphertext+tag]
//
// The version byte and the storage key are authenticated as AAD, so
// tampering with either — including moving a blob to another key —
// fails authentication on Get.
package blob

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

// blobVersion is prepended to every stored blob and bound into the
// AAD. Bump it only with a migration path for existing blobs.
const blobVersion byte = 0x01

var (
	// ErrInvalidKey rejects storage keys that are empty or attempt
	// path traversal.
	ErrInvalidKey = errors.New("invalid blob key")

	// ErrCorrupt means a stored blob failed authentication: bit rot,
	// tampering, or a blob moved between keys.
	ErrCorrupt = errors.New("blob corrupt or tampered")
)

// Store writes blobs under dir, keyed by slash-separated storage keys.
// Callers namespace keys per report ID; the store only enforces that
// keys stay inside dir.
type Store struct {
	dir       string
	masterKey []byte
}

// New creates the store rooted at dir with a 32-byte master key.
func New(dir string, masterKey []byte) (*Store, error) {
	if len(masterKey) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("master key must be %d bytes, got %d", chacha20poly1305.KeySize, len(masterKey))
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating blob dir: %w", err)
	}
	return &Store{dir: dir, masterKey: masterKey}, nil
}

// path validates the storage key and maps it into the store root.
func (s *Store) path(key string) (string, error) {
	if key == "" || strings.Contains(key, "..") || strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(s.dir, clean), nil
}

func (s *Store) aad(key string) []byte {
	aad := make([]byte, 1+len(key))
	aad[0] = blobVersion
	copy(aad[1:], key)
	return aad
}

// Put seals data under the master key and writes it at key. Returns
// the key as the handle.
func (s *Store) Put(ctx context.Context, key string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p, err := s.path(key)
	if err != nil {
		return "", err
	}

	aead, err := chacha20poly1305.NewX(s.masterKey)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("reading nonce: %w", err)
	}

	out := make([]byte, 0, 1+len(nonce)+len(data)+chacha20poly1305.Overhead)
	out = append(out, blobVersion)
	out = append(out, nonce...)
	out = aead.Seal(out, nonce, data, s.aad(key))

	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return "", fmt.Errorf("creating blob subdir: %w", err)
	}
	// Write-then-rename so a crashed Put never leaves a readable
	// partial blob at the final key.
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, out, 0o600); err != nil {
		return "", fmt.Errorf("writing blob: %w", err)
	}
	if err := os.Rename(tmp, p); err != nil {
		return "", fmt.Errorf("committing blob: %w", err)
	}
	return key, nil
}

// Get reads and opens the blob at key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(p)
	if err != nil {
		return nil, err
	}
	if len(raw) < 1+chacha20poly1305.NonceSizeX+chacha20poly1305.Overhead {
		return nil, ErrCorrupt
	}
	if raw[0] != blobVersion {
		return nil, ErrCorrupt
	}
	nonce := raw[1 : 1+chacha20poly1305.NonceSizeX]
	ciphertext := raw[1+chacha20poly1305.NonceSizeX:]

	aead, err := chacha20poly1305.NewX(s.masterKey)
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, s.aad(key))
	if err != nil {
		return nil, ErrCorrupt
	}
	return plaintext, nil
}
