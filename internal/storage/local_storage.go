package storage

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/chacha20poly1305"
)

// LocalStorage keeps files under a root directory. When an AEAD is set every
// file is sealed as nonce || ciphertext with XChaCha20-Poly1305.
type LocalStorage struct {
	root   string
	aead   cipher.AEAD
	policy UploadPolicy
}

// NewLocalStorage creates the root directory if needed. hexKey may be empty
// to store plaintext.
func NewLocalStorage(root, hexKey string, policy UploadPolicy) (*LocalStorage, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}

	s := &LocalStorage{root: root, policy: policy}
	if hexKey != "" {
		key, err := hex.DecodeString(hexKey)
		if err != nil {
			return nil, fmt.Errorf("invalid encryption key: %w", err)
		}
		aead, err := chacha20poly1305.NewX(key)
		if err != nil {
			return nil, fmt.Errorf("invalid encryption key: %w", err)
		}
		s.aead = aead
	}
	return s, nil
}

// Encrypted reports whether files are sealed at rest.
func (s *LocalStorage) Encrypted() bool {
	return s.aead != nil
}

func (s *LocalStorage) Store(ctx context.Context, r io.Reader, meta FileMeta) (string, error) {
	if r == nil {
		return "", ErrNoFile
	}
	if err := s.policy.Validate(meta.OriginalName, meta.Size); err != nil {
		return "", err
	}

	// Read one byte past the limit so oversize streams are caught even when
	// the declared size lies.
	limit := s.policy.MaxSize
	if limit <= 0 {
		limit = DefaultUploadPolicy().MaxSize
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > limit {
		return "", ErrFileTooLarge
	}
	if len(data) == 0 {
		return "", ErrNoFile
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if s.aead != nil {
		if data, err = s.seal(data); err != nil {
			return "", err
		}
	}

	ref := BuildKey(meta)
	path := s.path(ref)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to move file into place: %w", err)
	}
	return ref, nil
}

func (s *LocalStorage) Retrieve(ctx context.Context, ref string) ([]byte, error) {
	if !validRef(ref) {
		return nil, ErrFileNotFound
	}
	data, err := os.ReadFile(s.path(ref))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if s.aead != nil {
		return s.open(data)
	}
	return data, nil
}

// Delete removes the file. A missing file is not an error.
func (s *LocalStorage) Delete(ctx context.Context, ref string) error {
	if !validRef(ref) {
		return nil
	}
	err := os.Remove(s.path(ref))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (s *LocalStorage) Exists(ctx context.Context, ref string) (bool, error) {
	if !validRef(ref) {
		return false, nil
	}
	info, err := os.Stat(s.path(ref))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

func (s *LocalStorage) path(ref string) string {
	return filepath.Join(s.root, filepath.FromSlash(ref))
}

func (s *LocalStorage) seal(plain []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plain)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return s.aead.Seal(nonce, nonce, plain, nil), nil
}

func (s *LocalStorage) open(sealed []byte) ([]byte, error) {
	if len(sealed) < s.aead.NonceSize() {
		return nil, errors.New("encrypted file is truncated")
	}
	nonce, ciphertext := sealed[:s.aead.NonceSize()], sealed[s.aead.NonceSize():]
	plain, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt file: %w", err)
	}
	return plain, nil
}
