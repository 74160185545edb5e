package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func TestLocalStorage_EncryptedRoundTrip(t *testing.T) {
	root := t.TempDir()
	s, err := NewLocalStorage(root, testKey, DefaultUploadPolicy())
	require.NoError(t, err)
	assert.True(t, s.Encrypted())

	content := []byte("%PDF-1.4 trade license")
	ref, err := s.Store(context.Background(), bytes.NewReader(content), FileMeta{
		CompanyID:    3,
		OriginalName: "Trade License.pdf",
		Size:         int64(len(content)),
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "companies/3/documents/trade-license-"))
	assert.True(t, strings.HasSuffix(ref, ".pdf"))

	raw, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(ref)))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "trade license")

	got, err := s.Retrieve(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, content, got)

	exists, err := s.Exists(context.Background(), ref)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestLocalStorage_PlaintextAndDelete(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir(), "", DefaultUploadPolicy())
	require.NoError(t, err)

	ref, err := s.Store(context.Background(), strings.NewReader("png-bytes"), FileMeta{
		CompanyID: 1, OriginalName: "permit.PNG", Size: 9,
	})
	require.NoError(t, err)

	require.NoError(t, s.Delete(context.Background(), ref))
	exists, err := s.Exists(context.Background(), ref)
	require.NoError(t, err)
	assert.False(t, exists)

	// Deleting twice is harmless
	assert.NoError(t, s.Delete(context.Background(), ref))

	_, err = s.Retrieve(context.Background(), ref)
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestLocalStorage_RejectsInvalidUploads(t *testing.T) {
	policy := DefaultUploadPolicy()
	policy.MaxSize = 16
	s, err := NewLocalStorage(t.TempDir(), "", policy)
	require.NoError(t, err)

	tests := []struct {
		name    string
		meta    FileMeta
		body    string
		wantErr error
	}{
		{"Executable", FileMeta{OriginalName: "virus.exe", Size: 4}, "MZ..", ErrInvalidFileType},
		{"Declared too large", FileMeta{OriginalName: "big.pdf", Size: 17}, "x", ErrFileTooLarge},
		{"Actual too large", FileMeta{OriginalName: "liar.pdf", Size: 4}, strings.Repeat("x", 17), ErrFileTooLarge},
		{"Empty", FileMeta{OriginalName: "", Size: 0}, "", ErrNoFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Store(context.Background(), strings.NewReader(tt.body), tt.meta)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLocalStorage_RejectsEscapingRefs(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir(), "", DefaultUploadPolicy())
	require.NoError(t, err)

	for _, ref := range []string{"../etc/passwd", "/etc/passwd", "a/../../b", ""} {
		exists, err := s.Exists(context.Background(), ref)
		require.NoError(t, err)
		assert.False(t, exists, ref)
	}
}

func TestNewLocalStorage_BadKey(t *testing.T) {
	_, err := NewLocalStorage(t.TempDir(), "abcd", DefaultUploadPolicy())
	assert.Error(t, err)

	_, err = NewLocalStorage(t.TempDir(), "not-hex", DefaultUploadPolicy())
	assert.Error(t, err)
}

func TestUploadPolicy_ValidateContentType(t *testing.T) {
	p := DefaultUploadPolicy()
	assert.NoError(t, p.ValidateContentType("application/pdf"))
	assert.NoError(t, p.ValidateContentType("image/png; charset=binary"))
	assert.ErrorIs(t, p.ValidateContentType("application/x-msdownload"), ErrInvalidFileType)
	assert.Equal(t, "image/jpeg", ContentTypeFor("scan.JPG"))
}
