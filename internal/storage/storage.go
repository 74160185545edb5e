package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

var (
	ErrFileNotFound    = errors.New("file not found")
	ErrNoFile          = errors.New("No file uploaded")
	ErrInvalidFileType = errors.New("Invalid file type")
	ErrFileTooLarge    = errors.New("File size exceeds maximum limit")
)

// FileMeta describes an upload. CompanyID scopes the generated key.
type FileMeta struct {
	CompanyID    uint
	OriginalName string
	ContentType  string
	Size         int64
}

// FileStorage stores document bytes behind opaque references.
type FileStorage interface {
	Store(ctx context.Context, r io.Reader, meta FileMeta) (string, error)
	Retrieve(ctx context.Context, ref string) ([]byte, error)
	Delete(ctx context.Context, ref string) error
	Exists(ctx context.Context, ref string) (bool, error)
}

// BuildKey returns companies/<id>/documents/<slug>-<uuid><ext>.
func BuildKey(meta FileMeta) string {
	ext := strings.ToLower(filepath.Ext(meta.OriginalName))
	base := slug.Make(strings.TrimSuffix(filepath.Base(meta.OriginalName), filepath.Ext(meta.OriginalName)))
	if base == "" {
		base = "document"
	}
	if len(base) > 64 {
		base = base[:64]
	}
	return fmt.Sprintf("companies/%d/documents/%s-%s%s", meta.CompanyID, base, uuid.NewString(), ext)
}

// validRef rejects references that could escape the storage root.
func validRef(ref string) bool {
	if ref == "" || strings.HasPrefix(ref, "/") || strings.Contains(ref, "\\") {
		return false
	}
	for _, part := range strings.Split(ref, "/") {
		if part == ".." || part == "." || part == "" {
			return false
		}
	}
	return true
}
