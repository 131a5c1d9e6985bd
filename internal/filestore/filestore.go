package filestore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrUnsupportedType = errors.New("unsupported image type")
	ErrTooLarge        = errors.New("image exceeds maximum size")
	ErrBadReference    = errors.New("invalid file reference")
)

var allowedExts = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
	".webp": {},
}

// Store keeps uploaded log images on disk and hands out opaque references.
type Store struct {
	dir      string
	maxBytes int64
	log      *zerolog.Logger
}

func New(dir string, maxBytes int64, log *zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &Store{dir: dir, maxBytes: maxBytes, log: log}, nil
}

// Save validates the extension and size, writes the bytes under a generated
// name and returns the reference used to serve or delete the file later.
func (s *Store) Save(data []byte, origName string) (string, error) {
	ext := strings.ToLower(filepath.Ext(origName))
	if _, ok := allowedExts[ext]; !ok {
		return "", ErrUnsupportedType
	}
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return "", ErrTooLarge
	}

	ref := uuid.NewString() + ext
	if err := os.WriteFile(filepath.Join(s.dir, ref), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to store image: %w", err)
	}

	s.log.Debug().Str("ref", ref).Int("bytes", len(data)).Msg("image stored")
	return ref, nil
}

// Delete removes a stored file by reference. A missing file is not an error.
func (s *Store) Delete(ref string) error {
	if ref == "" || ref != filepath.Base(ref) {
		return ErrBadReference
	}
	if err := os.Remove(filepath.Join(s.dir, ref)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}
