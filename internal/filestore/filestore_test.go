package filestore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, maxBytes int64) *Store {
	t.Helper()
	logger := zerolog.Nop()
	s, err := New(t.TempDir(), maxBytes, &logger)
	require.NoError(t, err)
	return s
}

func TestSaveAndDelete(t *testing.T) {
	s := newStore(t, 1024)

	ref, err := s.Save([]byte("image bytes"), "photo.JPG")
	require.NoError(t, err)
	assert.Equal(t, ".jpg", filepath.Ext(ref))

	path := filepath.Join(s.dir, ref)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("image bytes"), data)

	require.NoError(t, s.Delete(ref))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestSaveRejectsUnsupportedType(t *testing.T) {
	s := newStore(t, 1024)

	_, err := s.Save([]byte("not an image"), "malware.exe")
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = s.Save([]byte("no extension"), "photo")
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestSaveRejectsOversizedFile(t *testing.T) {
	s := newStore(t, 4)

	_, err := s.Save([]byte("12345"), "big.png")
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestDeleteValidatesReference(t *testing.T) {
	s := newStore(t, 1024)

	assert.ErrorIs(t, s.Delete(""), ErrBadReference)
	assert.ErrorIs(t, s.Delete("../../etc/passwd"), ErrBadReference)

	// Deleting a reference that no longer exists is not an error.
	assert.NoError(t, s.Delete("gone.png"))
}
