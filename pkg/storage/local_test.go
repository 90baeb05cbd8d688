package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageReadWriteDelete(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewLocalStorage(dir, "http://localhost:5000/attachments/")
	require.NoError(t, err)

	require.NoError(t, s.Write(ctx, "a/b/c.txt", []byte("hello")))
	data, err := s.Read(ctx, "a/b/c.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	_, err = os.Stat(filepath.Join(dir, "a", "b", "c.txt.tmp"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	require.NoError(t, s.Write(ctx, "a/b/c.txt", []byte("again")))
	data, err = s.Read(ctx, "a/b/c.txt")
	require.NoError(t, err)
	assert.Equal(t, "again", string(data))

	require.NoError(t, s.Delete(ctx, "a/b/c.txt"))
	_, err = s.Read(ctx, "a/b/c.txt")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "a/b/c.txt"), ErrNotFound)
}

func TestLocalStorageStaysInsideBase(t *testing.T) {
	ctx := context.Background()
	parent := t.TempDir()
	base := filepath.Join(parent, "base")
	s, err := NewLocalStorage(base, "")
	require.NoError(t, err)

	require.NoError(t, s.Write(ctx, "../../escape.txt", []byte("x")))

	_, err = os.Stat(filepath.Join(parent, "escape.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
	_, err = os.Stat(filepath.Join(base, "escape.txt"))
	assert.NoError(t, err)
}

func TestLocalStorageURL(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir(), "http://localhost:5000/attachments/")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:5000/attachments/f/1/a%20b.png", s.URL("f/1/a b.png"))
	assert.Equal(t, "http://localhost:5000/attachments/f/x.txt", s.URL("/f/x.txt"))
}
