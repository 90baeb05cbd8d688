package attachment

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/taskboard/internal/idgen"
	"github.com/kazz187/taskboard/pkg/storage"
)

func TestSanitize(t *testing.T) {
	tests := map[string]string{
		"report.pdf":          "report.pdf",
		"../../etc/passwd":    "passwd",
		`C:\Users\me\a b.png`: "a_b.png",
		"résumé.doc":          "r_sum_.doc",
		"":                    "file",
		"..":                  "file",
		"/":                   "file",
	}
	for in, want := range tests {
		assert.Equal(t, want, sanitize(in), "sanitize(%q)", in)
	}
}

func TestStorageUploader(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir(), "http://localhost:5000/attachments")
	require.NoError(t, err)
	up := NewStorageUploader(store, "/task_attachments/", idgen.Func(func() string { return "01ID" }))

	obj, err := up.Upload(context.Background(), "42", "../secret.txt", bytes.NewReader([]byte("data")))
	require.NoError(t, err)
	assert.Equal(t, "task_attachments/42/01ID-secret.txt", obj.Key)
	assert.Equal(t, "http://localhost:5000/attachments/task_attachments/42/01ID-secret.txt", obj.URL)

	data, err := store.Read(context.Background(), obj.Key)
	require.NoError(t, err)
	assert.Equal(t, "data", string(data))

	require.NoError(t, up.Discard(context.Background(), obj))
	_, err = store.Read(context.Background(), obj.Key)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStorageUploaderKeysAreUnique(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir(), "")
	require.NoError(t, err)
	up := NewStorageUploader(store, "f", idgen.NewULID())

	a, err := up.Upload(context.Background(), "1", "same.txt", strings.NewReader("a"))
	require.NoError(t, err)
	b, err := up.Upload(context.Background(), "1", "same.txt", strings.NewReader("b"))
	require.NoError(t, err)
	assert.NotEqual(t, a.Key, b.Key)
}
