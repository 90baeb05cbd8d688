// Package attachment uploads files for tasks to object storage and records
// the resulting URL on the task.
package attachment

import (
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/kazz187/taskboard/internal/idgen"
	"github.com/kazz187/taskboard/pkg/storage"
)

// Object is a stored attachment.
type Object struct {
	Key string
	URL string
}

type Uploader interface {
	Upload(ctx context.Context, taskID, filename string, r io.Reader) (*Object, error)
	// Discard removes an object whose task disappeared mid-upload.
	Discard(ctx context.Context, obj *Object) error
}

// StorageUploader stores attachments under <folder>/<task id>/<ulid>-<name>.
type StorageUploader struct {
	store  storage.Storage
	folder string
	ids    idgen.Generator
}

var _ Uploader = (*StorageUploader)(nil)

func NewStorageUploader(store storage.Storage, folder string, ids idgen.Generator) *StorageUploader {
	return &StorageUploader{
		store:  store,
		folder: strings.Trim(folder, "/"),
		ids:    ids,
	}
}

func (u *StorageUploader) Upload(ctx context.Context, taskID, filename string, r io.Reader) (*Object, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	key := path.Join(u.folder, sanitize(taskID), u.ids.Next()+"-"+sanitize(filename))
	if err := u.store.Write(ctx, key, data); err != nil {
		return nil, err
	}
	return &Object{Key: key, URL: u.store.URL(key)}, nil
}

func (u *StorageUploader) Discard(ctx context.Context, obj *Object) error {
	return u.store.Delete(ctx, obj.Key)
}

// sanitize reduces a client supplied name to a single safe path segment.
func sanitize(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == ".." || name == "/" {
		return "file"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}
