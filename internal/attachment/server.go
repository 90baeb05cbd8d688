package attachment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path"

	"github.com/go-chi/chi/v5"

	"github.com/kazz187/taskboard/internal/task"
	"github.com/kazz187/taskboard/pkg/cerr"
	"github.com/kazz187/taskboard/pkg/clog"
	"github.com/kazz187/taskboard/pkg/storage"
)

const multipartMemory = 1 << 20

type Server struct {
	repo     task.Repository
	uploader Uploader
	store    storage.Storage
	tmpDir   string
	maxBytes int64
}

// NewServer builds the upload handler. Uploads are spooled into tmpDir (the
// OS temp dir when empty) and bodies over maxBytes are rejected.
func NewServer(repo task.Repository, uploader Uploader, store storage.Storage, tmpDir string, maxBytes int64) *Server {
	return &Server{
		repo:     repo,
		uploader: uploader,
		store:    store,
		tmpDir:   tmpDir,
		maxBytes: maxBytes,
	}
}

type UploadResponse struct {
	Message string     `json:"message"`
	Task    *task.Task `json:"task"`
}

func errNoFile(err error) error {
	return cerr.NewError(cerr.InvalidArgument, "No file uploaded or file path missing", err)
}

func (s *Server) UploadAttachment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	taskID := chi.URLParam(r, "taskId")
	clog.AddAttribute(ctx, "task_id", taskID)

	r.Body = http.MaxBytesReader(w, r.Body, s.maxBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			cerr.SetNewJSONError(ctx, cerr.InvalidArgument, fmt.Sprintf("file exceeds %d bytes", s.maxBytes), err)
			return
		}
		cerr.SetJSONError(ctx, errNoFile(err))
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			slog.WarnContext(ctx, "failed to remove multipart temp files", "error", err)
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		cerr.SetJSONError(ctx, errNoFile(err))
		return
	}
	defer file.Close()

	tmp, err := s.spool(file)
	if err != nil {
		cerr.SetNewJSONError(ctx, cerr.Internal, "server error", err)
		return
	}
	defer s.release(ctx, tmp)
	clog.AddAttributes(ctx, map[string]any{
		"filename": header.Filename,
		"size":     header.Size,
	})

	if _, err := s.repo.FindByID(ctx, taskID); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	obj, err := s.uploader.Upload(ctx, taskID, header.Filename, tmp)
	if err != nil {
		cerr.SetJSONError(ctx, cerr.NewErrorWithDetail(cerr.Internal, "Upload failed", err))
		return
	}

	t, err := s.repo.SetAttachment(ctx, taskID, obj.URL)
	if err != nil {
		// The task was deleted while the upload was in flight.
		if derr := s.uploader.Discard(ctx, obj); derr != nil {
			slog.WarnContext(ctx, "failed to discard orphaned attachment", "key", obj.Key, "error", derr)
		}
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, &UploadResponse{
		Message: "File uploaded successfully",
		Task:    t,
	})
}

// spool copies the upload into a temp file positioned at its start. The
// caller must hand the file to release.
func (s *Server) spool(src io.Reader) (*os.File, error) {
	tmp, err := os.CreateTemp(s.tmpDir, "upload-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := io.Copy(tmp, src); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return nil, fmt.Errorf("failed to spool upload: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return nil, fmt.Errorf("failed to rewind temp file: %w", err)
	}
	return tmp, nil
}

func (s *Server) release(ctx context.Context, tmp *os.File) {
	if err := tmp.Close(); err != nil {
		slog.WarnContext(ctx, "failed to close temp file", "path", tmp.Name(), "error", err)
	}
	if err := os.Remove(tmp.Name()); err != nil {
		slog.WarnContext(ctx, "failed to remove temp file", "path", tmp.Name(), "error", err)
	}
}

// ServeAttachment streams a stored object back. It is mounted for local
// storage, whose URLs point at this server.
func (s *Server) ServeAttachment(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	data, err := s.store.Read(r.Context(), key)
	if err != nil {
		werr := cerr.WrapStorageReadError("attachment", err)
		var ce *cerr.Error
		if errors.As(werr, &ce) {
			clog.AddError(r.Context(), werr)
			http.Error(w, ce.Msg, ce.Code.HTTPCode())
			return
		}
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	contentType := mime.TypeByExtension(path.Ext(key))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	_, _ = w.Write(data)
}
