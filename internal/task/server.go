package task

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/kazz187/taskboard/internal/idgen"
	"github.com/kazz187/taskboard/pkg/cerr"
	"github.com/kazz187/taskboard/pkg/clog"
)

// Server serves the request/response task API. Mutations made here are not
// pushed to channel subscribers; they see them on their next sync.
type Server struct {
	repo     Repository
	ids      idgen.Generator
	validate *validator.Validate
}

func NewServer(repo Repository, ids idgen.Generator) *Server {
	return &Server{
		repo:     repo,
		ids:      ids,
		validate: validator.New(),
	}
}

// Routes mounts the handlers relative to /api/tasks.
func (s *Server) Routes(r chi.Router) {
	r.Get("/", s.ListTasks)
	r.Post("/", s.CreateTask)
	r.Get("/{id}", s.GetTask)
	r.Put("/{id}", s.UpdateTask)
	r.Delete("/{id}", s.DeleteTask)
}

type CreateTaskRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"required"`
	Priority    string `json:"priority"`
	Category    string `json:"category"`
	Status      string `json:"status"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// decodeBody treats an empty body as an empty JSON object.
func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return cerr.NewError(cerr.InvalidArgument, "invalid request body", err)
	}
	return nil
}

func (s *Server) ListTasks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tasks, err := s.repo.List(ctx)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	clog.AddAttribute(ctx, "task_count", len(tasks))
	cerr.SetJSONResponse(ctx, tasks)
}

func (s *Server) GetTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	clog.AddAttribute(ctx, "task_id", id)

	t, err := s.repo.FindByID(ctx, id)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, t)
}

func (s *Server) CreateTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req CreateTaskRequest
	if err := decodeBody(r, &req); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "Title and description are required", err)
		return
	}

	t := &Task{
		ID:          s.ids.Next(),
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Category:    req.Category,
		Status:      req.Status,
	}
	if err := s.repo.Insert(ctx, t); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	clog.AddAttribute(ctx, "task_id", t.ID)
	cerr.SetJSONResponse(ctx, t)
}

// UpdateTask merges the body onto the stored task and answers with the patch
// as received, not the merged task.
func (s *Server) UpdateTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	clog.AddAttribute(ctx, "task_id", id)

	var patch Patch
	if err := decodeBody(r, &patch); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if _, err := s.repo.Replace(ctx, id, &patch); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, &patch)
}

func (s *Server) DeleteTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	clog.AddAttribute(ctx, "task_id", id)

	removed, err := s.repo.Remove(ctx, id)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if !removed {
		cerr.SetNewJSONError(ctx, cerr.NotFound, "Task not found", nil)
		return
	}
	cerr.SetJSONResponse(ctx, &MessageResponse{Message: "Task deleted successfully"})
}
