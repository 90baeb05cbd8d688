package repositoryimpl

import (
	"context"
	"sync"

	"github.com/kazz187/taskboard/internal/task"
	"github.com/kazz187/taskboard/pkg/cerr"
)

// MemoryRepository keeps the board in process memory. Tasks stay in insertion
// order. Nothing survives a restart.
type MemoryRepository struct {
	mu    sync.Mutex
	tasks []*task.Task
}

var _ task.Repository = (*MemoryRepository)(nil)

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func errTaskNotFound() error {
	return cerr.NewError(cerr.NotFound, "Task not found", nil)
}

// indexOf must be called with mu held.
func (r *MemoryRepository) indexOf(id string) int {
	for i, t := range r.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (r *MemoryRepository) List(_ context.Context) ([]*task.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*task.Task, len(r.tasks))
	for i, t := range r.tasks {
		out[i] = t.Clone()
	}
	return out, nil
}

func (r *MemoryRepository) Insert(_ context.Context, t *task.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.indexOf(t.ID) >= 0 {
		return cerr.NewError(cerr.AlreadyExists, "task already exists", nil)
	}
	r.tasks = append(r.tasks, t.Clone())
	return nil
}

func (r *MemoryRepository) FindByID(_ context.Context, id string) (*task.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return nil, errTaskNotFound()
	}
	return r.tasks[i].Clone(), nil
}

func (r *MemoryRepository) Replace(_ context.Context, id string, patch *task.Patch) (*task.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return nil, errTaskNotFound()
	}
	patch.Apply(r.tasks[i])
	return r.tasks[i].Clone(), nil
}

func (r *MemoryRepository) Put(_ context.Context, t *task.Task) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(t.ID)
	if i < 0 {
		return false, nil
	}
	r.tasks[i] = t.Clone()
	return true, nil
}

func (r *MemoryRepository) SetStatus(_ context.Context, id, status string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return false, nil
	}
	r.tasks[i].Status = status
	return true, nil
}

func (r *MemoryRepository) Remove(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return false, nil
	}
	r.tasks = append(r.tasks[:i], r.tasks[i+1:]...)
	return true, nil
}

func (r *MemoryRepository) SetAttachment(_ context.Context, id, url string) (*task.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return nil, errTaskNotFound()
	}
	r.tasks[i].Attachment = &url
	return r.tasks[i].Clone(), nil
}
