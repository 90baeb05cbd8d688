package task

import "context"

// Repository is the task registry. Every read returns copies; callers never
// hold a reference into the registry's own records.
type Repository interface {
	List(ctx context.Context) ([]*Task, error)
	Insert(ctx context.Context, t *Task) error
	FindByID(ctx context.Context, id string) (*Task, error)
	// Replace merges patch onto the stored task and returns the result.
	Replace(ctx context.Context, id string, patch *Patch) (*Task, error)
	// Put swaps the stored task with t wholesale. It reports false, and
	// stores nothing, when no task has t.ID.
	Put(ctx context.Context, t *Task) (bool, error)
	// SetStatus reports false when no task has id.
	SetStatus(ctx context.Context, id, status string) (bool, error)
	// Remove reports whether a task was deleted.
	Remove(ctx context.Context, id string) (bool, error)
	SetAttachment(ctx context.Context, id, url string) (*Task, error)
}
