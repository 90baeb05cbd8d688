package repositoryimpl

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/taskboard/internal/task"
	"github.com/kazz187/taskboard/pkg/cerr"
)

func ptr(s string) *string { return &s }

func newRepoWith(t *testing.T, tasks ...*task.Task) *MemoryRepository {
	t.Helper()
	repo := NewMemoryRepository()
	require.NoError(t, Seed(context.Background(), repo, tasks))
	return repo
}

func TestMemoryRepository_InsertAndList(t *testing.T) {
	ctx := context.Background()
	repo := newRepoWith(t,
		&task.Task{ID: "1", Title: "a", Description: "x", Status: "todo"},
		&task.Task{ID: "2", Title: "b", Description: "y", Status: "done"},
	)

	tasks, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "1", tasks[0].ID)
	assert.Equal(t, "2", tasks[1].ID)

	err = repo.Insert(ctx, &task.Task{ID: "1", Title: "dup"})
	assert.True(t, cerr.IsCode(err, cerr.AlreadyExists))
}

func TestMemoryRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	in := &task.Task{ID: "1", Title: "a", Description: "x"}
	repo := newRepoWith(t, in)

	in.Title = "changed after insert"
	got, err := repo.FindByID(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "a", got.Title)

	got.Title = "changed after read"
	again, err := repo.FindByID(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "a", again.Title)
}

func TestMemoryRepository_FindByIDNotFound(t *testing.T) {
	_, err := NewMemoryRepository().FindByID(context.Background(), "missing")
	assert.True(t, cerr.IsCode(err, cerr.NotFound))
}

func TestMemoryRepository_Replace(t *testing.T) {
	ctx := context.Background()
	repo := newRepoWith(t, &task.Task{ID: "1", Title: "a", Description: "x", Priority: "Low", Status: "todo"})

	merged, err := repo.Replace(ctx, "1", &task.Patch{Title: ptr("b"), Status: ptr("done")})
	require.NoError(t, err)
	assert.Equal(t, &task.Task{ID: "1", Title: "b", Description: "x", Priority: "Low", Status: "done"}, merged)

	_, err = repo.Replace(ctx, "missing", &task.Patch{Title: ptr("b")})
	assert.True(t, cerr.IsCode(err, cerr.NotFound))
}

func TestMemoryRepository_Put(t *testing.T) {
	ctx := context.Background()
	repo := newRepoWith(t, &task.Task{ID: "1", Title: "a", Description: "x", Priority: "Low"})

	found, err := repo.Put(ctx, &task.Task{ID: "1", Title: "b", Description: "y"})
	require.NoError(t, err)
	assert.True(t, found)

	got, err := repo.FindByID(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, &task.Task{ID: "1", Title: "b", Description: "y"}, got)

	found, err = repo.Put(ctx, &task.Task{ID: "missing"})
	require.NoError(t, err)
	assert.False(t, found)

	tasks, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}

func TestMemoryRepository_SetStatus(t *testing.T) {
	ctx := context.Background()
	repo := newRepoWith(t, &task.Task{ID: "1", Title: "a", Description: "x", Priority: "High", Status: "todo"})

	found, err := repo.SetStatus(ctx, "1", "in-progress")
	require.NoError(t, err)
	assert.True(t, found)

	got, err := repo.FindByID(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "in-progress", got.Status)
	assert.Equal(t, "High", got.Priority)

	found, err = repo.SetStatus(ctx, "missing", "done")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryRepository_Remove(t *testing.T) {
	ctx := context.Background()
	repo := newRepoWith(t,
		&task.Task{ID: "1"},
		&task.Task{ID: "2"},
		&task.Task{ID: "3"},
	)

	removed, err := repo.Remove(ctx, "2")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = repo.Remove(ctx, "2")
	require.NoError(t, err)
	assert.False(t, removed)

	tasks, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "1", tasks[0].ID)
	assert.Equal(t, "3", tasks[1].ID)
}

func TestMemoryRepository_SetAttachment(t *testing.T) {
	ctx := context.Background()
	repo := newRepoWith(t, &task.Task{ID: "1", Title: "a", Description: "x"})

	got, err := repo.SetAttachment(ctx, "1", "https://files.example.com/a.png")
	require.NoError(t, err)
	require.NotNil(t, got.Attachment)
	assert.Equal(t, "https://files.example.com/a.png", *got.Attachment)

	_, err = repo.SetAttachment(ctx, "missing", "u")
	assert.True(t, cerr.IsCode(err, cerr.NotFound))
}

func TestMemoryRepository_ConcurrentInsert(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, repo.Insert(ctx, &task.Task{ID: fmt.Sprintf("t-%d", i)}))
		}()
	}
	wg.Wait()

	tasks, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, tasks, 50)
}
