package internal_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	server "github.com/kazz187/taskboard/internal"
	"github.com/kazz187/taskboard/internal/attachment"
	"github.com/kazz187/taskboard/internal/channel"
	"github.com/kazz187/taskboard/internal/client"
	"github.com/kazz187/taskboard/internal/config"
	"github.com/kazz187/taskboard/internal/idgen"
	"github.com/kazz187/taskboard/internal/task"
	"github.com/kazz187/taskboard/internal/task/repositoryimpl"
	"github.com/kazz187/taskboard/pkg/cerr"
	"github.com/kazz187/taskboard/pkg/storage"
)

func newBoard(t *testing.T) (*httptest.Server, *repositoryimpl.MemoryRepository) {
	t.Helper()
	ids := idgen.NewULID()
	repo := repositoryimpl.NewMemoryRepository()
	require.NoError(t, repositoryimpl.Seed(context.Background(), repo, repositoryimpl.SeedExamples(ids)))

	store, err := storage.NewLocalStorage(t.TempDir(), "/attachments")
	require.NoError(t, err)

	hub := channel.NewHub(repo, ids)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		hub.Run(ctx)
	}()

	env := &config.Env{BaseEnv: config.BaseEnv{HTTPPort: "0"}}
	srv := server.NewServer(env,
		task.NewServer(repo, ids),
		attachment.NewServer(repo, attachment.NewStorageUploader(store, "task_attachments", ids), store, t.TempDir(), 1<<20),
		hub,
	)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		cancel()
		<-done
		ts.Close()
	})
	return ts, repo
}

func TestHealth(t *testing.T) {
	ts, _ := newBoard(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Post(ts.URL+"/grpc.health.v1.Health/Check", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "SERVING")
}

func TestCORS(t *testing.T) {
	ts, _ := newBoard(t)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/tasks", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), http.MethodPut)
}

func TestUnknownAPIRoute(t *testing.T) {
	ts, _ := newBoard(t)

	resp, err := http.Get(ts.URL + "/api/projects")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NotFound", body["code"])
}

func TestTaskClientRoundTrip(t *testing.T) {
	ts, _ := newBoard(t)
	ctx := context.Background()
	c := client.NewTaskClient(ts.URL, nil)

	tasks, err := c.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 3)

	created, err := c.CreateTask(ctx, &task.CreateTaskRequest{Title: "t", Description: "d", Status: "todo"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	done := "done"
	echoed, err := c.UpdateTask(ctx, created.ID, &task.Patch{Status: &done})
	require.NoError(t, err)
	require.NotNil(t, echoed.Status)
	assert.Equal(t, done, *echoed.Status)
	assert.Nil(t, echoed.Title)

	got, err := c.GetTask(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "done", got.Status)
	assert.Equal(t, "t", got.Title)

	withFile, err := c.UploadAttachment(ctx, created.ID, "notes.txt", bytes.NewReader([]byte("hi")))
	require.NoError(t, err)
	require.NotNil(t, withFile.Attachment)

	resp, err := http.Get(ts.URL + *withFile.Attachment)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, "hi", string(data))

	require.NoError(t, c.DeleteTask(ctx, created.ID))

	err = c.DeleteTask(ctx, created.ID)
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, cerr.NotFound.String(), apiErr.Code)
	assert.Equal(t, "Task not found", apiErr.Message)

	_, err = c.CreateTask(ctx, &task.CreateTaskRequest{Title: "no description"})
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
}

func TestRESTMutationsAreNotBroadcast(t *testing.T) {
	ts, _ := newBoard(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ch, err := client.DialChannel(ctx, ts.URL)
	require.NoError(t, err)
	defer ch.Close()

	require.NoError(t, ch.Sync())
	env, err := ch.Receive()
	require.NoError(t, err)
	require.Equal(t, channel.EventSync, env.Event)

	rest := client.NewTaskClient(ts.URL, nil)
	created, err := rest.CreateTask(ctx, &task.CreateTaskRequest{Title: "quiet", Description: "d"})
	require.NoError(t, err)

	// The next frame is the sync reply, not a create broadcast.
	require.NoError(t, ch.Sync())
	env, err = ch.Receive()
	require.NoError(t, err)
	require.Equal(t, channel.EventSync, env.Event)

	var tasks []task.Task
	require.NoError(t, json.Unmarshal(env.Data, &tasks))
	require.Len(t, tasks, 4)
	assert.Equal(t, created.ID, tasks[3].ID)
}

func TestChannelClientMove(t *testing.T) {
	ts, repo := newBoard(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tasks, err := repo.List(ctx)
	require.NoError(t, err)
	target := tasks[0]

	a, err := client.DialChannel(ctx, ts.URL)
	require.NoError(t, err)
	defer a.Close()
	b, err := client.DialChannel(ctx, ts.URL)
	require.NoError(t, err)
	defer b.Close()

	for _, c := range []*client.ChannelClient{a, b} {
		require.NoError(t, c.Sync())
		env, err := c.Receive()
		require.NoError(t, err)
		require.Equal(t, channel.EventSync, env.Event)
	}

	require.NoError(t, a.Move(target.ID, "done"))
	for _, c := range []*client.ChannelClient{a, b} {
		env, err := c.Receive()
		require.NoError(t, err)
		require.Equal(t, channel.EventMove, env.Event)
		var mv channel.MoveEvent
		require.NoError(t, json.Unmarshal(env.Data, &mv))
		assert.Equal(t, channel.MoveEvent{ID: target.ID, NewStatus: "done"}, mv)
	}

	require.NoError(t, b.Delete(target.ID))
	for _, c := range []*client.ChannelClient{a, b} {
		env, err := c.Receive()
		require.NoError(t, err)
		assert.Equal(t, channel.EventDelete, env.Event)
	}

	_, err = repo.FindByID(ctx, target.ID)
	assert.True(t, cerr.IsCode(err, cerr.NotFound))
}
