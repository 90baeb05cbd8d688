package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/kazz187/taskboard/internal/attachment"
	"github.com/kazz187/taskboard/internal/task"
)

// APIError is a non-2xx answer from the task API.
type APIError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"error"`
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

// TaskClient talks to the REST side of the board.
type TaskClient struct {
	baseURL string
	http    *http.Client
}

func NewTaskClient(baseURL string, httpClient *http.Client) *TaskClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &TaskClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    httpClient,
	}
}

func (c *TaskClient) ListTasks(ctx context.Context) ([]*task.Task, error) {
	var tasks []*task.Task
	if err := c.doJSON(ctx, http.MethodGet, "/api/tasks", nil, &tasks); err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

func (c *TaskClient) GetTask(ctx context.Context, id string) (*task.Task, error) {
	var t task.Task
	if err := c.doJSON(ctx, http.MethodGet, "/api/tasks/"+url.PathEscape(id), nil, &t); err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return &t, nil
}

func (c *TaskClient) CreateTask(ctx context.Context, req *task.CreateTaskRequest) (*task.Task, error) {
	var t task.Task
	if err := c.doJSON(ctx, http.MethodPost, "/api/tasks", req, &t); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return &t, nil
}

// UpdateTask returns the patch as the server echoed it.
func (c *TaskClient) UpdateTask(ctx context.Context, id string, patch *task.Patch) (*task.Patch, error) {
	var echoed task.Patch
	if err := c.doJSON(ctx, http.MethodPut, "/api/tasks/"+url.PathEscape(id), patch, &echoed); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	return &echoed, nil
}

func (c *TaskClient) DeleteTask(ctx context.Context, id string) error {
	if err := c.doJSON(ctx, http.MethodDelete, "/api/tasks/"+url.PathEscape(id), nil, nil); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}

func (c *TaskClient) UploadAttachment(ctx context.Context, id, filename string, r io.Reader) (*task.Task, error) {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("failed to copy %s: %w", filename, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/tasks/upload/"+url.PathEscape(id), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var resp attachment.UploadResponse
	if err := c.do(req, &resp); err != nil {
		return nil, fmt.Errorf("failed to upload attachment: %w", err)
	}
	return resp.Task, nil
}

func (c *TaskClient) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *TaskClient) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
