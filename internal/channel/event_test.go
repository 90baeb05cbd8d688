package channel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/taskboard/internal/task"
)

func TestDecodeEvent(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		want  Event
	}{
		{
			name:  "sync without data",
			frame: `{"event":"sync:tasks"}`,
			want:  SyncEvent{},
		},
		{
			name:  "create",
			frame: `{"event":"task:create","data":{"id":"c1","title":"t","description":"d","status":"todo"}}`,
			want:  CreateEvent{Task: task.Task{ID: "c1", Title: "t", Description: "d", Status: "todo"}},
		},
		{
			name:  "create without data",
			frame: `{"event":"task:create"}`,
			want:  CreateEvent{},
		},
		{
			name:  "update",
			frame: `{"event":"task:update","data":{"id":"1","title":"t2","description":"d"}}`,
			want:  UpdateEvent{Task: task.Task{ID: "1", Title: "t2", Description: "d"}},
		},
		{
			name:  "move",
			frame: `{"event":"task:move","data":{"id":"1","newStatus":"done"}}`,
			want:  MoveEvent{ID: "1", NewStatus: "done"},
		},
		{
			name:  "delete",
			frame: `{"event":"task:delete","data":"1"}`,
			want:  DeleteEvent{ID: "1"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeEvent([]byte(tt.frame))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.Name(), got.Name())
		})
	}
}

func TestDecodeEventErrors(t *testing.T) {
	tests := []struct {
		name  string
		frame string
	}{
		{name: "not json", frame: `hello`},
		{name: "update without data", frame: `{"event":"task:update"}`},
		{name: "create with array", frame: `{"event":"task:create","data":[1]}`},
		{name: "delete with object", frame: `{"event":"task:delete","data":{"id":"1"}}`},
		{name: "move with wrong type", frame: `{"event":"task:move","data":"1"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeEvent([]byte(tt.frame))
			assert.Error(t, err)
		})
	}

	_, err := DecodeEvent([]byte(`{"event":"task:archive","data":"1"}`))
	assert.ErrorIs(t, err, ErrUnknownEvent)
}

func TestEncodeFrame(t *testing.T) {
	frame, err := EncodeFrame(EventDelete, "42")
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"task:delete","data":"42"}`, string(frame))

	frame, err = EncodeFrame(EventMove, MoveEvent{ID: "1", NewStatus: "done"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"task:move","data":{"id":"1","newStatus":"done"}}`, string(frame))

	frame, err = EncodeFrame(EventSync, []*task.Task{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"sync:tasks","data":[]}`, string(frame))
}
