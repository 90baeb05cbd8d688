// Package channel is the push side of the board: one websocket per client,
// a hub that applies channel mutations in arrival order and fans each result
// out to every connected client, the sender included.
package channel

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kazz187/taskboard/internal/task"
)

const (
	EventSync   = "sync:tasks"
	EventCreate = "task:create"
	EventUpdate = "task:update"
	EventMove   = "task:move"
	EventDelete = "task:delete"
)

var ErrUnknownEvent = errors.New("unknown event")

// Envelope is the frame format in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Event is an inbound client intent.
type Event interface {
	Name() string
	isEvent()
}

// SyncEvent asks for the full board, answered to the sender only.
type SyncEvent struct{}

// CreateEvent carries a new task. Any id the client sent is replaced.
type CreateEvent struct {
	Task task.Task
}

// UpdateEvent carries a full task that replaces the stored one.
type UpdateEvent struct {
	Task task.Task
}

// MoveEvent changes a task's column. It is also the broadcast payload.
type MoveEvent struct {
	ID        string `json:"id"`
	NewStatus string `json:"newStatus"`
}

type DeleteEvent struct {
	ID string
}

func (SyncEvent) Name() string   { return EventSync }
func (CreateEvent) Name() string { return EventCreate }
func (UpdateEvent) Name() string { return EventUpdate }
func (MoveEvent) Name() string   { return EventMove }
func (DeleteEvent) Name() string { return EventDelete }

func (SyncEvent) isEvent()   {}
func (CreateEvent) isEvent() {}
func (UpdateEvent) isEvent() {}
func (MoveEvent) isEvent()   {}
func (DeleteEvent) isEvent() {}

// DecodeEvent parses one inbound frame.
func DecodeEvent(frame []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal envelope: %w", err)
	}
	switch env.Event {
	case EventSync:
		return SyncEvent{}, nil
	case EventCreate:
		// A create without data still makes a task that has only an id.
		var ev CreateEvent
		if len(env.Data) == 0 {
			return ev, nil
		}
		if err := unmarshalData(env, &ev.Task); err != nil {
			return nil, err
		}
		return ev, nil
	case EventUpdate:
		var ev UpdateEvent
		if err := unmarshalData(env, &ev.Task); err != nil {
			return nil, err
		}
		return ev, nil
	case EventMove:
		var ev MoveEvent
		if err := unmarshalData(env, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case EventDelete:
		var ev DeleteEvent
		if err := unmarshalData(env, &ev.ID); err != nil {
			return nil, err
		}
		return ev, nil
	default:
		return nil, fmt.Errorf("%q: %w", env.Event, ErrUnknownEvent)
	}
}

func unmarshalData(env Envelope, v any) error {
	if len(env.Data) == 0 {
		return fmt.Errorf("%s: missing data", env.Event)
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return fmt.Errorf("%s: failed to unmarshal data: %w", env.Event, err)
	}
	return nil
}

// EncodeFrame builds an outbound frame.
func EncodeFrame(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", event, err)
	}
	frame, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s envelope: %w", event, err)
	}
	return frame, nil
}
