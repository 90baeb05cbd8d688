package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/kazz187/taskboard/internal/channel"
	"github.com/kazz187/taskboard/internal/task"
)

// ChannelClient is one push-channel connection. Sends may come from any
// goroutine; Receive must be called from a single goroutine.
type ChannelClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// DialChannel connects to the /ws endpoint of the server at baseURL
// (http or https).
func DialChannel(ctx context.Context, baseURL string) (*ChannelClient, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/") + "/ws")
	if err != nil {
		return nil, fmt.Errorf("invalid server url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), http.Header{})
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("failed to dial %s (%s): %w", u, resp.Status, err)
		}
		return nil, fmt.Errorf("failed to dial %s: %w", u, err)
	}
	return &ChannelClient{conn: conn}, nil
}

func (c *ChannelClient) Send(event string, payload any) error {
	var (
		frame []byte
		err   error
	)
	if payload == nil {
		frame, err = json.Marshal(channel.Envelope{Event: event})
	} else {
		frame, err = channel.EncodeFrame(event, payload)
	}
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("failed to send %s: %w", event, err)
	}
	return nil
}

func (c *ChannelClient) Sync() error {
	return c.Send(channel.EventSync, nil)
}

func (c *ChannelClient) Create(t *task.Task) error {
	return c.Send(channel.EventCreate, t)
}

func (c *ChannelClient) Update(t *task.Task) error {
	return c.Send(channel.EventUpdate, t)
}

func (c *ChannelClient) Move(id, newStatus string) error {
	return c.Send(channel.EventMove, channel.MoveEvent{ID: id, NewStatus: newStatus})
}

func (c *ChannelClient) Delete(id string) error {
	return c.Send(channel.EventDelete, id)
}

// Receive blocks for the next frame from the server.
func (c *ChannelClient) Receive() (*channel.Envelope, error) {
	_, frame, err := c.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	var env channel.Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal frame: %w", err)
	}
	return &env, nil
}

func (c *ChannelClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return c.conn.Close()
}
