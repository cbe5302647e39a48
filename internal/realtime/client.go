package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

// Client is one Realtime API session. Read is owned by a single goroutine;
// Send is safe for concurrent use.
type Client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// Dial opens a session at url authenticated with apiKey.
func Dial(ctx context.Context, url, apiKey string) (*Client, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+apiKey)
	header.Set("OpenAI-Beta", "realtime=v1")

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, errors.Wrapf(err, "dial realtime: %s", resp.Status)
		}
		return nil, errors.Wrap(err, "dial realtime")
	}
	return &Client{conn: conn}, nil
}

// NewClient wraps an already open socket.
func NewClient(conn *websocket.Conn) *Client {
	return &Client{conn: conn}
}

// Send writes one client event as JSON.
func (c *Client) Send(event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "encode realtime event")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return errors.Wrap(c.conn.WriteMessage(websocket.TextMessage, data), "send realtime event")
}

// Read blocks for the next server event. Undecodable frames are skipped.
func (c *Client) Read() (ServerEvent, error) {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return ServerEvent{}, err
		}
		ev, err := DecodeServerEvent(data)
		if err != nil {
			continue
		}
		return ev, nil
	}
}

func (c *Client) Close() error {
	return c.conn.Close()
}
