// Package twilio speaks the Twilio Media Streams protocol: the JSON frames
// exchanged over the call's WebSocket and the TwiML that opens the stream.
package twilio

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

// Stream events
const (
	EventConnected = "connected"
	EventStart     = "start"
	EventMedia     = "media"
	EventMark      = "mark"
	EventStop      = "stop"
	EventDTMF      = "dtmf"
	EventClear     = "clear"
)

// Message is one frame of the media stream, in either direction.
type Message struct {
	Event          string `json:"event"`
	SequenceNumber string `json:"sequenceNumber,omitempty"`
	StreamSID      string `json:"streamSid,omitempty"`
	Start          *Start `json:"start,omitempty"`
	Media          *Media `json:"media,omitempty"`
	Mark           *Mark  `json:"mark,omitempty"`
	Stop           *Stop  `json:"stop,omitempty"`
	DTMF           *DTMF  `json:"dtmf,omitempty"`
}

type Start struct {
	StreamSID        string            `json:"streamSid"`
	AccountSID       string            `json:"accountSid"`
	CallSID          string            `json:"callSid"`
	Tracks           []string          `json:"tracks"`
	MediaFormat      MediaFormat       `json:"mediaFormat"`
	CustomParameters map[string]string `json:"customParameters,omitempty"`
}

type MediaFormat struct {
	Encoding   string `json:"encoding"`
	SampleRate int    `json:"sampleRate"`
	Channels   int    `json:"channels"`
}

// Media carries base64 μ-law audio. Inbound frames fill every field; outbound
// frames only need the payload.
type Media struct {
	Track     string `json:"track,omitempty"`
	Chunk     string `json:"chunk,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   string `json:"payload"`
}

type Mark struct {
	Name string `json:"name"`
}

type Stop struct {
	AccountSID string `json:"accountSid"`
	CallSID    string `json:"callSid"`
}

type DTMF struct {
	Track string `json:"track,omitempty"`
	Digit string `json:"digit"`
}

// Conn wraps the media stream socket. Reads belong to one goroutine; writes
// may come from any goroutine and are serialised.
type Conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func NewConn(ws *websocket.Conn) *Conn {
	return &Conn{ws: ws}
}

// Read blocks for the next frame. Frames that are not JSON are skipped.
func (c *Conn) Read() (Message, error) {
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return Message{}, err
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		return msg, nil
	}
}

func (c *Conn) write(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return errors.Wrapf(c.ws.WriteJSON(msg), "twilio %s", msg.Event)
}

// SendMedia plays a base64 μ-law chunk to the caller.
func (c *Conn) SendMedia(streamSID, payload string) error {
	return c.write(Message{Event: EventMedia, StreamSID: streamSID, Media: &Media{Payload: payload}})
}

// Clear drops audio Twilio has buffered but not yet played.
func (c *Conn) Clear(streamSID string) error {
	return c.write(Message{Event: EventClear, StreamSID: streamSID})
}

// SendMark asks Twilio to echo a mark once playback reaches it.
func (c *Conn) SendMark(streamSID, name string) error {
	return c.write(Message{Event: EventMark, StreamSID: streamSID, Mark: &Mark{Name: name}})
}

func (c *Conn) Close() error {
	return c.ws.Close()
}

// IsClosed reports whether err only means the caller hung up.
func IsClosed(err error) bool {
	return websocket.IsCloseError(errors.Cause(err), websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived)
}
