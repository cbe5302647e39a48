package twilio

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamTwiML(t *testing.T) {
	body, err := StreamTwiML("wss://clinic.example.com/media-stream")
	require.NoError(t, err)
	s := string(body)
	assert.True(t, strings.HasPrefix(s, `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Contains(t, s, "<Response>")
	assert.Contains(t, s, `<Stream url="wss://clinic.example.com/media-stream"></Stream>`)
	assert.Contains(t, s, "</Connect>")
}

// pair returns a server-side Conn and the client socket talking to it.
func pair(t *testing.T) (*Conn, *websocket.Conn) {
	t.Helper()
	upgrader := websocket.Upgrader{}
	conns := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conns <- ws
	}))
	t.Cleanup(srv.Close)

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	server := NewConn(<-conns)
	t.Cleanup(func() { _ = server.Close() })
	return server, client
}

func TestConnReadsStartAndMedia(t *testing.T) {
	server, client := pair(t)

	require.NoError(t, client.WriteMessage(websocket.TextMessage, []byte("not json")))
	require.NoError(t, client.WriteMessage(websocket.TextMessage, []byte(
		`{"event":"start","sequenceNumber":"1","start":{"streamSid":"MZ1","callSid":"CA1","tracks":["inbound"],"mediaFormat":{"encoding":"audio/x-mulaw","sampleRate":8000,"channels":1}},"streamSid":"MZ1"}`)))
	require.NoError(t, client.WriteMessage(websocket.TextMessage, []byte(
		`{"event":"media","streamSid":"MZ1","media":{"track":"inbound","chunk":"2","timestamp":"20","payload":"AAAA"}}`)))

	msg, err := server.Read()
	require.NoError(t, err)
	assert.Equal(t, EventStart, msg.Event)
	require.NotNil(t, msg.Start)
	assert.Equal(t, "CA1", msg.Start.CallSID)
	assert.Equal(t, 8000, msg.Start.MediaFormat.SampleRate)

	msg, err = server.Read()
	require.NoError(t, err)
	assert.Equal(t, EventMedia, msg.Event)
	assert.Equal(t, "AAAA", msg.Media.Payload)
}

func TestConnWritesFrames(t *testing.T) {
	server, client := pair(t)

	require.NoError(t, server.SendMedia("MZ1", "BBBB"))
	require.NoError(t, server.Clear("MZ1"))
	require.NoError(t, server.SendMark("MZ1", "greeting"))

	var got []map[string]any
	for i := 0; i < 3; i++ {
		_, data, err := client.ReadMessage()
		require.NoError(t, err)
		var m map[string]any
		require.NoError(t, json.Unmarshal(data, &m))
		got = append(got, m)
	}

	assert.Equal(t, "media", got[0]["event"])
	assert.Equal(t, "MZ1", got[0]["streamSid"])
	assert.Equal(t, map[string]any{"payload": "BBBB"}, got[0]["media"])
	assert.Equal(t, map[string]any{"event": "clear", "streamSid": "MZ1"}, got[1])
	assert.Equal(t, map[string]any{"name": "greeting"}, got[2]["mark"])
}

func TestIsClosed(t *testing.T) {
	server, client := pair(t)
	require.NoError(t, client.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")))

	_, err := server.Read()
	require.Error(t, err)
	assert.True(t, IsClosed(err))
}
