package handlers

import (
	"context"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"dental-receptionist-server/internal/bridge"
	"dental-receptionist-server/internal/config"
	"dental-receptionist-server/internal/realtime"
	"dental-receptionist-server/internal/twilio"
)

// ModelDialer opens the speech model socket for one call.
type ModelDialer func(ctx context.Context) (bridge.ModelConn, error)

// RealtimeDialer dials the OpenAI Realtime API.
func RealtimeDialer(url, apiKey string) ModelDialer {
	return func(ctx context.Context) (bridge.ModelConn, error) {
		client, err := realtime.Dial(ctx, url, apiKey)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

// VoiceHandler answers Twilio's voice webhook and carries the media stream.
// Calls run on the server's lifetime context, not the request's, and end
// when it is cancelled.
type VoiceHandler struct {
	Cfg      *config.Config
	Bridge   *bridge.Bridge
	Dial     ModelDialer
	Log      *zap.Logger
	upgrader websocket.Upgrader

	base  context.Context
	calls sync.WaitGroup
}

func NewVoiceHandler(ctx context.Context, cfg *config.Config, b *bridge.Bridge, dial ModelDialer, log *zap.Logger) *VoiceHandler {
	h := &VoiceHandler{Cfg: cfg, Bridge: b, Dial: dial, Log: log.Named("voice"), base: ctx}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		// Twilio's media stream sends no Origin header
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || cfg.Environment == "development" || origin == cfg.Origin
		},
	}
	return h
}

// IncomingCall returns the TwiML that connects the call to our media stream.
func (h *VoiceHandler) IncomingCall(c *gin.Context) {
	h.Log.Info("incoming call",
		zap.String("call_sid", c.PostForm("CallSid")),
		zap.String("from", c.PostForm("From")),
	)
	body, err := twilio.StreamTwiML(h.Cfg.PublicWSSBase + "/media-stream")
	if err != nil {
		h.Log.Error("render TwiML", zap.Error(err))
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Data(http.StatusOK, "application/xml", body)
}

// MediaStream upgrades Twilio's socket, dials the model and runs the call
// until either side hangs up.
func (h *VoiceHandler) MediaStream(c *gin.Context) {
	// Counted before the upgrade: Shutdown waits on the request until it is hijacked.
	h.calls.Add(1)
	defer h.calls.Done()

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Log.Warn("media stream upgrade failed", zap.Error(err))
		return
	}
	phone := twilio.NewConn(ws)

	// A call ends when one of its sockets closes or the server stops.
	ctx := h.base
	model, err := h.Dial(ctx)
	if err != nil {
		h.Log.Error("connect to speech model", zap.Error(err))
		_ = phone.Close()
		return
	}

	if err := h.Bridge.Serve(ctx, phone, model); err != nil {
		h.Log.Warn("call ended with error", zap.Error(err))
	}
}

// Wait blocks until every call in progress has ended and its transcript has
// been handed to the archive, or until ctx is done.
func (h *VoiceHandler) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.calls.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
