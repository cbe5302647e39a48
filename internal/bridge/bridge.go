// Package bridge relays one phone call between the Twilio media stream and
// the realtime speech model, running the model's function calls against the
// clinic executors.
package bridge

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"dental-receptionist-server/internal/archive"
	"dental-receptionist-server/internal/config"
	"dental-receptionist-server/internal/logger"
	"dental-receptionist-server/internal/models"
	"dental-receptionist-server/internal/realtime"
	"dental-receptionist-server/internal/session"
	"dental-receptionist-server/internal/twilio"
)

const (
	defaultKeepAlive = 25 * time.Second
	defaultWatchdog  = 1500 * time.Millisecond
	archiveTimeout   = 10 * time.Second
)

// errCallEnded stops the call's goroutines on a normal hang-up.
var errCallEnded = errors.New("call ended")

// ModelConn is the speech model socket.
type ModelConn interface {
	Send(event any) error
	Read() (realtime.ServerEvent, error)
	Close() error
}

// PhoneConn is the Twilio media stream socket.
type PhoneConn interface {
	Read() (twilio.Message, error)
	SendMedia(streamSID, payload string) error
	Clear(streamSID string) error
	Close() error
}

// Bridge runs calls. One Bridge serves every call; all per-call state lives
// in the call.
type Bridge struct {
	tools   *Dispatcher
	tuning  config.RealtimeConfig
	archive archive.Archiver
	log     *zap.Logger
	now     func() time.Time
}

func New(tools *Dispatcher, tuning config.RealtimeConfig, store archive.Archiver, log *zap.Logger) *Bridge {
	if store == nil {
		store = archive.Discard{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	if tuning.KeepAlive <= 0 {
		tuning.KeepAlive = defaultKeepAlive
	}
	if tuning.Watchdog <= 0 {
		tuning.Watchdog = defaultWatchdog
	}
	return &Bridge{
		tools:   tools,
		tuning:  tuning,
		archive: store,
		log:     log.Named("bridge"),
		now:     tools.now,
	}
}

// Tuning returns the realtime session settings calls are opened with.
func (b *Bridge) Tuning() config.RealtimeConfig {
	return b.tuning
}

// CallState tracks the assistant's current utterance for barge-in.
type CallState struct {
	Speaking        bool
	ResponseID      string
	AssistantItemID string
	AudioStart      time.Time
	ElapsedMs       int
	AudioQueue      []string
	GreetingSent    bool
}

func (s *CallState) resetAudio() {
	s.AudioStart = time.Time{}
	s.ElapsedMs = 0
	s.AudioQueue = nil
}

type pendingCall struct {
	name   string
	callID string
	args   strings.Builder
}

func (p *pendingCall) reset() {
	p.name, p.callID = "", ""
	p.args.Reset()
}

type call struct {
	b       *Bridge
	phone   PhoneConn
	model   ModelConn
	session *session.Session

	mu        sync.Mutex
	log       *zap.Logger
	state     CallState
	streamSID string
	wd        *time.Timer
	wdArmed   bool
	wdGen     int

	// only touched by the model goroutine
	fn pendingCall
}

func (b *Bridge) newCall(phone PhoneConn, model ModelConn) *call {
	s := session.New(uuid.NewString(), b.now())
	return &call{
		b:       b,
		phone:   phone,
		model:   model,
		session: s,
		log:     b.log.With(zap.String("call_id", s.ID)),
	}
}

// Serve runs one call until either side hangs up or ctx is cancelled, then
// archives the transcript. Both sockets are closed when Serve returns.
func (b *Bridge) Serve(ctx context.Context, phone PhoneConn, model ModelConn) error {
	c := b.newCall(phone, model)
	defer c.finish(ctx)

	instructions := realtime.Instructions(b.now(), b.tools.ex.Appointments.DentistNames(ctx))
	if err := model.Send(realtime.NewSessionUpdate(b.tuning, instructions)); err != nil {
		_ = phone.Close()
		_ = model.Close()
		return errors.Wrap(err, "configure model session")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.receivePhone(gctx) })
	g.Go(func() error { return c.receiveModel(gctx) })
	g.Go(func() error { return c.keepAlive(gctx) })

	// Reads only return once their socket closes.
	go func() {
		<-gctx.Done()
		_ = phone.Close()
		_ = model.Close()
	}()

	err := g.Wait()
	if errors.Is(err, errCallEnded) {
		return nil
	}
	return err
}

func (c *call) logger() *zap.Logger {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.log
}

func (c *call) send(event any) {
	if err := c.model.Send(event); err != nil {
		c.logger().Warn("send to model failed", zap.Error(err))
	}
}

func hungUp(ctx context.Context, err error) bool {
	return ctx.Err() != nil ||
		twilio.IsClosed(err) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}

func (c *call) receivePhone(ctx context.Context) error {
	for {
		msg, err := c.phone.Read()
		if err != nil {
			if hungUp(ctx, err) {
				return errCallEnded
			}
			return errors.Wrap(err, "read phone stream")
		}

		switch msg.Event {
		case twilio.EventStart:
			c.started(msg)
		case twilio.EventMedia:
			if msg.Media != nil && msg.Media.Payload != "" {
				c.send(realtime.AppendAudio(msg.Media.Payload))
			}
		case twilio.EventStop:
			c.logger().Info("caller hung up")
			return errCallEnded
		}
	}
}

func (c *call) started(msg twilio.Message) {
	streamSID, callSID := msg.StreamSID, ""
	if msg.Start != nil {
		streamSID = lo.CoalesceOrEmpty(msg.Start.StreamSID, streamSID)
		callSID = msg.Start.CallSID
	}

	c.mu.Lock()
	c.streamSID = streamSID
	c.session.CallSID = callSID
	c.session.StreamSID = streamSID
	c.log = logger.ForCall(c.b.log, callSID, streamSID).With(zap.String("call_id", c.session.ID))
	log := c.log
	c.mu.Unlock()

	log.Info("call started")
}

func (c *call) receiveModel(ctx context.Context) error {
	defer c.disarmWatchdog()
	for {
		ev, err := c.model.Read()
		if err != nil {
			if hungUp(ctx, err) {
				return errCallEnded
			}
			return errors.Wrap(err, "read model stream")
		}
		c.handleModelEvent(ctx, ev)
	}
}

func (c *call) handleModelEvent(ctx context.Context, ev realtime.ServerEvent) {
	switch ev.Type {
	case realtime.EventSessionUpdated:
		c.mu.Lock()
		first := !c.state.GreetingSent
		c.state.GreetingSent = true
		c.mu.Unlock()
		if first {
			c.send(realtime.UserText(realtime.GreetingTrigger))
			c.send(realtime.ResponseCreate())
		}

	case realtime.EventOutputItemAdded:
		c.mu.Lock()
		if ev.Item != nil {
			c.state.AssistantItemID = ev.Item.ID
		}
		c.state.resetAudio()
		c.mu.Unlock()

	case realtime.EventAudioDelta:
		c.disarmWatchdog()
		c.mu.Lock()
		c.state.Speaking = true
		c.state.AudioQueue = append(c.state.AudioQueue, ev.Delta)
		if c.state.AudioStart.IsZero() {
			c.state.AudioStart = c.b.now()
		}
		sid := c.streamSID
		c.mu.Unlock()
		if sid != "" && ev.Delta != "" {
			if err := c.phone.SendMedia(sid, ev.Delta); err != nil {
				c.logger().Warn("send audio to caller failed", zap.Error(err))
			}
		}

	case realtime.EventAudioDone:
		c.mu.Lock()
		c.state.Speaking = false
		c.state.resetAudio()
		c.mu.Unlock()
		c.send(realtime.InputAudioBufferClear())

	case realtime.EventResponseCreated:
		if ev.Response != nil {
			c.mu.Lock()
			c.state.ResponseID = ev.Response.ID
			c.mu.Unlock()
		}

	case realtime.EventResponseDone:
		c.mu.Lock()
		c.state.ResponseID = ""
		c.mu.Unlock()

	case realtime.EventSpeechStarted:
		c.bargeIn()

	case realtime.EventFunctionCallArgumentsStart:
		c.fn.reset()
		c.fn.name, c.fn.callID = ev.Name, ev.CallID

	case realtime.EventFunctionCallArgumentsDelta:
		c.fn.args.WriteString(ev.Delta)

	case realtime.EventFunctionCallArgumentsDone:
		c.runTool(ctx, ev)

	case realtime.EventInputTranscriptionCompleted:
		c.session.AddTurn(models.TranscriptUser, strings.TrimSpace(ev.Transcript), c.b.now())

	case realtime.EventAudioTranscriptDone:
		c.session.AddTurn(models.TranscriptAssistant, strings.TrimSpace(ev.Transcript), c.b.now())

	case realtime.EventError:
		fields := []zap.Field{zap.ByteString("event", ev.Raw)}
		if ev.Error != nil {
			fields = []zap.Field{
				zap.String("type", ev.Error.Type),
				zap.String("code", ev.Error.Code),
				zap.String("message", ev.Error.Message),
			}
		}
		c.logger().Error("model error", fields...)
	}
}

// bargeIn stops the assistant when the caller starts talking over it. The
// model is told how much audio the caller actually heard.
func (c *call) bargeIn() {
	c.mu.Lock()
	st := c.state
	if !st.Speaking && st.ResponseID == "" && st.AssistantItemID == "" {
		c.mu.Unlock()
		return
	}
	elapsed := 0
	if !st.AudioStart.IsZero() {
		elapsed = int(c.b.now().Sub(st.AudioStart).Milliseconds())
	}
	sid := c.streamSID
	c.state = CallState{GreetingSent: st.GreetingSent}
	log := c.log
	c.mu.Unlock()

	log.Debug("barge-in", zap.String("item_id", st.AssistantItemID), zap.Int("audio_end_ms", elapsed))
	c.send(realtime.ResponseCancel())
	if st.AssistantItemID != "" {
		c.send(realtime.Truncate(st.AssistantItemID, elapsed))
	}
	if sid != "" {
		if err := c.phone.Clear(sid); err != nil {
			log.Warn("clear caller audio failed", zap.Error(err))
		}
	}
}

func (c *call) runTool(ctx context.Context, ev realtime.ServerEvent) {
	name := lo.CoalesceOrEmpty(ev.Name, c.fn.name)
	callID := lo.CoalesceOrEmpty(ev.CallID, c.fn.callID)
	raw := lo.CoalesceOrEmpty(ev.Arguments, c.fn.args.String())
	c.fn.reset()
	if name == "" {
		return
	}

	c.disarmWatchdog()
	res := c.b.tools.Dispatch(ctx, c.session, name, raw)
	out, err := json.Marshal(res)
	if err != nil {
		c.logger().Error("encode function result", zap.String("function", name), zap.Error(err))
		out = []byte(`{"status":"ERROR","message":"Could not encode the result."}`)
	}
	c.send(realtime.FunctionOutput(callID, string(out)))
	c.send(realtime.ResponseCreate())
	c.armWatchdog()
}

// armWatchdog nudges the model to speak if it stays silent after a tool result.
func (c *call) armWatchdog() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.wd != nil {
		c.wd.Stop()
	}
	c.wdArmed = true
	c.wdGen++
	gen := c.wdGen
	c.wd = time.AfterFunc(c.b.tuning.Watchdog, func() { c.nudge(gen) })
}

func (c *call) disarmWatchdog() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.wd != nil {
		c.wd.Stop()
		c.wd = nil
	}
	c.wdArmed = false
}

func (c *call) nudge(gen int) {
	c.mu.Lock()
	if !c.wdArmed || c.wdGen != gen {
		c.mu.Unlock()
		return
	}
	c.wdArmed = false
	speaking := c.state.Speaking
	log := c.log
	c.mu.Unlock()

	if speaking {
		return
	}
	log.Info("assistant silent after tool result, nudging")
	c.send(realtime.ResponseCreate())
}

func (c *call) keepAlive(ctx context.Context) error {
	t := time.NewTicker(c.b.tuning.KeepAlive)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			c.send(realtime.KeepAliveUpdate(c.b.tuning))
		}
	}
}

func (c *call) finish(ctx context.Context) {
	c.disarmWatchdog()
	t := archive.FromSession(c.session, c.b.now())
	log := c.logger().With(zap.Int("turns", len(t.Turns)))
	if len(t.Turns) == 0 {
		log.Info("call finished")
		return
	}

	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), archiveTimeout)
	defer cancel()
	if err := c.b.archive.Store(actx, t); err != nil {
		log.Error("archive transcript failed", zap.Error(err))
		return
	}
	log.Info("call finished")
}
