package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"dental-receptionist-server/internal/archive"
	"dental-receptionist-server/internal/flows"
	"dental-receptionist-server/internal/models"
	"dental-receptionist-server/internal/session"
	"dental-receptionist-server/internal/utils"
)

const (
	// DefaultConversationTTL is how long an idle text conversation is kept.
	DefaultConversationTTL = 30 * time.Minute

	textGreeting = "Hi, thanks for contacting the clinic. How can I help you today?"
)

type conversation struct {
	mu       sync.Mutex
	session  *session.Session
	lastSeen time.Time
}

// ConversationHandler runs the text channel. Conversations live in memory
// and are archived once they expire.
type ConversationHandler struct {
	Router  *flows.Router
	Archive archive.Archiver
	TTL     time.Duration
	Now     func() time.Time
	Log     *zap.Logger

	mu            sync.Mutex
	conversations map[string]*conversation
}

func NewConversationHandler(router *flows.Router, store archive.Archiver, now func() time.Time, log *zap.Logger) *ConversationHandler {
	if store == nil {
		store = archive.Discard{}
	}
	if now == nil {
		now = time.Now
	}
	return &ConversationHandler{
		Router:        router,
		Archive:       store,
		TTL:           DefaultConversationTTL,
		Now:           now,
		Log:           log.Named("conversations"),
		conversations: make(map[string]*conversation),
	}
}

// StartConversation opens a new text conversation and returns its id.
func (h *ConversationHandler) StartConversation(c *gin.Context) {
	h.sweep(c.Request.Context())

	now := h.Now()
	s := session.New(uuid.NewString(), now)
	s.AddTurn(models.TranscriptAssistant, textGreeting, now)

	h.mu.Lock()
	h.conversations[s.ID] = &conversation{session: s, lastSeen: now}
	h.mu.Unlock()

	h.Log.Info("conversation started", zap.String("session", s.ID))
	utils.Created(c, "Conversation started", gin.H{"conversationId": s.ID, "response": textGreeting})
}

type SendMessageRequest struct {
	Text string `json:"text" binding:"required,max=2000"`
}

// SendMessage answers one user turn.
func (h *ConversationHandler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	h.sweep(c.Request.Context())

	h.mu.Lock()
	conv, ok := h.conversations[c.Param("id")]
	h.mu.Unlock()
	if !ok {
		utils.NotFound(c, "Conversation not found or expired")
		return
	}

	conv.mu.Lock()
	reply := h.Router.Handle(c.Request.Context(), conv.session, req.Text)
	conv.lastSeen = h.Now()
	flow := conv.session.Flow
	conv.mu.Unlock()

	utils.Success(c, "Message handled", gin.H{
		"conversationId": conv.session.ID,
		"response":       reply.Response,
		"complete":       reply.Complete,
		"flow":           flow,
	})
}

// sweep drops expired conversations and archives their transcripts.
func (h *ConversationHandler) sweep(ctx context.Context) {
	now := h.Now()

	var expired []*conversation
	h.mu.Lock()
	for id, conv := range h.conversations {
		conv.mu.Lock()
		idle := now.Sub(conv.lastSeen)
		conv.mu.Unlock()
		if idle >= h.TTL {
			expired = append(expired, conv)
			delete(h.conversations, id)
		}
	}
	h.mu.Unlock()

	if len(expired) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	h.store(ctx, expired, now)
	h.Log.Debug("expired conversations", zap.Int("count", len(expired)))
}

// Close archives every open conversation and forgets it. It runs once the
// HTTP server has stopped taking requests.
func (h *ConversationHandler) Close(ctx context.Context) {
	h.mu.Lock()
	open := make([]*conversation, 0, len(h.conversations))
	for id, conv := range h.conversations {
		open = append(open, conv)
		delete(h.conversations, id)
	}
	h.mu.Unlock()

	h.store(ctx, open, h.Now())
	h.Log.Info("conversations closed", zap.Int("count", len(open)))
}

func (h *ConversationHandler) store(ctx context.Context, convs []*conversation, ended time.Time) {
	for _, conv := range convs {
		conv.mu.Lock()
		t := archive.FromSession(conv.session, ended)
		conv.mu.Unlock()
		if err := h.Archive.Store(ctx, t); err != nil {
			h.Log.Error("archive conversation", zap.String("session", conv.session.ID), zap.Error(err))
		}
	}
}

// Active reports how many conversations are open.
func (h *ConversationHandler) Active() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conversations)
}
