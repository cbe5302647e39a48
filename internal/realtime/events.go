// Package realtime is a client for the OpenAI Realtime speech-to-speech API:
// the JSON events exchanged over its WebSocket, the session configuration
// and the tools the receptionist exposes to the model.
package realtime

import "encoding/json"

// Server event types
const (
	EventError                       = "error"
	EventSessionCreated              = "session.created"
	EventSessionUpdated              = "session.updated"
	EventResponseCreated             = "response.created"
	EventResponseDone                = "response.done"
	EventOutputItemAdded             = "response.output_item.added"
	EventAudioDelta                  = "response.audio.delta"
	EventAudioDone                   = "response.audio.done"
	EventAudioTranscriptDone         = "response.audio_transcript.done"
	EventFunctionCallArgumentsStart  = "response.function_call_arguments.start"
	EventFunctionCallArgumentsDelta  = "response.function_call_arguments.delta"
	EventFunctionCallArgumentsDone   = "response.function_call_arguments.done"
	EventSpeechStarted               = "input_audio_buffer.speech_started"
	EventSpeechStopped               = "input_audio_buffer.speech_stopped"
	EventInputAudioBufferCleared     = "input_audio_buffer.cleared"
	EventInputTranscriptionCompleted = "conversation.item.input_audio_transcription.completed"
	EventInputTranscriptionFailed    = "conversation.item.input_audio_transcription.failed"
	EventConversationItemCreated     = "conversation.item.created"
	EventRateLimitsUpdated           = "rate_limits.updated"
)

// ServerEvent is any event received from the model. Only the fields the
// bridge reads are decoded; Raw keeps the full frame for logging.
type ServerEvent struct {
	Type       string       `json:"type"`
	EventID    string       `json:"event_id,omitempty"`
	Item       *ItemRef     `json:"item,omitempty"`
	Response   *ResponseRef `json:"response,omitempty"`
	ItemID     string       `json:"item_id,omitempty"`
	Delta      string       `json:"delta,omitempty"`
	Transcript string       `json:"transcript,omitempty"`
	Name       string       `json:"name,omitempty"`
	CallID     string       `json:"call_id,omitempty"`
	Arguments  string       `json:"arguments,omitempty"`
	Error      *APIError    `json:"error,omitempty"`

	Raw json.RawMessage `json:"-"`
}

type ItemRef struct {
	ID   string `json:"id"`
	Type string `json:"type,omitempty"`
}

type ResponseRef struct {
	ID     string `json:"id"`
	Status string `json:"status,omitempty"`
}

// APIError is the payload of an "error" event.
type APIError struct {
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Param   string `json:"param,omitempty"`
}

// DecodeServerEvent parses one frame.
func DecodeServerEvent(data []byte) (ServerEvent, error) {
	var ev ServerEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return ServerEvent{}, err
	}
	ev.Raw = data
	return ev, nil
}

// Client events

type SessionUpdate struct {
	Type    string  `json:"type"`
	Session Session `json:"session"`
}

type InputAudioBufferAppend struct {
	Type  string `json:"type"`
	Audio string `json:"audio"`
}

// Event is a client event with no payload beyond its type, such as
// response.create, response.cancel and input_audio_buffer.clear.
type Event struct {
	Type string `json:"type"`
}

type ConversationItemCreate struct {
	Type string `json:"type"`
	Item Item   `json:"item"`
}

// Item is a conversation item sent to the model: a user message or the
// output of a function call.
type Item struct {
	Type    string        `json:"type"`
	Role    string        `json:"role,omitempty"`
	Content []ContentPart `json:"content,omitempty"`
	CallID  string        `json:"call_id,omitempty"`
	Output  string        `json:"output,omitempty"`
}

type ContentPart struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type ConversationItemTruncate struct {
	Type         string `json:"type"`
	ItemID       string `json:"item_id"`
	ContentIndex int    `json:"content_index"`
	AudioEndMs   int    `json:"audio_end_ms"`
}

func ResponseCreate() Event        { return Event{Type: "response.create"} }
func ResponseCancel() Event        { return Event{Type: "response.cancel"} }
func InputAudioBufferClear() Event { return Event{Type: "input_audio_buffer.clear"} }

func AppendAudio(payload string) InputAudioBufferAppend {
	return InputAudioBufferAppend{Type: "input_audio_buffer.append", Audio: payload}
}

// UserText adds a typed user message to the conversation.
func UserText(text string) ConversationItemCreate {
	return ConversationItemCreate{
		Type: "conversation.item.create",
		Item: Item{
			Type:    "message",
			Role:    "user",
			Content: []ContentPart{{Type: "input_text", Text: text}},
		},
	}
}

// FunctionOutput answers a function call. output is the JSON result.
func FunctionOutput(callID, output string) ConversationItemCreate {
	return ConversationItemCreate{
		Type: "conversation.item.create",
		Item: Item{Type: "function_call_output", CallID: callID, Output: output},
	}
}

// Truncate cuts an assistant item at the audio the caller actually heard.
func Truncate(itemID string, audioEndMs int) ConversationItemTruncate {
	return ConversationItemTruncate{
		Type:         "conversation.item.truncate",
		ItemID:       itemID,
		ContentIndex: 0,
		AudioEndMs:   audioEndMs,
	}
}
