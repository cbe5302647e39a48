package realtime

import (
	"dental-receptionist-server/internal/config"
)

// Audio on both legs is 8 kHz μ-law, the format Twilio streams.
const audioFormat = "g711_ulaw"

// Session is the model configuration carried by session.update. Zero fields
// are omitted so a partial update leaves the rest unchanged.
type Session struct {
	Modalities              []string       `json:"modalities,omitempty"`
	Instructions            string         `json:"instructions,omitempty"`
	Voice                   string         `json:"voice,omitempty"`
	InputAudioFormat        string         `json:"input_audio_format,omitempty"`
	OutputAudioFormat       string         `json:"output_audio_format,omitempty"`
	InputAudioTranscription *Transcription `json:"input_audio_transcription,omitempty"`
	TurnDetection           *TurnDetection `json:"turn_detection,omitempty"`
	Temperature             float64        `json:"temperature,omitempty"`
	MaxResponseOutputTokens int            `json:"max_response_output_tokens,omitempty"`
	Tools                   []Tool         `json:"tools,omitempty"`
	ToolChoice              string         `json:"tool_choice,omitempty"`
}

type Transcription struct {
	Model string `json:"model"`
}

// TurnDetection configures server-side voice activity detection.
type TurnDetection struct {
	Type              string  `json:"type"`
	Threshold         float64 `json:"threshold"`
	PrefixPaddingMs   int     `json:"prefix_padding_ms"`
	SilenceDurationMs int     `json:"silence_duration_ms"`
}

func turnDetection(cfg config.RealtimeConfig) *TurnDetection {
	return &TurnDetection{
		Type:              "server_vad",
		Threshold:         cfg.VADThreshold,
		PrefixPaddingMs:   cfg.PrefixPaddingMs,
		SilenceDurationMs: cfg.SilenceDurationMs,
	}
}

// NewSessionUpdate is the first event of every call.
func NewSessionUpdate(cfg config.RealtimeConfig, instructions string) SessionUpdate {
	return SessionUpdate{
		Type: "session.update",
		Session: Session{
			Modalities:              []string{"text", "audio"},
			Instructions:            instructions,
			Voice:                   cfg.Voice,
			InputAudioFormat:        audioFormat,
			OutputAudioFormat:       audioFormat,
			InputAudioTranscription: &Transcription{Model: "whisper-1"},
			TurnDetection:           turnDetection(cfg),
			Temperature:             cfg.Temperature,
			MaxResponseOutputTokens: cfg.MaxOutputTokens,
			Tools:                   Tools(),
			ToolChoice:              "auto",
		},
	}
}

// KeepAliveUpdate resends only the turn detection settings so an idle
// session stays open.
func KeepAliveUpdate(cfg config.RealtimeConfig) SessionUpdate {
	return SessionUpdate{
		Type:    "session.update",
		Session: Session{TurnDetection: turnDetection(cfg)},
	}
}
