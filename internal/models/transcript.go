package models

import (
	"time"
)

// TranscriptRole says who spoke a transcript line
type TranscriptRole string

const (
	TranscriptUser      TranscriptRole = "user"
	TranscriptAssistant TranscriptRole = "assistant"
)

// CallTranscript is one spoken turn of a finished call
type CallTranscript struct {
	BaseModel
	CallSID   string         `gorm:"size:64;index" json:"callSid"`
	StreamSID string         `gorm:"size:64" json:"streamSid"`
	Role      TranscriptRole `gorm:"size:20" json:"role"`
	Content   string         `gorm:"type:text" json:"content"`
	SpokenAt  time.Time      `json:"spokenAt"`
}

func (CallTranscript) TableName() string { return "call_transcripts" }
