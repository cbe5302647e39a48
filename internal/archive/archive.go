// Package archive stores the transcript of each finished call.
package archive

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"dental-receptionist-server/internal/config"
	"dental-receptionist-server/internal/models"
	"dental-receptionist-server/internal/session"
)

// Transcript is everything said on one call.
type Transcript struct {
	CallSID   string         `json:"callSid"`
	StreamSID string         `json:"streamSid"`
	StartedAt time.Time      `json:"startedAt"`
	EndedAt   time.Time      `json:"endedAt"`
	Turns     []session.Turn `json:"turns"`
}

// FromSession captures the session's history at the end of a call.
func FromSession(s *session.Session, ended time.Time) Transcript {
	return Transcript{
		CallSID:   s.CallSID,
		StreamSID: s.StreamSID,
		StartedAt: s.CreatedAt,
		EndedAt:   ended,
		Turns:     s.History(),
	}
}

// Archiver persists call transcripts.
type Archiver interface {
	Store(ctx context.Context, t Transcript) error
}

// Open builds the archiver selected by ARCHIVE_BACKEND.
func Open(ctx context.Context, cfg config.ArchiveConfig, db *gorm.DB) (Archiver, error) {
	switch cfg.Backend {
	case "", "database":
		return NewDBArchiver(db), nil
	case "s3":
		return NewS3Archiver(ctx, cfg.Bucket)
	case "none":
		return Discard{}, nil
	}
	return nil, fmt.Errorf("unknown archive backend %q", cfg.Backend)
}

// Discard drops transcripts.
type Discard struct{}

func (Discard) Store(context.Context, Transcript) error { return nil }

// DBArchiver writes one call_transcripts row per turn.
type DBArchiver struct {
	db *gorm.DB
}

func NewDBArchiver(db *gorm.DB) *DBArchiver {
	return &DBArchiver{db: db}
}

func (a *DBArchiver) Store(ctx context.Context, t Transcript) error {
	if len(t.Turns) == 0 {
		return nil
	}
	rows := make([]models.CallTranscript, len(t.Turns))
	for i, turn := range t.Turns {
		rows[i] = models.CallTranscript{
			CallSID:   t.CallSID,
			StreamSID: t.StreamSID,
			Role:      turn.Role,
			Content:   turn.Content,
			SpokenAt:  turn.Timestamp,
		}
	}
	return models.WithTx(ctx, a.db, func(tx *gorm.DB) error {
		return tx.Create(&rows).Error
	})
}
