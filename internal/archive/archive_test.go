package archive

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dental-receptionist-server/internal/config"
	"dental-receptionist-server/internal/models"
	"dental-receptionist-server/internal/models/modelstest"
	"dental-receptionist-server/internal/session"
)

var started = time.Date(2026, time.March, 2, 10, 30, 0, 0, time.UTC)

func transcript() Transcript {
	s := session.New("call-1", started)
	s.CallSID, s.StreamSID = "CA123", "MZ456"
	s.AddTurn(models.TranscriptAssistant, "Hi, this is Sarah. How can I help?", started)
	s.AddTurn(models.TranscriptUser, "I'd like to book a clean", started.Add(3*time.Second))
	return FromSession(s, started.Add(time.Minute))
}

func TestDBArchiverStoresEveryTurn(t *testing.T) {
	db := modelstest.New(t)
	a := NewDBArchiver(db)

	require.NoError(t, a.Store(context.Background(), transcript()))

	var rows []models.CallTranscript
	require.NoError(t, db.Order("spoken_at").Find(&rows).Error)
	require.Len(t, rows, 2)
	assert.Equal(t, "CA123", rows[0].CallSID)
	assert.Equal(t, "MZ456", rows[0].StreamSID)
	assert.Equal(t, models.TranscriptAssistant, rows[0].Role)
	assert.Equal(t, "I'd like to book a clean", rows[1].Content)
	assert.NotEmpty(t, rows[1].ID)

	require.NoError(t, a.Store(context.Background(), Transcript{CallSID: "empty"}))
	var n int64
	db.Model(&models.CallTranscript{}).Count(&n)
	assert.EqualValues(t, 2, n)
}

type fakeS3 struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = in
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, f.err
}

func TestS3ArchiverUploadsJSON(t *testing.T) {
	fake := &fakeS3{}
	a := &S3Archiver{client: fake, bucket: "clinic-calls"}

	require.NoError(t, a.Store(context.Background(), transcript()))
	assert.Equal(t, "clinic-calls", aws.ToString(fake.input.Bucket))
	assert.Equal(t, "transcripts/2026/03/02/CA123.json", aws.ToString(fake.input.Key))
	assert.Equal(t, "application/json", aws.ToString(fake.input.ContentType))

	var got Transcript
	require.NoError(t, json.Unmarshal(fake.body, &got))
	assert.Equal(t, "CA123", got.CallSID)
	assert.Len(t, got.Turns, 2)

	fake.err = errors.New("denied")
	err := a.Store(context.Background(), transcript())
	assert.ErrorContains(t, err, "put transcripts/2026/03/02/CA123.json")
}

func TestKeyFallsBackToStreamSID(t *testing.T) {
	assert.Equal(t, "transcripts/2026/03/02/MZ9.json", Key(Transcript{StreamSID: "MZ9", StartedAt: started}))
}

func TestOpen(t *testing.T) {
	db := modelstest.New(t)
	a, err := Open(context.Background(), config.ArchiveConfig{Backend: "database"}, db)
	require.NoError(t, err)
	assert.IsType(t, &DBArchiver{}, a)

	a, err = Open(context.Background(), config.ArchiveConfig{Backend: "none"}, db)
	require.NoError(t, err)
	assert.Equal(t, Discard{}, a)

	_, err = Open(context.Background(), config.ArchiveConfig{Backend: "tape"}, db)
	assert.Error(t, err)
}
