package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/pkg/errors"
)

type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver uploads each transcript as a JSON object.
type S3Archiver struct {
	client s3API
	bucket string
}

// NewS3Archiver uses the default AWS credential chain.
func NewS3Archiver(ctx context.Context, bucket string) (*S3Archiver, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load AWS config")
	}
	client := s3.New(s3.Options{
		Region:       cfg.Region,
		Credentials:  cfg.Credentials,
		HTTPClient:   cfg.HTTPClient,
		BaseEndpoint: cfg.BaseEndpoint,
		UsePathStyle: true,
	})
	return &S3Archiver{client: client, bucket: bucket}, nil
}

// Key is transcripts/YYYY/MM/DD/<call sid>.json, dated by call start.
func Key(t Transcript) string {
	id := t.CallSID
	if id == "" {
		id = t.StreamSID
	}
	return fmt.Sprintf("transcripts/%s/%s.json", t.StartedAt.UTC().Format("2006/01/02"), id)
}

func (a *S3Archiver) Store(ctx context.Context, t Transcript) error {
	body, err := json.Marshal(t)
	if err != nil {
		return errors.Wrap(err, "encode transcript")
	}
	key := Key(t)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
		ACL:         types.ObjectCannedACLPrivate,
	})
	return errors.Wrapf(err, "put %s", key)
}
