package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"meet-server/internal/config"
	"meet-server/internal/infrastructure/metrics"
)

// S3Locator resolves finished recordings in the S3 bucket the concatenation
// pipeline sinks to, and produces time-limited presigned URLs for them. It
// implements meeting.RecordingLocator.
type S3Locator struct {
	bucket    string
	client    *s3.Client
	presigner *s3.PresignClient
	log       zerolog.Logger
}

func NewS3Locator(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*S3Locator, error) {
	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		if cfg.S3Endpoint != "" {
			return aws.Endpoint{
				URL:           cfg.S3Endpoint,
				PartitionID:   "aws",
				SigningRegion: cfg.S3Region,
			}, nil
		}
		return aws.Endpoint{}, &aws.EndpointNotFoundError{}
	})

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, "")),
		awsconfig.WithEndpointResolverWithOptions(resolver),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.S3UsePathStyle
	})

	return &S3Locator{
		bucket:    cfg.S3Bucket,
		client:    client,
		presigner: s3.NewPresignClient(client),
		log:       log.With().Str("component", "s3-locator").Logger(),
	}, nil
}

// FindRecording returns the key of the first object under prefix, or "" when
// nothing has landed there yet. Later objects at the same prefix are ignored.
func (l *S3Locator) FindRecording(ctx context.Context, prefix string) (string, error) {
	out, err := l.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(l.bucket),
		Prefix:  aws.String(prefix),
		MaxKeys: aws.Int32(1),
	})
	metrics.ObserveStorageOp("list_objects", err)
	if err != nil {
		return "", err
	}
	if len(out.Contents) == 0 {
		return "", nil
	}
	return aws.ToString(out.Contents[0].Key), nil
}

// PresignRecording returns a GET URL valid for ttl.
func (l *S3Locator) PresignRecording(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := l.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(l.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	metrics.ObserveStorageOp("presign_get", err)
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

// Health performs a HeadBucket request against the recording bucket.
func (l *S3Locator) Health(ctx context.Context) error {
	_, err := l.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(l.bucket)})
	return err
}
