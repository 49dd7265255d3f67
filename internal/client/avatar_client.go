package client

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// AvatarClient stores author avatars in an S3-compatible bucket and hands out
// short-lived presigned URLs for them.
type AvatarClient struct {
	s3Client   *s3.Client
	presigner  *s3.PresignClient
	bucket     string
	presignTTL time.Duration
}

// NewAvatarClient loads the AWS configuration from the environment and shared
// config files. A non-empty endpoint selects a path-style S3-compatible store.
func NewAvatarClient(ctx context.Context, region string, endpoint string, bucket string, presignTTL time.Duration) (*AvatarClient, error) {
	var loadOptions []func(*config.LoadOptions) error
	if region != "" {
		loadOptions = append(loadOptions, config.WithRegion(region))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS SDK config: %w", err)
	}

	s3Client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return newAvatarClient(s3Client, bucket, presignTTL), nil
}

func newAvatarClient(s3Client *s3.Client, bucket string, presignTTL time.Duration) *AvatarClient {
	return &AvatarClient{
		s3Client:   s3Client,
		presigner:  s3.NewPresignClient(s3Client),
		bucket:     bucket,
		presignTTL: presignTTL,
	}
}

// AvatarURL presigns a GET for the object at key.
func (c *AvatarClient) AvatarURL(ctx context.Context, key string) (string, error) {
	request, err := c.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(c.presignTTL))
	if err != nil {
		return "", fmt.Errorf("failed to presign avatar: %w", err)
	}
	return request.URL, nil
}

// UploadAvatar uploads an avatar image under key.
func (c *AvatarClient) UploadAvatar(ctx context.Context, key string, contentType string, data io.Reader) error {
	_, err := c.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        data,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload avatar to S3: %w", err)
	}
	return nil
}
