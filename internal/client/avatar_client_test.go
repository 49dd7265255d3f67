package client

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAvatarClient() *AvatarClient {
	s3Client := s3.New(s3.Options{
		Region:       "us-east-1",
		BaseEndpoint: aws.String("http://minio.local:9000"),
		UsePathStyle: true,
		Credentials: aws.CredentialsProviderFunc(func(ctx context.Context) (aws.Credentials, error) {
			return aws.Credentials{AccessKeyID: "AKIDEXAMPLE", SecretAccessKey: "secret"}, nil
		}),
	})
	return newAvatarClient(s3Client, "avatars", 15*time.Minute)
}

func TestAvatarURL_Presigns(t *testing.T) {
	c := newTestAvatarClient()

	raw, err := c.AvatarURL(context.Background(), "users/alex.png")
	require.NoError(t, err)

	parsed, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "minio.local:9000", parsed.Host)
	assert.True(t, strings.HasPrefix(parsed.Path, "/avatars/users/alex.png"))
	assert.Equal(t, "900", parsed.Query().Get("X-Amz-Expires"))
	assert.NotEmpty(t, parsed.Query().Get("X-Amz-Signature"))
}
