package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/samber/lo"
)

type s3ObjectAPI interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type s3PresignAPI interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

type s3Store struct {
	client s3ObjectAPI
	signer s3PresignAPI
}

// NewS3Store builds the S3-backed ObjectStore. A configured static key pair
// takes precedence over the SDK default credential chain.
func NewS3Store(ctx context.Context, cc ClientConfig) (ObjectStore, error) {
	var opts []func(*config.LoadOptions) error
	if cc.Region != "" {
		opts = append(opts, config.WithRegion(cc.Region))
	}
	if cc.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cc.AccessKeyID, cc.SecretAccessKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(cfg)
	return &s3Store{client: client, signer: s3.NewPresignClient(client)}, nil
}

func (s *s3Store) HeadSize(ctx context.Context, bucket, key string) (int64, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: lo.ToPtr(bucket),
		Key:    lo.ToPtr(key),
	})
	if err != nil {
		return 0, fmt.Errorf("head %s/%s: %w", bucket, key, err)
	}
	if out.ContentLength == nil {
		return 0, fmt.Errorf("head %s/%s: no content length in response", bucket, key)
	}
	return *out.ContentLength, nil
}

func (s *s3Store) Delete(ctx context.Context, bucket, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: lo.ToPtr(bucket),
		Key:    lo.ToPtr(key),
	})
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", bucket, key, err)
	}
	return nil
}

func (s *s3Store) PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	out, err := s.signer.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: lo.ToPtr(bucket),
		Key:    lo.ToPtr(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("presign %s/%s: %w", bucket, key, err)
	}
	return out.URL, nil
}
