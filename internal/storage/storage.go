// Package storage is the gateway's capability surface over the backing
// object store: size lookup, deletion and short-lived read links. The core
// never holds broader storage credentials than these three calls need.
package storage

import (
	"context"
	"time"
)

// ObjectStore is implemented by the S3 client and by test doubles. Calls
// block until the backend answers; callers own any timeout via ctx.
type ObjectStore interface {
	HeadSize(ctx context.Context, bucket, key string) (int64, error)
	Delete(ctx context.Context, bucket, key string) error
	PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
}

// ClientConfig carries the backend-facing credential pair and region. An
// empty AccessKeyID falls through to the SDK default credential chain.
type ClientConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}
