// Package config loads the gateway's process-wide configuration from the
// environment once at startup. The resulting struct is immutable and passed
// into every component; nothing reads the environment after Load returns.
package config

import (
	"errors"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	ListenAddr string `env:"LISTEN_ADDR" env-default:"0.0.0.0:8000"`
	LogFormat  string `env:"LOG_FORMAT" env-default:"text"`

	// ClientSecretKey signs client-facing policies and header blocks. It is
	// never logged and never returned to callers.
	ClientSecretKey string `env:"CLIENT_SECRET_KEY"`

	// Bucket is the only destination this gateway will authorize.
	Bucket string `env:"S3_BUCKET"`

	// Host is the expected host header for version 4 REST requests, e.g.
	// mybucket.s3.amazonaws.com. Required only if v4 chunked uploads are in
	// use.
	Host string `env:"S3_HOST"`

	// MaxFileSize is the upload size limit in bytes; 0 disables size
	// validation entirely.
	MaxFileSize int64 `env:"MAX_FILE_SIZE" env-default:"0"`

	// Backend-facing credential pair for the storage client. Left empty,
	// the SDK default chain applies.
	Region          string `env:"AWS_REGION" env-default:"us-east-1"`
	AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.ClientSecretKey == "" {
		errs = append(errs, errors.New("CLIENT_SECRET_KEY is required"))
	}
	if c.Bucket == "" {
		errs = append(errs, errors.New("S3_BUCKET is required"))
	}
	if c.MaxFileSize < 0 {
		errs = append(errs, errors.New("MAX_FILE_SIZE must not be negative"))
	}
	return errors.Join(errs...)
}
