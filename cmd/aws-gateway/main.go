package main

import (
	"context"
	"log"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/awslabs/aws-lambda-go-api-proxy/core"
	"github.com/awslabs/aws-lambda-go-api-proxy/gorillamux"

	"github.com/FineUploader/go-s3-server/internal/config"
	"github.com/FineUploader/go-s3-server/internal/logging"
	"github.com/FineUploader/go-s3-server/internal/server"
	"github.com/FineUploader/go-s3-server/internal/storage"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	logger := logging.New("json", os.Stdout)

	store, err := storage.NewS3Store(ctx, storage.ClientConfig{
		Region:          cfg.Region,
		AccessKeyID:     cfg.AccessKeyID,
		SecretAccessKey: cfg.SecretAccessKey,
	})
	if err != nil {
		log.Fatalf("failed to create storage client: %v", err)
	}

	r, err := server.NewRouter(cfg, store, logger)
	if err != nil {
		log.Fatalf("failed to create router: %v", err)
	}

	adapter := gorillamux.New(r)
	lambda.Start(func(ctx context.Context, req core.SwitchableAPIGatewayRequest) (interface{}, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
}
