package main

import (
	"context"
	"log"
	"net/http"
	"os"

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
	logger := logging.New(cfg.LogFormat, os.Stdout)

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

	logger.Info("listening", "addr", cfg.ListenAddr, "bucket", cfg.Bucket)
	if err := http.ListenAndServe(cfg.ListenAddr, r); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
