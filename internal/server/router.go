package server

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/FineUploader/go-s3-server/internal/auth"
	"github.com/FineUploader/go-s3-server/internal/config"
	"github.com/FineUploader/go-s3-server/internal/policy"
	"github.com/FineUploader/go-s3-server/internal/signer"
	"github.com/FineUploader/go-s3-server/internal/storage"
	"github.com/FineUploader/go-s3-server/internal/verify"
)

func NewRouter(cfg *config.Config, store storage.ObjectStore, log *slog.Logger) (*mux.Router, error) {
	legacy, err := signer.NewStringSigner(cfg.ClientSecretKey)
	if err != nil {
		return nil, err
	}
	v4, err := signer.NewDerivedKeySigner(cfg.ClientSecretKey)
	if err != nil {
		return nil, err
	}

	h := handler{
		auth: &auth.Authorizer{
			Policies: policy.Validator{Bucket: cfg.Bucket, MaxSize: cfg.MaxFileSize},
			Host:     cfg.Host,
			Legacy:   legacy,
			V4:       v4,
		},
		verifier: &verify.Verifier{Store: store, MaxSize: cfg.MaxFileSize},
		store:    store,
		bucket:   cfg.Bucket,
		log:      log,
	}

	m := mux.NewRouter().StrictSlash(true).PathPrefix("/s3").Subrouter()
	m.HandleFunc("/signature", h.handleSignature).Methods(http.MethodPost)
	m.HandleFunc("/success", h.handleUploadSuccess).Methods(http.MethodPost)
	m.HandleFunc("/delete", h.handleDelete).Methods(http.MethodDelete, http.MethodPost)

	return m, nil
}
