package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	v1 "github.com/FineUploader/go-s3-server/api/v1"
	"github.com/FineUploader/go-s3-server/internal/auth"
	"github.com/FineUploader/go-s3-server/internal/storage"
	"github.com/FineUploader/go-s3-server/internal/verify"
)

// maxSignatureBody bounds signing request bodies; policies and string-to-sign
// blocks are small, anything bigger is hostile.
const maxSignatureBody = 1 << 20

type handler struct {
	auth     *auth.Authorizer
	verifier *verify.Verifier
	store    storage.ObjectStore
	bucket   string
	log      *slog.Logger
}

// handleSignature handles http.MethodPost to /s3/signature. Rejections are
// delivered with HTTP 200 and an invalid flag: browsers that cannot read
// error bodies cross-origin still need to observe the payload.
func (h *handler) handleSignature(w http.ResponseWriter, r *http.Request) {
	scheme := v1.SchemeLegacy
	if r.URL.Query().Has("v4") {
		scheme = v1.SchemeV4
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxSignatureBody))
	if err != nil {
		h.reject(w, scheme, "unreadable body")
		return
	}

	req, err := auth.ParseRequest(body, scheme)
	if err != nil {
		h.reject(w, scheme, "malformed body")
		return
	}

	res := h.auth.Authorize(req)
	if res.Invalid {
		h.log.Info("rejected signing request", "kind", req.Kind.String(), "scheme", scheme.String())
		writeJSON(w, http.StatusOK, v1.SignatureResponse{Invalid: true})
		return
	}

	writeJSON(w, http.StatusOK, v1.SignatureResponse{
		Policy:    res.Policy,
		Signature: res.Signature,
	})
}

func (h *handler) reject(w http.ResponseWriter, scheme v1.Scheme, reason string) {
	h.log.Info("rejected signing request", "scheme", scheme.String(), "reason", reason)
	writeJSON(w, http.StatusOK, v1.SignatureResponse{Invalid: true})
}

// handleUploadSuccess handles http.MethodPost to /s3/success, the uploader's
// post-upload callback.
func (h *handler) handleUploadSuccess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var in v1.UploadSuccessRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "malformed body", http.StatusBadRequest)
		return
	}
	if in.Bucket != h.bucket || in.Key == "" {
		http.Error(w, "unexpected bucket or key", http.StatusBadRequest)
		return
	}

	res, err := h.verifier.Verify(ctx, in.Bucket, in.Key, in.Name, in.IsBrowserPreviewCapable)
	if err != nil {
		h.log.Error("post-upload check failed", "key", in.Key, "error", err)
		writeJSON(w, http.StatusBadGateway, v1.ErrorResponse{Error: "storage backend unavailable"})
		return
	}
	if res.TooLarge {
		h.log.Info("deleted oversized upload", "key", in.Key)
		writeJSON(w, http.StatusInternalServerError, v1.ErrorResponse{
			Error:        "file is too large",
			PreventRetry: true,
		})
		return
	}

	writeJSON(w, http.StatusOK, v1.UploadSuccessResponse{
		TempLink:     res.TempLink,
		ThumbnailURL: res.ThumbnailURL,
	})
}

// handleDelete handles DELETE /s3/delete?bucket=&key= and its POST override
// form for clients that cannot issue DELETE cross-origin.
func (h *handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var in v1.DeleteObjectRequest
	switch r.Method {
	case http.MethodDelete:
		in.Bucket = r.URL.Query().Get("bucket")
		in.Key = r.URL.Query().Get("key")
	default:
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			http.Error(w, "malformed body", http.StatusBadRequest)
			return
		}
		if !strings.EqualFold(in.Method, http.MethodDelete) {
			http.Error(w, "unsupported method override", http.StatusBadRequest)
			return
		}
	}

	if in.Bucket != h.bucket || in.Key == "" {
		http.Error(w, "unexpected bucket or key", http.StatusBadRequest)
		return
	}

	if err := h.store.Delete(ctx, in.Bucket, in.Key); err != nil {
		h.log.Error("delete failed", "key", in.Key, "error", err)
		writeJSON(w, http.StatusBadGateway, v1.ErrorResponse{Error: "storage backend unavailable"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
