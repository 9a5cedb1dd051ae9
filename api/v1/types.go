package v1

import "encoding/json"

// Scheme selects the signature algorithm family for a signing request.
type Scheme int

const (
	// SchemeLegacy is the single-round HMAC-SHA1 scheme (AWS signature
	// version 2).
	SchemeLegacy Scheme = iota
	// SchemeV4 is the derived-key HMAC-SHA256 scheme (AWS signature
	// version 4), selected by the v4 query parameter.
	SchemeV4
)

func (s Scheme) String() string {
	if s == SchemeV4 {
		return "v4"
	}
	return "legacy"
}

// SignatureRequest is the body of POST /s3/signature. Uploaders send one of
// two shapes: chunked (REST) uploads carry the raw string-to-sign in Headers,
// simple uploads carry a policy document in Expiration/Conditions.
type SignatureRequest struct {
	Headers    string            `json:"headers,omitempty"`
	Expiration string            `json:"expiration,omitempty"`
	Conditions []json.RawMessage `json:"conditions,omitempty"`
}

// SignatureResponse is always delivered with HTTP 200, including rejections,
// so browsers that cannot read error bodies cross-origin still observe the
// Invalid flag.
type SignatureResponse struct {
	Policy    string `json:"policy,omitempty"`
	Signature string `json:"signature,omitempty"`
	Invalid   bool   `json:"invalid,omitempty"`
}

// UploadSuccessRequest is posted by the uploader once the object has landed
// in the bucket. IsBrowserPreviewCapable signals that the browser rendered
// its own local preview and does not need a thumbnail link back.
type UploadSuccessRequest struct {
	Bucket                  string `json:"bucket"`
	Key                     string `json:"key"`
	Name                    string `json:"name"`
	IsBrowserPreviewCapable bool   `json:"isBrowserPreviewCapable"`
}

type UploadSuccessResponse struct {
	TempLink     string `json:"tempLink"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
}

// ErrorResponse carries PreventRetry when the client must not re-attempt the
// upload (the object was rejected and deleted server-side).
type ErrorResponse struct {
	Error        string `json:"error"`
	PreventRetry bool   `json:"preventRetry,omitempty"`
}

// DeleteObjectRequest is the POST body form of a delete. Method carries the
// _method override for clients that cannot issue DELETE cross-origin.
type DeleteObjectRequest struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
	Method string `json:"_method,omitempty"`
}
