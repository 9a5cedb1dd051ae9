package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	v1 "github.com/FineUploader/go-s3-server/api/v1"
)

// Drives the whole handshake against a running gateway: ask for a signed
// policy, form-POST the payload straight to S3, then notify the gateway of
// the completed upload.
func main() {
	apiURL := flag.String("api", "", "gateway base URL, e.g. http://localhost:8000 (required)")
	bucket := flag.String("bucket", "", "S3 bucket (required)")
	key := flag.String("key", "", "S3 object key (required)")
	accessKey := flag.String("access-key", "", "public AWS access key embedded in the form (required)")
	acl := flag.String("acl", "private", "canned ACL for the upload")
	maxSize := flag.Int64("max-size", 104857600, "content-length-range max for the policy")
	payloadPath := flag.String("payload", "", "path to payload file (required)")

	flag.Parse()

	for name, val := range map[string]string{
		"api":        *apiURL,
		"bucket":     *bucket,
		"key":        *key,
		"access-key": *accessKey,
		"payload":    *payloadPath,
	} {
		if val == "" {
			_, _ = fmt.Fprintf(os.Stderr, "missing required flag: -%s\n", name)
			os.Exit(1)
		}
	}

	payload, err := os.ReadFile(*payloadPath)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "failed to read payload file: %v\n", err)
		os.Exit(1)
	}

	conditions := []any{
		map[string]string{"acl": *acl},
		map[string]string{"bucket": *bucket},
		map[string]string{"key": *key},
		map[string]string{"success_action_status": "200"},
		[]any{"content-length-range", "0", fmt.Sprintf("%d", *maxSize)},
	}
	rawConds := make([]json.RawMessage, len(conditions))
	for i, c := range conditions {
		rawConds[i], _ = json.Marshal(c)
	}

	signReq := v1.SignatureRequest{
		Expiration: "2038-01-01T00:00:00.000Z",
		Conditions: rawConds,
	}
	bs, _ := json.Marshal(signReq)

	resp, err := http.Post(*apiURL+"/s3/signature", "application/json", bytes.NewReader(bs))
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "signature request failed: %v\n", err)
		os.Exit(1)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()

	var signed v1.SignatureResponse
	if err := json.Unmarshal(body, &signed); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "failed to parse signature response: %v\n", err)
		os.Exit(1)
	}
	if signed.Invalid {
		_, _ = fmt.Fprintln(os.Stderr, "gateway rejected the policy")
		os.Exit(1)
	}
	fmt.Printf("signed policy, signature: %s\n", signed.Signature)

	if err := formPost(*bucket, *key, *acl, *accessKey, signed, payload); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "upload failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("uploaded %s/%s\n", *bucket, *key)

	successReq := v1.UploadSuccessRequest{
		Bucket: *bucket,
		Key:    *key,
		Name:   filepath.Base(*payloadPath),
	}
	bs, _ = json.Marshal(successReq)
	resp, err = http.Post(*apiURL+"/s3/success", "application/json", bytes.NewReader(bs))
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "success notification failed: %v\n", err)
		os.Exit(1)
	}
	body, _ = io.ReadAll(resp.Body)
	_ = resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = fmt.Fprintf(os.Stderr, "success notification rejected: %s: %s\n", resp.Status, string(body))
		os.Exit(1)
	}

	var out v1.UploadSuccessResponse
	if err := json.Unmarshal(body, &out); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "failed to parse success response: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("temporary link: %s\n", out.TempLink)
}

func formPost(bucket, key, acl, accessKey string, signed v1.SignatureResponse, payload []byte) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fields := map[string]string{
		"key":                   key,
		"acl":                   acl,
		"AWSAccessKeyId":        accessKey,
		"policy":                signed.Policy,
		"signature":             signed.Signature,
		"success_action_status": "200",
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return err
		}
	}

	fw, err := mw.CreateFormFile("file", key)
	if err != nil {
		return err
	}
	if _, err := fw.Write(payload); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	res, err := http.Post(
		fmt.Sprintf("https://%s.s3.amazonaws.com/", bucket),
		mw.FormDataContentType(),
		&buf,
	)
	if err != nil {
		return err
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "failed to close reader: %v\n", err)
		}
	}(res.Body)

	if res.StatusCode/100 != 2 {
		b, _ := io.ReadAll(res.Body)
		return fmt.Errorf("post failed: %s: %s", res.Status, string(b))
	}
	return nil
}
