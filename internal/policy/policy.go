// Package policy parses and validates the declarative upload policies that
// simple (non-chunked) uploads ask the gateway to sign.
package policy

import (
	"encoding/base64"
	"encoding/json"
	"strconv"
	"strings"
)

// Document is a client-declared upload policy: an expiration plus an ordered
// list of conditions. Conditions are kept raw so re-encoding the document for
// signing preserves entries this gateway does not interpret (acl, key,
// starts-with constraints and so on).
type Document struct {
	Expiration string            `json:"expiration,omitempty"`
	Conditions []json.RawMessage `json:"conditions"`
}

// Encode returns the base64 form of the document, which is both the value
// the signature covers and the policy field echoed back to the uploader.
func (d *Document) Encode() (string, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// Conditions is the summary of one scan over a policy's condition list.
// Later entries override earlier ones; that permissiveness matches the
// upstream policy format.
type Conditions struct {
	Bucket     string
	Credential string
	SizeMax    int64
	HasSizeMax bool
}

// Scan walks the condition list once, recording the last-seen bucket,
// credential and content-length-range max. Entries it cannot interpret are
// opaque to this gateway and skipped.
func Scan(d *Document) Conditions {
	var c Conditions
	for _, raw := range d.Conditions {
		// Array form: ["content-length-range", min, max].
		var arr []json.RawMessage
		if err := json.Unmarshal(raw, &arr); err == nil {
			if len(arr) == 3 && scalarString(arr[0]) == "content-length-range" {
				if max, ok := scalarInt(arr[2]); ok {
					c.SizeMax, c.HasSizeMax = max, true
				}
			}
			continue
		}

		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			continue
		}
		if v, ok := obj["bucket"]; ok {
			c.Bucket = scalarString(v)
		}
		if v, ok := obj["x-amz-credential"]; ok {
			c.Credential = scalarString(v)
		}
		if v, ok := obj["content-length-range"]; ok {
			var pair []json.RawMessage
			if err := json.Unmarshal(v, &pair); err == nil && len(pair) == 2 {
				if max, ok := scalarInt(pair[1]); ok {
					c.SizeMax, c.HasSizeMax = max, true
				}
			}
		}
	}
	return c
}

// Validator holds the gateway's expected upload destination and size limit.
// Zero MaxSize means no limit is configured, in which case any size-range
// condition (or none at all) is accepted.
type Validator struct {
	Bucket  string
	MaxSize int64
}

// Check reports whether scanned conditions satisfy the expected shape. The
// size comparison is numeric; policies serialize scalars as text and a
// textual comparison would reject equivalent spellings of the same limit.
func (v Validator) Check(c Conditions) bool {
	if c.Bucket != v.Bucket {
		return false
	}
	if v.MaxSize == 0 {
		return true
	}
	return c.HasSizeMax && c.SizeMax == v.MaxSize
}

// Validate scans and checks a document in one call. Safe for concurrent use;
// no state is shared between requests.
func (v Validator) Validate(d *Document) bool {
	return v.Check(Scan(d))
}

// CredentialScope is the {date}/{region}/s3/aws4_request tuple that scopes a
// version 4 signing key.
type CredentialScope struct {
	Date   string
	Region string
}

// ParseCredentialScope extracts the scope from an x-amz-credential value of
// the form {accessKey}/{date}/{region}/s3/aws4_request. It reports false for
// anything that does not match that exact shape.
func ParseCredentialScope(credential string) (CredentialScope, bool) {
	parts := strings.Split(credential, "/")
	if len(parts) != 5 || parts[3] != "s3" || parts[4] != "aws4_request" {
		return CredentialScope{}, false
	}
	date, region := parts[1], parts[2]
	if !isDigits(date) || region == "" {
		return CredentialScope{}, false
	}
	return CredentialScope{Date: date, Region: region}, true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func scalarString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// scalarInt accepts both JSON numbers and numeric strings; policies
// serialize scalars inconsistently across uploader versions.
func scalarInt(raw json.RawMessage) (int64, bool) {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		return 0, false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return i, true
}
