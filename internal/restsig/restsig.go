// Package restsig validates the raw canonical-request blocks that chunked
// (REST) uploads ask the gateway to sign, and rebuilds the version 4
// string-to-sign around a server-computed content hash.
package restsig

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// ContainsBucket reports whether the raw header block references the expected
// bucket as a path segment. This is the whole of the legacy-scheme check: a
// presence test, not an HTTP parse.
func ContainsBucket(block, bucket string) bool {
	if bucket == "" {
		return false
	}
	return strings.Contains(block, "/"+bucket+"/")
}

// HasHost reports whether the block carries a canonical host header line for
// the expected host (modern scheme).
func HasHost(block, host string) bool {
	if host == "" {
		return false
	}
	for _, line := range strings.Split(block, "\n") {
		if line == "host:"+host {
			return true
		}
	}
	return false
}

// StringToSign is a decomposed version 4 string-to-sign block:
//
//	{algorithm}\n{timestamp}\n{date}/{region}/s3/aws4_request\n{canonicalRequest}
//
// The uploader appends the canonical request it wants signed where a hash
// belongs; the gateway recomputes that hash itself.
type StringToSign struct {
	Algorithm        string
	Timestamp        string
	Date             string
	Region           string
	CanonicalRequest string
}

// Parse splits a block by the fixed positional layout above. It reports false
// for malformed blocks; a partial extraction is never signed.
func Parse(block string) (StringToSign, bool) {
	parts := strings.SplitN(block, "\n", 4)
	if len(parts) != 4 {
		return StringToSign{}, false
	}
	scope := strings.Split(parts[2], "/")
	if len(scope) != 4 || scope[2] != "s3" || scope[3] != "aws4_request" {
		return StringToSign{}, false
	}
	date, region := scope[0], scope[1]
	if !isDigits(date) || region == "" {
		return StringToSign{}, false
	}
	return StringToSign{
		Algorithm:        parts[0],
		Timestamp:        parts[1],
		Date:             date,
		Region:           region,
		CanonicalRequest: parts[3],
	}, true
}

// Scope returns the credential scope line.
func (s StringToSign) Scope() string {
	return s.Date + "/" + s.Region + "/s3/aws4_request"
}

// Rehash rebuilds the string-to-sign with hex(SHA-256) of the embedded
// canonical request in place of whatever followed the scope line. The
// client-supplied trailing content is never trusted as a hash.
func (s StringToSign) Rehash() string {
	sum := sha256.Sum256([]byte(s.CanonicalRequest))
	return s.Algorithm + "\n" + s.Timestamp + "\n" + s.Scope() + "\n" + hex.EncodeToString(sum[:])
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
