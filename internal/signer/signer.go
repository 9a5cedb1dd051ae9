// Package signer implements the two signature schemes of the upload
// authorization handshake: the legacy single-round HMAC-SHA1 scheme and the
// AWS signature version 4 derived-key scheme.
package signer

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
)

// ErrEmptySecret is returned by the constructors when no signing secret is
// configured. This is a startup failure, never a per-request condition.
var ErrEmptySecret = errors.New("signer: empty secret")

// StringSigner computes legacy signatures: base64(HMAC-SHA1(secret, message)).
// It is safe for concurrent use; the secret is never mutated after
// construction.
type StringSigner struct {
	secret []byte
}

func NewStringSigner(secret string) (*StringSigner, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	return &StringSigner{secret: []byte(secret)}, nil
}

func (s *StringSigner) Sign(message string) string {
	mac := hmac.New(sha1.New, s.secret)
	mac.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// DerivedKeySigner computes signature version 4 signatures. The raw secret is
// never applied to attacker-influenced input directly; every signature uses a
// key scoped to a day and region through the four-round derivation chain.
type DerivedKeySigner struct {
	secret string
}

func NewDerivedKeySigner(secret string) (*DerivedKeySigner, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	return &DerivedKeySigner{secret: secret}, nil
}

// DeriveKey runs the version 4 derivation chain for the given credential
// scope date and region. Intermediate digests stay binary; only the final
// signature is hex-encoded.
func (s *DerivedKeySigner) DeriveKey(date, region string) []byte {
	kDate := hmacSHA256([]byte("AWS4"+s.secret), date)
	kRegion := hmacSHA256(kDate, region)
	kService := hmacSHA256(kRegion, "s3")
	return hmacSHA256(kService, "aws4_request")
}

// Sign derives the scoped key and returns hex(HMAC-SHA256(key, stringToSign)).
func (s *DerivedKeySigner) Sign(date, region, stringToSign string) string {
	return hex.EncodeToString(hmacSHA256(s.DeriveKey(date, region), stringToSign))
}

func hmacSHA256(key []byte, data string) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(data))
	return mac.Sum(nil)
}
