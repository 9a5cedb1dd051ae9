// Package auth orchestrates one authorization request: decode the request
// shape, validate it against the expected destination and run the matching
// signature scheme. Hostile or malformed input is a normal rejected outcome,
// never an error.
package auth

import (
	"encoding/json"

	v1 "github.com/FineUploader/go-s3-server/api/v1"
	"github.com/FineUploader/go-s3-server/internal/policy"
	"github.com/FineUploader/go-s3-server/internal/restsig"
	"github.com/FineUploader/go-s3-server/internal/signer"
)

// Kind is the request shape: a declarative policy or a raw REST header block.
type Kind int

const (
	KindPolicy Kind = iota
	KindRestHeaders
)

func (k Kind) String() string {
	if k == KindRestHeaders {
		return "rest"
	}
	return "policy"
}

// Request is the signing request decoded once at the boundary into an
// explicit tagged form. Headers is set for KindRestHeaders, Policy for
// KindPolicy.
type Request struct {
	Kind    Kind
	Scheme  v1.Scheme
	Headers string
	Policy  *policy.Document
}

// ParseRequest decodes a raw signing body. Presence of a headers field
// selects the REST shape; anything else is treated as a policy document.
func ParseRequest(body []byte, scheme v1.Scheme) (Request, error) {
	var in v1.SignatureRequest
	if err := json.Unmarshal(body, &in); err != nil {
		return Request{}, err
	}
	if in.Headers != "" {
		return Request{Kind: KindRestHeaders, Scheme: scheme, Headers: in.Headers}, nil
	}
	return Request{
		Kind:   KindPolicy,
		Scheme: scheme,
		Policy: &policy.Document{Expiration: in.Expiration, Conditions: in.Conditions},
	}, nil
}

// Result is the terminal outcome of an authorization request. Policy is the
// base64 policy for policy-shaped requests. A rejected request carries only
// Invalid; partial signatures are never produced.
type Result struct {
	Signature string
	Policy    string
	Invalid   bool
}

// Authorizer holds the immutable per-process expectations and signers. Safe
// for concurrent use across in-flight requests.
type Authorizer struct {
	Policies policy.Validator
	Host     string
	Legacy   *signer.StringSigner
	V4       *signer.DerivedKeySigner
}

func (a *Authorizer) Authorize(req Request) Result {
	if req.Kind == KindRestHeaders {
		return a.signRestHeaders(req)
	}
	return a.signPolicy(req)
}

func (a *Authorizer) signRestHeaders(req Request) Result {
	if req.Scheme == v1.SchemeV4 {
		if !restsig.HasHost(req.Headers, a.Host) {
			return rejected()
		}
		sts, ok := restsig.Parse(req.Headers)
		if !ok {
			return rejected()
		}
		return Result{Signature: a.V4.Sign(sts.Date, sts.Region, sts.Rehash())}
	}

	if !restsig.ContainsBucket(req.Headers, a.Policies.Bucket) {
		return rejected()
	}
	return Result{Signature: a.Legacy.Sign(req.Headers)}
}

func (a *Authorizer) signPolicy(req Request) Result {
	conds := policy.Scan(req.Policy)
	if !a.Policies.Check(conds) {
		return rejected()
	}

	encoded, err := req.Policy.Encode()
	if err != nil {
		return rejected()
	}

	if req.Scheme == v1.SchemeV4 {
		scope, ok := policy.ParseCredentialScope(conds.Credential)
		if !ok {
			return rejected()
		}
		return Result{Policy: encoded, Signature: a.V4.Sign(scope.Date, scope.Region, encoded)}
	}
	return Result{Policy: encoded, Signature: a.Legacy.Sign(encoded)}
}

func rejected() Result {
	return Result{Invalid: true}
}
