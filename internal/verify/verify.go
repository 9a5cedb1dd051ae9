// Package verify re-checks uploaded objects against the configured size
// limit. The size range embedded in a signed policy is advisory for the
// client; chunked uploads in particular cannot always be pre-validated, so
// the limit is enforced again once the object physically exists.
package verify

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/FineUploader/go-s3-server/internal/storage"
)

// LinkTTL is the lifetime of the temporary read link issued after a
// successful check.
const LinkTTL = 15 * time.Minute

// Result of a post-upload check. TooLarge means the object violated the
// limit; Deleted reports whether the offending object was removed. TempLink
// is only set when the check passed.
type Result struct {
	TempLink     string
	ThumbnailURL string
	TooLarge     bool
	Deleted      bool
}

// Verifier holds the store handle and the process-wide size limit. Zero
// MaxSize disables the size check.
type Verifier struct {
	Store   storage.ObjectStore
	MaxSize int64
}

// Verify heads the object, deletes it if it exceeds the limit, and otherwise
// issues a temporary read link. Store failures propagate as errors and are
// never folded into an ok or too-large outcome; callers apply their own
// retry policy.
func (v *Verifier) Verify(ctx context.Context, bucket, key, filename string, previewCapable bool) (Result, error) {
	size, err := v.Store.HeadSize(ctx, bucket, key)
	if err != nil {
		return Result{}, err
	}

	if v.MaxSize > 0 && size > v.MaxSize {
		if err := v.Store.Delete(ctx, bucket, key); err != nil {
			return Result{TooLarge: true}, err
		}
		return Result{TooLarge: true, Deleted: true}, nil
	}

	link, err := v.Store.PresignGet(ctx, bucket, key, LinkTTL)
	if err != nil {
		return Result{}, err
	}

	res := Result{TempLink: link}
	if !previewCapable && IsViewableImage(filename) {
		// Browsers that cannot render a local preview get the read link
		// doubled as a thumbnail source.
		res.ThumbnailURL = link
	}
	return res, nil
}

var viewableImageExts = map[string]struct{}{
	".jpeg": {},
	".jpg":  {},
	".png":  {},
	".gif":  {},
	".bmp":  {},
}

// IsViewableImage reports whether the filename looks like an image a browser
// can display inline, by extension only.
func IsViewableImage(name string) bool {
	_, ok := viewableImageExts[strings.ToLower(filepath.Ext(name))]
	return ok
}
