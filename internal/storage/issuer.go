// Package storage issues short-lived download URLs for bundle storage
// references. External URLs never reach this package; the resolver passes
// them through untouched.
package storage

import (
	"context"
	"time"
)

// Issuer turns a bundle's storage reference into a time-limited download URL
type Issuer interface {
	// SignedURL signs a GET for the object at path inside bucket. The
	// provider tag records which backing store holds the object; unknown
	// providers are an error, not a fallback.
	SignedURL(ctx context.Context, provider, bucket, path string, ttl time.Duration) (string, error)
}
