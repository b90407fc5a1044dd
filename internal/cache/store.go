// Package cache provides the hash-keyed store the update response cache and
// its invalidation triggers run against. One hash per app holds three field
// families: "exist" (negative app cache), "device_{id}" (per-device override
// marker) and "ver_{name}" (shared serialized responses per declared
// version).
package cache

import "context"

// Field and value conventions for the per-app hash.
const (
	FieldExist = "exist"

	DeviceStandard    = "standard"
	DeviceOverwritten = "overwritten"

	// NoNewSentinel marks a cached "no update available" response
	NoNewSentinel = "NO_NEW"
)

// AppKey returns the hash key for one app's cache entries
func AppKey(appID string) string {
	return "app_" + appID
}

// DeviceField returns the hash field marking a device's override state
func DeviceField(deviceID string) string {
	return "device_" + deviceID
}

// VersionField returns the hash field caching the response for one declared
// version
func VersionField(versionName string) string {
	return "ver_" + versionName
}

// Pipe batches hash mutations into one round trip
type Pipe interface {
	HSet(key, field, value string)
	HDel(key string, fields ...string)
	// Exec flushes the batch; a batch with no queued commands is a no-op
	Exec(ctx context.Context) error
}

// Store is the cache store wire contract: hash-field get-many, set, delete,
// cursor-based scan-by-pattern and a pipelined execute primitive. Injected
// into the cache layer and the invalidation triggers; no globals.
type Store interface {
	// HMGet fetches several fields in one read; absent fields are nil
	HMGet(ctx context.Context, key string, fields ...string) ([]*string, error)
	HSet(ctx context.Context, key, field, value string) error
	HDel(ctx context.Context, key string, fields ...string) error
	// HScan walks the hash's fields matching pattern, count entries at a
	// time, returning matched field names and the next cursor. A returned
	// cursor of 0 means the scan wrapped around.
	HScan(ctx context.Context, key string, cursor uint64, pattern string, count int64) ([]string, uint64, error)
	Pipeline() Pipe
	Ping(ctx context.Context) error
	Close() error
}
