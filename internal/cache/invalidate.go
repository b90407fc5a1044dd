package cache

import "context"

// scanPageSize bounds how many hash fields one scan page may visit
const scanPageSize = 5000

// InvalidateAppVersions removes every cached per-version response under one
// app's hash, leaving the exist flag and device markers intact. Each scan
// page's deletes are flushed as one pipelined operation.
func InvalidateAppVersions(ctx context.Context, store Store, appID string) error {
	key := AppKey(appID)
	scanner := NewFieldScanner(store, key, "ver*", scanPageSize)

	for {
		fields, done, err := scanner.Next(ctx)
		if err != nil {
			return err
		}

		if len(fields) > 0 {
			pipe := store.Pipeline()
			pipe.HDel(key, fields...)
			if err := pipe.Exec(ctx); err != nil {
				return err
			}
		}

		if done {
			return nil
		}
	}
}

// InvalidateDevice removes a single device's override marker under the
// owning app's hash. Entries for other devices and the shared per-version
// responses are untouched.
func InvalidateDevice(ctx context.Context, store Store, appID, deviceID string) error {
	return store.HDel(ctx, AppKey(appID), DeviceField(deviceID))
}
