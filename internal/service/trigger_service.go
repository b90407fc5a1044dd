package service

import (
	"context"

	"otaflow/internal/cache"
	"otaflow/internal/logging"
)

// TriggerService applies metadata-change notifications to the response
// cache. Callers report what changed; the service decides what, if anything,
// to drop.
type TriggerService struct {
	store  cache.Store
	logger *logging.Logger
}

// NewTriggerService creates a new trigger service
func NewTriggerService(store cache.Store) *TriggerService {
	return &TriggerService{
		store:  store,
		logger: logging.GetGlobalLogger(),
	}
}

// OnBundleChange drops every cached per-version response for the app. Fired
// on bundle create, delete, storage migration and channel retargeting; the
// negative app cache and device markers stay.
func (s *TriggerService) OnBundleChange(ctx context.Context, appID string) error {
	if err := cache.InvalidateAppVersions(ctx, s.store, appID); err != nil {
		return err
	}
	s.logger.Info("Invalidated cached versions for %s", appID)
	return nil
}

// OnDeviceChange drops one device's override marker. Pure last-seen
// timestamp churn is ignored so routine check-ins do not thrash the cache.
func (s *TriggerService) OnDeviceChange(ctx context.Context, appID, deviceID string, changedColumns []string) error {
	if onlyTimestampChurn(changedColumns) {
		return nil
	}
	if err := cache.InvalidateDevice(ctx, s.store, appID, deviceID); err != nil {
		return err
	}
	s.logger.Info("Invalidated cached device state for %s/%s", appID, deviceID)
	return nil
}

func onlyTimestampChurn(columns []string) bool {
	if len(columns) == 0 {
		return false
	}
	for _, column := range columns {
		if column != "updated_at" && column != "last_seen" {
			return false
		}
	}
	return true
}
