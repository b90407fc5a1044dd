// Package stats records check-in outcome telemetry. Recording is
// fire-and-forget: a full buffer drops the event rather than slowing a
// request down, and the resolver never waits on a write.
package stats

import (
	"context"
	"time"

	"otaflow/internal/logging"
	"otaflow/internal/models"
	"otaflow/internal/repository"
)

// Event is one check-in outcome together with the device state to persist
type Event struct {
	Device   models.Device
	Action   string // outcome tag
	BundleID uint   // resolved bundle, zero when none
}

// Sink accepts outcome events without blocking the caller
type Sink interface {
	Record(event Event)
	Close()
}

type dbSink struct {
	devices repository.DeviceRepository
	stats   repository.StatsRepository
	logger  *logging.Logger

	events chan Event
	done   chan struct{}
}

// NewSink starts a background worker draining events into the metadata store
func NewSink(devices repository.DeviceRepository, statsRepo repository.StatsRepository, buffer int) Sink {
	s := &dbSink{
		devices: devices,
		stats:   statsRepo,
		logger:  logging.GetGlobalLogger(),
		events:  make(chan Event, buffer),
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

// Record enqueues an event; it never blocks and never fails the request
func (s *dbSink) Record(event Event) {
	select {
	case s.events <- event:
	default:
		s.logger.Warn("Stats buffer full, dropping event %s for %s/%s",
			event.Action, event.Device.AppID, event.Device.DeviceID)
	}
}

// Close drains pending events and stops the worker
func (s *dbSink) Close() {
	close(s.events)
	<-s.done
}

func (s *dbSink) run() {
	defer close(s.done)
	for event := range s.events {
		s.flush(event)
	}
}

func (s *dbSink) flush(event Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.devices.Upsert(ctx, &event.Device); err != nil {
		s.logger.Error("Failed to upsert device %s/%s: %v",
			event.Device.AppID, event.Device.DeviceID, err)
	}

	if err := s.stats.Create(ctx, &models.StatEvent{
		AppID:        event.Device.AppID,
		DeviceID:     event.Device.DeviceID,
		Action:       event.Action,
		Platform:     event.Device.Platform,
		VersionBuild: event.Device.VersionBuild,
		BundleID:     event.BundleID,
	}); err != nil {
		s.logger.Error("Failed to record stat %s for %s/%s: %v",
			event.Action, event.Device.AppID, event.Device.DeviceID, err)
	}
}
