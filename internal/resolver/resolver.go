// Package resolver implements the update-resolution engine: it turns one
// device check-in into a bundle assignment, consulting the metadata store,
// the signed-URL issuer and the plan check, and emitting exactly one stats
// event per request.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"otaflow/internal/logging"
	"otaflow/internal/models"
	"otaflow/internal/repository"
	"otaflow/internal/semver"
	"otaflow/internal/stats"
	"otaflow/internal/storage"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Plugin versions gating optional response fields.
const (
	pluginChecksumMin   = "4.4.0"
	pluginSessionKeyMin = "4.13.0"
	pluginSupportedMin  = "5.0.0"

	defaultPluginVersion = "2.3.3"
)

// Notifier delivers owner notices about misbehaving clients; sends must not
// block resolution.
type Notifier interface {
	SemverIssue(orgID uint, appID, deviceID, versionBuild string)
	PluginIssue(orgID uint, appID, deviceID, pluginVersion string)
}

// Sink accepts outcome telemetry without blocking
type Sink interface {
	Record(event stats.Event)
}

// Resolver computes update decisions
type Resolver struct {
	apps       repository.AppRepository
	orgs       repository.OrgRepository
	resolution repository.ResolutionRepository
	issuer     storage.Issuer
	sink       Sink
	notifier   Notifier
	signTTL    time.Duration
	logger     *logging.Logger

	// draw produces the single uniform rollout draw for a request;
	// injectable for tests
	draw func() float64
}

// New creates a resolver
func New(
	apps repository.AppRepository,
	orgs repository.OrgRepository,
	resolution repository.ResolutionRepository,
	issuer storage.Issuer,
	sink Sink,
	notifier Notifier,
	signTTL time.Duration,
) *Resolver {
	return &Resolver{
		apps:       apps,
		orgs:       orgs,
		resolution: resolution,
		issuer:     issuer,
		sink:       sink,
		notifier:   notifier,
		signTTL:    signTTL,
		logger:     logging.GetGlobalLogger(),
		draw:       rand.Float64,
	}
}

// Resolve computes the update decision for one check-in. Business conditions
// come back as Decision outcomes; a non-nil error means an infrastructure
// fault and no decision.
func (r *Resolver) Resolve(ctx context.Context, req *UpdateRequest) (*Decision, error) {
	requestID := uuid.NewString()[:8]

	coerced, err := semver.Coerce(req.VersionBuild)
	if err != nil {
		r.notifySemverIssue(ctx, req)
		r.logger.Info("[%s] semver issue %s %q", requestID, req.AppID, req.VersionBuild)
		return &Decision{
			Outcome: OutcomeSemverError,
			Message: fmt.Sprintf("Native version %q does not follow the semver convention", req.VersionBuild),
		}, nil
	}
	versionBuild := coerced.String()

	versionName := req.VersionName
	if versionName == "" || versionName == "builtin" {
		versionName = versionBuild
	}

	if req.AppID == "" || req.DeviceID == "" ||
		(req.Platform != "ios" && req.Platform != "android") {
		return &Decision{
			Outcome: OutcomeMissingInfo,
			Message: "Cannot find app_id, device_id or platform",
		}, nil
	}

	app, err := r.apps.GetByAppID(ctx, req.AppID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.logger.Info("[%s] app not found %s", requestID, req.AppID)
			return &Decision{
				Outcome: OutcomeAppNotFound,
				Message: "App not found",
			}, nil
		}
		return nil, err
	}

	pluginVersion := req.PluginVersion
	if pluginVersion == "" {
		pluginVersion = defaultPluginVersion
	}
	if !semver.AtLeast(pluginVersion, pluginSupportedMin) {
		r.notifier.PluginIssue(app.OrgID, req.AppID, req.DeviceID, pluginVersion)
	}

	device := models.Device{
		AppID:         req.AppID,
		DeviceID:      req.DeviceID,
		Platform:      req.Platform,
		PluginVersion: pluginVersion,
		OSVersion:     req.VersionOS,
		VersionBuild:  versionBuild,
		CustomID:      req.CustomID,
		IsEmulator:    req.IsEmulator,
		IsProd:        req.Prod(),
		UpdatedAt:     time.Now(),
	}

	data, err := r.resolution.Load(ctx, req.AppID, req.DeviceID)
	if err != nil {
		return nil, err
	}

	bundle, channel, overwritten := pickBundle(data)
	if bundle == nil {
		r.record(device, OutcomeNoChannel, 0)
		r.logger.Info("[%s] no channel or override %s/%s", requestID, req.AppID, req.DeviceID)
		return &Decision{
			Outcome: OutcomeNoChannel,
			Message: "no default channel or override",
		}, nil
	}
	device.BundleID = bundle.ID

	// Staged rollout applies only when resolution went through a channel,
	// never under a device-version override.
	if channel != nil {
		bundle = r.applyRollout(channel, bundle, versionName)
		device.BundleID = bundle.ID
	}

	allowed, err := r.orgs.UpdatesAllowed(ctx, app.OrgID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		r.record(device, OutcomeNeedPlanUpgrade, bundle.ID)
		r.logger.Info("[%s] plan exhausted %s", requestID, req.AppID)
		return &Decision{
			Outcome:     OutcomeNeedPlanUpgrade,
			Overwritten: overwritten,
			Message:     "Cannot update, upgrade plan to continue to update",
		}, nil
	}

	if bundle.BucketID == "" && bundle.StoragePath == "" && bundle.ExternalURL == "" {
		r.record(device, OutcomeNoBundle, bundle.ID)
		return &Decision{
			Outcome:     OutcomeNoBundle,
			Overwritten: overwritten,
			Message:     "Cannot get bundle",
		}, nil
	}

	url := bundle.ExternalURL
	if url == "" {
		url, err = r.issuer.SignedURL(ctx, bundle.StorageProvider, bundle.BucketID, bundlePath(req.AppID, bundle), r.signTTL)
		if err != nil {
			return nil, err
		}
	}

	if versionName == bundle.Name {
		r.record(device, OutcomeNoNew, bundle.ID)
		return &Decision{
			Outcome:     OutcomeNoNew,
			Overwritten: overwritten,
			Message:     "No new version available",
		}, nil
	}

	// Channel policy gates never apply under a device-version override
	if data.DeviceOverride == nil && channel != nil {
		gated, err := r.applyPolicy(channel, bundle, versionName, versionBuild, req.Platform, req.Prod(), req.IsEmulator)
		if err != nil {
			return nil, err
		}
		if gated != nil {
			gated.Overwritten = overwritten
			gated.Version = bundle.Name
			gated.Old = versionName
			r.record(device, gated.Outcome, bundle.ID)
			r.logger.Info("[%s] %s %s/%s", requestID, gated.Outcome, req.AppID, req.DeviceID)
			return gated, nil
		}
	}

	if !isHTTPURL(url) {
		r.record(device, OutcomeNoBundle, bundle.ID)
		r.logger.Warn("[%s] bad bundle url %q for %s", requestID, url, req.AppID)
		return &Decision{
			Outcome:     OutcomeNoBundle,
			Overwritten: overwritten,
			Message:     "Cannot get bundle",
		}, nil
	}

	decision := &Decision{
		Outcome:     OutcomeNewVersion,
		Overwritten: overwritten,
		Version:     bundle.Name,
		Old:         versionName,
		URL:         url,
	}
	if bundle.Checksum != "" && semver.AtLeast(pluginVersion, pluginChecksumMin) {
		checksum := bundle.Checksum
		decision.Checksum = &checksum
	}
	if bundle.SessionKey != "" && semver.AtLeast(pluginVersion, pluginSessionKeyMin) {
		sessionKey := bundle.SessionKey
		decision.SessionKey = &sessionKey
	}

	r.record(device, OutcomeNewVersion, bundle.ID)
	r.logger.Info("[%s] new version %s for %s/%s", requestID, bundle.Name, req.AppID, req.DeviceID)
	return decision, nil
}

// applyRollout substitutes the channel's secondary bundle for a share of
// eligible requests. At most one uniform draw happens per request.
func (r *Resolver) applyRollout(channel *models.Channel, primary *models.Bundle, versionName string) *models.Bundle {
	if !channel.EnableABTesting && !channel.EnableProgressiveDeploy {
		return primary
	}
	second := channel.SecondBundle
	if second == nil || second.Name == "unknown" {
		return primary
	}

	pct := channel.SecondaryVersionPercentage
	switch {
	case second.Name == versionName || primary.Name == "unknown" || pct == 1:
		return second
	case pct == 0:
		return primary
	case primary.Name != versionName && r.draw() < pct:
		return second
	}
	return primary
}

// applyPolicy runs the channel's gates in order and returns the first
// blocking decision, or nil when the update may proceed.
func (r *Resolver) applyPolicy(channel *models.Channel, bundle *models.Bundle, versionName, versionBuild, platform string, isProd, isEmulator bool) (*Decision, error) {
	if !channel.IOS && platform == "ios" {
		return &Decision{
			Outcome: OutcomeDisabledPlatformIOS,
			Message: "Cannot update, ios is disabled",
		}, nil
	}
	if !channel.Android && platform == "android" {
		return &Decision{
			Outcome: OutcomeDisabledPlatformAndroid,
			Message: "Cannot update, android is disabled",
		}, nil
	}

	target, err := semver.Coerce(bundle.Name)
	if err != nil {
		return nil, fmt.Errorf("bundle %q has a non-semver name: %w", bundle.Name, err)
	}
	declared, err := semver.Coerce(versionName)
	if err != nil {
		return nil, fmt.Errorf("cannot compare against declared version %q: %w", versionName, err)
	}

	switch channel.DisableAutoUpdate {
	case models.AutoUpdateMajor:
		if target.Major > declared.Major {
			return &Decision{
				Outcome: OutcomeDisableAutoUpdateToMajor,
				Message: "Cannot upgrade major version",
			}, nil
		}
	case models.AutoUpdateMinor:
		if target.Minor > declared.Minor {
			return &Decision{
				Outcome: OutcomeDisableAutoUpdateToMinor,
				Message: "Cannot upgrade minor version",
			}, nil
		}
	case models.AutoUpdatePatch:
		if !(target.Patch > declared.Patch &&
			target.Major == declared.Major &&
			target.Minor == declared.Minor) {
			return &Decision{
				Outcome: OutcomeDisableAutoUpdateToPatch,
				Message: "Cannot upgrade patch version",
			}, nil
		}
	case models.AutoUpdateVersionNumber:
		if bundle.MinUpdateVersion == "" {
			return &Decision{
				Outcome: OutcomeMisconfiguredChannel,
				Message: fmt.Sprintf("Channel %s is misconfigured", channel.Name),
			}, nil
		}
		belowMin, err := semver.LessThan(versionName, bundle.MinUpdateVersion)
		if err != nil {
			return nil, err
		}
		if belowMin {
			return &Decision{
				Outcome: OutcomeDisableAutoUpdateMetadata,
				Message: "Cannot upgrade version, min update version > current version",
			}, nil
		}
	}

	if channel.DisableAutoUpdateUnderNative {
		underNative, err := semver.LessThan(bundle.Name, versionBuild)
		if err != nil {
			return nil, err
		}
		if underNative {
			return &Decision{
				Outcome: OutcomeDisableAutoUpdateUnderNative,
				Message: "Cannot revert under native version",
			}, nil
		}
	}

	if !channel.AllowDev && !isProd {
		return &Decision{
			Outcome: OutcomeDisableDevBuild,
			Message: "Cannot update, dev build is disabled",
		}, nil
	}
	if !channel.AllowEmulator && isEmulator {
		return &Decision{
			Outcome: OutcomeDisableEmulator,
			Message: "Cannot update, emulator is disabled",
		}, nil
	}

	return nil, nil
}

func (r *Resolver) record(device models.Device, outcome Outcome, bundleID uint) {
	r.sink.Record(stats.Event{
		Device:   device,
		Action:   string(outcome),
		BundleID: bundleID,
	})
}

// notifySemverIssue looks up the app owner best-effort; the check-in is
// rejected either way.
func (r *Resolver) notifySemverIssue(ctx context.Context, req *UpdateRequest) {
	if req.AppID == "" {
		return
	}
	app, err := r.apps.GetByAppID(ctx, req.AppID)
	if err != nil {
		return
	}
	r.notifier.SemverIssue(app.OrgID, req.AppID, req.DeviceID, req.VersionBuild)
}

func bundlePath(appID string, bundle *models.Bundle) string {
	if bundle.StoragePath != "" {
		return bundle.StoragePath
	}
	return fmt.Sprintf("apps/%s/versions/%s", appID, bundle.Name)
}

func isHTTPURL(url string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}
