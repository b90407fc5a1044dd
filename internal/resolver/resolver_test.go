package resolver

import (
	"context"
	"testing"
	"time"

	"otaflow/internal/logging"
	"otaflow/internal/models"
	"otaflow/internal/repository"
	"otaflow/internal/stats"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// Mock repositories for testing

type mockApps struct {
	apps map[string]*models.App
}

func (m *mockApps) GetByAppID(_ context.Context, appID string) (*models.App, error) {
	if app, ok := m.apps[appID]; ok {
		return app, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type mockOrgs struct {
	allowed bool
}

func (m *mockOrgs) UpdatesAllowed(_ context.Context, _ uint) (bool, error) {
	return m.allowed, nil
}

type mockResolution struct {
	data *repository.ResolutionData
}

func (m *mockResolution) Load(_ context.Context, _, _ string) (*repository.ResolutionData, error) {
	return m.data, nil
}

type mockIssuer struct {
	url   string
	calls int
}

func (m *mockIssuer) SignedURL(_ context.Context, _, _, _ string, _ time.Duration) (string, error) {
	m.calls++
	return m.url, nil
}

type mockSink struct {
	events []stats.Event
}

func (m *mockSink) Record(event stats.Event) {
	m.events = append(m.events, event)
}

type mockNotifier struct {
	semverCalls int
	pluginCalls int
}

func (m *mockNotifier) SemverIssue(_ uint, _, _, _ string) { m.semverCalls++ }
func (m *mockNotifier) PluginIssue(_ uint, _, _, _ string) { m.pluginCalls++ }

type fixture struct {
	resolver   *Resolver
	resolution *mockResolution
	orgs       *mockOrgs
	issuer     *mockIssuer
	sink       *mockSink
	notifier   *mockNotifier
}

func newFixture(t *testing.T, data *repository.ResolutionData) *fixture {
	t.Helper()
	require.NoError(t, logging.InitLogger(&logging.Config{
		Level:   "info",
		File:    "test.log", // Dummy file
		MaxSize: 1,
	}))

	f := &fixture{
		resolution: &mockResolution{data: data},
		orgs:       &mockOrgs{allowed: true},
		issuer:     &mockIssuer{url: "https://cdn.example.com/bundle.zip"},
		sink:       &mockSink{},
		notifier:   &mockNotifier{},
	}
	apps := &mockApps{apps: map[string]*models.App{
		"com.demo.app": {ID: 1, AppID: "com.demo.app", OrgID: 7},
	}}
	f.resolver = New(apps, f.orgs, f.resolution, f.issuer, f.sink, f.notifier, 2*time.Minute)
	f.resolver.draw = func() float64 { return 0.99 } // deterministic by default
	return f
}

func defaultChannel(bundleName string) *models.Channel {
	return &models.Channel{
		ID:                1,
		AppID:             "com.demo.app",
		Name:              "production",
		Public:            true,
		Bundle:            models.Bundle{ID: 10, Name: bundleName, BucketID: "bundles", StoragePath: "apps/com.demo.app/" + bundleName},
		IOS:               true,
		Android:           true,
		DisableAutoUpdate: models.AutoUpdateMajor,
		AllowDev:          true,
		AllowEmulator:     true,
	}
}

func validRequest() *UpdateRequest {
	return &UpdateRequest{
		AppID:         "com.demo.app",
		DeviceID:      "device-1",
		VersionName:   "1.0.0",
		VersionBuild:  "1.0.0",
		Platform:      "ios",
		PluginVersion: "6.2.0",
	}
}

func TestResolve_NewVersion(t *testing.T) {
	channel := defaultChannel("1.2.0")
	channel.Bundle.Checksum = "abc123"
	channel.Bundle.SessionKey = "key:iv"
	f := newFixture(t, &repository.ResolutionData{DefaultChannel: channel})

	decision, err := f.resolver.Resolve(context.Background(), validRequest())

	require.NoError(t, err)
	assert.Equal(t, OutcomeNewVersion, decision.Outcome)
	assert.False(t, decision.Overwritten)
	assert.Equal(t, "1.2.0", decision.Version)
	assert.Equal(t, "1.0.0", decision.Old)
	assert.Equal(t, "https://cdn.example.com/bundle.zip", decision.URL)
	require.NotNil(t, decision.Checksum)
	assert.Equal(t, "abc123", *decision.Checksum)
	require.NotNil(t, decision.SessionKey)
	assert.Equal(t, "key:iv", *decision.SessionKey)

	require.Len(t, f.sink.events, 1)
	assert.Equal(t, "new_version", f.sink.events[0].Action)
	assert.Equal(t, uint(10), f.sink.events[0].BundleID)
	assert.Equal(t, 0, f.notifier.pluginCalls)
}

func TestResolve_NoNewWhenDeclaredMatchesBundle(t *testing.T) {
	// Equality wins over every policy gate, even on a channel that would
	// otherwise block the platform.
	channel := defaultChannel("1.2.0")
	channel.IOS = false
	f := newFixture(t, &repository.ResolutionData{DefaultChannel: channel})

	req := validRequest()
	req.VersionName = "1.2.0"
	decision, err := f.resolver.Resolve(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, OutcomeNoNew, decision.Outcome)
	require.Len(t, f.sink.events, 1)
	assert.Equal(t, "no_new", f.sink.events[0].Action)
}

func TestResolve_AppNotFound(t *testing.T) {
	f := newFixture(t, &repository.ResolutionData{})

	req := validRequest()
	req.AppID = "com.unknown.app"
	decision, err := f.resolver.Resolve(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, OutcomeAppNotFound, decision.Outcome)
	assert.Empty(t, f.sink.events, "unregistered apps must not produce telemetry")
}

func TestResolve_SemverError(t *testing.T) {
	f := newFixture(t, &repository.ResolutionData{DefaultChannel: defaultChannel("1.2.0")})

	req := validRequest()
	req.VersionBuild = "not-a-version"
	decision, err := f.resolver.Resolve(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, OutcomeSemverError, decision.Outcome)
	assert.Equal(t, 1, f.notifier.semverCalls)
	assert.Empty(t, f.sink.events)
}

func TestResolve_MissingInfo(t *testing.T) {
	f := newFixture(t, &repository.ResolutionData{DefaultChannel: defaultChannel("1.2.0")})

	req := validRequest()
	req.Platform = "windows"
	decision, err := f.resolver.Resolve(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, OutcomeMissingInfo, decision.Outcome)
}

func TestResolve_VersionNameDefaultsFromBuild(t *testing.T) {
	// A fresh install reports "builtin"; the native build number stands in
	// for the bundle version, so a bundle with the same name is no_new.
	f := newFixture(t, &repository.ResolutionData{DefaultChannel: defaultChannel("1.0.0")})

	req := validRequest()
	req.VersionName = "builtin"
	decision, err := f.resolver.Resolve(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, OutcomeNoNew, decision.Outcome)
}

func TestResolve_NoChannel(t *testing.T) {
	f := newFixture(t, &repository.ResolutionData{})

	decision, err := f.resolver.Resolve(context.Background(), validRequest())

	require.NoError(t, err)
	assert.Equal(t, OutcomeNoChannel, decision.Outcome)
	require.Len(t, f.sink.events, 1)
	assert.Equal(t, "no_channel", f.sink.events[0].Action)
}

func TestResolve_NeedPlanUpgrade(t *testing.T) {
	f := newFixture(t, &repository.ResolutionData{DefaultChannel: defaultChannel("1.2.0")})
	f.orgs.allowed = false

	decision, err := f.resolver.Resolve(context.Background(), validRequest())

	require.NoError(t, err)
	assert.Equal(t, OutcomeNeedPlanUpgrade, decision.Outcome)
	assert.Equal(t, 0, f.issuer.calls, "no URL should be signed for a blocked plan")
}

func TestResolve_NoBundleWithoutStorage(t *testing.T) {
	channel := defaultChannel("1.2.0")
	channel.Bundle.BucketID = ""
	channel.Bundle.StoragePath = ""
	f := newFixture(t, &repository.ResolutionData{DefaultChannel: channel})

	decision, err := f.resolver.Resolve(context.Background(), validRequest())

	require.NoError(t, err)
	assert.Equal(t, OutcomeNoBundle, decision.Outcome)
}

func TestResolve_ExternalURLMustBeHTTP(t *testing.T) {
	channel := defaultChannel("1.2.0")
	channel.Bundle.ExternalURL = "ftp://evil.example.com/bundle.zip"
	f := newFixture(t, &repository.ResolutionData{DefaultChannel: channel})

	decision, err := f.resolver.Resolve(context.Background(), validRequest())

	require.NoError(t, err)
	assert.Equal(t, OutcomeNoBundle, decision.Outcome)
	assert.Equal(t, 0, f.issuer.calls)
}

func TestResolve_DeviceOverrideSkipsPolicyGates(t *testing.T) {
	// A direct bundle pin bypasses every channel gate, including the major
	// jump the default channel would block.
	channel := defaultChannel("1.2.0")
	channel.IOS = false
	f := newFixture(t, &repository.ResolutionData{
		DefaultChannel: channel,
		DeviceOverride: &models.DeviceVersionOverride{
			AppID:    "com.demo.app",
			DeviceID: "device-1",
			Bundle:   models.Bundle{ID: 42, Name: "3.0.0", BucketID: "bundles", StoragePath: "apps/com.demo.app/3.0.0"},
		},
	})

	decision, err := f.resolver.Resolve(context.Background(), validRequest())

	require.NoError(t, err)
	assert.Equal(t, OutcomeNewVersion, decision.Outcome)
	assert.True(t, decision.Overwritten)
	assert.Equal(t, "3.0.0", decision.Version)
	require.Len(t, f.sink.events, 1)
	assert.Equal(t, uint(42), f.sink.events[0].BundleID)
}

func TestResolve_ChannelOverrideIsOverwritten(t *testing.T) {
	beta := defaultChannel("2.0.0")
	beta.Name = "beta"
	beta.Public = false
	beta.DisableAutoUpdate = models.AutoUpdateNone
	f := newFixture(t, &repository.ResolutionData{
		DefaultChannel: defaultChannel("1.2.0"),
		ChannelOverride: &models.ChannelDeviceOverride{
			AppID:    "com.demo.app",
			DeviceID: "device-1",
			Channel:  *beta,
		},
	})

	decision, err := f.resolver.Resolve(context.Background(), validRequest())

	require.NoError(t, err)
	assert.Equal(t, OutcomeNewVersion, decision.Outcome)
	assert.True(t, decision.Overwritten)
	assert.Equal(t, "2.0.0", decision.Version)
}

func TestResolve_MajorGate(t *testing.T) {
	channel := defaultChannel("2.0.0")
	f := newFixture(t, &repository.ResolutionData{DefaultChannel: channel})

	req := validRequest()
	req.VersionName = "0.9.0"
	decision, err := f.resolver.Resolve(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, OutcomeDisableAutoUpdateToMajor, decision.Outcome)
	assert.Equal(t, "2.0.0", decision.Version)
	assert.Equal(t, "0.9.0", decision.Old)
}

func TestResolve_MinorGate(t *testing.T) {
	channel := defaultChannel("1.3.0")
	channel.DisableAutoUpdate = models.AutoUpdateMinor
	f := newFixture(t, &repository.ResolutionData{DefaultChannel: channel})

	decision, err := f.resolver.Resolve(context.Background(), validRequest())

	require.NoError(t, err)
	assert.Equal(t, OutcomeDisableAutoUpdateToMinor, decision.Outcome)
}

func TestResolve_PatchGateAllowsOnlyPatchBumps(t *testing.T) {
	channel := defaultChannel("1.0.3")
	channel.DisableAutoUpdate = models.AutoUpdatePatch
	f := newFixture(t, &repository.ResolutionData{DefaultChannel: channel})

	decision, err := f.resolver.Resolve(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, OutcomeNewVersion, decision.Outcome)

	// A minor bump on the same channel policy is blocked
	channel.Bundle.Name = "1.1.0"
	decision, err = f.resolver.Resolve(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, OutcomeDisableAutoUpdateToPatch, decision.Outcome)
}

func TestResolve_VersionNumberGate(t *testing.T) {
	channel := defaultChannel("2.0.0")
	channel.DisableAutoUpdate = models.AutoUpdateVersionNumber
	channel.Bundle.MinUpdateVersion = "1.5.0"
	f := newFixture(t, &repository.ResolutionData{DefaultChannel: channel})

	decision, err := f.resolver.Resolve(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, OutcomeDisableAutoUpdateMetadata, decision.Outcome)

	// Without the metadata the channel is unusable, not silently open
	channel.Bundle.MinUpdateVersion = ""
	decision, err = f.resolver.Resolve(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, OutcomeMisconfiguredChannel, decision.Outcome)
}

func TestResolve_UnderNativeGate(t *testing.T) {
	channel := defaultChannel("1.2.0")
	channel.DisableAutoUpdate = models.AutoUpdateNone
	channel.DisableAutoUpdateUnderNative = true
	f := newFixture(t, &repository.ResolutionData{DefaultChannel: channel})

	req := validRequest()
	req.VersionBuild = "2.0.0"
	req.VersionName = "2.1.0"
	decision, err := f.resolver.Resolve(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, OutcomeDisableAutoUpdateUnderNative, decision.Outcome)
}

func TestResolve_DevAndEmulatorGates(t *testing.T) {
	channel := defaultChannel("1.2.0")
	channel.AllowDev = false
	f := newFixture(t, &repository.ResolutionData{DefaultChannel: channel})

	dev := false
	req := validRequest()
	req.IsProd = &dev
	decision, err := f.resolver.Resolve(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDisableDevBuild, decision.Outcome)

	channel.AllowDev = true
	channel.AllowEmulator = false
	req = validRequest()
	req.IsEmulator = true
	decision, err = f.resolver.Resolve(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDisableEmulator, decision.Outcome)
}

func TestResolve_RolloutPercentages(t *testing.T) {
	channel := defaultChannel("1.2.0")
	channel.EnableProgressiveDeploy = true
	second := models.Bundle{ID: 11, Name: "1.3.0", BucketID: "bundles", StoragePath: "apps/com.demo.app/1.3.0"}
	channel.SecondBundle = &second

	f := newFixture(t, &repository.ResolutionData{DefaultChannel: channel})

	// pct=0 always keeps the primary
	channel.SecondaryVersionPercentage = 0
	decision, err := f.resolver.Resolve(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, "1.2.0", decision.Version)

	// pct=1 always forces the secondary
	channel.SecondaryVersionPercentage = 1
	decision, err = f.resolver.Resolve(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, "1.3.0", decision.Version)

	// In between, the draw decides
	channel.SecondaryVersionPercentage = 0.5
	f.resolver.draw = func() float64 { return 0.3 }
	decision, err = f.resolver.Resolve(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, "1.3.0", decision.Version)

	f.resolver.draw = func() float64 { return 0.7 }
	decision, err = f.resolver.Resolve(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, "1.2.0", decision.Version)
}

func TestResolve_RolloutSticksToSecondary(t *testing.T) {
	// A device already on the secondary version keeps it regardless of the
	// draw, so a partial rollout never flaps.
	channel := defaultChannel("1.2.0")
	channel.EnableABTesting = true
	channel.SecondBundle = &models.Bundle{ID: 11, Name: "1.3.0", BucketID: "bundles", StoragePath: "apps/com.demo.app/1.3.0"}
	channel.SecondaryVersionPercentage = 0.1
	f := newFixture(t, &repository.ResolutionData{DefaultChannel: channel})

	req := validRequest()
	req.VersionName = "1.3.0"
	decision, err := f.resolver.Resolve(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, OutcomeNoNew, decision.Outcome)
	assert.Equal(t, uint(11), f.sink.events[0].BundleID)
}

func TestResolve_RolloutIgnoresUnknownSecondary(t *testing.T) {
	// A secondary bundle still named "unknown" is not a shippable version;
	// the rollout must keep serving the primary even at full percentage.
	channel := defaultChannel("1.2.0")
	channel.EnableProgressiveDeploy = true
	channel.SecondBundle = &models.Bundle{ID: 11, Name: "unknown", BucketID: "bundles", StoragePath: "apps/com.demo.app/unknown"}
	channel.SecondaryVersionPercentage = 1
	f := newFixture(t, &repository.ResolutionData{DefaultChannel: channel})

	decision, err := f.resolver.Resolve(context.Background(), validRequest())

	require.NoError(t, err)
	assert.Equal(t, OutcomeNewVersion, decision.Outcome)
	assert.Equal(t, "1.2.0", decision.Version)
	assert.Equal(t, uint(10), f.sink.events[0].BundleID)
}

func TestResolve_PluginVersionGatesResponseFields(t *testing.T) {
	channel := defaultChannel("1.2.0")
	channel.Bundle.Checksum = "abc123"
	channel.Bundle.SessionKey = "key:iv"
	f := newFixture(t, &repository.ResolutionData{DefaultChannel: channel})

	// Old plugin: no checksum, no session key, and an owner notice
	req := validRequest()
	req.PluginVersion = "4.3.0"
	decision, err := f.resolver.Resolve(context.Background(), req)
	require.NoError(t, err)
	assert.Nil(t, decision.Checksum)
	assert.Nil(t, decision.SessionKey)
	assert.Equal(t, 1, f.notifier.pluginCalls)

	// Checksum-capable but pre-encryption plugin
	req = validRequest()
	req.PluginVersion = "4.6.0"
	decision, err = f.resolver.Resolve(context.Background(), req)
	require.NoError(t, err)
	assert.NotNil(t, decision.Checksum)
	assert.Nil(t, decision.SessionKey)

	// A capable plugin against a bundle without the columns set gets
	// neither field rather than empty strings
	channel.Bundle.Checksum = ""
	channel.Bundle.SessionKey = ""
	decision, err = f.resolver.Resolve(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Nil(t, decision.Checksum)
	assert.Nil(t, decision.SessionKey)
}

func TestDecision_Response(t *testing.T) {
	checksum := "abc123"
	d := &Decision{Outcome: OutcomeNewVersion, Version: "1.2.0", URL: "https://cdn.example.com/b.zip", Checksum: &checksum}
	body := d.Response()
	assert.Equal(t, "1.2.0", body.Version)
	assert.Empty(t, body.Error)

	d = &Decision{Outcome: OutcomeNoNew, Message: "ignored"}
	assert.Equal(t, "No new version available", d.Response().Message)

	d = &Decision{Outcome: OutcomeDisableAutoUpdateToMajor, Message: "Cannot upgrade major version", Version: "2.0.0", Old: "1.0.0"}
	body = d.Response()
	assert.Equal(t, "disable_auto_update_to_major", body.Error)
	assert.Equal(t, "2.0.0", body.Version)
	assert.Equal(t, "1.0.0", body.Old)
}
