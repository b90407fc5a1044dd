package resolver

import "net/http"

// Outcome is the closed taxonomy of resolvable check-in results. Business
// conditions are outcomes, not errors; only infrastructure faults surface as
// Go errors.
type Outcome string

const (
	OutcomeAppNotFound                  Outcome = "app_not_found"
	OutcomeNoChannel                    Outcome = "no_channel"
	OutcomeSemverError                  Outcome = "semver_error"
	OutcomeMissingInfo                  Outcome = "missing_info"
	OutcomeNeedPlanUpgrade              Outcome = "need_plan_upgrade"
	OutcomeNoBundle                     Outcome = "no_bundle"
	OutcomeNoNew                        Outcome = "no_new"
	OutcomeDisabledPlatformIOS          Outcome = "disabled_platform_ios"
	OutcomeDisabledPlatformAndroid      Outcome = "disabled_platform_android"
	OutcomeDisableAutoUpdateToMajor     Outcome = "disable_auto_update_to_major"
	OutcomeDisableAutoUpdateToMinor     Outcome = "disable_auto_update_to_minor"
	OutcomeDisableAutoUpdateToPatch     Outcome = "disable_auto_update_to_patch"
	OutcomeDisableAutoUpdateMetadata    Outcome = "disable_auto_update_to_metadata"
	OutcomeMisconfiguredChannel         Outcome = "misconfigured_channel"
	OutcomeDisableAutoUpdateUnderNative Outcome = "disable_auto_update_under_native"
	OutcomeDisableDevBuild              Outcome = "disable_dev_build"
	OutcomeDisableEmulator              Outcome = "disable_emulator"
	OutcomeNewVersion                   Outcome = "new_version"
)

// Status classes carried in the X-Update-Status response header. The cache
// layer keys its write decisions on these, so every outcome maps to exactly
// one class.
const (
	StatusAppNotFound = "app_not_found"
	StatusNoNew       = "no_new"
	StatusNewVersion  = "new_version"
	StatusFail        = "fail"
)

// Status returns the outcome's header class
func (o Outcome) Status() string {
	switch o {
	case OutcomeAppNotFound:
		return StatusAppNotFound
	case OutcomeNoNew:
		return StatusNoNew
	case OutcomeNewVersion:
		return StatusNewVersion
	default:
		return StatusFail
	}
}

// HTTPStatus maps an outcome to its response code. Malformed input is a
// 400-class condition; every other resolved outcome is a 200, including
// policy failures.
func (o Outcome) HTTPStatus() int {
	switch o {
	case OutcomeSemverError, OutcomeMissingInfo:
		return http.StatusBadRequest
	default:
		return http.StatusOK
	}
}
