package resolver

// UpdateRequest is a device check-in as received on the wire
type UpdateRequest struct {
	AppID         string `json:"app_id"`
	DeviceID      string `json:"device_id"`
	VersionName   string `json:"version_name"`
	VersionBuild  string `json:"version_build"`
	VersionOS     string `json:"version_os"`
	Platform      string `json:"platform"`
	PluginVersion string `json:"plugin_version"`
	CustomID      string `json:"custom_id"`
	IsEmulator    bool   `json:"is_emulator"`
	IsProd        *bool  `json:"is_prod"` // defaults to true when absent
}

// Prod returns the is_prod flag with its wire default applied
func (r *UpdateRequest) Prod() bool {
	return r.IsProd == nil || *r.IsProd
}

// Decision is the resolver's verdict for one check-in
type Decision struct {
	Outcome Outcome
	Message string

	// Overwritten is true when resolution did not go through the app's
	// default public channel. The cache layer gates the shared per-version
	// cache on it.
	Overwritten bool

	// Version and Old are the resolved bundle name and the device's declared
	// version, set whenever a bundle was resolved.
	Version string
	Old     string

	// Download fields, only set for new_version
	URL        string
	Checksum   *string
	SessionKey *string
}

// UpdateResponse is the client-facing JSON body for a decision
type UpdateResponse struct {
	Version    string  `json:"version,omitempty"`
	URL        string  `json:"url,omitempty"`
	Checksum   *string `json:"checksum,omitempty"`
	SessionKey *string `json:"session_key,omitempty"`
	Message    string  `json:"message,omitempty"`
	Error      string  `json:"error,omitempty"`
	Old        string  `json:"old,omitempty"`
}

// Response renders the decision as its wire body
func (d *Decision) Response() UpdateResponse {
	switch d.Outcome {
	case OutcomeNewVersion:
		return UpdateResponse{
			Version:    d.Version,
			URL:        d.URL,
			Checksum:   d.Checksum,
			SessionKey: d.SessionKey,
		}
	case OutcomeNoNew:
		return UpdateResponse{Message: "No new version available"}
	default:
		return UpdateResponse{
			Message: d.Message,
			Error:   string(d.Outcome),
			Version: d.Version,
			Old:     d.Old,
		}
	}
}
