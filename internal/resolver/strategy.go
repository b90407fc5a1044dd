package resolver

import (
	"otaflow/internal/models"
	"otaflow/internal/repository"
)

// bundleSource is one step in the override precedence chain. It returns the
// candidate bundle, the channel whose policy applies (nil for direct bundle
// pins) and false when the source does not apply to this request.
type bundleSource struct {
	name string
	pick func(data *repository.ResolutionData) (*models.Bundle, *models.Channel, bool)
}

// bundleSources is the precedence order: device-version override, then
// channel-device override, then the app's default public channel. First
// match wins.
var bundleSources = []bundleSource{
	{
		name: "device_version_override",
		pick: func(data *repository.ResolutionData) (*models.Bundle, *models.Channel, bool) {
			if data.DeviceOverride == nil {
				return nil, nil, false
			}
			return &data.DeviceOverride.Bundle, nil, true
		},
	},
	{
		name: "channel_device_override",
		pick: func(data *repository.ResolutionData) (*models.Bundle, *models.Channel, bool) {
			if data.ChannelOverride == nil {
				return nil, nil, false
			}
			channel := &data.ChannelOverride.Channel
			return &channel.Bundle, channel, true
		},
	},
	{
		name: "default_channel",
		pick: func(data *repository.ResolutionData) (*models.Bundle, *models.Channel, bool) {
			if data.DefaultChannel == nil {
				return nil, nil, false
			}
			return &data.DefaultChannel.Bundle, data.DefaultChannel, true
		},
	},
}

// pickBundle resolves the authoritative bundle for a request. overwritten is
// true for any source other than the default channel.
func pickBundle(data *repository.ResolutionData) (bundle *models.Bundle, channel *models.Channel, overwritten bool) {
	for _, source := range bundleSources {
		if b, ch, ok := source.pick(data); ok {
			return b, ch, source.name != "default_channel"
		}
	}
	return nil, nil, false
}
