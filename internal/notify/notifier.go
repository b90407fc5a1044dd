// Package notify delivers owner-facing notices about misbehaving clients.
// Notices are advisory: sends happen asynchronously and are rate limited per
// (org, event) so a fleet of broken devices produces one message, not one per
// check-in.
package notify

import (
	"fmt"
	"sync"
	"time"

	"otaflow/internal/logging"

	"golang.org/x/time/rate"
)

const (
	eventSemverIssue = "semver_issue"
	eventPluginIssue = "plugin_issue"
)

// Transport delivers one rendered notice
type Transport interface {
	Send(text string) error
}

// Notifier rate-limits and dispatches owner notices
type Notifier struct {
	transport Transport
	logger    *logging.Logger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	interval time.Duration
}

// NewNotifier creates a notifier; each (org, event) pair is allowed one
// notice per interval.
func NewNotifier(transport Transport, interval time.Duration) *Notifier {
	return &Notifier{
		transport: transport,
		logger:    logging.GetGlobalLogger(),
		limiters:  make(map[string]*rate.Limiter),
		interval:  interval,
	}
}

// SemverIssue notifies an app owner that a device reported a native version
// that does not follow semver.
func (n *Notifier) SemverIssue(orgID uint, appID, deviceID, versionBuild string) {
	text := fmt.Sprintf(
		"⚠️ <b>Semver issue</b>\n\n"+
			"<b>App:</b> %s\n"+
			"<b>Device:</b> %s\n"+
			"<b>Native version:</b> %s\n\n"+
			"The reported native version does not follow semver, updates cannot be compared.",
		escapeHTML(appID),
		escapeHTML(deviceID),
		escapeHTML(versionBuild),
	)
	n.dispatch(orgID, eventSemverIssue, text)
}

// PluginIssue notifies an app owner that a device runs an outdated plugin
func (n *Notifier) PluginIssue(orgID uint, appID, deviceID, pluginVersion string) {
	text := fmt.Sprintf(
		"⚠️ <b>Outdated plugin</b>\n\n"+
			"<b>App:</b> %s\n"+
			"<b>Device:</b> %s\n"+
			"<b>Plugin version:</b> %s\n\n"+
			"Devices on plugin versions before 5.0.0 should be upgraded.",
		escapeHTML(appID),
		escapeHTML(deviceID),
		escapeHTML(pluginVersion),
	)
	n.dispatch(orgID, eventPluginIssue, text)
}

func (n *Notifier) dispatch(orgID uint, event, text string) {
	// A nil transport means notices are disabled
	if n.transport == nil || !n.allow(orgID, event) {
		return
	}
	go func() {
		if err := n.transport.Send(text); err != nil {
			n.logger.Warn("Failed to send %s notice for org %d: %v", event, orgID, err)
		}
	}()
}

func (n *Notifier) allow(orgID uint, event string) bool {
	key := fmt.Sprintf("%d:%s", orgID, event)

	n.mu.Lock()
	limiter, ok := n.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(n.interval), 1)
		n.limiters[key] = limiter
	}
	n.mu.Unlock()

	return limiter.Allow()
}
