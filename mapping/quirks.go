package mapping

import (
	"strings"

	"github.com/Alia5/padmap/rawinput"
)

// minQuirkAxes is the axis count below which a device cannot host separate
// trigger or d-pad axes.
const minQuirkAxes = 5

type vendorQuirk struct {
	match  []string
	quirks Quirks
}

type hostQuirk struct {
	vendor      []string
	product     string
	environment string
	platform    string
	quirks      Quirks
}

var sony = []string{"SONY", "054C"}

var vendorQuirks = []vendorQuirk{
	{match: sony, quirks: Quirks{AxisDpad: true, RudderShoulders: true}},
}

var hostQuirks = []hostQuirk{
	// DualSense through Firefox on Windows folds the d-pad into one axis.
	{vendor: sony, product: "0CE6", environment: "FIREFOX", platform: "WIN32", quirks: Quirks{SingleAxisDpadHack: true}},
}

// DetectQuirks derives the quirk flags for a device from its identifier,
// its axis count and the host it is reported by.
func DetectQuirks(deviceID string, axisCount int, host rawinput.Host) Quirks {
	var q Quirks
	if axisCount < minQuirkAxes {
		return q
	}
	id := strings.ToUpper(deviceID)
	for _, vq := range vendorQuirks {
		if containsAny(id, vq.match) {
			q = merge(q, vq.quirks)
		}
	}
	env := strings.ToUpper(host.Environment)
	platform := strings.ToUpper(host.Platform)
	for _, hq := range hostQuirks {
		if containsAny(id, hq.vendor) &&
			strings.Contains(id, hq.product) &&
			strings.Contains(env, hq.environment) &&
			strings.Contains(platform, hq.platform) {
			q = merge(q, hq.quirks)
		}
	}
	return q
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func merge(a, b Quirks) Quirks {
	return Quirks{
		AxisDpad:           a.AxisDpad || b.AxisDpad,
		RudderShoulders:    a.RudderShoulders || b.RudderShoulders,
		SingleAxisDpadHack: a.SingleAxisDpadHack || b.SingleAxisDpadHack,
	}
}
