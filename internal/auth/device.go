package auth

import (
	"strings"
)

// DeviceLabel derives a coarse browser label from a user agent string for
// display in the session list. Order matters: Edge and Chrome both report
// Safari, and Edge also reports Chrome.
func DeviceLabel(userAgent string) string {
	switch {
	case userAgent == "":
		return ""
	case strings.Contains(userAgent, "Edg"):
		return "Edge"
	case strings.Contains(userAgent, "Chrome"):
		return "Chrome"
	case strings.Contains(userAgent, "Firefox"):
		return "Firefox"
	case strings.Contains(userAgent, "Safari"):
		return "Safari"
	default:
		return "Unknown"
	}
}
