package session

import (
	"strings"

	"github.com/mssola/useragent"
)

// ParseUserAgent renders a human-readable device name ("Chrome on Mac OS X")
// from a raw User-Agent header. Shown to users when listing their sessions,
// so it degrades to readable placeholders rather than failing.
func ParseUserAgent(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return "Unknown Device"
	}

	ua := useragent.New(raw)

	browser, _ := ua.Browser()
	if browser == "" {
		browser = "Unknown Browser"
	}

	osName := ua.OSInfo().Name
	if ua.Mobile() && ua.Platform() != "" {
		osName = ua.Platform()
	}
	if osName == "" {
		osName = "Unknown OS"
	}

	return strings.TrimSpace(browser + " on " + osName)
}
