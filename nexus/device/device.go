package device

import (
	"regexp"
	"strings"
)

// Info describes the device a request came from, derived from its
// User-Agent string. Best-effort only: unrecognized agents report "Unknown".
type Info struct {
	Platform string // e.g. "Windows", "macOS", "Linux", "Android", "iOS"
	Browser  string // e.g. "Chrome 120", "Firefox 115.2"
}

var versionPattern = regexp.MustCompile(`(?i)(chrome|crios|firefox|fxios|version|opr|edg|msie|rv)[\s/:](\d+(\.\d+)?)`)

// parses a User-Agent string into platform and browser descriptors
func Parse(userAgent string) Info {
	return Info{
		Platform: parsePlatform(userAgent),
		Browser:  parseBrowser(userAgent),
	}
}

func parsePlatform(ua string) string {
	lower := strings.ToLower(ua)

	switch {
	case strings.Contains(lower, "android"):
		return "Android"
	case strings.Contains(lower, "iphone"), strings.Contains(lower, "ipad"), strings.Contains(lower, "ipod"):
		return "iOS"
	case strings.Contains(lower, "windows"):
		return "Windows"
	case strings.Contains(lower, "macintosh"), strings.Contains(lower, "mac os"):
		return "macOS"
	case strings.Contains(lower, "linux"):
		return "Linux"
	default:
		return "Unknown"
	}
}

func parseBrowser(ua string) string {
	lower := strings.ToLower(ua)

	var name string

	// order matters: Edge and Opera agents also contain "chrome",
	// and every webkit browser contains "safari"
	switch {
	case strings.Contains(lower, "edg"):
		name = "Edge"
	case strings.Contains(lower, "opr/"), strings.Contains(lower, "opera"):
		name = "Opera"
	case strings.Contains(lower, "chrome"), strings.Contains(lower, "chromium"), strings.Contains(lower, "crios"):
		name = "Chrome"
	case strings.Contains(lower, "firefox"), strings.Contains(lower, "fxios"):
		name = "Firefox"
	case strings.Contains(lower, "safari"):
		name = "Safari"
	case strings.Contains(lower, "msie"), strings.Contains(lower, "trident"):
		name = "Internet Explorer"
	default:
		return "Unknown"
	}

	if m := versionPattern.FindStringSubmatch(ua); m != nil {
		return name + " " + m[2]
	}

	return name
}
