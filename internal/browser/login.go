package browser

import "strings"

// LoginDetector classifies a landed URL as a login interruption. The
// navigator takes one so portals with unusual identity providers can swap
// the heuristic without touching the retry loop.
type LoginDetector func(currentURL string) bool

// Substrings that mark a URL as belonging to an identity provider or login
// flow rather than the portal itself.
var loginMarkers = []string{
	"login",
	"sso",
	"saml",
	"auth",
	"okta",
	"adfs",
	"signin",
	"microsoftonline.com",
}

// IsLoginURL reports whether the current URL looks like an SSO or login
// page. The check is a substring heuristic over the lowercased URL; portals
// route through enough different identity providers that anything stricter
// misses real login hops.
func IsLoginURL(currentURL string) bool {
	lowered := strings.ToLower(currentURL)
	for _, marker := range loginMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}
