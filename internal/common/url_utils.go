package common

import (
	"net/url"
	"regexp"
	"strings"
	"time"
)

var (
	kbNumberRe   = regexp.MustCompile(`(KB\d+)`)
	targetPathRe = regexp.MustCompile(`/target/([^?]+)`)
	hostRe       = regexp.MustCompile(`^(https?://[^/]+)`)
	unsafeRe     = regexp.MustCompile(`[^\w\-\.]+`)
)

// ExtractKBNumber returns the first KB number (KB followed by digits) found in
// text, or "" when none is present.
func ExtractKBNumber(text string) string {
	return kbNumberRe.FindString(text)
}

// DecodeTargetURL unwraps the portal's /target/ redirect indirection:
//
//	.../target/kb_view.do%3Fsysparm_article%3DKB0010611
//
// becomes
//
//	https://<host>/kb_view.do?sysparm_article=KB0010611
//
// URLs without the wrapper are returned unchanged, which makes decoding
// idempotent.
func DecodeTargetURL(rawURL string) string {
	m := targetPathRe.FindStringSubmatch(rawURL)
	if m == nil {
		return rawURL
	}

	decoded, err := url.PathUnescape(m[1])
	if err != nil {
		return rawURL
	}

	if strings.HasPrefix(decoded, "http://") || strings.HasPrefix(decoded, "https://") {
		return decoded
	}

	host := hostRe.FindString(rawURL)
	if host == "" {
		return rawURL
	}
	return host + "/" + strings.TrimLeft(decoded, "/")
}

// SafeFilename mangles a name into something safe for any filesystem,
// falling back to def when the input is empty.
func SafeFilename(name, def string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = def
	}
	name = unsafeRe.ReplaceAllString(name, "_")
	if len(name) > 180 {
		name = name[:180]
	}
	return name
}

// Timestamp returns a filesystem-friendly timestamp for artifact names.
func Timestamp() string {
	return time.Now().Format("20060102_150405")
}
