package models

import "time"

// SessionCookie is one browser cookie captured after an interactive login.
// Field names mirror the CDP network domain so a stored session can be
// replayed into a fresh browser without translation loss.
type SessionCookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires,omitempty"` // seconds since epoch, 0 = session cookie
	Secure   bool    `json:"secure"`
	HTTPOnly bool    `json:"http_only"`
	SameSite string  `json:"same_site,omitempty"`
}

// SessionState is the persisted authenticated browsing state for one portal.
// The blob is opaque to everything except the browser layer that captures and
// replays it.
type SessionState struct {
	ID         string          `json:"id" badgerhold:"key"`
	SiteDomain string          `json:"site_domain" badgerhold:"index"`
	Cookies    []SessionCookie `json:"cookies"`
	UserAgent  string          `json:"user_agent,omitempty"`
	CapturedAt time.Time       `json:"captured_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// PageSnapshot is the rendered HTML plus the final URL at capture time.
// Produced at most once per navigation attempt and consumed immediately.
type PageSnapshot struct {
	HTML     string
	FinalURL string
	Captured time.Time
}
