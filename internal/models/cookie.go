package models

import (
	"fmt"
	"time"
)

// netscapeTimeFormat is the expiry format used in Netscape-style cookie strings
// (e.g. "Wed, 09-Jun-2021 10:18:14 GMT").
const netscapeTimeFormat = "Mon, 02-Jan-2006 15:04:05 GMT"

// Cookie is a single cookie held in a session jar.
type Cookie struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Domain   string    `json:"domain"`
	Path     string    `json:"path"`
	Expires  time.Time `json:"expires,omitempty"`
	Secure   bool      `json:"secure,omitempty"`
	HttpOnly bool      `json:"http_only,omitempty"`
}

// NetscapeString renders the cookie as a Netscape-style string:
// "name=value; expires=...; path=...; domain=...".
// Session cookies (zero expiry) render with the current time, matching the
// classic cookiejar export behavior.
func (c Cookie) NetscapeString() string {
	expires := c.Expires
	if expires.IsZero() {
		expires = time.Now()
	}
	return fmt.Sprintf("%s=%s; expires=%s; path=%s; domain=%s",
		c.Name, c.Value, expires.UTC().Format(netscapeTimeFormat), c.Path, c.Domain)
}

// Pair returns the cookie as a single-entry name->value map.
func (c Cookie) Pair() map[string]string {
	return map[string]string{c.Name: c.Value}
}
