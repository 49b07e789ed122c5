package jar

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/scrapeloop/sessiond/internal/models"
)

// HTTPJar adapts a Jar to net/http's CookieJar interface so a session's
// cookie state can back an http.Client directly.
type HTTPJar struct {
	jar *Jar
}

// NewHTTPJar wraps the given jar for use as an http.CookieJar.
func NewHTTPJar(j *Jar) *HTTPJar {
	return &HTTPJar{jar: j}
}

// SetCookies stores response cookies against the jar. Cookies without an
// explicit domain are scoped to the request host.
func (h *HTTPJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	for _, c := range cookies {
		domain := c.Domain
		if domain == "" {
			domain = u.Hostname()
		}
		path := c.Path
		if path == "" {
			path = "/"
		}

		expires := c.Expires
		if c.MaxAge > 0 {
			expires = time.Now().Add(time.Duration(c.MaxAge) * time.Second)
		}

		// MaxAge < 0 is an explicit deletion
		if c.MaxAge < 0 {
			h.jar.delete(domain, path, c.Name)
			continue
		}

		h.jar.Set(models.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   domain,
			Path:     path,
			Expires:  expires,
			Secure:   c.Secure,
			HttpOnly: c.HttpOnly,
		})
	}
}

// Cookies returns the cookies applicable to a request URL.
func (h *HTTPJar) Cookies(u *url.URL) []*http.Cookie {
	matched := h.jar.cookiesFor(u.Hostname(), u.Path, time.Now())

	out := make([]*http.Cookie, 0, len(matched))
	for _, c := range matched {
		if c.Secure && !strings.EqualFold(u.Scheme, "https") {
			continue
		}
		out = append(out, &http.Cookie{Name: c.Name, Value: c.Value})
	}
	return out
}

func (j *Jar) delete(domain, path, name string) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if paths, ok := j.cookies[domain]; ok {
		if names, ok := paths[path]; ok {
			delete(names, name)
			if len(names) == 0 {
				delete(paths, path)
			}
		}
		if len(paths) == 0 {
			delete(j.cookies, domain)
		}
	}
}
