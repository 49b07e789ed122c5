package jar

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/scrapeloop/sessiond/internal/models"
)

// Jar is a cookie store scoped to one session. Cookies are keyed by domain,
// then path, then name. The jar carries a renewal flag and a renewal counter
// alongside its cookies.
type Jar struct {
	mu           sync.RWMutex
	cookies      map[string]map[string]map[string]models.Cookie
	needsRenewal bool
	timesRenewed int
}

// New creates an empty jar.
func New() *Jar {
	return &Jar{
		cookies: make(map[string]map[string]map[string]models.Cookie),
	}
}

// Set stores a cookie, replacing any existing cookie with the same
// domain/path/name key. Cookies with empty names are ignored.
func (j *Jar) Set(c models.Cookie) {
	if c.Name == "" {
		return
	}
	if c.Path == "" {
		c.Path = "/"
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	paths, ok := j.cookies[c.Domain]
	if !ok {
		paths = make(map[string]map[string]models.Cookie)
		j.cookies[c.Domain] = paths
	}
	names, ok := paths[c.Path]
	if !ok {
		names = make(map[string]models.Cookie)
		paths[c.Path] = names
	}
	names[c.Name] = c
}

// SetAll stores a batch of cookies.
func (j *Jar) SetAll(cookies []models.Cookie) {
	for _, c := range cookies {
		j.Set(c)
	}
}

// Flatten returns all cookies as a flat slice, ordered by domain, path, name.
// The returned cookies are copies; mutating them does not affect the jar.
func (j *Jar) Flatten() []models.Cookie {
	j.mu.RLock()
	defer j.mu.RUnlock()

	var out []models.Cookie
	for _, paths := range j.cookies {
		for _, names := range paths {
			for _, c := range names {
				out = append(out, c)
			}
		}
	}

	sort.Slice(out, func(a, b int) bool {
		if out[a].Domain != out[b].Domain {
			return out[a].Domain < out[b].Domain
		}
		if out[a].Path != out[b].Path {
			return out[a].Path < out[b].Path
		}
		return out[a].Name < out[b].Name
	})

	return out
}

// Len returns the number of cookies held.
func (j *Jar) Len() int {
	j.mu.RLock()
	defer j.mu.RUnlock()

	n := 0
	for _, paths := range j.cookies {
		for _, names := range paths {
			n += len(names)
		}
	}
	return n
}

// Empty reports whether the jar holds no cookies.
func (j *Jar) Empty() bool {
	return j.Len() == 0
}

// Clear removes all cookies. The renewal flag and counter are untouched.
func (j *Jar) Clear() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.cookies = make(map[string]map[string]map[string]models.Cookie)
}

// MarkForRenewal flags the jar as needing its cookies re-established.
func (j *Jar) MarkForRenewal() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.needsRenewal = true
}

// RenewalDone clears the renewal flag and increments the renewal counter.
func (j *Jar) RenewalDone() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.needsRenewal = false
	j.timesRenewed++
}

// NeedsRenewal reports whether the jar is flagged for renewal.
func (j *Jar) NeedsRenewal() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.needsRenewal
}

// TimesRenewed returns how many times the jar has been renewed.
func (j *Jar) TimesRenewed() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.timesRenewed
}

// Restore replaces the jar contents and counters from a snapshot.
func (j *Jar) Restore(cookies []models.Cookie, needsRenewal bool, timesRenewed int) {
	j.Clear()
	j.SetAll(cookies)

	j.mu.Lock()
	defer j.mu.Unlock()
	j.needsRenewal = needsRenewal
	j.timesRenewed = timesRenewed
}

// cookiesFor returns cookies matching the given host and path, honoring
// domain suffix matching (a ".example.com" cookie matches "www.example.com")
// and path prefix matching. Expired cookies are skipped.
func (j *Jar) cookiesFor(host, path string, now time.Time) []models.Cookie {
	if path == "" {
		path = "/"
	}

	j.mu.RLock()
	defer j.mu.RUnlock()

	var out []models.Cookie
	for domain, paths := range j.cookies {
		if !domainMatches(host, domain) {
			continue
		}
		for cookiePath, names := range paths {
			if !pathMatches(path, cookiePath) {
				continue
			}
			for _, c := range names {
				if !c.Expires.IsZero() && c.Expires.Before(now) {
					continue
				}
				out = append(out, c)
			}
		}
	}

	sort.Slice(out, func(a, b int) bool { return out[a].Name < out[b].Name })
	return out
}

func domainMatches(host, domain string) bool {
	host = strings.ToLower(host)
	domain = strings.ToLower(strings.TrimPrefix(domain, "."))
	if domain == "" {
		return false
	}
	return host == domain || strings.HasSuffix(host, "."+domain)
}

func pathMatches(requestPath, cookiePath string) bool {
	if cookiePath == "" || cookiePath == "/" {
		return true
	}
	if requestPath == cookiePath {
		return true
	}
	return strings.HasPrefix(requestPath, strings.TrimSuffix(cookiePath, "/")+"/")
}
