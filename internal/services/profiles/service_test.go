package profiles

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/scrapeloop/sessiond/internal/interfaces"
	"github.com/scrapeloop/sessiond/internal/models"
)

func testLogger() arbor.ILogger {
	return arbor.NewLogger()
}

func testProfiles() []models.Profile {
	return []models.Profile{
		{
			Name:      "datacenter-1",
			Proxy:     &models.ProxyConfig{Address: "http://10.0.0.1:8080", AuthHeader: "Basic dXNlcjpwYXNz"},
			UserAgent: "Mozilla/5.0 (X11; Linux x86_64)",
		},
		{
			Name:  "datacenter-2",
			Proxy: &models.ProxyConfig{Address: "http://10.0.0.2:8080"},
		},
		{
			Name:      "ua-only",
			UserAgent: "Mozilla/5.0 (Macintosh)",
		},
	}
}

func TestService_NewSessionAssignsInRotationOrder(t *testing.T) {
	s := NewService(testProfiles(), nil, testLogger())

	p1, err := s.NewSession("sess-a")
	require.NoError(t, err)
	assert.Equal(t, "datacenter-1", p1.Name)

	p2, err := s.NewSession("sess-b")
	require.NoError(t, err)
	assert.Equal(t, "datacenter-2", p2.Name)

	p3, err := s.NewSession("sess-c")
	require.NoError(t, err)
	assert.Equal(t, "ua-only", p3.Name)

	// Rotation restarts after exhaustion
	p4, err := s.NewSession("sess-d")
	require.NoError(t, err)
	assert.Equal(t, "datacenter-1", p4.Name)
}

func TestService_AssignedUnknownSession(t *testing.T) {
	s := NewService(testProfiles(), nil, testLogger())

	_, err := s.Assigned("never-seen")
	assert.ErrorIs(t, err, interfaces.ErrSessionNotFound)
}

func TestService_ApplyInjectsProxyAndUserAgent(t *testing.T) {
	s := NewService(testProfiles(), nil, testLogger())

	_, err := s.NewSession("sess-a")
	require.NoError(t, err)

	req := models.NewRequest("sess-a", "https://example.com/page")
	require.NoError(t, s.Apply("sess-a", req))

	assert.Equal(t, "http://10.0.0.1:8080", req.Meta["proxy"])
	assert.Equal(t, "Basic dXNlcjpwYXNz", req.Headers.Get("Proxy-Authorization"))
	assert.Equal(t, "Mozilla/5.0 (X11; Linux x86_64)", req.Headers.Get("User-Agent"))
}

func TestService_ApplyNoOpForAbsentFields(t *testing.T) {
	s := NewService([]models.Profile{{Name: "empty"}}, nil, testLogger())

	_, err := s.NewSession("sess-a")
	require.NoError(t, err)

	req := models.NewRequest("sess-a", "https://example.com/page")
	require.NoError(t, s.Apply("sess-a", req))

	assert.NotContains(t, req.Meta, "proxy")
	assert.Empty(t, req.Headers.Get("Proxy-Authorization"))
	assert.Empty(t, req.Headers.Get("User-Agent"))
}

func TestService_ApplyWithoutAuthHeader(t *testing.T) {
	s := NewService(testProfiles(), nil, testLogger())

	_, err := s.NewSession("sess-a")
	require.NoError(t, err)
	_, err = s.NewSession("sess-b")
	require.NoError(t, err)

	req := &models.Request{SessionID: "sess-b", URL: "https://example.com", Headers: http.Header{}}
	require.NoError(t, s.Apply("sess-b", req))

	assert.Equal(t, "http://10.0.0.2:8080", req.Meta["proxy"])
	assert.Empty(t, req.Headers.Get("Proxy-Authorization"))
}

func TestService_ApplyUnknownSession(t *testing.T) {
	s := NewService(testProfiles(), nil, testLogger())

	req := models.NewRequest("never-seen", "https://example.com")
	err := s.Apply("never-seen", req)
	assert.ErrorIs(t, err, interfaces.ErrSessionNotFound)
}

func TestService_ReloadRestartsRotation(t *testing.T) {
	s := NewService(testProfiles(), nil, testLogger())

	_, err := s.NewSession("sess-a")
	require.NoError(t, err)

	s.Reload([]models.Profile{
		{Name: "fresh-1", UserAgent: "Mozilla/5.0"},
		{Name: "fresh-2", UserAgent: "Mozilla/5.0"},
	})

	assert.Equal(t, 2, s.Count())

	// Rotation starts over on the new set
	p, err := s.NewSession("sess-b")
	require.NoError(t, err)
	assert.Equal(t, "fresh-1", p.Name)

	// Existing assignments keep the profile they were given
	old, err := s.Assigned("sess-a")
	require.NoError(t, err)
	assert.Equal(t, "datacenter-1", old.Name)
}

func TestService_ReloadFromDir(t *testing.T) {
	dir := t.TempDir()
	writeProfileFile(t, dir, "pool.toml", `
[reloaded]
user_agent = "Mozilla/5.0 (reloaded)"
`)

	s := NewService(testProfiles(), nil, testLogger())

	count, err := s.ReloadFromDir(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	p, err := s.NewSession("sess-a")
	require.NoError(t, err)
	assert.Equal(t, "reloaded", p.Name)
}

func TestService_ReloadFromDirMissing(t *testing.T) {
	s := NewService(testProfiles(), nil, testLogger())

	_, err := s.ReloadFromDir("/does/not/exist")
	assert.Error(t, err)

	// Old set stays in place on failure
	assert.Equal(t, 3, s.Count())
}

func TestService_EvictIdle(t *testing.T) {
	s := NewService(testProfiles(), nil, testLogger())

	_, err := s.NewSession("sess-a")
	require.NoError(t, err)
	_, err = s.NewSession("sess-b")
	require.NoError(t, err)

	// Nothing is older than an hour yet
	assert.Equal(t, 0, s.EvictIdle(time.Hour))
	assert.Len(t, s.Assignments(), 2)

	// Everything is older than zero idle time
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 2, s.EvictIdle(time.Millisecond))
	assert.Empty(t, s.Assignments())

	_, err = s.Assigned("sess-a")
	assert.ErrorIs(t, err, interfaces.ErrSessionNotFound)
}
