package jar

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrapeloop/sessiond/internal/models"
)

func TestJar_SetAndFlattenOrdering(t *testing.T) {
	j := New()
	j.SetAll([]models.Cookie{
		{Name: "z", Value: "1", Domain: "b.example.com", Path: "/"},
		{Name: "a", Value: "2", Domain: "a.example.com", Path: "/"},
		{Name: "m", Value: "3", Domain: "a.example.com", Path: "/api"},
		{Name: "b", Value: "4", Domain: "a.example.com", Path: "/"},
	})

	flat := j.Flatten()
	require.Len(t, flat, 4)

	// Ordered by domain, then path, then name
	assert.Equal(t, "a", flat[0].Name)
	assert.Equal(t, "b", flat[1].Name)
	assert.Equal(t, "m", flat[2].Name)
	assert.Equal(t, "z", flat[3].Name)
}

func TestJar_SetReplacesSameKey(t *testing.T) {
	j := New()
	j.Set(models.Cookie{Name: "sid", Value: "old", Domain: "example.com", Path: "/"})
	j.Set(models.Cookie{Name: "sid", Value: "new", Domain: "example.com", Path: "/"})

	flat := j.Flatten()
	require.Len(t, flat, 1)
	assert.Equal(t, "new", flat[0].Value)
}

func TestJar_SameNameDifferentDomains(t *testing.T) {
	j := New()
	j.Set(models.Cookie{Name: "sid", Value: "1", Domain: "a.example.com", Path: "/"})
	j.Set(models.Cookie{Name: "sid", Value: "2", Domain: "b.example.com", Path: "/"})

	assert.Equal(t, 2, j.Len())
}

func TestJar_IgnoresEmptyName(t *testing.T) {
	j := New()
	j.Set(models.Cookie{Name: "", Value: "x", Domain: "example.com"})

	assert.True(t, j.Empty())
}

func TestJar_ClearKeepsRenewalState(t *testing.T) {
	j := New()
	j.Set(models.Cookie{Name: "sid", Value: "x", Domain: "example.com", Path: "/"})
	j.MarkForRenewal()
	j.RenewalDone()
	j.MarkForRenewal()

	j.Clear()

	assert.True(t, j.Empty())
	assert.True(t, j.NeedsRenewal())
	assert.Equal(t, 1, j.TimesRenewed())
}

func TestJar_RenewalLifecycle(t *testing.T) {
	j := New()
	assert.False(t, j.NeedsRenewal())
	assert.Equal(t, 0, j.TimesRenewed())

	j.MarkForRenewal()
	assert.True(t, j.NeedsRenewal())

	j.RenewalDone()
	assert.False(t, j.NeedsRenewal())
	assert.Equal(t, 1, j.TimesRenewed())

	j.MarkForRenewal()
	j.RenewalDone()
	assert.Equal(t, 2, j.TimesRenewed())
}

func TestJar_Restore(t *testing.T) {
	j := New()
	j.Set(models.Cookie{Name: "stale", Value: "x", Domain: "example.com", Path: "/"})

	j.Restore([]models.Cookie{
		{Name: "sid", Value: "restored", Domain: "example.com", Path: "/"},
	}, true, 3)

	flat := j.Flatten()
	require.Len(t, flat, 1)
	assert.Equal(t, "sid", flat[0].Name)
	assert.True(t, j.NeedsRenewal())
	assert.Equal(t, 3, j.TimesRenewed())
}

func TestJar_CookiesForDomainMatching(t *testing.T) {
	j := New()
	j.SetAll([]models.Cookie{
		{Name: "wildcard", Value: "1", Domain: ".example.com", Path: "/"},
		{Name: "exact", Value: "2", Domain: "www.example.com", Path: "/"},
		{Name: "other", Value: "3", Domain: "other.org", Path: "/"},
	})

	matched := j.cookiesFor("www.example.com", "/", time.Now())
	require.Len(t, matched, 2)
	assert.Equal(t, "exact", matched[0].Name)
	assert.Equal(t, "wildcard", matched[1].Name)

	// Bare apex host matches the wildcard cookie only
	matched = j.cookiesFor("example.com", "/", time.Now())
	require.Len(t, matched, 1)
	assert.Equal(t, "wildcard", matched[0].Name)
}

func TestJar_CookiesForPathMatching(t *testing.T) {
	j := New()
	j.SetAll([]models.Cookie{
		{Name: "root", Value: "1", Domain: "example.com", Path: "/"},
		{Name: "api", Value: "2", Domain: "example.com", Path: "/api"},
	})

	matched := j.cookiesFor("example.com", "/api/v1", time.Now())
	assert.Len(t, matched, 2)

	matched = j.cookiesFor("example.com", "/other", time.Now())
	require.Len(t, matched, 1)
	assert.Equal(t, "root", matched[0].Name)

	// "/apiv1" is not under "/api"
	matched = j.cookiesFor("example.com", "/apiv1", time.Now())
	require.Len(t, matched, 1)
	assert.Equal(t, "root", matched[0].Name)
}

func TestJar_CookiesForSkipsExpired(t *testing.T) {
	j := New()
	j.SetAll([]models.Cookie{
		{Name: "live", Value: "1", Domain: "example.com", Path: "/", Expires: time.Now().Add(time.Hour)},
		{Name: "dead", Value: "2", Domain: "example.com", Path: "/", Expires: time.Now().Add(-time.Hour)},
		{Name: "session", Value: "3", Domain: "example.com", Path: "/"},
	})

	matched := j.cookiesFor("example.com", "/", time.Now())
	require.Len(t, matched, 2)
	assert.Equal(t, "live", matched[0].Name)
	assert.Equal(t, "session", matched[1].Name)
}

func TestJar_ConcurrentAccess(t *testing.T) {
	j := New()
	done := make(chan struct{})

	for i := 0; i < 8; i++ {
		go func(n int) {
			defer func() { done <- struct{}{} }()
			for k := 0; k < 100; k++ {
				j.Set(models.Cookie{
					Name:   fmt.Sprintf("c%d-%d", n, k),
					Value:  "v",
					Domain: "example.com",
					Path:   "/",
				})
				j.Flatten()
				j.Len()
			}
		}(i)
	}

	for i := 0; i < 8; i++ {
		<-done
	}

	assert.Equal(t, 800, j.Len())
}
