package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/scrapeloop/sessiond/internal/interfaces"
	"github.com/scrapeloop/sessiond/internal/models"
)

// mockSessionService implements SessionServiceInterface for handler tests
type mockSessionService struct {
	sessions     []string
	cookies      map[string][]string
	pairs        map[string][]map[string]string
	profile      models.Profile
	profileErr   error
	createdID    string
	clearedID    string
	clearRenewal *models.Request
	clearErr     error
}

func (m *mockSessionService) List() []string { return m.sessions }
func (m *mockSessionService) Count() int     { return len(m.sessions) }
func (m *mockSessionService) Create() string { return m.createdID }

func (m *mockSessionService) Get(sessionID string) []string {
	return m.cookies[sessionID]
}

func (m *mockSessionService) GetPairs(sessionID string) []map[string]string {
	return m.pairs[sessionID]
}

func (m *mockSessionService) GetProfile(sessionID string) (models.Profile, error) {
	if m.profileErr != nil {
		return models.Profile{}, m.profileErr
	}
	return m.profile, nil
}

func (m *mockSessionService) Clear(ctx context.Context, sessionID string, renewal *models.Request) error {
	m.clearedID = sessionID
	m.clearRenewal = renewal
	return m.clearErr
}

func newSessionHandler(service *mockSessionService) *SessionHandler {
	return NewSessionHandler(service, arbor.NewLogger())
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestListSessionsHandler(t *testing.T) {
	h := newSessionHandler(&mockSessionService{sessions: []string{"a", "b"}})

	rec := httptest.NewRecorder()
	h.ListSessionsHandler(rec, httptest.NewRequest("GET", "/api/sessions", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(2), body["count"])
}

func TestListSessionsHandler_WrongMethod(t *testing.T) {
	h := newSessionHandler(&mockSessionService{})

	rec := httptest.NewRecorder()
	h.ListSessionsHandler(rec, httptest.NewRequest("POST", "/api/sessions", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCreateSessionHandler(t *testing.T) {
	h := newSessionHandler(&mockSessionService{createdID: "sess_f3a1"})

	rec := httptest.NewRecorder()
	h.CreateSessionHandler(rec, httptest.NewRequest("POST", "/api/sessions", nil))

	require.Equal(t, http.StatusCreated, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "sess_f3a1", body["session_id"])
}

func TestCreateSessionHandler_WrongMethod(t *testing.T) {
	h := newSessionHandler(&mockSessionService{})

	rec := httptest.NewRecorder()
	h.CreateSessionHandler(rec, httptest.NewRequest("GET", "/api/sessions", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCookiesHandler_DefaultNetscapeFormat(t *testing.T) {
	h := newSessionHandler(&mockSessionService{
		cookies: map[string][]string{
			"sess-a": {"sid=abc; expires=Wed, 09-Jun-2027 10:18:14 GMT; path=/; domain=example.com"},
		},
	})

	rec := httptest.NewRecorder()
	h.CookiesHandler(rec, httptest.NewRequest("GET", "/api/sessions/sess-a/cookies", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "sess-a", body["session_id"])
	cookies := body["cookies"].([]interface{})
	require.Len(t, cookies, 1)
	assert.True(t, strings.HasPrefix(cookies[0].(string), "sid=abc; "))
}

func TestCookiesHandler_PairsFormat(t *testing.T) {
	h := newSessionHandler(&mockSessionService{
		pairs: map[string][]map[string]string{
			"sess-a": {{"sid": "abc"}},
		},
	})

	rec := httptest.NewRecorder()
	h.CookiesHandler(rec, httptest.NewRequest("GET", "/api/sessions/sess-a/cookies?format=pairs", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	cookies := body["cookies"].([]interface{})
	require.Len(t, cookies, 1)
	assert.Equal(t, map[string]interface{}{"sid": "abc"}, cookies[0])
}

func TestCookiesHandler_UnknownFormat(t *testing.T) {
	h := newSessionHandler(&mockSessionService{})

	rec := httptest.NewRecorder()
	h.CookiesHandler(rec, httptest.NewRequest("GET", "/api/sessions/sess-a/cookies?format=xml", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCookiesHandler_InvalidSessionID(t *testing.T) {
	h := newSessionHandler(&mockSessionService{})

	rec := httptest.NewRecorder()
	h.CookiesHandler(rec, httptest.NewRequest("GET", "/api/sessions//cookies", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProfileHandler(t *testing.T) {
	h := newSessionHandler(&mockSessionService{
		profile: models.Profile{Name: "dc-east", UserAgent: "Mozilla/5.0"},
	})

	rec := httptest.NewRecorder()
	h.ProfileHandler(rec, httptest.NewRequest("GET", "/api/sessions/sess-a/profile", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	profile := body["profile"].(map[string]interface{})
	assert.Equal(t, "dc-east", profile["name"])
}

func TestProfileHandler_ProfilesDisabled(t *testing.T) {
	h := newSessionHandler(&mockSessionService{profileErr: interfaces.ErrProfilesDisabled})

	rec := httptest.NewRecorder()
	h.ProfileHandler(rec, httptest.NewRequest("GET", "/api/sessions/sess-a/profile", nil))

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestProfileHandler_SessionNotFound(t *testing.T) {
	h := newSessionHandler(&mockSessionService{profileErr: interfaces.ErrSessionNotFound})

	rec := httptest.NewRecorder()
	h.ProfileHandler(rec, httptest.NewRequest("GET", "/api/sessions/sess-a/profile", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestClearHandler_WithoutBody(t *testing.T) {
	service := &mockSessionService{}
	h := newSessionHandler(service)

	rec := httptest.NewRecorder()
	h.ClearHandler(rec, httptest.NewRequest("POST", "/api/sessions/sess-a/clear", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "sess-a", service.clearedID)
	assert.Nil(t, service.clearRenewal)
}

func TestClearHandler_WithRenewalRequest(t *testing.T) {
	service := &mockSessionService{}
	h := newSessionHandler(service)

	body := strings.NewReader(`{
		"renewal_url": "https://example.com/login",
		"renewal_method": "POST",
		"headers": {"Referer": "https://example.com/"}
	}`)

	rec := httptest.NewRecorder()
	h.ClearHandler(rec, httptest.NewRequest("POST", "/api/sessions/sess-a/clear", body))

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, service.clearRenewal)
	assert.Equal(t, "https://example.com/login", service.clearRenewal.URL)
	assert.Equal(t, "POST", service.clearRenewal.Method)
	assert.Equal(t, "https://example.com/", service.clearRenewal.Headers.Get("Referer"))
}

func TestClearHandler_MalformedBody(t *testing.T) {
	h := newSessionHandler(&mockSessionService{})

	rec := httptest.NewRecorder()
	h.ClearHandler(rec, httptest.NewRequest("POST", "/api/sessions/sess-a/clear", strings.NewReader("{not json")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClearHandler_WrongMethod(t *testing.T) {
	h := newSessionHandler(&mockSessionService{})

	rec := httptest.NewRecorder()
	h.ClearHandler(rec, httptest.NewRequest("GET", "/api/sessions/sess-a/clear", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
