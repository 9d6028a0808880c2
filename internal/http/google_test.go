package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/librarian/internal/entities"
	"github.com/mrlokans/librarian/internal/oauth2"
)

// googleAccounts maps authorization codes to the accounts they resolve to.
var googleAccounts = map[string]oauth2.Identity{
	"new-reader":  {Subject: "g-100", Email: "Ogion@Gmail.com", EmailVerified: true, Name: "Ogion"},
	"admin-email": {Subject: "g-200", Email: "admin@library.com", EmailVerified: true, Name: "Admin"},
	"unverified":  {Subject: "g-300", Email: "tenar@example.com", EmailVerified: false, Name: "Tenar"},
}

type stubGoogle struct{}

func (stubGoogle) Name() string { return "google" }

func (stubGoogle) AuthCodeURL(state, _ string) string {
	return "https://accounts.example/consent?state=" + url.QueryEscape(state)
}

func (stubGoogle) Identify(_ context.Context, code, verifier string) (*oauth2.Identity, error) {
	if verifier == "" {
		return nil, errors.New("missing code verifier")
	}
	identity, ok := googleAccounts[code]
	if !ok {
		return nil, errors.New("invalid_grant")
	}
	return &identity, nil
}

// startGoogle follows GET /auth/google and returns the state cookie and the
// state sent to the consent page.
func (s *testServer) startGoogle(t *testing.T) (*http.Cookie, string) {
	t.Helper()
	w := s.do(http.MethodGet, "/auth/google", "", nil)
	require.Equal(t, http.StatusFound, w.Code)

	consent, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	state := consent.Query().Get("state")
	require.NotEmpty(t, state)

	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == oauthCookie {
			assert.True(t, cookie.HttpOnly)
			return cookie, state
		}
	}
	t.Fatal("state cookie not set")
	return nil, ""
}

func (s *testServer) googleCallback(cookie *http.Cookie, query url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?"+query.Encode(), nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// signInWithGoogle runs the whole redirect round trip for a code.
func (s *testServer) signInWithGoogle(t *testing.T, code string) *httptest.ResponseRecorder {
	t.Helper()
	cookie, state := s.startGoogle(t)
	return s.googleCallback(cookie, url.Values{"state": {state}, "code": {code}})
}

func tokenFromRedirect(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	require.Equal(t, http.StatusFound, w.Code, w.Body.String())
	location := w.Header().Get("Location")
	require.True(t, strings.HasPrefix(location, "http://localhost:5173/?token="), location)

	target, err := url.Parse(location)
	require.NoError(t, err)
	return target.Query().Get("token")
}

func TestGoogleSignIn_CreatesThenReusesAccount(t *testing.T) {
	s := newTestServer(t)

	token := tokenFromRedirect(t, s.signInWithGoogle(t, "new-reader"))
	w := s.do(http.MethodGet, "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[entities.User](t, w)
	assert.Equal(t, "ogion@gmail.com", me.Email)
	assert.Equal(t, "Ogion", me.Name)
	assert.Equal(t, entities.UserRoleUser, me.Role)
	require.NotNil(t, me.GoogleID)
	assert.Equal(t, "g-100", *me.GoogleID)

	again := tokenFromRedirect(t, s.signInWithGoogle(t, "new-reader"))
	assert.NotEqual(t, token, again)
	w = s.do(http.MethodGet, "/auth/me", again, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, me.ID, decode[entities.User](t, w).ID)

	var accounts int64
	require.NoError(t, s.db.DB.Model(&entities.User{}).Where("email = ?", "ogion@gmail.com").Count(&accounts).Error)
	assert.Equal(t, int64(1), accounts)

	// Google accounts have no password to log in with
	w = s.do(http.MethodPost, "/auth/login", "", payload{"email": "ogion@gmail.com", "password": ""})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGoogleSignIn_LinksExistingEmail(t *testing.T) {
	s := newTestServer(t)

	token := tokenFromRedirect(t, s.signInWithGoogle(t, "admin-email"))
	w := s.do(http.MethodGet, "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[entities.User](t, w)
	assert.Equal(t, entities.UserRoleAdmin, me.Role, "linking keeps the existing role")
	require.NotNil(t, me.GoogleID)
	assert.Equal(t, "g-200", *me.GoogleID)
}

func TestGoogleSignIn_Rejections(t *testing.T) {
	s := newTestServer(t)
	_, _ = s.register(t, "tenar@example.com")

	t.Run("unverified email is not linked", func(t *testing.T) {
		w := s.signInWithGoogle(t, "unverified")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, CodeValidationFailed, decode[ErrorResponse](t, w).Code)
	})

	t.Run("forged state", func(t *testing.T) {
		cookie, _ := s.startGoogle(t)
		w := s.googleCallback(cookie, url.Values{"state": {"forged"}, "code": {"new-reader"}})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, CodeOAuthState, decode[ErrorResponse](t, w).Code)
	})

	t.Run("no state cookie", func(t *testing.T) {
		_, state := s.startGoogle(t)
		w := s.googleCallback(nil, url.Values{"state": {state}, "code": {"new-reader"}})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("code rejected by Google", func(t *testing.T) {
		w := s.signInWithGoogle(t, "expired-code")
		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Equal(t, CodeOAuthFailed, decode[ErrorResponse](t, w).Code)
	})

	t.Run("consent denied", func(t *testing.T) {
		cookie, _ := s.startGoogle(t)
		w := s.googleCallback(cookie, url.Values{"error": {"access_denied"}})
		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "http://localhost:5173/login?error=access_denied", w.Header().Get("Location"))
	})

	var linked int64
	require.NoError(t, s.db.DB.Model(&entities.User{}).Where("google_id IS NOT NULL").Count(&linked).Error)
	assert.Zero(t, linked)
}
