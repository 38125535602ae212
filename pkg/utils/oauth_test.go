package utils

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/jakechorley/category-allocator/internal/config"
)

func testOAuthConfig(t *testing.T) *oauth2.Config {
	t.Helper()

	cfg := &config.GoogleClient{
		ClientID:     "client-id",
		ClientSecret: "secret",
		AuthURI:      "https://accounts.google.com/o/oauth2/auth",
		TokenURI:     "https://oauth2.googleapis.com/token",
	}

	oauthConfig, err := GetOAuthConfig(cfg)
	require.NoError(t, err)
	return oauthConfig
}

func TestGetOAuthConfig(t *testing.T) {
	oauthConfig := testOAuthConfig(t)

	assert.Equal(t, "client-id", oauthConfig.ClientID)
	assert.Equal(t, []string{ScopeSheets}, oauthConfig.Scopes)
	assert.Equal(t, "http://localhost:3000/oauth/callback", oauthConfig.RedirectURL)
	assert.Equal(t, "https://oauth2.googleapis.com/token", oauthConfig.Endpoint.TokenURL)
}

func TestGetOAuthConfig_DefaultsToGoogleEndpoints(t *testing.T) {
	oauthConfig, err := GetOAuthConfig(&config.GoogleClient{ClientID: "id", ClientSecret: "s"})
	require.NoError(t, err)
	assert.Equal(t, google.Endpoint.AuthURL, oauthConfig.Endpoint.AuthURL)
	assert.Equal(t, google.Endpoint.TokenURL, oauthConfig.Endpoint.TokenURL)

	_, err = GetOAuthConfig(&config.GoogleClient{})
	assert.Error(t, err)
}

func TestTokenFileRoundTrip(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	tokens, err := NewTokenFile("test")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, tokenDirName, "token-test.json"), tokens.Path())

	token, err := tokens.Load()
	require.NoError(t, err)
	assert.Nil(t, token, "no token file yet")

	saved := &oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenType:    "Bearer",
		Expiry:       time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, tokens.Save(saved))

	info, err := os.Stat(tokens.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(tokenFilePerms), info.Mode().Perm())

	loaded, err := tokens.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "access", loaded.AccessToken)
	assert.Equal(t, "refresh", loaded.RefreshToken)
	assert.True(t, saved.Expiry.Equal(loaded.Expiry))

	require.NoError(t, tokens.Delete())
	require.NoError(t, tokens.Delete(), "deleting a missing token file is not an error")

	loaded, err = tokens.Load()
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestMissingScopes(t *testing.T) {
	assert.Empty(t, missingScopes("openid "+ScopeSheets))
	assert.Equal(t, []string{ScopeSheets}, missingScopes("https://www.googleapis.com/auth/forms.body"))
	assert.Equal(t, []string{ScopeSheets}, missingScopes(""))
}

func newTestAuthenticator(t *testing.T, grantedScope string) *Authenticator {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	tokenInfo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"scope": "` + grantedScope + `"}`))
	}))
	t.Cleanup(tokenInfo.Close)

	auth, err := NewAuthenticator(testOAuthConfig(t), "test")
	require.NoError(t, err)
	auth.out = &bytes.Buffer{}
	auth.httpClient = tokenInfo.Client()
	auth.tokenInfoURL = tokenInfo.URL
	return auth
}

func TestAuthenticator_ReusesSavedToken(t *testing.T) {
	auth := newTestAuthenticator(t, ScopeSheets)
	saved := &oauth2.Token{AccessToken: "access", Expiry: time.Now().Add(time.Hour)}
	require.NoError(t, auth.tokens.Save(saved))

	token, err := auth.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access", token.AccessToken)

	// Served from memory once cached
	require.NoError(t, auth.tokens.Delete())
	token, err = auth.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access", token.AccessToken)
}

func TestAuthenticator_DropsTokenWithoutScopes(t *testing.T) {
	auth := newTestAuthenticator(t, "openid")
	require.NoError(t, auth.tokens.Save(&oauth2.Token{AccessToken: "access", Expiry: time.Now().Add(time.Hour)}))

	assert.Nil(t, auth.savedToken(context.Background()))

	loaded, err := auth.tokens.Load()
	require.NoError(t, err)
	assert.Nil(t, loaded, "unusable token is deleted")
}

func TestAuthenticator_ExpiredTokenWithoutRefresh(t *testing.T) {
	auth := newTestAuthenticator(t, ScopeSheets)
	require.NoError(t, auth.tokens.Save(&oauth2.Token{AccessToken: "access", Expiry: time.Now().Add(-time.Hour)}))

	assert.Nil(t, auth.savedToken(context.Background()))
}

type sequenceTokenSource struct {
	tokens []*oauth2.Token
	err    error
}

func (s *sequenceTokenSource) Token() (*oauth2.Token, error) {
	if s.err != nil {
		return nil, s.err
	}
	token := s.tokens[0]
	if len(s.tokens) > 1 {
		s.tokens = s.tokens[1:]
	}
	return token, nil
}

func TestSavingTokenSource(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	tokens, err := NewTokenFile("test")
	require.NoError(t, err)

	src := &savingTokenSource{
		base: &sequenceTokenSource{tokens: []*oauth2.Token{
			{AccessToken: "old"},
			{AccessToken: "new"},
		}},
		tokens: tokens,
		last:   "old",
	}

	_, err = src.Token()
	require.NoError(t, err)
	loaded, err := tokens.Load()
	require.NoError(t, err)
	assert.Nil(t, loaded, "unchanged token is not written")

	_, err = src.Token()
	require.NoError(t, err)
	loaded, err = tokens.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "new", loaded.AccessToken)

	src.base = &sequenceTokenSource{err: errors.New("refresh failed")}
	_, err = src.Token()
	assert.Error(t, err)
}

func TestCallbackHandler(t *testing.T) {
	codeChan := make(chan string, 1)
	errChan := make(chan error, 1)
	handler := callbackHandler("expected", codeChan, errChan)

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, callbackPath+"?state=other&code=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, codeChan)

	rec = httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, callbackPath+"?state=expected&error=access_denied", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.Len(t, errChan, 1)
	assert.Contains(t, (<-errChan).Error(), "access_denied")

	rec = httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, callbackPath+"?state=expected&code=abc", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Authorization successful")
	assert.Equal(t, "abc", <-codeChan)
}
