package oauth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/authgate/internal/server/config"
)

func testClientConfig() *config.Config {
	return &config.Config{
		FrontendURL: "https://app.example.com",
		Google:      config.OAuthProviderConfig{ClientID: "gid", ClientSecret: "gs"},
		Facebook:    config.OAuthProviderConfig{ClientID: "fid", ClientSecret: "fs"},
		GitHub:      config.OAuthProviderConfig{ClientID: "ghid", ClientSecret: "ghs"},
	}
}

func TestAuthCodeURL(t *testing.T) {
	c := NewClient(testClientConfig())

	u, err := c.AuthCodeURL(ProviderGoogle, "state-1")
	require.NoError(t, err)
	assert.Contains(t, u, "state=state-1")
	assert.Contains(t, u, "client_id=gid")
	assert.Contains(t, u, "redirect_uri=https%3A%2F%2Fapp.example.com%2Foauth%2Fcallback")

	_, err = c.AuthCodeURL("myspace", "state-1")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestAuthCodeURL_UnconfiguredProviderDisabled(t *testing.T) {
	cfg := testClientConfig()
	cfg.Facebook = config.OAuthProviderConfig{}
	c := NewClient(cfg)

	_, err := c.AuthCodeURL(ProviderFacebook, "state-1")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestStateToken_Unique(t *testing.T) {
	c := NewClient(testClientConfig())
	a, err := c.StateToken()
	require.NoError(t, err)
	b, err := c.StateToken()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestFetchProfile_Google(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]string{
			"id": "g-123", "email": "a@x.com", "name": "Alice",
		})
	}))
	defer srv.Close()

	c := NewClient(testClientConfig())
	c.googleUserInfoURL = srv.URL

	p, err := c.FetchProfile(context.Background(), ProviderGoogle, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, &Profile{Email: "a@x.com", Username: "Alice", Provider: ProviderGoogle, ProviderID: "g-123"}, p)
}

func TestFetchProfile_Facebook(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tok-2", r.URL.Query().Get("access_token"))
		assert.Equal(t, "id,name,email", r.URL.Query().Get("fields"))
		json.NewEncoder(w).Encode(map[string]string{
			"id": "f-456", "email": "b@x.com", "name": "Bob",
		})
	}))
	defer srv.Close()

	c := NewClient(testClientConfig())
	c.facebookUserInfoURL = srv.URL

	p, err := c.FetchProfile(context.Background(), ProviderFacebook, "tok-2")
	require.NoError(t, err)
	assert.Equal(t, &Profile{Email: "b@x.com", Username: "Bob", Provider: ProviderFacebook, ProviderID: "f-456"}, p)
}

func TestFetchProfile_GitHub(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "token tok-3", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]any{
			"id": 789, "login": "carol", "email": "c@x.com",
		})
	}))
	defer srv.Close()

	c := NewClient(testClientConfig())
	c.githubUserURL = srv.URL

	p, err := c.FetchProfile(context.Background(), ProviderGitHub, "tok-3")
	require.NoError(t, err)
	assert.Equal(t, &Profile{Email: "c@x.com", Username: "carol", Provider: ProviderGitHub, ProviderID: "789"}, p)
}

func TestFetchProfile_GitHubPrivateEmailFallback(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"id": 789, "login": "carol", "email": ""})
	})
	mux.HandleFunc("/emails", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{
			{"email": "old@x.com", "primary": false},
			{"email": "c@x.com", "primary": true},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(testClientConfig())
	c.githubUserURL = srv.URL + "/user"
	c.githubEmailsURL = srv.URL + "/emails"

	p, err := c.FetchProfile(context.Background(), ProviderGitHub, "tok-3")
	require.NoError(t, err)
	assert.Equal(t, "c@x.com", p.Email)
}

func TestFetchProfile_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad token", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(testClientConfig())
	c.googleUserInfoURL = srv.URL

	_, err := c.FetchProfile(context.Background(), ProviderGoogle, "bad")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "401"))
}

func TestFetchProfile_UnknownProvider(t *testing.T) {
	c := NewClient(testClientConfig())
	_, err := c.FetchProfile(context.Background(), "myspace", "tok")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestUsernameOr(t *testing.T) {
	assert.Equal(t, "Alice", usernameOr("Alice", "a@x.com"))
	assert.Equal(t, "a", usernameOr("", "a@x.com"))
	assert.Equal(t, "", usernameOr("", ""))
}
