// Package oauth integrates external identity providers (Google, Facebook,
// GitHub). It exposes authorization-code URLs and token exchange via
// golang.org/x/oauth2, and fetches a normalized Profile from each
// provider's userinfo API. Network and decoding failures surface as a nil
// profile; callers fail closed.
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"

	"github.com/dmitrijs2005/authgate/internal/common"
	"github.com/dmitrijs2005/authgate/internal/server/config"
)

// Supported provider names. These values are persisted in the users table.
const (
	ProviderGoogle   = "google"
	ProviderFacebook = "facebook"
	ProviderGitHub   = "github"
)

// Profile is the normalized identity returned by every provider.
type Profile struct {
	Email      string
	Username   string
	Provider   string
	ProviderID string
}

var ErrUnknownProvider = errors.New("unknown oauth provider")

// Client talks to the configured identity providers. Providers without
// client credentials are disabled and report ErrUnknownProvider.
type Client struct {
	httpClient *http.Client
	configs    map[string]*oauth2.Config

	// Userinfo endpoints, overridable in tests.
	googleUserInfoURL   string
	facebookUserInfoURL string
	githubUserURL       string
	githubEmailsURL     string
}

// NewClient builds a Client from server config. The OAuth redirect lands on
// the frontend, which forwards the provider token to the API.
func NewClient(cfg *config.Config) *Client {
	redirect := strings.TrimRight(cfg.FrontendURL, "/") + "/oauth/callback"

	configs := make(map[string]*oauth2.Config)
	if cfg.Google.ClientID != "" {
		configs[ProviderGoogle] = &oauth2.Config{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			Endpoint:     google.Endpoint,
			RedirectURL:  redirect,
			Scopes:       []string{"openid", "email", "profile"},
		}
	}
	if cfg.Facebook.ClientID != "" {
		configs[ProviderFacebook] = &oauth2.Config{
			ClientID:     cfg.Facebook.ClientID,
			ClientSecret: cfg.Facebook.ClientSecret,
			Endpoint:     facebook.Endpoint,
			RedirectURL:  redirect,
			Scopes:       []string{"email"},
		}
	}
	if cfg.GitHub.ClientID != "" {
		configs[ProviderGitHub] = &oauth2.Config{
			ClientID:     cfg.GitHub.ClientID,
			ClientSecret: cfg.GitHub.ClientSecret,
			Endpoint:     github.Endpoint,
			RedirectURL:  redirect,
			Scopes:       []string{"user:email"},
		}
	}

	return &Client{
		httpClient:          &http.Client{Timeout: 10 * time.Second},
		configs:             configs,
		googleUserInfoURL:   "https://www.googleapis.com/oauth2/v2/userinfo",
		facebookUserInfoURL: "https://graph.facebook.com/me",
		githubUserURL:       "https://api.github.com/user",
		githubEmailsURL:     "https://api.github.com/user/emails",
	}
}

// StateToken generates the random state value for the authorization
// redirect.
func (c *Client) StateToken() (string, error) {
	return common.MakeRandURLSafeString(32)
}

// AuthCodeURL returns the provider's authorization URL for the given state.
func (c *Client) AuthCodeURL(provider, state string) (string, error) {
	conf, ok := c.configs[provider]
	if !ok {
		return "", ErrUnknownProvider
	}
	return conf.AuthCodeURL(state, oauth2.AccessTypeOffline), nil
}

// Exchange trades an authorization code for the provider's token.
func (c *Client) Exchange(ctx context.Context, provider, code string) (*oauth2.Token, error) {
	conf, ok := c.configs[provider]
	if !ok {
		return nil, ErrUnknownProvider
	}
	return conf.Exchange(ctx, code)
}

// FetchProfile retrieves the normalized profile for an access token issued
// by the named provider.
func (c *Client) FetchProfile(ctx context.Context, provider, accessToken string) (*Profile, error) {
	switch provider {
	case ProviderGoogle:
		return c.fetchGoogle(ctx, accessToken)
	case ProviderFacebook:
		return c.fetchFacebook(ctx, accessToken)
	case ProviderGitHub:
		return c.fetchGitHub(ctx, accessToken)
	default:
		return nil, ErrUnknownProvider
	}
}

func (c *Client) fetchGoogle(ctx context.Context, accessToken string) (*Profile, error) {
	var data struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := c.getJSON(ctx, c.googleUserInfoURL, "Bearer "+accessToken, &data); err != nil {
		return nil, err
	}

	return &Profile{
		Email:      data.Email,
		Username:   usernameOr(data.Name, data.Email),
		Provider:   ProviderGoogle,
		ProviderID: data.ID,
	}, nil
}

func (c *Client) fetchFacebook(ctx context.Context, accessToken string) (*Profile, error) {
	u := c.facebookUserInfoURL + "?" + url.Values{
		"fields":       {"id,name,email"},
		"access_token": {accessToken},
	}.Encode()

	var data struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := c.getJSON(ctx, u, "", &data); err != nil {
		return nil, err
	}

	return &Profile{
		Email:      data.Email,
		Username:   usernameOr(data.Name, data.Email),
		Provider:   ProviderFacebook,
		ProviderID: data.ID,
	}, nil
}

func (c *Client) fetchGitHub(ctx context.Context, accessToken string) (*Profile, error) {
	var user struct {
		ID    int64  `json:"id"`
		Login string `json:"login"`
		Email string `json:"email"`
	}
	if err := c.getJSON(ctx, c.githubUserURL, "token "+accessToken, &user); err != nil {
		return nil, err
	}

	email := user.Email
	if email == "" {
		// The profile email may be private; the emails endpoint lists the
		// verified addresses with a primary marker.
		var emails []struct {
			Email   string `json:"email"`
			Primary bool   `json:"primary"`
		}
		if err := c.getJSON(ctx, c.githubEmailsURL, "token "+accessToken, &emails); err == nil {
			for _, e := range emails {
				if e.Primary {
					email = e.Email
					break
				}
			}
		}
	}

	return &Profile{
		Email:      email,
		Username:   usernameOr(user.Login, email),
		Provider:   ProviderGitHub,
		ProviderID: fmt.Sprintf("%d", user.ID),
	}, nil
}

func (c *Client) getJSON(ctx context.Context, url, authorization string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("provider returned %s", resp.Status)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// usernameOr falls back to the local part of the email when the provider
// did not supply a display name.
func usernameOr(name, email string) string {
	if name != "" {
		return name
	}
	if i := strings.Index(email, "@"); i > 0 {
		return email[:i]
	}
	return email
}
