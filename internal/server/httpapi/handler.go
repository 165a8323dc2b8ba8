// Package httpapi exposes the authentication service over HTTP. Access
// tokens travel in the Authorization header; refresh tokens live in an
// HTTP-only cookie so frontend code never touches them.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/dmitrijs2005/authgate/internal/common"
	"github.com/dmitrijs2005/authgate/internal/logging"
	"github.com/dmitrijs2005/authgate/internal/server/metrics"
	"github.com/dmitrijs2005/authgate/internal/server/models"
	"github.com/dmitrijs2005/authgate/internal/server/oauth"
	"github.com/dmitrijs2005/authgate/internal/server/services"
)

const refreshCookieName = "refresh_token"

// AuthService is the slice of services.AuthService the handlers need.
type AuthService interface {
	Register(ctx context.Context, email, username, pwd string) (*models.User, error)
	Login(ctx context.Context, email, pwd string) (*services.TokenPair, *models.User, error)
	Refresh(ctx context.Context, refreshSecret string, rotate bool) (*services.TokenPair, error)
	Verify(ctx context.Context, accessToken string) (*models.User, error)
	Logout(ctx context.Context, refreshSecret string) error
}

// OAuthService resolves a provider-issued token into a local session.
type OAuthService interface {
	Login(ctx context.Context, provider, providerToken string) (*services.TokenPair, *models.User, error)
}

// OAuthFlow drives the authorization-code redirect dance.
type OAuthFlow interface {
	StateToken() (string, error)
	AuthCodeURL(provider, state string) (string, error)
	Exchange(ctx context.Context, provider, code string) (*oauth2.Token, error)
}

// Handler holds the HTTP handlers for all auth endpoints.
type Handler struct {
	auth    AuthService
	oauth   OAuthService
	flow    OAuthFlow
	metrics metrics.Collector
	logger  logging.Logger

	refreshTokenTTL time.Duration
	secureCookies   bool
}

// HandlerConfig carries the cookie parameters.
type HandlerConfig struct {
	RefreshTokenTTL time.Duration
	SecureCookies   bool
}

func NewHandler(auth AuthService, oauth OAuthService, flow OAuthFlow, m metrics.Collector, l logging.Logger, cfg HandlerConfig) *Handler {
	return &Handler{
		auth:            auth,
		oauth:           oauth,
		flow:            flow,
		metrics:         m,
		logger:          l.With("module", "httpapi"),
		refreshTokenTTL: cfg.RefreshTokenTTL,
		secureCookies:   cfg.SecureCookies,
	}
}

type userPayload struct {
	ID        int64      `json:"id"`
	Email     string     `json:"email"`
	Username  string     `json:"username"`
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
	LastLogin *time.Time `json:"last_login,omitempty"`
}

func toUserPayload(u *models.User) userPayload {
	p := userPayload{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
	if u.LastLogin.Valid {
		t := u.LastLogin.Time
		p.LastLogin = &t
	}
	return p
}

type tokenPayload struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	User        userPayload `json:"user"`
}

// setRefreshCookie stores the refresh secret in an HTTP-only cookie scoped
// to the refresh and logout endpoints' parent path.
func (h *Handler) setRefreshCookie(w http.ResponseWriter, secret string) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    secret,
		Path:     "/api/auth",
		MaxAge:   int(h.refreshTokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/api/auth",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register creates a new user.
// POST /api/auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email, username and password are required")
		return
	}

	user, err := h.auth.Register(r.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.metrics.RecordRegistration()
	writeData(w, http.StatusCreated, toUserPayload(user))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login verifies credentials, sets the refresh cookie and returns the
// access token.
// POST /api/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	pair, user, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.metrics.RecordLogin(loginOutcome(err))
		writeServiceError(w, err)
		return
	}

	h.metrics.RecordLogin(metrics.OutcomeOK)
	h.setRefreshCookie(w, pair.RefreshToken)
	writeData(w, http.StatusOK, tokenPayload{
		AccessToken: pair.AccessToken,
		TokenType:   pair.TokenType,
		User:        toUserPayload(user),
	})
}

// Refresh rotates the refresh cookie and returns a fresh access token.
// POST /api/auth/refresh
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(refreshCookieName)
	if err != nil || cookie.Value == "" {
		h.metrics.RecordRefresh(metrics.OutcomeRejected)
		writeError(w, http.StatusUnauthorized, "missing refresh token")
		return
	}

	pair, err := h.auth.Refresh(r.Context(), cookie.Value, true)
	if err != nil {
		h.metrics.RecordRefresh(loginOutcome(err))
		h.clearRefreshCookie(w)
		writeServiceError(w, err)
		return
	}

	h.metrics.RecordRefresh(metrics.OutcomeOK)
	h.setRefreshCookie(w, pair.RefreshToken)
	writeData(w, http.StatusOK, map[string]string{
		"access_token": pair.AccessToken,
		"token_type":   pair.TokenType,
	})
}

// Logout revokes the presented refresh token and clears the cookie. Always
// succeeds from the client's point of view.
// POST /api/auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(refreshCookieName); err == nil && cookie.Value != "" {
		if err := h.auth.Logout(r.Context(), cookie.Value); err != nil {
			h.logger.Error(r.Context(), "logout revocation failed", "error", err.Error())
		}
	}
	h.clearRefreshCookie(w)
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "logged out"})
}

// Me returns the authenticated user. Requires the bearer middleware.
// GET /api/auth/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := UserFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	writeData(w, http.StatusOK, toUserPayload(user))
}

// OAuthURL returns the provider's authorization URL plus the state the
// frontend must carry through the redirect.
// GET /api/auth/oauth/{provider}/url
func (h *Handler) OAuthURL(provider string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, err := h.flow.StateToken()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		u, err := h.flow.AuthCodeURL(provider, state)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeData(w, http.StatusOK, map[string]string{"url": u, "state": state})
	}
}

type oauthCallbackRequest struct {
	Code        string `json:"code"`
	AccessToken string `json:"access_token"`
}

// OAuthLogin finishes a provider login. The body carries either the
// authorization code from the redirect or a provider access token obtained
// by the client directly.
// POST /api/auth/oauth/{provider}
func (h *Handler) OAuthLogin(provider string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req oauthCallbackRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		providerToken := req.AccessToken
		if providerToken == "" && req.Code != "" {
			tok, err := h.flow.Exchange(r.Context(), provider, req.Code)
			if err != nil {
				h.metrics.RecordOAuthLogin(provider, metrics.OutcomeRejected)
				writeError(w, http.StatusUnauthorized, "authorization code exchange failed")
				return
			}
			providerToken = tok.AccessToken
		}
		if providerToken == "" {
			writeError(w, http.StatusBadRequest, "code or access_token is required")
			return
		}

		pair, user, err := h.oauth.Login(r.Context(), provider, providerToken)
		if err != nil {
			h.metrics.RecordOAuthLogin(provider, loginOutcome(err))
			writeServiceError(w, err)
			return
		}

		h.metrics.RecordOAuthLogin(provider, metrics.OutcomeOK)
		h.setRefreshCookie(w, pair.RefreshToken)
		writeData(w, http.StatusOK, tokenPayload{
			AccessToken: pair.AccessToken,
			TokenType:   pair.TokenType,
			User:        toUserPayload(user),
		})
	}
}

// Healthz reports liveness.
// GET /healthz
func Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "ok"})
}

// loginOutcome classifies a service error for the outcome metric label.
// Expected rejections and internal failures are counted separately.
func loginOutcome(err error) string {
	switch {
	case errors.Is(err, common.ErrInvalidCredentials),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrInvalidRefreshToken),
		errors.Is(err, common.ErrDuplicateEmail),
		errors.Is(err, common.ErrAccountConflict),
		errors.Is(err, oauth.ErrUnknownProvider):
		return metrics.OutcomeRejected
	default:
		return metrics.OutcomeError
	}
}

// bearerToken extracts the token from an Authorization header.
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}
