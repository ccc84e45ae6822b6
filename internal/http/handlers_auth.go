package httpx

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	domainauth "github.com/target/folio/internal/domain/auth"
	"github.com/target/folio/internal/service"
)

const (
	oauthStateCookie    = "oauth_state"
	oauthNonceCookie    = "oauth_nonce"
	postLoginCookie     = "post_login_redirect"
	oauthCookieLifetime = 10 * time.Minute
)

// cookieJar writes Folio's cookies with consistent attributes.
type cookieJar struct {
	Domain string
}

func (c cookieJar) set(w http.ResponseWriter, r *http.Request, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   c.Domain,
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}

// clear mirrors the attributes used when setting so browsers drop the cookie.
func (c cookieJar) clear(w http.ResponseWriter, r *http.Request, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   c.Domain,
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
		SameSite: http.SameSiteLaxMode,
	})
}

// setSession writes the session cookie based on the session's expiry.
func (c cookieJar) setSession(w http.ResponseWriter, r *http.Request, s domainauth.Session) {
	c.set(w, r, SessionCookieName, s.ID, max(int(time.Until(s.ExpiresAt).Seconds()), 1))
}

// AuthHandlers serves the external identity provider login flow.
type AuthHandlers struct {
	Svc          AuthServiceInterface
	CookieDomain string
	// AdminRoot is where the browser lands after login when no redirect was requested.
	AdminRoot string
	Logger    *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func (h *AuthHandlers) jar() cookieJar { return cookieJar{Domain: h.CookieDomain} }

func (h *AuthHandlers) adminRoot() string {
	if h.AdminRoot == "" {
		return "/"
	}
	return h.AdminRoot
}

// Login starts the provider flow.
// GET {api}/oauth/login?redirect_uri=<optional_redirect>.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	redirectURI := r.URL.Query().Get("redirect_uri")
	if redirectURI == "" {
		redirectURI = h.adminRoot()
	}
	redirectURI = safeRedirectPath(redirectURI)

	result, err := h.Svc.BeginLogin(r.Context(), redirectURI)
	if err != nil {
		WriteAppError(w, r, err)
		return
	}

	maxAge := int(oauthCookieLifetime.Seconds())
	jar := h.jar()
	jar.set(w, r, oauthStateCookie, result.State, maxAge)
	jar.set(w, r, oauthNonceCookie, result.Nonce, maxAge)
	jar.set(w, r, postLoginCookie, redirectURI, maxAge)

	http.Redirect(w, r, result.AuthURL, http.StatusFound)
}

// Callback completes the provider flow and starts a session.
// GET {api}/oauth/callback?code=<code>&state=<state>.
func (h *AuthHandlers) Callback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "missing_code", Err: errors.New("authorization code is required")})
		return
	}
	stateCookie, err := r.Cookie(oauthStateCookie)
	if state == "" || err != nil || stateCookie.Value != state {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_state", Err: errors.New("invalid or missing state parameter")})
		return
	}
	nonceCookie, err := r.Cookie(oauthNonceCookie)
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "missing_nonce", Err: errors.New("missing nonce parameter")})
		return
	}

	result, err := h.Svc.CompleteLogin(r.Context(), service.CompleteLoginInput{
		Code:  code,
		State: state,
		Nonce: nonceCookie.Value,
	})
	if err != nil {
		h.logger().WarnContext(r.Context(), "login completion failed", "error", err)
		WriteError(w, ErrorParams{Code: http.StatusUnauthorized, ErrCode: "login_completion_failed", Err: errors.New("login could not be completed")})
		return
	}

	jar := h.jar()
	jar.setSession(w, r, result.Session)
	jar.clear(w, r, oauthStateCookie)
	jar.clear(w, r, oauthNonceCookie)

	redirectURI := h.adminRoot()
	if c, err := r.Cookie(postLoginCookie); err == nil {
		if u, parseErr := url.Parse(c.Value); parseErr == nil && !u.IsAbs() && u.Host == "" {
			redirectURI = safeRedirectPath(c.Value)
		}
		jar.clear(w, r, postLoginCookie)
	}
	http.Redirect(w, r, redirectURI, http.StatusFound)
}
