package httpx

import (
	"net/http"

	"github.com/target/folio/internal/domain/route"
	apperrors "github.com/target/folio/internal/errors"
	"github.com/target/folio/internal/service"
)

// credentialsBody is the login, first-register and reset-password payload.
// Extra user fields for first-register arrive through the open map decode.
type credentialsBody struct {
	Email    string
	Password string
	Token    string
	Data     map[string]any
}

func decodeCredentials(w http.ResponseWriter, r *http.Request) (credentialsBody, bool) {
	var raw map[string]any
	if !DecodeJSON(w, r, &raw) {
		return credentialsBody{}, false
	}
	str := func(k string) string {
		s, _ := raw[k].(string)
		delete(raw, k)
		return s
	}
	return credentialsBody{
		Email:    str("email"),
		Password: str("password"),
		Token:    str("token"),
		Data:     raw,
	}, true
}

// loginResponse is returned by every endpoint that starts a session.
// The session id itself only travels in the cookie.
type loginResponse struct {
	Message string         `json:"message"`
	User    map[string]any `json:"user"`
	Exp     int64          `json:"exp"`
}

func (h *APIHandlers) authOp(w http.ResponseWriter, r *http.Request, slug, op string) {
	switch op {
	case "init":
		h.initStatus(w, r, slug)
	case "me":
		h.me(w, r, slug)
	case "login":
		h.login(w, r, slug)
	case "logout":
		h.logout(w, r)
	case "first-register":
		h.firstRegister(w, r, slug)
	case "forgot-password":
		h.forgotPassword(w, r, slug)
	case "reset-password":
		h.resetPassword(w, r, slug)
	default:
		h.notFound(w, r)
	}
}

func (h *APIHandlers) startSession(w http.ResponseWriter, r *http.Request, res *service.LoginResult, message string) {
	h.jar().setSession(w, r, res.Session)
	WriteJSON(w, http.StatusOK, loginResponse{
		Message: message,
		User:    h.Auth.Me(res.User),
		Exp:     res.Session.ExpiresAt.Unix(),
	})
}

func (h *APIHandlers) initStatus(w http.ResponseWriter, r *http.Request, slug string) {
	if slug != h.UserSlug {
		h.notFound(w, r)
		return
	}
	switch h.Init.Status(r.Context()) {
	case route.InitReady:
		WriteJSON(w, http.StatusOK, map[string]bool{"initialized": true})
	case route.InitUninitialized:
		WriteJSON(w, http.StatusOK, map[string]bool{"initialized": false})
	default:
		WriteAppError(w, r, &apperrors.AppError{Code: apperrors.ErrCodeTimeout, Message: "initialization status is not yet known"})
	}
}

func (h *APIHandlers) me(w http.ResponseWriter, r *http.Request, slug string) {
	user := UserFromContext(r.Context())
	if user == nil || user.Collection != slug {
		WriteJSON(w, http.StatusOK, map[string]any{"user": nil})
		return
	}
	body := map[string]any{"user": h.Auth.Me(user), "collection": slug}
	if sess := SessionFromContext(r.Context()); sess != nil {
		body["exp"] = sess.ExpiresAt.Unix()
	}
	WriteJSON(w, http.StatusOK, body)
}

func (h *APIHandlers) login(w http.ResponseWriter, r *http.Request, slug string) {
	body, ok := decodeCredentials(w, r)
	if !ok {
		return
	}
	res, err := h.Auth.Login(r.Context(), service.LoginInput{Collection: slug, Email: body.Email, Password: body.Password})
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	h.startSession(w, r, res, "Auth Passed")
}

func (h *APIHandlers) logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(SessionCookieName); err == nil {
		if err := h.Auth.Logout(r.Context(), c.Value); err != nil {
			h.logger().WarnContext(r.Context(), "logout failed", "error", err)
		}
	}
	h.jar().clear(w, r, SessionCookieName)
	WriteJSON(w, http.StatusOK, map[string]string{"message": "You have been logged out successfully."})
}

func (h *APIHandlers) firstRegister(w http.ResponseWriter, r *http.Request, slug string) {
	if slug != h.UserSlug {
		h.notFound(w, r)
		return
	}
	body, ok := decodeCredentials(w, r)
	if !ok {
		return
	}
	res, err := h.Auth.RegisterFirstUser(r.Context(), service.FirstUserInput{
		Email:    body.Email,
		Password: body.Password,
		Data:     body.Data,
	})
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	h.startSession(w, r, res, "Successfully registered first user.")
}

func (h *APIHandlers) forgotPassword(w http.ResponseWriter, r *http.Request, slug string) {
	body, ok := decodeCredentials(w, r)
	if !ok {
		return
	}
	if err := h.Auth.ForgotPassword(r.Context(), service.ForgotPasswordInput{Collection: slug, Email: body.Email}); err != nil {
		WriteAppError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"message": "Success"})
}

func (h *APIHandlers) resetPassword(w http.ResponseWriter, r *http.Request, slug string) {
	body, ok := decodeCredentials(w, r)
	if !ok {
		return
	}
	res, err := h.Auth.ResetPassword(r.Context(), service.ResetPasswordInput{
		Collection: slug,
		Token:      body.Token,
		Password:   body.Password,
	})
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	h.startSession(w, r, res, "Password reset successfully.")
}

func (h *APIHandlers) verify(w http.ResponseWriter, r *http.Request, slug, token string) {
	if err := h.Auth.VerifyEmail(r.Context(), slug, token); err != nil {
		WriteAppError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"message": "Email verified successfully."})
}

// rotateAPIKey returns the new key once; only its keyed hash is stored.
func (h *APIHandlers) rotateAPIKey(w http.ResponseWriter, r *http.Request, slug, id string) {
	key, err := h.Auth.RotateAPIKey(r.Context(), service.RotateAPIKeyInput{
		Collection: slug,
		ID:         id,
		Caller:     callerFromContext(r.Context()),
	})
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	WriteJSON(w, http.StatusOK, map[string]string{"apiKey": key})
}
