package httpx

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/target/folio/internal/domain/route"
	apperrors "github.com/target/folio/internal/errors"
	"github.com/target/folio/internal/service"
)

// userMessage is the text shown to a person for err. Server faults are logged, not shown.
func (h *AdminHandlers) userMessage(r *http.Request, err error) (int, string) {
	status, _ := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger().ErrorContext(r.Context(), "admin request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
		return status, "Something went wrong. Please try again."
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return status, appErr.Message
	}
	return status, err.Error()
}

// afterLogin is where a successful sign-in lands: the requested admin page or the dashboard.
func (h *AdminHandlers) afterLogin(redirect string) string {
	if target := safeRedirectFromURL(redirect); target != "" && target != "/" && hasPathPrefix(target, h.path("/")) {
		return target
	}
	return h.path("/")
}

func (h *AdminHandlers) startSession(w http.ResponseWriter, r *http.Request, res *service.LoginResult, redirect string) {
	h.jar().setSession(w, r, res.Session)
	redirectTo(w, r, h.afterLogin(redirect))
}

func (h *AdminHandlers) localLogin() bool {
	users, ok := h.schema().Collection(h.UserSlug)
	return ok && users.LocalStrategyEnabled()
}

func (h *AdminHandlers) login(w http.ResponseWriter, r *http.Request, v viewRequest) {
	redirect := r.FormValue("redirect")
	b := h.base(r, v, "Login").
		With("Redirect", redirect).
		With("LocalLogin", h.localLogin()).
		With("ForgotURL", h.path(route.PathForgot)).
		With("DashboardURL", h.path("/"))
	if h.OAuthLogin {
		b.With("OAuthURL", h.APIPrefix+"/oauth/login?redirect_uri="+url.QueryEscape(h.afterLogin(redirect)))
	}

	if r.Method == http.MethodPost && h.localLogin() {
		email := strings.TrimSpace(r.PostFormValue("email"))
		res, err := h.Auth.Login(r.Context(), service.LoginInput{
			Collection: h.UserSlug,
			Email:      email,
			Password:   r.PostFormValue("password"),
		})
		if err == nil {
			h.startSession(w, r, res, redirect)
			return
		}
		status, msg := h.userMessage(r, err)
		h.render(w, r, formStatus(r, status), b.With("Email", email).WithError(msg).Build())
		return
	}

	h.render(w, r, http.StatusOK, b.Build())
}

func (h *AdminHandlers) logout(w http.ResponseWriter, r *http.Request, v viewRequest) {
	if c, err := r.Cookie(SessionCookieName); err == nil && c.Value != "" {
		if err := h.Auth.Logout(r.Context(), c.Value); err != nil {
			h.logger().WarnContext(r.Context(), "logout failed", "error", err)
		}
	}
	h.jar().clear(w, r, SessionCookieName)

	msg := "You have been logged out successfully."
	if v.View == route.ViewLogoutInactivity {
		msg = "You have been logged out due to inactivity."
	}
	v.Snap.User = nil
	data := h.base(r, v, "Logout").
		WithMessage(msg).
		With("LoginURL", h.path(route.PathLogin)).
		Build()
	h.render(w, r, http.StatusOK, data)
}

func (h *AdminHandlers) forgot(w http.ResponseWriter, r *http.Request, v viewRequest) {
	b := h.base(r, v, "Forgot Password").With("LoginURL", h.path(route.PathLogin))
	if r.Method == http.MethodPost {
		err := h.Auth.ForgotPassword(r.Context(), service.ForgotPasswordInput{
			Collection: h.UserSlug,
			Email:      strings.TrimSpace(r.PostFormValue("email")),
		})
		if err != nil {
			status, msg := h.userMessage(r, err)
			h.render(w, r, formStatus(r, status), b.WithError(msg).Build())
			return
		}
		// The same notice is shown whether or not the address exists.
		b.With("Sent", true).WithMessage("Check your email for a link that will allow you to securely reset your password.")
	}
	h.render(w, r, http.StatusOK, b.Build())
}

func (h *AdminHandlers) reset(w http.ResponseWriter, r *http.Request, v viewRequest) {
	token := v.Params["token"]
	b := h.base(r, v, "Reset Password").
		With("Token", token).
		With("LoginURL", h.path(route.PathLogin))

	if r.Method == http.MethodPost {
		password := r.PostFormValue("password")
		if password != r.PostFormValue("confirmPassword") {
			h.render(w, r, formStatus(r, http.StatusBadRequest), b.
				WithFieldErrors(map[string]string{"confirmPassword": "Passwords do not match."}).
				Build())
			return
		}
		res, err := h.Auth.ResetPassword(r.Context(), service.ResetPasswordInput{
			Collection: h.UserSlug,
			Token:      token,
			Password:   password,
		})
		if err == nil {
			h.startSession(w, r, res, "")
			return
		}
		status, msg := h.userMessage(r, err)
		h.render(w, r, formStatus(r, status), b.WithError(msg).Build())
		return
	}
	h.render(w, r, http.StatusOK, b.Build())
}

func (h *AdminHandlers) verify(w http.ResponseWriter, r *http.Request, v viewRequest) {
	b := h.base(r, v, "Verify").With("LoginURL", h.path(route.PathLogin))
	slug := ""
	if v.Route != nil {
		slug = v.Route.Slug
	}
	if err := h.Auth.VerifyEmail(r.Context(), slug, v.Params["token"]); err != nil {
		status, msg := h.userMessage(r, err)
		h.render(w, r, status, b.WithError(msg).Build())
		return
	}
	h.render(w, r, http.StatusOK, b.WithMessage("Verified successfully.").Build())
}

func (h *AdminHandlers) firstUser(w http.ResponseWriter, r *http.Request, v viewRequest) {
	b := h.base(r, v, "Create First User")
	if r.Method == http.MethodPost {
		email := strings.TrimSpace(r.PostFormValue("email"))
		password := r.PostFormValue("password")
		if password != r.PostFormValue("confirmPassword") {
			h.render(w, r, formStatus(r, http.StatusBadRequest), b.
				With("Email", email).
				WithFieldErrors(map[string]string{"confirmPassword": "Passwords do not match."}).
				Build())
			return
		}
		res, err := h.Auth.RegisterFirstUser(r.Context(), service.FirstUserInput{
			Email:    email,
			Password: password,
		})
		if err == nil {
			h.startSession(w, r, res, "")
			return
		}
		status, msg := h.userMessage(r, err)
		b.With("Email", email)
		if field := apperrors.GetField(err); field != "" {
			b.WithFieldErrors(map[string]string{field: msg})
		} else {
			b.WithError(msg)
		}
		h.render(w, r, formStatus(r, status), b.Build())
		return
	}
	h.render(w, r, http.StatusOK, b.Build())
}
