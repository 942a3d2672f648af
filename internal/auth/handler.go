package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Handler exposes the identity endpoints as a raw http.Handler. The
// application mounts it under Engine.BasePath and relays requests
// byte-for-byte; browsers and API clients hit these routes directly
// for flows that need their own HTTP surface, OAuth callbacks above
// all.
func Handler(e *Engine) http.Handler {
	r := chi.NewRouter()

	r.Get("/get-session", handleGetSession(e))
	r.Post("/sign-in/email", handleSignInEmail(e))
	r.Post("/sign-up/email", handleSignUpEmail(e))
	r.Get("/verify-email", handleVerifyEmail(e))
	r.Post("/sign-in/social", handleSignInSocial(e))
	r.Get("/callback/{provider}", handleCallback(e))
	r.Post("/sign-out", handleSignOut(e))
	r.Post("/change-password", handleChangePassword(e))
	r.Post("/request-password-reset", handleRequestPasswordReset(e))
	r.Post("/reset-password", handleResetPassword(e))

	return r
}

type userPayload struct {
	ID            string  `json:"id"`
	Email         string  `json:"email"`
	Name          string  `json:"name"`
	EmailVerified bool    `json:"emailVerified"`
	Image         *string `json:"image"`
}

func toUserPayload(u User) userPayload {
	return userPayload{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.Name,
		EmailVerified: u.EmailVerified,
		Image:         u.Image,
	}
}

func handleGetSession(e *Engine) http.HandlerFunc {
	type response struct {
		Session *Session     `json:"session"`
		User    *userPayload `json:"user"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := e.Session(r.Context(), r.Header)
		if err != nil {
			writeError(e, w, r, err)
			return
		}
		if data == nil {
			writeJSON(w, http.StatusOK, response{})
			return
		}
		u := toUserPayload(data.User)
		writeJSON(w, http.StatusOK, response{Session: &data.Session, User: &u})
	}
}

func handleSignInEmail(e *Engine) http.HandlerFunc {
	type request struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if !decodeJSON(w, r, &req) {
			return
		}
		res, err := e.SignInEmail(r.Context(), req.Email, req.Password)
		if err != nil {
			writeError(e, w, r, err)
			return
		}
		setCookies(w, res.SetCookies)
		writeJSON(w, http.StatusOK, map[string]any{"user": toUserPayload(res.User)})
	}
}

func handleSignUpEmail(e *Engine) http.HandlerFunc {
	type request struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if !decodeJSON(w, r, &req) {
			return
		}
		outcome, err := e.SignUpEmail(r.Context(), req.Email, req.Password, req.Name)
		if err != nil {
			writeError(e, w, r, err)
			return
		}
		switch o := outcome.(type) {
		case PendingSignUp:
			writeJSON(w, http.StatusOK, map[string]any{
				"status": "pending_verification",
				"email":  o.Email,
				"name":   o.Name,
			})
		case ConfirmedSignUp:
			setCookies(w, o.SetCookies)
			writeJSON(w, http.StatusOK, map[string]any{
				"status": "signed_in",
				"user":   toUserPayload(o.User),
			})
		}
	}
}

func handleVerifyEmail(e *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookies, _, err := e.VerifyEmail(r.Context(), r.URL.Query().Get("token"))
		if err != nil {
			writeError(e, w, r, err)
			return
		}
		setCookies(w, cookies)
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

func handleSignInSocial(e *Engine) http.HandlerFunc {
	type request struct {
		Provider    string `json:"provider"`
		CallbackURL string `json:"callbackURL"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if !decodeJSON(w, r, &req) {
			return
		}
		res, err := e.SignInSocial(r.Context(), req.Provider, req.CallbackURL)
		if err != nil {
			writeError(e, w, r, err)
			return
		}
		setCookies(w, res.SetCookies)
		writeJSON(w, http.StatusOK, map[string]any{"url": res.RedirectURL})
	}
}

func handleCallback(e *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookies, target, err := e.OAuthCallback(r.Context(), r.Header,
			chi.URLParam(r, "provider"),
			r.URL.Query().Get("code"),
			r.URL.Query().Get("state"))
		if err != nil {
			writeError(e, w, r, err)
			return
		}
		setCookies(w, cookies)
		if target == "" {
			target = "/"
		}
		http.Redirect(w, r, target, http.StatusSeeOther)
	}
}

func handleSignOut(e *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookies, err := e.SignOut(r.Context(), r.Header)
		if err != nil {
			writeError(e, w, r, err)
			return
		}
		setCookies(w, cookies)
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}

func handleChangePassword(e *Engine) http.HandlerFunc {
	type request struct {
		CurrentPassword     string `json:"currentPassword"`
		NewPassword         string `json:"newPassword"`
		RevokeOtherSessions bool   `json:"revokeOtherSessions"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if !decodeJSON(w, r, &req) {
			return
		}
		err := e.ChangePassword(r.Context(), r.Header, req.CurrentPassword, req.NewPassword, req.RevokeOtherSessions)
		if err != nil {
			writeError(e, w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}

func handleRequestPasswordReset(e *Engine) http.HandlerFunc {
	type request struct {
		Email      string `json:"email"`
		RedirectTo string `json:"redirectTo"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if !decodeJSON(w, r, &req) {
			return
		}
		if err := e.RequestPasswordReset(r.Context(), req.Email, req.RedirectTo); err != nil {
			writeError(e, w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}

func handleResetPassword(e *Engine) http.HandlerFunc {
	type request struct {
		Token       string `json:"token"`
		NewPassword string `json:"newPassword"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if !decodeJSON(w, r, &req) {
			return
		}
		if err := e.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
			writeError(e, w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}

func setCookies(w http.ResponseWriter, cookies []string) {
	for _, c := range cookies {
		w.Header().Add("Set-Cookie", c)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"code":    "INVALID_BODY",
			"message": "malformed request body",
		})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps identity error codes to HTTP statuses. Unknown codes
// and non-identity errors fall through to 500.
func statusFor(err error) int {
	var ae *Error
	if !errors.As(err, &ae) {
		return http.StatusInternalServerError
	}
	switch ae.Code {
	case "UNAUTHORIZED":
		return http.StatusUnauthorized
	case "USER_ALREADY_EXISTS":
		return http.StatusConflict
	case "USER_NOT_FOUND", "PROVIDER_NOT_FOUND":
		return http.StatusNotFound
	case "INVALID_EMAIL_OR_PASSWORD", "EMAIL_NOT_VERIFIED", "INVALID_PASSWORD", "STATE_MISMATCH":
		return http.StatusUnauthorized
	default:
		return http.StatusBadRequest
	}
}

func writeError(e *Engine, w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	var ae *Error
	if errors.As(err, &ae) {
		writeJSON(w, status, map[string]any{"code": ae.Code, "message": ae.Message})
		return
	}
	e.log.ErrorContext(r.Context(), "identity operation failed",
		slog.String("path", r.URL.Path), slog.Any("error", err))
	writeJSON(w, status, map[string]any{
		"code":    "INTERNAL_ERROR",
		"message": "internal error",
	})
}
