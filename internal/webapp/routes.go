package webapp

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/mail"

	"github.com/dmitrymomot/manifold/internal/auth"
	"github.com/dmitrymomot/manifold/internal/service"
	"github.com/dmitrymomot/manifold/internal/store"
	"github.com/dmitrymomot/manifold/pkg/sessioncookie"
)

type userView struct {
	ID            string  `json:"id"`
	Email         string  `json:"email"`
	Name          string  `json:"name"`
	EmailVerified bool    `json:"emailVerified"`
	Image         *string `json:"image"`
}

func viewOf(u auth.User) userView {
	return userView{ID: u.ID, Email: u.Email, Name: u.Name, EmailVerified: u.EmailVerified, Image: u.Image}
}

func (a *App) handleSignIn(w http.ResponseWriter, r *http.Request) {
	lc := loadContext(r)
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !a.decode(w, r, &req) {
		return
	}
	if fields := validateCredentials(req.Email, req.Password); len(fields) > 0 {
		respondFieldErrors(w, fields)
		return
	}

	res, err := lc.Container.Auth.SignIn(r.Context(), r.Header, req.Email, req.Password)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	applyCookies(w, res.SetCookies)
	respondJSON(w, http.StatusOK, map[string]any{"user": viewOf(res.User)})
}

func (a *App) handleSignUp(w http.ResponseWriter, r *http.Request) {
	lc := loadContext(r)
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	if !a.decode(w, r, &req) {
		return
	}
	fields := validateCredentials(req.Email, req.Password)
	if req.Name == "" {
		fields["name"] = "Name is required."
	}
	if len(fields) > 0 {
		respondFieldErrors(w, fields)
		return
	}

	outcome, err := lc.Container.Auth.SignUp(r.Context(), r.Header, req.Email, req.Password, req.Name)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	switch o := outcome.(type) {
	case auth.PendingSignUp:
		respondJSON(w, http.StatusOK, map[string]any{
			"status": "pending_verification",
			"email":  o.Email,
		})
	case auth.ConfirmedSignUp:
		applyCookies(w, o.SetCookies)
		respondJSON(w, http.StatusOK, map[string]any{
			"status": "signed_in",
			"user":   viewOf(o.User),
		})
	}
}

// handleSignOut revokes the session and redirects home. The session
// cookies are cleared unconditionally, upstream failure included, so a
// browser never keeps a dead session.
func (a *App) handleSignOut(w http.ResponseWriter, r *http.Request) {
	lc := loadContext(r)

	cookies := lc.Container.Auth.SignOut(r.Context(), r.Header)
	applyCookies(w, cookies)
	sessioncookie.Forward(sessioncookie.ClearHeaders(), w.Header())

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (a *App) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	lc := loadContext(r)
	var req struct {
		Email      string `json:"email"`
		RedirectTo string `json:"redirectTo"`
	}
	if !a.decode(w, r, &req) {
		return
	}
	if req.Email == "" {
		respondFieldErrors(w, map[string]string{"email": "Email is required."})
		return
	}

	if err := lc.Container.Auth.RequestPasswordReset(r.Context(), r.Header, req.Email, req.RedirectTo); err != nil {
		a.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"message": "If an account exists for that email, a reset link is on its way.",
	})
}

func (a *App) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	lc := loadContext(r)
	var req struct {
		Token       string `json:"token"`
		NewPassword string `json:"newPassword"`
	}
	if !a.decode(w, r, &req) {
		return
	}
	fields := map[string]string{}
	if req.Token == "" {
		fields["token"] = "Reset token is required."
	}
	if req.NewPassword == "" {
		fields["newPassword"] = "New password is required."
	}
	if len(fields) > 0 {
		respondFieldErrors(w, fields)
		return
	}

	if err := lc.Container.Auth.ResetPassword(r.Context(), r.Header, req.Token, req.NewPassword); err != nil {
		a.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"message": "Password updated. Please sign in."})
}

func (a *App) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	lc := loadContext(r)
	var req struct {
		CurrentPassword     string `json:"currentPassword"`
		NewPassword         string `json:"newPassword"`
		RevokeOtherSessions bool   `json:"revokeOtherSessions"`
	}
	if !a.decode(w, r, &req) {
		return
	}
	fields := map[string]string{}
	if req.CurrentPassword == "" {
		fields["currentPassword"] = "Current password is required."
	}
	if req.NewPassword == "" {
		fields["newPassword"] = "New password is required."
	}
	if len(fields) > 0 {
		respondFieldErrors(w, fields)
		return
	}

	err := lc.Container.Auth.ChangePassword(r.Context(), r.Header, req.CurrentPassword, req.NewPassword, req.RevokeOtherSessions)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"message": "Password changed."})
}

// handleMe reports the signed-in user with their profile. An anonymous
// request is a normal outcome, not an error.
func (a *App) handleMe(w http.ResponseWriter, r *http.Request) {
	lc := loadContext(r)

	user, err := lc.Container.Auth.GetCurrentUser(r.Context(), r.Header)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	if user == nil {
		respondJSON(w, http.StatusOK, map[string]any{"user": nil})
		return
	}

	full, err := lc.Container.Users.GetUserWithProfile(r.Context(), user.ID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			respondJSON(w, http.StatusOK, map[string]any{"user": viewOf(*user)})
			return
		}
		a.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"user":    viewOf(*user),
		"profile": profileView(full.Profile),
	})
}

type profilePayload struct {
	FullName  *string `json:"fullName"`
	AvatarURL *string `json:"avatarUrl"`
	Bio       *string `json:"bio"`
}

func profileView(p *store.Profile) *profilePayload {
	if p == nil {
		return nil
	}
	return &profilePayload{FullName: p.FullName, AvatarURL: p.AvatarURL, Bio: p.Bio}
}

func (a *App) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	lc := loadContext(r)

	user, err := lc.Container.Auth.GetCurrentUser(r.Context(), r.Header)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	if user == nil {
		a.respondError(w, r, auth.ErrUnauthorized)
		return
	}

	var req profilePayload
	if !a.decode(w, r, &req) {
		return
	}

	profile, err := lc.Container.Users.UpdateProfile(r.Context(), user.ID, service.UpdateProfileInput{
		FullName:  req.FullName,
		AvatarURL: req.AvatarURL,
		Bio:       req.Bio,
	})
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"profile": profileView(profile)})
}

func validateCredentials(email, password string) map[string]string {
	fields := map[string]string{}
	if email == "" {
		fields["email"] = "Email is required."
	} else if _, err := mail.ParseAddress(email); err != nil {
		fields["email"] = "Email address is not valid."
	}
	if password == "" {
		fields["password"] = "Password is required."
	}
	return fields
}

func applyCookies(w http.ResponseWriter, cookies []string) {
	for _, c := range cookies {
		w.Header().Add("Set-Cookie", c)
	}
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondFieldErrors(w http.ResponseWriter, fields map[string]string) {
	respondJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": fields})
}

func (a *App) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]any{"error": "Malformed request body."})
		return false
	}
	return true
}

// respondError translates any failure into user-facing copy. Identity
// codes map to matching statuses; everything else is a 500 with a
// generic message and a log line carrying the real cause.
func (a *App) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	var ae *auth.Error
	switch {
	case errors.As(err, &ae):
		switch ae.Code {
		case "UNAUTHORIZED", "INVALID_EMAIL_OR_PASSWORD", "EMAIL_NOT_VERIFIED", "INVALID_PASSWORD", "STATE_MISMATCH":
			status = http.StatusUnauthorized
		case "USER_ALREADY_EXISTS":
			status = http.StatusConflict
		case "USER_NOT_FOUND", "PROVIDER_NOT_FOUND":
			status = http.StatusNotFound
		default:
			status = http.StatusBadRequest
		}
	case errors.Is(err, store.ErrUserNotFound), errors.Is(err, store.ErrProfileNotFound):
		status = http.StatusNotFound
	default:
		a.log.ErrorContext(r.Context(), "request failed",
			slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	respondJSON(w, status, map[string]any{"error": service.UserMessage(err)})
}
