package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"achievio.org/internal/audit"
	"achievio.org/internal/auth"
	"achievio.org/internal/obs"
	"achievio.org/internal/users"
)

const (
	accessCookieTTL  = 24 * time.Hour
	refreshCookieTTL = 7 * 24 * time.Hour
)

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenBodyRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type sessionResponse struct {
	User         *users.User `json:"user"`
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
}

type refreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "email and password are required")
		return
	}
	if strings.TrimSpace(req.Username) == "" {
		writeError(w, r, http.StatusBadRequest, "username is required")
		return
	}

	user, pair, err := a.auth.Register(r.Context(), auth.RegisterParams{
		Email:    req.Email,
		Username: req.Username,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		obs.ObserveAuthAttempt("register", "failure")
		a.handleAuthError(w, r, err)
		return
	}
	obs.ObserveAuthAttempt("register", "success")
	_ = audit.LogEvent(r.Context(), "auth.register", map[string]any{
		"user_id": user.ID,
		"email":   user.Email,
	})

	a.setSessionCookies(w, pair)
	writeJSON(w, http.StatusCreated, sessionResponse{
		User:         user,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	user, pair, err := a.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		obs.ObserveAuthAttempt("login", "failure")
		a.handleAuthError(w, r, err)
		return
	}
	obs.ObserveAuthAttempt("login", "success")
	_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{
		"user_id": user.ID,
	})

	a.setSessionCookies(w, pair)
	writeJSON(w, http.StatusOK, sessionResponse{
		User:         user,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	encoded, err := a.refreshTokenFromRequest(w, r)
	if err != nil {
		writeError(w, r, http.StatusUnauthorized, err.Error())
		return
	}

	// The envelope names the ledger row; the signed token inside it
	// proves who is asking.
	env := auth.DecodeEnvelope(encoded)
	if env == nil {
		obs.ObserveAuthAttempt("refresh", "failure")
		writeError(w, r, http.StatusUnauthorized, "invalid token")
		return
	}
	userID, err := a.auth.VerifyRefresh(env.RefreshToken)
	if err != nil {
		obs.ObserveAuthAttempt("refresh", "failure")
		a.handleAuthError(w, r, err)
		return
	}

	pair, err := a.auth.Refresh(r.Context(), encoded, userID)
	if err != nil {
		obs.ObserveAuthAttempt("refresh", "failure")
		if errors.Is(err, auth.ErrTokenRevoked) {
			_ = audit.LogEvent(r.Context(), "auth.refresh.reuse_detected", map[string]any{
				"user_id": userID,
			})
		}
		a.handleAuthError(w, r, err)
		return
	}
	obs.ObserveAuthAttempt("refresh", "success")

	a.setSessionCookies(w, pair)
	writeJSON(w, http.StatusOK, refreshResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	encoded, err := a.refreshTokenFromRequest(w, r)
	if err != nil {
		writeError(w, r, http.StatusUnauthorized, err.Error())
		return
	}

	if err := a.auth.Logout(r.Context(), encoded); err != nil {
		a.handleAuthError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.logout", nil)

	a.clearSessionCookies(w)
	writeJSON(w, http.StatusOK, map[string]any{"status": "logged_out"})
}

func (a *API) handleProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "missing access token")
		return
	}

	user, err := a.auth.Profile(r.Context(), userID)
	if err != nil {
		a.handleAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// refreshTokenFromRequest prefers the session cookie; clients without
// cookies send the envelope in the body.
func (a *API) refreshTokenFromRequest(w http.ResponseWriter, r *http.Request) (string, error) {
	if c, err := r.Cookie(refreshCookie); err == nil && strings.TrimSpace(c.Value) != "" {
		return strings.TrimSpace(c.Value), nil
	}
	var req tokenBodyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return "", errors.New("missing refresh token")
	}
	if strings.TrimSpace(req.RefreshToken) == "" {
		return "", errors.New("missing refresh token")
	}
	return strings.TrimSpace(req.RefreshToken), nil
}

func (a *API) setSessionCookies(w http.ResponseWriter, pair auth.TokenPair) {
	http.SetCookie(w, &http.Cookie{
		Name:     accessCookie,
		Value:    pair.AccessToken,
		Path:     "/",
		MaxAge:   int(accessCookieTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookie,
		Value:    pair.RefreshToken,
		Path:     "/",
		MaxAge:   int(refreshCookieTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (a *API) clearSessionCookies(w http.ResponseWriter) {
	for _, name := range []string{accessCookie, refreshCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

func (a *API) handleAuthError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, r, http.StatusUnauthorized, err.Error())
	case errors.Is(err, auth.ErrEmailInUse):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, auth.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenExpired),
		errors.Is(err, auth.ErrTokenInvalid),
		errors.Is(err, auth.ErrTokenRevoked):
		writeError(w, r, http.StatusUnauthorized, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
