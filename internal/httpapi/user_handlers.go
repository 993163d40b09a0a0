package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"achievio.org/internal/achievements"
	"achievio.org/internal/audit"
	"achievio.org/internal/users"
)

type createUserRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
	Points   *int   `json:"points"`
	Active   *bool  `json:"active"`
}

type updateUserRequest struct {
	Email    *string `json:"email"`
	Username *string `json:"username"`
	Phone    *string `json:"phone"`
	Password *string `json:"password"`
	Points   *int    `json:"points"`
	Active   *bool   `json:"active"`
}

func (a *API) handleUsersCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listUsers(w, r)
	case http.MethodPost:
		a.createUser(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleUserResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/users/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	if rest, ok := strings.CutSuffix(path, "/achievements"); ok {
		id, err := parseID(strings.TrimSuffix(rest, "/"))
		if err != nil {
			writeError(w, r, http.StatusNotFound, "user not found")
			return
		}
		a.listUserAwards(w, r, id)
		return
	}

	if strings.Contains(path, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	id, err := parseID(path)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	switch r.Method {
	case http.MethodGet:
		a.getUser(w, r, id)
	case http.MethodPatch:
		a.updateUser(w, r, id)
	case http.MethodDelete:
		a.deleteUser(w, r, id)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch, http.MethodDelete)
	}
}

func (a *API) listUsers(w http.ResponseWriter, r *http.Request) {
	page, limit, err := parsePageQuery(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	res, err := a.users.List(r.Context(), page, limit)
	if err != nil {
		a.handleUserError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *API) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Username) == "" {
		writeError(w, r, http.StatusBadRequest, "email and username are required")
		return
	}
	if req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "password is required")
		return
	}

	hash, err := a.hasher.Hash(req.Password)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	user := &users.User{
		Email:    strings.ToLower(strings.TrimSpace(req.Email)),
		Username: strings.TrimSpace(req.Username),
		Phone:    strings.TrimSpace(req.Phone),
		Password: hash,
		Active:   true,
	}
	if req.Points != nil {
		user.Points = *req.Points
	}
	if req.Active != nil {
		user.Active = *req.Active
	}

	if err := a.users.Create(r.Context(), user); err != nil {
		a.handleUserError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "users.create", map[string]any{
		"target_user_id": user.ID,
	})
	writeJSON(w, http.StatusCreated, user)
}

func (a *API) getUser(w http.ResponseWriter, r *http.Request, id int64) {
	user, err := a.users.Find(r.Context(), id)
	if err != nil {
		a.handleUserError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (a *API) updateUser(w http.ResponseWriter, r *http.Request, id int64) {
	var req updateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	upd := users.Update{
		Username: req.Username,
		Phone:    req.Phone,
		Email:    req.Email,
		Points:   req.Points,
		Active:   req.Active,
	}
	if req.Password != nil {
		if *req.Password == "" {
			writeError(w, r, http.StatusBadRequest, "password must not be empty")
			return
		}
		hash, err := a.hasher.Hash(*req.Password)
		if err != nil {
			writeError(w, r, http.StatusInternalServerError, "internal error")
			return
		}
		upd.Password = &hash
	}

	user, err := a.users.Update(r.Context(), id, upd)
	if err != nil {
		a.handleUserError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "users.update", map[string]any{
		"target_user_id": id,
	})
	writeJSON(w, http.StatusOK, user)
}

func (a *API) deleteUser(w http.ResponseWriter, r *http.Request, id int64) {
	if err := a.users.SoftDelete(r.Context(), id); err != nil {
		a.handleUserError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "users.delete", map[string]any{
		"target_user_id": id,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) listUserAwards(w http.ResponseWriter, r *http.Request, id int64) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if _, err := a.users.Find(r.Context(), id); err != nil {
		a.handleUserError(w, r, err)
		return
	}
	awards, err := a.achievements.ListAwards(r.Context(), id)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	if awards == nil {
		awards = []achievements.Award{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": awards})
}

func (a *API) handleUserError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, users.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, users.ErrEmailConflict):
		writeError(w, r, http.StatusConflict, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
