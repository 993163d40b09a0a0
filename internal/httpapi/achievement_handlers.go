package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"achievio.org/internal/achievements"
	"achievio.org/internal/audit"
	"achievio.org/internal/obs"
	"achievio.org/internal/stream"
	"achievio.org/internal/users"
)

type createAchievementRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Points      int    `json:"points"`
	Special     bool   `json:"special"`
}

type updateAchievementRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Points      *int    `json:"points"`
	Special     *bool   `json:"special"`
}

type awardRequest struct {
	UserID int64 `json:"userId"`
}

func (a *API) handleAchievementsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listAchievements(w, r)
	case http.MethodPost:
		a.createAchievement(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleAchievementResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/achievements/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	if rest, ok := strings.CutSuffix(path, "/award"); ok {
		id, err := parseID(strings.TrimSuffix(rest, "/"))
		if err != nil {
			writeError(w, r, http.StatusNotFound, "achievement not found")
			return
		}
		a.awardAchievement(w, r, id)
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
		a.getAchievement(w, r, id)
	case http.MethodPatch:
		a.updateAchievement(w, r, id)
	case http.MethodDelete:
		a.deleteAchievement(w, r, id)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch, http.MethodDelete)
	}
}

func (a *API) listAchievements(w http.ResponseWriter, r *http.Request) {
	page, limit, err := parsePageQuery(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	res, err := a.achievements.List(r.Context(), page, limit)
	if err != nil {
		a.handleAchievementError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *API) createAchievement(w http.ResponseWriter, r *http.Request) {
	var req createAchievementRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeError(w, r, http.StatusBadRequest, "title is required")
		return
	}
	if req.Points < 0 {
		writeError(w, r, http.StatusBadRequest, "points must be >= 0")
		return
	}

	achievement := &achievements.Achievement{
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Points:      req.Points,
		Special:     req.Special,
	}
	if err := a.achievements.Create(r.Context(), achievement); err != nil {
		a.handleAchievementError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "achievements.create", map[string]any{
		"achievement_id": achievement.ID,
	})
	writeJSON(w, http.StatusCreated, achievement)
}

func (a *API) getAchievement(w http.ResponseWriter, r *http.Request, id int64) {
	achievement, err := a.achievements.Find(r.Context(), id)
	if err != nil {
		a.handleAchievementError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, achievement)
}

func (a *API) updateAchievement(w http.ResponseWriter, r *http.Request, id int64) {
	var req updateAchievementRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Points != nil && *req.Points < 0 {
		writeError(w, r, http.StatusBadRequest, "points must be >= 0")
		return
	}

	achievement, err := a.achievements.Update(r.Context(), id, achievements.Update{
		Title:       req.Title,
		Description: req.Description,
		Points:      req.Points,
		Special:     req.Special,
	})
	if err != nil {
		a.handleAchievementError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "achievements.update", map[string]any{
		"achievement_id": id,
	})
	writeJSON(w, http.StatusOK, achievement)
}

func (a *API) deleteAchievement(w http.ResponseWriter, r *http.Request, id int64) {
	if err := a.achievements.SoftDelete(r.Context(), id); err != nil {
		a.handleAchievementError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "achievements.delete", map[string]any{
		"achievement_id": id,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) awardAchievement(w http.ResponseWriter, r *http.Request, id int64) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req awardRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.UserID <= 0 {
		writeError(w, r, http.StatusBadRequest, "userId is required")
		return
	}
	if _, err := a.users.Find(r.Context(), req.UserID); err != nil {
		if errors.Is(err, users.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	achievement, err := a.achievements.Find(r.Context(), id)
	if err != nil {
		a.handleAchievementError(w, r, err)
		return
	}

	award, err := a.achievements.Award(r.Context(), req.UserID, id)
	if err != nil {
		a.handleAchievementError(w, r, err)
		return
	}
	obs.ObserveAward()
	_ = audit.LogEvent(r.Context(), "achievements.award", map[string]any{
		"achievement_id": id,
		"target_user_id": req.UserID,
		"points":         achievement.Points,
	})
	if a.stream != nil {
		a.stream.Publish(stream.AwardEvent{
			UserID:        req.UserID,
			AchievementID: id,
			Title:         achievement.Title,
			Points:        achievement.Points,
			Special:       achievement.Special,
			Timestamp:     time.Now().UTC(),
		})
	}

	writeJSON(w, http.StatusCreated, award)
}

func (a *API) handleAchievementError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, achievements.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, achievements.ErrAlreadyAwarded):
		writeError(w, r, http.StatusConflict, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
