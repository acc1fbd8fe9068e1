package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/watertime/watertime/internal/api/models"
	"github.com/watertime/watertime/internal/api/response"
	"github.com/watertime/watertime/internal/stats"
	"github.com/watertime/watertime/internal/user"
)

// UserHandler handles profile, goal and statistics endpoints.
type UserHandler struct {
	users  *user.Service
	stats  *stats.Service
	logger zerolog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users *user.Service, stats *stats.Service, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		users:  users,
		stats:  stats,
		logger: logger,
	}
}

// GetProfile handles GET /v1/user/profile.
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.users.GetProfile(r.Context(), GetUserID(r.Context()))
	if err != nil {
		writeError(w, r, h.logger, err, "get profile")
		return
	}
	response.JSON(w, r, http.StatusOK, profile)
}

// UpdateProfile handles PUT /v1/user/profile.
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req models.ProfileUpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	profile, err := h.users.UpdateProfile(r.Context(), GetUserID(r.Context()), user.ProfileUpdate{
		Name:   req.Name,
		Height: req.Height,
		Weight: req.Weight,
	})
	if err != nil {
		writeError(w, r, h.logger, err, "update profile")
		return
	}
	response.JSON(w, r, http.StatusOK, profile)
}

// UpdateGoal handles PUT /v1/user/goal.
func (h *UserHandler) UpdateGoal(w http.ResponseWriter, r *http.Request) {
	var req models.GoalUpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Goal == nil {
		response.BadRequest(w, r, "validation error", []models.FieldError{
			{Field: "goal", Message: "goal is required", Code: models.CodeRequired},
		})
		return
	}

	profile, err := h.users.UpdateGoal(r.Context(), GetUserID(r.Context()), *req.Goal)
	if err != nil {
		writeError(w, r, h.logger, err, "update goal")
		return
	}
	response.JSON(w, r, http.StatusOK, profile)
}

// Stats handles GET /v1/user/stats?days=N.
func (h *UserHandler) Stats(w http.ResponseWriter, r *http.Request) {
	days, ok := parseDays(w, r)
	if !ok {
		return
	}

	overview, err := h.stats.Overview(r.Context(), GetUserID(r.Context()), days)
	if err != nil {
		writeError(w, r, h.logger, err, "get stats")
		return
	}
	response.JSON(w, r, http.StatusOK, overview)
}

// Weekly handles GET /v1/user/stats/weekly?startDate=YYYY-MM-DD.
func (h *UserHandler) Weekly(w http.ResponseWriter, r *http.Request) {
	h.writePeriod(w, r, "weekly stats", h.stats.Weekly)
}

// Monthly handles GET /v1/user/stats/monthly?startDate=YYYY-MM-DD.
func (h *UserHandler) Monthly(w http.ResponseWriter, r *http.Request) {
	h.writePeriod(w, r, "monthly stats", h.stats.Monthly)
}

type periodFunc func(ctx context.Context, userID string, startDate *time.Time) (*models.PeriodStats, error)

func (h *UserHandler) writePeriod(w http.ResponseWriter, r *http.Request, action string, fn periodFunc) {
	var start *time.Time
	if raw := r.URL.Query().Get("startDate"); raw != "" {
		parsed, err := h.stats.ParseDate(raw)
		if err != nil {
			response.BadRequest(w, r, "invalid query parameter", []models.FieldError{
				{Field: "startDate", Message: "must be formatted as YYYY-MM-DD", Code: models.CodeInvalid},
			})
			return
		}
		start = &parsed
	}

	period, err := fn(r.Context(), GetUserID(r.Context()), start)
	if err != nil {
		writeError(w, r, h.logger, err, "get "+action)
		return
	}
	response.JSON(w, r, http.StatusOK, period)
}
