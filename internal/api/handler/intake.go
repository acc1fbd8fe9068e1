package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/watertime/watertime/internal/api/models"
	"github.com/watertime/watertime/internal/api/response"
	"github.com/watertime/watertime/internal/intake"
	"github.com/watertime/watertime/internal/stats"
)

// IntakeHandler handles intake endpoints.
type IntakeHandler struct {
	intakes *intake.Service
	stats   *stats.Service
	logger  zerolog.Logger
}

// NewIntakeHandler creates a new IntakeHandler.
func NewIntakeHandler(intakes *intake.Service, stats *stats.Service, logger zerolog.Logger) *IntakeHandler {
	return &IntakeHandler{
		intakes: intakes,
		stats:   stats,
		logger:  logger,
	}
}

// Create handles POST /v1/intake.
func (h *IntakeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.IntakeCreateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	input := intake.NewInput{
		Amount: req.Amount,
		Source: intake.Source(req.Source),
		Note:   req.Note,
	}
	if req.Timestamp != nil {
		ts := req.Timestamp.Time()
		input.Timestamp = &ts
	}

	in, err := h.intakes.Record(r.Context(), GetUserID(r.Context()), input)
	if err != nil {
		writeError(w, r, h.logger, err, "record intake")
		return
	}

	response.Created(w, r, "/v1/intake/"+in.ID, intake.ToAPI(in))
}

// Daily handles GET /v1/intake/daily?date=YYYY-MM-DD.
func (h *IntakeHandler) Daily(w http.ResponseWriter, r *http.Request) {
	date := h.stats.Today()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := h.stats.ParseDate(raw)
		if err != nil {
			writeError(w, r, h.logger, err, "get daily intake")
			return
		}
		date = parsed
	}
	h.writeDaily(w, r, date)
}

// Today handles GET /v1/intake/today.
func (h *IntakeHandler) Today(w http.ResponseWriter, r *http.Request) {
	h.writeDaily(w, r, h.stats.Today())
}

func (h *IntakeHandler) writeDaily(w http.ResponseWriter, r *http.Request, date time.Time) {
	daily, err := h.stats.Daily(r.Context(), GetUserID(r.Context()), date)
	if err != nil {
		writeError(w, r, h.logger, err, "get daily intake")
		return
	}
	response.JSON(w, r, http.StatusOK, daily)
}

// History handles GET /v1/intake/history?days=N.
func (h *IntakeHandler) History(w http.ResponseWriter, r *http.Request) {
	days, ok := parseDays(w, r)
	if !ok {
		return
	}

	history, err := h.stats.History(r.Context(), GetUserID(r.Context()), days)
	if err != nil {
		writeError(w, r, h.logger, err, "get intake history")
		return
	}
	response.JSON(w, r, http.StatusOK, history)
}

// Get handles GET /v1/intake/{id}.
func (h *IntakeHandler) Get(w http.ResponseWriter, r *http.Request) {
	in, err := h.intakes.Get(r.Context(), GetUserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err, "get intake")
		return
	}
	response.JSON(w, r, http.StatusOK, intake.ToAPI(in))
}

// Update handles PUT /v1/intake/{id}. Only the amount can change.
func (h *IntakeHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req models.IntakeUpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	in, err := h.intakes.UpdateAmount(r.Context(), GetUserID(r.Context()), chi.URLParam(r, "id"), req.Amount)
	if err != nil {
		writeError(w, r, h.logger, err, "update intake")
		return
	}
	response.JSON(w, r, http.StatusOK, intake.ToAPI(in))
}

// Delete handles DELETE /v1/intake/{id}.
func (h *IntakeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.intakes.Delete(r.Context(), GetUserID(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.logger, err, "delete intake")
		return
	}
	response.NoContent(w, r)
}

// parseDays reads the optional days query parameter. Values outside the
// accepted window are clamped rather than rejected.
func parseDays(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("days")
	if raw == "" {
		return stats.DefaultDays, true
	}
	days, err := strconv.Atoi(raw)
	if err != nil {
		response.BadRequest(w, r, "invalid query parameter", []models.FieldError{
			{Field: "days", Message: "must be an integer", Code: models.CodeInvalid},
		})
		return 0, false
	}
	return stats.ClampDays(days), true
}
