// Package handler provides HTTP handlers for the WaterTime API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/watertime/watertime/internal/api/middleware"
	"github.com/watertime/watertime/internal/api/models"
	"github.com/watertime/watertime/internal/api/response"
	"github.com/watertime/watertime/internal/device"
	"github.com/watertime/watertime/internal/hydration"
	"github.com/watertime/watertime/internal/intake"
	"github.com/watertime/watertime/internal/notification"
	"github.com/watertime/watertime/internal/user"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// GetUserID retrieves the authenticated user ID from the context.
// This is a convenience wrapper around middleware.GetUserID.
func GetUserID(ctx context.Context) string {
	return middleware.GetUserID(ctx)
}

// decodeJSON reads the request body into v. It writes a 400 and returns
// false when the body is not valid JSON.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			response.BadRequest(w, r, "request body is required", nil)
			return false
		}
		response.BadRequest(w, r, "invalid JSON body", nil)
		return false
	}
	return true
}

// writeError maps domain errors onto problem responses. Anything it does
// not recognise is logged and reported as a 500.
func writeError(w http.ResponseWriter, r *http.Request, log zerolog.Logger, err error, action string) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		response.Validation(w, r, verr)
	case errors.Is(err, hydration.ErrInvalidRange):
		response.BadRequest(w, r, "startDate must not be after the end date", []models.FieldError{
			{Field: "startDate", Message: "must not be after the end date", Code: models.CodeOutOfRange},
		})
	case errors.Is(err, intake.ErrIntakeNotFound):
		response.NotFound(w, r, "intake not found")
	case errors.Is(err, device.ErrDeviceNotFound):
		response.NotFound(w, r, "device not found")
	case errors.Is(err, notification.ErrNotificationNotFound):
		response.NotFound(w, r, "notification not found")
	case errors.Is(err, user.ErrUserNotFound):
		response.NotFound(w, r, "user not found")
	case errors.Is(err, intake.ErrNotOwner),
		errors.Is(err, device.ErrNotOwner),
		errors.Is(err, notification.ErrNotOwner):
		response.Forbidden(w, r, "resource belongs to another user")
	default:
		log.Error().Err(err).
			Str("request_id", middleware.GetRequestID(r.Context())).
			Str("user_id", GetUserID(r.Context())).
			Msg(action + " failed")
		response.InternalError(w, r, action+" failed")
	}
}
