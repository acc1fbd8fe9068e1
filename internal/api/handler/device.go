package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/watertime/watertime/internal/api/models"
	"github.com/watertime/watertime/internal/api/response"
	"github.com/watertime/watertime/internal/device"
)

// DeviceHandler handles device endpoints.
type DeviceHandler struct {
	devices *device.Service
	logger  zerolog.Logger
}

// NewDeviceHandler creates a new DeviceHandler.
func NewDeviceHandler(devices *device.Service, logger zerolog.Logger) *DeviceHandler {
	return &DeviceHandler{
		devices: devices,
		logger:  logger,
	}
}

// ListDevices handles GET /v1/devices - list registered devices with masked tokens.
func (h *DeviceHandler) ListDevices(w http.ResponseWriter, r *http.Request) {
	list, err := h.devices.List(r.Context(), GetUserID(r.Context()))
	if err != nil {
		writeError(w, r, h.logger, err, "list devices")
		return
	}
	response.JSON(w, r, http.StatusOK, list)
}

// RegisterDevice handles POST /v1/devices - register or refresh a device.
// A new device yields 201, an already-known token yields 200.
func (h *DeviceHandler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	var input models.DeviceRegisterRequest
	if !decodeJSON(w, r, &input) {
		return
	}

	dev, created, err := h.devices.Register(r.Context(), GetUserID(r.Context()), &input)
	if err != nil {
		writeError(w, r, h.logger, err, "register device")
		return
	}

	if created {
		response.Created(w, r, "/v1/devices/"+dev.ID, dev)
		return
	}
	response.JSON(w, r, http.StatusOK, dev)
}

// DeleteDevice handles DELETE /v1/devices/{id} - remove a device.
func (h *DeviceHandler) DeleteDevice(w http.ResponseWriter, r *http.Request) {
	if err := h.devices.Remove(r.Context(), GetUserID(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.logger, err, "delete device")
		return
	}
	response.NoContent(w, r)
}
