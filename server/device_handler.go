package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"GreetFM/core/auth"
	"GreetFM/logger"
	"GreetFM/model"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type registerDeviceRequest struct {
	DeviceID string `json:"deviceId"`
	Name     string `json:"name"`
}

// RegisterDeviceHandler adds a device to the registry and returns its
// connection secret. The secret is shown exactly once; only the hash is
// stored.
func (h *APIHandler) RegisterDeviceHandler(w http.ResponseWriter, r *http.Request) {
	var req registerDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.DeviceID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "deviceId is required")
		return
	}

	existing, err := h.devices.GetByDeviceID(req.DeviceID)
	if err != nil {
		logger.Error("device lookup failed", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "internal", "registry unavailable")
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, "conflict", "device already registered")
		return
	}

	secret := uuid.NewString()
	hash, err := auth.HashSecret(secret)
	if err != nil {
		logger.Error("secret hash failed", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "internal", "could not register device")
		return
	}

	device := &model.Device{DeviceID: req.DeviceID, Name: req.Name, SecretHash: hash}
	if err := h.devices.Create(device); err != nil {
		logger.Error("device create failed", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "internal", "could not register device")
		return
	}

	logger.Info("device registered", logger.String("device", req.DeviceID))
	writeJSON(w, http.StatusCreated, map[string]string{
		"deviceId": device.DeviceID,
		"secret":   secret,
	})
}

// ListDevicesHandler returns the registry with live session state.
func (h *APIHandler) ListDevicesHandler(w http.ResponseWriter, r *http.Request) {
	devices, err := h.devices.List()
	if err != nil {
		logger.Error("device list failed", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "internal", "registry unavailable")
		return
	}

	out := make([]model.DeviceStatus, 0, len(devices))
	for _, d := range devices {
		out = append(out, h.deviceStatus(r.Context(), d))
	}
	writeJSON(w, http.StatusOK, out)
}

// GetDeviceHandler returns one device with live session state.
func (h *APIHandler) GetDeviceHandler(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["device_id"]

	device, err := h.devices.GetByDeviceID(deviceID)
	if err != nil {
		logger.Error("device lookup failed", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "internal", "registry unavailable")
		return
	}
	if device == nil {
		writeError(w, http.StatusNotFound, "not_found", "unknown device")
		return
	}

	writeJSON(w, http.StatusOK, h.deviceStatus(r.Context(), *device))
}

func (h *APIHandler) deviceStatus(ctx context.Context, d model.Device) model.DeviceStatus {
	status := model.DeviceStatus{Device: d, Connected: h.hub.Connected(d.DeviceID)}

	if ts, ok := h.hub.LastSeen(d.DeviceID); ok {
		status.LastSeen = &ts
		return status
	}
	if h.presence != nil {
		cctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if ts, ok, err := h.presence.LastSeen(cctx, d.DeviceID); err == nil && ok {
			status.LastSeen = &ts
		}
	}
	return status
}
