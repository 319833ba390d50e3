package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"GreetFM/core/dispatch"
	"GreetFM/logger"

	"github.com/gorilla/mux"
)

type greetingRequest struct {
	DeviceID string `json:"deviceId"`
	Text     string `json:"text"`
	Category string `json:"category"`
}

// TriggerGreetingHandler dispatches a greeting command and returns the
// track id for correlation.
func (h *APIHandler) TriggerGreetingHandler(w http.ResponseWriter, r *http.Request) {
	var req greetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	if req.DeviceID == "" || req.Text == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "deviceId and text are required")
		return
	}

	trackID, err := h.svc.Greet(req.DeviceID, req.Text, req.Category)
	if err != nil {
		if errors.Is(err, dispatch.ErrDeviceUnreachable) {
			writeError(w, http.StatusConflict, "device_unreachable", "device has no active session")
			return
		}
		logger.Error("greeting dispatch failed", logger.ErrorField(err), logger.String("device", req.DeviceID))
		writeError(w, http.StatusInternalServerError, "internal", "dispatch failed")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"trackId": trackID})
}

// GetTrackHandler returns the current (or archived) state of a track.
func (h *APIHandler) GetTrackHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["track_id"]

	trk, ok := h.svc.Lookup(id)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "unknown track")
		return
	}
	writeJSON(w, http.StatusOK, trk)
}

// ListTracksHandler returns live and archived tracks for a device.
func (h *APIHandler) ListTracksHandler(w http.ResponseWriter, r *http.Request) {
	deviceID := r.URL.Query().Get("device_id")
	if deviceID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "device_id query parameter is required")
		return
	}
	writeJSON(w, http.StatusOK, h.svc.TracksForDevice(deviceID))
}
