package server

import (
	"net/http"

	"GreetFM/core/auth"
	"GreetFM/core/session"
	"GreetFM/logger"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// DeviceWSHandler is the per-device audio channel. Devices authenticate
// with the secret issued at registration, then hold the socket open to
// receive framed audio for acknowledged commands.
func (h *APIHandler) DeviceWSHandler(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["device_id"]
	secret := r.URL.Query().Get("secret")
	if secret == "" {
		secret = r.Header.Get("X-Device-Secret")
	}

	device, err := h.devices.GetByDeviceID(deviceID)
	if err != nil {
		logger.Error("device lookup failed", logger.ErrorField(err), logger.String("device", deviceID))
		http.Error(w, "registry unavailable", http.StatusInternalServerError)
		return
	}
	if device == nil || !auth.CheckSecretHash(secret, device.SecretHash) {
		logger.Warn("device auth rejected", logger.String("device", deviceID))
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", logger.ErrorField(err), logger.String("device", deviceID))
		return
	}

	client := session.NewClient(h.hub, conn, deviceID, h.cfg.SendBuffer)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
