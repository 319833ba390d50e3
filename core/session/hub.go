package session

import (
	"sync"
	"time"

	"GreetFM/logger"
)

// DeviceHub tracks the live WebSocket session of every connected device.
// Registry mutations flow through channels owned by Run so there is a
// single writer; reads take the RWMutex.
type DeviceHub struct {
	clients map[string]*Client

	register   chan *Client
	unregister chan *Client

	mu   sync.RWMutex
	done chan struct{}

	// OnDisconnect fires after a device session is removed. Used to fail
	// in-flight tracks for that device.
	OnDisconnect func(deviceID string)
	// OnSeen fires when a device shows signs of life (connect, ping).
	OnSeen func(deviceID string)
}

// NewDeviceHub creates a hub.
func NewDeviceHub() *DeviceHub {
	return &DeviceHub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run starts the hub main loop.
func (h *DeviceHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case <-h.done:
			h.cleanup()
			return
		}
	}
}

// Stop stops the hub.
func (h *DeviceHub) Stop() {
	close(h.done)
}

func (h *DeviceHub) registerClient(client *Client) {
	h.mu.Lock()

	// One session per device: a reconnect kicks the old connection.
	if old, exists := h.clients[client.DeviceID]; exists {
		h.removeClient(old)
	}
	h.clients[client.DeviceID] = client
	client.lastSeen = time.Now()
	h.mu.Unlock()

	if h.OnSeen != nil {
		h.OnSeen(client.DeviceID)
	}

	logger.Info("device session registered", logger.String("device", client.DeviceID))
}

func (h *DeviceHub) unregisterClient(client *Client) {
	h.mu.Lock()
	removed := false
	if current, ok := h.clients[client.DeviceID]; ok && current == client {
		h.removeClient(client)
		removed = true
	}
	h.mu.Unlock()

	if removed && h.OnDisconnect != nil {
		h.OnDisconnect(client.DeviceID)
	}
}

// removeClient drops a client. Caller holds the lock. The send channel
// stays open; the canceled context shuts the pumps down.
func (h *DeviceHub) removeClient(client *Client) {
	delete(h.clients, client.DeviceID)
	client.cancel()

	logger.Info("device session unregistered", logger.String("device", client.DeviceID))
}

func (h *DeviceHub) cleanup() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients {
		client.cancel()
	}
	h.clients = make(map[string]*Client)
}

// Register registers a device session.
func (h *DeviceHub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a device session.
func (h *DeviceHub) Unregister(client *Client) {
	h.unregister <- client
}

// Get returns the live session for a device, or nil.
func (h *DeviceHub) Get(deviceID string) *Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clients[deviceID]
}

// Connected reports whether a device has a live session.
func (h *DeviceHub) Connected(deviceID string) bool {
	return h.Get(deviceID) != nil
}

// Count returns the number of connected devices.
func (h *DeviceHub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// LastSeen returns the device's last activity time, if connected.
func (h *DeviceHub) LastSeen(deviceID string) (time.Time, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	client, ok := h.clients[deviceID]
	if !ok {
		return time.Time{}, false
	}
	return client.lastSeen, true
}

// touch updates a client's last-seen time and fires OnSeen.
func (h *DeviceHub) touch(client *Client) {
	h.mu.Lock()
	client.lastSeen = time.Now()
	h.mu.Unlock()

	if h.OnSeen != nil {
		h.OnSeen(client.DeviceID)
	}
}
