package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) *DeviceHub {
	t.Helper()
	hub := NewDeviceHub()
	go hub.Run()
	t.Cleanup(hub.Stop)
	return hub
}

// registerSync registers and waits until the hub has processed it.
func registerSync(t *testing.T, hub *DeviceHub, c *Client) {
	t.Helper()
	hub.Register(c)
	require.Eventually(t, func() bool {
		return hub.Get(c.DeviceID) == c
	}, time.Second, 5*time.Millisecond)
}

func TestDeviceHub_RegisterAndConnected(t *testing.T) {
	hub := startHub(t)

	require.False(t, hub.Connected("dev-a"))

	c := NewClient(hub, nil, "dev-a", 8)
	registerSync(t, hub, c)

	require.True(t, hub.Connected("dev-a"))
	require.Equal(t, 1, hub.Count())

	_, ok := hub.LastSeen("dev-a")
	require.True(t, ok)
}

func TestDeviceHub_UnregisterCancelsContext(t *testing.T) {
	hub := startHub(t)

	var mu sync.Mutex
	var disconnected []string
	hub.OnDisconnect = func(deviceID string) {
		mu.Lock()
		disconnected = append(disconnected, deviceID)
		mu.Unlock()
	}

	c := NewClient(hub, nil, "dev-a", 8)
	registerSync(t, hub, c)

	hub.Unregister(c)
	require.Eventually(t, func() bool {
		return !hub.Connected("dev-a")
	}, time.Second, 5*time.Millisecond)

	select {
	case <-c.Context().Done():
	case <-time.After(time.Second):
		t.Fatal("client context not canceled on unregister")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"dev-a"}, disconnected)
}

func TestDeviceHub_ReconnectKicksOldSession(t *testing.T) {
	hub := startHub(t)

	old := NewClient(hub, nil, "dev-a", 8)
	registerSync(t, hub, old)

	fresh := NewClient(hub, nil, "dev-a", 8)
	registerSync(t, hub, fresh)

	require.Equal(t, 1, hub.Count())
	require.Same(t, fresh, hub.Get("dev-a"))

	select {
	case <-old.Context().Done():
	case <-time.After(time.Second):
		t.Fatal("old session context not canceled on reconnect")
	}

	// A stale unregister from the old connection must not evict the
	// fresh session.
	hub.Unregister(old)
	time.Sleep(20 * time.Millisecond)
	require.Same(t, fresh, hub.Get("dev-a"))
}

func TestDeviceHub_IndependentDevices(t *testing.T) {
	hub := startHub(t)

	a := NewClient(hub, nil, "dev-a", 1)
	b := NewClient(hub, nil, "dev-b", 1)
	registerSync(t, hub, a)
	registerSync(t, hub, b)

	// Fill dev-a's buffer; dev-b must still accept sends immediately.
	require.NoError(t, a.SendBinary(a.Context(), []byte{1}))

	done := make(chan error, 1)
	go func() { done <- b.SendBinary(b.Context(), []byte{2}) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("send to dev-b blocked by dev-a's full buffer")
	}
}
