package ingress

import (
	"testing"

	"GreetFM/model"
	"GreetFM/mqtt"

	"github.com/stretchr/testify/require"
)

type fakeSubscriber struct {
	handlers map[string]mqtt.MessageHandler
}

func (f *fakeSubscriber) Subscribe(filter string, handler mqtt.MessageHandler) error {
	if f.handlers == nil {
		f.handlers = make(map[string]mqtt.MessageHandler)
	}
	f.handlers[filter] = handler
	return nil
}

// inject simulates a broker delivery on a concrete topic matching the
// ack wildcard.
func (f *fakeSubscriber) inject(topic string, payload []byte) {
	f.handlers[mqtt.AckWildcard](topic, payload)
}

type recordingSink struct {
	devices []string
	events  []model.DeviceEvent
}

func (r *recordingSink) HandleDeviceEvent(deviceID string, ev model.DeviceEvent) {
	r.devices = append(r.devices, deviceID)
	r.events = append(r.events, ev)
}

func TestIngress_SubscribesBothWildcards(t *testing.T) {
	sub := &fakeSubscriber{}
	require.NoError(t, New(sub, &recordingSink{}).Start())
	require.Contains(t, sub.handlers, mqtt.AckWildcard)
	require.Contains(t, sub.handlers, mqtt.EventWildcard)
}

func TestIngress_ForwardsValidEvents(t *testing.T) {
	sub := &fakeSubscriber{}
	sink := &recordingSink{}
	require.NoError(t, New(sub, sink).Start())

	sub.inject("device/dev-a/ack", []byte(`{"track_id":"t1","status":"received","ts":1}`))
	sub.inject("device/dev-b/event", []byte(`{"track_id":"t2","status":"done","ts":2}`))

	require.Equal(t, []string{"dev-a", "dev-b"}, sink.devices)
	require.Equal(t, "t1", sink.events[0].TrackID)
	require.Equal(t, model.EventReceived, sink.events[0].Status)
	require.Equal(t, model.EventDone, sink.events[1].Status)
}

func TestIngress_DropsMalformedEvents(t *testing.T) {
	sub := &fakeSubscriber{}
	sink := &recordingSink{}
	require.NoError(t, New(sub, sink).Start())

	cases := []struct {
		name    string
		topic   string
		payload string
	}{
		{"not json", "device/dev-a/ack", `{{{`},
		{"missing track id", "device/dev-a/ack", `{"status":"received"}`},
		{"unknown status", "device/dev-a/ack", `{"track_id":"t1","status":"shrug"}`},
		{"empty payload", "device/dev-a/ack", ``},
		{"bad topic shape", "device//ack", `{"track_id":"t1","status":"received"}`},
		{"foreign topic", "fleet/dev-a/ack/extra", `{"track_id":"t1","status":"received"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.NotPanics(t, func() {
				sub.inject(tc.topic, []byte(tc.payload))
			})
		})
	}
	require.Empty(t, sink.events, "malformed events must never reach the sink")
}
