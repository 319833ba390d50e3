package mqtt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTopicBuilders(t *testing.T) {
	require.Equal(t, "device/dev-a/cmd", CommandTopic("dev-a"))
	require.Equal(t, "device/dev-a/ack", AckTopic("dev-a"))
	require.Equal(t, "device/dev-a/event", EventTopic("dev-a"))
}

func TestDeviceIDFromTopic(t *testing.T) {
	cases := []struct {
		topic string
		want  string
		ok    bool
	}{
		{"device/dev-a/ack", "dev-a", true},
		{"device/dev-a/event", "dev-a", true},
		{"device/dev-a/cmd", "dev-a", true},
		{"device//ack", "", false},
		{"device/dev-a", "", false},
		{"device/dev-a/ack/extra", "", false},
		{"fleet/dev-a/ack", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := DeviceIDFromTopic(tc.topic)
		require.Equal(t, tc.ok, ok, "topic %q", tc.topic)
		require.Equal(t, tc.want, got, "topic %q", tc.topic)
	}
}
