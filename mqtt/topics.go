package mqtt

import (
	"fmt"
	"strings"
)

// Per-device topic triple. Commands go out on cmd; devices answer on ack
// (receipt) and event (completion).
const (
	AckWildcard   = "device/+/ack"
	EventWildcard = "device/+/event"
)

// CommandTopic returns the dispatch topic for a device.
func CommandTopic(deviceID string) string {
	return fmt.Sprintf("device/%s/cmd", deviceID)
}

// AckTopic returns the acknowledgment topic for a device.
func AckTopic(deviceID string) string {
	return fmt.Sprintf("device/%s/ack", deviceID)
}

// EventTopic returns the completion topic for a device.
func EventTopic(deviceID string) string {
	return fmt.Sprintf("device/%s/event", deviceID)
}

// DeviceIDFromTopic extracts the device id from a device/{id}/{leaf} topic.
func DeviceIDFromTopic(topic string) (string, bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != "device" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
