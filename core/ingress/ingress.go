package ingress

import (
	"GreetFM/logger"
	"GreetFM/model"
	"GreetFM/mqtt"
)

// EventSink consumes parsed device events.
type EventSink interface {
	HandleDeviceEvent(deviceID string, ev model.DeviceEvent)
}

// Ingress subscribes to the fleet's ack and event topics, demultiplexes
// by device and track id, and forwards to the sink. Malformed messages
// are dropped with a warning; nothing here may kill the subscriber loop.
type Ingress struct {
	sub  mqtt.Subscriber
	sink EventSink
}

// New creates an ingress.
func New(sub mqtt.Subscriber, sink EventSink) *Ingress {
	return &Ingress{sub: sub, sink: sink}
}

// Start subscribes to the ack and event wildcards.
func (i *Ingress) Start() error {
	if err := i.sub.Subscribe(mqtt.AckWildcard, i.handle); err != nil {
		return err
	}
	return i.sub.Subscribe(mqtt.EventWildcard, i.handle)
}

func (i *Ingress) handle(topic string, payload []byte) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("ingress handler panic", logger.Any("panic", r), logger.String("topic", topic))
		}
	}()

	deviceID, ok := mqtt.DeviceIDFromTopic(topic)
	if !ok {
		logger.Warn("event on unexpected topic", logger.String("topic", topic))
		return
	}

	ev, ok := model.ParseDeviceEvent(payload)
	if !ok {
		logger.Warn("malformed device event dropped",
			logger.String("topic", topic),
			logger.Int("bytes", len(payload)))
		return
	}

	i.sink.HandleDeviceEvent(deviceID, ev)
}
