package mqtt

import (
	"fmt"
	"time"

	"GreetFM/config"
	"GreetFM/logger"

	paho "github.com/eclipse/paho.mqtt.golang"
)

const connectTimeout = 10 * time.Second

// Publisher sends a payload to a topic.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// MessageHandler receives inbound messages.
type MessageHandler func(topic string, payload []byte)

// Subscriber registers a handler for a topic filter.
type Subscriber interface {
	Subscribe(filter string, handler MessageHandler) error
}

// Client wraps the paho client with the QoS and timeouts this service uses.
type Client struct {
	cli paho.Client
	qos byte
}

// Connect dials the broker and blocks until the connection is up or fails.
func Connect(cfg *config.Config) (*Client, error) {
	opts := paho.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientID).
		SetUsername(cfg.MQTTUsername).
		SetPassword(cfg.MQTTPassword).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout).
		SetOrderMatters(false)

	opts.OnConnectionLost = func(_ paho.Client, err error) {
		logger.Warn("mqtt connection lost", logger.ErrorField(err))
	}
	opts.OnConnect = func(_ paho.Client) {
		logger.Info("mqtt connected", logger.String("broker", cfg.MQTTBroker))
	}

	cli := paho.NewClient(opts)
	token := cli.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("mqtt connect to %s timed out", cfg.MQTTBroker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", cfg.MQTTBroker, err)
	}

	return &Client{cli: cli, qos: byte(cfg.MQTTQoS)}, nil
}

// Publish sends a payload and waits for broker confirmation.
func (c *Client) Publish(topic string, payload []byte) error {
	token := c.cli.Publish(topic, c.qos, false, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt publish to %s: %w", topic, err)
	}
	return nil
}

// Subscribe registers a handler for a topic filter. Handlers run on paho's
// router goroutines; they must not block.
func (c *Client) Subscribe(filter string, handler MessageHandler) error {
	token := c.cli.Subscribe(filter, c.qos, func(_ paho.Client, msg paho.Message) {
		handler(msg.Topic(), msg.Payload())
	})
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt subscribe %s: %w", filter, err)
	}
	return nil
}

// Close disconnects from the broker.
func (c *Client) Close() {
	c.cli.Disconnect(250)
}
