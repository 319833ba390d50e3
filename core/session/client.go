package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"GreetFM/logger"
	"GreetFM/model"

	"github.com/gorilla/websocket"
)

const (
	readLimit    = 4096
	readTimeout  = 60 * time.Second
	writeTimeout = 10 * time.Second
	pingPeriod   = 30 * time.Second
	sendTimeout  = 5 * time.Second
)

// ErrSendBlocked is returned when a device's outbound buffer stays full
// past the send timeout.
var ErrSendBlocked = errors.New("device send buffer full")

type outbound struct {
	messageType int
	data        []byte
}

// Client is one device's live WebSocket session. Audio frames and control
// messages all go through the send channel so the write pump is the only
// writer on the connection.
type Client struct {
	Hub      *DeviceHub
	Conn     *websocket.Conn
	DeviceID string

	send     chan outbound
	lastSeen time.Time

	ctx    context.Context
	cancel context.CancelFunc
}

// NewClient creates a session client with a bounded outbound buffer.
func NewClient(hub *DeviceHub, conn *websocket.Conn, deviceID string, sendBuffer int) *Client {
	if sendBuffer <= 0 {
		sendBuffer = 64
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		Hub:      hub,
		Conn:     conn,
		DeviceID: deviceID,
		send:     make(chan outbound, sendBuffer),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Context is canceled when the session ends. In-flight deliveries select
// on it so a disconnect aborts them promptly.
func (c *Client) Context() context.Context {
	return c.ctx
}

// SendJSON queues a JSON text message. Drops nothing silently: a full
// buffer is an error.
func (c *Client) SendJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.enqueue(c.ctx, outbound{messageType: websocket.TextMessage, data: data})
}

// SendBinary queues an audio frame, blocking up to the send timeout when
// the device is slow. The passed context (and the session context) abort
// the wait.
func (c *Client) SendBinary(ctx context.Context, data []byte) error {
	return c.enqueue(ctx, outbound{messageType: websocket.BinaryMessage, data: data})
}

func (c *Client) enqueue(ctx context.Context, msg outbound) error {
	timer := time.NewTimer(sendTimeout)
	defer timer.Stop()

	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrSendBlocked
	}
}

// ReadPump consumes inbound messages. Devices only send pings and JSON
// heartbeats upstream; everything else is ignored.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(readLimit)
	c.Conn.SetReadDeadline(time.Now().Add(readTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(readTimeout))
		c.Hub.touch(c)
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("websocket read error",
					logger.ErrorField(err),
					logger.String("device", c.DeviceID))
			}
			return
		}
		c.Conn.SetReadDeadline(time.Now().Add(readTimeout))
		c.Hub.touch(c)

		var msg struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		if msg.Type == "ping" {
			pong := map[string]interface{}{"type": model.WSTypePong, "ts": time.Now().UnixMilli()}
			if err := c.SendJSON(pong); err != nil {
				logger.Warn("pong send failed",
					logger.ErrorField(err),
					logger.String("device", c.DeviceID))
			}
		}
	}
}

// WritePump writes queued messages and keeps the connection alive with
// pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.Conn.WriteMessage(msg.messageType, msg.data); err != nil {
				return
			}

		case <-c.ctx.Done():
			// Hub dropped the session. The send channel is never closed;
			// the context is the shutdown signal, so late senders cannot
			// hit a closed channel.
			c.Conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
