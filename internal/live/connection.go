package live

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/zhulik/evote/internal/core"
	"github.com/zhulik/evote/internal/tally"
)

const (
	PingInterval = time.Second * 10
	PingTimeout  = time.Second * 2
	WriteTimeout = time.Second * 5

	SnapshotKind = "snapshot"
)

// Connection streams the updates of one election to a websocket client.
type Connection struct {
	conn    *websocket.Conn
	address string
	hub     *Hub

	logger logrus.FieldLogger
}

func NewConnection(address string, conn *websocket.Conn, hub *Hub, logger logrus.FieldLogger) *Connection {
	return &Connection{
		conn:    conn,
		address: address,
		hub:     hub,
		logger: logger.WithFields(logrus.Fields{
			"component": "live.Connection",
			"address":   address,
		}),
	}
}

// Handle sends initial, if set, and then every update until the client goes away.
func (c *Connection) Handle(initial *Update) error {
	defer c.Close()

	updates, unsubscribe := c.hub.Subscribe(c.address)
	defer unsubscribe()

	c.logger.Info("Dashboard connected")
	defer c.logger.Info("Dashboard disconnected")

	if initial != nil {
		if err := c.write(*initial); err != nil {
			return err
		}
	}

	closed := make(chan struct{})
	go c.read(closed)

	ticker := time.NewTicker(PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return nil

		case update, ok := <-updates:
			if !ok {
				return nil
			}

			if err := c.write(update); err != nil {
				return err
			}

		case <-ticker.C:
			err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(PingTimeout))
			if err != nil {
				c.logger.WithError(err).Debug("Ping failed, closing connection...")

				return nil
			}
		}
	}
}

func (c *Connection) Close() error {
	return c.conn.Close() //nolint:wrapcheck
}

func (c *Connection) write(update Update) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(WriteTimeout)); err != nil {
		return err //nolint:wrapcheck
	}

	return c.conn.WriteJSON(update) //nolint:wrapcheck
}

// read drains client frames so control messages are processed, and reports when the client leaves.
func (c *Connection) read(closed chan<- struct{}) {
	defer close(closed)

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Snapshot builds the first frame a dashboard receives.
func Snapshot(e core.Election) Update {
	return Update{
		Kind:     SnapshotKind,
		Election: e,
		Tallies:  tally.Compute(e),
	}
}
