package websocket

import (
	"context"
	"time"

	ws "github.com/coder/websocket"
)

const (
	sendBufferSize = 16
	pingInterval   = 30 * time.Second
	writeTimeout   = 10 * time.Second
)

// Client is one WebSocket connection owned by a user. Connections are
// push-only: frames sent by the browser are discarded.
type Client struct {
	hub  *Hub
	user string
	conn *ws.Conn
	send chan []byte
}

func NewClient(hub *Hub, user string, conn *ws.Conn) *Client {
	return &Client{
		hub:  hub,
		user: user,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
}

// Run registers the client and forwards hub messages until the peer goes
// away or ctx ends.
func (c *Client) Run(ctx context.Context) {
	c.hub.Register(c)
	defer c.hub.Unregister(c)

	// CloseRead keeps a reader running so pings and close frames are
	// handled; its context ends with the connection.
	ctx = c.conn.CloseRead(ctx)

	keepalive := time.NewTicker(pingInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-c.send:
			if err := c.write(ctx, msg); err != nil {
				return
			}
		case <-keepalive.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

func (c *Client) write(ctx context.Context, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return c.conn.Write(ctx, ws.MessageText, msg)
}
