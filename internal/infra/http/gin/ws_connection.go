package ginserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	wsWriteWait = 10 * time.Second

	// Time allowed to read the next pong from the peer.
	wsPongWait = 60 * time.Second

	// Ping period, kept under the pong deadline.
	wsPingPeriod = (wsPongWait * 9) / 10

	wsMaxMessageSize = 4096
	wsSendBuffer     = 256
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

var errWSClosed = errors.New("websocket: connection closed")

// wsConnection wraps one upgraded socket with the standard pump pair.
// All outbound traffic funnels through the send channel so a slow peer
// never blocks the session goroutines.
type wsConnection struct {
	conn      *websocket.Conn
	logger    *slog.Logger
	send      chan []byte
	done      chan struct{}
	writeMu   sync.Mutex
	closeOnce sync.Once
}

func newWSConnection(conn *websocket.Conn, logger *slog.Logger) *wsConnection {
	return &wsConnection{
		conn:   conn,
		logger: logger,
		send:   make(chan []byte, wsSendBuffer),
		done:   make(chan struct{}),
	}
}

func (c *wsConnection) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case msg := <-c.send:
			if err := c.write(websocket.TextMessage, msg); err != nil {
				c.logger.Debug("websocket write failed", "error", err)
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, []byte{}); err != nil {
				return
			}
		case <-c.done:
			c.write(websocket.CloseMessage, []byte{})
			return
		}
	}
}

func (c *wsConnection) write(mt int, payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return c.conn.WriteMessage(mt, payload)
}

// writeJSON queues a message for the write pump. Delivery is best
// effort: when the buffer is full the message is dropped, and the next
// full snapshot supersedes anything lost.
func (c *wsConnection) writeJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return errWSClosed
	default:
		c.logger.Debug("websocket send buffer full, dropping message")
		return errWSClosed
	}
}

func (c *wsConnection) readPump(onMessage func([]byte)) {
	defer c.close()

	c.conn.SetReadLimit(wsMaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Debug("websocket read ended", "error", err)
			}
			return
		}
		onMessage(msg)
	}
}

func (c *wsConnection) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}
