package wsserver

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// client wraps one WebSocket connection. It implements meeting.MessageSink.
// The mutex serializes writes and guards the at-most-one meeting binding.
type client struct {
	conn         *websocket.Conn
	writeTimeout time.Duration

	mu         sync.Mutex
	meetingID  string
	attendeeID string
}

func newClient(conn *websocket.Conn, writeTimeout time.Duration) *client {
	return &client{conn: conn, writeTimeout: writeTimeout}
}

// Send pushes one JSON message to the peer.
func (c *client) Send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	return c.conn.WriteJSON(v)
}

// bind associates the connection with a meeting. Returns false when already bound.
func (c *client) bind(meetingID, attendeeID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.meetingID != "" {
		return false
	}
	c.meetingID = meetingID
	c.attendeeID = attendeeID
	return true
}

// binding returns the current association; ok is false for unbound connections.
func (c *client) binding() (meetingID, attendeeID string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.meetingID, c.attendeeID, c.meetingID != ""
}
