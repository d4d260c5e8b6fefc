package gateway

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second // must fire before pongWait expires
	maxMessageSize = 8 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// ServeWS upgrades the request to a websocket and runs the session's pumps.
// The read pump owns the request goroutine; the write pump gets its own.
func (g *Gateway) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Debug("Websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	session := g.Connect()
	go g.writePump(conn, session)
	g.readPump(conn, session)
}

// readPump decodes inbound events until the peer goes away, then tears the
// session down. Malformed frames are skipped, not fatal.
func (g *Gateway) readPump(conn *websocket.Conn, s *Session) {
	defer func() {
		g.Disconnect(s)
		_ = conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				g.log.Debug("Websocket read failed", "remote", conn.RemoteAddr(), "err", err)
			}
			return
		}

		var evt InboundEvent
		if err := json.Unmarshal(raw, &evt); err != nil {
			g.log.Debug("Discarding malformed socket frame", "remote", conn.RemoteAddr(), "err", err)
			continue
		}
		g.HandleEvent(s, evt)
	}
}

// writePump drains the session's send channel onto the wire and keeps the
// connection alive with periodic pings. It exits when Disconnect closes the
// channel or a write fails.
func (g *Gateway) writePump(conn *websocket.Conn, s *Session) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case evt, ok := <-s.Send():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := conn.WriteJSON(evt); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
