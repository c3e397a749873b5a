package websocket

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"codeberg.org/nexusdigital/identity/internal/guard"
	"codeberg.org/nexusdigital/identity/internal/logger"
	ws "codeberg.org/nexusdigital/identity/internal/websocket"
	"codeberg.org/nexusdigital/identity/nexus/session"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// buffered so a slow client cannot block the session's observer
	// callback; intermediate snapshots may be dropped, the latest wins
	eventBuffer = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     ws.CheckOrigin,
}

// streams session state over a websocket: the current snapshot on
// connect, then one event per transition. This is how clients observe
// sign-ins and sign-outs without polling, including ones performed in
// another tab or process.
func SessionStreamHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := guard.FromContext(c)

		clientID, err := ws.GenerateClientID()
		if err != nil {
			logger.ErrorErr(err, "failed to generate client ID")
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.ErrorErr(err, "failed to upgrade connection", "ip", c.ClientIP())
			return
		}

		logger.Info("session stream connected",
			"client_id", clientID,
			"ip", c.ClientIP(),
		)

		events := make(chan session.Snapshot, eventBuffer)
		unsubscribe := sess.Subscribe(func(snap session.Snapshot) {
			select {
			case events <- snap:
			default:
				// client is behind; it will catch up on the next event
			}
		})

		done := make(chan struct{})

		go readPump(conn, done)
		writePump(conn, events, done)

		unsubscribe()
		conn.Close() //nolint:errcheck,gosec // best-effort close

		logger.Info("session stream disconnected", "client_id", clientID)
	}
}

// discards inbound frames and keeps the pong deadline fresh
func readPump(conn *websocket.Conn, done chan struct{}) {
	defer close(done)

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck,gosec
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// pushes snapshots and pings until the client goes away
func writePump(conn *websocket.Conn, events <-chan session.Snapshot, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return

		case snap := <-events:
			conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck,gosec
			if err := conn.WriteJSON(Event{Type: EventSessionState, Session: snap}); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck,gosec
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
