package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"taskboard-api/domain"
	"taskboard-api/realtime"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingPeriod     = 54 * time.Second
	wsMaxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// wsHandle adapts a gorilla connection to the registry Handle. gorilla
// permits one concurrent writer, so every write (events and pings) goes
// through the mutex.
type wsHandle struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (h *wsHandle) Send(ev domain.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
		return err
	}
	return h.conn.WriteJSON(ev)
}

func (h *wsHandle) ping() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
		return err
	}
	return h.conn.WriteMessage(websocket.PingMessage, nil)
}

// attachWS upgrades the request and registers the socket under the path
// identity for the lifetime of the connection. Client frames are read and
// discarded (reserved); the read loop exists to observe teardown, which is
// the only trigger for unregistration.
func attachWS(registry *realtime.Registry, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID := c.Param("user_id")
		if userID == "" {
			return c.NoContent(http.StatusBadRequest)
		}
		conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			return err
		}

		h := &wsHandle{conn: conn}
		registry.Register(userID, h)
		logger.Debugf("ws: %s connected", userID)

		done := make(chan struct{})
		defer func() {
			close(done)
			registry.Unregister(userID, h)
			_ = conn.Close()
			logger.Debugf("ws: %s disconnected", userID)
		}()

		go func() {
			ticker := time.NewTicker(wsPingPeriod)
			defer ticker.Stop()
			for {
				select {
				case <-done:
					return
				case <-ticker.C:
					if err := h.ping(); err != nil {
						return
					}
				}
			}
		}()

		conn.SetReadLimit(wsMaxMessageSize)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err,
					websocket.CloseNormalClosure,
					websocket.CloseGoingAway,
					websocket.CloseAbnormalClosure) {
					logger.Debugf("ws: %s read error: %v", userID, err)
				}
				return nil
			}
		}
	}
}
