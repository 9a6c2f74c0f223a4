package handler

import (
	"net/http"
	"time"

	"github.com/damon-houk/coin-exchange-widget/internal/domain/entity"
	"github.com/damon-houk/coin-exchange-widget/internal/infrastructure/middleware"
	"github.com/gorilla/websocket"
)

const (
	// WriteTimeout bounds every frame written to a stream client
	WriteTimeout = 10 * time.Second
	// PingInterval is how often an idle stream is pinged
	PingInterval = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Stream pushes every conversion snapshot to a websocket client, starting with the current one.
// A slow client only ever sees the latest snapshot; intermediate ones are skipped.
func (h *ConversionHandler) Stream(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client
		h.logger.Warn("WebSocket upgrade failed", map[string]interface{}{
			"request_id": requestID,
			"error":      err.Error(),
		})
		return
	}
	defer conn.Close()

	updates := make(chan entity.ConversionState, 1)
	unsubscribe := h.store.Subscribe(func(state entity.ConversionState) {
		// Called under the store lock: never block, replace a pending snapshot instead
		select {
		case updates <- state:
		default:
			select {
			case <-updates:
			default:
			}
			select {
			case updates <- state:
			default:
			}
		}
	})
	defer unsubscribe()

	h.logger.Info("Stream client connected", map[string]interface{}{
		"request_id":  requestID,
		"remote_addr": r.RemoteAddr,
	})

	// The read pump only watches for the client going away
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	pingTicker := time.NewTicker(PingInterval)
	defer pingTicker.Stop()

	if err := h.writeSnapshot(conn, h.store.State()); err != nil {
		h.logStreamEnd(requestID, err)
		return
	}

	for {
		select {
		case state := <-updates:
			if err := h.writeSnapshot(conn, state); err != nil {
				h.logStreamEnd(requestID, err)
				return
			}

		case <-pingTicker.C:
			conn.SetWriteDeadline(time.Now().Add(WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, []byte{}); err != nil {
				h.logStreamEnd(requestID, err)
				return
			}

		case <-closed:
			h.logStreamEnd(requestID, nil)
			return

		case <-r.Context().Done():
			return
		}
	}
}

func (h *ConversionHandler) writeSnapshot(conn *websocket.Conn, state entity.ConversionState) error {
	conn.SetWriteDeadline(time.Now().Add(WriteTimeout))
	return conn.WriteJSON(newConversionResponse(state))
}

func (h *ConversionHandler) logStreamEnd(requestID string, err error) {
	fields := map[string]interface{}{
		"request_id": requestID,
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	h.logger.Info("Stream client disconnected", fields)
}
