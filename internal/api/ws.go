package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"carpsolver/internal/model"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

const (
	wsPongWait   = 60 * time.Second
	wsPingEvery  = 20 * time.Second
	wsWriteLimit = 10 * time.Second
)

// streamWS pushes a run's events as JSON text frames until the run
// finishes or the client goes away. All writes happen on this goroutine.
func (s *Server) streamWS(w http.ResponseWriter, r *http.Request, run model.Run) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	write := func(v any) error {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteLimit))
		return conn.WriteJSON(v)
	}
	closeNormal := func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "run finished")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	}

	ch, final := s.subscribe(r, run)
	if final != nil {
		_ = write(final)
		closeNormal()
		return
	}
	defer s.Broker.Unsubscribe(run.ID, ch)

	// Read loop: client frames are ignored; it only detects disconnects
	// and keeps the pong deadline fresh.
	gone := make(chan struct{})
	conn.SetReadLimit(1 << 16)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error { return conn.SetReadDeadline(time.Now().Add(wsPongWait)) })
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingEvery)
	defer ticker.Stop()
	for {
		select {
		case <-gone:
			return
		case <-r.Context().Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			if err := write(evt); err != nil {
				return
			}
			if evt.terminal() {
				closeNormal()
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteLimit)); err != nil {
				return
			}
		}
	}
}
