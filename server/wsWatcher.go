package server

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var (
	ErrWatcherClosed = errors.New("watcher closed")
	ErrWatcherBusy   = errors.New("watcher queue full")
)

const (
	watcherQueueSize = 64
	writeWait        = 5 * time.Second
)

// WSWatcher streams received events to one websocket connection as JSON.
// A watcher whose queue is full loses events rather than stalling the
// receiver.
type WSWatcher struct {
	id   string
	conn *websocket.Conn
	out  chan ReceivedEvent
	done chan struct{}
	once sync.Once
}

func NewWSWatcher(conn *websocket.Conn) *WSWatcher {
	return &WSWatcher{
		id:   "ws-" + uuid.NewString(),
		conn: conn,
		out:  make(chan ReceivedEvent, watcherQueueSize),
		done: make(chan struct{}),
	}
}

func (w *WSWatcher) ID() string { return w.id }

func (w *WSWatcher) Send(ev ReceivedEvent) error {
	select {
	case <-w.done:
		return ErrWatcherClosed
	default:
	}
	select {
	case w.out <- ev:
		return nil
	default:
		return ErrWatcherBusy
	}
}

// Run writes queued events until the peer goes away or Close is called.
func (w *WSWatcher) Run() {
	go w.readLoop()
	for {
		select {
		case ev := <-w.out:
			w.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := w.conn.WriteJSON(ev); err != nil {
				slog.Warn("Failed to write event to watcher", "watcher", w.id, "error", err)
				w.Close()
				return
			}
			slog.Debug("Sent WebSocket event", "to", w.id, "action", ev.Action, "id", ev.ID)
		case <-w.done:
			return
		}
	}
}

// readLoop drains the connection so control frames are handled and a
// closed peer is noticed.
func (w *WSWatcher) readLoop() {
	for {
		if _, _, err := w.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("WebSocket watcher error", "watcher", w.id, "error", err)
			}
			w.Close()
			return
		}
	}
}

func (w *WSWatcher) Close() {
	w.once.Do(func() {
		close(w.done)
		w.conn.Close()
	})
}
