package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
)

// SSEWatcher streams received events as server-sent events. Each event is
// written as "event: <action>", "id: <event id>" and a JSON data line.
type SSEWatcher struct {
	id      string
	writer  http.ResponseWriter
	flusher http.Flusher
	out     chan ReceivedEvent
	done    chan struct{}
	once    sync.Once
}

func NewSSEWatcher(w http.ResponseWriter) (*SSEWatcher, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming unsupported by %T", w)
	}
	return &SSEWatcher{
		id:      "sse-" + uuid.NewString(),
		writer:  w,
		flusher: flusher,
		out:     make(chan ReceivedEvent, watcherQueueSize),
		done:    make(chan struct{}),
	}, nil
}

func (s *SSEWatcher) ID() string { return s.id }

func (s *SSEWatcher) Send(ev ReceivedEvent) error {
	select {
	case <-s.done:
		return ErrWatcherClosed
	default:
	}
	select {
	case s.out <- ev:
		return nil
	default:
		return ErrWatcherBusy
	}
}

// Run writes queued events until ctx is done or a write fails.
func (s *SSEWatcher) Run(ctx context.Context) {
	defer s.Close()
	h := s.writer.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	s.writer.WriteHeader(http.StatusOK)
	s.flusher.Flush()

	for {
		select {
		case ev := <-s.out:
			data, err := json.Marshal(ev)
			if err != nil {
				slog.Warn("Failed to encode event for watcher", "watcher", s.id, "error", err)
				continue
			}
			if _, err := fmt.Fprintf(s.writer, "event: %s\nid: %s\ndata: %s\n\n", ev.Action, ev.ID, data); err != nil {
				slog.Warn("Failed to write event to watcher", "watcher", s.id, "error", err)
				return
			}
			s.flusher.Flush()
			slog.Debug("Sent SSE event", "to", s.id, "action", ev.Action, "id", ev.ID)
		case <-ctx.Done():
			return
		case <-s.done:
			return
		}
	}
}

func (s *SSEWatcher) Close() {
	s.once.Do(func() { close(s.done) })
}
