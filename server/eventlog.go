package server

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mbocsi/silaevents/proto"
)

const DefaultLogLimit = 1000

// ReceivedEvent is an event accepted by the receiver.
type ReceivedEvent struct {
	ID         string      `json:"id"`
	Action     string      `json:"action"`
	SOAPAction string      `json:"soap_action,omitempty"`
	RemoteAddr string      `json:"remote_addr,omitempty"`
	ReceivedAt time.Time   `json:"received_at"`
	Event      proto.Event `json:"event"`
	Envelope   string      `json:"envelope,omitempty"`
}

func newReceivedEvent(ev proto.Event) ReceivedEvent {
	return ReceivedEvent{
		ID:         uuid.NewString(),
		Action:     ev.Action(),
		ReceivedAt: time.Now().UTC(),
		Event:      ev,
	}
}

// EventLog keeps the most recent received events in arrival order.
type EventLog struct {
	mu    sync.RWMutex
	order []string
	store map[string]ReceivedEvent
	limit int
}

func NewEventLog(limit int) *EventLog {
	if limit <= 0 {
		limit = DefaultLogLimit
	}
	return &EventLog{store: make(map[string]ReceivedEvent), limit: limit}
}

func (l *EventLog) Store(ev ReceivedEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.store[ev.ID]; !exists {
		l.order = append(l.order, ev.ID)
	}
	l.store[ev.ID] = ev
	for len(l.order) > l.limit {
		delete(l.store, l.order[0])
		l.order = l.order[1:]
	}
}

func (l *EventLog) Get(id string) (ReceivedEvent, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ev, ok := l.store[id]
	return ev, ok
}

// List returns events oldest first, optionally filtered by action.
func (l *EventLog) List(action string) []ReceivedEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()

	events := make([]ReceivedEvent, 0, len(l.order))
	for _, id := range l.order {
		ev := l.store[id]
		if action != "" && ev.Action != action {
			continue
		}
		events = append(events, ev)
	}
	return events
}

func (l *EventLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.order)
}

func (l *EventLog) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.order = nil
	l.store = make(map[string]ReceivedEvent)
}
