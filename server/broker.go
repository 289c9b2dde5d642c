package server

import (
	"log/slog"
	"sync"
)

// AllActions subscribes a watcher to every event action.
const AllActions = "*"

type Watcher interface {
	Send(ReceivedEvent) error
	ID() string
}

type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[Watcher]struct{} // Map action to hashset of watchers
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[string]map[Watcher]struct{}),
	}
}

func (b *Broker) Subscribe(action string, w Watcher) {
	slog.Debug("Subscribing", "action", action, "watcher", w.ID())
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs[action] == nil {
		b.subs[action] = make(map[Watcher]struct{})
	}
	b.subs[action][w] = struct{}{}
}

// Publish delivers ev to watchers of its action and of AllActions, each
// at most once. It returns the number of successful deliveries.
func (b *Broker) Publish(ev ReceivedEvent) int {
	b.mu.RLock()
	targets := make(map[Watcher]struct{}, len(b.subs[ev.Action])+len(b.subs[AllActions]))
	for w := range b.subs[ev.Action] {
		targets[w] = struct{}{}
	}
	for w := range b.subs[AllActions] {
		targets[w] = struct{}{}
	}
	b.mu.RUnlock()

	sentCount := 0
	for w := range targets {
		if err := w.Send(ev); err != nil {
			slog.Warn("There was an error publishing an event to a watcher", "action", ev.Action, "watcher", w.ID(), "error", err.Error())
			continue
		}
		sentCount++
	}
	slog.Debug("Event published", "action", ev.Action, "id", ev.ID, "watchers", sentCount)
	return sentCount
}

func (b *Broker) Unsubscribe(action string, w Watcher) {
	slog.Debug("Unsubscribing", "action", action, "watcher", w.ID())
	b.mu.Lock()
	defer b.mu.Unlock()

	if subs, ok := b.subs[action]; ok {
		if _, exists := subs[w]; exists {
			delete(subs, w)
		} else {
			slog.Warn("Did not find watcher for action to unsubscribe", "action", action, "watcher", w.ID())
		}
		if len(subs) == 0 {
			delete(b.subs, action)
		}
	}
}

func (b *Broker) UnsubscribeAll(w Watcher) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for action, subs := range b.subs {
		delete(subs, w)
		if len(subs) == 0 {
			delete(b.subs, action)
		}
	}
}

func (b *Broker) Watchers(action string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[action])
}
