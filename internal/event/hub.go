// Package event broadcasts job completion events to loosely coupled consumers that don't
// own the polling, e.g. a preview panel waiting for a specific entity.
package event

import (
	"crypto/rand"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/slok/jobwatch/internal/log"
	"github.com/slok/jobwatch/internal/model"
)

// Publisher publishes completion events.
type Publisher interface {
	Publish(ev model.CompletionEvent)
}

// HubConfig is the configuration for the hub.
type HubConfig struct {
	Logger log.Logger
}

func (c *HubConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "event.Hub"})
	return nil
}

// Hub is an in process completion event broadcaster, safe for concurrent use.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uint64]subscription
	nextID uint64
	logger log.Logger
}

type subscription struct {
	// entityID filters the events, empty receives all of them.
	entityID string
	fn       func(model.CompletionEvent)
}

// NewHub returns a new hub.
func NewHub(cfg HubConfig) (*Hub, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Hub{
		subs:   map[uint64]subscription{},
		logger: cfg.Logger,
	}, nil
}

// Subscribe receives all the completion events.
func (h *Hub) Subscribe(fn func(model.CompletionEvent)) (unsubscribe func()) {
	return h.subscribe("", fn)
}

// SubscribeEntity receives the completion events of the jobs of an entity.
func (h *Hub) SubscribeEntity(entityID string, fn func(model.CompletionEvent)) (unsubscribe func()) {
	return h.subscribe(entityID, fn)
}

func (h *Hub) subscribe(entityID string, fn func(model.CompletionEvent)) func() {
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.subs[id] = subscription{entityID: entityID, fn: fn}
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
	}
}

// Publish delivers the event synchronously to the matching subscribers in subscription
// order. Events without ID get a new ULID.
func (h *Hub) Publish(ev model.CompletionEvent) {
	if ev.ID == "" {
		ev.ID = ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
	}
	if ev.EntityID == "" {
		ev.EntityID = ev.Job.EntityID
	}

	h.mu.RLock()
	ids := make([]uint64, 0, len(h.subs))
	for id, s := range h.subs {
		if s.entityID == "" || s.entityID == ev.EntityID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	fns := make([]func(model.CompletionEvent), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, h.subs[id].fn)
	}
	h.mu.RUnlock()

	h.logger.Debugf("Publishing completion event %s for job %s to %d subscribers", ev.ID, ev.Job.ID, len(fns))
	for _, fn := range fns {
		fn(ev)
	}
}
