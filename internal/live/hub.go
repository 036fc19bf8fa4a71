// Package live pushes committed election changes to connected dashboards.
package live

import (
	"context"
	"sync"

	"github.com/samber/do"
	"github.com/sirupsen/logrus"
	"github.com/zhulik/evote/internal/core"
	"github.com/zhulik/evote/internal/tally"
)

const updatesBuffer = 16

// Update is what a dashboard receives after every committed change.
type Update struct {
	Kind     core.EventKind `json:"kind"`
	Election core.Election  `json:"election"`
	Tallies  core.Tallies   `json:"tallies"`
}

type subscriber struct {
	address string
	ch      chan Update
}

// Hub is a core.Publisher that forwards events to in-process subscribers.
// Slow subscribers miss intermediate updates but always see a complete snapshot.
type Hub struct {
	mu          sync.Mutex
	subscribers map[*subscriber]struct{}

	logger logrus.FieldLogger
}

func NewHub(injector *do.Injector) (*Hub, error) {
	logger, err := do.Invoke[logrus.FieldLogger](injector)
	if err != nil {
		return nil, err
	}

	return New(logger), nil
}

func New(logger logrus.FieldLogger) *Hub {
	return &Hub{
		subscribers: map[*subscriber]struct{}{},
		logger:      logger.WithField("component", "live.Hub"),
	}
}

func (h *Hub) Publish(_ context.Context, event core.Event) error {
	update := Update{
		Kind:     event.Kind,
		Election: event.Election,
		Tallies:  tally.Compute(event.Election),
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subscribers {
		if sub.address != "" && sub.address != event.Address {
			continue
		}

		select {
		case sub.ch <- update:
		default:
			h.logger.WithField("address", event.Address).Debug("Subscriber is behind, update dropped")
		}
	}

	return nil
}

// Subscribe returns updates of address, or of every election when address is empty.
// The returned function unsubscribes and closes the channel.
func (h *Hub) Subscribe(address string) (<-chan Update, func()) {
	sub := &subscriber{
		address: address,
		ch:      make(chan Update, updatesBuffer),
	}

	h.mu.Lock()
	h.subscribers[sub] = struct{}{}
	h.mu.Unlock()

	var once sync.Once

	return sub.ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()

			// Shutdown may have closed it already.
			if _, ok := h.subscribers[sub]; !ok {
				return
			}

			delete(h.subscribers, sub)
			close(sub.ch)
		})
	}
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.subscribers)
}

func (h *Hub) HealthCheck() error {
	return nil
}

func (h *Hub) Shutdown() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subscribers {
		delete(h.subscribers, sub)
		close(sub.ch)
	}

	return nil
}
