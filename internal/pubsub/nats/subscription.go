package nats

import (
	"fmt"
	"sync"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/sirupsen/logrus"
	"github.com/zhulik/evote/internal/core"
	"github.com/zhulik/evote/pkg/json"
)

const subscriptionBuffer = 64

type Subscription struct {
	consumerCtx jetstream.ConsumeContext
	ch          chan core.Event
	logger      logrus.FieldLogger

	mu      sync.Mutex
	stopped bool
}

func newSubscription(cons jetstream.Consumer, logger logrus.FieldLogger) (*Subscription, error) {
	sub := &Subscription{
		ch:     make(chan core.Event, subscriptionBuffer),
		logger: logger,
	}

	consumerCtx, err := cons.Consume(sub.handle)
	if err != nil {
		return nil, fmt.Errorf("failed to consume: %w", err)
	}

	sub.consumerCtx = consumerCtx

	return sub, nil
}

func (s *Subscription) C() <-chan core.Event {
	return s.ch
}

func (s *Subscription) Stop() {
	s.consumerCtx.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}

	s.stopped = true
	close(s.ch)
	s.logger.Info("Subscription stopped")
}

func (s *Subscription) handle(msg jetstream.Msg) {
	event, err := json.Unmarshal[core.Event](msg.Data())
	if err != nil {
		s.logger.WithError(err).WithField("subject", msg.Subject()).Warn("Skipping malformed event")

		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}

	select {
	case s.ch <- event:
	default:
		s.logger.WithField("eventID", event.ID).Warn("Subscriber is too slow, event dropped")
	}
}
