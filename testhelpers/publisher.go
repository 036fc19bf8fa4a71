package testhelpers

import (
	"context"
	"sync"

	"github.com/samber/lo"
	"github.com/zhulik/evote/internal/core"
)

// RecordingPublisher keeps every published event in memory.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []core.Event
}

func (p *RecordingPublisher) Publish(_ context.Context, event core.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, event)

	return nil
}

func (p *RecordingPublisher) Events() []core.Event {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]core.Event(nil), p.events...)
}

func (p *RecordingPublisher) Kinds() []core.EventKind {
	return lo.Map(p.Events(), func(e core.Event, _ int) core.EventKind { return e.Kind })
}

func (p *RecordingPublisher) HealthCheck() error {
	return nil
}

func (p *RecordingPublisher) Shutdown() error {
	return nil
}
