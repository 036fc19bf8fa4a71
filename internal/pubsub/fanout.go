package pubsub

import (
	"context"
	"errors"

	"github.com/samber/lo"
	"github.com/zhulik/evote/internal/core"
)

// Fanout publishes every event to all of its publishers, even when some of them fail.
type Fanout []core.Publisher

func (f Fanout) Publish(ctx context.Context, event core.Event) error {
	return errors.Join(lo.Map(f, func(p core.Publisher, _ int) error {
		return p.Publish(ctx, event)
	})...)
}

func (f Fanout) HealthCheck() error {
	return errors.Join(lo.Map(f, func(p core.Publisher, _ int) error {
		return p.HealthCheck()
	})...)
}

func (f Fanout) Shutdown() error {
	return nil
}
