package pubsub

import (
	"github.com/samber/do"
	"github.com/sirupsen/logrus"
	"github.com/zhulik/evote/internal/core"
	"github.com/zhulik/evote/internal/live"
	"github.com/zhulik/evote/internal/pubsub/nats"
)

func Register(injector *do.Injector) {
	do.Provide(injector, nats.NewClient)
	do.Provide(injector, nats.NewPublisher)
	do.Provide(injector, nats.NewSubscriber)

	do.Provide(injector, func(injector *do.Injector) (core.Publisher, error) {
		config, err := do.Invoke[core.Config](injector)
		if err != nil {
			return nil, err
		}

		logger, err := do.Invoke[logrus.FieldLogger](injector)
		if err != nil {
			return nil, err
		}

		hub, err := do.Invoke[*live.Hub](injector)
		if err != nil {
			return nil, err
		}

		publishers := Fanout{hub}

		if !config.EventsEnabled() {
			return append(publishers, NewLogPublisher(logger)), nil
		}

		publisher, err := do.Invoke[*nats.Publisher](injector)
		if err != nil {
			return nil, err
		}

		return append(publishers, publisher), nil
	})
}
