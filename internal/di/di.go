// Package di wires every service of the election engine into one injector.
package di

import (
	"github.com/samber/do"
	"github.com/sirupsen/logrus"
	"github.com/zhulik/evote/internal/api"
	"github.com/zhulik/evote/internal/backend"
	"github.com/zhulik/evote/internal/contract"
	"github.com/zhulik/evote/internal/core"
	"github.com/zhulik/evote/internal/election"
	"github.com/zhulik/evote/internal/fixture"
	"github.com/zhulik/evote/internal/ledger"
	"github.com/zhulik/evote/internal/lifecycle"
	"github.com/zhulik/evote/internal/live"
	"github.com/zhulik/evote/internal/logging"
	"github.com/zhulik/evote/internal/mirror"
	"github.com/zhulik/evote/internal/pubsub"
	"github.com/zhulik/evote/internal/reconciler"
	"github.com/zhulik/evote/internal/refresher"
)

// New builds the injector. Services are constructed lazily on first Invoke.
func New(config core.Config) *do.Injector {
	injector := do.New()

	do.ProvideValue(injector, config)

	logging.Register(injector)
	mirror.Register(injector)
	fixture.Register(injector)
	contract.Register(injector)
	backend.Register(injector)
	live.Register(injector)
	pubsub.Register(injector)
	election.Register(injector)
	reconciler.Register(injector)
	ledger.Register(injector)
	lifecycle.Register(injector)
	refresher.Register(injector)
	api.Register(injector)

	return injector
}

func Logger(injector *do.Injector) logrus.FieldLogger {
	return do.MustInvoke[logrus.FieldLogger](injector)
}
