package fixture

import (
	"github.com/samber/do"
	"github.com/sirupsen/logrus"
	"github.com/zhulik/evote/internal/core"
	"github.com/zhulik/evote/internal/election"
)

func Register(injector *do.Injector) {
	do.Provide(injector, func(injector *do.Injector) (election.Baseline, error) {
		config, err := do.Invoke[core.Config](injector)
		if err != nil {
			return nil, err
		}

		if config.SampleFile() == "" {
			return election.Sample, nil
		}

		logger, err := do.Invoke[logrus.FieldLogger](injector)
		if err != nil {
			return nil, err
		}

		fixture, err := ParseFile(config.SampleFile())
		if err != nil {
			return nil, err
		}

		logger.WithFields(logrus.Fields{
			"component": "fixture",
			"path":      config.SampleFile(),
		}).Info("Baseline loaded from fixture")

		return fixture.BaselineFunc(), nil
	})
}
