package contract

import (
	"github.com/samber/do"
	"github.com/sirupsen/logrus"
	"github.com/zhulik/evote/internal/contract/ethereum"
	"github.com/zhulik/evote/internal/core"
)

func Register(injector *do.Injector) {
	do.Provide(injector, func(injector *do.Injector) (core.ContractClient, error) {
		config, err := do.Invoke[core.Config](injector)
		if err != nil {
			return nil, err
		}

		logger, err := do.Invoke[logrus.FieldLogger](injector)
		if err != nil {
			return nil, err
		}

		if config.EthRPCURL() == "" {
			logger.Info("No contract node configured, elections are served from the mirror")

			return Disabled{}, nil
		}

		return ethereum.NewClient(injector)
	})
}
