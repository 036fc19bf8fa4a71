package backend

import (
	"github.com/samber/do"
	"github.com/zhulik/evote/internal/core"
)

func Register(injector *do.Injector) {
	do.Provide(injector, func(injector *do.Injector) (core.RegistrationBackend, error) {
		config, err := do.Invoke[core.Config](injector)
		if err != nil {
			return nil, err
		}

		if config.BackendURL() == "" {
			return Disabled{}, nil
		}

		return NewClient(injector)
	})
}
