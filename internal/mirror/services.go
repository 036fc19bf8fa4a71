package mirror

import (
	"fmt"

	"github.com/samber/do"
	"github.com/zhulik/evote/internal/core"
	"github.com/zhulik/evote/internal/mirror/memory"
	"github.com/zhulik/evote/internal/mirror/nats"
	"github.com/zhulik/evote/internal/mirror/sqlite"
)

func Register(injector *do.Injector) {
	do.Provide(injector, func(injector *do.Injector) (core.Mirror, error) {
		config, err := do.Invoke[core.Config](injector)
		if err != nil {
			return nil, err
		}

		switch config.MirrorBackend() {
		case core.MirrorBackendMemory:
			return memory.New(), nil
		case core.MirrorBackendSQLite:
			return sqlite.NewMirror(injector)
		case core.MirrorBackendNATS:
			return nats.NewMirror(injector)
		default:
			return nil, fmt.Errorf("%w: unknown mirror backend %q", core.ErrInvalidInput, config.MirrorBackend())
		}
	})
}
