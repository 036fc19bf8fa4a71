package testhelpers

import (
	"context"
	"errors"

	"github.com/zhulik/evote/internal/core"
	"github.com/zhulik/evote/internal/mirror/memory"
	"go.uber.org/atomic"
)

var ErrMirrorDown = errors.New("mirror is down")

// FlakyMirror is an in-memory mirror whose writes can be switched off.
type FlakyMirror struct {
	*memory.Mirror

	Down  atomic.Bool
	Saves atomic.Int64
}

func NewFlakyMirror() *FlakyMirror {
	return &FlakyMirror{Mirror: memory.New()}
}

func (m *FlakyMirror) Save(ctx context.Context, election core.Election) error {
	if m.Down.Load() {
		return ErrMirrorDown
	}

	m.Saves.Inc()

	return m.Mirror.Save(ctx, election)
}
