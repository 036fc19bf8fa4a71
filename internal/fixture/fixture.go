// Package fixture loads election fixtures from YAML: the baseline used for fallbacks and resets,
// and elections to seed into the mirror.
package fixture

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"
	"github.com/zhulik/evote/internal/core"
	"github.com/zhulik/evote/internal/election"
)

var (
	ErrValidationFailed = errors.New("fixture validation failed")
	validate            = validator.New(validator.WithRequiredStructEnabled()) //nolint:gochecknoglobals
)

type Fixture struct {
	Version   int             `validate:"required,eq=1" yaml:"version"`
	Baseline  *core.Election  `validate:"omitempty"     yaml:"baseline"`
	Elections []core.Election `validate:"dive"          yaml:"elections"`
}

func ParseFile(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture file: %w", err)
	}

	fixture, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse fixture %s: %w", path, err)
	}

	return fixture, nil
}

func Parse(data []byte) (*Fixture, error) {
	fixture := Fixture{}

	err := yaml.Unmarshal(data, &fixture)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal fixture: %w", err)
	}

	// The baseline is a template, its address is replaced on use.
	if fixture.Baseline != nil && fixture.Baseline.Address == "" {
		fixture.Baseline.Address = core.SampleAddress
	}

	err = validate.Struct(fixture)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}

	for _, e := range fixture.Snapshots() {
		if err := election.Validate(e); err != nil {
			return nil, fmt.Errorf("%w: election %s: %w", ErrValidationFailed, e.Address, err)
		}
	}

	return &fixture, nil
}

// BaselineFunc returns the fixture baseline, or the built-in sample when the fixture has none.
func (f *Fixture) BaselineFunc() election.Baseline {
	if f.Baseline == nil {
		return election.Sample
	}

	template := f.Baseline.Clone()

	return func(address string) core.Election {
		return election.FromTemplate(template, address)
	}
}

// Snapshots returns the fixture elections stamped as fallback snapshots.
func (f *Fixture) Snapshots() []core.Election {
	snapshots := make([]core.Election, 0, len(f.Elections))

	for _, e := range f.Elections {
		snapshots = append(snapshots, election.FromTemplate(e, e.Address))
	}

	return snapshots
}

// Seed commits every fixture election through registry. Elections already known are replaced
// only if the replacement is a legal transition.
func (f *Fixture) Seed(ctx context.Context, registry *election.Registry) ([]core.Election, error) {
	seeded := make([]core.Election, 0, len(f.Elections))

	for _, e := range f.Snapshots() {
		committed, err := seed(ctx, registry, e)
		if err != nil {
			return seeded, fmt.Errorf("failed to seed %s: %w", e.Address, err)
		}

		seeded = append(seeded, committed)
	}

	return seeded, nil
}

func seed(ctx context.Context, registry *election.Registry, e core.Election) (core.Election, error) {
	unlock, err := registry.Lock(ctx, e.Address)
	if err != nil {
		return core.Election{}, err
	}
	defer unlock()

	_, err = registry.Load(ctx, e.Address)
	if err != nil && !errors.Is(err, core.ErrElectionNotFound) {
		return core.Election{}, err
	}

	return registry.Commit(ctx, e)
}
