package election

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/samber/do"
	"github.com/sirupsen/logrus"
	"github.com/zhulik/evote/internal/core"
	"github.com/zhulik/evote/pkg/keylock"
)

const commitAttempts = 3

// Registry owns the Store of every known election, the per-address write lock
// and the write-through to the mirror.
type Registry struct {
	mu     sync.RWMutex
	stores map[string]*Store

	locks    *keylock.KeyLock
	mirror   core.Mirror
	baseline Baseline
	logger   logrus.FieldLogger
}

func NewRegistry(injector *do.Injector) (*Registry, error) {
	logger, err := do.Invoke[logrus.FieldLogger](injector)
	if err != nil {
		return nil, err
	}

	mirror, err := do.Invoke[core.Mirror](injector)
	if err != nil {
		return nil, err
	}

	baseline, err := do.Invoke[Baseline](injector)
	if err != nil {
		return nil, err
	}

	return New(mirror, baseline, logger), nil
}

func New(mirror core.Mirror, baseline Baseline, logger logrus.FieldLogger) *Registry {
	if baseline == nil {
		baseline = Sample
	}

	return &Registry{
		stores:   map[string]*Store{},
		locks:    keylock.New(),
		mirror:   mirror,
		baseline: baseline,
		logger:   logger.WithField("component", "election.Registry"),
	}
}

// Lock serializes writers of one election. Every Commit and Reset must happen under it.
func (r *Registry) Lock(ctx context.Context, address string) (func(), error) {
	return r.locks.Lock(ctx, address)
}

func (r *Registry) Lookup(address string) (*Store, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	store, ok := r.stores[address]

	return store, ok
}

// Load returns the store for address, restoring it from the mirror when it is not in memory yet.
func (r *Registry) Load(ctx context.Context, address string) (*Store, error) {
	if store, ok := r.Lookup(address); ok {
		return store, nil
	}

	mirrored, err := r.mirror.Load(ctx, address)
	if err != nil {
		if errors.Is(err, core.ErrElectionNotFound) {
			return nil, fmt.Errorf("%w: %s", core.ErrElectionNotFound, address)
		}

		r.logger.WithError(err).WithField("address", address).Error("Failed to load mirrored snapshot")

		return nil, fmt.Errorf("%w: failed to load %s", core.ErrMirrorUnavailable, address)
	}

	if err := Validate(mirrored); err != nil {
		return nil, fmt.Errorf("mirrored snapshot of %s is corrupt: %w", address, err)
	}

	return r.add(mirrored), nil
}

// Commit persists next to the mirror and swaps it into memory. Either both happen or neither.
// next is stamped with the revision following the one in memory, so a mirror holding a later
// revision refuses it with ErrStaleSnapshot. The caller must hold the lock of next.Address.
func (r *Registry) Commit(ctx context.Context, next core.Election) (core.Election, error) {
	next = next.Clone()
	next.UpdatedAt = time.Now().UTC()
	next.Revision = 1

	store, ok := r.Lookup(next.Address)
	if ok {
		if err := store.Check(next); err != nil {
			return core.Election{}, err
		}

		next.Revision = store.Revision() + 1
	} else if err := Validate(next); err != nil {
		return core.Election{}, err
	}

	if err := r.persist(ctx, next); err != nil {
		return core.Election{}, err
	}

	if !ok {
		r.logger.WithField("address", next.Address).Debug("Election registered")

		return r.add(next).Get(), nil
	}

	return store.Replace(next)
}

// Mutate applies fn to the latest snapshot of address and commits the result. When another
// writer sharing the mirror got there first, fn runs again on its snapshot.
// The caller must hold the lock of address.
func (r *Registry) Mutate(
	ctx context.Context, address string, fn func(current core.Election) (core.Election, error),
) (core.Election, error) {
	for range commitAttempts {
		if err := r.Sync(ctx, address); err != nil {
			return core.Election{}, err
		}

		store, ok := r.Lookup(address)
		if !ok {
			return core.Election{}, fmt.Errorf("%w: %s", core.ErrElectionNotFound, address)
		}

		next, err := fn(store.Get())
		if err != nil {
			return core.Election{}, err
		}

		committed, err := r.Commit(ctx, next)
		if !errors.Is(err, core.ErrStaleSnapshot) {
			return committed, err
		}
	}

	return core.Election{}, fmt.Errorf("%w: %s", core.ErrConcurrentUpdate, address)
}

// Sync adopts the mirrored snapshot of address when it is at a later revision than memory.
// The caller must hold the lock of address.
func (r *Registry) Sync(ctx context.Context, address string) error {
	store, ok := r.Lookup(address)
	if !ok {
		return nil
	}

	mirrored, err := r.mirror.Load(ctx, address)
	if err != nil {
		if errors.Is(err, core.ErrElectionNotFound) {
			return nil
		}

		r.logger.WithError(err).WithField("address", address).Error("Failed to read mirrored snapshot")

		return fmt.Errorf("%w: failed to read %s", core.ErrMirrorUnavailable, address)
	}

	if mirrored.Revision <= store.Revision() {
		return nil
	}

	if err := Validate(mirrored); err != nil {
		return fmt.Errorf("mirrored snapshot of %s is corrupt: %w", address, err)
	}

	r.logger.WithFields(logrus.Fields{
		"address":  address,
		"revision": mirrored.Revision,
	}).Debug("Adopted newer mirrored snapshot")

	store.Adopt(mirrored)

	return nil
}

// Reset restores the baseline of address, dropping every VoteRecord. The caller must hold the lock.
func (r *Registry) Reset(ctx context.Context, address string) (core.Election, error) {
	if err := r.Sync(ctx, address); err != nil {
		return core.Election{}, err
	}

	baseline := r.Baseline(address)
	baseline.UpdatedAt = time.Now().UTC()
	baseline.Revision = 1

	store, ok := r.Lookup(address)
	if ok {
		baseline.Revision = store.Revision() + 1
	}

	if err := r.persist(ctx, baseline); err != nil {
		return core.Election{}, err
	}

	if !ok {
		return r.add(baseline).Get(), nil
	}

	store.Adopt(baseline)

	return store.Get(), nil
}

func (r *Registry) Baseline(address string) core.Election {
	return FromTemplate(r.baseline(address), address)
}

func (r *Registry) Addresses() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	addresses := make([]string, 0, len(r.stores))
	for address := range r.stores {
		addresses = append(addresses, address)
	}

	slices.Sort(addresses)

	return addresses
}

// persist saves e to the mirror. Backend failures are logged here and reported without their
// details; a refused stale snapshot keeps ErrStaleSnapshot.
func (r *Registry) persist(ctx context.Context, e core.Election) error {
	err := r.mirror.Save(ctx, e)
	if err == nil {
		return nil
	}

	logger := r.logger.WithError(err).WithFields(logrus.Fields{
		"address":  e.Address,
		"revision": e.Revision,
	})

	if errors.Is(err, core.ErrStaleSnapshot) {
		logger.Info("Mirror holds a newer snapshot")

		return fmt.Errorf("%w: %s", core.ErrStaleSnapshot, e.Address)
	}

	logger.Error("Failed to persist election")

	return fmt.Errorf("%w: failed to persist %s", core.ErrMirrorUnavailable, e.Address)
}

func (r *Registry) add(e core.Election) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()

	if store, ok := r.stores[e.Address]; ok {
		return store
	}

	store := NewStore(e, r.Baseline(e.Address))
	r.stores[e.Address] = store

	return store
}
