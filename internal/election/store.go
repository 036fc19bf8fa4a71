package election

import (
	"sync"

	"github.com/zhulik/evote/internal/core"
)

// Store holds the current snapshot of one election. Readers always get an independent copy.
type Store struct {
	mu sync.RWMutex

	current  core.Election
	baseline core.Election
}

func NewStore(initial, baseline core.Election) *Store {
	return &Store{
		current:  initial.Clone(),
		baseline: baseline.Clone(),
	}
}

func (s *Store) Address() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.current.Address
}

func (s *Store) Get() core.Election {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.current.Clone()
}

// Check reports whether next could replace the current snapshot.
func (s *Store) Check(next core.Election) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.check(next)
}

func (s *Store) Replace(next core.Election) (core.Election, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(next); err != nil {
		return core.Election{}, err
	}

	s.current = next.Clone()

	return s.current.Clone(), nil
}

// Reset restores the baseline the store was created with as the next revision.
func (s *Store) Reset() core.Election {
	s.mu.Lock()
	defer s.mu.Unlock()

	revision := s.current.Revision
	s.current = s.baseline.Clone()
	s.current.Revision = revision + 1

	return s.current.Clone()
}

// Adopt installs a snapshot another writer already committed. Transition rules are not applied.
func (s *Store) Adopt(e core.Election) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = e.Clone()
}

func (s *Store) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.current.Revision
}

func (s *Store) Baseline() core.Election {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.baseline.Clone()
}

func (s *Store) check(next core.Election) error {
	if err := Validate(next); err != nil {
		return err
	}

	if IsRebase(s.current, next) {
		return nil
	}

	return ValidateTransition(s.current, next)
}
