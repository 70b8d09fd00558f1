package storefake

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-learner-session/credstore"
	"github.com/jrsteele09/go-learner-session/internal/errors"
)

var _ credstore.Store = (*FakeStore)(nil)

// FakeStore is an in-memory credstore.Store.
type FakeStore struct {
	mu      sync.RWMutex
	entries map[string]string
	failErr error
}

func NewFakeStore() *FakeStore {
	return &FakeStore{
		entries: make(map[string]string),
	}
}

// FailWith makes every subsequent call return err. Pass nil to recover.
func (s *FakeStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failErr = err
}

func (s *FakeStore) Get(_ context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, errors.ErrKeyRequired
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failErr != nil {
		return "", false, s.failErr
	}
	v, ok := s.entries[key]
	return v, ok, nil
}

func (s *FakeStore) Set(_ context.Context, key, value string) error {
	if key == "" {
		return errors.ErrKeyRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return s.failErr
	}
	s.entries[key] = value
	return nil
}

func (s *FakeStore) Delete(_ context.Context, key string) error {
	if key == "" {
		return errors.ErrKeyRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return s.failErr
	}
	delete(s.entries, key)
	return nil
}

func (s *FakeStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return s.failErr
	}
	s.entries = make(map[string]string)
	return nil
}

// Len reports the number of stored entries.
func (s *FakeStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
