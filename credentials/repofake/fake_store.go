package credentialsrepofake

import (
	"context"
	"errors"
	"sync"

	"github.com/jrsteele09/go-auth-session/credentials"
)

var (
	_ credentials.Store   = (*FakeStore)(nil)
	_ credentials.Batcher = (*FakeStore)(nil)
)

// ErrInjected is returned by operations switched into failure mode.
var ErrInjected = errors.New("injected store failure")

// FakeStore is an in-memory credentials.Store. It backs the "memory" driver
// and lets tests inject read/write failures.
type FakeStore struct {
	values map[string]string
	lock   sync.RWMutex

	failGet    bool
	failSet    bool
	failRemove bool
}

func NewFakeStore() *FakeStore {
	return &FakeStore{
		values: make(map[string]string),
	}
}

func (s *FakeStore) Get(_ context.Context, key string) (string, bool, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	if s.failGet {
		return "", false, ErrInjected
	}
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *FakeStore) Set(_ context.Context, key, value string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.failSet {
		return ErrInjected
	}
	s.values[key] = value
	return nil
}

func (s *FakeStore) Remove(_ context.Context, key string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.failRemove {
		return ErrInjected
	}
	delete(s.values, key)
	return nil
}

func (s *FakeStore) SetMany(_ context.Context, values map[string]string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.failSet {
		return ErrInjected
	}
	for k, v := range values {
		s.values[k] = v
	}
	return nil
}

func (s *FakeStore) RemoveMany(_ context.Context, keys ...string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.failRemove {
		return ErrInjected
	}
	for _, k := range keys {
		delete(s.values, k)
	}
	return nil
}

// FailGet switches reads into failure mode.
func (s *FakeStore) FailGet(fail bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.failGet = fail
}

// FailSet switches writes into failure mode.
func (s *FakeStore) FailSet(fail bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.failSet = fail
}

// FailRemove switches deletes into failure mode.
func (s *FakeStore) FailRemove(fail bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.failRemove = fail
}

// Value returns the raw stored value for assertions.
func (s *FakeStore) Value(key string) (string, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Len returns the number of stored keys.
func (s *FakeStore) Len() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return len(s.values)
}
