package service

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// SecretStore holds short-lived secret artifacts: OTP hashes, their attempt
// counters and reset grants.
type SecretStore interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, bool, error)
	// Incr increments key and, when the key was just created, sets ttl on it.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Del(ctx context.Context, keys ...string) error
}

func otpKey(purpose OTPPurpose, email string) string {
	return "otp:" + string(purpose) + ":" + email
}

func otpAttemptsKey(purpose OTPPurpose, email string) string {
	return "otp-attempts:" + string(purpose) + ":" + email
}

func resetGrantKey(userID int64) string {
	return "reset:" + strconv.FormatInt(userID, 10)
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// InMemorySecretStore is a process-local SecretStore for tests and
// single-node development.
type InMemorySecretStore struct {
	mu    sync.Mutex
	store map[string]memoryEntry
	now   func() time.Time
}

func NewInMemorySecretStore() *InMemorySecretStore {
	return &InMemorySecretStore{store: make(map[string]memoryEntry), now: time.Now}
}

func (s *InMemorySecretStore) live(key string) (memoryEntry, bool) {
	e, ok := s.store[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt) {
		delete(s.store, key)
		return memoryEntry{}, false
	}
	return e, true
}

func (s *InMemorySecretStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	s.store[key] = e
	return nil
}

func (s *InMemorySecretStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(key)
	return e.value, ok, nil
}

func (s *InMemorySecretStore) Incr(_ context.Context, key string, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(key)
	var n int64
	if ok {
		v, err := strconv.ParseInt(e.value, 10, 64)
		if err != nil {
			return 0, err
		}
		n = v
	} else if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	n++
	e.value = strconv.FormatInt(n, 10)
	s.store[key] = e
	return n, nil
}

func (s *InMemorySecretStore) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.store, k)
	}
	return nil
}
