// Package idempotency remembers the response to each Idempotency-Key so a retried
// POST replays the first result instead of receiving goods or posting entries twice.
package idempotency

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrInFlight is returned by Acquire while another request holds the same key.
var ErrInFlight = errors.New("idempotency: a request with this key is already in progress")

// Response is the recorded outcome of the first request made with a key.
type Response struct {
	// Fingerprint identifies the request (method and path) the key was first used with.
	Fingerprint string `json:"fingerprint"`
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

type Store interface {
	// Get returns the stored response for key, or nil if there is none.
	Get(ctx context.Context, key string) (*Response, error)
	// Acquire marks key as in flight until release is called.
	Acquire(ctx context.Context, key string) (release func(context.Context), err error)
	// Put records the response for key.
	Put(ctx context.Context, key string, resp Response) error
}

// MemoryStore is a process-local Store for single-instance deployments and tests.
type MemoryStore struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	entries  map[string]memoryEntry
	inFlight map[string]struct{}
}

type memoryEntry struct {
	resp    Response
	expires time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:      ttl,
		now:      time.Now,
		entries:  map[string]memoryEntry{},
		inFlight: map[string]struct{}{},
	}
}

func (m *MemoryStore) Get(_ context.Context, key string) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, nil
	}
	if m.now().After(e.expires) {
		delete(m.entries, key)
		return nil, nil
	}
	resp := e.resp
	return &resp, nil
}

func (m *MemoryStore) Acquire(_ context.Context, key string) (func(context.Context), error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, busy := m.inFlight[key]; busy {
		return nil, ErrInFlight
	}
	m.inFlight[key] = struct{}{}
	return func(context.Context) {
		m.mu.Lock()
		delete(m.inFlight, key)
		m.mu.Unlock()
	}, nil
}

func (m *MemoryStore) Put(_ context.Context, key string, resp Response) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = memoryEntry{resp: resp, expires: m.now().Add(m.ttl)}
	return nil
}
