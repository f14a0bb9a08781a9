package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_PutGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Hour)

	got, err := s.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, s.Put(ctx, "k1", Response{Fingerprint: "POST /api/grns", Status: 201, Body: []byte(`{"ok":true}`)}))

	got, err = s.Get(ctx, "k1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 201, got.Status)
	assert.Equal(t, "POST /api/grns", got.Fingerprint)
	assert.JSONEq(t, `{"ok":true}`, string(got.Body))
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Minute)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Put(ctx, "k", Response{Status: 200}))
	now = now.Add(2 * time.Minute)

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, got, "expired entries must not be replayed")
}

func TestMemoryStore_AcquireIsExclusive(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Hour)

	release, err := s.Acquire(ctx, "k")
	require.NoError(t, err)

	_, err = s.Acquire(ctx, "k")
	assert.True(t, errors.Is(err, ErrInFlight))

	other, err := s.Acquire(ctx, "other")
	require.NoError(t, err)
	other(ctx)

	release(ctx)
	again, err := s.Acquire(ctx, "k")
	require.NoError(t, err)
	again(ctx)
}
