package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVenueLockWithoutRedisIsNoop(t *testing.T) {
	l := NewVenueLock(nil, time.Second, time.Second)
	release, err := l.Acquire(context.Background(), "Pad1", "2026-01-01")
	require.NoError(t, err)
	assert.NotPanics(t, release)
}

func TestLockKey(t *testing.T) {
	assert.Equal(t, "lock:booking:Pad1:2026-01-01", LockKey("Pad1", "2026-01-01"))
}
