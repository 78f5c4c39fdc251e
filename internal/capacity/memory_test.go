package capacity

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBackend(t *testing.T) *MemoryBackend {
	t.Helper()
	b := NewMemoryBackend()
	b.InitFleet("fleet-1", 1, 5, 2)
	return b
}

func TestMemoryBackend_UnknownFleet(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	_, err := b.GetCapacity(ctx, "ghost")
	assert.ErrorIs(t, err, ErrFleetNotFound)

	assert.ErrorIs(t, b.RequestDelta(ctx, "ghost", 1), ErrFleetNotFound)
	assert.ErrorIs(t, b.SetDesired(ctx, "ghost", 3), ErrFleetNotFound)
}

func TestMemoryBackend_RequestDelta(t *testing.T) {
	tests := []struct {
		name        string
		delta       int
		wantDesired int
		wantErr     error
	}{
		{name: "scale up one", delta: 1, wantDesired: 3},
		{name: "scale down one", delta: -1, wantDesired: 1},
		{name: "clamped at max", delta: 10, wantDesired: 5},
		{name: "clamped at min", delta: -10, wantDesired: 1},
		{name: "zero delta rejected", delta: 0, wantErr: ErrInvalidDelta},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestBackend(t)
			ctx := context.Background()

			err := b.RequestDelta(ctx, "fleet-1", tt.delta)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)

			snap, err := b.GetCapacity(ctx, "fleet-1")
			require.NoError(t, err)
			assert.Equal(t, tt.wantDesired, snap.Desired)
			assert.Equal(t, tt.wantDesired, snap.Current)
		})
	}
}

func TestMemoryBackend_SetDesiredClamps(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	require.NoError(t, b.SetDesired(ctx, "fleet-1", 0))
	snap, err := b.GetCapacity(ctx, "fleet-1")
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Desired, "absolute set below min clamps to min")

	require.NoError(t, b.SetDesired(ctx, "fleet-1", 4))
	snap, err = b.GetCapacity(ctx, "fleet-1")
	require.NoError(t, err)
	assert.Equal(t, 4, snap.Desired)
}

func TestMemoryBackend_FailNextIsOneShot(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	injected := errors.New("control plane unavailable")

	b.FailNext(injected)

	err := b.RequestDelta(ctx, "fleet-1", 1)
	assert.ErrorIs(t, err, injected)

	snap, err := b.GetCapacity(ctx, "fleet-1")
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Desired, "failed request must not change capacity")

	require.NoError(t, b.RequestDelta(ctx, "fleet-1", 1))
	snap, _ = b.GetCapacity(ctx, "fleet-1")
	assert.Equal(t, 3, snap.Desired)
}

func TestMemoryBackend_SnapshotIsACopy(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	snap, err := b.GetCapacity(ctx, "fleet-1")
	require.NoError(t, err)
	snap.Desired = 99

	fresh, err := b.GetCapacity(ctx, "fleet-1")
	require.NoError(t, err)
	assert.Equal(t, 2, fresh.Desired, "callers must not mutate backend state")
}
