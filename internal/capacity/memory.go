package capacity

import (
	"context"
	"sync"

	"github.com/cloudpilot-labs/cost-governor/internal/logger"
	"github.com/cloudpilot-labs/cost-governor/pkg/models"
)

// MemoryBackend is an in-memory capacity backend for the simulator and
// tests. Writes are serialized by a single mutex, giving the same
// last-write-wins behavior the cloud control plane provides.
type MemoryBackend struct {
	mu     sync.Mutex
	fleets map[string]*models.FleetCapacity

	failNext error
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		fleets: make(map[string]*models.FleetCapacity),
	}
}

// InitFleet registers a fleet with its bounds and starting capacity.
func (b *MemoryBackend) InitFleet(fleetID string, min, max, desired int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.fleets[fleetID] = &models.FleetCapacity{
		FleetID: fleetID,
		Min:     min,
		Max:     max,
		Desired: desired,
		Current: desired,
	}
}

// FailNext makes the next capacity request return err. Used in tests
// to exercise the unconfirmed-request path.
func (b *MemoryBackend) FailNext(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failNext = err
}

func (b *MemoryBackend) GetCapacity(ctx context.Context, fleetID string) (*models.FleetCapacity, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	fleet, ok := b.fleets[fleetID]
	if !ok {
		return nil, ErrFleetNotFound
	}

	snapshot := *fleet
	return &snapshot, nil
}

func (b *MemoryBackend) RequestDelta(ctx context.Context, fleetID string, delta int) error {
	if delta == 0 {
		return ErrInvalidDelta
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	fleet, ok := b.fleets[fleetID]
	if !ok {
		return ErrFleetNotFound
	}
	if err := b.takeFailure(); err != nil {
		return err
	}

	b.apply(fleet, fleet.Desired+delta)
	return nil
}

func (b *MemoryBackend) SetDesired(ctx context.Context, fleetID string, value int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	fleet, ok := b.fleets[fleetID]
	if !ok {
		return ErrFleetNotFound
	}
	if err := b.takeFailure(); err != nil {
		return err
	}

	b.apply(fleet, value)
	return nil
}

func (b *MemoryBackend) apply(fleet *models.FleetCapacity, value int) {
	clamped := fleet.Clamp(value)
	if clamped != value {
		logger.WithFleet(fleet.FleetID).Warnf("Desired capacity %d outside [%d,%d], clamped to %d",
			value, fleet.Min, fleet.Max, clamped)
	}
	fleet.Desired = clamped
	fleet.Current = clamped
}

func (b *MemoryBackend) takeFailure() error {
	if b.failNext != nil {
		err := b.failNext
		b.failNext = nil
		return err
	}
	return nil
}

func (b *MemoryBackend) Close() error {
	return nil
}
