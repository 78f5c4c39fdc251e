package capacity

import (
	"context"
	"errors"

	"github.com/cloudpilot-labs/cost-governor/pkg/models"
)

var (
	ErrRequestFailed = errors.New("capacity request failed")
	ErrFleetNotFound = errors.New("fleet not found")
	ErrInvalidDelta  = errors.New("invalid capacity delta")
)

// Backend is the single source of truth for fleet capacity. Scaling
// and schedule controllers only ever submit desired-capacity requests
// through it; conflicting writes resolve last-write-wins.
type Backend interface {
	// GetCapacity returns the current capacity snapshot of a fleet.
	GetCapacity(ctx context.Context, fleetID string) (*models.FleetCapacity, error)

	// RequestDelta adjusts the desired count by delta, clamped to the
	// fleet's [min, max].
	RequestDelta(ctx context.Context, fleetID string, delta int) error

	// SetDesired forces the desired count to an absolute value,
	// clamped to the fleet's [min, max]. Setting the already-current
	// value is a valid no-op and is still issued.
	SetDesired(ctx context.Context, fleetID string, value int) error

	// Close releases resources
	Close() error
}
