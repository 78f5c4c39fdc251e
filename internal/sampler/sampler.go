package sampler

import (
	"context"
	"errors"

	"github.com/cloudpilot-labs/cost-governor/pkg/models"
)

var (
	ErrSamplingFailed  = errors.New("utilization sampling failed")
	ErrFleetNotFound   = errors.New("fleet not found")
	ErrNoDataAvailable = errors.New("no utilization data available")
)

// Sampler yields a scalar utilization reading for a fleet. Readings
// are consumed immediately by the scaling controller and never
// persisted by the core.
type Sampler interface {
	// Sample fetches the average utilization over the trailing window.
	Sample(ctx context.Context, fleetID string, windowSeconds int) (*models.UtilizationSample, error)

	// HealthCheck verifies the sampler can reach its data source
	HealthCheck(ctx context.Context) error

	// Close releases any resources held by the sampler
	Close() error
}
