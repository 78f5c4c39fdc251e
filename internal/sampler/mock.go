package sampler

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/cloudpilot-labs/cost-governor/pkg/models"
)

// MockSampler produces synthetic utilization readings around a movable
// base value. Used by the simulator and by tests.
type MockSampler struct {
	mu           sync.Mutex
	fleets       map[string]bool
	baseValue    float64
	variance     float64
	shouldFail   bool
	failureError error
}

type MockConfig struct {
	BaseValue float64
	Variance  float64
}

func NewMockSampler(cfg MockConfig) *MockSampler {
	baseValue := cfg.BaseValue
	if baseValue == 0 {
		baseValue = 50.0
	}

	variance := cfg.Variance
	if variance == 0 {
		variance = 5.0
	}

	return &MockSampler{
		fleets:    make(map[string]bool),
		baseValue: baseValue,
		variance:  variance,
	}
}

func (s *MockSampler) AddFleet(fleetID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fleets[fleetID] = true
}

func (s *MockSampler) SetBaseValue(value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.baseValue = value
}

func (s *MockSampler) SetShouldFail(shouldFail bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shouldFail = shouldFail
	s.failureError = err
}

func (s *MockSampler) Sample(ctx context.Context, fleetID string, windowSeconds int) (*models.UtilizationSample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.shouldFail {
		if s.failureError != nil {
			return nil, s.failureError
		}
		return nil, ErrSamplingFailed
	}

	if !s.fleets[fleetID] {
		return nil, ErrFleetNotFound
	}

	value := s.baseValue + (rand.Float64()*2-1)*s.variance
	if value < 0 {
		value = 0
	}
	if value > 100 {
		value = 100
	}

	return &models.UtilizationSample{
		FleetID:   fleetID,
		Timestamp: time.Now(),
		Value:     value,
	}, nil
}

func (s *MockSampler) HealthCheck(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shouldFail {
		return ErrSamplingFailed
	}
	return nil
}

func (s *MockSampler) Close() error {
	return nil
}
