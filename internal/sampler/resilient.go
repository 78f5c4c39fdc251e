package sampler

import (
	"context"
	"time"

	"github.com/cloudpilot-labs/cost-governor/internal/resilience"
	"github.com/cloudpilot-labs/cost-governor/pkg/models"
)

// ResilientSampler wraps a sampler in a circuit breaker. There is no
// in-place retry loop: a failed sample is simply retried on the next
// scheduled evaluation, so a flapping metrics source trips the breaker
// instead of stalling the scaling loop.
type ResilientSampler struct {
	sampler        Sampler
	circuitBreaker *resilience.CircuitBreaker
}

type ResilientConfig struct {
	Sampler       Sampler
	MaxFailures   int
	Timeout       time.Duration
	OnStateChange func(name string, from, to resilience.State)
}

func NewResilientSampler(cfg ResilientConfig) *ResilientSampler {
	cb := resilience.NewCircuitBreaker(resilience.Config{
		Name:          "sampler",
		MaxFailures:   cfg.MaxFailures,
		Timeout:       cfg.Timeout,
		OnStateChange: cfg.OnStateChange,
	})

	return &ResilientSampler{
		sampler:        cfg.Sampler,
		circuitBreaker: cb,
	}
}

func (s *ResilientSampler) Sample(ctx context.Context, fleetID string, windowSeconds int) (*models.UtilizationSample, error) {
	var sample *models.UtilizationSample

	err := s.circuitBreaker.Execute(func() error {
		var err error
		sample, err = s.sampler.Sample(ctx, fleetID, windowSeconds)
		return err
	})
	if err != nil {
		return nil, err
	}

	return sample, nil
}

func (s *ResilientSampler) HealthCheck(ctx context.Context) error {
	return s.sampler.HealthCheck(ctx)
}

func (s *ResilientSampler) Close() error {
	return s.sampler.Close()
}

func (s *ResilientSampler) CircuitState() resilience.State {
	return s.circuitBreaker.State()
}
