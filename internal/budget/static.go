package budget

import (
	"context"
	"sync"
	"time"
)

// StaticSource serves spend from memory. Used by the simulator and in
// tests to drive the monitor through threshold crossings and period
// rollovers.
type StaticSource struct {
	mu     sync.Mutex
	period string
	spend  float64
	err    error
}

func NewStaticSource(spend float64) *StaticSource {
	return &StaticSource{
		period: time.Now().UTC().Format("2006-01"),
		spend:  spend,
	}
}

func (s *StaticSource) SetSpend(spend float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spend = spend
}

func (s *StaticSource) SetPeriod(period string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.period = period
}

func (s *StaticSource) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *StaticSource) SpendToDate(ctx context.Context) (string, float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", 0, s.err
	}
	return s.period, s.spend, nil
}
