package notify

import (
	"context"
	"sync"
)

// Delivery is one recorded send, kept by the memory sink.
type Delivery struct {
	Subscribers []string
	Message     Message
}

// MemorySink records deliveries in memory. Used by the simulator and
// tests; can be told to fail specific subjects to exercise the
// retry-on-next-scan path.
type MemorySink struct {
	mu          sync.Mutex
	deliveries  []Delivery
	failAll     error
	failSubject map[string]error
}

func NewMemorySink() *MemorySink {
	return &MemorySink{
		failSubject: make(map[string]error),
	}
}

func (s *MemorySink) FailAll(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failAll = err
}

func (s *MemorySink) FailSubject(subject string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failSubject[subject] = err
}

func (s *MemorySink) Send(ctx context.Context, subscribers []string, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failAll != nil {
		return s.failAll
	}
	if err := s.failSubject[msg.Subject]; err != nil {
		return err
	}

	s.deliveries = append(s.deliveries, Delivery{
		Subscribers: subscribers,
		Message:     msg,
	})
	return nil
}

func (s *MemorySink) Deliveries() []Delivery {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Delivery, len(s.deliveries))
	copy(out, s.deliveries)
	return out
}

func (s *MemorySink) Close() error {
	return nil
}
