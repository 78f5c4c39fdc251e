package expiration

import (
	"context"
	"sync"

	"github.com/cloudpilot-labs/cost-governor/pkg/models"
)

// SeenStore remembers which objects were already warned about within
// their current expiration epoch. Records are committed only after the
// warning was actually delivered.
type SeenStore interface {
	Seen(ctx context.Context, key, epoch string) (bool, error)
	Record(ctx context.Context, rec models.ExpirationWarningRecord) error
}

// MemoryStore keeps warning records in memory, keyed per object. Fine
// for a single process; the DynamoDB store survives restarts.
type MemoryStore struct {
	mu   sync.Mutex
	seen map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		seen: make(map[string]string),
	}
}

func (s *MemoryStore) Seen(ctx context.Context, key, epoch string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seen[key] == epoch, nil
}

func (s *MemoryStore) Record(ctx context.Context, rec models.ExpirationWarningRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// A new epoch for the same key replaces the old record: an age
	// reset permits exactly one fresh warning.
	s.seen[rec.Key] = rec.Epoch
	return nil
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}
