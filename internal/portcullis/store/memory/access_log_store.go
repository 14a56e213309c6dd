package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/types"
)

// AccessLogStore is an in-memory append-only log of access events.
// It is intended for use in tests and dev environments.
type AccessLogStore struct {
	mu     sync.Mutex
	events []types.AccessLog
}

func NewAccessLogStore() *AccessLogStore {
	return &AccessLogStore{}
}

func (s *AccessLogStore) AppendAccessLog(_ context.Context, rec types.AccessLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, rec)
	return nil
}

func (s *AccessLogStore) ListAccessLogs(_ context.Context, q types.AccessLogQuery) ([]types.AccessLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]types.AccessLog, 0, len(s.events))
	for _, ev := range s.events {
		if q.From != nil && ev.Timestamp.Before(*q.From) {
			continue
		}
		if q.To != nil && ev.Timestamp.After(*q.To) {
			continue
		}
		if q.GateID != "" && ev.GateID != q.GateID {
			continue
		}
		if q.VehicleID != "" && ev.VehicleID != q.VehicleID {
			continue
		}
		out = append(out, ev)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID < out[j].ID
	})

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *AccessLogStore) PruneOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.events[:0]
	var deleted int64
	for _, ev := range s.events {
		if ev.Timestamp.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, ev)
	}
	s.events = kept
	return deleted, nil
}

// Events returns a copy of all recorded events in append order.  Test-only helper.
func (s *AccessLogStore) Events() []types.AccessLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.AccessLog, len(s.events))
	copy(out, s.events)
	return out
}
