package memory

import (
	"context"
	"sync"

	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/store"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/types"
)

type GateStore struct {
	mu    sync.RWMutex
	gates map[string]types.Gate
	order []string
}

func NewGateStore() *GateStore {
	return &GateStore{gates: make(map[string]types.Gate)}
}

func (s *GateStore) CreateGate(_ context.Context, g types.Gate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(g)
	return nil
}

// put requires s.mu held for writing.
func (s *GateStore) put(g types.Gate) {
	if _, ok := s.gates[g.ID]; !ok {
		s.order = append(s.order, g.ID)
	}
	s.gates[g.ID] = g
}

func (s *GateStore) GetGate(_ context.Context, id string) (types.Gate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.gates[id]
	if !ok {
		return types.Gate{}, store.ErrNotFound
	}
	return g, nil
}

func (s *GateStore) ListGates(_ context.Context) ([]types.Gate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Gate, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.gates[id])
	}
	return out, nil
}

func (s *GateStore) UpdateGate(_ context.Context, g types.Gate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.gates[g.ID]; !ok {
		return store.ErrNotFound
	}
	s.gates[g.ID] = g
	return nil
}
