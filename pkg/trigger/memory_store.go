package trigger

import (
	"context"
	"fmt"
	"sync"

	"github.com/webqa/autoheal/pkg/suite"
)

// MemoryStore is an in-process Store, useful for tests and single-node
// deployments without Postgres.
type MemoryStore struct {
	mu       sync.RWMutex
	triggers map[string]*suite.Trigger
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{triggers: make(map[string]*suite.Trigger)}
}

func (m *MemoryStore) Get(_ context.Context, id string) (*suite.Trigger, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.triggers[id]
	if !ok {
		return nil, fmt.Errorf("trigger %q not found", id)
	}
	cp := *t
	return &cp, nil
}

func (m *MemoryStore) ListByType(_ context.Context, typ suite.TriggerType) ([]*suite.Trigger, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*suite.Trigger
	for _, t := range m.triggers {
		if t.TriggerType == typ {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MemoryStore) Save(_ context.Context, trg *suite.Trigger) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *trg
	m.triggers[trg.ID] = &cp
	return nil
}
