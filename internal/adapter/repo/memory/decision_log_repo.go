package memory

import (
	"context"

	"arenacore/internal/app/ports"

	"github.com/google/uuid"
)

type DecisionLogRepo struct {
	store *Store
}

func NewDecisionLogRepo(store *Store) DecisionLogRepo {
	return DecisionLogRepo{store: store}
}

func (r DecisionLogRepo) Append(_ context.Context, records []ports.DecisionRecord) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, rec := range records {
		list := append(r.store.decisions[rec.AgentID], rec)
		if n := r.store.perAgent; n > 0 && len(list) > n {
			list = append(list[:0:0], list[len(list)-n:]...)
		}
		r.store.decisions[rec.AgentID] = list
	}
	return nil
}

// ListByAgentID returns the newest records first.
func (r DecisionLogRepo) ListByAgentID(_ context.Context, agentID uuid.UUID, limit int) ([]ports.DecisionRecord, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	list := r.store.decisions[agentID]
	if len(list) == 0 {
		return nil, ports.ErrNotFound
	}
	n := len(list)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]ports.DecisionRecord, 0, n)
	for i := len(list) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, list[i])
	}
	return out, nil
}
