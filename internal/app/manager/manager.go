package manager

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"arenacore/internal/app/ports"
	"arenacore/internal/platform/logger"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// SpawnFunc builds the replacement for an agent whose respawn is due. The
// replacement should keep old.ID().
type SpawnFunc func(old ports.Agent) (ports.Agent, error)

// Manager owns every registered agent. All structural changes are serialized
// by one lock; Decide calls on the returned agents happen outside it.
type Manager struct {
	mu       sync.RWMutex
	agents   map[uuid.UUID]ports.Agent
	order    []uuid.UUID
	active   map[uuid.UUID]struct{}
	respawns map[uuid.UUID]time.Time
	log      logrus.FieldLogger
}

func New(log logrus.FieldLogger) *Manager {
	if log == nil {
		log = logger.Discard()
	}
	return &Manager{
		agents:   map[uuid.UUID]ports.Agent{},
		active:   map[uuid.UUID]struct{}{},
		respawns: map[uuid.UUID]time.Time{},
		log:      log,
	}
}

// Add registers a and marks it active. An existing agent with the same id is
// replaced.
func (m *Manager) Add(a ports.Agent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := a.ID()
	if _, exists := m.agents[id]; exists {
		m.log.WithFields(logrus.Fields{"agent_id": id.String(), "agent": a.Name()}).Warn("agent id already registered, replacing")
	} else {
		m.order = append(m.order, id)
	}
	m.agents[id] = a
	m.active[id] = struct{}{}
}

func (m *Manager) Remove(id uuid.UUID) (ports.Agent, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.agents[id]
	if !ok {
		return nil, false
	}
	delete(m.agents, id)
	delete(m.active, id)
	delete(m.respawns, id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return a, true
}

func (m *Manager) Get(id uuid.UUID) (ports.Agent, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.agents[id]
	return a, ok
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.agents)
}

func (m *Manager) IsActive(id uuid.UUID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.active[id]
	return ok
}

// Activate is a no-op for unregistered ids.
func (m *Manager) Activate(id uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.agents[id]; !ok {
		return false
	}
	m.active[id] = struct{}{}
	return true
}

func (m *Manager) Deactivate(id uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.active[id]; !ok {
		return false
	}
	delete(m.active, id)
	return true
}

// All returns every registered agent in registration order.
func (m *Manager) All() []ports.Agent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ports.Agent, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.agents[id])
	}
	return out
}

// ActiveAgents snapshots the active agents in registration order.
func (m *Manager) ActiveAgents() []ports.Agent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ports.Agent, 0, len(m.active))
	for _, id := range m.order {
		if _, ok := m.active[id]; ok {
			out = append(out, m.agents[id])
		}
	}
	return out
}

func (m *Manager) ActiveIDs() []uuid.UUID {
	agents := m.ActiveAgents()
	out := make([]uuid.UUID, 0, len(agents))
	for _, a := range agents {
		out = append(out, a.ID())
	}
	return out
}

func (m *Manager) ClearAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.agents = map[uuid.UUID]ports.Agent{}
	m.active = map[uuid.UUID]struct{}{}
	m.respawns = map[uuid.UUID]time.Time{}
	m.order = nil
}

// InitializeAll calls Initialize on every registered agent concurrently and
// returns the first error.
func (m *Manager) InitializeAll(ctx context.Context) error {
	return m.each(ctx, "initialize", func(ctx context.Context, a ports.Agent) error {
		return a.Initialize(ctx)
	})
}

func (m *Manager) ShutdownAll(ctx context.Context) error {
	return m.each(ctx, "shutdown", func(ctx context.Context, a ports.Agent) error {
		return a.Shutdown(ctx)
	})
}

func (m *Manager) each(ctx context.Context, op string, fn func(context.Context, ports.Agent) error) error {
	agents := m.All()
	var g errgroup.Group
	for _, a := range agents {
		g.Go(func() error {
			if err := fn(ctx, a); err != nil {
				m.log.WithError(err).WithFields(logrus.Fields{"agent_id": a.ID().String(), "agent": a.Name()}).Warn(op + " failed")
				return fmt.Errorf("%s agent %s: %w", op, a.Name(), err)
			}
			return nil
		})
	}
	return g.Wait()
}

// ScheduleRespawn deactivates id and queues it for replacement at at.
func (m *Manager) ScheduleRespawn(id uuid.UUID, at time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.agents[id]; !ok {
		return false
	}
	delete(m.active, id)
	m.respawns[id] = at
	return true
}

func (m *Manager) PendingRespawns() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.respawns)
}

// ProcessRespawns replaces every agent whose respawn time is not after now
// with spawn(old), initializes the replacement, activates it and shuts the
// old instance down. Spawn failures leave the old agent inactive and are
// returned joined.
func (m *Manager) ProcessRespawns(ctx context.Context, now time.Time, spawn SpawnFunc) ([]ports.Agent, error) {
	type due struct {
		id uuid.UUID
		at time.Time
	}
	m.mu.Lock()
	var ready []due
	for id, at := range m.respawns {
		if !at.After(now) {
			ready = append(ready, due{id: id, at: at})
			delete(m.respawns, id)
		}
	}
	m.mu.Unlock()
	sort.Slice(ready, func(i, j int) bool { return ready[i].at.Before(ready[j].at) })

	var (
		spawned []ports.Agent
		errs    []error
	)
	for _, d := range ready {
		old, ok := m.Get(d.id)
		if !ok {
			continue
		}
		next, err := spawn(old)
		if err != nil {
			errs = append(errs, fmt.Errorf("respawn agent %s: %w", old.Name(), err))
			continue
		}
		if err := next.Initialize(ctx); err != nil {
			m.log.WithError(err).WithField("agent", next.Name()).Warn("initialize respawned agent failed")
		}
		m.replace(old.ID(), next)
		if old != next {
			if err := old.Shutdown(ctx); err != nil {
				m.log.WithError(err).WithField("agent", old.Name()).Warn("shutdown of replaced agent failed")
			}
		}
		spawned = append(spawned, next)
		m.log.WithFields(logrus.Fields{"agent_id": next.ID().String(), "agent": next.Name()}).Info("agent respawned")
	}
	return spawned, errors.Join(errs...)
}

func (m *Manager) replace(oldID uuid.UUID, next ports.Agent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.agents[oldID]; !ok {
		return
	}
	newID := next.ID()
	if newID != oldID {
		delete(m.agents, oldID)
		delete(m.active, oldID)
		for i, v := range m.order {
			if v == oldID {
				m.order[i] = newID
				break
			}
		}
	}
	m.agents[newID] = next
	m.active[newID] = struct{}{}
}
