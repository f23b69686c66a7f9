package manager

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"arenacore/internal/app/ports"
	"arenacore/internal/domain/combat"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAgent struct {
	id          uuid.UUID
	name        string
	generation  int
	initErr     error
	initialized int32
	shutdown    int32
}

func newStub(name string) *stubAgent { return &stubAgent{id: uuid.New(), name: name} }

func (s *stubAgent) Decide(context.Context, combat.WorldObservation) combat.Action {
	return combat.Wait()
}
func (s *stubAgent) ID() uuid.UUID     { return s.id }
func (s *stubAgent) Name() string      { return s.name }
func (s *stubAgent) Kind() string      { return "stub" }
func (s *stubAgent) Team() combat.Team { return combat.NoTeam }
func (s *stubAgent) Initialize(context.Context) error {
	atomic.AddInt32(&s.initialized, 1)
	return s.initErr
}
func (s *stubAgent) Shutdown(context.Context) error {
	atomic.AddInt32(&s.shutdown, 1)
	return nil
}
func (s *stubAgent) OnDamageReceived(float64, uuid.UUID) {}
func (s *stubAgent) OnKill(uuid.UUID)                    {}
func (s *stubAgent) OnDeath()                            {}
func (s *stubAgent) OnMessage(uuid.UUID, string)         {}

func TestManager_AddMakesActive(t *testing.T) {
	m := New(nil)
	a, b := newStub("a"), newStub("b")
	m.Add(a)
	m.Add(b)

	assert.Equal(t, 2, m.Count())
	assert.True(t, m.IsActive(a.ID()))
	assert.Equal(t, []uuid.UUID{a.ID(), b.ID()}, m.ActiveIDs())
}

func TestManager_AddCollisionOverwritesWithoutDuplicatingActive(t *testing.T) {
	m := New(nil)
	first := newStub("first")
	second := &stubAgent{id: first.ID(), name: "second"}
	m.Add(first)
	m.Add(second)

	got, ok := m.Get(first.ID())
	require.True(t, ok)
	assert.Equal(t, "second", got.Name())
	assert.Equal(t, 1, m.Count())
	assert.Len(t, m.ActiveAgents(), 1)
}

func TestManager_RemoveMissingIsNoop(t *testing.T) {
	m := New(nil)
	a := newStub("a")
	m.Add(a)

	got, ok := m.Remove(uuid.New())
	assert.False(t, ok)
	assert.Nil(t, got)
	assert.Equal(t, 1, m.Count())
	assert.True(t, m.IsActive(a.ID()))

	got, ok = m.Remove(a.ID())
	require.True(t, ok)
	assert.Equal(t, a, got)
	assert.Equal(t, 0, m.Count())
	assert.False(t, m.IsActive(a.ID()))
}

func TestManager_ActivateDeactivate(t *testing.T) {
	m := New(nil)
	a := newStub("a")
	m.Add(a)

	assert.False(t, m.Activate(uuid.New()))
	assert.Equal(t, 1, len(m.ActiveAgents()))

	assert.True(t, m.Deactivate(a.ID()))
	assert.False(t, m.Deactivate(a.ID()))
	assert.Empty(t, m.ActiveAgents())
	assert.Equal(t, 1, m.Count())

	assert.True(t, m.Activate(a.ID()))
	assert.True(t, m.IsActive(a.ID()))
}

func TestManager_ClearAll(t *testing.T) {
	m := New(nil)
	a := newStub("a")
	m.Add(a)
	m.Add(newStub("b"))
	m.ScheduleRespawn(a.ID(), time.Now())

	m.ClearAll()
	assert.Equal(t, 0, m.Count())
	assert.Empty(t, m.ActiveAgents())
	assert.Equal(t, 0, m.PendingRespawns())
}

func TestManager_InitializeAllSurfacesFailure(t *testing.T) {
	m := New(nil)
	ok1, ok2 := newStub("ok1"), newStub("ok2")
	bad := newStub("bad")
	bad.initErr = errors.New("no service")
	m.Add(ok1)
	m.Add(bad)
	m.Add(ok2)

	err := m.InitializeAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")
	for _, s := range []*stubAgent{ok1, ok2, bad} {
		assert.Equal(t, int32(1), atomic.LoadInt32(&s.initialized), s.name)
	}

	require.NoError(t, m.ShutdownAll(context.Background()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&ok1.shutdown))
}

func TestManager_RespawnReplacesDueAgents(t *testing.T) {
	m := New(nil)
	dead := newStub("dead")
	waiting := newStub("waiting")
	m.Add(dead)
	m.Add(waiting)

	now := time.Unix(1700000000, 0)
	require.True(t, m.ScheduleRespawn(dead.ID(), now.Add(time.Second)))
	require.True(t, m.ScheduleRespawn(waiting.ID(), now.Add(time.Minute)))
	assert.False(t, m.ScheduleRespawn(uuid.New(), now))
	assert.False(t, m.IsActive(dead.ID()))

	spawn := func(old ports.Agent) (ports.Agent, error) {
		prev := old.(*stubAgent)
		return &stubAgent{id: prev.id, name: prev.name, generation: prev.generation + 1}, nil
	}

	spawned, err := m.ProcessRespawns(context.Background(), now, spawn)
	require.NoError(t, err)
	assert.Empty(t, spawned)

	spawned, err = m.ProcessRespawns(context.Background(), now.Add(2*time.Second), spawn)
	require.NoError(t, err)
	require.Len(t, spawned, 1)

	got, ok := m.Get(dead.ID())
	require.True(t, ok)
	fresh := got.(*stubAgent)
	assert.Equal(t, 1, fresh.generation)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fresh.initialized))
	assert.Equal(t, int32(1), atomic.LoadInt32(&dead.shutdown))
	assert.Zero(t, atomic.LoadInt32(&fresh.shutdown))
	assert.Zero(t, atomic.LoadInt32(&waiting.shutdown))
	assert.True(t, m.IsActive(dead.ID()))
	assert.False(t, m.IsActive(waiting.ID()))
	assert.Equal(t, 1, m.PendingRespawns())
	assert.Equal(t, 2, m.Count())
}

func TestManager_RespawnSpawnErrorLeavesAgentInactive(t *testing.T) {
	m := New(nil)
	a := newStub("a")
	m.Add(a)
	now := time.Now()
	m.ScheduleRespawn(a.ID(), now)

	_, err := m.ProcessRespawns(context.Background(), now, func(ports.Agent) (ports.Agent, error) {
		return nil, errors.New("arena full")
	})
	require.Error(t, err)
	assert.False(t, m.IsActive(a.ID()))
	assert.Equal(t, 1, m.Count())
}
