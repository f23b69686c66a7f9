package main

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"arenacore/internal/adapter/world/sandbox"
	"arenacore/internal/app/inference"
	"arenacore/internal/app/manager"
	"arenacore/internal/app/ports"
	"arenacore/internal/app/scripted"
	"arenacore/internal/app/tick"
	"arenacore/internal/config"
	"arenacore/internal/domain/combat"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const medkitCount = 4

// agentFactory builds agents from config entries. It also rebuilds them on
// respawn, keeping the original id.
type agentFactory struct {
	cfg   config.Config
	gen   ports.GenerationService
	log   logrus.FieldLogger
	seed  int64
	built int64
	specs map[uuid.UUID]config.AgentSpec
}

func newAgentFactory(cfg config.Config, gen ports.GenerationService, log logrus.FieldLogger, seed int64) *agentFactory {
	return &agentFactory{cfg: cfg, gen: gen, log: log, seed: seed, specs: map[uuid.UUID]config.AgentSpec{}}
}

func (f *agentFactory) build(spec config.AgentSpec, id uuid.UUID) (ports.Agent, error) {
	f.specs[id] = spec
	f.built++
	team := combat.Team(spec.Team)
	switch spec.Kind {
	case config.AgentKindScripted:
		return scripted.New(spec.Name, team,
			scripted.WithID(id),
			scripted.WithProfile(profileFromConfig(f.cfg.Behavior)),
			scripted.WithRand(rand.New(rand.NewSource(f.seed+f.built))),
			scripted.WithLogger(f.log),
		), nil
	case config.AgentKindInference:
		return inference.New(spec.Name, team, f.cfg.Inference, f.gen,
			inference.WithID(id),
			inference.WithLogger(f.log),
		)
	default:
		return nil, &ports.ConfigError{Field: "agents.kind", Reason: "unknown kind " + string(spec.Kind)}
	}
}

func (f *agentFactory) respawn(old ports.Agent) (ports.Agent, error) {
	spec, ok := f.specs[old.ID()]
	if !ok {
		return nil, fmt.Errorf("no config entry for agent %s", old.Name())
	}
	return f.build(spec, old.ID())
}

func profileFromConfig(b config.BehaviorConfig) scripted.Profile {
	return scripted.Profile{
		Aggression:    b.Aggression,
		Caution:       b.Caution,
		Exploration:   b.Exploration,
		Cooperation:   b.Cooperation,
		FleeThreshold: b.FleeThreshold,
		AttackRange:   b.AttackRange,
		VisionRange:   b.VisionRange,
		MaxHealth:     b.MaxHealth,
		MaxVisited:    b.MaxVisited,
	}
}

func sandboxConfig(cfg config.Config) sandbox.Config {
	out := sandbox.DefaultConfig()
	out.Width = cfg.Arena.Width
	out.Depth = cfg.Arena.Depth
	out.VisionRange = cfg.Behavior.VisionRange
	out.AttackRange = cfg.Behavior.AttackRange
	out.MaxHealth = cfg.Behavior.MaxHealth
	out.MatchDuration = cfg.Arena.MatchDuration
	return out
}

// match couples the decision engine to the sandbox world, one step per tick.
type match struct {
	world        *sandbox.World
	agents       *manager.Manager
	runner       *tick.Runner
	factory      *agentFactory
	rng          *rand.Rand
	dt           time.Duration
	respawnDelay time.Duration
	log          logrus.FieldLogger
}

func (m *match) populate(ctx context.Context, specs []config.AgentSpec) error {
	for _, spec := range specs {
		a, err := m.factory.build(spec, uuid.New())
		if err != nil {
			return fmt.Errorf("build agent %s: %w", spec.Name, err)
		}
		m.agents.Add(a)
		m.world.Spawn(a.ID(), a.Team(), m.world.RandomPoint(m.rng))
	}
	for i := 0; i < medkitCount; i++ {
		m.world.PlaceObject("medkit", m.world.RandomPoint(m.rng))
	}
	return m.agents.InitializeAll(ctx)
}

// step runs one decide/apply cycle and reports whether the match continues.
func (m *match) step(ctx context.Context, now time.Time) bool {
	n := m.world.Tick()
	actions := m.runner.Run(ctx, n, m.world.Observations())

	for _, e := range m.world.Apply(actions, m.dt) {
		if e.Kind != sandbox.EventDeath {
			continue
		}
		m.agents.ScheduleRespawn(e.Target, now.Add(m.respawnDelay))
		m.log.WithFields(logrus.Fields{"tick": n, "killer": e.Actor.String(), "victim": e.Target.String()}).Info("agent eliminated")
	}

	spawned, err := m.agents.ProcessRespawns(ctx, now, m.factory.respawn)
	if err != nil {
		m.log.WithError(err).Warn("respawn failed")
	}
	for _, a := range spawned {
		if err := m.world.Revive(a.ID(), m.world.RandomPoint(m.rng)); err != nil {
			m.log.WithError(err).WithField("agent", a.Name()).Warn("revive body failed")
		}
	}
	return !m.world.MatchOver()
}

// run steps at the tick rate until maxTicks (zero means unbounded), the end
// of the match or ctx cancellation.
func (m *match) run(ctx context.Context, maxTicks int) {
	ticker := time.NewTicker(m.dt)
	defer ticker.Stop()
	for i := 0; maxTicks <= 0 || i < maxTicks; i++ {
		if !m.step(ctx, time.Now()) {
			m.log.WithField("tick", m.world.Tick()).Info("match over")
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
