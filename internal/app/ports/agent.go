package ports

import (
	"context"

	"arenacore/internal/domain/combat"

	"github.com/google/uuid"
)

// Agent is the decision contract every agent variant satisfies.
//
// Decide always yields an action and returns within the engine's own bound.
// Hooks are fire-and-forget; hooks for tick N complete before Decide for N+1.
type Agent interface {
	Decide(ctx context.Context, obs combat.WorldObservation) combat.Action

	ID() uuid.UUID
	Name() string
	Kind() string
	Team() combat.Team

	Initialize(ctx context.Context) error
	Shutdown(ctx context.Context) error

	OnDamageReceived(amount float64, attackerID uuid.UUID)
	OnKill(victimID uuid.UUID)
	OnDeath()
	OnMessage(senderID uuid.UUID, text string)
}

// Reasoner is implemented by agents that can explain their last decision.
type Reasoner interface {
	LastReasoning() string
}

type StatsReporter interface {
	StatsSnapshot() any
}
