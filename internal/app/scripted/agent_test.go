package scripted

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"arenacore/internal/app/ports"
	"arenacore/internal/domain/combat"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.Agent = (*Agent)(nil)
var _ ports.Reasoner = (*Agent)(nil)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestAgent(t *testing.T, opts ...Option) (*Agent, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	base := []Option{WithClock(clock.Now), WithRand(rand.New(rand.NewSource(1)))}
	a := New("red-scout", ownTeam, append(base, opts...)...)
	require.NoError(t, a.Initialize(context.Background()))
	return a, clock
}

func TestAgent_Identity(t *testing.T) {
	id := uuid.New()
	a, _ := newTestAgent(t, WithID(id))
	assert.Equal(t, id, a.ID())
	assert.Equal(t, "red-scout", a.Name())
	assert.Equal(t, Kind, a.Kind())
	assert.Equal(t, ownTeam, a.Team())
	assert.Equal(t, Idle, a.State())
}

func TestAgent_ExploresWhenAlone(t *testing.T) {
	a, _ := newTestAgent(t)
	act := a.Decide(context.Background(), obsWith(100))

	require.Equal(t, combat.ActionMove, act.Kind)
	assert.InDelta(t, exploreSpeed, act.Direction.Length(), 1e-9)
	assert.Equal(t, Exploring, a.State())
	assert.Equal(t, 1, a.VisitedCount())
	assert.Contains(t, a.LastReasoning(), "state=Exploring")
}

func TestAgent_ExploringReturnsToIdleAfterTimeout(t *testing.T) {
	a, clock := newTestAgent(t)
	ctx := context.Background()

	a.Decide(ctx, obsWith(100))
	require.Equal(t, Exploring, a.State())

	clock.Advance(3 * time.Second)
	a.Decide(ctx, obsWith(100))
	assert.Equal(t, Exploring, a.State())

	clock.Advance(3 * time.Second)
	act := a.Decide(ctx, obsWith(100))
	assert.Equal(t, Idle, a.State())
	assert.Equal(t, combat.ActionWait, act.Kind)
}

func TestAgent_ChasesThenAttacks(t *testing.T) {
	a, _ := newTestAgent(t)
	ctx := context.Background()
	target := uuid.New()

	act := a.Decide(ctx, obsWith(100, enemyAt(target, 8, 0, combat.Vec3{})))
	require.Equal(t, Chasing(target), a.State())
	require.Equal(t, combat.ActionMove, act.Kind)
	assert.InDelta(t, chaseSpeed, act.Direction.X, 1e-9)

	act = a.Decide(ctx, obsWith(100, enemyAt(target, 2, 0, combat.Vec3{})))
	require.Equal(t, Attacking(target), a.State())
	assert.Equal(t, combat.Attack(target), act)
}

func TestAgent_FleesAtLowHealth(t *testing.T) {
	a, _ := newTestAgent(t)
	act := a.Decide(context.Background(), obsWith(25, enemyAt(uuid.New(), 2, 0, combat.Vec3{})))

	assert.Equal(t, Fleeing, a.State())
	require.Equal(t, combat.ActionMove, act.Kind)
	assert.InDelta(t, -fleeSpeed, act.Direction.X, 1e-9)
}

func TestAgent_DefendsWhenSafe(t *testing.T) {
	a, _ := newTestAgent(t)
	ctx := context.Background()
	a.Decide(ctx, obsWith(25, enemyAt(uuid.New(), 2, 0, combat.Vec3{})))

	act := a.Decide(ctx, obsWith(35))
	assert.Equal(t, Defending, a.State())
	assert.Equal(t, combat.Defend(), act)
}

func TestAgent_DamageRaisesFleeThresholdWhenCautious(t *testing.T) {
	p := DefaultProfile()
	p.Caution = 0.8
	a, _ := newTestAgent(t, WithProfile(p))

	a.OnDamageReceived(10, uuid.New())
	assert.InDelta(t, 36, a.Profile().FleeThreshold, 1e-9)

	for i := 0; i < 20; i++ {
		a.OnDamageReceived(10, uuid.New())
	}
	assert.Equal(t, maxFleeThreshold, a.Profile().FleeThreshold)
}

func TestAgent_DamageLeavesThresholdWhenBold(t *testing.T) {
	a, _ := newTestAgent(t)
	a.OnDamageReceived(10, uuid.New())
	assert.Equal(t, DefaultProfile().FleeThreshold, a.Profile().FleeThreshold)
}

func TestAgent_KillForgetsVictimAndRaisesAggression(t *testing.T) {
	a, _ := newTestAgent(t)
	victim := uuid.New()
	a.Decide(context.Background(), obsWith(100, enemyAt(victim, 8, 0, combat.Vec3{})))
	require.True(t, a.KnowsEnemy(victim))

	a.OnKill(victim)
	assert.False(t, a.KnowsEnemy(victim))
	assert.InDelta(t, 0.77, a.Profile().Aggression, 1e-9)
}

func TestAgent_DeathIsAbsorbing(t *testing.T) {
	a, _ := newTestAgent(t)
	a.OnDeath()

	assert.Equal(t, Dead, a.State())
	assert.InDelta(t, 0.6, a.Profile().Caution, 1e-9)

	act := a.Decide(context.Background(), obsWith(100, enemyAt(uuid.New(), 1, 0, combat.Vec3{})))
	assert.Equal(t, combat.Wait(), act)
	assert.Equal(t, Dead, a.State())
}

func TestAgent_MessagesOnlyFromKnownAllies(t *testing.T) {
	a, _ := newTestAgent(t)
	ally := combat.NearbyAgent{ID: uuid.New(), Position: combat.V3(30, 0, 0), Health: 100, Team: ownTeam, Distance: 30}
	stranger := uuid.New()

	a.OnMessage(stranger, "enemy spotted")
	assert.Equal(t, DefaultProfile().Aggression, a.Profile().Aggression)

	a.Decide(context.Background(), obsWith(100, ally))
	require.True(t, a.KnowsAlly(ally.ID))

	a.OnMessage(ally.ID, "ENEMY at north gate")
	assert.InDelta(t, 0.77, a.Profile().Aggression, 1e-9)

	a.OnMessage(ally.ID, "need help")
	assert.InDelta(t, 0.44, a.Profile().Cooperation, 1e-9)
}

func TestAgent_ShutdownMarksDead(t *testing.T) {
	a, _ := newTestAgent(t)
	require.NoError(t, a.Shutdown(context.Background()))
	assert.Equal(t, Dead, a.State())
}

func TestAgent_GoalsScoreExploreWhenHealthy(t *testing.T) {
	a, _ := newTestAgent(t)
	goals := a.Goals()
	require.Len(t, goals, 3)
	assert.Equal(t, "Survive", goals[0].Name)
	assert.Equal(t, 0.0, goals[0].Score)
	assert.InDelta(t, 0.18, goals[2].Score, 1e-9)
}

func TestAgent_InitializeKeepsDeadAgentDead(t *testing.T) {
	a, _ := newTestAgent(t)
	a.OnDeath()
	require.NoError(t, a.Initialize(context.Background()))
	assert.Equal(t, Dead, a.State())
}
