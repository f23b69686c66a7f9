package scripted

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"arenacore/internal/domain/combat"
	"arenacore/internal/platform/logger"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const Kind = "scripted"

// Agent is the hand-authored tactical agent: an FSM with a behavior profile
// that event hooks mutate over the match.
type Agent struct {
	mu sync.Mutex

	id   uuid.UUID
	name string
	team combat.Team

	state         State
	stateDuration float64
	lastDecision  time.Time
	profile       Profile
	memory        Memory
	goals         []Goal
	waypoint      *combat.Vec3
	reasoning     string

	now func() time.Time
	rng *rand.Rand
	log logrus.FieldLogger
}

type Option func(*Agent)

func WithID(id uuid.UUID) Option {
	return func(a *Agent) { a.id = id }
}

func WithProfile(p Profile) Option {
	return func(a *Agent) { a.profile = p }
}

func WithClock(now func() time.Time) Option {
	return func(a *Agent) { a.now = now }
}

func WithRand(rng *rand.Rand) Option {
	return func(a *Agent) { a.rng = rng }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(a *Agent) { a.log = log }
}

func New(name string, team combat.Team, opts ...Option) *Agent {
	a := &Agent{
		id:      uuid.New(),
		name:    name,
		team:    team,
		state:   Idle,
		profile: DefaultProfile(),
		goals:   defaultGoals(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.rng == nil {
		a.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if a.log == nil {
		a.log = logger.Discard()
	}
	a.log = a.log.WithFields(logrus.Fields{"agent_id": a.id.String(), "agent": a.name, "kind": Kind})
	a.memory = newMemory(a.profile.MaxVisited)
	return a
}

func (a *Agent) ID() uuid.UUID     { return a.id }
func (a *Agent) Name() string      { return a.name }
func (a *Agent) Kind() string      { return Kind }
func (a *Agent) Team() combat.Team { return a.team }

func (a *Agent) Decide(_ context.Context, obs combat.WorldObservation) combat.Action {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	if !a.lastDecision.IsZero() {
		a.stateDuration += now.Sub(a.lastDecision).Seconds()
	}
	a.lastDecision = now

	a.memory.observe(obs, a.team)

	next := Transition(a.state, a.stateDuration, obs, a.profile, a.team)
	if next != a.state {
		a.log.WithFields(logrus.Fields{"from": a.state.String(), "to": next.String(), "tick": obs.CurrentTick}).Debug("state transition")
		a.state = next
		a.stateDuration = 0
	}

	action := a.act(obs)
	_, enemyVisible := nearestEnemy(obs.NearbyAgents, a.team)
	a.reasoning = describe(a.state, scoreGoals(a.goals, a.profile, obs.Health, enemyVisible))
	return action
}

func (a *Agent) act(obs combat.WorldObservation) combat.Action {
	switch a.state.Mode {
	case ModeExploring:
		if a.waypoint == nil || a.waypoint.DistanceTo(obs.Position) < waypointReached {
			wp := nextWaypoint(a.rng, obs.ArenaBounds, a.memory.Visited)
			a.waypoint = &wp
		}
		return combat.Move(a.waypoint.Sub(obs.Position).Normalize().Scale(exploreSpeed))

	case ModeChasing:
		if enemy, ok := visibleEnemy(obs.NearbyAgents, a.state.Target, a.team); ok {
			return combat.Move(enemy.Position.Sub(obs.Position).Normalize().Scale(chaseSpeed))
		}
		if last, ok := a.memory.KnownEnemies[a.state.Target]; ok {
			return combat.Move(last.Position.Sub(obs.Position).Normalize().Scale(chaseSpeed))
		}
		return combat.Wait()

	case ModeAttacking:
		if _, ok := visibleEnemy(obs.NearbyAgents, a.state.Target, a.team); ok {
			return combat.Attack(a.state.Target)
		}
		return combat.Wait()

	case ModeFleeing:
		return combat.Move(fleeDirection(obs, a.team))

	case ModeDefending:
		return combat.Defend()

	default:
		return combat.Wait()
	}
}

func describe(s State, scores []GoalScore) string {
	top := GoalScore{}
	for _, g := range scores {
		if g.Score > top.Score || top.Name == "" {
			top = g
		}
	}
	return fmt.Sprintf("state=%s goal=%s(%.2f)", s, top.Name, top.Score)
}

func (a *Agent) Initialize(context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state.Mode != ModeDead {
		a.state = Idle
	}
	a.stateDuration = 0
	a.lastDecision = a.now()
	return nil
}

func (a *Agent) Shutdown(context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = Dead
	a.log.WithFields(logrus.Fields{"kills": a.memory.KillCount, "deaths": a.memory.DeathCount}).Info("scripted agent shut down")
	return nil
}

func (a *Agent) OnDamageReceived(amount float64, attackerID uuid.UUID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.memory.LastDamageAt = a.now()
	a.memory.LastDamageSource = attackerID
	if a.profile.Caution > 0.5 {
		a.profile.FleeThreshold = capAt(a.profile.FleeThreshold*cautionGrowth, maxFleeThreshold)
	}
	a.log.WithFields(logrus.Fields{"amount": amount, "attacker": attackerID.String()}).Debug("damage received")
}

func (a *Agent) OnKill(victimID uuid.UUID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.memory.KillCount++
	delete(a.memory.KnownEnemies, victimID)
	a.profile.Aggression = capAt(a.profile.Aggression*growthFactor, 1)
}

func (a *Agent) OnDeath() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.memory.DeathCount++
	a.state = Dead
	a.profile.Caution = capAt(a.profile.Caution*cautionGrowth, 1)
}

func (a *Agent) OnMessage(senderID uuid.UUID, text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.memory.KnownAllies[senderID]; !ok {
		return
	}
	msg := strings.ToLower(text)
	switch {
	case strings.Contains(msg, "enemy"):
		a.profile.Aggression = capAt(a.profile.Aggression*growthFactor, 1)
	case strings.Contains(msg, "help"):
		a.profile.Cooperation = capAt(a.profile.Cooperation*growthFactor, 1)
	}
}

func (a *Agent) LastReasoning() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.reasoning
}

func (a *Agent) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Agent) Profile() Profile {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.profile
}

func (a *Agent) Goals() []GoalScore {
	a.mu.Lock()
	defer a.mu.Unlock()
	return scoreGoals(a.goals, a.profile, a.profile.MaxHealth, false)
}

func (a *Agent) VisitedCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.memory.Visited.Len()
}

func (a *Agent) KnowsAlly(id uuid.UUID) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.memory.KnownAllies[id]
	return ok
}

func (a *Agent) KnowsEnemy(id uuid.UUID) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.memory.KnownEnemies[id]
	return ok
}
