package sandbox

import (
	"errors"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"arenacore/internal/app/ports"
	"arenacore/internal/domain/combat"

	"github.com/google/uuid"
)

var ErrUnknownBody = errors.New("unknown body")

const (
	medkitType   = "medkit"
	medkitHeal   = 30.0
	pickupRadius = 2.0
)

type Config struct {
	Width             float64
	Depth             float64
	VisionRange       float64
	AttackRange       float64
	AttackDamage      float64
	AttackEnergyCost  float64
	MaxHealth         float64
	MaxEnergy         float64
	EnergyRegenPerSec float64
	MatchDuration     time.Duration
}

func DefaultConfig() Config {
	return Config{
		Width:             800,
		Depth:             600,
		VisionRange:       10,
		AttackRange:       3,
		AttackDamage:      10,
		AttackEnergyCost:  5,
		MaxHealth:         100,
		MaxEnergy:         100,
		EnergyRegenPerSec: 5,
		MatchDuration:     5 * time.Minute,
	}
}

// AgentLookup resolves hook targets; the agent manager satisfies it.
type AgentLookup interface {
	Get(id uuid.UUID) (ports.Agent, bool)
}

type Body struct {
	ID        uuid.UUID
	Team      combat.Team
	Position  combat.Vec3
	Health    float64
	Energy    float64
	Alive     bool
	Defending bool
	Kills     int
	Deaths    int
}

type EventKind string

const (
	EventDamage EventKind = "damage"
	EventDeath  EventKind = "death"
	EventPickup EventKind = "pickup"
)

type Event struct {
	Kind   EventKind
	Tick   uint64
	Actor  uuid.UUID
	Target uuid.UUID
	Amount float64
}

type object struct {
	id       uuid.UUID
	kind     string
	position combat.Vec3
}

// World is a minimal arena: bodies on a flat plane, melee attacks and
// pickups. It builds observations and applies actions; it does no physics.
type World struct {
	mu      sync.Mutex
	cfg     Config
	agents  AgentLookup
	bodies  map[uuid.UUID]*Body
	order   []uuid.UUID
	objects []object
	tick    uint64
	elapsed time.Duration
}

func New(cfg Config, agents AgentLookup) *World {
	return &World{
		cfg:    cfg,
		agents: agents,
		bodies: map[uuid.UUID]*Body{},
	}
}

func (w *World) Bounds() combat.Vec2 {
	return combat.Vec2{X: w.cfg.Width, Y: w.cfg.Depth}
}

func (w *World) Spawn(id uuid.UUID, team combat.Team, pos combat.Vec3) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.bodies[id]; !ok {
		w.order = append(w.order, id)
	}
	w.bodies[id] = &Body{
		ID:       id,
		Team:     team,
		Position: w.clamp(pos),
		Health:   w.cfg.MaxHealth,
		Energy:   w.cfg.MaxEnergy,
		Alive:    true,
	}
}

func (w *World) RandomPoint(rng *rand.Rand) combat.Vec3 {
	return combat.Vec3{
		X: (rng.Float64() - 0.5) * w.cfg.Width,
		Z: (rng.Float64() - 0.5) * w.cfg.Depth,
	}
}

// Revive restores a dead body at pos, keeping its counters.
func (w *World) Revive(id uuid.UUID, pos combat.Vec3) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	b, ok := w.bodies[id]
	if !ok {
		return ErrUnknownBody
	}
	b.Position = w.clamp(pos)
	b.Health = w.cfg.MaxHealth
	b.Energy = w.cfg.MaxEnergy
	b.Alive = true
	b.Defending = false
	return nil
}

func (w *World) Remove(id uuid.UUID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.bodies, id)
	for i, v := range w.order {
		if v == id {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
}

func (w *World) PlaceObject(kind string, pos combat.Vec3) uuid.UUID {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := uuid.New()
	w.objects = append(w.objects, object{id: id, kind: kind, position: w.clamp(pos)})
	return id
}

func (w *World) Body(id uuid.UUID) (Body, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	b, ok := w.bodies[id]
	if !ok {
		return Body{}, false
	}
	return *b, true
}

func (w *World) Tick() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.tick
}

func (w *World) MatchOver() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cfg.MatchDuration > 0 && w.elapsed >= w.cfg.MatchDuration
}

// Observations builds one observation per living body for the current tick.
func (w *World) Observations() map[uuid.UUID]combat.WorldObservation {
	w.mu.Lock()
	defer w.mu.Unlock()

	remaining := 0.0
	if w.cfg.MatchDuration > 0 {
		remaining = math.Max(0, (w.cfg.MatchDuration - w.elapsed).Seconds())
	}
	out := make(map[uuid.UUID]combat.WorldObservation, len(w.bodies))
	for _, id := range w.order {
		self := w.bodies[id]
		if !self.Alive {
			continue
		}
		obs := combat.WorldObservation{
			AgentID:       id,
			Position:      self.Position,
			Health:        self.Health,
			Energy:        self.Energy,
			ArenaBounds:   w.Bounds(),
			CurrentTick:   w.tick,
			TimeRemaining: remaining,
		}
		for _, otherID := range w.order {
			other := w.bodies[otherID]
			if otherID == id || !other.Alive {
				continue
			}
			d := self.Position.DistanceTo(other.Position)
			if d > w.cfg.VisionRange {
				continue
			}
			obs.NearbyAgents = append(obs.NearbyAgents, combat.NearbyAgent{
				ID:       otherID,
				Position: other.Position,
				Health:   other.Health,
				Team:     other.Team,
				Distance: d,
			})
		}
		for _, o := range w.objects {
			d := self.Position.DistanceTo(o.position)
			if d > w.cfg.VisionRange {
				continue
			}
			obs.NearbyObjects = append(obs.NearbyObjects, combat.NearbyObject{
				ID:         o.id,
				Position:   o.position,
				ObjectType: o.kind,
				Distance:   d,
			})
		}
		out[id] = obs
	}
	return out
}

// Apply resolves one tick of actions in registration order and advances the
// clock by dt. Agent hooks fire before Apply returns.
func (w *World) Apply(actions map[uuid.UUID]combat.Action, dt time.Duration) []Event {
	w.mu.Lock()
	events, notify := w.apply(actions, dt)
	w.mu.Unlock()

	for _, n := range notify {
		n()
	}
	return events
}

func (w *World) apply(actions map[uuid.UUID]combat.Action, dt time.Duration) ([]Event, []func()) {
	var (
		events []Event
		notify []func()
	)
	secs := dt.Seconds()

	for _, id := range w.order {
		b := w.bodies[id]
		b.Defending = b.Alive && actions[id].Kind == combat.ActionDefend
	}

	for _, id := range w.order {
		b := w.bodies[id]
		if !b.Alive {
			continue
		}
		action, ok := actions[id]
		if !ok {
			continue
		}
		switch action.Kind {
		case combat.ActionMove:
			b.Position = w.clamp(b.Position.Add(action.Direction.Scale(secs)))

		case combat.ActionAttack:
			target, ok := w.bodies[action.TargetID]
			if !ok || !target.Alive || combat.IsAlly(b.Team, target.Team) {
				continue
			}
			if b.Position.DistanceTo(target.Position) > w.cfg.AttackRange || b.Energy < w.cfg.AttackEnergyCost {
				continue
			}
			b.Energy -= w.cfg.AttackEnergyCost
			dmg := w.cfg.AttackDamage
			if target.Defending {
				dmg /= 2
			}
			target.Health = math.Max(0, target.Health-dmg)
			events = append(events, Event{Kind: EventDamage, Tick: w.tick, Actor: id, Target: target.ID, Amount: dmg})
			notify = append(notify, w.hook(target.ID, func(a ports.Agent) { a.OnDamageReceived(dmg, id) }))
			if target.Health <= 0 {
				target.Alive = false
				target.Deaths++
				b.Kills++
				events = append(events, Event{Kind: EventDeath, Tick: w.tick, Actor: id, Target: target.ID})
				victim := target.ID
				notify = append(notify,
					w.hook(id, func(a ports.Agent) { a.OnKill(victim) }),
					w.hook(victim, func(a ports.Agent) { a.OnDeath() }),
				)
			}

		case combat.ActionCommunicate:
			for _, otherID := range w.order {
				other := w.bodies[otherID]
				if otherID == id || !other.Alive || !combat.IsAlly(b.Team, other.Team) {
					continue
				}
				if b.Position.DistanceTo(other.Position) > w.cfg.VisionRange {
					continue
				}
				msg := action.Message
				notify = append(notify, w.hook(otherID, func(a ports.Agent) { a.OnMessage(id, msg) }))
			}

		case combat.ActionUseItem:
			if !strings.EqualFold(strings.TrimSpace(action.Item), medkitType) {
				continue
			}
			for i, o := range w.objects {
				if o.kind == medkitType && b.Position.DistanceTo(o.position) <= pickupRadius {
					b.Health = math.Min(w.cfg.MaxHealth, b.Health+medkitHeal)
					w.objects = append(w.objects[:i], w.objects[i+1:]...)
					events = append(events, Event{Kind: EventPickup, Tick: w.tick, Actor: id, Target: o.id, Amount: medkitHeal})
					break
				}
			}
		}
	}

	for _, id := range w.order {
		b := w.bodies[id]
		if b.Alive {
			b.Energy = math.Min(w.cfg.MaxEnergy, b.Energy+w.cfg.EnergyRegenPerSec*secs)
		}
	}
	w.tick++
	w.elapsed += dt
	return events, notify
}

func (w *World) hook(id uuid.UUID, fn func(ports.Agent)) func() {
	return func() {
		if w.agents == nil {
			return
		}
		if a, ok := w.agents.Get(id); ok {
			fn(a)
		}
	}
}

func (w *World) clamp(p combat.Vec3) combat.Vec3 {
	hx, hz := w.cfg.Width/2, w.cfg.Depth/2
	return combat.Vec3{
		X: math.Max(-hx, math.Min(hx, p.X)),
		Y: 0,
		Z: math.Max(-hz, math.Min(hz, p.Z)),
	}
}
