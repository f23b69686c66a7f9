package scripted

import (
	"arenacore/internal/domain/combat"

	"github.com/google/uuid"
)

const (
	exploreTimeout  = 5.0 // seconds spent Exploring before dropping back to Idle
	safeDistance    = 5.0
	fleeRecovery    = 20.0
	defenseRecovery = 30.0
)

// Transition computes the next FSM state. It is a pure function of its
// inputs; stateDuration is the time in seconds spent in the current state.
func Transition(current State, stateDuration float64, obs combat.WorldObservation, p Profile, team combat.Team) State {
	ratio := p.healthRatio(obs.Health)

	switch current.Mode {
	case ModeDead:
		return Dead

	case ModeIdle, ModeExploring:
		if p.shouldFlee(obs.Health) {
			return Fleeing
		}
		if enemy, ok := nearestEnemy(obs.NearbyAgents, team); ok {
			if enemy.Distance <= p.AttackRange {
				return Attacking(enemy.ID)
			}
			if enemy.Distance <= p.VisionRange {
				return Chasing(enemy.ID)
			}
		}
		if current.Mode == ModeExploring && stateDuration > exploreTimeout {
			return Idle
		}
		return Exploring

	case ModeChasing:
		if p.shouldFlee(obs.Health) {
			return Fleeing
		}
		enemy, ok := visibleEnemy(obs.NearbyAgents, current.Target, team)
		switch {
		case !ok || enemy.Distance > p.VisionRange:
			return Exploring
		case enemy.Distance <= p.AttackRange:
			return Attacking(current.Target)
		default:
			return current
		}

	case ModeAttacking:
		if p.shouldFlee(obs.Health) {
			return Fleeing
		}
		enemy, ok := visibleEnemy(obs.NearbyAgents, current.Target, team)
		switch {
		case !ok:
			return Exploring
		case enemy.Distance <= p.AttackRange:
			return current
		default:
			return Chasing(current.Target)
		}

	case ModeFleeing:
		if ratio > (p.FleeThreshold+fleeRecovery)/100 {
			return Idle
		}
		if isSafe(obs.NearbyAgents, team) {
			return Defending
		}
		return Fleeing

	case ModeDefending:
		if ratio > (p.FleeThreshold+defenseRecovery)/100 {
			return Idle
		}
		if !isSafe(obs.NearbyAgents, team) {
			return Fleeing
		}
		return Defending
	}
	return Idle
}

// nearestEnemy picks the closest non-ally; ties keep input order.
func nearestEnemy(agents []combat.NearbyAgent, team combat.Team) (combat.NearbyAgent, bool) {
	var best combat.NearbyAgent
	found := false
	for _, a := range agents {
		if combat.IsAlly(a.Team, team) {
			continue
		}
		if !found || a.Distance < best.Distance {
			best = a
			found = true
		}
	}
	return best, found
}

func visibleEnemy(agents []combat.NearbyAgent, id uuid.UUID, team combat.Team) (combat.NearbyAgent, bool) {
	for _, a := range agents {
		if a.ID == id && !combat.IsAlly(a.Team, team) {
			return a, true
		}
	}
	return combat.NearbyAgent{}, false
}

func isSafe(agents []combat.NearbyAgent, team combat.Team) bool {
	for _, a := range agents {
		if combat.IsAlly(a.Team, team) {
			continue
		}
		if a.Distance <= safeDistance {
			return false
		}
	}
	return true
}
