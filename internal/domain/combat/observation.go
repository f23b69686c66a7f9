package combat

import (
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
)

var ErrInvalidObservation = errors.New("invalid observation")

// distanceTolerance absorbs float32-origin rounding in collaborator-built distances.
const distanceTolerance = 1e-3

type Team string

const NoTeam Team = ""

// IsAlly reports team-label equality. Absence is not a label, so two teamless
// agents are never allies.
func IsAlly(a, b Team) bool {
	return a != NoTeam && a == b
}

type NearbyAgent struct {
	ID       uuid.UUID `json:"id"`
	Position Vec3      `json:"position"`
	Health   float64   `json:"health"`
	Team     Team      `json:"team,omitempty"`
	Distance float64   `json:"distance"`
}

type NearbyObject struct {
	ID         uuid.UUID `json:"id"`
	Position   Vec3      `json:"position"`
	ObjectType string    `json:"object_type"`
	Distance   float64   `json:"distance"`
}

type WorldObservation struct {
	AgentID       uuid.UUID      `json:"agent_id"`
	Position      Vec3           `json:"position"`
	Health        float64        `json:"health"`
	Energy        float64        `json:"energy"`
	NearbyAgents  []NearbyAgent  `json:"nearby_agents"`
	NearbyObjects []NearbyObject `json:"nearby_objects"`
	ArenaBounds   Vec2           `json:"arena_bounds"`
	CurrentTick   uint64         `json:"current_tick"`
	TimeRemaining float64        `json:"time_remaining"`
}

func (o WorldObservation) FindAgent(id uuid.UUID) (NearbyAgent, bool) {
	for _, a := range o.NearbyAgents {
		if a.ID == id {
			return a, true
		}
	}
	return NearbyAgent{}, false
}

// Validate checks the collaborator-side invariants: the owner never appears in
// its own nearby lists and distances agree with position deltas.
func (o WorldObservation) Validate() error {
	for _, a := range o.NearbyAgents {
		if a.ID == o.AgentID {
			return fmt.Errorf("%w: nearby agents include owner %s", ErrInvalidObservation, a.ID)
		}
		if err := checkDistance(o.Position, a.Position, a.Distance); err != nil {
			return fmt.Errorf("%w: agent %s: %v", ErrInvalidObservation, a.ID, err)
		}
	}
	for _, obj := range o.NearbyObjects {
		if obj.ID == o.AgentID {
			return fmt.Errorf("%w: nearby objects include owner %s", ErrInvalidObservation, obj.ID)
		}
		if err := checkDistance(o.Position, obj.Position, obj.Distance); err != nil {
			return fmt.Errorf("%w: object %s: %v", ErrInvalidObservation, obj.ID, err)
		}
	}
	return nil
}

func checkDistance(from, to Vec3, reported float64) error {
	if reported < 0 {
		return fmt.Errorf("negative distance %.3f", reported)
	}
	want := from.DistanceTo(to)
	if math.Abs(want-reported) > distanceTolerance*math.Max(1, want) {
		return fmt.Errorf("distance %.3f does not match positions (%.3f)", reported, want)
	}
	return nil
}
