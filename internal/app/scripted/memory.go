package scripted

import (
	"time"

	"arenacore/internal/domain/combat"

	"github.com/google/uuid"
)

type Memory struct {
	KnownEnemies     map[uuid.UUID]combat.NearbyAgent
	KnownAllies      map[uuid.UUID]combat.NearbyAgent
	Visited          *positionRing
	LastDamageAt     time.Time
	LastDamageSource uuid.UUID
	KillCount        int
	DeathCount       int
}

func newMemory(maxVisited int) Memory {
	return Memory{
		KnownEnemies: map[uuid.UUID]combat.NearbyAgent{},
		KnownAllies:  map[uuid.UUID]combat.NearbyAgent{},
		Visited:      newPositionRing(maxVisited),
	}
}

func (m *Memory) observe(obs combat.WorldObservation, team combat.Team) {
	for _, a := range obs.NearbyAgents {
		if combat.IsAlly(a.Team, team) {
			m.KnownAllies[a.ID] = a
			delete(m.KnownEnemies, a.ID)
		} else {
			m.KnownEnemies[a.ID] = a
			delete(m.KnownAllies, a.ID)
		}
	}
}

// positionRing keeps the most recent visited waypoints; the oldest is
// overwritten once the ring is full.
type positionRing struct {
	items []combat.Vec3
	next  int
	full  bool
}

func newPositionRing(capacity int) *positionRing {
	if capacity <= 0 {
		capacity = 64
	}
	return &positionRing{items: make([]combat.Vec3, capacity)}
}

func (r *positionRing) Push(p combat.Vec3) {
	r.items[r.next] = p
	r.next = (r.next + 1) % len(r.items)
	if r.next == 0 {
		r.full = true
	}
}

func (r *positionRing) Len() int {
	if r.full {
		return len(r.items)
	}
	return r.next
}

func (r *positionRing) Cap() int {
	return len(r.items)
}

func (r *positionRing) Near(p combat.Vec3, radius float64) bool {
	for i := 0; i < r.Len(); i++ {
		if r.items[i].DistanceTo(p) < radius {
			return true
		}
	}
	return false
}
