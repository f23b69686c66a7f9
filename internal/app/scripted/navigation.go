package scripted

import (
	"math/rand"

	"arenacore/internal/domain/combat"
)

const (
	exploreSpeed        = 3.0
	chaseSpeed          = 5.0
	fleeSpeed           = 8.0
	cornerSpeed         = 6.0
	waypointReached     = 2.0
	waypointSpacing     = 5.0
	waypointMaxAttempts = 10
	fleeEpsilon         = 0.1
)

func randomArenaPoint(rng *rand.Rand, bounds combat.Vec2) combat.Vec3 {
	return combat.Vec3{
		X: (rng.Float64() - 0.5) * bounds.X,
		Y: 0,
		Z: (rng.Float64() - 0.5) * bounds.Y,
	}
}

// nextWaypoint samples a point away from every visited waypoint, giving up
// on uniqueness after waypointMaxAttempts tries.
func nextWaypoint(rng *rand.Rand, bounds combat.Vec2, visited *positionRing) combat.Vec3 {
	for i := 0; i < waypointMaxAttempts; i++ {
		p := randomArenaPoint(rng, bounds)
		if !visited.Near(p, waypointSpacing) {
			visited.Push(p)
			return p
		}
	}
	return randomArenaPoint(rng, bounds)
}

// fleeDirection sums the away-vectors from every visible enemy weighted by
// 1/(distance+eps). With no enemy in sight it heads for the farthest corner.
func fleeDirection(obs combat.WorldObservation, team combat.Team) combat.Vec3 {
	var sum combat.Vec3
	for _, a := range obs.NearbyAgents {
		if combat.IsAlly(a.Team, team) {
			continue
		}
		away := obs.Position.Sub(a.Position).Normalize()
		sum = sum.Add(away.Scale(1 / (a.Distance + fleeEpsilon)))
	}
	if sum.Length() > 0 {
		return sum.Normalize().Scale(fleeSpeed)
	}
	corner := farthestCorner(obs.Position, obs.ArenaBounds)
	return corner.Sub(obs.Position).Normalize().Scale(cornerSpeed)
}

func farthestCorner(pos combat.Vec3, bounds combat.Vec2) combat.Vec3 {
	hx, hz := bounds.X/2, bounds.Y/2
	corners := [4]combat.Vec3{
		{X: -hx, Z: -hz},
		{X: hx, Z: -hz},
		{X: -hx, Z: hz},
		{X: hx, Z: hz},
	}
	best := corners[0]
	bestDist := -1.0
	for _, c := range corners {
		if d := c.DistanceTo(pos); d > bestDist {
			best, bestDist = c, d
		}
	}
	return best
}
