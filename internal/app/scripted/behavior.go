package scripted

// Profile holds the tunable behavior of a scripted agent. The personality
// weights are in [0,1]; FleeThreshold is a percentage of MaxHealth and the
// ranges are arena units.
type Profile struct {
	Aggression    float64
	Caution       float64
	Exploration   float64
	Cooperation   float64
	FleeThreshold float64
	AttackRange   float64
	VisionRange   float64
	MaxHealth     float64
	MaxVisited    int
}

func DefaultProfile() Profile {
	return Profile{
		Aggression:    0.7,
		Caution:       0.5,
		Exploration:   0.6,
		Cooperation:   0.4,
		FleeThreshold: 30,
		AttackRange:   3,
		VisionRange:   10,
		MaxHealth:     100,
		MaxVisited:    64,
	}
}

const (
	maxFleeThreshold = 80.0
	growthFactor     = 1.1
	cautionGrowth    = 1.2
)

func (p Profile) healthRatio(health float64) float64 {
	maxHealth := p.MaxHealth
	if maxHealth <= 0 {
		maxHealth = 100
	}
	return health / maxHealth
}

func (p Profile) shouldFlee(health float64) bool {
	return p.healthRatio(health) < p.FleeThreshold/100
}

func capAt(v, limit float64) float64 {
	if v > limit {
		return limit
	}
	return v
}

type Goal struct {
	Name     string
	Priority float64
	Actions  []string
}

type GoalScore struct {
	Name  string
	Score float64
}

func defaultGoals() []Goal {
	return []Goal{
		{Name: "Survive", Priority: 1.0, Actions: []string{"flee", "defend"}},
		{Name: "Eliminate_Enemies", Priority: 0.8, Actions: []string{"chase", "attack"}},
		{Name: "Explore", Priority: 0.3, Actions: []string{"explore"}},
	}
}

// scoreGoals weighs each goal by how much the current situation calls for it.
func scoreGoals(goals []Goal, p Profile, health float64, enemyVisible bool) []GoalScore {
	out := make([]GoalScore, 0, len(goals))
	for _, g := range goals {
		var w float64
		switch g.Name {
		case "Survive":
			w = (1 - p.healthRatio(health)) * (0.5 + p.Caution)
		case "Eliminate_Enemies":
			if enemyVisible {
				w = p.Aggression
			}
		case "Explore":
			w = p.Exploration
		}
		out = append(out, GoalScore{Name: g.Name, Score: g.Priority * w})
	}
	return out
}
