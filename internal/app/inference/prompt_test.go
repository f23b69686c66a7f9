package inference

import (
	"strings"
	"testing"

	"arenacore/internal/domain/combat"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestBuildPrompt_Sections(t *testing.T) {
	ally := uuid.New()
	enemy := uuid.New()
	obs := combat.WorldObservation{
		Position:    combat.V3(1, 0, 2),
		Health:      80,
		Energy:      55,
		CurrentTick: 42,
		NearbyAgents: []combat.NearbyAgent{
			{ID: ally, Team: "blue", Position: combat.V3(3, 0, 2), Health: 90, Distance: 2},
			{ID: enemy, Team: "red", Position: combat.V3(1, 0, 6), Health: 40, Distance: 4},
		},
		NearbyObjects: []combat.NearbyObject{{ID: uuid.New(), ObjectType: "medkit", Position: combat.V3(0, 0, 0), Distance: 2.2}},
		ArenaBounds:   combat.Vec2{X: 800, Y: 600},
	}
	history := []string{"h1", "h2", "h3", "h4"}

	p := BuildPrompt(obs, "blue", history, "Game State: {state}\nChoose your action:")

	assert.True(t, strings.HasPrefix(p, "Game State: === AGENT STATUS ==="))
	assert.Contains(t, p, "Position: (1.0, 2.0)")
	assert.Contains(t, p, "Tick: 42")
	assert.Contains(t, p, "- ALLY "+ally.String())
	assert.Contains(t, p, "- ENEMY "+enemy.String())
	assert.Contains(t, p, "- medkit at (0.0, 0.0), Distance: 2.2")
	assert.Contains(t, p, "Bounds: 800.0x600.0")
	assert.Contains(t, p, "1. h4\n2. h3\n3. h2\n")
	assert.NotContains(t, p, "h1")
	assert.Contains(t, p, "Respond with ONLY the action in format: ACTION_NAME(parameters)")
	assert.Contains(t, p, "Choose your action:")
}

func TestBuildPrompt_TemplateWithoutPlaceholderGetsStatePrefix(t *testing.T) {
	p := BuildPrompt(combat.WorldObservation{}, combat.NoTeam, nil, "Choose:")
	assert.True(t, strings.HasPrefix(p, "=== AGENT STATUS ==="))
	assert.NotContains(t, p, "=== NEARBY AGENTS ===")
	assert.NotContains(t, p, "=== RECENT ACTIONS ===")
}
