package inference

import (
	"fmt"
	"strings"

	"arenacore/internal/domain/combat"
)

const recentActionsShown = 3

const replyInstructions = `

Respond with ONLY the action in format: ACTION_NAME(parameters)
Examples:
- Move(2.0, 0.0, 1.5)
- Attack(enemy_id)
- Wait
- Defend
- Communicate(message)
`

// BuildPrompt renders the observation as the textual game state and embeds
// it into template at {state}. history is oldest first.
func BuildPrompt(obs combat.WorldObservation, team combat.Team, history []string, template string) string {
	state := describeState(obs, team, history)
	var b strings.Builder
	if strings.Contains(template, "{state}") {
		b.WriteString(strings.ReplaceAll(template, "{state}", state))
	} else {
		b.WriteString(state)
		b.WriteString(template)
	}
	b.WriteString(replyInstructions)
	return b.String()
}

func describeState(obs combat.WorldObservation, team combat.Team, history []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "=== AGENT STATUS ===\nPosition: (%.1f, %.1f)\nHealth: %.1f/100\nEnergy: %.1f/100\nTick: %d\nTime Remaining: %.1fs\n\n",
		obs.Position.X, obs.Position.Z, obs.Health, obs.Energy, obs.CurrentTick, obs.TimeRemaining)

	if len(obs.NearbyAgents) > 0 {
		b.WriteString("=== NEARBY AGENTS ===\n")
		for _, a := range obs.NearbyAgents {
			relation := "ENEMY"
			if combat.IsAlly(a.Team, team) {
				relation = "ALLY"
			}
			fmt.Fprintf(&b, "- %s %s at (%.1f, %.1f), Health: %.1f, Distance: %.1f\n",
				relation, a.ID, a.Position.X, a.Position.Z, a.Health, a.Distance)
		}
		b.WriteString("\n")
	}

	if len(obs.NearbyObjects) > 0 {
		b.WriteString("=== NEARBY OBJECTS ===\n")
		for _, o := range obs.NearbyObjects {
			fmt.Fprintf(&b, "- %s at (%.1f, %.1f), Distance: %.1f\n", o.ObjectType, o.Position.X, o.Position.Z, o.Distance)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "=== ARENA INFO ===\nBounds: %.1fx%.1f\nCenter: (0, 0)\n\n", obs.ArenaBounds.X, obs.ArenaBounds.Y)

	if len(history) > 0 {
		b.WriteString("=== RECENT ACTIONS ===\n")
		for i := 0; i < recentActionsShown && i < len(history); i++ {
			fmt.Fprintf(&b, "%d. %s\n", i+1, history[len(history)-1-i])
		}
		b.WriteString("\n")
	}
	return b.String()
}
