package inference

import (
	"fmt"
	"strconv"
	"strings"

	"arenacore/internal/app/ports"
	"arenacore/internal/domain/combat"

	"github.com/google/uuid"
)

// ParseAction maps a model reply onto one action. Unrecognized replies
// return Wait together with an error wrapping ports.ErrParse.
func ParseAction(reply string) (combat.Action, error) {
	s := strings.TrimSpace(reply)

	if args, ok := callArgs(s, "Move"); ok {
		parts := strings.Split(args, ",")
		if len(parts) == 3 {
			return combat.Move(combat.V3(component(parts[0]), component(parts[1]), component(parts[2]))), nil
		}
	}
	if args, ok := callArgs(s, "Attack"); ok {
		if id, err := uuid.Parse(strings.TrimSpace(args)); err == nil {
			return combat.Attack(id), nil
		}
	}
	if args, ok := callArgs(s, "Communicate"); ok {
		return combat.Communicate(args), nil
	}
	if args, ok := callArgs(s, "UseItem"); ok {
		return combat.UseItem(args), nil
	}

	switch strings.ToLower(s) {
	case "wait":
		return combat.Wait(), nil
	case "defend":
		return combat.Defend(), nil
	}
	return combat.Wait(), fmt.Errorf("%w: %q", ports.ErrParse, s)
}

func callArgs(s, name string) (string, bool) {
	prefix := name + "("
	if !strings.HasPrefix(s, prefix) || !strings.HasSuffix(s, ")") || len(s) < len(prefix)+1 {
		return "", false
	}
	return s[len(prefix) : len(s)-1], true
}

// component parses one Move coordinate; anything non-numeric is 0.
func component(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0
	}
	return v
}

func parseFallbacks(entries []string) ([]combat.Action, error) {
	out := make([]combat.Action, 0, len(entries))
	for i, e := range entries {
		a, err := ParseAction(e)
		if err != nil {
			return nil, &ports.ConfigError{Field: "inference.fallback_actions", Reason: fmt.Sprintf("entry %d: %v", i, err)}
		}
		out = append(out, a)
	}
	if len(out) == 0 {
		return nil, &ports.ConfigError{Field: "inference.fallback_actions", Reason: "must not be empty"}
	}
	return out, nil
}
