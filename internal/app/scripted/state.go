package scripted

import (
	"fmt"

	"github.com/google/uuid"
)

type Mode int

const (
	ModeIdle Mode = iota
	ModeExploring
	ModeChasing
	ModeAttacking
	ModeFleeing
	ModeDefending
	ModeDead
)

func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "Idle"
	case ModeExploring:
		return "Exploring"
	case ModeChasing:
		return "Chasing"
	case ModeAttacking:
		return "Attacking"
	case ModeFleeing:
		return "Fleeing"
	case ModeDefending:
		return "Defending"
	case ModeDead:
		return "Dead"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// State is the FSM state. Target is set only for Chasing and Attacking.
type State struct {
	Mode   Mode
	Target uuid.UUID
}

var (
	Idle      = State{Mode: ModeIdle}
	Exploring = State{Mode: ModeExploring}
	Fleeing   = State{Mode: ModeFleeing}
	Defending = State{Mode: ModeDefending}
	Dead      = State{Mode: ModeDead}
)

func Chasing(target uuid.UUID) State {
	return State{Mode: ModeChasing, Target: target}
}

func Attacking(target uuid.UUID) State {
	return State{Mode: ModeAttacking, Target: target}
}

func (s State) String() string {
	if s.Mode == ModeChasing || s.Mode == ModeAttacking {
		return fmt.Sprintf("%s(%s)", s.Mode, s.Target)
	}
	return s.Mode.String()
}
