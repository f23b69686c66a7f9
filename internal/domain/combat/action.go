package combat

import (
	"fmt"

	"github.com/google/uuid"
)

type ActionKind string

const (
	ActionMove        ActionKind = "move"
	ActionAttack      ActionKind = "attack"
	ActionUseItem     ActionKind = "use_item"
	ActionCommunicate ActionKind = "communicate"
	ActionWait        ActionKind = "wait"
	ActionDefend      ActionKind = "defend"
)

// Action is one of the closed variant set; only the field matching Kind is meaningful.
type Action struct {
	Kind      ActionKind `json:"kind"`
	Direction Vec3       `json:"direction"`
	TargetID  uuid.UUID  `json:"target_id"`
	Item      string     `json:"item,omitempty"`
	Message   string     `json:"message,omitempty"`
}

func Move(direction Vec3) Action {
	return Action{Kind: ActionMove, Direction: direction}
}

func Attack(target uuid.UUID) Action {
	return Action{Kind: ActionAttack, TargetID: target}
}

func UseItem(item string) Action {
	return Action{Kind: ActionUseItem, Item: item}
}

func Communicate(message string) Action {
	return Action{Kind: ActionCommunicate, Message: message}
}

func Wait() Action {
	return Action{Kind: ActionWait}
}

func Defend() Action {
	return Action{Kind: ActionDefend}
}

func (a Action) IsValid() bool {
	switch a.Kind {
	case ActionMove, ActionAttack, ActionUseItem, ActionCommunicate, ActionWait, ActionDefend:
		return true
	default:
		return false
	}
}

// String renders the action in the reply grammar the inference parser accepts.
func (a Action) String() string {
	switch a.Kind {
	case ActionMove:
		return fmt.Sprintf("Move(%.1f, %.1f, %.1f)", a.Direction.X, a.Direction.Y, a.Direction.Z)
	case ActionAttack:
		return fmt.Sprintf("Attack(%s)", a.TargetID)
	case ActionUseItem:
		return fmt.Sprintf("UseItem(%s)", a.Item)
	case ActionCommunicate:
		return fmt.Sprintf("Communicate(%s)", a.Message)
	case ActionDefend:
		return "Defend"
	case ActionWait:
		return "Wait"
	default:
		return fmt.Sprintf("Unknown(%s)", string(a.Kind))
	}
}
