package ports

import (
	"context"
	"time"

	"arenacore/internal/domain/combat"

	"github.com/google/uuid"
)

type DecisionRecord struct {
	AgentID     uuid.UUID               `json:"agent_id"`
	AgentName   string                  `json:"agent_name"`
	AgentKind   string                  `json:"agent_kind"`
	Team        combat.Team             `json:"team,omitempty"`
	Tick        uint64                  `json:"tick"`
	Observation combat.WorldObservation `json:"observation"`
	Action      combat.Action           `json:"action"`
	Latency     time.Duration           `json:"latency"`
	Reasoning   string                  `json:"reasoning,omitempty"`
	RecordedAt  time.Time               `json:"recorded_at"`
}

// DecisionSink receives per-decision metadata. Record must not block.
type DecisionSink interface {
	Record(rec DecisionRecord)
}

type DecisionLogRepository interface {
	Append(ctx context.Context, records []DecisionRecord) error
	ListByAgentID(ctx context.Context, agentID uuid.UUID, limit int) ([]DecisionRecord, error)
}
