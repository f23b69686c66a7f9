package ports

import (
	"time"

	"arenacore/internal/domain/combat"
)

type DecisionMetrics interface {
	RecordDecision(agentKind string, kind combat.ActionKind, latency time.Duration)
	RecordTimeout(agentKind string)
	RecordSkipped()
}
