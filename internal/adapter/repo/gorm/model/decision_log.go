package model

import "time"

const TableNameDecisionLog = "decision_logs"

// DecisionLog mapped from table <decision_logs>
type DecisionLog struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement:true" json:"id"`
	AgentID     string    `gorm:"column:agent_id;not null" json:"agent_id"`
	AgentName   string    `gorm:"column:agent_name;not null" json:"agent_name"`
	AgentKind   string    `gorm:"column:agent_kind;not null" json:"agent_kind"`
	Team        string    `gorm:"column:team;not null" json:"team"`
	Tick        int64     `gorm:"column:tick;not null" json:"tick"`
	ActionKind  string    `gorm:"column:action_kind;not null" json:"action_kind"`
	Action      []byte    `gorm:"column:action;type:jsonb;not null" json:"action"`
	Observation []byte    `gorm:"column:observation;type:jsonb;not null" json:"observation"`
	LatencyUS   int64     `gorm:"column:latency_us;not null" json:"latency_us"`
	Reasoning   string    `gorm:"column:reasoning;not null" json:"reasoning"`
	RecordedAt  time.Time `gorm:"column:recorded_at;not null" json:"recorded_at"`
}

// TableName DecisionLog's table name
func (*DecisionLog) TableName() string {
	return TableNameDecisionLog
}
