package gormrepo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"arenacore/internal/adapter/repo/gorm/model"
	"arenacore/internal/app/ports"
	"arenacore/internal/domain/combat"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const appendBatchSize = 100

type DecisionLogRepo struct {
	db *gorm.DB
}

func NewDecisionLogRepo(db *gorm.DB) DecisionLogRepo {
	return DecisionLogRepo{db: db}
}

func (r DecisionLogRepo) Append(ctx context.Context, records []ports.DecisionRecord) error {
	if len(records) == 0 {
		return nil
	}
	rows := make([]model.DecisionLog, 0, len(records))
	for _, rec := range records {
		action, err := json.Marshal(rec.Action)
		if err != nil {
			return fmt.Errorf("encode action: %w", err)
		}
		obs, err := json.Marshal(rec.Observation)
		if err != nil {
			return fmt.Errorf("encode observation: %w", err)
		}
		rows = append(rows, model.DecisionLog{
			AgentID:     rec.AgentID.String(),
			AgentName:   rec.AgentName,
			AgentKind:   rec.AgentKind,
			Team:        string(rec.Team),
			Tick:        int64(rec.Tick),
			ActionKind:  string(rec.Action.Kind),
			Action:      action,
			Observation: obs,
			LatencyUS:   rec.Latency.Microseconds(),
			Reasoning:   rec.Reasoning,
			RecordedAt:  rec.RecordedAt,
		})
	}
	return r.db.WithContext(ctx).CreateInBatches(&rows, appendBatchSize).Error
}

func (r DecisionLogRepo) ListByAgentID(ctx context.Context, agentID uuid.UUID, limit int) ([]ports.DecisionRecord, error) {
	rows := []model.DecisionLog{}
	query := r.db.WithContext(ctx).
		Where(&model.DecisionLog{AgentID: agentID.String()}).
		Clauses(clause.OrderBy{
			Columns: []clause.OrderByColumn{
				{Column: clause.Column{Name: "recorded_at"}, Desc: true},
				{Column: clause.Column{Name: "id"}, Desc: true},
			},
		})
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ports.ErrNotFound
	}

	out := make([]ports.DecisionRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := toDecisionRecord(row)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func toDecisionRecord(row model.DecisionLog) (ports.DecisionRecord, error) {
	agentID, err := uuid.Parse(row.AgentID)
	if err != nil {
		return ports.DecisionRecord{}, fmt.Errorf("decision log %d: agent id: %w", row.ID, err)
	}
	rec := ports.DecisionRecord{
		AgentID:    agentID,
		AgentName:  row.AgentName,
		AgentKind:  row.AgentKind,
		Team:       combat.Team(row.Team),
		Tick:       uint64(row.Tick),
		Latency:    time.Duration(row.LatencyUS) * time.Microsecond,
		Reasoning:  row.Reasoning,
		RecordedAt: row.RecordedAt,
	}
	if len(row.Action) > 0 {
		if err := json.Unmarshal(row.Action, &rec.Action); err != nil {
			return ports.DecisionRecord{}, fmt.Errorf("decision log %d: action: %w", row.ID, err)
		}
	}
	if len(row.Observation) > 0 {
		if err := json.Unmarshal(row.Observation, &rec.Observation); err != nil {
			return ports.DecisionRecord{}, fmt.Errorf("decision log %d: observation: %w", row.ID, err)
		}
	}
	return rec, nil
}
