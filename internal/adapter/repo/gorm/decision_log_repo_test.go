package gormrepo

import (
	"testing"
	"time"

	"arenacore/internal/adapter/repo/gorm/model"
	"arenacore/internal/domain/combat"

	"github.com/google/uuid"
)

func TestToDecisionRecord_DecodesRow(t *testing.T) {
	id := uuid.New()
	row := model.DecisionLog{
		ID:          1,
		AgentID:     id.String(),
		AgentKind:   "scripted",
		Tick:        4,
		Action:      []byte(`{"kind":"defend"}`),
		Observation: []byte(`{"health":42}`),
		LatencyUS:   1500,
	}
	rec, err := toDecisionRecord(row)
	if err != nil {
		t.Fatalf("toDecisionRecord error: %v", err)
	}
	if rec.AgentID != id || rec.Action.Kind != combat.ActionDefend || rec.Observation.Health != 42 {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.Latency != 1500*time.Microsecond {
		t.Fatalf("latency mismatch: got=%s", rec.Latency)
	}
}

func TestToDecisionRecord_CorruptRowIsAnError(t *testing.T) {
	base := model.DecisionLog{ID: 9, AgentID: uuid.New().String()}

	cases := map[string]model.DecisionLog{
		"action":      withBytes(base, []byte(`{"kind":`), nil),
		"observation": withBytes(base, nil, []byte(`not json`)),
		"agent id":    {ID: 9, AgentID: "not-a-uuid"},
	}
	for name, row := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := toDecisionRecord(row); err == nil {
				t.Fatalf("expected error for corrupt %s", name)
			}
		})
	}
}

func withBytes(row model.DecisionLog, action, observation []byte) model.DecisionLog {
	row.Action = action
	row.Observation = observation
	return row
}
