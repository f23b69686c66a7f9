package httpadapter

import (
	"encoding/json"
	"testing"
	"time"

	"arenacore/internal/adapter/metrics/inmemory"
	"arenacore/internal/app/ports"
	"arenacore/internal/domain/combat"

	"github.com/google/uuid"
)

func TestResponseJSONUsesSnakeCase(t *testing.T) {
	id := uuid.New()
	now := time.Unix(1700000000, 0).UTC()
	record := ports.DecisionRecord{
		AgentID:   id,
		AgentName: "red-scout",
		AgentKind: "scripted",
		Tick:      7,
		Observation: combat.WorldObservation{
			AgentID:     id,
			Health:      80,
			ArenaBounds: combat.Vec2{X: 100, Y: 100},
		},
		Action:     combat.Attack(uuid.New()),
		Latency:    time.Millisecond,
		RecordedAt: now,
	}

	cases := []struct {
		name    string
		payload any
		want    []string
		notWant []string
	}{
		{
			name:    "agent",
			payload: agentView{ID: id, Name: "red-scout", Kind: "scripted", Team: "red", Active: true},
			want:    []string{"id", "name", "kind", "team", "active"},
			notWant: []string{"ID", "Name", "Active"},
		},
		{
			name:    "decisions",
			payload: decisionsResponse{AgentID: id, Decisions: []ports.DecisionRecord{record}},
			want:    []string{"agent_id", "decisions"},
			notWant: []string{"AgentID", "Decisions"},
		},
		{
			name:    "kpi",
			payload: inmemory.Snapshot{ByAction: map[string]uint64{}, ByAgentKind: map[string]inmemory.KindSnapshot{}},
			want:    []string{"decision_total", "timeout_total", "skipped_total", "by_action", "by_agent_kind"},
			notWant: []string{"DecisionTotal", "ByAction"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := json.Marshal(tc.payload)
			if err != nil {
				t.Fatalf("marshal failed: %v", err)
			}
			var got map[string]any
			if err := json.Unmarshal(b, &got); err != nil {
				t.Fatalf("unmarshal failed: %v", err)
			}
			for _, key := range tc.want {
				if _, ok := got[key]; !ok {
					t.Fatalf("expected key %q in %s", key, string(b))
				}
			}
			for _, key := range tc.notWant {
				if _, ok := got[key]; ok {
					t.Fatalf("unexpected key %q in %s", key, string(b))
				}
			}
			if tc.name == "decisions" {
				list, _ := got["decisions"].([]any)
				if len(list) != 1 {
					t.Fatalf("expected one decision in %s", string(b))
				}
				rec := asMap(list[0])
				for _, key := range []string{"agent_kind", "observation", "action", "recorded_at"} {
					if _, ok := rec[key]; !ok {
						t.Fatalf("expected nested key decisions.%s in %s", key, string(b))
					}
				}
				if _, ok := asMap(rec["observation"])["arena_bounds"]; !ok {
					t.Fatalf("expected nested key observation.arena_bounds in %s", string(b))
				}
			}
		})
	}
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}
