package inmemory

import (
	"sync"
	"time"

	"arenacore/internal/domain/combat"
)

type KindSnapshot struct {
	Decisions    uint64  `json:"decisions"`
	Timeouts     uint64  `json:"timeouts"`
	AvgLatencyMS float64 `json:"avg_latency_ms"`
	MaxLatencyMS float64 `json:"max_latency_ms"`
}

type Snapshot struct {
	DecisionTotal uint64                  `json:"decision_total"`
	TimeoutTotal  uint64                  `json:"timeout_total"`
	SkippedTotal  uint64                  `json:"skipped_total"`
	ByAction      map[string]uint64       `json:"by_action"`
	ByAgentKind   map[string]KindSnapshot `json:"by_agent_kind"`
}

type kindCounters struct {
	decisions  uint64
	timeouts   uint64
	latencySum time.Duration
	latencyMax time.Duration
}

type Recorder struct {
	mu       sync.Mutex
	skipped  uint64
	byAction map[string]uint64
	byKind   map[string]*kindCounters
}

func NewRecorder() *Recorder {
	return &Recorder{
		byAction: map[string]uint64{},
		byKind:   map[string]*kindCounters{},
	}
}

func (r *Recorder) kind(name string) *kindCounters {
	k, ok := r.byKind[name]
	if !ok {
		k = &kindCounters{}
		r.byKind[name] = k
	}
	return k
}

func (r *Recorder) RecordDecision(agentKind string, kind combat.ActionKind, latency time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byAction[string(kind)]++
	k := r.kind(agentKind)
	k.decisions++
	k.latencySum += latency
	if latency > k.latencyMax {
		k.latencyMax = latency
	}
}

func (r *Recorder) RecordTimeout(agentKind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kind(agentKind).timeouts++
}

func (r *Recorder) RecordSkipped() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.skipped++
}

func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := Snapshot{
		SkippedTotal: r.skipped,
		ByAction:     make(map[string]uint64, len(r.byAction)),
		ByAgentKind:  make(map[string]KindSnapshot, len(r.byKind)),
	}
	for k, v := range r.byAction {
		out.ByAction[k] = v
	}
	for name, k := range r.byKind {
		ks := KindSnapshot{
			Decisions:    k.decisions,
			Timeouts:     k.timeouts,
			MaxLatencyMS: float64(k.latencyMax) / float64(time.Millisecond),
		}
		if k.decisions > 0 {
			ks.AvgLatencyMS = float64(k.latencySum) / float64(k.decisions) / float64(time.Millisecond)
		}
		out.ByAgentKind[name] = ks
		out.DecisionTotal += k.decisions
		out.TimeoutTotal += k.timeouts
	}
	return out
}

func (r *Recorder) SnapshotAny() any {
	return r.Snapshot()
}
