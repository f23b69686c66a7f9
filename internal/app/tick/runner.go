package tick

import (
	"context"
	"sync"
	"time"

	"arenacore/internal/app/ports"
	"arenacore/internal/domain/combat"
	"arenacore/internal/platform/logger"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type AgentSource interface {
	ActiveAgents() []ports.Agent
}

type Config struct {
	// Deadline bounds one decision phase; unfinished agents get Wait.
	Deadline time.Duration
	// MaxParallel caps concurrent Decide calls; zero means one per agent.
	MaxParallel int
}

// Runner drives one decision phase per tick. Each agent runs in its own
// goroutine and only reads its own observation; results are handed back
// together once every agent finished or the deadline passed.
type Runner struct {
	source  AgentSource
	cfg     Config
	sink    ports.DecisionSink
	metrics ports.DecisionMetrics
	now     func() time.Time
	log     logrus.FieldLogger

	mu       sync.Mutex
	inflight map[uuid.UUID]struct{}
}

type Option func(*Runner)

func WithSink(s ports.DecisionSink) Option {
	return func(r *Runner) { r.sink = s }
}

func WithMetrics(m ports.DecisionMetrics) Option {
	return func(r *Runner) { r.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(r *Runner) { r.log = log }
}

func NewRunner(source AgentSource, cfg Config, opts ...Option) *Runner {
	if cfg.Deadline <= 0 {
		cfg.Deadline = 6 * time.Second
	}
	r := &Runner{
		source:   source,
		cfg:      cfg,
		now:      time.Now,
		inflight: map[uuid.UUID]struct{}{},
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.Discard()
	}
	return r
}

type phase struct {
	mu        sync.Mutex
	closed    bool
	actions   map[uuid.UUID]combat.Action
	completed map[uuid.UUID]struct{}
}

// Run collects one action per active agent that has an observation. Agents
// still deciding at the deadline, or still busy with an earlier tick, are
// given Wait.
func (r *Runner) Run(ctx context.Context, tick uint64, observations map[uuid.UUID]combat.WorldObservation) map[uuid.UUID]combat.Action {
	agents := r.source.ActiveAgents()

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Deadline)
	defer cancel()

	p := &phase{
		actions:   make(map[uuid.UUID]combat.Action, len(agents)),
		completed: make(map[uuid.UUID]struct{}, len(agents)),
	}
	var dispatched []ports.Agent
	for _, a := range agents {
		if _, ok := observations[a.ID()]; !ok {
			continue
		}
		p.actions[a.ID()] = combat.Wait()
		if !r.acquire(a.ID()) {
			r.log.WithFields(logrus.Fields{"agent": a.Name(), "tick": tick}).Debug("previous decision still running, skipping")
			if r.metrics != nil {
				r.metrics.RecordSkipped()
			}
			continue
		}
		dispatched = append(dispatched, a)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		var g errgroup.Group
		if r.cfg.MaxParallel > 0 {
			g.SetLimit(r.cfg.MaxParallel)
		}
		for _, a := range dispatched {
			if ctx.Err() != nil {
				r.release(a.ID())
				continue
			}
			g.Go(func() error {
				defer r.release(a.ID())
				if ctx.Err() != nil {
					return nil
				}
				r.decide(ctx, p, tick, a, observations[a.ID()])
				return nil
			})
		}
		_ = g.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	out := make(map[uuid.UUID]combat.Action, len(p.actions))
	for id, a := range p.actions {
		out[id] = a
	}
	for _, a := range dispatched {
		if _, ok := p.completed[a.ID()]; ok {
			continue
		}
		r.log.WithFields(logrus.Fields{"agent": a.Name(), "tick": tick}).Warn("decision missed tick deadline")
		if r.metrics != nil {
			r.metrics.RecordTimeout(a.Kind())
		}
	}
	return out
}

func (r *Runner) decide(ctx context.Context, p *phase, tick uint64, a ports.Agent, obs combat.WorldObservation) {
	start := r.now()
	action := a.Decide(ctx, obs)
	latency := r.now().Sub(start)
	if !action.IsValid() {
		action = combat.Wait()
	}

	p.mu.Lock()
	late := p.closed
	if !late {
		p.actions[a.ID()] = action
		p.completed[a.ID()] = struct{}{}
	}
	p.mu.Unlock()
	if late {
		return
	}

	if r.metrics != nil {
		r.metrics.RecordDecision(a.Kind(), action.Kind, latency)
	}
	if r.sink != nil {
		rec := ports.DecisionRecord{
			AgentID:     a.ID(),
			AgentName:   a.Name(),
			AgentKind:   a.Kind(),
			Team:        a.Team(),
			Tick:        tick,
			Observation: obs,
			Action:      action,
			Latency:     latency,
			RecordedAt:  r.now(),
		}
		if rs, ok := a.(ports.Reasoner); ok {
			rec.Reasoning = rs.LastReasoning()
		}
		r.sink.Record(rec)
	}
}

func (r *Runner) acquire(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, busy := r.inflight[id]; busy {
		return false
	}
	r.inflight[id] = struct{}{}
	return true
}

func (r *Runner) release(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.inflight, id)
}

// InFlight reports how many decisions from earlier ticks are still running.
func (r *Runner) InFlight() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.inflight)
}
