package inference

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"arenacore/internal/app/ports"
	"arenacore/internal/config"
	"arenacore/internal/domain/combat"
	"arenacore/internal/platform/logger"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const Kind = "inference"

const healthProbeTimeout = 2 * time.Second

// Agent decides by asking a remote text-generation service. A decision cache
// absorbs repeated states and a cyclic fallback list keeps it moving while
// the service is degraded.
type Agent struct {
	mu sync.Mutex

	id   uuid.UUID
	name string
	team combat.Team
	cfg  config.InferenceConfig
	svc  ports.GenerationService

	cache        *decisionCache
	stats        Stats
	history      []string
	failures     int
	degradedAt   time.Time
	lastProbe    time.Time
	fallbacks    []combat.Action
	fallbackNext int
	reasoning    string

	now func() time.Time
	log logrus.FieldLogger
}

type Option func(*Agent)

func WithID(id uuid.UUID) Option {
	return func(a *Agent) { a.id = id }
}

func WithClock(now func() time.Time) Option {
	return func(a *Agent) { a.now = now }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(a *Agent) { a.log = log }
}

func New(name string, team combat.Team, cfg config.InferenceConfig, svc ports.GenerationService, opts ...Option) (*Agent, error) {
	if svc == nil {
		return nil, &ports.ConfigError{Field: "inference.service", Reason: "generation service is required"}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	fallbacks, err := parseFallbacks(cfg.FallbackActions)
	if err != nil {
		return nil, err
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = 10
	}

	a := &Agent{
		id:        uuid.New(),
		name:      name,
		team:      team,
		cfg:       cfg,
		svc:       svc,
		fallbacks: fallbacks,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.log == nil {
		a.log = logger.Discard()
	}
	a.log = a.log.WithFields(logrus.Fields{"agent_id": a.id.String(), "agent": a.name, "kind": Kind})

	cache, err := newDecisionCache(cfg.CacheSize, a.now)
	if err != nil {
		return nil, &ports.ConfigError{Field: "inference.cache_size", Reason: err.Error()}
	}
	a.cache = cache
	return a, nil
}

func (a *Agent) ID() uuid.UUID     { return a.id }
func (a *Agent) Name() string      { return a.name }
func (a *Agent) Kind() string      { return Kind }
func (a *Agent) Team() combat.Team { return a.team }

// Decide never returns later than the configured timeout after the remote
// call starts. Only one Decide may run per agent at a time.
func (a *Agent) Decide(ctx context.Context, obs combat.WorldObservation) combat.Action {
	a.mu.Lock()
	key := stateHash(obs)
	if action, ok := a.cache.Get(key); ok {
		a.mu.Unlock()
		return action
	}
	a.cache.PurgeExpired()

	if a.failures >= a.cfg.MaxConsecutiveFailures {
		if !a.probeDue() {
			action := a.nextFallback()
			a.mu.Unlock()
			return action
		}
		a.lastProbe = a.now()
		a.log.WithField("failures", a.failures).Info("probing generation service")
	}

	req := ports.GenerateRequest{
		Model:         a.cfg.Model,
		Prompt:        BuildPrompt(obs, a.team, a.history, a.cfg.ActionPromptTemplate),
		MaxTokens:     a.cfg.MaxTokens,
		Temperature:   a.cfg.Temperature,
		TopP:          a.cfg.TopP,
		StopSequences: []string{"\n"},
		SystemPrompt:  a.cfg.SystemPrompt,
	}
	a.mu.Unlock()

	start := a.now()
	resp, err := a.generate(ctx, req)
	latency := a.now().Sub(start)

	a.mu.Lock()
	defer a.mu.Unlock()

	if err != nil {
		a.stats.recordFailure()
		a.log.WithError(err).WithField("tick", obs.CurrentTick).Warn("generation request failed")
		return a.fail()
	}

	a.stats.recordSuccess(latency, resp.TokensUsed)
	a.reasoning = resp.Text

	action, perr := ParseAction(resp.Text)
	if perr != nil {
		a.stats.UnparsedReplies++
		a.log.WithField("reply", resp.Text).Warn("unparsed generation reply")
		if a.cfg.CountParseFailures {
			return a.fail()
		}
		a.remember(obs, action)
		return action
	}

	if a.failures >= a.cfg.MaxConsecutiveFailures {
		a.log.Info("generation service recovered")
	}
	a.failures = 0
	a.cache.Put(key, action, a.cfg.CacheTTL)
	a.remember(obs, action)
	a.log.WithFields(logrus.Fields{
		"action":     action.String(),
		"latency_ms": latency.Milliseconds(),
		"tokens":     resp.TokensUsed,
	}).Debug("generation decision")
	return action
}

// generate runs the remote call in its own goroutine bounded by the
// configured timeout. The goroutine exits once ctx is done.
func (a *Agent) generate(ctx context.Context, req ports.GenerateRequest) (ports.GenerateResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	type result struct {
		resp ports.GenerateResponse
		err  error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := a.svc.Generate(ctx, req)
		done <- result{resp: resp, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return r.resp, classify(ctx, r.err)
		}
		return r.resp, nil
	case <-ctx.Done():
		return ports.GenerateResponse{}, classify(ctx, ctx.Err())
	}
}

func classify(ctx context.Context, err error) error {
	switch {
	case ports.IsDegradingFailure(err):
		return err
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ports.ErrTimeout, err)
	default:
		return fmt.Errorf("%w: %v", ports.ErrTransport, err)
	}
}

// fail counts one degrading failure and answers with the next fallback.
// Reaching the threshold rewinds the fallback cycle to its first entry.
func (a *Agent) fail() combat.Action {
	action := a.nextFallback()
	a.failures++
	if a.failures == a.cfg.MaxConsecutiveFailures {
		a.fallbackNext = 0
		a.degradedAt = a.now()
		a.lastProbe = a.degradedAt
		a.log.WithField("failures", a.failures).Warn("generation degraded, using fallback actions")
	}
	return action
}

func (a *Agent) nextFallback() combat.Action {
	action := a.fallbacks[a.fallbackNext]
	a.fallbackNext = (a.fallbackNext + 1) % len(a.fallbacks)
	a.stats.FallbackDecisions++
	return action
}

func (a *Agent) probeDue() bool {
	if a.cfg.RetryAfter <= 0 {
		return false
	}
	return a.now().Sub(a.lastProbe) >= a.cfg.RetryAfter
}

func (a *Agent) remember(obs combat.WorldObservation, action combat.Action) {
	a.appendHistory(fmt.Sprintf("Tick %d: Health=%.1f, Pos=(%.1f,%.1f) -> %s",
		obs.CurrentTick, obs.Health, obs.Position.X, obs.Position.Z, action))
}

func (a *Agent) appendHistory(entry string) {
	a.history = append(a.history, entry)
	if over := len(a.history) - a.cfg.HistorySize; over > 0 {
		a.history = append(a.history[:0], a.history[over:]...)
	}
}

func (a *Agent) Initialize(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthProbeTimeout)
	defer cancel()
	if err := a.svc.Health(ctx); err != nil {
		a.log.WithError(err).Warn("generation service unavailable, fallback actions will be used")
		return nil
	}
	a.log.Info("generation service available")
	return nil
}

func (a *Agent) Shutdown(context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.log.WithFields(logrus.Fields{
		"successful":     a.stats.SuccessfulRequests,
		"total":          a.stats.TotalRequests,
		"tokens":         a.stats.TotalTokensUsed,
		"avg_latency_ms": a.stats.AvgLatencyMS,
	}).Info("inference agent shut down")
	return nil
}

func (a *Agent) OnDamageReceived(amount float64, attackerID uuid.UUID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.appendHistory(fmt.Sprintf("Received %.1f damage from %s", amount, attackerID))
}

func (a *Agent) OnKill(victimID uuid.UUID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.appendHistory(fmt.Sprintf("Eliminated enemy %s", victimID))
}

func (a *Agent) OnDeath() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.appendHistory("Agent died")
}

func (a *Agent) OnMessage(senderID uuid.UUID, text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.appendHistory(fmt.Sprintf("Message from %s: %s", senderID, text))
}

func (a *Agent) LastReasoning() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.reasoning
}

func (a *Agent) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := a.stats
	s.CacheHits = a.cache.hits
	s.CacheMisses = a.cache.misses
	s.ConsecutiveFailures = a.failures
	s.Degraded = a.failures >= a.cfg.MaxConsecutiveFailures
	return s
}

func (a *Agent) StatsSnapshot() any { return a.Stats() }

// ResetStats clears statistics, cache, history and the failure counter.
func (a *Agent) ResetStats() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stats = Stats{}
	a.cache.Reset()
	a.history = nil
	a.failures = 0
	a.fallbackNext = 0
}

func (a *Agent) History() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.history...)
}
