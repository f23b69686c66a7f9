package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"arenacore/internal/app/ports"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaJSON string

type Config struct {
	Arena     ArenaConfig     `yaml:"arena" json:"arena"`
	Tick      TickConfig      `yaml:"tick" json:"tick"`
	Inference InferenceConfig `yaml:"inference" json:"inference"`
	Behavior  BehaviorConfig  `yaml:"behavior" json:"behavior"`
	Agents    []AgentSpec     `yaml:"agents" json:"agents"`
	Telemetry TelemetryConfig `yaml:"telemetry" json:"telemetry"`
	Log       LogConfig       `yaml:"log" json:"log"`
	HTTP      HTTPConfig      `yaml:"http" json:"http"`
}

type ArenaConfig struct {
	Width         float64       `yaml:"width" json:"width"`
	Depth         float64       `yaml:"depth" json:"depth"`
	MatchDuration time.Duration `yaml:"match_duration" json:"match_duration"`
	RespawnDelay  time.Duration `yaml:"respawn_delay" json:"respawn_delay"`
}

type TickConfig struct {
	RateHz      int           `yaml:"rate_hz" json:"rate_hz"`
	Deadline    time.Duration `yaml:"deadline" json:"deadline"`
	MaxParallel int           `yaml:"max_parallel" json:"max_parallel"`
}

type InferenceConfig struct {
	ServiceURL             string        `yaml:"service_url" json:"service_url"`
	Model                  string        `yaml:"model" json:"model"`
	MaxTokens              int           `yaml:"max_tokens" json:"max_tokens"`
	Temperature            float64       `yaml:"temperature" json:"temperature"`
	TopP                   float64       `yaml:"top_p" json:"top_p"`
	Timeout                time.Duration `yaml:"timeout" json:"timeout"`
	SystemPrompt           string        `yaml:"system_prompt" json:"system_prompt"`
	ActionPromptTemplate   string        `yaml:"action_prompt_template" json:"action_prompt_template"`
	CacheSize              int           `yaml:"cache_size" json:"cache_size"`
	CacheTTL               time.Duration `yaml:"cache_ttl" json:"cache_ttl"`
	HistorySize            int           `yaml:"history_size" json:"history_size"`
	MaxConsecutiveFailures int           `yaml:"max_consecutive_failures" json:"max_consecutive_failures"`
	RetryAfter             time.Duration `yaml:"retry_after" json:"retry_after"`
	CountParseFailures     bool          `yaml:"count_parse_failures" json:"count_parse_failures"`
	FallbackActions        []string      `yaml:"fallback_actions" json:"fallback_actions"`
	RequestsPerSecond      float64       `yaml:"requests_per_second" json:"requests_per_second"`
	MaxInFlight            int           `yaml:"max_in_flight" json:"max_in_flight"`
}

type BehaviorConfig struct {
	Aggression    float64 `yaml:"aggression" json:"aggression"`
	Caution       float64 `yaml:"caution" json:"caution"`
	Exploration   float64 `yaml:"exploration" json:"exploration"`
	Cooperation   float64 `yaml:"cooperation" json:"cooperation"`
	FleeThreshold float64 `yaml:"flee_threshold" json:"flee_threshold"`
	AttackRange   float64 `yaml:"attack_range" json:"attack_range"`
	VisionRange   float64 `yaml:"vision_range" json:"vision_range"`
	MaxHealth     float64 `yaml:"max_health" json:"max_health"`
	MaxVisited    int     `yaml:"max_visited" json:"max_visited"`
}

type AgentKind string

const (
	AgentKindScripted  AgentKind = "scripted"
	AgentKindInference AgentKind = "inference"
)

type AgentSpec struct {
	Name string    `yaml:"name" json:"name"`
	Kind AgentKind `yaml:"kind" json:"kind"`
	Team string    `yaml:"team" json:"team"`
}

type TelemetryConfig struct {
	DSN           string        `yaml:"dsn" json:"dsn"`
	BufferSize    int           `yaml:"buffer_size" json:"buffer_size"`
	BatchSize     int           `yaml:"batch_size" json:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval" json:"flush_interval"`
}

type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

func Default() Config {
	return Config{
		Arena: ArenaConfig{
			Width:         800,
			Depth:         600,
			MatchDuration: 5 * time.Minute,
			RespawnDelay:  5 * time.Second,
		},
		Tick: TickConfig{
			RateHz:      10,
			Deadline:    6 * time.Second,
			MaxParallel: 0,
		},
		Inference: InferenceConfig{
			ServiceURL:             "http://localhost:8000",
			Model:                  "llama2:7b",
			MaxTokens:              150,
			Temperature:            0.7,
			TopP:                   0.9,
			Timeout:                5 * time.Second,
			SystemPrompt:           "You are an AI agent in a combat arena. You must make tactical decisions to survive and eliminate enemies. Be strategic and decisive.",
			ActionPromptTemplate:   "Game State: {state}\n\nAvailable Actions: Move(direction), Attack(target_id), UseItem(item), Communicate(message), Wait, Defend\n\nChoose your action:",
			CacheSize:              100,
			CacheTTL:               2 * time.Second,
			HistorySize:            10,
			MaxConsecutiveFailures: 3,
			RetryAfter:             10 * time.Second,
			FallbackActions:        []string{"Wait", "Defend", "Move(1.0, 0.0, 0.0)", "Move(-1.0, 0.0, 0.0)", "Move(0.0, 0.0, 1.0)", "Move(0.0, 0.0, -1.0)"},
			RequestsPerSecond:      20,
			MaxInFlight:            10,
		},
		Behavior: BehaviorConfig{
			Aggression:    0.7,
			Caution:       0.5,
			Exploration:   0.6,
			Cooperation:   0.4,
			FleeThreshold: 30,
			AttackRange:   3,
			VisionRange:   10,
			MaxHealth:     100,
			MaxVisited:    64,
		},
		Agents: []AgentSpec{
			{Name: "red-scout", Kind: AgentKindScripted, Team: "red"},
			{Name: "red-brute", Kind: AgentKindScripted, Team: "red"},
			{Name: "blue-scout", Kind: AgentKindScripted, Team: "blue"},
			{Name: "blue-oracle", Kind: AgentKindInference, Team: "blue"},
		},
		Telemetry: TelemetryConfig{
			BufferSize:    1024,
			BatchSize:     64,
			FlushInterval: time.Second,
		},
		Log:  LogConfig{Level: "info", Format: "text"},
		HTTP: HTTPConfig{Addr: ":8080"},
	}
}

// Load reads path (if non-empty) over the defaults, applies environment
// overrides and validates. Every failure wraps ports.ErrConfiguration.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, &ports.ConfigError{Field: "path", Reason: err.Error()}
		}
		if err := validateSchema(raw); err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, &ports.ConfigError{Field: "yaml", Reason: err.Error()}
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validateSchema(raw []byte) error {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return &ports.ConfigError{Field: "yaml", Reason: err.Error()}
	}
	if doc == nil {
		return nil
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return &ports.ConfigError{Field: "yaml", Reason: err.Error()}
	}
	var generic any
	if err := json.Unmarshal(b, &generic); err != nil {
		return &ports.ConfigError{Field: "yaml", Reason: err.Error()}
	}
	schema, err := jsonschema.CompileString("arena-config.schema.json", schemaJSON)
	if err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	if err := schema.Validate(generic); err != nil {
		return &ports.ConfigError{Field: "schema", Reason: err.Error()}
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("ARENA_LLM_URL")); v != "" {
		cfg.Inference.ServiceURL = v
	}
	if v := strings.TrimSpace(os.Getenv("ARENA_LLM_MODEL")); v != "" {
		cfg.Inference.Model = v
	}
	if v := strings.TrimSpace(os.Getenv("ARENA_DB_DSN")); v != "" {
		cfg.Telemetry.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv("ARENA_HTTP_ADDR")); v != "" {
		cfg.HTTP.Addr = v
	}
	cfg.Tick.RateHz = intEnv("ARENA_TICK_RATE_HZ", cfg.Tick.RateHz)
	cfg.Inference.CacheSize = intEnv("ARENA_LLM_CACHE_SIZE", cfg.Inference.CacheSize)
	if secs := intEnv("ARENA_LLM_TIMEOUT_SECONDS", 0); secs > 0 {
		cfg.Inference.Timeout = time.Duration(secs) * time.Second
	}
}

func intEnv(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func (c Config) Validate() error {
	if c.Arena.Width <= 0 || c.Arena.Depth <= 0 {
		return &ports.ConfigError{Field: "arena", Reason: "width and depth must be positive"}
	}
	if c.Tick.RateHz <= 0 {
		return &ports.ConfigError{Field: "tick.rate_hz", Reason: "must be positive"}
	}
	if c.Tick.Deadline <= 0 {
		return &ports.ConfigError{Field: "tick.deadline", Reason: "must be positive"}
	}
	if err := c.Inference.Validate(); err != nil {
		return err
	}
	if err := c.Behavior.Validate(); err != nil {
		return err
	}
	names := make(map[string]struct{}, len(c.Agents))
	for _, a := range c.Agents {
		if strings.TrimSpace(a.Name) == "" {
			return &ports.ConfigError{Field: "agents.name", Reason: "must not be empty"}
		}
		if _, dup := names[a.Name]; dup {
			return &ports.ConfigError{Field: "agents.name", Reason: "duplicate name " + a.Name}
		}
		names[a.Name] = struct{}{}
		if a.Kind != AgentKindScripted && a.Kind != AgentKindInference {
			return &ports.ConfigError{Field: "agents.kind", Reason: "unknown kind " + string(a.Kind)}
		}
	}
	if c.Telemetry.BufferSize <= 0 || c.Telemetry.BatchSize <= 0 {
		return &ports.ConfigError{Field: "telemetry", Reason: "buffer_size and batch_size must be positive"}
	}
	return nil
}

func (c InferenceConfig) Validate() error {
	u, err := url.Parse(c.ServiceURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return &ports.ConfigError{Field: "inference.service_url", Reason: "must be an absolute URL"}
	}
	if strings.TrimSpace(c.Model) == "" {
		return &ports.ConfigError{Field: "inference.model", Reason: "must not be empty"}
	}
	if c.MaxTokens <= 0 {
		return &ports.ConfigError{Field: "inference.max_tokens", Reason: "must be positive"}
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return &ports.ConfigError{Field: "inference.temperature", Reason: "must be within [0,2]"}
	}
	if c.TopP < 0 || c.TopP > 1 {
		return &ports.ConfigError{Field: "inference.top_p", Reason: "must be within [0,1]"}
	}
	if c.Timeout <= 0 {
		return &ports.ConfigError{Field: "inference.timeout", Reason: "must be positive"}
	}
	if c.CacheSize <= 0 {
		return &ports.ConfigError{Field: "inference.cache_size", Reason: "must be positive"}
	}
	if c.CacheTTL <= 0 {
		return &ports.ConfigError{Field: "inference.cache_ttl", Reason: "must be positive"}
	}
	if c.MaxConsecutiveFailures <= 0 {
		return &ports.ConfigError{Field: "inference.max_consecutive_failures", Reason: "must be positive"}
	}
	if len(c.FallbackActions) == 0 {
		return &ports.ConfigError{Field: "inference.fallback_actions", Reason: "must not be empty"}
	}
	return nil
}

func (b BehaviorConfig) Validate() error {
	for name, v := range map[string]float64{
		"aggression":  b.Aggression,
		"caution":     b.Caution,
		"exploration": b.Exploration,
		"cooperation": b.Cooperation,
	} {
		if v < 0 || v > 1 {
			return &ports.ConfigError{Field: "behavior." + name, Reason: "must be within [0,1]"}
		}
	}
	if b.FleeThreshold < 0 || b.AttackRange <= 0 || b.VisionRange <= 0 || b.MaxHealth <= 0 {
		return &ports.ConfigError{Field: "behavior", Reason: "thresholds and ranges must be positive"}
	}
	if b.MaxVisited <= 0 {
		return &ports.ConfigError{Field: "behavior.max_visited", Reason: "must be positive"}
	}
	return nil
}
