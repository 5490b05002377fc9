package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/abdelatifsd/Adjacent/internal/platform/envutil"
)

const (
	BackendRedis    = "redis"
	BackendTemporal = "temporal"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// UnmarshalYAML accepts "5s"-style strings or a bare integer number of seconds.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	s := strings.TrimSpace(value.Value)
	if s == "" || s == "null" || s == "~" {
		d.Duration = 0
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		d.Duration = time.Duration(n) * time.Second
		return nil
	}
	dd, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("duration must be a string like \"5s\" or integer seconds: %w", err)
	}
	d.Duration = dd
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

func Default() *Config {
	return &Config{
		Env: "development",
		HTTP: HTTPConfig{
			Addr:              ":8000",
			ReadHeaderTimeout: Duration{5 * time.Second},
			ShutdownTimeout:   Duration{15 * time.Second},
			CORSOrigins:       []string{"http://localhost:3000", "http://127.0.0.1:3000"},
		},
		Neo4j: Neo4jConfig{
			URI:          "bolt://localhost:7688",
			User:         "neo4j",
			Timeout:      Duration{10 * time.Second},
			MaxPoolSize:  50,
			ProductLabel: "Product",
			RelType:      "RECOMMENDATION",
			VectorIndex:  "product_embedding",
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Queue: QueueConfig{
			Backend:     BackendRedis,
			Name:        "adjacent_inference",
			JobTimeout:  Duration{300 * time.Second},
			ResultTTL:   Duration{24 * time.Hour},
			Concurrency: 4,
			PollTimeout: Duration{time.Second},
		},
		Temporal: TemporalConfig{
			Namespace:     "adjacent",
			TaskQueue:     "adjacent_inference",
			DialTimeout:   Duration{5 * time.Second},
			DialMaxWait:   Duration{60 * time.Second},
			RetentionDays: 7,
		},
		LLM: LLMConfig{
			Model:   "gpt-4o-mini",
			Timeout: Duration{120 * time.Second},
		},
		Embedding: EmbeddingConfig{
			Model:     "text-embedding-3-small",
			BatchSize: 100,
		},
		Recommend: RecommendConfig{
			DefaultTopK:                10,
			MaxTopK:                    100,
			AllowEndpointReinforcement: true,
			ReinforcementThreshold:     5,
			ReinforcementMaxConfidence: 0.70,
		},
		Observability: ObservabilityConfig{
			ServiceName: "adjacent",
			LogSpans:    true,
		},
	}
}

// Load layers defaults, an optional YAML file and environment overrides, then validates.
func Load() (*Config, error) {
	cfg := Default()

	cfgPath := strings.TrimSpace(os.Getenv("ADJACENT_CONFIG_PATH"))
	if cfgPath == "" {
		if wd, err := os.Getwd(); err == nil {
			p := filepath.Join(wd, "config", "adjacent.yaml")
			if _, err := os.Stat(p); err == nil {
				cfgPath = p
			}
		}
	}
	if cfgPath != "" {
		b, err := os.ReadFile(cfgPath)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgPath, err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", cfgPath, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	envutil.SetString(&cfg.Env, "LOG_MODE")
	envutil.SetString(&cfg.HTTP.Addr, "HTTP_ADDR")

	envutil.SetString(&cfg.Neo4j.URI, "NEO4J_URI")
	envutil.SetString(&cfg.Neo4j.User, "NEO4J_USER")
	envutil.SetString(&cfg.Neo4j.Password, "NEO4J_PASSWORD")
	envutil.SetString(&cfg.Neo4j.Database, "NEO4J_DATABASE")
	envutil.SetInt(&cfg.Neo4j.MaxPoolSize, "NEO4J_MAX_POOL_SIZE")
	if d, ok := envutil.Seconds("NEO4J_TIMEOUT_SECONDS"); ok {
		cfg.Neo4j.Timeout = Duration{d}
	}

	envutil.SetString(&cfg.Redis.URL, "REDIS_URL")
	envutil.SetString(&cfg.Redis.Addr, "REDIS_ADDR")
	envutil.SetString(&cfg.Redis.Password, "REDIS_PASSWORD")

	envutil.SetString(&cfg.Queue.Backend, "QUEUE_BACKEND")
	envutil.SetString(&cfg.Queue.Name, "QUEUE_NAME")
	envutil.SetInt(&cfg.Queue.Concurrency, "WORKER_CONCURRENCY")
	if d, ok := envutil.Seconds("JOB_TIMEOUT_SECONDS"); ok {
		cfg.Queue.JobTimeout = Duration{d}
	}

	envutil.SetString(&cfg.Temporal.Address, "TEMPORAL_ADDRESS")
	envutil.SetString(&cfg.Temporal.Namespace, "TEMPORAL_NAMESPACE")
	envutil.SetString(&cfg.Temporal.TaskQueue, "TEMPORAL_TASK_QUEUE")
	envutil.SetString(&cfg.Temporal.ClientCertPath, "TEMPORAL_CLIENT_CERT_PATH")
	envutil.SetString(&cfg.Temporal.ClientKeyPath, "TEMPORAL_CLIENT_KEY_PATH")
	envutil.SetString(&cfg.Temporal.ClientCAPath, "TEMPORAL_CLIENT_CA_PATH")
	envutil.SetBool(&cfg.Temporal.AutoRegisterNamespace, "TEMPORAL_AUTO_REGISTER_NAMESPACE")
	envutil.SetInt(&cfg.Temporal.RetentionDays, "TEMPORAL_NAMESPACE_RETENTION_DAYS")
	if d, ok := envutil.Seconds("TEMPORAL_DIAL_TIMEOUT_SECONDS"); ok {
		cfg.Temporal.DialTimeout = Duration{d}
	}
	if d, ok := envutil.Seconds("TEMPORAL_DIAL_MAX_WAIT_SECONDS"); ok {
		cfg.Temporal.DialMaxWait = Duration{d}
	}

	envutil.SetString(&cfg.LLM.APIKey, "OPENAI_API_KEY")
	envutil.SetString(&cfg.LLM.BaseURL, "OPENAI_BASE_URL")
	envutil.SetString(&cfg.LLM.Model, "LLM_MODEL")
	envutil.SetInt(&cfg.LLM.MaxRetries, "OPENAI_MAX_RETRIES")

	envutil.SetString(&cfg.Embedding.Model, "EMBEDDING_MODEL")
	envutil.SetInt(&cfg.Embedding.Dimensions, "EMBEDDING_DIMENSIONS")

	envutil.SetBool(&cfg.Recommend.AllowEndpointReinforcement, "ENDPOINT_REINFORCEMENT_ENABLED")
	envutil.SetInt(&cfg.Recommend.ReinforcementThreshold, "ENDPOINT_REINFORCEMENT_THRESHOLD")
	envutil.SetFloat(&cfg.Recommend.ReinforcementMaxConfidence, "ENDPOINT_REINFORCEMENT_MAX_CONFIDENCE")

	envutil.SetString(&cfg.Observability.Version, "SERVICE_VERSION")
	envutil.SetBool(&cfg.Observability.LogSpans, "LOG_SPANS")
	envutil.SetBool(&cfg.Observability.Metrics, "METRICS_ENABLED")
}

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	for name, v := range map[string]string{
		"neo4j.product_label": c.Neo4j.ProductLabel,
		"neo4j.rel_type":      c.Neo4j.RelType,
		"neo4j.vector_index":  c.Neo4j.VectorIndex,
	} {
		if !identRe.MatchString(v) {
			return fmt.Errorf("%s must be a valid identifier, got %q", name, v)
		}
	}

	c.Queue.Backend = strings.ToLower(strings.TrimSpace(c.Queue.Backend))
	switch c.Queue.Backend {
	case BackendRedis, BackendTemporal:
	default:
		return fmt.Errorf("queue.backend must be %q or %q, got %q", BackendRedis, BackendTemporal, c.Queue.Backend)
	}
	if strings.TrimSpace(c.Queue.Name) == "" {
		return errors.New("queue.name is required")
	}
	if c.Queue.JobTimeout.Duration <= 0 {
		return errors.New("queue.job_timeout must be positive")
	}
	if c.Queue.Concurrency < 1 {
		c.Queue.Concurrency = 1
	}
	if c.Queue.PollTimeout.Duration <= 0 {
		c.Queue.PollTimeout = Duration{time.Second}
	}
	if c.Queue.Backend == BackendTemporal && strings.TrimSpace(c.Temporal.Address) == "" {
		return errors.New("temporal.address is required when queue.backend is temporal")
	}
	if c.Temporal.RetentionDays < 1 || c.Temporal.RetentionDays > 365 {
		c.Temporal.RetentionDays = 7
	}

	r := c.Recommend
	if r.MaxTopK < 1 || r.DefaultTopK < 1 || r.DefaultTopK > r.MaxTopK {
		return fmt.Errorf("recommend.default_top_k must be within 1..max_top_k (%d), got %d", r.MaxTopK, r.DefaultTopK)
	}
	if r.ReinforcementThreshold < 1 {
		return errors.New("recommend.reinforcement_threshold must be >= 1")
	}
	if r.ReinforcementMaxConfidence <= 0 || r.ReinforcementMaxConfidence > 1 {
		return fmt.Errorf("recommend.reinforcement_max_confidence must be in (0,1], got %v", r.ReinforcementMaxConfidence)
	}
	if c.Embedding.BatchSize < 1 {
		c.Embedding.BatchSize = 100
	}
	return nil
}
