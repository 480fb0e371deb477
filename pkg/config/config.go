// Package config loads the book search configuration from a YAML file,
// applies BS_* environment overrides on top and validates the result. Every
// binary reads the same file and uses the sections it needs.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
	Search    SearchConfig    `yaml:"search"`
	Recommend RecommendConfig `yaml:"recommend"`
	Neighbors NeighborsConfig `yaml:"neighbors"`
	Ingestion IngestionConfig `yaml:"ingestion"`
	Logging   LoggingConfig   `yaml:"logging"`
	Tracing   TracingConfig   `yaml:"tracing"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	// CORSOrigins lists the origins allowed to call the API. "*" allows any.
	CORSOrigins []string `yaml:"corsOrigins"`
	// RateLimitPerMinute caps requests per client IP. Zero disables it.
	RateLimitPerMinute int `yaml:"rateLimitPerMinute"`
}

// PostgresConfig holds connection parameters for the catalog database.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
	// QueryTimeout bounds a single catalog call, retries included.
	QueryTimeout time.Duration `yaml:"queryTimeout"`
}

// DSN returns a lib/pq connection string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type KafkaConfig struct {
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

type KafkaTopics struct {
	// BookIngest carries newly stored books to the indexer.
	BookIngest string `yaml:"bookIngest"`
	// IndexUpdated announces that a book's occurrence index changed.
	IndexUpdated string `yaml:"indexUpdated"`
	// SearchEvents carries one event per answered search.
	SearchEvents string `yaml:"searchEvents"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

type SearchConfig struct {
	// MaxResults caps every result list. Zero means unlimited.
	MaxResults int `yaml:"maxResults"`
	// DefaultOrder is used when a request names no order: occurrence or rank.
	DefaultOrder string `yaml:"defaultOrder"`
	CacheEnabled bool   `yaml:"cacheEnabled"`
	// SuggestLimit caps the vocabulary suggestions returned per request.
	SuggestLimit int `yaml:"suggestLimit"`
}

type RecommendConfig struct {
	MaxNeighbors int `yaml:"maxNeighbors"`
}

// NeighborsConfig drives the offline neighbor computation.
type NeighborsConfig struct {
	Threshold float64 `yaml:"threshold"`
	Workers   int     `yaml:"workers"`
	// Interval makes the indexer recompute neighbors periodically. Zero
	// leaves it to bookctl.
	Interval time.Duration `yaml:"interval"`
}

type IngestionConfig struct {
	MinWordCount int `yaml:"minWordCount"`
	// MaxBodyBytes limits the size of an ingestion request.
	MaxBodyBytes int64 `yaml:"maxBodyBytes"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type TracingConfig struct {
	Enabled    bool    `yaml:"enabled"`
	SampleRate float64 `yaml:"sampleRate"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads the YAML file at path, if any, over the defaults and then
// applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	if err := applyEnvOverrides(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks the values that would otherwise fail far from the config.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Server.RateLimitPerMinute < 0 {
		errs = append(errs, errors.New("server.rateLimitPerMinute must not be negative"))
	}
	switch c.Search.DefaultOrder {
	case "occurrence", "rank":
	default:
		errs = append(errs, fmt.Errorf("search.defaultOrder must be occurrence or rank, got %q", c.Search.DefaultOrder))
	}
	if c.Search.MaxResults < 0 {
		errs = append(errs, errors.New("search.maxResults must not be negative"))
	}
	if c.Recommend.MaxNeighbors < 0 {
		errs = append(errs, errors.New("recommend.maxNeighbors must not be negative"))
	}
	if c.Neighbors.Threshold <= 0 || c.Neighbors.Threshold > 1 {
		errs = append(errs, fmt.Errorf("neighbors.threshold %v must be in (0, 1]", c.Neighbors.Threshold))
	}
	if c.Neighbors.Interval < 0 {
		errs = append(errs, errors.New("neighbors.interval must not be negative"))
	}
	if c.Neighbors.Workers <= 0 {
		errs = append(errs, errors.New("neighbors.workers must be positive"))
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		errs = append(errs, fmt.Errorf("tracing.sampleRate %v must be in [0, 1]", c.Tracing.SampleRate))
	}
	return errors.Join(errs...)
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:               8080,
			ReadTimeout:        30 * time.Second,
			WriteTimeout:       30 * time.Second,
			ShutdownTimeout:    15 * time.Second,
			CORSOrigins:        []string{"*"},
			RateLimitPerMinute: 600,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "booksearch",
			User:            "booksearch",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			QueryTimeout:    10 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "booksearch-group",
			Topics: KafkaTopics{
				BookIngest:   "book-ingest",
				IndexUpdated: "index.updated",
				SearchEvents: "search-events",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Search: SearchConfig{
			MaxResults:   100,
			DefaultOrder: "occurrence",
			CacheEnabled: true,
			SuggestLimit: 20,
		},
		Recommend: RecommendConfig{
			MaxNeighbors: 10,
		},
		Neighbors: NeighborsConfig{
			Threshold: 0.65,
			Workers:   8,
		},
		Ingestion: IngestionConfig{
			MinWordCount: 10000,
			MaxBodyBytes: 32 << 20,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			SampleRate: 0.1,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

type lookupFunc func(string) (string, bool)

// applyEnvOverrides maps BS_* variables onto cfg. A variable that is set but
// cannot be parsed is an error rather than silently ignored.
func applyEnvOverrides(cfg *Config, lookup lookupFunc) error {
	str := map[string]*string{
		"BS_POSTGRES_HOST":     &cfg.Postgres.Host,
		"BS_POSTGRES_DATABASE": &cfg.Postgres.Database,
		"BS_POSTGRES_USER":     &cfg.Postgres.User,
		"BS_POSTGRES_PASSWORD": &cfg.Postgres.Password,
		"BS_POSTGRES_SSLMODE":  &cfg.Postgres.SSLMode,
		"BS_KAFKA_GROUP":       &cfg.Kafka.ConsumerGroup,
		"BS_REDIS_ADDR":        &cfg.Redis.Addr,
		"BS_REDIS_PASSWORD":    &cfg.Redis.Password,
		"BS_SEARCH_ORDER":      &cfg.Search.DefaultOrder,
		"BS_LOGGING_LEVEL":     &cfg.Logging.Level,
		"BS_LOGGING_FORMAT":    &cfg.Logging.Format,
	}
	ints := map[string]*int{
		"BS_SERVER_PORT":         &cfg.Server.Port,
		"BS_RATE_LIMIT":          &cfg.Server.RateLimitPerMinute,
		"BS_POSTGRES_PORT":       &cfg.Postgres.Port,
		"BS_SEARCH_MAX_RESULTS":  &cfg.Search.MaxResults,
		"BS_RECOMMEND_MAX":       &cfg.Recommend.MaxNeighbors,
		"BS_NEIGHBORS_WORKERS":   &cfg.Neighbors.Workers,
		"BS_INGESTION_MIN_WORDS": &cfg.Ingestion.MinWordCount,
		"BS_METRICS_PORT":        &cfg.Metrics.Port,
	}
	bools := map[string]*bool{
		"BS_SEARCH_CACHE":    &cfg.Search.CacheEnabled,
		"BS_TRACING_ENABLED": &cfg.Tracing.Enabled,
		"BS_METRICS_ENABLED": &cfg.Metrics.Enabled,
	}

	for name, dst := range str {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}
	for name, dst := range ints {
		if v, ok := lookup(name); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("parsing %s=%q: %w", name, v, err)
			}
			*dst = n
		}
	}
	for name, dst := range bools {
		if v, ok := lookup(name); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("parsing %s=%q: %w", name, v, err)
			}
			*dst = b
		}
	}
	if v, ok := lookup("BS_NEIGHBORS_THRESHOLD"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("parsing BS_NEIGHBORS_THRESHOLD=%q: %w", v, err)
		}
		cfg.Neighbors.Threshold = f
	}
	if v, ok := lookup("BS_KAFKA_BROKERS"); ok && v != "" {
		cfg.Kafka.Brokers = splitList(v)
	}
	if v, ok := lookup("BS_CORS_ORIGINS"); ok && v != "" {
		cfg.Server.CORSOrigins = splitList(v)
	}
	return nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
