package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvConfigPath names the variable that points at the YAML config file.
const EnvConfigPath = "PORTCULLIS_CONFIG"

var configCandidates = []string{
	"./config.yaml",
	"./config/config.yaml",
	"/etc/portcullis/config.yaml",
}

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	DB        DBConfig        `koanf:"db"`
	Log       LogConfig       `koanf:"log"`
	Tracing   TracingConfig   `koanf:"tracing"`
	Auth      AuthConfig      `koanf:"auth"`
	Access    AccessConfig    `koanf:"access"`
	Summary   SummaryConfig   `koanf:"summary"`
	RateLimit RateLimitConfig `koanf:"ratelimit"`
	CORS      CORSConfig      `koanf:"cors"`
	AMQP      AMQPConfig      `koanf:"amqp"`
}

type ServerConfig struct {
	HTTPAddr     string        `koanf:"http_addr"`
	GRPCAddr     string        `koanf:"grpc_addr"` // empty disables the gRPC health endpoint
	Env          string        `koanf:"env"`       // "dev" | "prod"
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
}

type DBConfig struct {
	Driver      string `koanf:"driver"` // "sqlite" | "postgres" | "memory"
	Path        string `koanf:"path"`
	PostgresURL string `koanf:"postgres_url"`
	MaxConns    int32  `koanf:"max_conns"`
	WriteQueue  int    `koanf:"write_queue"`
}

type LogConfig struct {
	Level      string `koanf:"level"`
	Encoding   string `koanf:"encoding"`
	FilePath   string `koanf:"file"`
	MaxSizeMB  int    `koanf:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups"`
	MaxAgeDays int    `koanf:"max_age_days"`
}

type TracingConfig struct {
	Enabled     bool    `koanf:"enabled"`
	Endpoint    string  `koanf:"endpoint"`
	SampleRatio float64 `koanf:"sample_ratio"`
}

type AuthConfig struct {
	JWTSecret string `koanf:"jwt_secret"` // empty trusts X-User-ID
	DevUserID string `koanf:"dev_user_id"`
}

type AccessConfig struct {
	AllowAll       bool          `koanf:"allow_all"`
	ScheduleWindow time.Duration `koanf:"schedule_window"`
	RetentionDays  int           `koanf:"retention_days"` // 0 = keep forever
	PruneInterval  time.Duration `koanf:"prune_interval"`
}

type SummaryConfig struct {
	APIKey     string        `koanf:"api_key"`
	Model      string        `koanf:"model"`
	Prompt     string        `koanf:"prompt"`
	StartField string        `koanf:"start_field"`
	EndField   string        `koanf:"end_field"`
	Timeout    time.Duration `koanf:"timeout"`
}

type RateLimitConfig struct {
	RatePerSecond float64       `koanf:"rate_per_second"`
	Burst         int           `koanf:"burst"`
	TTL           time.Duration `koanf:"ttl"`
}

type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

type AMQPConfig struct {
	Enabled            bool   `koanf:"enabled"`
	URL                string `koanf:"url"`
	Queue              string `koanf:"queue"`
	DeadLetterExchange string `koanf:"dead_letter_exchange"`
	Prefetch           int    `koanf:"prefetch"`
}

// IsDev reports whether development-only routes (seeding) are enabled.
func (c *Config) IsDev() bool { return c.Server.Env == "dev" }

// DetermineConfigPath picks the config file: the --config flag value,
// then PORTCULLIS_CONFIG, then the first existing candidate. An empty
// result means defaults and environment only.
func DetermineConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p
	}
	for _, c := range configCandidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}

// Load reads .env (if present), the YAML file at path (if non-empty),
// fills defaults, then applies PORTCULLIS_* environment overrides.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	applyDefaults(k)
	applyEnvOverrides(k)

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.Server.Env = strings.ToLower(cfg.Server.Env)
	if cfg.Server.Env != "dev" && cfg.Server.Env != "prod" {
		// fail-soft: treat unknown as dev
		cfg.Server.Env = "dev"
	}
	cfg.DB.Driver = strings.ToLower(cfg.DB.Driver)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.DB.Driver {
	case "sqlite", "memory":
	case "postgres":
		if c.DB.PostgresURL == "" {
			return errors.New("config: db.postgres_url is required for the postgres driver")
		}
	default:
		return fmt.Errorf("config: unknown db.driver %q", c.DB.Driver)
	}
	if c.AMQP.Enabled && c.AMQP.URL == "" {
		return errors.New("config: amqp.url is required when amqp is enabled")
	}
	if c.Server.Env == "prod" && c.Auth.JWTSecret == "" {
		return errors.New("config: auth.jwt_secret is required in prod")
	}
	return nil
}

func applyDefaults(k *koanf.Koanf) {
	setDefault(k, "server.http_addr", ":8080")
	setDefault(k, "server.grpc_addr", ":9090")
	setDefault(k, "server.env", "dev")
	setDefault(k, "server.read_timeout", 10*time.Second)
	setDefault(k, "server.write_timeout", 30*time.Second)

	setDefault(k, "db.driver", "sqlite")
	setDefault(k, "db.path", "./data/portcullis.db")
	setDefault(k, "db.write_queue", 256)

	setDefault(k, "log.level", "info")
	setDefault(k, "log.encoding", "json")

	setDefault(k, "tracing.sample_ratio", 1.0)

	setDefault(k, "auth.dev_user_id", "dev-user")

	setDefault(k, "access.schedule_window", 30*time.Minute)
	setDefault(k, "access.retention_days", 0)
	setDefault(k, "access.prune_interval", 6*time.Hour)

	setDefault(k, "summary.model", "gemini-2.5-flash")
	setDefault(k, "summary.start_field", "startTime")
	setDefault(k, "summary.end_field", "endTime")
	setDefault(k, "summary.timeout", 60*time.Second)

	setDefault(k, "ratelimit.rate_per_second", 0.2)
	setDefault(k, "ratelimit.burst", 3)
	setDefault(k, "ratelimit.ttl", 10*time.Minute)

	setDefault(k, "cors.allowed_origins", []string{"http://localhost:3000"})

	setDefault(k, "amqp.queue", "portcullis.access_logs")
	setDefault(k, "amqp.dead_letter_exchange", "portcullis.dlx")
	setDefault(k, "amqp.prefetch", 32)
}

func applyEnvOverrides(k *koanf.Koanf) {
	setString(k, "server.http_addr", "PORTCULLIS_HTTP_ADDR")
	setString(k, "server.grpc_addr", "PORTCULLIS_GRPC_ADDR")
	setString(k, "server.env", "PORTCULLIS_ENV")

	setString(k, "db.driver", "PORTCULLIS_DB_DRIVER")
	setString(k, "db.path", "PORTCULLIS_DB_PATH")
	setString(k, "db.postgres_url", "PORTCULLIS_POSTGRES_URL")

	setString(k, "log.level", "PORTCULLIS_LOG_LEVEL")
	setString(k, "log.encoding", "PORTCULLIS_LOG_ENCODING")
	setString(k, "log.file", "PORTCULLIS_LOG_FILE")

	setBool(k, "tracing.enabled", "PORTCULLIS_TRACING_ENABLED")
	setString(k, "tracing.endpoint", "PORTCULLIS_OTLP_ENDPOINT")

	setString(k, "auth.jwt_secret", "PORTCULLIS_JWT_SECRET")
	setString(k, "auth.dev_user_id", "PORTCULLIS_DEV_USER_ID")

	setBool(k, "access.allow_all", "PORTCULLIS_ALLOW_ALL")
	if n, ok := getenvInt("PORTCULLIS_LOG_RETENTION_DAYS"); ok {
		k.Set("access.retention_days", n)
	}

	setString(k, "summary.api_key", "GEMINI_API_KEY")
	setString(k, "summary.api_key", "PORTCULLIS_SUMMARY_API_KEY")
	setString(k, "summary.model", "PORTCULLIS_SUMMARY_MODEL")

	setString(k, "cors.allowed_origins", "PORTCULLIS_CORS_ORIGINS")

	setBool(k, "amqp.enabled", "PORTCULLIS_AMQP_ENABLED")
	setString(k, "amqp.url", "PORTCULLIS_AMQP_URL")
}

// setDefault only sets the value if the key doesn't already exist.
func setDefault(k *koanf.Koanf, key string, value any) {
	if !k.Exists(key) {
		k.Set(key, value)
	}
}

func setString(k *koanf.Koanf, key, env string) {
	if v := strings.TrimSpace(os.Getenv(env)); v != "" {
		if strings.HasSuffix(key, "allowed_origins") {
			k.Set(key, splitCSV(v))
			return
		}
		k.Set(key, v)
	}
}

func setBool(k *koanf.Koanf, key, env string) {
	v := strings.TrimSpace(os.Getenv(env))
	if v == "" {
		return
	}
	k.Set(key, strings.EqualFold(v, "true") || v == "1")
}

func getenvInt(key string) (int, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func splitCSV(v string) []string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
