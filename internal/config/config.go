// Package config loads taskqd configuration with viper from a YAML file,
// TASKQ_* environment variables and command-line flags, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/tidwall/gjson"

	taskq "github.com/ZEDDEV1/nozesia-sub005"
	audithook "github.com/ZEDDEV1/nozesia-sub005/audit_hook"
	"github.com/ZEDDEV1/nozesia-sub005/cron"
	"github.com/ZEDDEV1/nozesia-sub005/job"
	"github.com/ZEDDEV1/nozesia-sub005/queue"
)

// EnvPrefix prefixes every environment override, e.g. TASKQ_HTTP_ADDR.
const EnvPrefix = "TASKQ"

// Archive backends.
const (
	ArchiveNone     = "none"
	ArchiveMemory   = "memory"
	ArchiveSQLite   = "sqlite"
	ArchivePostgres = "postgres"
	ArchiveRedis    = "redis"
)

// Config is the daemon configuration.
type Config struct {
	Queue        taskq.Config             `mapstructure:"queue" yaml:"queue"`
	HTTP         HTTPConfig               `mapstructure:"http" yaml:"http"`
	Log          LogConfig                `mapstructure:"log" yaml:"log"`
	Archive      ArchiveConfig            `mapstructure:"archive" yaml:"archive"`
	Webhooks     map[string]WebhookConfig `mapstructure:"webhooks" yaml:"webhooks,omitempty"`
	RateLimits   []queue.Config           `mapstructure:"rate_limits" yaml:"rate_limits,omitempty"`
	TenantLimits []queue.TenantConfig     `mapstructure:"tenant_limits" yaml:"tenant_limits,omitempty"`
	Crons        []CronConfig             `mapstructure:"crons" yaml:"crons,omitempty"`
	Audit        AuditConfig              `mapstructure:"audit" yaml:"audit"`
}

// AuditConfig enables the lifecycle audit log.
type AuditConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// Actions limits the audit log to these actions; empty records all.
	Actions []string `mapstructure:"actions" yaml:"actions,omitempty"`
}

// HTTPConfig configures the admin server.
type HTTPConfig struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `mapstructure:"level" yaml:"level"`
	// Format is text or json.
	Format string `mapstructure:"format" yaml:"format"`
}

// ArchiveConfig selects the durable archive for terminal jobs.
type ArchiveConfig struct {
	// Backend is none, memory, sqlite, postgres or redis.
	Backend string `mapstructure:"backend" yaml:"backend"`
	// DSN is the SQLite file DSN or the Postgres connection URL.
	DSN string `mapstructure:"dsn" yaml:"dsn,omitempty"`
	// Redis connection settings.
	RedisAddr     string `mapstructure:"redis_addr" yaml:"redis_addr,omitempty"`
	RedisPassword string `mapstructure:"redis_password" yaml:"redis_password,omitempty"`
	RedisDB       int    `mapstructure:"redis_db" yaml:"redis_db,omitempty"`
	// ConnectTimeout bounds the startup connectivity check, retries
	// included.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" yaml:"connect_timeout"`
}

// WebhookConfig binds a job type to an HTTP endpoint.
type WebhookConfig struct {
	URL     string            `mapstructure:"url" yaml:"url"`
	Headers map[string]string `mapstructure:"headers" yaml:"headers,omitempty"`
	Timeout time.Duration     `mapstructure:"timeout" yaml:"timeout,omitempty"`
}

// CronConfig declares a periodic job.
type CronConfig struct {
	Name      string `mapstructure:"name" yaml:"name"`
	Schedule  string `mapstructure:"schedule" yaml:"schedule"`
	JobType   string `mapstructure:"job_type" yaml:"job_type"`
	Payload   string `mapstructure:"payload" yaml:"payload,omitempty"`
	CompanyID string `mapstructure:"company_id" yaml:"company_id,omitempty"`
	Disabled  bool   `mapstructure:"disabled" yaml:"disabled,omitempty"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Queue: taskq.DefaultConfig(),
		HTTP: HTTPConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: 10 * time.Second,
			ShutdownTimeout:   15 * time.Second,
		},
		Log: LogConfig{Level: "info", Format: "text"},
		Archive: ArchiveConfig{
			Backend:        ArchiveNone,
			ConnectTimeout: 30 * time.Second,
		},
	}
}

// NewViper returns a viper instance with taskqd's search paths, env
// binding and defaults. Callers bind flags on it before Load.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName("taskqd")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/taskqd")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	d := Default()
	v.SetDefault("queue.max_attempts", d.Queue.MaxAttempts)
	v.SetDefault("queue.history_capacity", d.Queue.HistoryCapacity)
	v.SetDefault("queue.recent_jobs", d.Queue.RecentJobs)
	v.SetDefault("queue.backoff.kind", d.Queue.Backoff.Kind)
	v.SetDefault("queue.backoff.initial", d.Queue.Backoff.Initial)
	v.SetDefault("queue.backoff.max", d.Queue.Backoff.Max)
	v.SetDefault("queue.shutdown_timeout", d.Queue.ShutdownTimeout)
	v.SetDefault("http.addr", d.HTTP.Addr)
	v.SetDefault("http.read_header_timeout", d.HTTP.ReadHeaderTimeout)
	v.SetDefault("http.shutdown_timeout", d.HTTP.ShutdownTimeout)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("archive.backend", d.Archive.Backend)
	v.SetDefault("archive.dsn", "")
	v.SetDefault("archive.redis_addr", "")
	v.SetDefault("archive.redis_password", "")
	v.SetDefault("archive.redis_db", 0)
	v.SetDefault("archive.connect_timeout", d.Archive.ConnectTimeout)
	v.SetDefault("audit.enabled", false)
	return v
}

// Load reads the config file (file, or taskqd.yaml on the search path),
// applies env and flag overrides bound on v, and validates the result. A
// missing taskqd.yaml is not an error; a missing explicit file is.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	var errs []error

	if c.Queue.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("queue.max_attempts must be at least 1, got %d", c.Queue.MaxAttempts))
	}
	if c.Queue.HistoryCapacity < 1 {
		errs = append(errs, fmt.Errorf("queue.history_capacity must be at least 1, got %d", c.Queue.HistoryCapacity))
	}
	if c.Queue.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("queue.shutdown_timeout must be positive, got %s", c.Queue.ShutdownTimeout))
	}
	if c.HTTP.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("http.shutdown_timeout must be positive, got %s", c.HTTP.ShutdownTimeout))
	}
	if c.Archive.ConnectTimeout <= 0 {
		errs = append(errs, fmt.Errorf("archive.connect_timeout must be positive, got %s", c.Archive.ConnectTimeout))
	}
	if _, err := c.Log.level(); err != nil {
		errs = append(errs, err)
	}
	if f := c.Log.Format; f != "text" && f != "json" {
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", f))
	}

	switch c.Archive.Backend {
	case ArchiveNone, ArchiveMemory:
	case ArchiveSQLite, ArchivePostgres:
		if c.Archive.DSN == "" {
			errs = append(errs, fmt.Errorf("archive.dsn is required for the %s backend", c.Archive.Backend))
		}
	case ArchiveRedis:
		if c.Archive.RedisAddr == "" {
			errs = append(errs, errors.New("archive.redis_addr is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("archive.backend %q is not one of none, memory, sqlite, postgres, redis", c.Archive.Backend))
	}

	for t, wh := range c.Webhooks {
		if !job.Type(t).Valid() {
			errs = append(errs, fmt.Errorf("webhooks: %w: %q", taskq.ErrUnknownJobType, t))
		}
		if u, err := url.Parse(wh.URL); err != nil || !u.IsAbs() {
			errs = append(errs, fmt.Errorf("webhooks.%s.url %q is not an absolute URL", t, wh.URL))
		}
	}

	for _, a := range c.Audit.Actions {
		if !audithook.IsAction(a) {
			errs = append(errs, fmt.Errorf("audit.actions: unknown action %q", a))
		}
	}

	for _, rl := range c.RateLimits {
		if !rl.Type.Valid() {
			errs = append(errs, fmt.Errorf("rate_limits: %w: %q", taskq.ErrUnknownJobType, rl.Type))
		}
	}
	for _, tl := range c.TenantLimits {
		if tl.CompanyID == "" {
			errs = append(errs, errors.New("tenant_limits: company_id is required"))
		}
		if tl.Type != "" && !tl.Type.Valid() {
			errs = append(errs, fmt.Errorf("tenant_limits: %w: %q", taskq.ErrUnknownJobType, tl.Type))
		}
	}

	seen := make(map[string]bool, len(c.Crons))
	for _, cc := range c.Crons {
		if cc.Name == "" {
			errs = append(errs, errors.New("crons: name is required"))
			continue
		}
		if seen[cc.Name] {
			errs = append(errs, fmt.Errorf("crons: %w: %q", taskq.ErrDuplicateCron, cc.Name))
		}
		seen[cc.Name] = true
		if !job.Type(cc.JobType).Valid() {
			errs = append(errs, fmt.Errorf("crons.%s: %w: %q", cc.Name, taskq.ErrUnknownJobType, cc.JobType))
		}
		if _, err := cron.ParseSchedule(cc.Schedule); err != nil {
			errs = append(errs, fmt.Errorf("crons.%s: %w", cc.Name, err))
		}
		if cc.Payload != "" && !gjson.Valid(cc.Payload) {
			errs = append(errs, fmt.Errorf("crons.%s: %w", cc.Name, taskq.ErrInvalidPayload))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: invalid: %w", err)
	}
	return nil
}

func (l LogConfig) level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return lvl, nil
}

// NewLogger builds the daemon logger writing to w.
func (l LogConfig) NewLogger(w io.Writer) *slog.Logger {
	lvl, err := l.level()
	if err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
