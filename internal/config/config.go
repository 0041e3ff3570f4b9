// Package config loads runtime settings from defaults, an optional TOML
// file and the environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	MaxConns int
}

type SSHConfig struct {
	User           string
	Host           string
	Port           string
	KeyPath        string
	KnownHostsPath string
	Insecure       bool
}

// Enabled reports whether the database is reached through a tunnel.
func (s SSHConfig) Enabled() bool { return s.User != "" }

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type Config struct {
	TCPPort     string
	MonitorPort string
	AppEnv      string
	Debug       bool
	LogLevel    string

	InactivityTimeout time.Duration
	WriteTimeout      time.Duration
	PersistTimeout    time.Duration
	ShutdownGrace     time.Duration

	MaxSessions         int
	FileDescriptorLimit uint64
	ForwardQueueSize    int

	DB    DBConfig
	SSH   SSHConfig
	Redis RedisConfig

	GRPCServer      string
	ProxyAddr       string
	TeamsWebhookURL string
	WebhookBaseURL  string
	RawLogDir       string
	SpoolPath       string
}

func Default() *Config {
	return &Config{
		TCPPort:             "6000",
		MonitorPort:         "9090",
		AppEnv:              "development",
		LogLevel:            "info",
		InactivityTimeout:   60 * time.Second,
		WriteTimeout:        10 * time.Second,
		PersistTimeout:      10 * time.Second,
		ShutdownGrace:       65 * time.Second,
		MaxSessions:         2000,
		FileDescriptorLimit: 10000,
		ForwardQueueSize:    1000,
		DB: DBConfig{
			Host:     "127.0.0.1",
			Port:     "5432",
			MaxConns: 10,
		},
		SSH: SSHConfig{Port: "22"},
	}
}

// Load reads .env (when present), then the TOML file at path or CONFIG_FILE,
// then the process environment.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}

	cfg := Default()
	if path != "" {
		file, err := readFile(path)
		if err != nil {
			return nil, err
		}
		if err := cfg.apply(file); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	}
	if err := cfg.apply(os.LookupEnv); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

type lookupFunc func(key string) (string, bool)

// readFile decodes a flat TOML table. Keys are the environment names in
// lower case, e.g. tcp_port or db_host.
func readFile(path string) (lookupFunc, error) {
	raw := map[string]any{}
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return nil, fmt.Errorf("load config file: %w", err)
	}
	return func(key string) (string, bool) {
		k := strings.ToLower(key)
		if !meta.IsDefined(k) {
			return "", false
		}
		return fmt.Sprint(raw[k]), true
	}, nil
}

func (c *Config) apply(lookup lookupFunc) error {
	p := parser{lookup: lookup}

	p.str("TCP_PORT", &c.TCPPort)
	p.str("MONITOR_PORT", &c.MonitorPort)
	p.str("APP_ENV", &c.AppEnv)
	p.boolean("DEBUG", &c.Debug)
	p.str("LOG_LEVEL", &c.LogLevel)

	p.duration("INACTIVITY_TIMEOUT", &c.InactivityTimeout)
	p.duration("WRITE_TIMEOUT", &c.WriteTimeout)
	p.duration("PERSIST_TIMEOUT", &c.PersistTimeout)
	p.duration("SHUTDOWN_GRACE", &c.ShutdownGrace)

	p.integer("MAX_SESSIONS", &c.MaxSessions)
	p.uint64("FILE_DESCRIPTOR_LIMIT", &c.FileDescriptorLimit)
	p.integer("FORWARD_QUEUE_SIZE", &c.ForwardQueueSize)

	p.str("DB_HOST", &c.DB.Host)
	p.str("DB_PORT", &c.DB.Port)
	p.str("DB_USER", &c.DB.User)
	p.str("DB_PASSWORD", &c.DB.Password)
	p.str("DB_NAME", &c.DB.Name)
	p.integer("DB_MAX_CONNS", &c.DB.MaxConns)

	p.str("SSH_USER", &c.SSH.User)
	p.str("SSH_HOST", &c.SSH.Host)
	p.str("SSH_PORT", &c.SSH.Port)
	p.str("SSH_PRIVATE_KEY_PATH", &c.SSH.KeyPath)
	p.str("SSH_KNOWN_HOSTS", &c.SSH.KnownHostsPath)
	p.boolean("SSH_INSECURE", &c.SSH.Insecure)

	p.str("REDIS_ADDR", &c.Redis.Addr)
	p.str("REDIS_PASSWORD", &c.Redis.Password)
	p.integer("REDIS_DB", &c.Redis.DB)

	p.str("GRPC_SERVER", &c.GRPCServer)
	p.str("PROXY_ADDR", &c.ProxyAddr)
	p.str("TEAMS_WEBHOOK_URL", &c.TeamsWebhookURL)
	p.str("WEBHOOK_BASE_URL", &c.WebhookBaseURL)
	p.str("RAW_LOG_DIR", &c.RawLogDir)
	p.str("SPOOL_PATH", &c.SpoolPath)

	return errors.Join(p.errs...)
}

// fdReserve covers descriptors held outside device sessions: listeners,
// database and redis pools, forwarders, log files.
const fdReserve = 256

// FileLimit is the open-file limit to request: FILE_DESCRIPTOR_LIMIT, raised
// when MAX_SESSIONS plus the reserve would not fit under it.
func (c *Config) FileLimit() uint64 {
	need := uint64(c.MaxSessions) + fdReserve
	if c.MaxSessions < 0 {
		need = fdReserve
	}
	return max(c.FileDescriptorLimit, need)
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.MaxSessions <= 0 {
		errs = append(errs, fmt.Errorf("MAX_SESSIONS must be positive, got %d", c.MaxSessions))
	}
	if c.ForwardQueueSize <= 0 {
		errs = append(errs, fmt.Errorf("FORWARD_QUEUE_SIZE must be positive, got %d", c.ForwardQueueSize))
	}
	for name, d := range map[string]time.Duration{
		"INACTIVITY_TIMEOUT": c.InactivityTimeout,
		"WRITE_TIMEOUT":      c.WriteTimeout,
		"PERSIST_TIMEOUT":    c.PersistTimeout,
		"SHUTDOWN_GRACE":     c.ShutdownGrace,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, d))
		}
	}
	if c.SSH.Enabled() && (c.SSH.Host == "" || c.SSH.KeyPath == "") {
		errs = append(errs, errors.New("SSH_USER requires SSH_HOST and SSH_PRIVATE_KEY_PATH"))
	}
	return errors.Join(errs...)
}

type parser struct {
	lookup lookupFunc
	errs   []error
}

func (p *parser) get(key string) (string, bool) {
	v, ok := p.lookup(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (p *parser) str(key string, dst *string) {
	if v, ok := p.get(key); ok {
		*dst = v
	}
}

func (p *parser) boolean(key string, dst *bool) {
	if v, ok := p.get(key); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = b
	}
}

func (p *parser) integer(key string, dst *int) {
	if v, ok := p.get(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = n
	}
}

func (p *parser) uint64(key string, dst *uint64) {
	if v, ok := p.get(key); ok {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = n
	}
}

// duration accepts Go durations ("90s") or a bare number of seconds.
func (p *parser) duration(key string, dst *time.Duration) {
	if v, ok := p.get(key); ok {
		if secs, err := strconv.Atoi(v); err == nil {
			*dst = time.Duration(secs) * time.Second
			return
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = d
	}
}
