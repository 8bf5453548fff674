package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/defistate/lending-console-go/pkg/networks/stellar"
	"github.com/defistate/lending-console-go/protocols/blend"
)

// EnvPrefix prefixes every environment override, e.g. LENDSCOPE_RPC_URL.
const EnvPrefix = "LENDSCOPE_"

// Data source kinds.
const (
	SourceMock = "mock"
	SourceRPC  = "rpc"
)

type ConsoleConfig struct {
	Network string `yaml:"network"`
	Source  string `yaml:"source"`
	RPCURL  string `yaml:"rpc_url"`
	// Pool opened by default; empty means the network's default pool.
	Pool string `yaml:"pool"`

	RefreshInterval time.Duration `yaml:"refresh_interval"`
	CacheTTL        time.Duration `yaml:"cache_ttl"`
	MockLatency     time.Duration `yaml:"mock_latency"`

	PrefsDB  string `yaml:"prefs_db"`
	LogFile  string `yaml:"log_file"`
	LogLevel string `yaml:"log_level"`

	HTTPAddr  string  `yaml:"http_addr"`
	RateLimit float64 `yaml:"rate_limit"` // requests per second, 0 disables
	RateBurst int     `yaml:"rate_burst"`

	ProcessingDelay time.Duration `yaml:"processing_delay"`
	MinTypingDelay  time.Duration `yaml:"min_typing_delay"`
	MaxTypingDelay  time.Duration `yaml:"max_typing_delay"`
}

// Default returns the configuration used when nothing is set.
func Default() ConsoleConfig {
	return ConsoleConfig{
		Network:         stellar.Mainnet.Name,
		Source:          SourceMock,
		RefreshInterval: 30 * time.Second,
		CacheTTL:        15 * time.Second,
		MockLatency:     300 * time.Millisecond,
		PrefsDB:         "lendscope.db",
		LogFile:         "lendscope.log",
		LogLevel:        "info",
		HTTPAddr:        ":8080",
		RateLimit:       20,
		RateBurst:       40,
		ProcessingDelay: 3 * time.Second,
		MinTypingDelay:  1 * time.Second,
		MaxTypingDelay:  3 * time.Second,
	}
}

// Options controls where LoadConfig looks.
type Options struct {
	// Path of the YAML file. A missing file is an error only when Required.
	Path     string
	Required bool
	// EnvFile is loaded into the environment first; missing is fine.
	// Defaults to ".env".
	EnvFile string
	// Network and Source, when set, override every other layer. They come
	// from command-line flags.
	Network string
	Source  string
}

// LoadConfig layers defaults, the YAML file, the .env file, the process
// environment and the overrides in opts, in increasing precedence, and
// validates the result.
func LoadConfig(opts Options) (*ConsoleConfig, error) {
	cfg := Default()

	if opts.Path != "" {
		data, err := os.ReadFile(opts.Path)
		switch {
		case errors.Is(err, fs.ErrNotExist) && !opts.Required:
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", opts.Path, err)
			}
		}
	}

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load %s: %w", envFile, err)
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if opts.Network != "" {
		cfg.Network = opts.Network
	}
	if opts.Source != "" {
		cfg.Source = opts.Source
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *ConsoleConfig, lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"NETWORK":   &cfg.Network,
		"SOURCE":    &cfg.Source,
		"RPC_URL":   &cfg.RPCURL,
		"POOL":      &cfg.Pool,
		"PREFS_DB":  &cfg.PrefsDB,
		"LOG_FILE":  &cfg.LogFile,
		"LOG_LEVEL": &cfg.LogLevel,
		"HTTP_ADDR": &cfg.HTTPAddr,
	}
	for key, dst := range strs {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"REFRESH_INTERVAL": &cfg.RefreshInterval,
		"CACHE_TTL":        &cfg.CacheTTL,
		"MOCK_LATENCY":     &cfg.MockLatency,
		"PROCESSING_DELAY": &cfg.ProcessingDelay,
		"MIN_TYPING_DELAY": &cfg.MinTypingDelay,
		"MAX_TYPING_DELAY": &cfg.MaxTypingDelay,
	}
	for key, dst := range durations {
		v, ok := lookup(EnvPrefix + key)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: %s%s: %w", EnvPrefix, key, err)
		}
		*dst = d
	}

	if v, ok := lookup(EnvPrefix + "RATE_LIMIT"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("config: %sRATE_LIMIT: %w", EnvPrefix, err)
		}
		cfg.RateLimit = f
	}
	if v, ok := lookup(EnvPrefix + "RATE_BURST"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %sRATE_BURST: %w", EnvPrefix, err)
		}
		cfg.RateBurst = n
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *ConsoleConfig) Validate() error {
	network, err := stellar.Lookup(c.Network)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	switch strings.ToLower(c.Source) {
	case SourceMock:
	case SourceRPC:
		if c.RPCURL == "" {
			return errors.New("config: rpc_url is required when source is rpc")
		}
	default:
		return fmt.Errorf("config: unknown source %q, expected mock or rpc", c.Source)
	}
	c.Source = strings.ToLower(c.Source)

	if c.Pool != "" {
		if _, err := blend.ParsePoolID(c.Pool); err != nil {
			return fmt.Errorf("config: pool: %w", err)
		}
	} else if network.DefaultPool() == "" {
		return fmt.Errorf("config: network %s has no default pool, set pool", network.Name)
	}

	if c.RefreshInterval <= 0 {
		return errors.New("config: refresh_interval must be positive")
	}
	if c.CacheTTL < 0 || c.MockLatency < 0 || c.ProcessingDelay < 0 {
		return errors.New("config: durations must not be negative")
	}
	if c.MinTypingDelay < 0 || c.MaxTypingDelay < c.MinTypingDelay {
		return errors.New("config: typing delays must satisfy 0 <= min_typing_delay <= max_typing_delay")
	}
	if c.PrefsDB == "" {
		return errors.New("config: prefs_db is required")
	}
	if c.LogFile == "" {
		return errors.New("config: log_file is required")
	}
	if c.RateLimit < 0 || c.RateBurst < 0 || (c.RateLimit > 0 && c.RateBurst == 0) {
		return errors.New("config: rate_burst must be positive when rate_limit is set")
	}
	return nil
}

// PoolID returns the configured pool, or the network default.
func (c *ConsoleConfig) PoolID() blend.PoolID {
	if c.Pool != "" {
		return blend.MustPoolID(c.Pool)
	}
	network, err := stellar.Lookup(c.Network)
	if err != nil {
		return ""
	}
	return network.DefaultPool()
}
