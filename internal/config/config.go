package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration with YAML unmarshaling from strings like "45m".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

// Config is the top-level scout configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Search SearchConfig `yaml:"search"`
	LLM    LLMConfig    `yaml:"llm"`
	Store  StoreConfig  `yaml:"store"`
	Router RouterConfig `yaml:"router"`
}

type ServerConfig struct {
	Addr            string   `yaml:"addr"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// SearchConfig configures the Exa-compatible web search client.
type SearchConfig struct {
	BaseURL       string   `yaml:"base_url"`
	APIKey        string   `yaml:"api_key"`
	NumResults    int      `yaml:"num_results"`
	Type          string   `yaml:"type"`
	RatePerSecond float64  `yaml:"rate_per_second"`
	Burst         int      `yaml:"burst"`
	Timeout       Duration `yaml:"timeout"`
}

// LLMConfig configures the OpenAI-compatible chat gateway.
// Models are tried round-robin; a failing model falls back to the next one.
type LLMConfig struct {
	BaseURL     string   `yaml:"base_url"`
	APIKey      string   `yaml:"api_key"`
	Models      []string `yaml:"models"`
	Temperature float32  `yaml:"temperature"`
	MaxTokens   int      `yaml:"max_tokens"`
	Referer     string   `yaml:"referer"`
	Title       string   `yaml:"title"`
	Timeout     Duration `yaml:"timeout"`
}

// StoreConfig selects the session persistence backend.
type StoreConfig struct {
	Driver    string   `yaml:"driver"` // file, sqlite, postgres
	Dir       string   `yaml:"dir"`
	DSN       string   `yaml:"dsn"`
	Retention Duration `yaml:"retention"` // default 30 days (720h)
}

type RouterConfig struct {
	MixedFirst bool `yaml:"mixed_first"`
}

const (
	defaultAddr            = "127.0.0.1:8080"
	defaultShutdownTimeout = 5 * time.Second
	defaultSearchURL       = "https://api.exa.ai"
	defaultNumResults      = 5
	defaultSearchType      = "neural"
	defaultSearchRate      = 5
	defaultSearchBurst     = 5
	defaultSearchTimeout   = 30 * time.Second
	defaultLLMURL          = "https://openrouter.ai/api/v1"
	defaultModel           = "openai/gpt-3.5-turbo"
	defaultTemperature     = 0.7
	defaultMaxTokens       = 2000
	defaultReferer         = "http://localhost:3000"
	defaultTitle           = "Mini Research Assistant"
	defaultLLMTimeout      = 2 * time.Minute
	defaultStoreDriver     = "file"
	defaultStoreDir        = ".scout/sessions"
	defaultRetention       = 30 * 24 * time.Hour // 720h
)

// Default returns a configuration with every default applied and API keys
// taken from the environment.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

// Load reads, expands env vars, parses, and validates a scout config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadOrDefault behaves like Load but falls back to Default when the file
// does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultAddr
	}
	if cfg.Server.ShutdownTimeout.Duration == 0 {
		cfg.Server.ShutdownTimeout.Duration = defaultShutdownTimeout
	}

	if cfg.Search.BaseURL == "" {
		cfg.Search.BaseURL = defaultSearchURL
	}
	if cfg.Search.APIKey == "" {
		cfg.Search.APIKey = os.Getenv("EXA_API_KEY")
	}
	if cfg.Search.NumResults == 0 {
		cfg.Search.NumResults = defaultNumResults
	}
	if cfg.Search.Type == "" {
		cfg.Search.Type = defaultSearchType
	}
	if cfg.Search.RatePerSecond == 0 {
		cfg.Search.RatePerSecond = defaultSearchRate
	}
	if cfg.Search.Burst == 0 {
		cfg.Search.Burst = defaultSearchBurst
	}
	if cfg.Search.Timeout.Duration == 0 {
		cfg.Search.Timeout.Duration = defaultSearchTimeout
	}

	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = defaultLLMURL
	}
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("OPENROUTER_API_KEY")
	}
	if len(cfg.LLM.Models) == 0 {
		cfg.LLM.Models = []string{defaultModel}
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = defaultTemperature
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = defaultMaxTokens
	}
	if cfg.LLM.Referer == "" {
		cfg.LLM.Referer = defaultReferer
	}
	if cfg.LLM.Title == "" {
		cfg.LLM.Title = defaultTitle
	}
	if cfg.LLM.Timeout.Duration == 0 {
		cfg.LLM.Timeout.Duration = defaultLLMTimeout
	}

	if cfg.Store.Driver == "" {
		cfg.Store.Driver = defaultStoreDriver
	}
	if cfg.Store.Driver == "file" && cfg.Store.Dir == "" {
		cfg.Store.Dir = defaultStoreDir
	}
	if cfg.Store.Retention.Duration == 0 {
		cfg.Store.Retention.Duration = defaultRetention
	}
}

func validate(cfg *Config) error {
	var errs []error

	if cfg.Server.ShutdownTimeout.Duration < 0 {
		errs = append(errs, errors.New("server.shutdown_timeout must be positive"))
	}

	if cfg.Search.NumResults < 1 || cfg.Search.NumResults > 100 {
		errs = append(errs, fmt.Errorf("search.num_results must be between 1 and 100, got %d", cfg.Search.NumResults))
	}
	switch cfg.Search.Type {
	case "neural", "keyword", "auto":
		// valid
	default:
		errs = append(errs, fmt.Errorf("search.type must be \"neural\", \"keyword\" or \"auto\", got %q", cfg.Search.Type))
	}
	if cfg.Search.RatePerSecond < 0 {
		errs = append(errs, errors.New("search.rate_per_second must not be negative"))
	}
	if cfg.Search.Burst < 0 {
		errs = append(errs, errors.New("search.burst must not be negative"))
	}

	for i, m := range cfg.LLM.Models {
		if m == "" {
			errs = append(errs, fmt.Errorf("llm.models[%d] is empty", i))
		}
	}
	if cfg.LLM.Temperature < 0 || cfg.LLM.Temperature > 2 {
		errs = append(errs, fmt.Errorf("llm.temperature must be between 0 and 2, got %v", cfg.LLM.Temperature))
	}
	if cfg.LLM.MaxTokens < 0 {
		errs = append(errs, errors.New("llm.max_tokens must be positive"))
	}

	switch cfg.Store.Driver {
	case "file":
		if cfg.Store.Dir == "" {
			errs = append(errs, errors.New("store.dir is required when store.driver is \"file\""))
		}
	case "sqlite", "postgres":
		if cfg.Store.DSN == "" {
			errs = append(errs, fmt.Errorf("store.dsn is required when store.driver is %q", cfg.Store.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("store.driver must be \"file\", \"sqlite\" or \"postgres\", got %q", cfg.Store.Driver))
	}
	if cfg.Store.Retention.Duration < 0 {
		errs = append(errs, errors.New("store.retention must not be negative"))
	}

	return errors.Join(errs...)
}
