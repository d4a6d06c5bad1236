// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration structure for the application.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Browser  BrowserConfig  `mapstructure:"browser" yaml:"browser"`
	LLM      LLMConfig      `mapstructure:"llm" yaml:"llm"`
	Executor ExecutorConfig `mapstructure:"executor" yaml:"executor"`
	Observer ObserverConfig `mapstructure:"observer" yaml:"observer"`
	History  HistoryConfig  `mapstructure:"history" yaml:"history"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color names for different log levels on the console.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig holds settings for the Chrome instance driven over CDP.
type BrowserConfig struct {
	Headless bool     `mapstructure:"headless" yaml:"headless"`
	Args     []string `mapstructure:"args" yaml:"args"`
	// RemoteURL attaches to an already running browser (ws:// or http:// debugging endpoint)
	// instead of launching one.
	RemoteURL         string         `mapstructure:"remote_url" yaml:"remote_url"`
	ActionTimeout     time.Duration  `mapstructure:"action_timeout" yaml:"action_timeout"`
	NavigationTimeout time.Duration  `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	Viewport          map[string]int `mapstructure:"viewport" yaml:"viewport"`
}

// LLMProvider defines the supported AI backends.
type LLMProvider string

const (
	ProviderGemini LLMProvider = "gemini"
	ProviderOpenAI LLMProvider = "openai"
)

// SupportedProviders lists every provider the planner factory can build.
var SupportedProviders = []LLMProvider{ProviderGemini, ProviderOpenAI}

// LLMConfig selects the planning backend and holds per-provider settings.
type LLMConfig struct {
	Provider LLMProvider `mapstructure:"provider" yaml:"provider"`
	// RequestsPerMinute throttles outbound planning requests on the client side. Zero disables it.
	RequestsPerMinute float64                   `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
	Models            map[string]LLMModelConfig `mapstructure:"models" yaml:"models"`
}

// LLMModelConfig defines the configuration for a single backend.
type LLMModelConfig struct {
	Model       string        `mapstructure:"model" yaml:"model"`
	APIKey      string        `mapstructure:"api_key" yaml:"-"`
	Endpoint    string        `mapstructure:"endpoint" yaml:"endpoint"`
	APITimeout  time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	Temperature float32       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens" yaml:"max_tokens"`
}

// ExecutorConfig tunes the pacing of action execution.
type ExecutorConfig struct {
	WaitDuration time.Duration `mapstructure:"wait_duration" yaml:"wait_duration"`
	ActionDelay  time.Duration `mapstructure:"action_delay" yaml:"action_delay"`
}

// ObserverConfig bounds the snapshot sent to the planner.
type ObserverConfig struct {
	MaxElements int `mapstructure:"max_elements" yaml:"max_elements"`
}

// HistoryConfig controls the persisted chat transcript.
type HistoryConfig struct {
	Path        string `mapstructure:"path" yaml:"path"`
	MaxMessages int    `mapstructure:"max_messages" yaml:"max_messages"`
}

// ModelConfig returns the settings for the selected provider.
func (l LLMConfig) ModelConfig() (LLMModelConfig, bool) {
	m, ok := l.Models[string(l.Provider)]
	return m, ok
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Defaults are static, so this only fires on a programming error.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for every configuration parameter.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "pagepilot")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.action_timeout", "15s")
	v.SetDefault("browser.navigation_timeout", "60s")

	// -- LLM --
	v.SetDefault("llm.provider", string(ProviderGemini))
	v.SetDefault("llm.requests_per_minute", 0)
	v.SetDefault("llm.models.gemini.model", "gemini-2.5-flash")
	v.SetDefault("llm.models.gemini.api_timeout", "60s")
	v.SetDefault("llm.models.gemini.temperature", 0.1)
	v.SetDefault("llm.models.gemini.max_tokens", 2048)
	v.SetDefault("llm.models.openai.model", "gpt-4o-mini")
	v.SetDefault("llm.models.openai.endpoint", "https://api.openai.com/v1/chat/completions")
	v.SetDefault("llm.models.openai.api_timeout", "60s")
	v.SetDefault("llm.models.openai.temperature", 0.1)
	v.SetDefault("llm.models.openai.max_tokens", 2048)

	// -- Executor --
	v.SetDefault("executor.wait_duration", "1s")
	v.SetDefault("executor.action_delay", "500ms")

	// -- Observer --
	v.SetDefault("observer.max_elements", 100)

	// -- History --
	v.SetDefault("history.path", "~/.pagepilot/history.yaml")
	v.SetDefault("history.max_messages", 50)
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	// Credentials are usually supplied through the environment rather than the file.
	_ = v.BindEnv("llm.models.gemini.api_key", "PAGEPILOT_GEMINI_API_KEY", "GEMINI_API_KEY")
	_ = v.BindEnv("llm.models.openai.api_key", "PAGEPILOT_OPENAI_API_KEY", "OPENAI_API_KEY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.LLM.Provider = LLMProvider(strings.ToLower(strings.TrimSpace(string(cfg.LLM.Provider))))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
// API keys are checked later, when a backend is actually built.
func (c *Config) Validate() error {
	if err := c.LLM.Validate(); err != nil {
		return fmt.Errorf("llm configuration invalid: %w", err)
	}
	if c.Executor.WaitDuration < 0 || c.Executor.ActionDelay < 0 {
		return fmt.Errorf("executor durations must not be negative")
	}
	if c.Observer.MaxElements <= 0 || c.Observer.MaxElements > 100 {
		return fmt.Errorf("observer.max_elements must be between 1 and 100")
	}
	if c.Browser.ActionTimeout <= 0 {
		return fmt.Errorf("browser.action_timeout must be a positive duration")
	}
	if c.History.MaxMessages < 0 {
		return fmt.Errorf("history.max_messages must not be negative")
	}
	return nil
}

// Validate checks the LLM selection.
func (l *LLMConfig) Validate() error {
	supported := false
	for _, p := range SupportedProviders {
		if l.Provider == p {
			supported = true
			break
		}
	}
	if !supported {
		return fmt.Errorf("unknown provider %q, supported: %v", l.Provider, SupportedProviders)
	}
	if l.RequestsPerMinute < 0 {
		return fmt.Errorf("requests_per_minute must not be negative")
	}
	if _, ok := l.ModelConfig(); !ok {
		return fmt.Errorf("no model settings for provider %q", l.Provider)
	}
	return nil
}
