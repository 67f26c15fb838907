package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the service
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Assistant AssistantConfig `mapstructure:"assistant"`
	Delivery  DeliveryConfig  `mapstructure:"delivery"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug  bool   `mapstructure:"debug"`
	Listen string `mapstructure:"listen"`
	// SeedSampleData loads the sample businesses at startup.
	SeedSampleData bool `mapstructure:"seed_sample_data"`
}

// LLMConfig selects and configures the hosted model used for matching and chat
type LLMConfig struct {
	Provider      string        `mapstructure:"provider"` // openai, anthropic, gemini
	APIKey        string        `mapstructure:"api_key"`
	BaseURL       string        `mapstructure:"base_url"`
	Model         string        `mapstructure:"model"`          // chat model
	MatchingModel string        `mapstructure:"matching_model"` // search/classifier model, defaults to Model
	MaxTokens     int           `mapstructure:"max_tokens"`     // cap for matching calls
	ChatMaxTokens int           `mapstructure:"chat_max_tokens"`
	Temperature   float64       `mapstructure:"temperature"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

var defaultModels = map[string]string{
	"openai":    "gpt-4o",
	"anthropic": "claude-3-5-sonnet-20241022",
	"gemini":    "gemini-2.0-flash",
}

// Normalize fills unset values with provider defaults.
func (c LLMConfig) Normalize() LLMConfig {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	if c.Provider == "" {
		c.Provider = "anthropic"
	}
	if c.Model == "" {
		c.Model = defaultModels[c.Provider]
	}
	if c.MatchingModel == "" {
		c.MatchingModel = c.Model
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 300
	}
	if c.ChatMaxTokens <= 0 {
		c.ChatMaxTokens = 1024
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	return c
}

func (c LLMConfig) Validate() error {
	if _, ok := defaultModels[c.Provider]; !ok {
		return fmt.Errorf("llm.provider %q is not supported", c.Provider)
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return errors.New("llm.api_key is required")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be within [0, 2]")
	}
	return nil
}

// AssistantConfig controls the conversational assistant
type AssistantConfig struct {
	WindowSize    int    `mapstructure:"window_size"`
	FallbackReply string `mapstructure:"fallback_reply"`
}

func (c AssistantConfig) Normalize() AssistantConfig {
	if c.WindowSize <= 0 {
		c.WindowSize = 10
	}
	return c
}

// DeliveryConfig selects the broker used to fan messages out to connected sockets
type DeliveryConfig struct {
	Broker  string      `mapstructure:"broker"` // local, redis, nats
	Channel string      `mapstructure:"channel"`
	Redis   RedisConfig `mapstructure:"redis"`
	NATS    NATSConfig  `mapstructure:"nats"`
}

func (c DeliveryConfig) Normalize() DeliveryConfig {
	c.Broker = strings.ToLower(strings.TrimSpace(c.Broker))
	if c.Broker == "" {
		c.Broker = "local"
	}
	if c.Channel == "" {
		c.Channel = "prizm.messages"
	}
	return c
}

func (c DeliveryConfig) Validate() error {
	switch c.Broker {
	case "local":
		return nil
	case "redis":
		return c.Redis.Validate()
	case "nats":
		if strings.TrimSpace(c.NATS.URL) == "" {
			return errors.New("delivery.nats.url required")
		}
		return nil
	default:
		return fmt.Errorf("delivery.broker %q is not supported", c.Broker)
	}
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (r RedisConfig) Validate() error {
	if strings.TrimSpace(r.Host) == "" {
		return fmt.Errorf("delivery.redis.host required")
	}
	if strings.TrimSpace(r.Port) == "" {
		return fmt.Errorf("delivery.redis.port required")
	}
	return nil
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

// TelemetryConfig contains telemetry and monitoring settings
type TelemetryConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name"`
}

// LoadConfig loads config from file and PRIZM_* environment variables
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetDefault("general.listen", ":5000")
	v.SetDefault("general.seed_sample_data", true)
	v.SetDefault("llm.provider", "anthropic")
	v.SetDefault("llm.timeout", "30s")
	v.SetDefault("assistant.window_size", 10)
	v.SetDefault("delivery.broker", "local")
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("telemetry.service_name", "prizm")

	if path == "" {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		if exe, err := os.Executable(); err == nil {
			exeDir := filepath.Dir(exe)
			v.AddConfigPath(exeDir)
			v.AddConfigPath(filepath.Join(exeDir, "..", "config"))
		}
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("PRIZM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// AutomaticEnv only resolves keys viper already knows about
	for _, key := range []string{"llm.api_key", "llm.model", "llm.base_url", "llm.matching_model", "delivery.nats.url", "delivery.redis.host", "delivery.redis.port", "delivery.redis.password"} {
		_ = v.BindEnv(key)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("fatal error config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("fatal error config file: %w", err)
	}
	// provider-native credential variables are honoured when no explicit key is set
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = providerKeyFromEnv(cfg.LLM.Provider)
	}

	cfg.LLM = cfg.LLM.Normalize()
	cfg.Assistant = cfg.Assistant.Normalize()
	cfg.Delivery = cfg.Delivery.Normalize()

	if err := cfg.LLM.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Delivery.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func providerKeyFromEnv(provider string) string {
	switch strings.ToLower(provider) {
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "gemini":
		return os.Getenv("GEMINI_API_KEY")
	case "anthropic", "":
		return os.Getenv("ANTHROPIC_API_KEY")
	}
	return ""
}
