// Package config loads the gateway configuration from a YAML file, PLANTCARE_
// environment variables and an optional dotenv file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/leofalp/plantcare/core/registry"
)

const envPrefix = "PLANTCARE"

const (
	HistoryMemory = "memory"
	HistorySQLite = "sqlite"
)

type Config struct {
	Server    ServerConfig     `mapstructure:"server"`
	Gateway   GatewayConfig    `mapstructure:"gateway"`
	Providers []ProviderConfig `mapstructure:"providers"`
	History   HistoryConfig    `mapstructure:"history"`
	Telemetry TelemetryConfig  `mapstructure:"telemetry"`
	EnvFile   string           `mapstructure:"env_file"`
}

type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type GatewayConfig struct {
	DefaultProvider    string        `mapstructure:"default_provider"`
	VisionProvider     string        `mapstructure:"vision_provider"`
	ContextWindow      int           `mapstructure:"context_window"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"` // 0 disables
	MaxStreamLineBytes int           `mapstructure:"max_stream_line_bytes"`
	CareGuideTimeout   time.Duration `mapstructure:"careguide_timeout"`
	CareGuidePrivate   bool          `mapstructure:"careguide_allow_private"` // local development only
	LogLevel           string        `mapstructure:"log_level"`
	LogFormat          string        `mapstructure:"log_format"` // text | json
}

// ProviderConfig is one entry of the provider table.
type ProviderConfig struct {
	Name          string `mapstructure:"name"`
	Endpoint      string `mapstructure:"endpoint"`
	CredentialEnv string `mapstructure:"credential_env"`
	Model         string `mapstructure:"model"`
	Vision        bool   `mapstructure:"vision"`
}

type HistoryConfig struct {
	Driver      string `mapstructure:"driver"`
	Path        string `mapstructure:"path"`
	MaxMessages int    `mapstructure:"max_messages"`
}

type TelemetryConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint"` // empty disables tracing export
	ServiceName  string `mapstructure:"service_name"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("gateway.default_provider", registry.DefaultProviderName)
	v.SetDefault("gateway.vision_provider", registry.DefaultVisionName)
	v.SetDefault("gateway.context_window", 10)
	v.SetDefault("gateway.request_timeout", "0s")
	v.SetDefault("gateway.max_stream_line_bytes", 1024*1024)
	v.SetDefault("gateway.careguide_timeout", "20s")
	v.SetDefault("gateway.careguide_allow_private", false)
	v.SetDefault("gateway.log_level", "info")
	v.SetDefault("gateway.log_format", "text")
	v.SetDefault("history.driver", HistoryMemory)
	v.SetDefault("history.path", "data/history.db")
	v.SetDefault("history.max_messages", 200)
	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.service_name", "plantcare")
	v.SetDefault("env_file", ".env")
}

// Load reads path, or config.yaml from . and ./config when path is empty.
// A missing file is not an error when path is empty. The dotenv file named by
// env_file is loaded into the environment without overriding variables that
// are already set; the default .env may be absent.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &nf) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	err := v.Unmarshal(&c, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := c.loadEnvFile(v.InConfig("env_file")); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) loadEnvFile(explicit bool) error {
	if c.EnvFile == "" {
		return nil
	}
	if _, err := os.Stat(c.EnvFile); err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return nil
		}
		return fmt.Errorf("env file %s: %w", c.EnvFile, err)
	}
	if err := godotenv.Load(c.EnvFile); err != nil {
		return fmt.Errorf("env file %s: %w", c.EnvFile, err)
	}
	return nil
}

// Validate checks the provider table and the history settings.
func (c *Config) Validate() error {
	names := map[string]bool{}
	for i, p := range c.Providers {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			return fmt.Errorf("providers[%d]: name is required", i)
		}
		if strings.TrimSpace(p.Endpoint) == "" {
			return fmt.Errorf("provider %q: endpoint is required", name)
		}
		if names[name] {
			return fmt.Errorf("provider %q: duplicate name", name)
		}
		names[name] = true
	}
	if len(names) == 0 {
		for _, d := range registry.DefaultDescriptors() {
			names[d.LogicalName] = true
		}
	}

	if c.Gateway.DefaultProvider != "" && !names[c.Gateway.DefaultProvider] {
		return fmt.Errorf("gateway.default_provider %q is not a configured provider", c.Gateway.DefaultProvider)
	}
	if c.Gateway.VisionProvider != "" && !names[c.Gateway.VisionProvider] {
		return fmt.Errorf("gateway.vision_provider %q is not a configured provider", c.Gateway.VisionProvider)
	}
	if c.Gateway.ContextWindow < 0 {
		return errors.New("gateway.context_window must not be negative")
	}

	switch c.History.Driver {
	case HistoryMemory:
	case HistorySQLite:
		if strings.TrimSpace(c.History.Path) == "" {
			return errors.New("history.path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("history.driver %q: want %s or %s", c.History.Driver, HistoryMemory, HistorySQLite)
	}
	return nil
}

// Descriptors converts the provider table. An empty table yields the
// built-in defaults.
func (c *Config) Descriptors() []registry.Descriptor {
	if len(c.Providers) == 0 {
		return registry.DefaultDescriptors()
	}
	out := make([]registry.Descriptor, 0, len(c.Providers))
	for _, p := range c.Providers {
		out = append(out, registry.Descriptor{
			LogicalName:      strings.TrimSpace(p.Name),
			EndpointURL:      strings.TrimSpace(p.Endpoint),
			CredentialEnvKey: p.CredentialEnv,
			WireModelName:    p.Model,
			Vision:           p.Vision,
		})
	}
	return out
}

// Registry builds the provider registry. Credentials are read from the
// environment first, then from the dotenv file at lookup time so that edits
// to it take effect without a restart.
func (c *Config) Registry() (*registry.Registry, error) {
	source := registry.ChainSource{registry.EnvSource{}}
	if c.EnvFile != "" {
		source = append(source, registry.DotenvSource{Path: c.EnvFile})
	}
	return registry.New(c.Descriptors(),
		registry.WithCredentialSource(source),
		registry.WithDefault(c.Gateway.DefaultProvider),
		registry.WithVision(c.Gateway.VisionProvider),
	)
}
