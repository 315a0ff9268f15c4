// Package config loads settings for both commands from defaults, an optional
// YAML file and SUNIO_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/mmynk/sunio/internal/api"
	"github.com/mmynk/sunio/internal/drawer"
	"github.com/mmynk/sunio/internal/session"
	"github.com/mmynk/sunio/pkg/logging"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "SUNIO_"

// PathEnv names the variable holding the YAML file path.
const PathEnv = EnvPrefix + "CONFIG_PATH"

type Config struct {
	Client  ClientConfig  `yaml:"client"`
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type ClientConfig struct {
	APIURL       string        `yaml:"api_url" env:"API_URL"`
	Codec        string        `yaml:"codec" env:"CODEC"`
	VisitorID    string        `yaml:"visitor_id" env:"VISITOR_ID"`
	DrawerDelay  time.Duration `yaml:"drawer_delay" env:"DRAWER_DELAY"`
	FetchTimeout time.Duration `yaml:"fetch_timeout" env:"FETCH_TIMEOUT"`
}

type ServerConfig struct {
	ListenAddr string        `yaml:"listen_addr" env:"LISTEN_ADDR"`
	DBPath     string        `yaml:"db_path" env:"DB_PATH"`
	JWTSecret  string        `yaml:"jwt_secret" env:"JWT_SECRET"`
	TokenTTL   time.Duration `yaml:"token_ttl" env:"TOKEN_TTL"`
}

type LogConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL"`
}

type MetricsConfig struct {
	// Addr is where /metrics is served. Empty disables the endpoint.
	Addr string `yaml:"addr" env:"METRICS_ADDR"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Client: ClientConfig{
			APIURL:       "http://localhost:8080",
			Codec:        api.CodecJSON,
			DrawerDelay:  drawer.DefaultDelay,
			FetchTimeout: session.DefaultFetchTimeout,
		},
		Server: ServerConfig{
			ListenAddr: ":8080",
			DBPath:     "./data/sunio.db",
			TokenTTL:   30 * 24 * time.Hour,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads the configuration and validates it.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv(PathEnv); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if _, err := api.NewCodec(c.Client.Codec); err != nil {
		errs = append(errs, fmt.Errorf("client.codec: %w", err))
	}
	if c.Client.DrawerDelay < 0 {
		errs = append(errs, errors.New("client.drawer_delay must not be negative"))
	}
	if c.Client.FetchTimeout < 0 {
		errs = append(errs, errors.New("client.fetch_timeout must not be negative"))
	}
	if c.Server.TokenTTL <= 0 {
		errs = append(errs, errors.New("server.token_ttl must be positive"))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	return errors.Join(errs...)
}

// LogLevel returns the parsed log level. Call it on a validated config.
func (c Config) LogLevel() slog.Level {
	level, _ := logging.ParseLevel(c.Log.Level)
	return level
}
