// Package config loads ~/.botchat/config.toml and overlays the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/matheus3301/botchat/internal/chat"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "BOTCHAT_"

// Config is the global configuration shared by every profile.
type Config struct {
	DefaultProfile string         `toml:"default_profile" env:"PROFILE"`
	Endpoint       Endpoint       `toml:"endpoint"`
	Network        Network        `toml:"network"`
	Delivery       Delivery       `toml:"delivery"`
	Journal        Journal        `toml:"journal"`
	Log            Log            `toml:"log"`
	Relay          Relay          `toml:"relay"`
	Conversations  []Conversation `toml:"conversations" env:"-"`
}

// Endpoint is the real-time backend.
type Endpoint struct {
	URL          string        `toml:"url" env:"ENDPOINT_URL"`
	APIKey       string        `toml:"api_key" env:"API_KEY"`
	PingInterval time.Duration `toml:"ping_interval" env:"PING_INTERVAL"`
	DialTimeout  time.Duration `toml:"dial_timeout" env:"DIAL_TIMEOUT"`
	WriteTimeout time.Duration `toml:"write_timeout" env:"WRITE_TIMEOUT"`
	ReadLimit    int64         `toml:"read_limit" env:"READ_LIMIT"`
	AutoConnect  *bool         `toml:"auto_connect" env:"AUTO_CONNECT"`
}

// Network selects how reachability is observed. An empty ProbeAddr means
// the network is assumed reachable.
type Network struct {
	ProbeAddr     string        `toml:"probe_addr" env:"PROBE_ADDR"`
	ProbeInterval time.Duration `toml:"probe_interval" env:"PROBE_INTERVAL"`
	ProbeTimeout  time.Duration `toml:"probe_timeout" env:"PROBE_TIMEOUT"`
}

// Delivery tunes reconnection.
type Delivery struct {
	Redial           *bool         `toml:"redial" env:"REDIAL"`
	RedialMaxElapsed time.Duration `toml:"redial_max_elapsed" env:"REDIAL_MAX_ELAPSED"`
}

// Journal controls the diagnostic delivery log.
type Journal struct {
	Enabled *bool `toml:"enabled" env:"JOURNAL_ENABLED"`
}

// Log controls logging.
type Log struct {
	Level string `toml:"level" env:"LOG_LEVEL"`
}

// Relay configures botchat-relay.
type Relay struct {
	Addr      string        `toml:"addr" env:"RELAY_ADDR"`
	Bot       *bool         `toml:"bot" env:"RELAY_BOT"`
	BotDelay  time.Duration `toml:"bot_delay" env:"RELAY_BOT_DELAY"`
	BotPrefix string        `toml:"bot_prefix" env:"RELAY_BOT_PREFIX"`
}

// Conversation is a configured chat shown in the conversation list.
type Conversation struct {
	ID   string `toml:"id"`
	Name string `toml:"name"`
}

// Load reads config from path. A missing file is an error.
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes cfg to path with 0600 permissions, creating parent dirs.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}

// LoadOrDefault reads path if it exists, overlays a .env file in the working
// directory and the BOTCHAT_ environment, then fills defaults.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
		cfg = &Config{}
	}
	if err := LoadDotEnv(".env"); err != nil {
		return nil, err
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// LoadDotEnv exports variables from file unless they are already set. A
// missing file is ignored.
func LoadDotEnv(file string) error {
	if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", file, err)
	}
	return nil
}

// ApplyEnv overlays BOTCHAT_* environment variables onto cfg.
func ApplyEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Default returns a config holding only defaults.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills every zero field.
func (c *Config) ApplyDefaults() {
	if c.DefaultProfile == "" {
		c.DefaultProfile = "main"
	}
	if c.Endpoint.URL == "" {
		c.Endpoint.URL = "ws://127.0.0.1:8765/ws"
	}
	if c.Endpoint.PingInterval == 0 {
		c.Endpoint.PingInterval = 30 * time.Second
	}
	if c.Endpoint.DialTimeout == 0 {
		c.Endpoint.DialTimeout = 10 * time.Second
	}
	if c.Endpoint.WriteTimeout == 0 {
		c.Endpoint.WriteTimeout = 10 * time.Second
	}
	if c.Endpoint.ReadLimit == 0 {
		c.Endpoint.ReadLimit = 1 << 20
	}
	if c.Endpoint.AutoConnect == nil {
		c.Endpoint.AutoConnect = boolPtr(true)
	}
	if c.Network.ProbeInterval == 0 {
		c.Network.ProbeInterval = 5 * time.Second
	}
	if c.Network.ProbeTimeout == 0 {
		c.Network.ProbeTimeout = 2 * time.Second
	}
	if c.Delivery.Redial == nil {
		c.Delivery.Redial = boolPtr(true)
	}
	if c.Delivery.RedialMaxElapsed == 0 {
		c.Delivery.RedialMaxElapsed = 2 * time.Minute
	}
	if c.Journal.Enabled == nil {
		c.Journal.Enabled = boolPtr(true)
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Relay.Addr == "" {
		c.Relay.Addr = "127.0.0.1:8765"
	}
	if c.Relay.Bot == nil {
		c.Relay.Bot = boolPtr(true)
	}
	if c.Relay.BotDelay == 0 {
		c.Relay.BotDelay = 500 * time.Millisecond
	}
	if len(c.Conversations) == 0 {
		for _, s := range chat.DefaultSeeds() {
			c.Conversations = append(c.Conversations, Conversation{ID: s.ID, Name: s.Name})
		}
	}
}

// Seeds converts the configured conversations.
func (c *Config) Seeds() []chat.Seed {
	seeds := make([]chat.Seed, 0, len(c.Conversations))
	for _, conv := range c.Conversations {
		name := conv.Name
		if name == "" {
			name = conv.ID
		}
		seeds = append(seeds, chat.Seed{ID: conv.ID, Name: name})
	}
	return seeds
}

// AutoConnect reports whether the daemon connects on start.
func (c *Config) AutoConnect() bool { return c.Endpoint.AutoConnect == nil || *c.Endpoint.AutoConnect }

// RedialEnabled reports whether dropped connections are redialed.
func (c *Config) RedialEnabled() bool { return c.Delivery.Redial == nil || *c.Delivery.Redial }

// JournalEnabled reports whether the delivery journal is written.
func (c *Config) JournalEnabled() bool { return c.Journal.Enabled == nil || *c.Journal.Enabled }

// RelayBot reports whether the relay answers user frames.
func (c *Config) RelayBot() bool { return c.Relay.Bot == nil || *c.Relay.Bot }

func boolPtr(v bool) *bool { return &v }
