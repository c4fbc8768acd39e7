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

// EnvPrefix prefixes environment overrides, e.g. KICKFAKER_SERVER_URL.
const EnvPrefix = "KICKFAKER"

type ServerConfig struct {
	URL              string        `mapstructure:"url"`       // page base URL; its scheme picks ws or wss
	Path             string        `mapstructure:"path"`      // socket path
	SharePath        string        `mapstructure:"sharePath"` // path shown in the shareable URL
	HandshakeTimeout time.Duration `mapstructure:"handshakeTimeout"`
}

type NotificationsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Webhook string `mapstructure:"webhook"`
	NtfyURL string `mapstructure:"ntfy"`
}

type Config struct {
	Server          ServerConfig        `mapstructure:"server"`
	Channels        []string            `mapstructure:"channels"`
	Resume          bool                `mapstructure:"resume"`
	MessageRate     int                 `mapstructure:"messageRate"`
	RefreshInterval time.Duration       `mapstructure:"refreshInterval"`
	LogDir          string              `mapstructure:"logDir"`
	LogLevel        string              `mapstructure:"logLevel"`
	Notifications   NotificationsConfig `mapstructure:"notifications"`
}

func Defaults() Config {
	return Config{
		Server: ServerConfig{
			URL:              "http://localhost:4400",
			Path:             "/app/demo",
			SharePath:        "/ws",
			HandshakeTimeout: 10 * time.Second,
		},
		Channels:        []string{"chatroom-1", "channel-1"},
		Resume:          true,
		MessageRate:     1,
		RefreshInterval: time.Second,
		LogDir:          filepath.Join(homeDir(), "logs"),
		LogLevel:        "info",
	}
}

func homeDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".kickfaker-demo")
}

func DefaultPath() string {
	return filepath.Join(homeDir(), "config.json")
}

func DBPath() string {
	return filepath.Join(homeDir(), "state.db")
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("server.url", d.Server.URL)
	v.SetDefault("server.path", d.Server.Path)
	v.SetDefault("server.sharePath", d.Server.SharePath)
	v.SetDefault("server.handshakeTimeout", d.Server.HandshakeTimeout)
	v.SetDefault("channels", d.Channels)
	v.SetDefault("resume", d.Resume)
	v.SetDefault("messageRate", d.MessageRate)
	v.SetDefault("refreshInterval", d.RefreshInterval)
	v.SetDefault("logDir", d.LogDir)
	v.SetDefault("logLevel", d.LogLevel)
	v.SetDefault("notifications.enabled", d.Notifications.Enabled)
	v.SetDefault("notifications.webhook", d.Notifications.Webhook)
	v.SetDefault("notifications.ntfy", d.Notifications.NtfyURL)
}

// Load reads the JSON config at path over Defaults, then applies
// KICKFAKER_* environment overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v, Defaults())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			return Defaults(), fmt.Errorf("read config: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return Defaults(), err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Defaults(), fmt.Errorf("decode config: %w", err)
	}
	if cfg.MessageRate < 1 || cfg.MessageRate > 10 {
		return cfg, fmt.Errorf("messageRate %d out of range 1-10", cfg.MessageRate)
	}
	return cfg, nil
}
