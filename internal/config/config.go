// Package config loads service settings from defaults, an optional config file and
// MEMORY_STORAGE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/rcliao/memory-storage/internal/engine"
	"github.com/rcliao/memory-storage/internal/model"
)

const (
	envPrefix  = "MEMORY_STORAGE"
	configName = "memory-storage"
)

// Config is the full service configuration.
type Config struct {
	DataDir  string         `mapstructure:"data_dir"`
	DB       string         `mapstructure:"db"`
	Server   ServerConfig   `mapstructure:"server"`
	Security SecurityConfig `mapstructure:"security"`
	Backup   BackupConfig   `mapstructure:"backup"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type SecurityConfig struct {
	EnableAuth bool     `mapstructure:"enable_auth"`
	APIKeys    []string `mapstructure:"api_keys"`
}

type BackupConfig struct {
	Dir              string `mapstructure:"dir"`
	IntervalMinutes  int    `mapstructure:"interval_minutes"`
	OnStartup        bool   `mapstructure:"on_startup"`
	MaxBackups       int    `mapstructure:"max_backups"`
	CompressionLevel int    `mapstructure:"compression_level"`
}

type StorageConfig struct {
	MaxPayloadBytes   int64                   `mapstructure:"max_payload_bytes"`
	MemoryTypes       []string                `mapstructure:"memory_types"`
	DefaultMemoryType string                  `mapstructure:"default_memory_type"`
	AcquireTimeout    time.Duration           `mapstructure:"acquire_timeout"`
	DefaultProjects   []engine.DefaultProject `mapstructure:"default_projects"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", "./data")
	v.SetDefault("db", "")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")

	v.SetDefault("security.enable_auth", false)
	v.SetDefault("security.api_keys", []string{})

	v.SetDefault("backup.dir", "")
	v.SetDefault("backup.interval_minutes", 60)
	v.SetDefault("backup.on_startup", true)
	v.SetDefault("backup.max_backups", 5)
	v.SetDefault("backup.compression_level", -1)

	types := make([]string, len(model.MemoryTypes))
	for i, t := range model.MemoryTypes {
		types[i] = string(t)
	}
	v.SetDefault("storage.max_payload_bytes", engine.DefaultMaxPayloadBytes)
	v.SetDefault("storage.memory_types", types)
	v.SetDefault("storage.default_memory_type", string(model.DefaultMemoryType))
	v.SetDefault("storage.acquire_timeout", "30s")
	defaults := make([]map[string]interface{}, len(engine.DefaultProjects))
	for i, p := range engine.DefaultProjects {
		defaults[i] = map[string]interface{}{"name": p.Name, "description": p.Description}
	}
	v.SetDefault("storage.default_projects", defaults)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// legacyEnv maps the environment names the service has always honoured onto config keys.
var legacyEnv = map[string]string{
	"server.port":             envPrefix + "_PORT",
	"security.enable_auth":    envPrefix + "_AUTH_ENABLED",
	"security.api_keys":       envPrefix + "_AUTH_KEY",
	"backup.interval_minutes": envPrefix + "_BACKUP_INTERVAL",
	"data_dir":                envPrefix + "_DATA_DIR",
	"log.level":               envPrefix + "_LOG_LEVEL",
}

// Load reads configuration. An empty path searches the working directory and
// $HOME/.config/memory-storage for memory-storage.{yaml,toml}; a missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		canonical := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, canonical, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", configName))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.DataDir == "" && (c.DB == "" || c.Backup.Dir == "") {
		return errors.New("config: data_dir is required")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d out of range", c.Server.Port)
	}
	if c.Security.EnableAuth && len(c.APIKeys()) == 0 {
		return errors.New("config: security.enable_auth requires at least one api key")
	}
	if c.Backup.IntervalMinutes < 0 {
		return fmt.Errorf("config: backup.interval_minutes must not be negative, got %d", c.Backup.IntervalMinutes)
	}
	if c.Backup.MaxBackups < 1 {
		return fmt.Errorf("config: backup.max_backups must be at least 1, got %d", c.Backup.MaxBackups)
	}
	if c.Backup.CompressionLevel < -2 || c.Backup.CompressionLevel > 9 {
		return fmt.Errorf("config: backup.compression_level %d out of range", c.Backup.CompressionLevel)
	}
	if c.Storage.MaxPayloadBytes <= 0 {
		return fmt.Errorf("config: storage.max_payload_bytes must be positive, got %d", c.Storage.MaxPayloadBytes)
	}
	if len(c.Storage.MemoryTypes) == 0 {
		return errors.New("config: storage.memory_types must not be empty")
	}
	found := false
	for _, t := range c.Storage.MemoryTypes {
		if t == c.Storage.DefaultMemoryType {
			found = true
		}
	}
	if !found {
		return fmt.Errorf("config: storage.default_memory_type %q is not in storage.memory_types", c.Storage.DefaultMemoryType)
	}
	for _, p := range c.Storage.DefaultProjects {
		if !model.ValidProjectName(p.Name) {
			return fmt.Errorf("config: invalid default project name %q", p.Name)
		}
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("config: log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// DSN returns the store DSN, defaulting to a SQLite file in the data directory.
func (c *Config) DSN() string {
	if c.DB != "" {
		return c.DB
	}
	return filepath.Join(c.DataDir, "memory.db")
}

// BackupDir returns the archive directory, defaulting to data_dir/backups.
func (c *Config) BackupDir() string {
	if c.Backup.Dir != "" {
		return c.Backup.Dir
	}
	return filepath.Join(c.DataDir, "backups")
}

// BackupInterval converts backup.interval_minutes; zero disables the timer.
func (c *Config) BackupInterval() time.Duration {
	return time.Duration(c.Backup.IntervalMinutes) * time.Minute
}

// Addr is the HTTP listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// APIKeys returns the configured bearer tokens with blanks removed. A single env value
// may carry several keys separated by commas.
func (c *Config) APIKeys() []string {
	var out []string
	for _, k := range c.Security.APIKeys {
		for _, part := range strings.Split(k, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// MemoryTypes returns the configured memory type set.
func (c *Config) MemoryTypes() []model.MemoryType {
	out := make([]model.MemoryType, len(c.Storage.MemoryTypes))
	for i, t := range c.Storage.MemoryTypes {
		out[i] = model.MemoryType(t)
	}
	return out
}
