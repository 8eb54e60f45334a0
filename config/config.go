package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// 存储驱动
const (
	DriverJSON   = "json"
	DriverSQLite = "sqlite"
)

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type StorageConfig struct {
	Driver     string `yaml:"driver"`
	Path       string `yaml:"path"`
	SQLitePath string `yaml:"sqlite_path"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
}

// Default 默认配置
func Default() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":7789"},
		Storage: StorageConfig{
			Driver:     DriverJSON,
			Path:       "persistence.json",
			SQLitePath: "habits.db",
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load 读取 YAML 配置，文件不存在时使用默认配置，然后应用环境变量覆盖
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		f, err := os.Open(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			// 使用默认配置
		case err != nil:
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		default:
			defer f.Close()
			if err := yaml.NewDecoder(f).Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("failed to decode %s: %w", path, err)
			}
		}
	}

	// 环境变量覆盖
	cfg.overrideFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) overrideFromEnv() {
	if addr := os.Getenv("HABIT_SERVER_ADDR"); addr != "" {
		cfg.Server.Addr = addr
	}
	if driver := os.Getenv("HABIT_STORAGE_DRIVER"); driver != "" {
		cfg.Storage.Driver = driver
	}
	if path := os.Getenv("HABIT_STORAGE_PATH"); path != "" {
		cfg.Storage.Path = path
	}
	if path := os.Getenv("HABIT_SQLITE_PATH"); path != "" {
		cfg.Storage.SQLitePath = path
	}
	if level := os.Getenv("HABIT_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
}

// Validate 校验配置
func (cfg *Config) Validate() error {
	switch cfg.Storage.Driver {
	case DriverJSON:
		if cfg.Storage.Path == "" {
			return errors.New("storage.path must not be empty")
		}
	case DriverSQLite:
		if cfg.Storage.SQLitePath == "" {
			return errors.New("storage.sqlite_path must not be empty")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
	if cfg.Server.Addr == "" {
		return errors.New("server.addr must not be empty")
	}
	return nil
}
