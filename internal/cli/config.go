package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/kintree/pkg/cache"
	"github.com/matzehuels/kintree/pkg/layout"
	"github.com/matzehuels/kintree/pkg/store"
)

// Config is the on-disk CLI configuration, loaded from a TOML file.
// Every field has a working default; the file only needs the overrides.
type Config struct {
	Layout layout.Config `toml:"layout"`
	Server ServerConfig  `toml:"server"`
	Store  StoreConfig   `toml:"store"`
	Cache  CacheConfig   `toml:"cache"`
}

// ServerConfig configures the serve command.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// StoreConfig selects and configures the record store backend.
type StoreConfig struct {
	Backend  string `toml:"backend"` // "memory", "file", or "mongo"
	Path     string `toml:"path"`    // snapshot file for the file backend
	URI      string `toml:"uri"`     // connection string for the mongo backend
	Database string `toml:"database"`
}

// CacheConfig selects and configures the layout cache backend.
type CacheConfig struct {
	Backend       string `toml:"backend"` // "file", "redis", or "none"
	Dir           string `toml:"dir"`     // directory for the file backend
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() Config {
	return Config{
		Layout: layout.DefaultConfig(),
		Server: ServerConfig{Addr: ":8080"},
		Store:  StoreConfig{Backend: "file", Path: "family.json"},
		Cache:  CacheConfig{Backend: "file"},
	}
}

// defaultConfigPath returns ~/.config/kintree/config.toml.
func defaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".config", "kintree", "config.toml"), nil
}

// LoadConfig reads the TOML config at path. An empty path falls back to
// the default location; a missing file yields the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		p, err := defaultConfigPath()
		if err != nil {
			return cfg, err
		}
		path = p
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return cfg, nil
		}
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// openStore builds the record store named by the configuration.
func openStore(ctx context.Context, cfg Config) (store.Store, error) {
	switch cfg.Store.Backend {
	case "memory":
		return store.NewMemoryStore(), nil
	case "file", "":
		return store.NewFileStore(cfg.Store.Path)
	case "mongo":
		db := cfg.Store.Database
		if db == "" {
			db = "kintree"
		}
		return store.NewMongoStore(ctx, store.MongoConfig{URI: cfg.Store.URI, Database: db})
	default:
		return nil, fmt.Errorf("unknown store backend: %q", cfg.Store.Backend)
	}
}

// openCache builds the layout cache named by the configuration.
func openCache(ctx context.Context, cfg Config) (cache.Cache, error) {
	switch cfg.Cache.Backend {
	case "none":
		return cache.NewNullCache(), nil
	case "file", "":
		dir := cfg.Cache.Dir
		if dir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("get home dir: %w", err)
			}
			dir = filepath.Join(home, ".cache", "kintree")
		}
		return cache.NewFileCache(dir)
	case "redis":
		return cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
	default:
		return nil, fmt.Errorf("unknown cache backend: %q", cfg.Cache.Backend)
	}
}
