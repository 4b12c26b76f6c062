// Package config resolves daemon and CLI settings: defaults under the
// user's ~/.planwright directory, overridable from a YAML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/planwright/planwright/internal/engine"
	"github.com/planwright/planwright/internal/proposer"
	"github.com/planwright/planwright/internal/rules"
)

type Config struct {
	// HomeDir is the base directory for all daemon state.
	HomeDir string `yaml:"home_dir"`

	SocketPath string `yaml:"socket_path"`
	LockPath   string `yaml:"lock_path"`
	PIDPath    string `yaml:"pid_path"`

	// DBPath is the sqlite file for persisted runs. Empty disables
	// persistence.
	DBPath string `yaml:"db_path"`

	// CatalogDir holds YAML rule catalog overlays.
	CatalogDir string `yaml:"catalog_dir"`

	LogLevel string `yaml:"log_level"`

	// CacheSize bounds the daemon's validation result cache.
	CacheSize int `yaml:"cache_size"`

	RequestTimeout time.Duration `yaml:"request_timeout"`

	Engine  engine.Options      `yaml:"engine"`
	Watcher rules.WatcherConfig `yaml:"watcher"`
	LLM     proposer.LLMConfig  `yaml:"llm"`
}

func Default() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	base := filepath.Join(home, ".planwright")

	return &Config{
		HomeDir:        base,
		SocketPath:     filepath.Join(base, "planwright.sock"),
		LockPath:       filepath.Join(base, "planwright.lock"),
		PIDPath:        filepath.Join(base, "planwright.pid"),
		DBPath:         filepath.Join(base, "runs.db"),
		CatalogDir:     filepath.Join(base, "catalog"),
		LogLevel:       "info",
		CacheSize:      256,
		RequestTimeout: 30 * time.Second,
		Engine:         engine.DefaultOptions(),
		Watcher:        rules.DefaultWatcherConfig(),
		LLM:            proposer.DefaultLLMConfig(),
	}
}

// Load reads the config file at path over the defaults. A missing file
// is not an error; the defaults stand.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = filepath.Join(cfg.HomeDir, "config.yaml")
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// defaults stand
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	return cfg, nil
}

// EnsureDirs creates the state directories the daemon writes into.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.HomeDir, c.CatalogDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}
