package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/datapro-cli/internal/utils"
)

// Global configuration structure.
type Global struct {
	SessionDir string `mapstructure:"session_dir" yaml:"session_dir"`
	LogLevel   string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat  string `mapstructure:"log_format" yaml:"log_format"`

	// Ingestion and preview
	SampleRows int `mapstructure:"sample_rows" yaml:"sample_rows"`
	MaxRows    int `mapstructure:"max_rows" yaml:"max_rows"`

	// Modeling defaults
	RandomSeed      int64   `mapstructure:"random_seed" yaml:"random_seed"`
	NEstimators     int     `mapstructure:"n_estimators" yaml:"n_estimators"`
	TestSize        float64 `mapstructure:"test_size" yaml:"test_size"`
	DefaultClusters int     `mapstructure:"default_clusters" yaml:"default_clusters"`

	// HTTP server and charts
	ServerAddr  string `mapstructure:"server_addr" yaml:"server_addr"`
	ChartWidth  int    `mapstructure:"chart_width" yaml:"chart_width"`
	ChartHeight int    `mapstructure:"chart_height" yaml:"chart_height"`
}

var defaults = map[string]any{
	"log_level":        "info",
	"log_format":       "text",
	"sample_rows":      10,
	"max_rows":         0,
	"random_seed":      42,
	"n_estimators":     100,
	"test_size":        0.2,
	"default_clusters": 3,
	"server_addr":      "127.0.0.1:5000",
	"chart_width":      1200,
	"chart_height":     600,
}

// Dir returns ~/.datapro.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".datapro"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.datapro/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env (DATAPRO_*) > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("DATAPRO")
	v.AutomaticEnv()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetDefault("session_dir", "")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		// a missing explicit file is created by Save later
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// optional read
		_ = v.ReadInConfig()
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.SessionDir == "" {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		c.SessionDir = filepath.Join(dir, "session")
	}
	c.SessionDir = utils.ExpandHome(c.SessionDir)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate rejects values no command could work with.
func (c *Global) Validate() error {
	switch {
	case c.TestSize <= 0 || c.TestSize >= 1:
		return fmt.Errorf("test_size must be in (0, 1), got %g", c.TestSize)
	case c.NEstimators < 1:
		return fmt.Errorf("n_estimators must be positive, got %d", c.NEstimators)
	case c.DefaultClusters < 1:
		return fmt.Errorf("default_clusters must be positive, got %d", c.DefaultClusters)
	case c.MaxRows < 0:
		return fmt.Errorf("max_rows must not be negative, got %d", c.MaxRows)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("log_format must be text or json, got %q", c.LogFormat)
	}
	return nil
}

// Keys lists the settable configuration keys in sorted order.
func Keys() []string {
	keys := []string{"session_dir"}
	for k := range defaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set assigns a single key from its string form.
func (c *Global) Set(key, value string) error {
	value = strings.TrimSpace(value)
	atoi := func(dst *int) error {
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s: %q is not an integer", key, value)
		}
		*dst = n
		return nil
	}
	switch key {
	case "session_dir":
		c.SessionDir = utils.ExpandHome(value)
	case "log_level":
		c.LogLevel = strings.ToLower(value)
	case "log_format":
		c.LogFormat = strings.ToLower(value)
	case "sample_rows":
		return atoi(&c.SampleRows)
	case "max_rows":
		return atoi(&c.MaxRows)
	case "n_estimators":
		return atoi(&c.NEstimators)
	case "default_clusters":
		return atoi(&c.DefaultClusters)
	case "chart_width":
		return atoi(&c.ChartWidth)
	case "chart_height":
		return atoi(&c.ChartHeight)
	case "random_seed":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %q is not an integer", key, value)
		}
		c.RandomSeed = n
	case "test_size":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%s: %q is not a number", key, value)
		}
		c.TestSize = f
	case "server_addr":
		c.ServerAddr = value
	default:
		return fmt.Errorf("unknown config key %q (known: %s)", key, strings.Join(Keys(), ", "))
	}
	return nil
}
