package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"imgclass/internal/common/fsutil"
)

// Duration is a time.Duration that reads Go duration strings ("5s", "250ms")
// from yaml, json and toml alike.
type Duration time.Duration

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(b), err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) { return []byte(time.Duration(d).String()), nil }

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// MockConfig configures the stand-in classification server.
type MockConfig struct {
	Addr         string   `json:"addr" yaml:"addr" toml:"addr"`
	Labels       []string `json:"labels" yaml:"labels" toml:"labels"`
	ProgressStep float64  `json:"progress_step" yaml:"progress_step" toml:"progress_step"`
	CORSOrigins  []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
}

// Config holds runtime parameters for the client.
// Zero values mean "unspecified" and are replaced by Default() values in WithDefaults.
type Config struct {
	BaseURL         string     `json:"base_url" yaml:"base_url" toml:"base_url"`
	Timeout         Duration   `json:"timeout" yaml:"timeout" toml:"timeout"`
	PollInterval    Duration   `json:"poll_interval" yaml:"poll_interval" toml:"poll_interval"`
	RetrainDataPath string     `json:"retrain_data_path" yaml:"retrain_data_path" toml:"retrain_data_path"`
	PreviewDir      string     `json:"preview_dir" yaml:"preview_dir" toml:"preview_dir"`
	PreviewMaxDim   int        `json:"preview_max_dim" yaml:"preview_max_dim" toml:"preview_max_dim"`
	ImageCacheTTL   *Duration  `json:"image_cache_ttl" yaml:"image_cache_ttl" toml:"image_cache_ttl"`
	LogLevel        string     `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat       string     `json:"log_format" yaml:"log_format" toml:"log_format"`
	Mock            MockConfig `json:"mock" yaml:"mock" toml:"mock"`
}

// Default returns the configuration used when nothing else is given.
func Default() Config {
	ttl := Duration(5 * time.Minute)
	return Config{
		BaseURL:         "http://localhost:5000",
		Timeout:         Duration(30 * time.Second),
		PollInterval:    Duration(5 * time.Second),
		RetrainDataPath: "/upload_retrain_data",
		PreviewMaxDim:   256,
		ImageCacheTTL:   &ttl,
		LogLevel:        "info",
		LogFormat:       "console",
		Mock: MockConfig{
			Addr:         ":5000",
			Labels:       []string{"cat", "dog", "bird"},
			ProgressStep: 25,
		},
	}
}

// WithDefaults fills every unspecified field from Default().
func (c Config) WithDefaults() Config {
	def := Default()
	if c.BaseURL == "" {
		c.BaseURL = def.BaseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = def.PollInterval
	}
	if c.RetrainDataPath == "" {
		c.RetrainDataPath = def.RetrainDataPath
	}
	if c.PreviewMaxDim < 0 {
		c.PreviewMaxDim = 0
	}
	if c.ImageCacheTTL == nil {
		c.ImageCacheTTL = def.ImageCacheTTL
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = def.LogFormat
	}
	if c.Mock.Addr == "" {
		c.Mock.Addr = def.Mock.Addr
	}
	if len(c.Mock.Labels) == 0 {
		c.Mock.Labels = def.Mock.Labels
	}
	if c.Mock.ProgressStep <= 0 {
		c.Mock.ProgressStep = def.Mock.ProgressStep
	}
	return c
}

// ApplyEnv overrides fields from IMGCLASS_* environment variables.
func (c Config) ApplyEnv() Config {
	if v := os.Getenv("IMGCLASS_BASE_URL"); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv("IMGCLASS_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	return c
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	p, err := fsutil.ExpandHome(path)
	if err != nil {
		return cfg, err
	}
	if !fsutil.PathExists(p) {
		return cfg, fmt.Errorf("config file not found: %s", p)
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(p)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
