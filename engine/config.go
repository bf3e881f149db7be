package engine

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/skytex/engine/assets"
	"github.com/spaghettifunk/skytex/engine/core"
	"github.com/spaghettifunk/skytex/engine/renderer/metadata"
	"github.com/spaghettifunk/skytex/engine/systems"
)

// Duration decodes TOML strings such as "30s" or "1m30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

type LogConfig struct {
	Level string `toml:"level"`
}

type TexturesConfig struct {
	SearchPaths     []string               `toml:"search_paths"`
	Watch           bool                   `toml:"watch"`
	MaxTextureCount uint32                 `toml:"max_texture_count"`
	AllowRescale    bool                   `toml:"allow_rescale"`
	Filter          metadata.TextureFilter `toml:"filter"`
	Wrap            metadata.TextureRepeat `toml:"wrap"`
	Mipmaps         bool                   `toml:"mipmaps"`
	// See metadata.ParseDynamicRange for the accepted forms.
	DynamicRange string `toml:"dynamic_range"`
}

type JobsConfig struct {
	Workers   int `toml:"workers"`
	QueueSize int `toml:"queue_size"`
}

type NetworkConfig struct {
	Timeout   Duration `toml:"timeout"`
	UserAgent string   `toml:"user_agent"`
}

// Config is the content of the engine configuration file.
type Config struct {
	Log      LogConfig      `toml:"log"`
	Textures TexturesConfig `toml:"textures"`
	Jobs     JobsConfig     `toml:"jobs"`
	Network  NetworkConfig  `toml:"network"`
}

func DefaultConfig() *Config {
	params := metadata.DefaultTextureParams()
	return &Config{
		Log: LogConfig{Level: "info"},
		Textures: TexturesConfig{
			SearchPaths:     []string{"assets/textures"},
			MaxTextureCount: 1024,
			AllowRescale:    true,
			Filter:          params.Filter,
			Wrap:            params.Wrap,
			Mipmaps:         params.GenerateMipmaps,
			DynamicRange:    params.DynamicRange.String(),
		},
		Jobs: JobsConfig{
			Workers:   4,
			QueueSize: 256,
		},
		Network: NetworkConfig{
			Timeout:   Duration{30 * time.Second},
			UserAgent: "skytex",
		},
	}
}

// LoadConfig reads a TOML file on top of DefaultConfig. Unknown keys are
// rejected.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg := DefaultConfig()
	if err := toml.NewDecoder(f).DisallowUnknownFields().Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, fmt.Errorf("%s: %s", path, strict.String())
		}
		var de *toml.DecodeError
		if errors.As(err, &de) {
			row, col := de.Position()
			return nil, fmt.Errorf("%s:%d:%d: %w", path, row, col, err)
		}
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides the configuration with SKYTEX_* variables read from
// the given dotenv files and then from the process environment, which
// wins. Missing files are skipped.
func (c *Config) ApplyEnv(files ...string) error {
	env := make(map[string]string)
	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		values, err := godotenv.Read(file)
		if err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
		for k, v := range values {
			env[k] = v
		}
	}
	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := env[key]
		return v, ok
	}

	if v, ok := lookup("SKYTEX_LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	if v, ok := lookup("SKYTEX_USER_AGENT"); ok {
		c.Network.UserAgent = v
	}
	if v, ok := lookup("SKYTEX_DYNAMIC_RANGE"); ok {
		c.Textures.DynamicRange = v
	}
	if v, ok := lookup("SKYTEX_NETWORK_TIMEOUT"); ok {
		if err := c.Network.Timeout.UnmarshalText([]byte(v)); err != nil {
			return &core.ConfigError{Field: "SKYTEX_NETWORK_TIMEOUT", Value: v}
		}
	}
	if v, ok := lookup("SKYTEX_WORKERS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return &core.ConfigError{Field: "SKYTEX_WORKERS", Value: v}
		}
		c.Jobs.Workers = n
	}
	return c.Validate()
}

func (c *Config) Validate() error {
	if _, err := core.ParseLogLevel(c.Log.Level); err != nil {
		return &core.ConfigError{Field: "log.level", Value: c.Log.Level}
	}
	if _, err := metadata.ParseDynamicRange(c.Textures.DynamicRange); err != nil {
		return &core.ConfigError{Field: "textures.dynamic_range", Value: c.Textures.DynamicRange}
	}
	if c.Textures.MaxTextureCount == 0 {
		return &core.ConfigError{Field: "textures.max_texture_count", Value: "0"}
	}
	if c.Jobs.Workers < 1 {
		return &core.ConfigError{Field: "jobs.workers", Value: strconv.Itoa(c.Jobs.Workers)}
	}
	if c.Jobs.QueueSize < 0 {
		return &core.ConfigError{Field: "jobs.queue_size", Value: strconv.Itoa(c.Jobs.QueueSize)}
	}
	if c.Network.Timeout.Duration < 0 {
		return &core.ConfigError{Field: "network.timeout", Value: c.Network.Timeout.String()}
	}
	return nil
}

// LogLevel returns the parsed log level. The config must be valid.
func (c *Config) LogLevel() core.LogLevel {
	level, err := core.ParseLogLevel(c.Log.Level)
	if err != nil {
		return core.InfoLevel
	}
	return level
}

// TextureParams returns the default per-texture parameters.
func (c *Config) TextureParams() (metadata.TextureParams, error) {
	dr, err := metadata.ParseDynamicRange(c.Textures.DynamicRange)
	if err != nil {
		return metadata.TextureParams{}, err
	}
	return metadata.TextureParams{
		Filter:          c.Textures.Filter,
		Wrap:            c.Textures.Wrap,
		GenerateMipmaps: c.Textures.Mipmaps,
		DynamicRange:    dr,
	}, nil
}

// SystemManagerConfig translates the file layout into the systems layout.
func (c *Config) SystemManagerConfig() (*systems.SystemManagerConfig, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	params, err := c.TextureParams()
	if err != nil {
		return nil, err
	}
	return &systems.SystemManagerConfig{
		Jobs: systems.JobSystemConfig{
			Workers:   c.Jobs.Workers,
			QueueSize: c.Jobs.QueueSize,
		},
		Assets: assets.AssetManagerConfig{
			SearchPaths:    append([]string(nil), c.Textures.SearchPaths...),
			Watch:          c.Textures.Watch,
			NetworkTimeout: c.Network.Timeout.Duration,
			UserAgent:      c.Network.UserAgent,
		},
		Textures: systems.TextureSystemConfig{
			MaxTextureCount: c.Textures.MaxTextureCount,
			AllowRescale:    c.Textures.AllowRescale,
			DefaultParams:   params,
		},
	}, nil
}
