// Package config loads narrator settings from defaults, a YAML file, the
// environment and bound command line flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"

	"github.com/dgnsrekt/narrator/internal/assemble"
	"github.com/dgnsrekt/narrator/internal/cache"
	"github.com/dgnsrekt/narrator/internal/playback"
	"github.com/dgnsrekt/narrator/internal/reconcile"
	"github.com/dgnsrekt/narrator/internal/wav"
)

// EnvPrefix prefixes environment overrides, e.g. NARRATOR_PLAYBACK_RATE.
const EnvPrefix = "NARRATOR"

// Config is the root configuration.
type Config struct {
	Playback  PlaybackConfig  `mapstructure:"playback"`
	Reconcile ReconcileConfig `mapstructure:"reconcile"`
	Assembly  AssemblyConfig  `mapstructure:"assembly"`
	Fetch     FetchConfig     `mapstructure:"fetch"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Highlight HighlightConfig `mapstructure:"highlight"`
	Log       LogConfig       `mapstructure:"log"`
}

// PlaybackConfig configures the controller.
type PlaybackConfig struct {
	SkipInterval  time.Duration `mapstructure:"skip_interval"`
	FrameInterval time.Duration `mapstructure:"frame_interval"`
	Rate          float64       `mapstructure:"rate"`
	Volume        float64       `mapstructure:"volume"`
}

// ReconcileConfig configures duration reconciliation.
type ReconcileConfig struct {
	Threshold time.Duration `mapstructure:"threshold"`
}

// AssemblyConfig configures the assembler. SampleRate and Channels must
// match what the output device is opened with.
type AssemblyConfig struct {
	Concurrency    int           `mapstructure:"concurrency"`
	SegmentTimeout time.Duration `mapstructure:"segment_timeout"`
	SampleRate     int           `mapstructure:"sample_rate"`
	Channels       int           `mapstructure:"channels"`
	OnMismatch     string        `mapstructure:"on_mismatch"` // resample or reject
}

// FetchConfig configures segment retrieval.
type FetchConfig struct {
	MaxBytes          int64         `mapstructure:"max_bytes"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	UserAgent         string        `mapstructure:"user_agent"`
	Timeout           time.Duration `mapstructure:"timeout"`
}

// CacheConfig configures the segment byte cache.
type CacheConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	Dir              string        `mapstructure:"dir"`
	MemoryMB         int           `mapstructure:"memory_mb"`
	DiskMB           int           `mapstructure:"disk_mb"`
	CompressionLevel int           `mapstructure:"compression_level"`
	MaxAge           time.Duration `mapstructure:"max_age"`
}

// HighlightConfig configures the word tracker.
type HighlightConfig struct {
	ScrollInterval time.Duration `mapstructure:"scroll_interval"`
}

// LogConfig configures the log file.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// SetDefaults registers a default for every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("playback.skip_interval", playback.DefaultSkipInterval)
	v.SetDefault("playback.frame_interval", playback.DefaultFrameInterval)
	v.SetDefault("playback.rate", 1.0)
	v.SetDefault("playback.volume", 1.0)
	v.SetDefault("reconcile.threshold", reconcile.DefaultThreshold)
	v.SetDefault("assembly.concurrency", assemble.DefaultConcurrency)
	v.SetDefault("assembly.segment_timeout", assemble.DefaultSegmentTimeout)
	v.SetDefault("assembly.sample_rate", 24000)
	v.SetDefault("assembly.channels", 1)
	v.SetDefault("assembly.on_mismatch", string(assemble.PolicyResample))
	v.SetDefault("fetch.max_bytes", assemble.DefaultMaxBytes)
	v.SetDefault("fetch.requests_per_second", 8.0)
	v.SetDefault("fetch.user_agent", assemble.DefaultUserAgent)
	v.SetDefault("fetch.timeout", time.Minute)
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.dir", "")
	v.SetDefault("cache.memory_mb", 64)
	v.SetDefault("cache.disk_mb", 512)
	v.SetDefault("cache.compression_level", 3)
	v.SetDefault("cache.max_age", 7*24*time.Hour)
	v.SetDefault("highlight.scroll_interval", 150*time.Millisecond)
	v.SetDefault("log.level", "info")
}

// BindEnv enables NARRATOR_* overrides for every key.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads configFile (if non-empty) on top of defaults and environment
// overrides.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	BindEnv(v)
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}
	return Decode(v)
}

// Decode unmarshals and validates the settings held by v.
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every out-of-range setting, joined into one error.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}
	check(c.Playback.SkipInterval > 0, "playback.skip_interval must be positive, got %v", c.Playback.SkipInterval)
	check(c.Playback.FrameInterval > 0, "playback.frame_interval must be positive, got %v", c.Playback.FrameInterval)
	check(c.Playback.Rate >= playback.MinRate && c.Playback.Rate <= playback.MaxRate,
		"playback.rate must be between %.1f and %.1f, got %.2f", playback.MinRate, playback.MaxRate, c.Playback.Rate)
	check(c.Playback.Volume >= 0 && c.Playback.Volume <= 1, "playback.volume must be between 0 and 1, got %.2f", c.Playback.Volume)
	check(c.Reconcile.Threshold >= 0, "reconcile.threshold must not be negative, got %v", c.Reconcile.Threshold)
	check(c.Assembly.Concurrency >= 1 && c.Assembly.Concurrency <= 64, "assembly.concurrency must be between 1 and 64, got %d", c.Assembly.Concurrency)
	check(c.Assembly.SegmentTimeout > 0, "assembly.segment_timeout must be positive, got %v", c.Assembly.SegmentTimeout)
	check(c.Assembly.SampleRate >= 8000 && c.Assembly.SampleRate <= 192000, "assembly.sample_rate must be between 8000 and 192000, got %d", c.Assembly.SampleRate)
	check(c.Assembly.Channels == 1 || c.Assembly.Channels == 2, "assembly.channels must be 1 or 2, got %d", c.Assembly.Channels)
	switch assemble.MismatchPolicy(c.Assembly.OnMismatch) {
	case assemble.PolicyResample, assemble.PolicyReject:
	default:
		errs = append(errs, fmt.Errorf("assembly.on_mismatch must be %q or %q, got %q", assemble.PolicyResample, assemble.PolicyReject, c.Assembly.OnMismatch))
	}
	check(c.Fetch.MaxBytes > 0, "fetch.max_bytes must be positive, got %d", c.Fetch.MaxBytes)
	check(c.Fetch.RequestsPerSecond >= 0, "fetch.requests_per_second must not be negative, got %v", c.Fetch.RequestsPerSecond)
	check(c.Cache.MemoryMB >= 0 && c.Cache.DiskMB >= 0, "cache sizes must not be negative")
	check(c.Cache.CompressionLevel >= 0 && c.Cache.CompressionLevel <= 22, "cache.compression_level must be between 0 and 22, got %d", c.Cache.CompressionLevel)
	check(c.Highlight.ScrollInterval > 0, "highlight.scroll_interval must be positive, got %v", c.Highlight.ScrollInterval)
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	return errors.Join(errs...)
}

// Format returns the assembly output format.
func (c *Config) Format() wav.Format {
	return wav.Format{SampleRate: c.Assembly.SampleRate, Channels: c.Assembly.Channels}
}

// AssemblerOptions converts the assembly settings.
func (c *Config) AssemblerOptions() assemble.Options {
	return assemble.Options{
		Format:         c.Format(),
		Concurrency:    c.Assembly.Concurrency,
		SegmentTimeout: c.Assembly.SegmentTimeout,
		OnMismatch:     assemble.MismatchPolicy(c.Assembly.OnMismatch),
	}
}

// PlaybackOptions converts the playback settings.
func (c *Config) PlaybackOptions() playback.Options {
	return playback.Options{
		SkipInterval:  c.Playback.SkipInterval,
		FrameInterval: c.Playback.FrameInterval,
		Threshold:     c.Reconcile.Threshold,
		Rate:          c.Playback.Rate,
	}
}

// CacheOptions converts the cache settings. dir is used when none is
// configured.
func (c *Config) CacheOptions(dir string) cache.Config {
	cc := cache.Config{
		MemoryBytes:      int64(c.Cache.MemoryMB) << 20,
		DiskBytes:        int64(c.Cache.DiskMB) << 20,
		Dir:              c.Cache.Dir,
		CompressionLevel: c.Cache.CompressionLevel,
		MaxAge:           c.Cache.MaxAge,
	}
	if cc.Dir == "" {
		cc.Dir = dir
	}
	return cc
}
