package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config holds all breathe configuration.
type Config struct {
	Session      SessionConfig      `yaml:"session" toml:"session"`
	Coaching     CoachingConfig     `yaml:"coaching" toml:"coaching"`
	Ambient      AmbientConfig      `yaml:"ambient" toml:"ambient"`
	Audio        AudioConfig        `yaml:"audio" toml:"audio"`
	Presentation PresentationConfig `yaml:"presentation" toml:"presentation"`
	Store        StoreConfig        `yaml:"store" toml:"store"`
	Logging      LoggingConfig      `yaml:"logging" toml:"logging"`
	UI           UIConfig           `yaml:"ui" toml:"ui"`
}

// SessionConfig holds the defaults for a new run.
type SessionConfig struct {
	Technique        string    `yaml:"technique" toml:"technique" env:"BREATHE_TECHNIQUE"`
	Minutes          float64   `yaml:"minutes" toml:"minutes" env:"BREATHE_MINUTES"`
	BreathsPerMinute int       `yaml:"breaths_per_minute" toml:"breaths_per_minute" env:"BREATHE_BPM"` // 0 = derive from minutes and cycle length
	FixedCycles      int       `yaml:"fixed_cycles,omitempty" toml:"fixed_cycles,omitempty"`
	CyclesPerLap     float64   `yaml:"cycles_per_lap,omitempty" toml:"cycles_per_lap,omitempty"`
	Custom           []float64 `yaml:"custom,omitempty" toml:"custom,omitempty"` // in, hold1, out, hold2 seconds
	QuickPreset      string    `yaml:"quick_preset,omitempty" toml:"quick_preset,omitempty" env:"BREATHE_PRESET"`
	TickInterval     string    `yaml:"tick_interval" toml:"tick_interval"`
	TimeBox          string    `yaml:"time_box,omitempty" toml:"time_box,omitempty"`
}

// CoachingConfig toggles the phase-boundary cue channels.
type CoachingConfig struct {
	Voice          bool     `yaml:"voice" toml:"voice" env:"BREATHE_TTS"`
	Chime          bool     `yaml:"chime" toml:"chime" env:"BREATHE_CHIME"`
	Haptics        bool     `yaml:"haptics" toml:"haptics" env:"BREATHE_VIBRATE"`
	TTSCommand     string   `yaml:"tts_command" toml:"tts_command" env:"BREATHE_TTS_COMMAND"`
	TTSArgs        []string `yaml:"tts_args,omitempty" toml:"tts_args,omitempty"`
	VoiceID        string   `yaml:"voice_id,omitempty" toml:"voice_id,omitempty"`
	VibrateCommand string   `yaml:"vibrate_command" toml:"vibrate_command"`
	BellFallback   bool     `yaml:"bell_fallback" toml:"bell_fallback"`
}

// AmbientConfig selects the background generator.
type AmbientConfig struct {
	Choice           string  `yaml:"choice" toml:"choice" env:"BREATHE_AMBIENT"`
	Volume           float64 `yaml:"volume" toml:"volume" env:"BREATHE_VOLUME"`
	PauseWithSession bool    `yaml:"pause_with_session" toml:"pause_with_session"`
}

// AudioConfig selects the output device.
type AudioConfig struct {
	Enabled     bool     `yaml:"enabled" toml:"enabled" env:"BREATHE_AUDIO"`
	Backend     string   `yaml:"backend" toml:"backend" env:"BREATHE_AUDIO_BACKEND"` // oto, pipe, null
	PipeCommand []string `yaml:"pipe_command,omitempty" toml:"pipe_command,omitempty"`
	SampleRate  int      `yaml:"sample_rate" toml:"sample_rate"`
	BufferSize  string   `yaml:"buffer_size" toml:"buffer_size"`
}

// PresentationConfig controls focus mode and motion.
type PresentationConfig struct {
	Focus  bool   `yaml:"focus" toml:"focus" env:"BREATHE_FOCUS"`
	Motion string `yaml:"motion" toml:"motion" env:"BREATHE_REDUCED_MOTION"` // auto, on (reduce), off
}

// StoreConfig locates the progress database.
type StoreConfig struct {
	DatabasePath string `yaml:"database_path" toml:"database_path" env:"BREATHE_DB"`
	TimeZone     string `yaml:"time_zone" toml:"time_zone" env:"BREATHE_TZ"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level      string          `yaml:"level" toml:"level"`   // debug, info, warn, error
	Format     string          `yaml:"format" toml:"format"` // json, console
	DebugMode  bool            `yaml:"debug_mode" toml:"debug_mode" env:"BREATHE_DEBUG"`
	Categories map[string]bool `yaml:"categories,omitempty" toml:"categories,omitempty"`
}

// UIConfig holds terminal UI preferences.
type UIConfig struct {
	Theme    string `yaml:"theme" toml:"theme" env:"BREATHE_THEME"` // auto, light, dark
	OrbWidth int    `yaml:"orb_width" toml:"orb_width"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Session: SessionConfig{
			Technique:    "box",
			Minutes:      1,
			TickInterval: "50ms",
		},
		Coaching: CoachingConfig{
			Voice:          false,
			Chime:          true,
			Haptics:        false,
			TTSCommand:     "espeak",
			VibrateCommand: "termux-vibrate",
			BellFallback:   false,
		},
		Ambient: AmbientConfig{
			Choice: "none",
			Volume: 0.2,
		},
		Audio: AudioConfig{
			Enabled:    true,
			Backend:    "oto",
			SampleRate: 44100,
			BufferSize: "100ms",
		},
		Presentation: PresentationConfig{
			Focus:  false,
			Motion: "auto",
		},
		Store: StoreConfig{
			DatabasePath: filepath.Join(DefaultDir(), "progress.db"),
			TimeZone:     "Europe/London",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		UI: UIConfig{
			Theme:    "auto",
			OrbWidth: 21,
		},
	}
}

// DefaultDir is ~/.breathe, falling back to ./.breathe when the home directory is unknown.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".breathe"
	}
	return filepath.Join(home, ".breathe")
}

// DefaultPath is the config file location used when none is given.
func DefaultPath() string {
	return filepath.Join(DefaultDir(), "config.yaml")
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// Load loads configuration from a YAML or TOML file (chosen by extension) and applies
// environment overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if isTOML(path) {
			if _, err := toml.Decode(string(data), cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML, or TOML for a .toml path.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var data []byte
	if isTOML(path) {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(c); err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		data = buf.Bytes()
	} else {
		out, err := yaml.Marshal(c)
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		data = out
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies BREATHE_* environment variables on top of the file values.
func (c *Config) applyEnvOverrides() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// TickInterval returns the session tick period.
func (c *Config) TickInterval() time.Duration {
	d, err := time.ParseDuration(c.Session.TickInterval)
	if err != nil || d <= 0 {
		return 50 * time.Millisecond
	}
	return d
}

// TargetDuration returns the configured session length.
func (c *Config) TargetDuration() time.Duration {
	if c.Session.Minutes <= 0 {
		return time.Minute
	}
	return time.Duration(c.Session.Minutes * float64(time.Minute))
}

// TimeBox returns the explicit auto-stop limit, or zero for none.
func (c *Config) TimeBox() time.Duration {
	if c.Session.TimeBox == "" {
		return 0
	}
	d, err := time.ParseDuration(c.Session.TimeBox)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// AudioBufferSize returns the output device buffer length.
func (c *Config) AudioBufferSize() time.Duration {
	d, err := time.ParseDuration(c.Audio.BufferSize)
	if err != nil || d <= 0 {
		return 100 * time.Millisecond
	}
	return d
}

// Location returns the time zone used to bucket sessions into days.
func (c *Config) Location() *time.Location {
	if c.Store.TimeZone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Store.TimeZone)
	if err != nil {
		return time.Local
	}
	return loc
}

// ReducedMotion resolves the motion preference. "auto" follows NO_MOTION or
// REDUCE_MOTION in the environment.
func (c *Config) ReducedMotion() bool {
	switch strings.ToLower(c.Presentation.Motion) {
	case "on", "reduce", "reduced", "true":
		return true
	case "off", "false":
		return false
	}
	return os.Getenv("NO_MOTION") != "" || os.Getenv("REDUCE_MOTION") != ""
}

// ValidBackends lists the supported audio backends.
var ValidBackends = []string{"oto", "pipe", "null"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Ambient.Volume < 0 || c.Ambient.Volume > 1 {
		return fmt.Errorf("ambient volume %.2f out of range [0,1]", c.Ambient.Volume)
	}
	if c.Session.Minutes < 0 {
		return fmt.Errorf("session minutes must not be negative")
	}
	if n := len(c.Session.Custom); n != 0 && n != 4 {
		return fmt.Errorf("custom pattern needs 4 durations (in, hold1, out, hold2), got %d", n)
	}
	valid := false
	for _, b := range ValidBackends {
		if c.Audio.Backend == b {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("invalid audio backend: %s (valid: %v)", c.Audio.Backend, ValidBackends)
	}
	if c.Audio.Backend == "pipe" && len(c.Audio.PipeCommand) == 0 {
		return fmt.Errorf("audio backend pipe requires pipe_command")
	}
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive")
	}
	return nil
}
